// Package memory records expense exports in process memory.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jerardpelaez/wedding-calendar/internal/sheets"
)

type Exporter struct {
	mu      sync.Mutex
	exports []sheets.Export
	rows    [][]any
}

var _ sheets.ExpenseExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{}
}

// ExportExpenses stores the export and returns a synthetic reference.
func (x *Exporter) ExportExpenses(_ context.Context, e sheets.Export) (string, error) {
	if e.CoupleID == "" {
		return "", fmt.Errorf("export without couple")
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.exports = append(x.exports, e)
	x.rows = sheets.Rows(e)
	return fmt.Sprintf("mem:%d", len(x.exports)), nil
}

// Exports returns every export recorded so far.
func (x *Exporter) Exports() []sheets.Export {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]sheets.Export(nil), x.exports...)
}

// Rows returns the sheet content of the last export.
func (x *Exporter) Rows() [][]any {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([][]any(nil), x.rows...)
}
