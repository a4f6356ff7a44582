package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{FormatText, FormatJSON}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Print writes data as indented JSON, or calls text with a tab-aligned
// writer for the text format.
func (f *OutputFormatter) Print(data any, text func(w io.Writer)) error {
	if f.Format == FormatJSON {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}

// Done reports a completed mutation.
func (f *OutputFormatter) Done(msg string, data any) error {
	return f.Print(data, func(w io.Writer) { fmt.Fprintln(w, msg) })
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
