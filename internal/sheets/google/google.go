// Package google writes expense exports to a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	applog "github.com/jerardpelaez/wedding-calendar/internal/log"
	ports "github.com/jerardpelaez/wedding-calendar/internal/sheets"
)

const DefaultSheetName = "Budget"

type Config struct {
	SpreadsheetID string
	// SheetName is prefixed with the planning year unless it already starts with one.
	SheetName          string
	Year               int
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *applog.Logger
}

var _ ports.ExpenseExporter = (*Client)(nil)

// New creates a Sheets client authenticated with service account credentials.
func New(ctx context.Context, cfg Config, logger *applog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg, logger), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *gsheet.Service, cfg Config, logger *applog.Logger) *Client {
	if logger == nil {
		logger = applog.Discard()
	}
	name := strings.TrimSpace(cfg.SheetName)
	if name == "" {
		name = DefaultSheetName
	}
	year := cfg.Year
	if year <= 0 {
		year = time.Now().Year()
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheet:         yearPrefixedName(name, year),
		logger:        logger.WithComponent(applog.ComponentSheets),
	}
}

// credentials prefers inline JSON, then the file, then GOOGLE_APPLICATION_CREDENTIALS.
func credentials(cfg Config) ([]byte, error) {
	if j := strings.TrimSpace(cfg.ServiceAccountJSON); j != "" {
		return []byte(j), nil
	}
	file := strings.TrimSpace(cfg.ServiceAccountFile)
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if file == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

// newHTTPClientWithPooling keeps connections to the Sheets API warm
// between exports.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

func (c *Client) Sheet() string { return c.sheet }

// ExportExpenses clears the sheet and writes the whole export from A1.
func (c *Client) ExportExpenses(ctx context.Context, e ports.Export) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	rows := ports.Rows(e)

	clearRange := fmt.Sprintf("%s!A:Z", quoteSheet(c.sheet))
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", clearRange, err)
	}

	ref := fmt.Sprintf("%s!A1:F%d", quoteSheet(c.sheet), len(rows))
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, ref, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("write %s: %w", ref, err)
	}

	c.logger.InfoContext(ctx, "Expenses exported",
		applog.FieldCoupleID, e.CoupleID,
		applog.FieldCount, len(e.Expenses),
		applog.FieldSheetsRef, ref)
	return ref, nil
}

// quoteSheet wraps names containing spaces the way A1 notation requires.
func quoteSheet(name string) string {
	if strings.ContainsAny(name, " '!") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
