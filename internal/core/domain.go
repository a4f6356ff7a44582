package core

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Table names of the hosted backend. Realtime subscriptions and change
// notifications are keyed by these.
const (
	TableCoupleUsers      Table = "couple_users"
	TableBudgets          Table = "budgets"
	TableBudgetCategories Table = "budget_categories"
	TableBudgetExpenses   Table = "budget_expenses"
	TableEvents           Table = "events"
	TablePhotos           Table = "photos"
)

const isoLayout = "2006-01-02"

type (
	Table string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Membership links an authenticated user to the couple that scopes all
	// their records.
	Membership struct {
		CoupleID    string
		UserID      string
		DisplayName string
	}

	Event struct {
		ID          string        `json:"id"`
		CoupleID    string        `json:"couple_id"`
		Date        Date          `json:"date"`
		Title       string        `json:"title"`
		Description string        `json:"description,omitempty"`
		TimeStart   string        `json:"time_start,omitempty"` // HH:MM, empty when unset
		TimeEnd     string        `json:"time_end,omitempty"`
		Category    EventCategory `json:"category"`
		CreatedBy   string        `json:"created_by"`
		CreatedAt   time.Time     `json:"created_at"`
		UpdatedAt   time.Time     `json:"updated_at"`
	}

	// NewEvent is the create payload for an event; tenant and creator are
	// stamped by the synchronizer.
	NewEvent struct {
		Date        Date          `yaml:"date" json:"date"`
		Title       string        `yaml:"title" json:"title"`
		Description string        `yaml:"description" json:"description,omitempty"`
		TimeStart   string        `yaml:"time_start" json:"time_start,omitempty"`
		TimeEnd     string        `yaml:"time_end" json:"time_end,omitempty"`
		Category    EventCategory `yaml:"category" json:"category"`
	}

	EventPatch struct {
		Title       *string
		Description *string
		TimeStart   *string
		TimeEnd     *string
		Category    *EventCategory
	}

	Budget struct {
		ID        string    `json:"id"`
		CoupleID  string    `json:"couple_id"`
		Total     Money     `json:"total_budget"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	CategoryAllocation struct {
		ID        string         `json:"id"`
		CoupleID  string         `json:"couple_id"`
		Category  BudgetCategory `json:"category"`
		Estimated Money          `json:"estimated_amount"`
		SortOrder int            `json:"sort_order"`
		CreatedAt time.Time      `json:"created_at"`
		UpdatedAt time.Time      `json:"updated_at"`
	}

	Expense struct {
		ID          string         `json:"id"`
		CoupleID    string         `json:"couple_id"`
		Category    BudgetCategory `json:"category"`
		VendorName  string         `json:"vendor_name"`
		Description string         `json:"description,omitempty"`
		Amount      Money          `json:"amount"`
		IsPaid      bool           `json:"is_paid"`
		Date        *Date          `json:"date,omitempty"`
		CreatedBy   string         `json:"created_by"`
		CreatedAt   time.Time      `json:"created_at"`
		UpdatedAt   time.Time      `json:"updated_at"`
	}

	NewExpense struct {
		Category    BudgetCategory `yaml:"category" json:"category"`
		VendorName  string         `yaml:"vendor" json:"vendor_name"`
		Description string         `yaml:"description" json:"description,omitempty"`
		Amount      Money          `yaml:"amount" json:"amount"`
		IsPaid      bool           `yaml:"paid" json:"is_paid"`
		Date        *Date          `yaml:"date" json:"date,omitempty"`
	}

	ExpensePatch struct {
		Category    *BudgetCategory
		VendorName  *string
		Description *string
		Amount      *Money
		IsPaid      *bool
		Date        *Date
	}

	Photo struct {
		ID          string    `json:"id"`
		CoupleID    string    `json:"couple_id"`
		Date        Date      `json:"date"`
		StoragePath string    `json:"storage_path"`
		Caption     string    `json:"caption,omitempty"`
		UploadedBy  string    `json:"uploaded_by"`
		CreatedAt   time.Time `json:"created_at"`
		URL         string    `json:"url,omitempty"` // signed, never persisted
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidTime      = errors.New("invalid time of day")
	ErrEmptyTitle       = errors.New("empty title")
	ErrEmptyVendor      = errors.New("empty vendor name")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrEmptyStoragePath = errors.New("empty storage path")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseISODate parses a YYYY-MM-DD string.
func ParseISODate(s string) (Date, error) {
	t, err := time.Parse(isoLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// MustDate is ParseISODate for literals known to be valid.
func MustDate(s string) Date {
	d, err := ParseISODate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String formats the date as YYYY-MM-DD; the zero date formats as "".
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(isoLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseISODate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON shadows the promoted time.Time encoding.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*d = Date{}
		return nil
	}
	return d.UnmarshalText([]byte(strings.Trim(s, `"`)))
}

// Value stores dates as TEXT so the same schema works on SQLite and Postgres.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case string:
		return d.UnmarshalText([]byte(v))
	case []byte:
		return d.UnmarshalText(v)
	case time.Time:
		*d = NewDate(v.Year(), int(v.Month()), v.Day())
		return nil
	default:
		return fmt.Errorf("scan date: unsupported type %T", src)
	}
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateClock accepts "" (unset) or a 24h HH:MM value.
func ValidateClock(s string) error {
	if s == "" {
		return nil
	}
	if _, err := time.Parse("15:04", s); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return nil
}

func (e NewEvent) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Title) == "" {
		return ErrEmptyTitle
	}
	if len(e.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if err := ValidateClock(e.TimeStart); err != nil {
		return err
	}
	if err := ValidateClock(e.TimeEnd); err != nil {
		return err
	}
	if _, ok := EventCategories[e.Category]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, e.Category)
	}
	return nil
}

func (p EventPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ErrEmptyTitle
	}
	if p.TimeStart != nil {
		if err := ValidateClock(*p.TimeStart); err != nil {
			return err
		}
	}
	if p.TimeEnd != nil {
		if err := ValidateClock(*p.TimeEnd); err != nil {
			return err
		}
	}
	if p.Category != nil {
		if _, ok := EventCategories[*p.Category]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownCategory, *p.Category)
		}
	}
	return nil
}

// Apply returns e with the patch fields set.
func (p EventPatch) Apply(e Event) Event {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.TimeStart != nil {
		e.TimeStart = *p.TimeStart
	}
	if p.TimeEnd != nil {
		e.TimeEnd = *p.TimeEnd
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	return e
}

func (e NewExpense) Validate() error {
	if _, ok := BudgetCategories[e.Category]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, e.Category)
	}
	if strings.TrimSpace(e.VendorName) == "" {
		return ErrEmptyVendor
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if e.Date != nil {
		if err := e.Date.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (p ExpensePatch) Validate() error {
	if p.Category != nil {
		if _, ok := BudgetCategories[*p.Category]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownCategory, *p.Category)
		}
	}
	if p.VendorName != nil && strings.TrimSpace(*p.VendorName) == "" {
		return ErrEmptyVendor
	}
	if p.Amount != nil {
		if err := p.Amount.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Apply returns e with the patch fields set.
func (p ExpensePatch) Apply(e Expense) Expense {
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.VendorName != nil {
		e.VendorName = *p.VendorName
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.IsPaid != nil {
		e.IsPaid = *p.IsPaid
	}
	if p.Date != nil {
		d := *p.Date
		e.Date = &d
	}
	return e
}

func (p Photo) Validate() error {
	if err := p.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(p.StoragePath) == "" {
		return ErrEmptyStoragePath
	}
	return nil
}
