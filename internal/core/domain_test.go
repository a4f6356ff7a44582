package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2026, 1, 1), true},
		{NewDate(2026, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateTextAndJSON(t *testing.T) {
	d := MustDate("2026-06-20")
	b, err := json.Marshal(d)
	if err != nil || string(b) != `"2026-06-20"` {
		t.Fatalf("marshal: %s (err=%v)", b, err)
	}
	var back Date
	if err := json.Unmarshal(b, &back); err != nil || !back.Equal(d.Time) {
		t.Fatalf("unmarshal: %v (err=%v)", back, err)
	}
	if err := back.UnmarshalText([]byte("2026-13-01")); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestDateScan(t *testing.T) {
	var d Date
	if err := d.Scan("2026-03-04"); err != nil || d.String() != "2026-03-04" {
		t.Fatalf("scan string: %v %v", d, err)
	}
	if err := d.Scan([]byte("2026-03-05")); err != nil || d.String() != "2026-03-05" {
		t.Fatalf("scan bytes: %v %v", d, err)
	}
	if err := d.Scan(time.Date(2026, 3, 6, 15, 0, 0, 0, time.UTC)); err != nil || d.String() != "2026-03-06" {
		t.Fatalf("scan time: %v %v", d, err)
	}
	if err := d.Scan(nil); err != nil || !d.IsEmpty() {
		t.Fatalf("scan nil: %v %v", d, err)
	}
	if err := d.Scan(42); err == nil {
		t.Fatalf("expected error for int")
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 0}).Validate(); err != nil {
		t.Fatalf("expected ok for zero, got %v", err)
	}
	if err := (Money{Cents: -1}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestNewEventValidate(t *testing.T) {
	good := NewEvent{Date: NewDate(2026, 5, 1), Title: "Cake tasting", TimeStart: "10:00", Category: EventAppointment}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		mut  func(*NewEvent)
		want error
	}{
		{"empty title", func(e *NewEvent) { e.Title = "  " }, ErrEmptyTitle},
		{"bad time", func(e *NewEvent) { e.TimeEnd = "25:00" }, ErrInvalidTime},
		{"unknown category", func(e *NewEvent) { e.Category = "party" }, ErrUnknownCategory},
	}
	for _, tc := range cases {
		e := good
		tc.mut(&e)
		if err := e.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if err := (NewEvent{Title: "x", Category: EventTravel}).Validate(); err == nil {
		t.Fatalf("expected error for zero date")
	}
}

func TestEventPatchApply(t *testing.T) {
	title := "Final fitting"
	unset := ""
	e := Event{ID: "1", Title: "Fitting", TimeStart: "09:00", Category: EventAppointment}
	got := EventPatch{Title: &title, TimeStart: &unset}.Apply(e)
	if got.Title != title || got.TimeStart != "" || got.Category != EventAppointment {
		t.Fatalf("unexpected patch result: %+v", got)
	}
}

func TestNewExpenseValidate(t *testing.T) {
	good := NewExpense{Category: BudgetVenueCatering, VendorName: "Villa", Amount: FromMajor(100)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []NewExpense{
		{Category: "cake", VendorName: "Villa", Amount: FromMajor(1)},
		{Category: BudgetVenueCatering, VendorName: " ", Amount: FromMajor(1)},
		{Category: BudgetVenueCatering, VendorName: "Villa", Amount: Money{Cents: -5}},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestExpensePatchApply(t *testing.T) {
	paid := true
	amount := FromMajor(70)
	day := NewDate(2026, 4, 2)
	e := Expense{ID: "x", VendorName: "Florist", Amount: FromMajor(50)}
	got := ExpensePatch{IsPaid: &paid, Amount: &amount, Date: &day}.Apply(e)
	if !got.IsPaid || got.Amount != amount || got.Date == nil || got.Date.String() != "2026-04-02" {
		t.Fatalf("unexpected patch result: %+v", got)
	}
	if e.IsPaid {
		t.Fatalf("apply must not mutate its input")
	}
}

func TestSessionValid(t *testing.T) {
	if !UnresolvedSession().Valid() {
		t.Fatalf("placeholder must be valid")
	}
	s := Authenticated(Membership{CoupleID: "c1", UserID: "u1", DisplayName: "Ana"})
	if !s.Valid() || !s.IsAuthenticated {
		t.Fatalf("expected authenticated session, got %+v", s)
	}
	if (Session{IsAuthenticated: true, CoupleID: "c1"}).Valid() {
		t.Fatalf("missing display name must be invalid")
	}
	if (Session{CoupleID: "c1", DisplayName: "Ana"}).Valid() {
		t.Fatalf("tenant without authentication must be invalid")
	}
}

func TestAuthenticationError(t *testing.T) {
	cause := errors.New("invalid login credentials")
	var err error = &AuthenticationError{Message: cause.Error(), Err: cause}
	var ae *AuthenticationError
	if !errors.As(err, &ae) || ae.Message != "invalid login credentials" {
		t.Fatalf("expected AuthenticationError, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause")
	}
}
