package core

import (
	"errors"
	"testing"
	"time"
)

func TestKindValidate(t *testing.T) {
	if err := Income.Validate(); err != nil {
		t.Fatalf("income: %v", err)
	}
	if err := Expense.Validate(); err != nil {
		t.Fatalf("expense: %v", err)
	}
	if err := Kind("transfer").Validate(); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatalf("leap day should parse: %v", err)
	}
	if d.String() != "2024-02-29" {
		t.Fatalf("round trip mismatch: %s", d)
	}

	bads := []string{"", "2024-13-01", "2024-02-30", "01/02/2024", "yesterday"}
	for _, s := range bads {
		if _, err := ParseDate(s); !errors.Is(err, ErrMissingDate) {
			t.Fatalf("%q: expected ErrMissingDate, got %v", s, err)
		}
	}
}

func TestMonthBounds(t *testing.T) {
	cases := []struct {
		year        int
		month       time.Month
		first, last string
	}{
		{2024, time.January, "2024-01-01", "2024-01-31"},
		{2024, time.February, "2024-02-01", "2024-02-29"}, // leap year
		{2025, time.February, "2025-02-01", "2025-02-28"},
		{2024, time.April, "2024-04-01", "2024-04-30"},
		{2024, time.December, "2024-12-01", "2024-12-31"},
	}
	for _, tc := range cases {
		first, last := MonthBounds(tc.year, tc.month)
		if first.String() != tc.first || last.String() != tc.last {
			t.Errorf("%d-%d: got [%s, %s], want [%s, %s]",
				tc.year, tc.month, first, last, tc.first, tc.last)
		}
	}
}

func TestTransactionInputValidate(t *testing.T) {
	good := TransactionInput{
		OwnerID:    "owner-1",
		Kind:       Expense,
		Amount:     Money{Cents: 1500},
		Category:   "food",
		OccurredOn: NewDate(2024, time.January, 5),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*TransactionInput)
		want   error
	}{
		{"empty owner", func(in *TransactionInput) { in.OwnerID = "" }, ErrUnauthenticated},
		{"blank owner", func(in *TransactionInput) { in.OwnerID = "   " }, ErrUnauthenticated},
		{"bad kind", func(in *TransactionInput) { in.Kind = "transfer" }, ErrInvalidKind},
		{"zero amount", func(in *TransactionInput) { in.Amount = Money{} }, ErrInvalidAmount},
		{"negative amount", func(in *TransactionInput) { in.Amount = Money{Cents: -100} }, ErrInvalidAmount},
		{"empty category", func(in *TransactionInput) { in.Category = "" }, ErrMissingCategory},
		{"zero date", func(in *TransactionInput) { in.OccurredOn = Date{} }, ErrMissingDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := good
			tc.mutate(&in)
			if err := in.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestTransactionInputValidatePermissiveCategory(t *testing.T) {
	// The category set is a presentation concern; intake only requires a
	// non-empty string, so a category from the wrong kind still passes.
	in := TransactionInput{
		OwnerID:    "owner-1",
		Kind:       Income,
		Amount:     Money{Cents: 100},
		Category:   "food", // expense category on an income record
		OccurredOn: NewDate(2024, time.March, 1),
	}
	if err := in.Validate(); err != nil {
		t.Fatalf("unknown category must be accepted, got %v", err)
	}
	if KnownCategory(Income, "food") {
		t.Fatal("food should not be a known income category")
	}
}
