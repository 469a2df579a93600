package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

type (
	// Kind separates money coming in from money going out.
	Kind string

	// Date is a calendar day with no time component, pinned to UTC midnight.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is an immutable ledger record. ID and CreatedAt are
	// assigned by the store on append; everything else comes from intake.
	Transaction struct {
		ID         string
		OwnerID    string
		Kind       Kind
		Amount     Money
		Category   string
		Note       string
		OccurredOn Date
		CreatedAt  time.Time
	}

	// TransactionInput is the pre-append shape of a Transaction.
	TransactionInput struct {
		OwnerID    string
		Kind       Kind
		Amount     Money
		Category   string
		Note       string
		OccurredOn Date
	}
)

var (
	ErrUnauthenticated = errors.New("no authenticated owner")
	ErrInvalidKind     = errors.New("invalid transaction kind")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrMissingCategory = errors.New("missing category")
	ErrMissingDate     = errors.New("missing or malformed date")

	ErrStoreUnavailable = errors.New("store unavailable")
	ErrPermissionDenied = errors.New("permission denied")
)

const dateLayout = "2006-01-02"

// NewDate creates a new Date from year, month, day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrMissingDate
	}
	return Date{Time: t.UTC()}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrMissingDate
	}
	return nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// MonthBounds returns the first and last calendar day of the given month.
// Day zero of the following month normalizes to the last day of this one,
// which keeps leap-year February correct.
func MonthBounds(year int, month time.Month) (Date, Date) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
	return Date{Time: first}, Date{Time: last}
}

func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	}
	return ErrInvalidKind
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate checks the intake preconditions. Category membership against the
// kind's enumerated set is deliberately not checked here; the core accepts
// any non-empty category string and leaves the strict rule to presentation.
func (in TransactionInput) Validate() error {
	if strings.TrimSpace(in.OwnerID) == "" {
		return ErrUnauthenticated
	}
	if err := in.Kind.Validate(); err != nil {
		return err
	}
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(in.Category) == "" {
		return ErrMissingCategory
	}
	if err := in.OccurredOn.Validate(); err != nil {
		return err
	}
	return nil
}
