// Package sqlite is the persistent ledger backend. Appends land in a single
// transactions table; live subscriptions re-query it on every wake, so each
// push is a full snapshot straight from disk state.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"duit/internal/core"
	"duit/internal/ledger"
)

type Store struct {
	db  *sql.DB
	hub *ledger.Hub

	now   func() time.Time
	newID func() string
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{
		db:    db,
		hub:   ledger.NewHub(),
		now:   time.Now,
		newID: uuid.NewString,
	}, nil
}

// Append implements ledger.Store.
func (s *Store) Append(ctx context.Context, in core.TransactionInput) (string, error) {
	if in.OwnerID == "" {
		return "", fmt.Errorf("append without owner: %w", core.ErrPermissionDenied)
	}

	id := s.newID()
	createdAt := s.now()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, owner_id, kind, amount_cents, category, note, occurred_on, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.OwnerID, string(in.Kind), in.Amount.Cents, in.Category, in.Note,
		in.OccurredOn.String(), createdAt.UnixNano())
	if err != nil {
		return "", fmt.Errorf("%w: insert transaction: %v", core.ErrStoreUnavailable, err)
	}

	s.hub.Wake(in.OwnerID)
	return id, nil
}

// Subscribe implements ledger.Store.
func (s *Store) Subscribe(ctx context.Context, q ledger.Query) (*ledger.Subscription, error) {
	return s.hub.Subscribe(ctx, q, s.query)
}

func (s *Store) query(ctx context.Context, q ledger.Query) ([]core.Transaction, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT id, owner_id, kind, amount_cents, category, note, occurred_on, created_at
		FROM transactions WHERE owner_id = ?`)
	args = append(args, q.OwnerID)

	if q.Range != nil {
		// occurred_on is stored as YYYY-MM-DD, so lexicographic comparison
		// is calendar comparison. Bounds are inclusive.
		sb.WriteString(` AND occurred_on >= ? AND occurred_on <= ?`)
		args = append(args, q.Range.From.String(), q.Range.To.String())
	}

	switch q.Order {
	case ledger.OrderOccurredAsc:
		sb.WriteString(` ORDER BY occurred_on ASC, rowid ASC`)
	default:
		sb.WriteString(` ORDER BY created_at DESC, rowid DESC`)
	}

	if q.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query transactions: %v", core.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t          core.Transaction
			kind       string
			occurredOn string
			createdAt  int64
		)
		if err := rows.Scan(&t.ID, &t.OwnerID, &kind, &t.Amount.Cents, &t.Category, &t.Note, &occurredOn, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scan transaction: %v", core.ErrStoreUnavailable, err)
		}
		t.Kind = core.Kind(kind)
		d, err := core.ParseDate(occurredOn)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed occurred_on %q", core.ErrStoreUnavailable, occurredOn)
		}
		t.OccurredOn = d
		t.CreatedAt = time.Unix(0, createdAt).UTC()
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate transactions: %v", core.ErrStoreUnavailable, err)
	}
	return out, nil
}

// Close cancels all live subscriptions and closes the database.
func (s *Store) Close() error {
	s.hub.Close()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
