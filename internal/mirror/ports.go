// Package mirror defines the outbound port for the append-only transaction
// mirror the worker maintains outside the ledger.
package mirror

import (
	"context"

	"duit/internal/core"
)

// RecordWriter appends one mirrored row per ledger record. Implementations
// must tolerate duplicate deliveries; the event queue redelivers on
// handler failure.
type RecordWriter interface {
	Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
}
