// Package worker consumes transaction created events and mirrors each
// record to the configured mirror backend.
package worker

import (
	"context"
	"fmt"
	"time"

	"duit/internal/amqp"
	"duit/internal/cache"
	"duit/internal/log"
	"duit/internal/mirror"
)

// seenCacheSize bounds the redelivery dedup window.
const (
	seenCacheSize = 4096
	seenCacheTTL  = time.Hour
)

// MirrorWorker handles created events from the queue. The message carries
// the full record payload, so the worker never reads the ledger.
type MirrorWorker struct {
	writer mirror.RecordWriter
	seen   *cache.LRU[struct{}]
	logger *log.Logger
}

func NewMirrorWorker(writer mirror.RecordWriter, logger *log.Logger) *MirrorWorker {
	return &MirrorWorker{
		writer: writer,
		seen:   cache.NewLRU[struct{}](seenCacheSize, seenCacheTTL),
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleCreated mirrors a single record. A nil writer means mirroring is
// disabled; the event is acknowledged and dropped. Errors make the queue
// redeliver, and the mirror tolerates the resulting duplicates.
func (w *MirrorWorker) HandleCreated(ctx context.Context, msg *amqp.TransactionCreatedMessage) error {
	if w.writer == nil {
		w.logger.WarnContext(ctx, "no mirror configured, dropping event",
			log.FieldTransactionID, msg.ID)
		return nil
	}

	record, err := msg.Transaction()
	if err != nil {
		return fmt.Errorf("rebuild record from message: %w", err)
	}

	// Redeliveries inside the dedup window are acknowledged without a
	// second append.
	if _, done := w.seen.Get(record.ID); done {
		w.logger.InfoContext(ctx, "record already mirrored, skipping",
			log.FieldTransactionID, record.ID)
		return nil
	}

	ref, err := w.writer.Append(ctx, record)
	if err != nil {
		return fmt.Errorf("mirror record %s: %w", record.ID, err)
	}

	w.seen.Set(record.ID, struct{}{})

	w.logger.InfoContext(ctx, "record mirrored",
		log.FieldTransactionID, record.ID,
		log.FieldOwnerID, record.OwnerID,
		log.FieldMirrorRef, ref)
	return nil
}
