// Package services orchestrates writes: intake validation, the append
// itself, and the created-event publication that feeds the mirror worker.
package services

import (
	"context"
	"fmt"

	"duit/internal/amqp"
	"duit/internal/core"
	"duit/internal/ledger"
	"duit/internal/log"
	"duit/internal/session"
)

// SubmitRequest is the raw intake payload. Amount and OccurredOn arrive as
// strings and are parsed here so validation errors stay in one place.
type SubmitRequest struct {
	Kind       core.Kind
	Amount     string
	Category   string
	Note       string
	OccurredOn string
}

// Intake validates and appends new records on behalf of the current owner.
// It never reads subscriptions.
type Intake struct {
	store  ledger.Store
	sess   *session.Session
	events *amqp.Client // optional; nil disables event publication
	logger *log.Logger
}

func NewIntake(store ledger.Store, sess *session.Session, events *amqp.Client, logger *log.Logger) *Intake {
	return &Intake{
		store:  store,
		sess:   sess,
		events: events,
		logger: logger.WithComponent(log.ComponentIntake),
	}
}

// Submit checks all preconditions before any write, appends on success and
// returns the new record id. Validation errors come back synchronously and
// are never retried here.
func (s *Intake) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	ownerID := s.sess.CurrentOwnerID()
	if ownerID == "" {
		return "", core.ErrUnauthenticated
	}

	if err := req.Kind.Validate(); err != nil {
		return "", err
	}
	amount, err := core.ParseMoney(req.Amount)
	if err != nil {
		return "", err
	}
	if req.Category == "" {
		return "", core.ErrMissingCategory
	}
	occurredOn, err := core.ParseDate(req.OccurredOn)
	if err != nil {
		return "", err
	}

	in := core.TransactionInput{
		OwnerID:    ownerID,
		Kind:       req.Kind,
		Amount:     amount,
		Category:   req.Category,
		Note:       req.Note,
		OccurredOn: occurredOn,
	}
	if err := in.Validate(); err != nil {
		return "", err
	}

	id, err := s.store.Append(ctx, in)
	if err != nil {
		return "", fmt.Errorf("append transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "transaction appended",
		log.FieldTransactionID, id,
		log.FieldOwnerID, ownerID,
		log.FieldKind, string(in.Kind),
		log.FieldCategory, in.Category,
		log.FieldAmountCents, in.Amount.Cents,
		log.FieldOccurredOn, in.OccurredOn.String())

	// Mirror events are best effort; the append already succeeded and the
	// caller gets the id either way.
	s.publishCreated(ctx, id, in)

	return id, nil
}

func (s *Intake) publishCreated(ctx context.Context, id string, in core.TransactionInput) {
	if s.events == nil {
		return
	}
	msg := amqp.NewTransactionCreatedMessage(core.Transaction{
		ID:         id,
		OwnerID:    in.OwnerID,
		Kind:       in.Kind,
		Amount:     in.Amount,
		Category:   in.Category,
		Note:       in.Note,
		OccurredOn: in.OccurredOn,
	})
	if err := s.events.PublishTransactionCreated(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish created event",
			log.FieldTransactionID, id,
			log.FieldError, err)
	}
}
