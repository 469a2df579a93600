package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"

	FieldOwnerID       = "owner_id"
	FieldTransactionID = "transaction_id"
	FieldKind          = "kind"
	FieldCategory      = "category"
	FieldAmountCents   = "amount_cents"
	FieldOccurredOn    = "occurred_on"
	FieldYear          = "year"
	FieldMonth         = "month"
	FieldRecords       = "records"
	FieldBackend       = "backend"
	FieldQueue         = "queue"
	FieldExchange      = "exchange"
	FieldMirrorRef     = "mirror_ref"
)

// Components defines standard component names.
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentSession = "session"
	ComponentLedger  = "ledger"
	ComponentViews   = "views"
	ComponentIntake  = "intake"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentMirror  = "mirror"
)
