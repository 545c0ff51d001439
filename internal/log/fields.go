package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldYear        = "year"
	FieldMonth       = "month"
	FieldUnitID      = "unit_id"
	FieldDueID       = "due_id"
	FieldChargeID    = "charge_id"
	FieldCategory    = "category"
	FieldAmountCents = "amount_cents"
	FieldBucket      = "bucket"
	FieldRef         = "ref"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentLedger   = "ledger"
	ComponentStorage  = "storage"
	ComponentBlob     = "blob"
	ComponentWorkflow = "workflow"
	ComponentAMQP     = "amqp"
	ComponentSweeper  = "sweeper"
	ComponentSession  = "session"
	ComponentSecurity = "security"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpDelete   = "delete"
	OpList     = "list"
	OpUpload   = "upload"
	OpSweep    = "sweep"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
