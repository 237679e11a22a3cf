package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"

	FieldContactID     = "contact_id"
	FieldTransactionID = "transaction_id"
	FieldContactType   = "contact_type"
	FieldAmount        = "amount"
	FieldRemovedCount  = "removed_transactions"
	FieldFile          = "file"
	FieldEvent         = "event"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentStorage   = "storage"
	ComponentContacts  = "contacts"
	ComponentLedger    = "ledger"
	ComponentReports   = "reports"
	ComponentReceipts  = "receipts"
	ComponentEvents    = "events"
	ComponentCache     = "cache"
	ComponentRateLimit = "rate_limit"
)
