package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldError       = "error"
	FieldUID         = "uid"
	FieldCollection  = "collection"
	FieldRecordID    = "record_id"
	FieldAction      = "action"
	FieldAmount      = "amount"
	FieldCurrency    = "currency"
	FieldSheetsRange = "range"
)

// Components defines standard component names
const (
	ComponentApp    = "app"
	ComponentWorker = "worker"
)
