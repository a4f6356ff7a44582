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
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldCoupleID   = "couple_id"
	FieldUserID     = "user_id"
	FieldRecordID   = "record_id"
	FieldTable      = "table"
	FieldDate       = "date"
	FieldYear       = "year"
	FieldMonth      = "month"
	FieldCount      = "count"
	FieldAmount     = "amount_cents"
	FieldCategory   = "category"
	FieldObjectPath = "object_path"
	FieldChange     = "change"
	FieldSheetsRef  = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentSession = "session"
	ComponentBudget  = "budget"
	ComponentEvents  = "events"
	ComponentPhotos  = "photos"
	ComponentStorage = "storage"
	ComponentFeed    = "feed"
	ComponentAMQP    = "amqp"
	ComponentAuth    = "auth"
	ComponentObjects = "objects"
	ComponentSheets  = "sheets"
	ComponentWorker  = "worker"
	ComponentCache   = "cache"
	ComponentBackend = "backend"
)

// Operations defines standard operation names
const (
	OpFetch     = "fetch"
	OpCreate    = "create"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpUpload    = "upload"
	OpSign      = "sign"
	OpSubscribe = "subscribe"
	OpPublish   = "publish"
	OpExport    = "export"
	OpSignIn    = "sign_in"
	OpSignOut   = "sign_out"
	OpResolve   = "resolve"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithClientIP adds client IP field
func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithTenant adds the couple and user of the acting session
func (f LogFields) WithTenant(coupleID, userID string) LogFields {
	f[FieldCoupleID] = coupleID
	if userID != "" {
		f[FieldUserID] = userID
	}
	return f
}

// WithRecord adds the table and id a write touched
func (f LogFields) WithRecord(table, id string) LogFields {
	f[FieldTable] = table
	f[FieldRecordID] = id
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
