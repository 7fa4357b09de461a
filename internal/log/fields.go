package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldClientIP     = "client_ip"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldQuery        = "query"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldUserAgent    = "user_agent"
	FieldReferer      = "referer"
	FieldSuccess      = "success"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldPeriodMode   = "period_mode"
	FieldPeriodStart  = "period_start"
	FieldPeriodEnd    = "period_end"
	FieldBusinessUnit = "business_unit"
	FieldRecordCount  = "record_count"
	FieldSkippedCount = "skipped_count"
	FieldStale        = "stale"
	FieldCode         = "code"
	FieldReason       = "reason"
	FieldBackend      = "backend"
	FieldUser         = "user"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentReport    = "report"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentPostgres  = "postgres"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
	ComponentSession   = "session"
	ComponentExport    = "export"
)

// Operations defines standard operation names
const (
	OpRead     = "read"
	OpList     = "list"
	OpUpsert   = "upsert"
	OpSync     = "sync"
	OpBuild    = "build"
	OpExport   = "export"
	OpLogin    = "login"
	OpLogout   = "logout"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithStale marks whether the data behind the entry is a fallback copy.
func (f LogFields) WithStale(stale bool) LogFields {
	f[FieldStale] = stale
	return f
}

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

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithReport adds the reporting window and unit selection.
func (f LogFields) WithReport(mode, start, end, unit string) LogFields {
	f[FieldPeriodMode] = mode
	f[FieldPeriodStart] = start
	f[FieldPeriodEnd] = end
	f[FieldBusinessUnit] = unit
	return f
}

// WithCounts adds how many records were read and how many were skipped.
func (f LogFields) WithCounts(records, skipped int) LogFields {
	f[FieldRecordCount] = records
	f[FieldSkippedCount] = skipped
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	f[FieldReferer] = referer
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
