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
	FieldCategory   = "category"
	FieldPeriod     = "period"
	FieldAmount     = "amount"
	FieldPredicted  = "predicted"
	FieldBudget     = "budget"
	FieldCount      = "count"
	FieldHorizon    = "horizon"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentStorage  = "storage"
	ComponentReport   = "report"
	ComponentImport   = "import"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentForecast = "forecast"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpList     = "list"
	OpImport   = "import"
	OpSummary  = "summary"
	OpPredict  = "predict"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
