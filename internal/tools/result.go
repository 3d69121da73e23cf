package tools

// Result statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Error codes returned to the model inside a Result. These are in-band
// signals the model can react to, not Go errors.
const (
	CodeInvalidArgument = "invalid_argument"
	CodeUnauthorized    = "unauthorized"
	CodeInternal        = "internal"
)

// Result is the envelope every tool returns. Failures are reported
// in-band with a nil Go error so the model sees the problem and can
// retry with corrected arguments instead of aborting the whole turn.
type Result struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  *Error `json:"error,omitempty"`
}

// Error describes a tool failure in a form the model can act on.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func succeed(data any) Result {
	return Result{Status: StatusOK, Data: data}
}

func fail(code, message string) Result {
	return Result{Status: StatusError, Error: &Error{Code: code, Message: message}}
}
