package responses

// requestIDHeader is set by the request id middleware before any handler writes.
const requestIDHeader = "X-Request-Id"

// successEnvelope wraps every JSON payload under "data".
type successEnvelope struct {
	Data any `json:"data"`
}

type apiError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Details   any    `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}
