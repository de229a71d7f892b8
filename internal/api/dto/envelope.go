package dto

// Envelope is the uniform response shape: every reply carries a success flag
// and a human-readable message; failures add a kind tag, successes a payload.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

// OK builds a success envelope.
func OK(message string, data any) Envelope {
	return Envelope{Success: true, Message: message, Data: data}
}

// Fail builds a failure envelope with an error kind tag.
func Fail(message, code string, details any) Envelope {
	return Envelope{Success: false, Message: message, Error: code, Details: details}
}
