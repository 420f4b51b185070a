package errors

// ErrorResponse is the JSON envelope of every failed request.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`             // Business error code, e.g. "TOKEN_EXPIRED"
	Message   string `json:"message"`           // User-friendly error message
	Details   any    `json:"details,omitempty"` // Only outside production, never for 401/403/5xx
	RequestID string `json:"requestId,omitempty"`
}

// SuccessResponse is the JSON envelope of successful requests.
type SuccessResponse struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}
