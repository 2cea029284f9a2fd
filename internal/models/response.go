// Package models defines the API response envelope for admin and error
// responses.
package models

// APIStatus values for the response envelope.
const (
	APIStatusOK    = "ok"
	APIStatusError = "error"
)

// APIResponse is the envelope for admin endpoints and error replies. The
// three flow operations return their DTOs raw, since a machine channel
// adapter consumes them.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success creates a successful API response with result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: APIStatusOK, Result: result}
}

// SuccessWithMessage creates a successful API response with a message and
// optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: APIStatusOK, Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: APIStatusError, Message: message}
}
