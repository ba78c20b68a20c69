package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Meta holds metadata for every API response.
type Meta struct {
	RequestID string `json:"requestId"`
	Timestamp string `json:"timestamp"`
}

// ListMeta extends Meta with the number of items returned.
type ListMeta struct {
	Meta
	Total int `json:"total"`
}

// Error represents a structured API error.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Envelope is the standard API response wrapper.
type Envelope struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
	Meta  Meta   `json:"meta"`
}

// ListEnvelope is the response wrapper for list endpoints.
type ListEnvelope struct {
	Data  any      `json:"data"`
	Error *Error   `json:"error"`
	Meta  ListMeta `json:"meta"`
}

// NewMeta creates a Meta with a new UUID and current timestamp.
// If requestID is provided, it uses that instead of generating a new one.
func NewMeta(requestID string) Meta {
	if requestID == "" {
		requestID = uuid.New().String()
	}
	return Meta{
		RequestID: requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// JSON writes env with the given status code.
func JSON(w http.ResponseWriter, status int, env Envelope) {
	write(w, status, env)
}

func write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "status", status, "error", err)
	}
}

// Success writes a successful JSON response.
func Success(w http.ResponseWriter, status int, data any, requestID string) {
	JSON(w, status, Envelope{
		Data:  data,
		Error: nil,
		Meta:  NewMeta(requestID),
	})
}

// SuccessList writes a list response whose meta carries the item count.
func SuccessList(w http.ResponseWriter, status int, data any, total int, requestID string) {
	write(w, status, ListEnvelope{
		Data: data,
		Meta: ListMeta{Meta: NewMeta(requestID), Total: total},
	})
}

// NoContent writes a 204 No Content response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Err writes an error response. code is a stable machine-readable string
// (NOT_FOUND, IN_PROGRESS, ...) that clients map back to errors.
func Err(w http.ResponseWriter, status int, code string, message string, requestID string) {
	ErrWithDetails(w, status, code, message, nil, requestID)
}

// ErrWithDetails writes an error response with additional details, usually
// a list of validation.FieldError.
func ErrWithDetails(w http.ResponseWriter, status int, code string, message string, details any, requestID string) {
	JSON(w, status, Envelope{
		Error: &Error{Code: code, Message: message, Details: details},
		Meta:  NewMeta(requestID),
	})
}
