// Package notify delivers user-visible toasts produced by administration actions.
package notify

import (
	"context"

	"github.com/google/uuid"
)

// ToastType is the severity of a toast.
type ToastType string

const (
	ToastSuccess ToastType = "success"
	ToastError   ToastType = "error"
	ToastInfo    ToastType = "info"
)

// Toast is a short notification shown to one user.
type Toast struct {
	Type    ToastType `json:"type"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
}

// ErrorToast builds the toast used to surface a failed action.
func ErrorToast(title string, err error) Toast {
	return Toast{Type: ToastError, Title: title, Message: err.Error()}
}

// Sink receives toasts addressed to a recipient. Delivery is fire-and-forget:
// implementations log failures instead of returning them.
type Sink interface {
	ShowToast(ctx context.Context, recipient uuid.UUID, t Toast)
	ShowError(ctx context.Context, recipient uuid.UUID, title string, err error)
}
