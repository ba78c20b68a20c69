package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
)

// Writer renders toasts on a terminal. The recipient is ignored: whoever reads
// the terminal is the recipient.
type Writer struct {
	mu     sync.Mutex
	out    io.Writer
	styles map[ToastType]lipgloss.Style
}

// NewWriter creates a Writer that colours output when out is a terminal.
func NewWriter(out io.Writer) *Writer {
	r := lipgloss.NewRenderer(out)
	return &Writer{
		out: out,
		styles: map[ToastType]lipgloss.Style{
			ToastSuccess: r.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
			ToastError:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
			ToastInfo:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("4")),
		},
	}
}

// ShowToast implements Sink.
func (w *Writer) ShowToast(_ context.Context, _ uuid.UUID, t Toast) {
	w.mu.Lock()
	defer w.mu.Unlock()

	title := w.styles[t.Type].Render(t.Title)
	if t.Message == "" {
		fmt.Fprintln(w.out, title)
		return
	}
	fmt.Fprintf(w.out, "%s: %s\n", title, t.Message)
}

// ShowError implements Sink.
func (w *Writer) ShowError(ctx context.Context, recipient uuid.UUID, title string, err error) {
	w.ShowToast(ctx, recipient, ErrorToast(title, err))
}
