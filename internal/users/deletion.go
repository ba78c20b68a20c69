// Package users implements the user administration flows: deciding how a
// user's data is disposed of on deletion, changing global roles and projecting
// the user and project lists those flows need.
package users

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ConfirmationPhrase must be typed, surrounding whitespace aside, to delete a
// user together with all of their data.
const ConfirmationPhrase = "delete all data"

var (
	// ErrWrongMode is returned when input is given for a mode that is not selected.
	ErrWrongMode = errors.New("input does not belong to the selected deletion mode")
	// ErrNotReady is returned when a deletion is submitted before it is valid.
	ErrNotReady = errors.New("deletion request is incomplete")
	// ErrSubmitting is returned while a previous submission is outstanding.
	ErrSubmitting = errors.New("deletion request is already being submitted")
	// ErrClosed is returned once a deletion was submitted successfully or abandoned.
	ErrClosed = errors.New("deletion request is closed")
)

// Mode selects what happens to the data owned by the user being deleted.
type Mode string

const (
	ModeNone     Mode = ""
	ModeTransfer Mode = "transfer"
	ModeConfirm  Mode = "confirm"
)

// Choice is the mode-specific input of a deletion: Transfer or Confirm.
type Choice interface {
	Mode() Mode
}

// Transfer moves the user's data to ProjectID before the user is deleted.
type Transfer struct {
	ProjectID *uuid.UUID
}

// Mode implements Choice.
func (Transfer) Mode() Mode { return ModeTransfer }

// Confirm deletes the user's data along with the user. Text is the raw
// confirmation typed by the operator.
type Confirm struct {
	Text string
}

// Mode implements Choice.
func (Confirm) Mode() Mode { return ModeConfirm }

// IsValid reports whether c may be submitted: a Transfer needs a project and
// a Confirm needs the exact confirmation phrase. Matching is case-sensitive
// and only leading and trailing whitespace is ignored.
func IsValid(c Choice) bool {
	switch v := c.(type) {
	case Transfer:
		return v.ProjectID != nil
	case Confirm:
		return strings.TrimSpace(v.Text) == ConfirmationPhrase
	default:
		return false
	}
}

// DeletePayload is the request sent to delete a user. TransferID is omitted
// entirely when the user's data is deleted.
type DeletePayload struct {
	ID         uuid.UUID  `json:"id"`
	TransferID *uuid.UUID `json:"transferId,omitempty"`
}

// PayloadFor builds the payload for deleting target with choice.
func PayloadFor(target uuid.UUID, c Choice) (DeletePayload, error) {
	if !IsValid(c) {
		return DeletePayload{}, ErrNotReady
	}
	p := DeletePayload{ID: target}
	if t, ok := c.(Transfer); ok {
		id := *t.ProjectID
		p.TransferID = &id
	}
	return p, nil
}

// State is the lifecycle position of a Deletion.
type State string

const (
	StateOpen       State = "open"
	StateSubmitting State = "submitting"
	StateSubmitted  State = "submitted"
	StateAbandoned  State = "abandoned"
)

// DeleteFunc performs the deletion described by the payload.
type DeleteFunc func(ctx context.Context, p DeletePayload) error

// Deletion holds the transient decision made while deleting one user. It is
// safe for concurrent use; the lock is not held while DeleteFunc runs.
type Deletion struct {
	mu     sync.Mutex
	target uuid.UUID
	choice Choice
	state  State
}

// NewDeletion starts a deletion of target with no mode selected.
func NewDeletion(target uuid.UUID) *Deletion {
	return &Deletion{target: target, state: StateOpen}
}

// Target returns the id of the user being deleted.
func (d *Deletion) Target() uuid.UUID {
	return d.target
}

// State returns the current lifecycle state.
func (d *Deletion) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Mode returns the selected mode, or ModeNone.
func (d *Deletion) Mode() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.choice == nil {
		return ModeNone
	}
	return d.choice.Mode()
}

// Choice returns the current mode-specific input, or nil when no mode is selected.
func (d *Deletion) Choice() Choice {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.choice
}

// SelectMode switches to mode. Input given for the other mode is discarded;
// reselecting the current mode keeps its input.
func (d *Deletion) SelectMode(mode Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.editable(); err != nil {
		return err
	}
	if d.choice != nil && d.choice.Mode() == mode {
		return nil
	}
	switch mode {
	case ModeTransfer:
		d.choice = Transfer{}
	case ModeConfirm:
		d.choice = Confirm{}
	case ModeNone:
		d.choice = nil
	default:
		return ErrWrongMode
	}
	return nil
}

// SetTransferProject selects the project receiving the user's data.
func (d *Deletion) SetTransferProject(projectID uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.editable(); err != nil {
		return err
	}
	if _, ok := d.choice.(Transfer); !ok {
		return ErrWrongMode
	}
	d.choice = Transfer{ProjectID: &projectID}
	return nil
}

// SetConfirmationText stores the confirmation exactly as typed.
func (d *Deletion) SetConfirmationText(text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.editable(); err != nil {
		return err
	}
	if _, ok := d.choice.(Confirm); !ok {
		return ErrWrongMode
	}
	d.choice = Confirm{Text: text}
	return nil
}

// IsValid reports whether the deletion can be submitted right now.
func (d *Deletion) IsValid() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state == StateOpen && IsValid(d.choice)
}

// Payload returns the request body for the current decision.
func (d *Deletion) Payload() (DeletePayload, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return PayloadFor(d.target, d.choice)
}

// Submit hands the payload to fn. While fn runs every other Submit and edit
// fails with ErrSubmitting. When fn fails the decision is kept so it can be
// submitted again; when it succeeds the deletion is closed.
func (d *Deletion) Submit(ctx context.Context, fn DeleteFunc) error {
	d.mu.Lock()
	if err := d.editable(); err != nil {
		d.mu.Unlock()
		return err
	}
	payload, err := PayloadFor(d.target, d.choice)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	d.state = StateSubmitting
	d.mu.Unlock()

	err = fn(ctx, payload)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.state = StateOpen
		return err
	}
	d.state = StateSubmitted
	return nil
}

// Abandon discards the decision. It has no effect on a submitted deletion and
// fails while a submission is outstanding.
func (d *Deletion) Abandon() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case StateSubmitting:
		return ErrSubmitting
	case StateSubmitted:
		return ErrClosed
	}
	d.choice = nil
	d.state = StateAbandoned
	return nil
}

func (d *Deletion) editable() error {
	switch d.state {
	case StateSubmitting:
		return ErrSubmitting
	case StateSubmitted, StateAbandoned:
		return ErrClosed
	}
	return nil
}
