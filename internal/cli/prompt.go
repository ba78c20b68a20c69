package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/google/uuid"

	"github.com/daap14/useradmin/internal/auth"
	"github.com/daap14/useradmin/internal/project"
	"github.com/daap14/useradmin/internal/users"
)

// DeletionAnswers is what the operator decided for a deletion.
type DeletionAnswers struct {
	Mode      users.Mode
	ProjectID *uuid.UUID
	Text      string
}

// Apply records the answers on d.
func (a DeletionAnswers) Apply(d *users.Deletion) error {
	if err := d.SelectMode(a.Mode); err != nil {
		return err
	}
	switch a.Mode {
	case users.ModeTransfer:
		if a.ProjectID != nil {
			return d.SetTransferProject(*a.ProjectID)
		}
	case users.ModeConfirm:
		return d.SetConfirmationText(a.Text)
	}
	return nil
}

// DeletionPrompter asks the operator how to delete target.
type DeletionPrompter interface {
	PromptDeletion(ctx context.Context, target *auth.User, candidates []project.Project) (DeletionAnswers, error)
}

// FormPrompter asks with an interactive terminal form.
type FormPrompter struct{}

// PromptDeletion implements DeletionPrompter.
func (FormPrompter) PromptDeletion(ctx context.Context, target *auth.User, candidates []project.Project) (DeletionAnswers, error) {
	mode := string(users.ModeTransfer)
	modes := []huh.Option[string]{
		huh.NewOption("Transfer their data to another project", string(users.ModeTransfer)),
		huh.NewOption("Delete their data", string(users.ModeConfirm)),
	}
	if len(candidates) == 0 {
		mode = string(users.ModeConfirm)
		modes = modes[1:]
	}

	projectOptions := make([]huh.Option[string], 0, len(candidates))
	for _, p := range candidates {
		projectOptions = append(projectOptions, huh.NewOption(fmt.Sprintf("%s (%s)", p.Name, p.Type), p.ID.String()))
	}

	var projectID, text string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("Delete %s", target.Email)).
				Description("What should happen to the data they own?").
				Options(modes...).
				Value(&mode),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Project to transfer their data to").
				Options(projectOptions...).
				Value(&projectID),
		).WithHideFunc(func() bool { return mode != string(users.ModeTransfer) }),
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Type %q to confirm", users.ConfirmationPhrase)).
				Value(&text).
				Validate(validateConfirmation),
		).WithHideFunc(func() bool { return mode != string(users.ModeConfirm) }),
	)
	if err := form.RunWithContext(ctx); err != nil {
		return DeletionAnswers{}, err
	}

	answers := DeletionAnswers{Mode: users.Mode(mode), Text: text}
	if answers.Mode == users.ModeTransfer {
		id, err := uuid.Parse(projectID)
		if err != nil {
			return DeletionAnswers{}, fmt.Errorf("invalid project selection: %w", err)
		}
		answers.ProjectID = &id
	}
	return answers, nil
}

func validateConfirmation(s string) error {
	if !users.IsValid(users.Confirm{Text: s}) {
		return errors.New("confirmation does not match")
	}
	return nil
}
