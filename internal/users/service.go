package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/daap14/useradmin/internal/auth"
	"github.com/daap14/useradmin/internal/config"
	"github.com/daap14/useradmin/internal/inflight"
	"github.com/daap14/useradmin/internal/metrics"
	"github.com/daap14/useradmin/internal/notify"
	"github.com/daap14/useradmin/internal/project"
	"github.com/daap14/useradmin/internal/rbac"
)

var (
	ErrCannotDeleteSelf        = errors.New("users cannot delete themselves")
	ErrCannotDeleteOwner       = errors.New("the instance owner cannot be deleted")
	ErrTransferProjectNotFound = errors.New("transfer project not found")
	ErrTransferToOwnProject    = errors.New("cannot transfer data to the personal project being deleted")
	ErrInvalidRole             = errors.New("role cannot be assigned")
	ErrFeatureDisabled         = errors.New("assigning this role requires the advanced permissions feature")
	ErrCannotChangeOwnerRole   = errors.New("the instance owner's role cannot be changed")
	ErrCannotChangeOwnRole     = errors.New("users cannot change their own role")
)

// errInternal replaces store errors in toasts; the details stay in the log.
var errInternal = errors.New("an internal error occurred")

// UserStore is the subset of auth.UserRepository the service writes through.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*auth.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role rbac.Role) (*auth.User, error)
	Delete(ctx context.Context, id uuid.UUID, transferID *uuid.UUID) error
}

// ProjectStore looks up transfer targets.
type ProjectStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*project.Project, error)
}

// Service applies deletions and role changes requested by an authenticated actor.
type Service struct {
	users    UserStore
	projects ProjectStore
	guard    inflight.Guard
	sink     notify.Sink
	notifier *RoleChangeNotifier
	metrics  *metrics.Metrics
	features config.Features
}

// NewService creates a Service.
func NewService(
	users UserStore,
	projects ProjectStore,
	guard inflight.Guard,
	sink notify.Sink,
	m *metrics.Metrics,
	features config.Features,
) *Service {
	return &Service{
		users:    users,
		projects: projects,
		guard:    guard,
		sink:     sink,
		notifier: NewRoleChangeNotifier(sink),
		metrics:  m,
		features: features,
	}
}

// DeleteUser deletes the user named by p. With a TransferID the user's
// personal project resources move to that project first; without one they
// are deleted with the user.
func (s *Service) DeleteUser(ctx context.Context, actor *auth.Identity, p DeletePayload) error {
	mode := ModeConfirm
	if p.TransferID != nil {
		mode = ModeTransfer
	}

	target, err := s.checkDelete(ctx, actor, p)
	if err != nil {
		s.countDeletion(mode, err)
		return err
	}

	release, err := s.guard.Acquire(ctx, lockKey(target.ID))
	if err != nil {
		s.countDeletion(mode, err)
		return err
	}
	defer release()

	if err := s.users.Delete(ctx, target.ID, p.TransferID); err != nil {
		s.countDeletion(mode, err)
		if errors.Is(err, auth.ErrTransferTargetNotFound) {
			return ErrTransferProjectNotFound
		}
		if errors.Is(err, auth.ErrUserNotFound) {
			return err
		}
		slog.Error("failed to delete user", "userId", target.ID, "mode", mode, "actorId", actor.UserID, "error", err)
		s.sink.ShowError(ctx, actor.UserID, "Could not delete user", errInternal)
		return fmt.Errorf("deleting user: %w", err)
	}

	s.countDeletion(mode, nil)
	slog.Info("user deleted", "userId", target.ID, "email", target.Email, "mode", mode, "actorId", actor.UserID)
	s.sink.ShowToast(ctx, actor.UserID, notify.Toast{
		Type:    notify.ToastSuccess,
		Title:   "User deleted",
		Message: fmt.Sprintf("%s has been deleted", target.FullName()),
	})
	return nil
}

func (s *Service) checkDelete(ctx context.Context, actor *auth.Identity, p DeletePayload) (*auth.User, error) {
	if p.ID == actor.UserID {
		return nil, ErrCannotDeleteSelf
	}
	target, err := s.users.GetByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if target.IsOwner() {
		return nil, ErrCannotDeleteOwner
	}
	if p.TransferID == nil {
		return target, nil
	}

	dest, err := s.projects.GetByID(ctx, *p.TransferID)
	if err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			return nil, ErrTransferProjectNotFound
		}
		return nil, err
	}
	if dest.IsPersonalOf(target.ID) {
		return nil, ErrTransferToOwnProject
	}
	return target, nil
}

// UpdateGlobalRole gives the user named by p the requested role and announces
// it to the actor.
func (s *Service) UpdateGlobalRole(ctx context.Context, actor *auth.Identity, p RoleChangePayload) (*auth.User, error) {
	target, err := s.checkRoleChange(ctx, actor, p)
	if err != nil {
		s.countRoleChange(p.NewRoleName, err)
		return nil, err
	}

	release, err := s.guard.Acquire(ctx, lockKey(target.ID))
	if err != nil {
		s.countRoleChange(p.NewRoleName, err)
		return nil, err
	}
	defer release()

	updated, err := s.users.UpdateRole(ctx, target.ID, p.NewRoleName)
	if err != nil {
		s.countRoleChange(p.NewRoleName, err)
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, err
		}
		slog.Error("failed to update user role", "userId", target.ID, "role", p.NewRoleName, "actorId", actor.UserID, "error", err)
		s.sink.ShowError(ctx, actor.UserID, "Could not update user role", errInternal)
		return nil, fmt.Errorf("updating role: %w", err)
	}

	s.countRoleChange(p.NewRoleName, nil)
	slog.Info("user role updated", "userId", updated.ID, "role", updated.Role, "actorId", actor.UserID)
	s.notifier.OnRoleChanged(ctx, actor.UserID, updated, p.NewRoleName)
	return updated, nil
}

func (s *Service) checkRoleChange(ctx context.Context, actor *auth.Identity, p RoleChangePayload) (*auth.User, error) {
	if !rbac.IsAssignable(p.NewRoleName) {
		return nil, ErrInvalidRole
	}
	if p.NewRoleName == rbac.RoleAdmin && !s.features.AdvancedPermissions {
		return nil, ErrFeatureDisabled
	}
	if p.ID == actor.UserID {
		return nil, ErrCannotChangeOwnRole
	}
	target, err := s.users.GetByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if target.IsOwner() {
		return nil, ErrCannotChangeOwnerRole
	}
	return target, nil
}

func (s *Service) countDeletion(mode Mode, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.UserDeletions.WithLabelValues(string(mode), outcome(err)).Inc()
}

func (s *Service) countRoleChange(role rbac.Role, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RoleChanges.WithLabelValues(string(role), outcome(err)).Inc()
}

// outcome classifies err for metric labels: caller mistakes are rejections,
// everything else is a failure.
func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrCannotDeleteSelf),
		errors.Is(err, ErrCannotDeleteOwner),
		errors.Is(err, ErrTransferProjectNotFound),
		errors.Is(err, ErrTransferToOwnProject),
		errors.Is(err, ErrInvalidRole),
		errors.Is(err, ErrFeatureDisabled),
		errors.Is(err, ErrCannotChangeOwnerRole),
		errors.Is(err, ErrCannotChangeOwnRole),
		errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, auth.ErrTransferTargetNotFound),
		errors.Is(err, inflight.ErrInFlight):
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeFailure
}

func lockKey(userID uuid.UUID) string {
	return "user:" + userID.String()
}
