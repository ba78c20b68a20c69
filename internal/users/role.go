package users

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/daap14/useradmin/internal/auth"
	"github.com/daap14/useradmin/internal/notify"
	"github.com/daap14/useradmin/internal/rbac"
)

// ErrRoleChangeInProgress is returned when a role change for the same user is
// still outstanding.
var ErrRoleChangeInProgress = errors.New("role change already in progress")

// RoleChangePayload is the request sent to change a user's global role.
type RoleChangePayload struct {
	ID          uuid.UUID `json:"id"`
	NewRoleName rbac.Role `json:"newRoleName"`
}

// RoleChangeNotifier tells the acting user that a role change went through.
type RoleChangeNotifier struct {
	sink notify.Sink
}

// NewRoleChangeNotifier creates a RoleChangeNotifier writing to sink.
func NewRoleChangeNotifier(sink notify.Sink) *RoleChangeNotifier {
	return &RoleChangeNotifier{sink: sink}
}

// OnRoleChanged emits one success toast naming the new role. Call it only
// after the change has been stored.
func (n *RoleChangeNotifier) OnRoleChanged(ctx context.Context, recipient uuid.UUID, user *auth.User, role rbac.Role) {
	n.sink.ShowToast(ctx, recipient, RoleChangedToast(user, role))
}

// RoleChangedToast is the toast shown after user was given role.
func RoleChangedToast(user *auth.User, role rbac.Role) notify.Toast {
	return notify.Toast{
		Type:    notify.ToastSuccess,
		Title:   "User role updated",
		Message: fmt.Sprintf("%s has been successfully updated to a %s", user.FullName(), rbac.Label(role)),
	}
}

// UpdateRoleFunc stores a role change.
type UpdateRoleFunc func(ctx context.Context, p RoleChangePayload) error

// RoleChanger submits role changes on behalf of one operator. A second change
// for a user whose change is outstanding is refused.
type RoleChanger struct {
	recipient uuid.UUID
	notifier  *RoleChangeNotifier
	sink      notify.Sink

	mu      sync.Mutex
	pending map[uuid.UUID]struct{}
}

// NewRoleChanger creates a RoleChanger whose toasts are addressed to recipient.
func NewRoleChanger(recipient uuid.UUID, sink notify.Sink) *RoleChanger {
	return &RoleChanger{
		recipient: recipient,
		notifier:  NewRoleChangeNotifier(sink),
		sink:      sink,
		pending:   make(map[uuid.UUID]struct{}),
	}
}

// Change gives user the role through fn. Success is announced with a toast;
// a failure from fn is shown as an error toast and returned.
func (c *RoleChanger) Change(ctx context.Context, user *auth.User, role rbac.Role, fn UpdateRoleFunc) error {
	c.mu.Lock()
	if _, busy := c.pending[user.ID]; busy {
		c.mu.Unlock()
		return ErrRoleChangeInProgress
	}
	c.pending[user.ID] = struct{}{}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, user.ID)
		c.mu.Unlock()
	}()

	if err := fn(ctx, RoleChangePayload{ID: user.ID, NewRoleName: role}); err != nil {
		c.sink.ShowError(ctx, c.recipient, "Could not update user role", err)
		return err
	}
	c.notifier.OnRoleChanged(ctx, c.recipient, user, role)
	return nil
}
