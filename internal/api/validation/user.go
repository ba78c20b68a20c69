package validation

import (
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/daap14/useradmin/internal/rbac"
)

// CreateUserRequest mirrors the fields needed for create user validation.
type CreateUserRequest struct {
	Email     string
	FirstName string
	LastName  string
	Role      string
}

// ValidateCreateUserRequest validates the fields of a create user request.
func ValidateCreateUserRequest(req CreateUserRequest) []FieldError {
	var errs []FieldError

	email := strings.TrimSpace(req.Email)
	if email == "" {
		errs = append(errs, FieldError{Field: "email", Message: "email is required"})
	} else if len(email) > 255 {
		errs = append(errs, FieldError{Field: "email", Message: "email must be at most 255 characters"})
	} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		errs = append(errs, FieldError{Field: "email", Message: "email must be a valid address"})
	}

	if len(strings.TrimSpace(req.FirstName)) > 100 {
		errs = append(errs, FieldError{Field: "firstName", Message: "firstName must be at most 100 characters"})
	}
	if len(strings.TrimSpace(req.LastName)) > 100 {
		errs = append(errs, FieldError{Field: "lastName", Message: "lastName must be at most 100 characters"})
	}

	if req.Role != "" && !rbac.IsAssignable(rbac.Role(req.Role)) {
		errs = append(errs, FieldError{Field: "role", Message: "role must be one of: global:admin, global:member"})
	}

	return errs
}

// DeleteUserRequest mirrors the optional body of a delete user request.
type DeleteUserRequest struct {
	TransferID *string
}

// ValidateDeleteUserRequest validates the optional transfer target.
func ValidateDeleteUserRequest(req DeleteUserRequest) []FieldError {
	var errs []FieldError

	if req.TransferID != nil {
		if _, err := uuid.Parse(*req.TransferID); err != nil {
			errs = append(errs, FieldError{Field: "transferId", Message: "transferId must be a valid UUID"})
		}
	}

	return errs
}

// RoleChangeRequest mirrors the fields needed for role change validation.
type RoleChangeRequest struct {
	NewRoleName string
}

// ValidateRoleChangeRequest validates the requested global role.
func ValidateRoleChangeRequest(req RoleChangeRequest) []FieldError {
	var errs []FieldError

	if req.NewRoleName == "" {
		errs = append(errs, FieldError{Field: "newRoleName", Message: "newRoleName is required"})
	} else if !rbac.IsValid(rbac.Role(req.NewRoleName)) {
		errs = append(errs, FieldError{Field: "newRoleName", Message: "newRoleName must be one of: global:owner, global:admin, global:member"})
	}

	return errs
}
