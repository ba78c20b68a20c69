package project

import (
	"time"

	"github.com/google/uuid"
)

// Type distinguishes a user's own project from a shared one.
type Type string

const (
	TypePersonal Type = "personal"
	TypeTeam     Type = "team"
)

// Project represents a row in the projects table.
type Project struct {
	ID        uuid.UUID
	Name      string
	Type      Type
	OwnerID   *uuid.UUID // set only for personal projects
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsPersonalOf reports whether p is the personal project of the given user.
func (p *Project) IsPersonalOf(userID uuid.UUID) bool {
	return p.Type == TypePersonal && p.OwnerID != nil && *p.OwnerID == userID
}

// Owner identifies a user that still needs a personal project.
type Owner struct {
	ID        uuid.UUID
	Email     string
	FirstName string
	LastName  string
}

// PersonalProjectName builds the display name of an owner's personal project,
// e.g. "Ada Lovelace <ada@example.com>".
func PersonalProjectName(o Owner) string {
	name := o.FirstName
	if o.LastName != "" {
		if name != "" {
			name += " "
		}
		name += o.LastName
	}
	if name == "" {
		return "<" + o.Email + ">"
	}
	return name + " <" + o.Email + ">"
}
