// Package policy holds the fixed access rules for projects, audit and users.
// Every function is pure: decisions depend only on the actor and the
// project passed in.
package policy

import "projecthub/internal/models"

// Actor is the authenticated identity performing a request.
type Actor struct {
	ID    string
	Email string
	Role  models.UserRole
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// Scope is the set of project fields an actor may change.
type Scope int

const (
	ScopeDenied Scope = iota
	ScopeStatusOnly
	ScopeFull
)

func (s Scope) String() string {
	switch s {
	case ScopeFull:
		return "FULL"
	case ScopeStatusOnly:
		return "STATUS_ONLY"
	default:
		return "DENIED"
	}
}

// Visibility describes which projects an actor can read. Stores translate
// it into a query; Allows evaluates it against a loaded project.
type Visibility struct {
	All     bool
	ActorID string
}

func VisibilityFor(actor Actor) Visibility {
	if actor.IsAdmin() {
		return Visibility{All: true}
	}
	return Visibility{ActorID: actor.ID}
}

func (v Visibility) Allows(p *models.Project) bool {
	if v.All {
		return true
	}
	return p.OwnerID == v.ActorID || p.HasMember(v.ActorID)
}

// WriteScope: admins and the owner get full control, assigned members may
// only move the status, everyone else is denied.
func WriteScope(actor Actor, p *models.Project) Scope {
	switch {
	case actor.IsAdmin():
		return ScopeFull
	case p.OwnerID == actor.ID:
		return ScopeFull
	case p.HasMember(actor.ID):
		return ScopeStatusOnly
	default:
		return ScopeDenied
	}
}

// CanDelete ignores ownership.
func CanDelete(actor Actor) bool { return actor.IsAdmin() }

func CanAssignMembers(actor Actor) bool { return actor.IsAdmin() }

func CanChangeRole(actor Actor) bool { return actor.IsAdmin() }

func CanReadAudit(actor Actor) bool { return actor.IsAdmin() }

func CanListUsers(actor Actor) bool { return actor.IsAdmin() }
