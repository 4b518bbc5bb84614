// Package lifecycle holds the status transition rules for issues. It is a
// pure authority table over the actor's role and the requested status; the
// store performs the actual write.
package lifecycle

import (
	"civicgrid-be/apperr"
	"civicgrid-be/models"
)

// Actor identifies who is requesting an operation.
type Actor struct {
	UserID  string
	IsStaff bool
}

// Role is the actor's relationship to a specific issue.
type Role int

const (
	// RoleNone has no mutation rights.
	RoleNone Role = iota
	// RoleOwner is the reporting user of the issue.
	RoleOwner
	// RoleStaff may transition any issue to any status.
	RoleStaff
)

// RoleFor resolves the actor's role on an issue. Staff outranks ownership;
// an issue whose reporter was removed has no owner.
func RoleFor(a Actor, issue *models.Issue) Role {
	if a.IsStaff {
		return RoleStaff
	}
	if issue.OwnedBy(a.UserID) {
		return RoleOwner
	}
	return RoleNone
}

// Authorize checks whether the role may set an issue to target.
//
// Owners may file as Reported or flag work as In Progress (which also lets
// them dispute a Resolved marking by reverting it), but may never self-mark
// Resolved. Staff may set any status. Everyone else is read-only.
func Authorize(role Role, target models.IssueStatus) error {
	switch role {
	case RoleStaff:
		return nil
	case RoleOwner:
		if target == models.StatusReported || target == models.StatusInProgress {
			return nil
		}
		return apperr.ErrForbidden
	default:
		return apperr.ErrForbidden
	}
}

// CanDelete reports whether the role may delete the issue. Only the owning
// reporter may; there is no staff deletion path.
func CanDelete(role Role) bool {
	return role == RoleOwner
}
