// Package policy decides who may do what. Every check fails closed.
package policy

import (
	"github.com/tgienger/taskboard/internal/models"
	"github.com/tgienger/taskboard/internal/perrors"
)

// Predicate is one permission rule over the acting user
type Predicate func(actor *models.User) bool

// IsAdmin allows admins only
func IsAdmin(actor *models.User) bool {
	return actor.IsAdmin()
}

// CanManageProjects covers project create, update, delete and membership
var CanManageProjects Predicate = IsAdmin

// CanCreateTask allows creating tasks
var CanCreateTask Predicate = IsAdmin

// CanDeleteTask allows deleting tasks
var CanDeleteTask Predicate = IsAdmin

// CanManageUsers covers role changes, user deletion and creating non-member accounts
var CanManageUsers Predicate = IsAdmin

// CanUpdateTask allows admins and the task's current assignee
func CanUpdateTask(t *models.Task) Predicate {
	return func(actor *models.User) bool {
		if actor.IsAdmin() {
			return true
		}
		return t != nil && t.IsAssignedTo(actor.ID)
	}
}

// IsSelfOrAdmin allows the user identified by userID or an admin
func IsSelfOrAdmin(userID int64) Predicate {
	return func(actor *models.User) bool {
		return actor.IsAdmin() || actor.ID == userID
	}
}

// Require returns Unauthorized for a nil actor and Permission unless every predicate holds
func Require(actor *models.User, preds ...Predicate) error {
	if actor == nil {
		return perrors.NewErrUnauthorized("authentication required")
	}
	if len(preds) == 0 {
		return perrors.NewErrPermission("no permission rule applies")
	}
	for _, p := range preds {
		if p == nil || !p(actor) {
			return perrors.NewErrPermission("you do not have permission to perform this action")
		}
	}
	return nil
}
