package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tgienger/taskboard/internal/models"
	"github.com/tgienger/taskboard/internal/perrors"
)

func TestRequire(t *testing.T) {
	admin := &models.User{ID: 1, Role: models.RoleAdmin}
	member := &models.User{ID: 2, Role: models.RoleMember}
	other := &models.User{ID: 3, Role: models.RoleMember}

	assigned := &models.Task{ID: 9, AssigneeID: &member.ID}
	unassigned := &models.Task{ID: 10}

	tests := []struct {
		name  string
		actor *models.User
		preds []Predicate
		check func(error) bool
	}{
		{"admin manages projects", admin, []Predicate{CanManageProjects}, nil},
		{"member cannot manage projects", member, []Predicate{CanManageProjects}, perrors.IsPermission},
		{"nil actor", nil, []Predicate{CanManageProjects}, perrors.IsUnauthorized},
		{"member cannot create task", member, []Predicate{CanCreateTask}, perrors.IsPermission},
		{"member cannot delete task", member, []Predicate{CanDeleteTask}, perrors.IsPermission},
		{"admin updates any task", admin, []Predicate{CanUpdateTask(unassigned)}, nil},
		{"assignee updates task", member, []Predicate{CanUpdateTask(assigned)}, nil},
		{"non-assignee rejected", other, []Predicate{CanUpdateTask(assigned)}, perrors.IsPermission},
		{"unassigned task rejects members", member, []Predicate{CanUpdateTask(unassigned)}, perrors.IsPermission},
		{"self", member, []Predicate{IsSelfOrAdmin(member.ID)}, nil},
		{"not self", other, []Predicate{IsSelfOrAdmin(member.ID)}, perrors.IsPermission},
		{"no predicates fails closed", admin, nil, perrors.IsPermission},
		{"nil predicate fails closed", admin, []Predicate{nil}, perrors.IsPermission},
		{"all must hold", admin, []Predicate{CanManageUsers, IsSelfOrAdmin(99), CanUpdateTask(nil)}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Require(tt.actor, tt.preds...)
			if tt.check == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, tt.check(err), "got %v", err)
		})
	}
}

func TestPrivilegeFollowsRole(t *testing.T) {
	u := &models.User{ID: 5, Role: models.RoleAdmin}
	assert.NoError(t, Require(u, CanManageProjects))

	u.Role = models.RoleMember
	assert.True(t, perrors.IsPermission(Require(u, CanManageProjects)))
}
