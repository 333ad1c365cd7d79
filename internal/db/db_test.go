package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/taskboard/internal/models"
	"github.com/tgienger/taskboard/internal/perrors"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func mustDate(t *testing.T, s string) models.Date {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}

type fixture struct {
	admin   *models.User
	member  *models.User
	project *models.Project
	task    *models.Task
}

func seed(t *testing.T, db *DB) fixture {
	t.Helper()
	ctx := context.Background()

	admin, err := db.CreateUser(ctx, models.User{Username: "admin", PasswordHash: "x", Role: models.RoleAdmin})
	require.NoError(t, err)
	member, err := db.CreateUser(ctx, models.User{Username: "maria", PasswordHash: "x"})
	require.NoError(t, err)

	project, err := db.CreateProject(ctx, models.Project{
		Name:      "Website",
		StartDate: mustDate(t, "2026-03-01"),
		OwnerID:   admin.ID,
		Active:    true,
	})
	require.NoError(t, err)

	task, err := db.CreateTask(ctx, models.Task{
		ProjectID:  project.ID,
		Title:      "Landing page",
		AssigneeID: &member.ID,
		CreatorID:  admin.ID,
		DueDate:    mustDate(t, "2026-03-20"),
	})
	require.NoError(t, err)

	return fixture{admin: admin, member: member, project: project, task: task}
}

func TestMigrationsApplied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := New(path)
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	status, err := NewMigrator(db).Status(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, status)
	for _, s := range status {
		assert.True(t, s.Applied, s.Name)
	}

	// New on an already migrated file is a no-op
	again, err := New(path)
	require.NoError(t, err)
	again.Close()
}

func TestMigrateDownAndUp(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	m := NewMigrator(db)

	require.NoError(t, m.Down(ctx, 1))
	status, err := m.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status[len(status)-1].Applied)
	assert.True(t, status[0].Applied)

	require.NoError(t, m.Down(ctx, 0))
	require.NoError(t, m.Up(ctx, 0))

	_, err = db.CountUsers(ctx)
	assert.NoError(t, err)
}

func TestCreateUserDuplicate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u, err := db.CreateUser(ctx, models.User{Username: "jo", PasswordHash: "x"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, u.Role)

	_, err = db.CreateUser(ctx, models.User{Username: "jo", PasswordHash: "y"})
	assert.True(t, perrors.IsConflict(err))
}

func TestGetMissing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.GetTask(ctx, 42)
	assert.True(t, perrors.IsNotFound(err))
	_, err = db.GetProject(ctx, 42)
	assert.True(t, perrors.IsNotFound(err))
	assert.True(t, perrors.IsNotFound(db.DeleteUser(ctx, 42)))
}

func TestTaskRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	f := seed(t, db)

	assert.Equal(t, models.StatePending, f.task.State)
	assert.Equal(t, models.PriorityMedium, f.task.Priority)
	assert.Equal(t, "2026-03-20", f.task.DueDate.String())
	require.NotNil(t, f.task.AssigneeID)
	assert.Equal(t, f.member.ID, *f.task.AssigneeID)

	state, assignee, err := db.GetTaskState(ctx, f.task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatePending, state)
	assert.Equal(t, f.member.ID, *assignee)

	f.task.State = models.StateInProgress
	f.task.AssigneeID = nil
	require.NoError(t, db.UpdateTask(ctx, *f.task))

	got, err := db.GetTask(ctx, f.task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateInProgress, got.State)
	assert.Nil(t, got.AssigneeID)
}

func TestListTasksFilters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	f := seed(t, db)

	_, err := db.CreateTask(ctx, models.Task{
		ProjectID: f.project.ID,
		Title:     "Write copy",
		CreatorID: f.admin.ID,
		DueDate:   mustDate(t, "2026-03-10"),
		Priority:  models.PriorityHigh,
		State:     models.StateCompleted,
	})
	require.NoError(t, err)

	all, err := db.ListTasks(ctx, TaskFilter{ProjectID: &f.project.ID})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Write copy", all[0].Title, "earliest due date first")

	tests := []struct {
		name   string
		filter TaskFilter
		want   int
	}{
		{"assignee", TaskFilter{AssigneeID: &f.member.ID}, 1},
		{"search title", TaskFilter{Search: "landing"}, 1},
		{"search none", TaskFilter{Search: "zzz"}, 0},
		{"exclude completed", TaskFilter{ExcludeCompleted: true}, 1},
		{"due range", TaskFilter{DueFrom: ptr(mustDate(t, "2026-03-15")), DueTo: ptr(mustDate(t, "2026-03-31"))}, 1},
		{"priority", TaskFilter{Priority: ptr(models.PriorityHigh)}, 1},
		{"limit", TaskFilter{Limit: 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ListTasks(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestProjectFiltersAndMembers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	f := seed(t, db)

	require.NoError(t, db.AddProjectMember(ctx, f.project.ID, f.member.ID))
	require.NoError(t, db.AddProjectMember(ctx, f.project.ID, f.member.ID))

	members, err := db.ListProjectMembers(ctx, f.project.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "maria", members[0].Username)

	mine, err := db.ListProjects(ctx, ProjectFilter{MemberID: &f.member.ID})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	inactive := false
	none, err := db.ListProjects(ctx, ProjectFilter{Active: &inactive})
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, db.RemoveProjectMember(ctx, f.project.ID, f.member.ID))
	assert.True(t, perrors.IsNotFound(db.RemoveProjectMember(ctx, f.project.ID, f.member.ID)))
}

func TestDeleteProjectCascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	f := seed(t, db)

	_, err := db.CreateComment(ctx, f.task.ID, f.member.ID, "looks good")
	require.NoError(t, err)
	_, err = db.CreateHistoryEntry(ctx, f.task.ID, f.admin.ID, "Task 'Landing page' created")
	require.NoError(t, err)
	_, err = db.CreateNotification(ctx, f.member.ID, f.task.ID, models.NotifyAssignment, "hi")
	require.NoError(t, err)

	require.NoError(t, db.DeleteProject(ctx, f.project.ID))

	for _, table := range []string{"tasks", "comments", "task_history", "notifications"} {
		var n int
		require.NoError(t, db.Get(&n, "SELECT COUNT(*) FROM "+table))
		assert.Zero(t, n, table)
	}
}

func TestDeleteAssigneeUnassigns(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	f := seed(t, db)

	require.NoError(t, db.DeleteUser(ctx, f.member.ID))

	task, err := db.GetTask(ctx, f.task.ID)
	require.NoError(t, err)
	assert.Nil(t, task.AssigneeID)
}

func TestNotifications(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	f := seed(t, db)

	id1, err := db.CreateNotification(ctx, f.member.ID, f.task.ID, models.NotifyAssignment, "one")
	require.NoError(t, err)
	_, err = db.CreateNotification(ctx, f.member.ID, f.task.ID, models.NotifyDueSoon, "two")
	require.NoError(t, err)

	n, err := db.CountUnread(ctx, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	has, err := db.HasUnread(ctx, f.member.ID, f.task.ID, models.NotifyDueSoon)
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, db.MarkRead(ctx, id1, f.member.ID))
	require.NoError(t, db.MarkRead(ctx, id1, f.member.ID))
	assert.True(t, perrors.IsNotFound(db.MarkRead(ctx, id1, f.admin.ID)))

	unread, err := db.ListNotifications(ctx, f.member.ID, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "two", unread[0].Message)

	changed, err := db.MarkAllRead(ctx, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)
	changed, err = db.MarkAllRead(ctx, f.member.ID)
	require.NoError(t, err)
	assert.Zero(t, changed)

	n, err = db.CountUnread(ctx, f.member.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSavepointRollsBackOnlyItsWrites(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	f := seed(t, db)

	boom := errors.New("boom")
	err := db.WithTx(ctx, func(tx *Tx) error {
		f.task.Title = "Renamed"
		if err := tx.UpdateTask(ctx, *f.task); err != nil {
			return err
		}
		spErr := tx.Savepoint(ctx, "audit", func() error {
			if _, err := tx.CreateHistoryEntry(ctx, f.task.ID, f.admin.ID, "lost"); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, spErr, boom)
		return nil
	})
	require.NoError(t, err)

	task, err := db.GetTask(ctx, f.task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", task.Title)

	history, err := db.ListHistory(ctx, f.task.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestWithTxRollsBack(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.CreateUser(ctx, models.User{Username: "ghost", PasswordHash: "x"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := db.CountUsers(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	f := seed(t, db)

	byState, err := db.CountTasksByState(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, byState[models.StatePending])
	assert.Equal(t, 0, byState[models.StateCompleted])

	mine, err := db.CountTasksByState(ctx, &f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, mine[models.StatePending])

	byPriority, err := db.CountTasksByPriority(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, byPriority[models.PriorityMedium])

	overdue, err := db.CountOverdueTasks(ctx, mustDate(t, "2026-03-21"))
	require.NoError(t, err)
	assert.Equal(t, 1, overdue)
	overdue, err = db.CountOverdueTasks(ctx, mustDate(t, "2026-03-20"))
	require.NoError(t, err)
	assert.Zero(t, overdue)
}

func TestSettings(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	v, err := db.GetSetting(ctx, "last_project")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, db.SetSetting(ctx, "last_project", "3"))
	require.NoError(t, db.SetSetting(ctx, "last_project", "4"))
	v, err = db.GetSetting(ctx, "last_project")
	require.NoError(t, err)
	assert.Equal(t, "4", v)
}

func ptr[T any](v T) *T { return &v }
