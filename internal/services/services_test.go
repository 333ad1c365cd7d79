package services

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/taskboard/internal/auth"
	"github.com/tgienger/taskboard/internal/db"
	"github.com/tgienger/taskboard/internal/models"
	"github.com/tgienger/taskboard/internal/perrors"
)

var testNow = time.Date(2026, 4, 1, 10, 0, 0, 0, time.Local)

type env struct {
	svc     *Service
	store   *db.DB
	admin   *models.User
	ana     *models.User
	bo      *models.User
	project *models.ProjectView
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	store, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := New(store,
		WithClock(func() time.Time { return testNow }),
		WithTokens(auth.NewTokens("test-secret", time.Hour)),
	)

	created, err := svc.EnsureAdmin(ctx, "admin", "admin123")
	require.NoError(t, err)
	require.True(t, created)
	admin, err := svc.UserByName(ctx, "admin")
	require.NoError(t, err)

	ana, err := svc.Register(ctx, UserInput{Username: "ana", Password: "secret1"})
	require.NoError(t, err)
	bo, err := svc.Register(ctx, UserInput{Username: "bo", Password: "secret2"})
	require.NoError(t, err)

	end := date(t, "2026-06-30")
	project, err := svc.CreateProject(ctx, admin, ProjectInput{
		Name:      "Website",
		StartDate: date(t, "2026-03-01"),
		EndDate:   &end,
	})
	require.NoError(t, err)

	return &env{svc: svc, store: store, admin: admin, ana: ana, bo: bo, project: project}
}

func date(t *testing.T, s string) models.Date {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}

func (e *env) createTask(t *testing.T, assignee *models.User) *models.TaskView {
	t.Helper()
	in := TaskInput{ProjectID: e.project.ID, Title: "Landing page", DueDate: date(t, "2026-04-10")}
	if assignee != nil {
		in.AssigneeID = &assignee.ID
	}
	task, err := e.svc.CreateTask(context.Background(), e.admin, in)
	require.NoError(t, err)
	return task
}

func (e *env) history(t *testing.T, taskID int64) []string {
	t.Helper()
	entries, err := e.svc.TaskHistory(context.Background(), e.admin, taskID)
	require.NoError(t, err)
	var actions []string
	for _, h := range entries {
		actions = append(actions, h.Action)
	}
	return actions
}

func (e *env) notifications(t *testing.T, u *models.User) []models.Notification {
	t.Helper()
	list, err := e.svc.ListNotifications(context.Background(), u, false)
	require.NoError(t, err)
	return list
}

func statePtr(s models.TaskState) *models.TaskState { return &s }

func TestCreateTaskWithAssignee(t *testing.T) {
	e := newEnv(t)

	task := e.createTask(t, e.ana)
	assert.Equal(t, models.StatePending, task.State)
	assert.Equal(t, "ana", task.AssigneeName)
	assert.Equal(t, 9, task.DaysRemaining)

	assert.Equal(t, []string{"Task 'Landing page' created"}, e.history(t, task.ID))

	notes := e.notifications(t, e.ana)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotifyAssignment, notes[0].Type)
	assert.Equal(t, "You have been assigned the task: Landing page", notes[0].Message)
	assert.False(t, notes[0].Read)
}

func TestCreateTaskWithoutAssignee(t *testing.T) {
	e := newEnv(t)

	task := e.createTask(t, nil)
	assert.Len(t, e.history(t, task.ID), 1)
	assert.Empty(t, e.notifications(t, e.ana))
	assert.Empty(t, e.notifications(t, e.bo))
}

func TestStateChangeIsAudited(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	task := e.createTask(t, e.ana)

	updated, err := e.svc.UpdateTask(ctx, e.ana, task.ID, TaskUpdate{State: statePtr(models.StateInProgress)})
	require.NoError(t, err)
	assert.Equal(t, models.StateInProgress, updated.State)

	assert.Equal(t, []string{
		"Task 'Landing page' created",
		"State changed from 'pending' to 'in_progress'",
	}, e.history(t, task.ID))

	notes := e.notifications(t, e.ana)
	require.Len(t, notes, 2)
	assert.Equal(t, models.NotifyStateChange, notes[0].Type)
	assert.Equal(t, "The state of 'Landing page' changed to In Progress", notes[0].Message)

	// saving the same values again leaves no trace
	_, err = e.svc.UpdateTask(ctx, e.ana, task.ID, TaskUpdate{State: statePtr(models.StateInProgress)})
	require.NoError(t, err)
	assert.Len(t, e.history(t, task.ID), 2)
	assert.Len(t, e.notifications(t, e.ana), 2)
}

func TestReassignment(t *testing.T) {
	e := newEnv(t)
	task := e.createTask(t, e.ana)

	_, err := e.svc.UpdateTask(context.Background(), e.admin, task.ID, TaskUpdate{AssigneeID: &e.bo.ID})
	require.NoError(t, err)

	assert.Equal(t, []string{"Task 'Landing page' created", "Task assigned to bo"}, e.history(t, task.ID))
	assert.Len(t, e.notifications(t, e.ana), 1, "previous assignee only has the original assignment")

	notes := e.notifications(t, e.bo)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotifyAssignment, notes[0].Type)
}

func TestUnassignmentLeavesNoEntry(t *testing.T) {
	e := newEnv(t)
	task := e.createTask(t, e.ana)

	updated, err := e.svc.UpdateTask(context.Background(), e.admin, task.ID, TaskUpdate{ClearAssignee: true})
	require.NoError(t, err)
	assert.Nil(t, updated.AssigneeID)
	assert.Empty(t, updated.AssigneeName)

	assert.Len(t, e.history(t, task.ID), 1)
	assert.Len(t, e.notifications(t, e.ana), 1)
}

func TestUpdatePermissions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	task := e.createTask(t, e.ana)

	_, err := e.svc.UpdateTask(ctx, e.bo, task.ID, TaskUpdate{State: statePtr(models.StateCompleted)})
	assert.True(t, perrors.IsPermission(err))

	_, err = e.svc.UpdateTask(ctx, nil, task.ID, TaskUpdate{State: statePtr(models.StateCompleted)})
	assert.True(t, perrors.IsUnauthorized(err))

	got, err := e.svc.GetTask(ctx, e.admin, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatePending, got.State)
	assert.Len(t, e.history(t, task.ID), 1, "rejected updates emit nothing")

	_, err = e.svc.UpdateTask(ctx, e.ana, task.ID, TaskUpdate{State: statePtr(models.StateCompleted)})
	assert.NoError(t, err)

	assert.True(t, perrors.IsPermission(e.svc.DeleteTask(ctx, e.ana, task.ID)))
	_, err = e.svc.CreateTask(ctx, e.ana, TaskInput{ProjectID: e.project.ID, Title: "x", DueDate: date(t, "2026-04-10")})
	assert.True(t, perrors.IsPermission(err))
}

func TestMemberCannotCreateProject(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.CreateProject(ctx, e.ana, ProjectInput{Name: "Side project", StartDate: date(t, "2026-04-01")})
	assert.True(t, perrors.IsPermission(err))

	projects, err := e.svc.ListProjects(ctx, e.ana, db.ProjectFilter{})
	require.NoError(t, err)
	assert.Len(t, projects, 1)
}

func TestAdvanceStateCycles(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	task := e.createTask(t, e.ana)

	for _, want := range []models.TaskState{models.StateInProgress, models.StateCompleted, models.StatePending} {
		got, err := e.svc.AdvanceState(ctx, e.ana, task.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got.State)
	}
	assert.Len(t, e.history(t, task.ID), 4)
}

func TestAuditFailureDoesNotFailSave(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	task := e.createTask(t, e.ana)

	_, err := e.store.Exec("DROP TABLE task_history")
	require.NoError(t, err)

	updated, err := e.svc.UpdateTask(ctx, e.admin, task.ID, TaskUpdate{State: statePtr(models.StateCompleted)})
	require.NoError(t, err)
	assert.Equal(t, models.StateCompleted, updated.State)

	got, err := e.svc.GetTask(ctx, e.admin, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateCompleted, got.State)
	assert.Len(t, e.notifications(t, e.ana), 1, "no notification without its history")
}

func TestTaskValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    TaskInput
		field string
	}{
		{"empty title", TaskInput{Title: "  ", DueDate: date(t, "2026-04-10")}, "title"},
		{"due in past", TaskInput{Title: "x", DueDate: date(t, "2026-03-31")}, "due_date"},
		{"due after project end", TaskInput{Title: "x", DueDate: date(t, "2026-07-01")}, "due_date"},
		{"missing due", TaskInput{Title: "x"}, "due_date"},
		{"bad priority", TaskInput{Title: "x", DueDate: date(t, "2026-04-10"), Priority: "urgent"}, "priority"},
		{"unknown assignee", TaskInput{Title: "x", DueDate: date(t, "2026-04-10"), AssigneeID: ptr(int64(999))}, "assignee_id"},
		{"unknown project", TaskInput{ProjectID: 999, Title: "x", DueDate: date(t, "2026-04-10")}, "project_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.in.ProjectID == 0 {
				tt.in.ProjectID = e.project.ID
			}
			_, err := e.svc.CreateTask(ctx, e.admin, tt.in)
			require.True(t, perrors.IsValidation(err), "got %v", err)
			var pe perrors.Err
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.field, pe.Field)
		})
	}

	tasks, err := e.svc.ListTasks(ctx, e.admin, db.TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestProjectValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	end := date(t, "2026-02-01")
	_, err := e.svc.CreateProject(ctx, e.admin, ProjectInput{Name: "Q1", StartDate: date(t, "2026-03-01"), EndDate: &end})
	assert.True(t, perrors.IsValidation(err))

	_, err = e.svc.CreateProject(ctx, e.admin, ProjectInput{Name: "", StartDate: date(t, "2026-03-01")})
	assert.True(t, perrors.IsValidation(err))

	name := "Website v2"
	updated, err := e.svc.UpdateProject(ctx, e.admin, e.project.ID, ProjectUpdate{Name: &name, ClearEndDate: true})
	require.NoError(t, err)
	assert.Equal(t, "Website v2", updated.Name)
	assert.Nil(t, updated.EndDate)
}

func TestProjectProgress(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	view, err := e.svc.GetProject(ctx, e.ana, e.project.ID)
	require.NoError(t, err)
	assert.Zero(t, view.Progress)

	first := e.createTask(t, nil)
	e.createTask(t, nil)
	e.createTask(t, nil)
	_, err = e.svc.UpdateTask(ctx, e.admin, first.ID, TaskUpdate{State: statePtr(models.StateCompleted)})
	require.NoError(t, err)

	view, err = e.svc.GetProject(ctx, e.ana, e.project.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, view.TaskCount)
	assert.Equal(t, 33.33, view.Progress)
	assert.False(t, view.Overdue)
}

func TestDeleteProjectCascades(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	task := e.createTask(t, e.ana)
	_, err := e.svc.AddComment(ctx, e.bo, task.ID, "nice work")
	require.NoError(t, err)

	require.NoError(t, e.svc.DeleteProject(ctx, e.admin, e.project.ID))

	_, err = e.svc.GetTask(ctx, e.admin, task.ID)
	assert.True(t, perrors.IsNotFound(err))
	assert.Empty(t, e.notifications(t, e.ana))
	for _, table := range []string{"comments", "task_history"} {
		var n int
		require.NoError(t, e.store.Get(&n, "SELECT COUNT(*) FROM "+table))
		assert.Zero(t, n, table)
	}
}

func TestComments(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	task := e.createTask(t, e.ana)

	_, err := e.svc.AddComment(ctx, e.bo, task.ID, " ok ")
	assert.True(t, perrors.IsValidation(err))

	c, err := e.svc.AddComment(ctx, e.bo, task.ID, "  Looks good to me  ")
	require.NoError(t, err)
	assert.Equal(t, "Looks good to me", c.Content)
	assert.Equal(t, "bo", c.Username)

	_, err = e.svc.AddComment(ctx, e.ana, task.ID, "Thanks!")
	require.NoError(t, err)

	comments, err := e.svc.ListComments(ctx, e.admin, task.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 2)

	var commentNotes int
	for _, n := range e.notifications(t, e.ana) {
		if n.Type == models.NotifyComment {
			commentNotes++
			assert.Equal(t, "bo commented on 'Landing page'", n.Message)
		}
	}
	assert.Equal(t, 1, commentNotes, "own comments do not notify")

	_, err = e.svc.AddComment(ctx, e.bo, 999, "hello there")
	assert.True(t, perrors.IsNotFound(err))
}

func TestMarkRead(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.createTask(t, e.ana)
	e.createTask(t, e.ana)

	n, err := e.svc.UnreadCount(ctx, e.ana)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	notes := e.notifications(t, e.ana)
	assert.True(t, perrors.IsNotFound(e.svc.MarkRead(ctx, e.bo, notes[0].ID)))
	require.NoError(t, e.svc.MarkRead(ctx, e.ana, notes[0].ID))
	require.NoError(t, e.svc.MarkRead(ctx, e.ana, notes[0].ID))

	n, err = e.svc.UnreadCount(ctx, e.ana)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for i := 0; i < 2; i++ {
		_, err := e.svc.MarkAllRead(ctx, e.ana)
		require.NoError(t, err)
		n, err = e.svc.UnreadCount(ctx, e.ana)
		require.NoError(t, err)
		assert.Zero(t, n)
	}
}

func TestNotifyDueSoon(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	soon, err := e.svc.CreateTask(ctx, e.admin, TaskInput{
		ProjectID: e.project.ID, Title: "Soon", DueDate: date(t, "2026-04-02"), AssigneeID: &e.ana.ID,
	})
	require.NoError(t, err)
	_, err = e.svc.CreateTask(ctx, e.admin, TaskInput{
		ProjectID: e.project.ID, Title: "Later", DueDate: date(t, "2026-04-20"), AssigneeID: &e.ana.ID,
	})
	require.NoError(t, err)
	_, err = e.svc.CreateTask(ctx, e.admin, TaskInput{
		ProjectID: e.project.ID, Title: "Nobody", DueDate: date(t, "2026-04-02"),
	})
	require.NoError(t, err)

	sent, err := e.svc.NotifyDueSoon(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	sent, err = e.svc.NotifyDueSoon(ctx, 3)
	require.NoError(t, err)
	assert.Zero(t, sent, "unread reminder already exists")

	var due []models.Notification
	for _, n := range e.notifications(t, e.ana) {
		if n.Type == models.NotifyDueSoon {
			due = append(due, n)
		}
	}
	require.Len(t, due, 1)
	assert.Equal(t, soon.ID, due[0].TaskID)
	assert.Equal(t, "The task 'Soon' is due tomorrow", due[0].Message)

	_, err = e.svc.NotifyDueSoon(ctx, -1)
	assert.True(t, perrors.IsValidation(err))
}

func TestStats(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	task := e.createTask(t, e.ana)
	e.createTask(t, nil)
	_, err := e.svc.UpdateTask(ctx, e.ana, task.ID, TaskUpdate{State: statePtr(models.StateInProgress)})
	require.NoError(t, err)

	st, err := e.svc.Stats(ctx, e.ana)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Projects)
	assert.Equal(t, 2, st.Tasks)
	assert.Equal(t, 1, st.ByState[models.StateInProgress])
	assert.Equal(t, 1, st.MyTasks[models.StateInProgress])
	assert.Equal(t, 2, st.ByPriority[models.PriorityMedium])
	assert.Zero(t, st.Overdue)
	assert.Equal(t, 2, st.Unread)
	assert.Len(t, st.Upcoming, 0, "due in nine days is outside the window")
}

func TestUsers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.Register(ctx, UserInput{Username: "ana", Password: "whatever"})
	assert.True(t, perrors.IsConflict(err))

	for _, name := range []string{"", "two words", "bad!", strings.Repeat("a", 151)} {
		_, err = e.svc.Register(ctx, UserInput{Username: name, Password: "whatever"})
		assert.True(t, perrors.IsValidation(err), "username %q", name)
	}

	_, err = e.svc.CreateUser(ctx, e.ana, UserInput{Username: "boss", Password: "secret9", Role: models.RoleAdmin})
	assert.True(t, perrors.IsPermission(err))

	boss, err := e.svc.CreateUser(ctx, e.admin, UserInput{Username: "boss", Password: "secret9", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.True(t, boss.IsAdmin())

	promoted, err := e.svc.SetRole(ctx, e.admin, e.ana.ID, models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin())

	_, err = e.svc.SetRole(ctx, e.admin, e.admin.ID, models.RoleMember)
	assert.True(t, perrors.IsValidation(err))

	assert.True(t, perrors.IsValidation(e.svc.DeleteUser(ctx, e.admin, e.admin.ID)))
	require.NoError(t, e.svc.DeleteUser(ctx, e.admin, e.bo.ID))

	users, err := e.svc.ListUsers(ctx, e.admin)
	require.NoError(t, err)
	assert.Len(t, users, 3)

	created, err := e.svc.EnsureAdmin(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestShortUsernames(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	for _, name := range []string{"x", "jo", "a.b"} {
		u, err := e.svc.Register(ctx, UserInput{Username: name, Password: "secret3"})
		require.NoError(t, err, "username %q", name)
		assert.Equal(t, name, u.Username)
	}

	_, err := e.svc.Authenticate(ctx, "x", "secret3")
	require.NoError(t, err)
}

func TestLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, _, err := e.svc.Login(ctx, "ana", "wrong")
	assert.True(t, perrors.IsUnauthorized(err))
	_, _, err = e.svc.Login(ctx, "ghost", "secret1")
	assert.True(t, perrors.IsUnauthorized(err))

	u, token, err := e.svc.Login(ctx, "ana", "secret1")
	require.NoError(t, err)
	assert.Equal(t, e.ana.ID, u.ID)

	resolved, err := e.svc.UserFromToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "ana", resolved.Username)

	require.NoError(t, e.svc.DeleteUser(ctx, e.admin, e.ana.ID))
	_, err = e.svc.UserFromToken(ctx, token)
	assert.True(t, perrors.IsUnauthorized(err))
}

func TestMembers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	assert.True(t, perrors.IsPermission(e.svc.AddMember(ctx, e.ana, e.project.ID, e.ana.ID)))
	require.NoError(t, e.svc.AddMember(ctx, e.admin, e.project.ID, e.ana.ID))
	assert.True(t, perrors.IsNotFound(e.svc.AddMember(ctx, e.admin, e.project.ID, 999)))

	members, err := e.svc.ListMembers(ctx, e.bo, e.project.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "ana", members[0].Username)

	require.NoError(t, e.svc.RemoveMember(ctx, e.admin, e.project.ID, e.ana.ID))
	members, err = e.svc.ListMembers(ctx, e.bo, e.project.ID)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func ptr[T any](v T) *T { return &v }
