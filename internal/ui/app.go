// Package ui is the terminal front end. It talks only to the service layer.
package ui

import (
	"context"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tgienger/taskboard/internal/logging"
	"github.com/tgienger/taskboard/internal/models"
	"github.com/tgienger/taskboard/internal/services"
	"github.com/tgienger/taskboard/internal/ui/views"
)

// View is the screen currently shown
type View int

const (
	ViewLogin View = iota
	ViewProjects
	ViewTasks
	ViewNotifications
)

type App struct {
	ctx         context.Context
	svc         *services.Service
	user        *models.User
	currentView View

	login         *views.LoginView
	projectList   *views.ProjectListView
	taskList      *views.TaskListView
	notifications *views.NotificationListView

	width  int
	height int
}

// NewApp starts at the login screen, or at the project list when user is already known
func NewApp(ctx context.Context, svc *services.Service, user *models.User) *App {
	a := &App{ctx: ctx, svc: svc}
	if user != nil {
		a.signIn(user)
	} else {
		a.currentView = ViewLogin
		a.login = views.NewLoginView(ctx, svc)
	}
	return a
}

func (a *App) signIn(user *models.User) {
	a.user = user
	a.currentView = ViewProjects
	a.projectList = views.NewProjectListView(a.ctx, a.svc, user)
	logging.Logger.WithField("user", user.Username).Info("tui session started")
}

// lastProjectKey scopes the remembered project to the signed-in user
func (a *App) lastProjectKey() string {
	return "last_project_id:" + strconv.FormatInt(a.user.ID, 10)
}

func (a *App) Init() tea.Cmd {
	if a.currentView == ViewLogin {
		return a.login.Init()
	}
	return a.restore()
}

// restore reopens the last project the user had open, if they can still see it
func (a *App) restore() tea.Cmd {
	raw, err := a.svc.Setting(a.ctx, a.lastProjectKey())
	if err == nil && raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			if project, err := a.svc.GetProject(a.ctx, a.user, id); err == nil {
				return a.openProject(*project)
			}
		}
	}
	return a.projectList.Init()
}

func (a *App) resize() tea.Msg {
	return tea.WindowSizeMsg{Width: a.width, Height: a.height}
}

func (a *App) openProject(project models.ProjectView) tea.Cmd {
	a.currentView = ViewTasks
	a.taskList = views.NewTaskListView(a.ctx, a.svc, a.user, project)

	if err := a.svc.SaveSetting(a.ctx, a.lastProjectKey(), strconv.FormatInt(project.ID, 10)); err != nil {
		logging.Logger.WithError(err).Warn("could not remember last project")
	}

	return tea.Batch(a.taskList.Init(), a.resize)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// the project list persists across screens
		if a.projectList != nil {
			a.projectList.Update(msg)
		}

	case views.LoggedIn:
		a.signIn(msg.User)
		a.login = nil
		return a, tea.Batch(a.restore(), a.resize)

	case views.SelectedProject:
		return a, a.openProject(msg.Project)

	case views.OpenInbox:
		a.currentView = ViewNotifications
		a.notifications = views.NewNotificationListView(a.ctx, a.svc, a.user)
		return a, tea.Batch(a.notifications.Init(), a.resize)

	case views.BackToProjects:
		if a.currentView == ViewTasks {
			if err := a.svc.SaveSetting(a.ctx, a.lastProjectKey(), ""); err != nil {
				logging.Logger.WithError(err).Warn("could not clear last project")
			}
		}
		a.currentView = ViewProjects
		return a, tea.Batch(a.projectList.Init(), a.resize)
	}

	var cmd tea.Cmd
	switch a.currentView {
	case ViewLogin:
		_, cmd = a.login.Update(msg)
	case ViewProjects:
		if _, ok := msg.(tea.WindowSizeMsg); !ok {
			_, cmd = a.projectList.Update(msg)
		}
	case ViewTasks:
		_, cmd = a.taskList.Update(msg)
	case ViewNotifications:
		_, cmd = a.notifications.Update(msg)
	}
	return a, cmd
}

func (a *App) View() string {
	switch a.currentView {
	case ViewLogin:
		return a.login.View()
	case ViewTasks:
		if a.taskList != nil {
			return a.taskList.View()
		}
	case ViewNotifications:
		if a.notifications != nil {
			return a.notifications.View()
		}
	}
	return a.projectList.View()
}
