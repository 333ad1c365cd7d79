package views

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/taskboard/internal/models"
	"github.com/tgienger/taskboard/internal/services"
	"github.com/tgienger/taskboard/internal/ui/keys"
	"github.com/tgienger/taskboard/internal/ui/styles"
)

// NotificationListView is the signed-in user's inbox
type NotificationListView struct {
	ctx    context.Context
	svc    *services.Service
	actor  *models.User
	styles *styles.Styles
	keys   keys.KeyMap

	width  int
	height int

	items      []models.Notification
	cursor     int
	unreadOnly bool
	loaded     bool
	status     string
}

func NewNotificationListView(ctx context.Context, svc *services.Service, actor *models.User) *NotificationListView {
	return &NotificationListView{
		ctx:    ctx,
		svc:    svc,
		actor:  actor,
		styles: styles.NewStyles(),
		keys:   keys.DefaultKeyMap(),
	}
}

func (v *NotificationListView) Init() tea.Cmd {
	return v.load
}

type notificationsLoadedMsg struct {
	items []models.Notification
}

func (v *NotificationListView) load() tea.Msg {
	items, err := v.svc.ListNotifications(v.ctx, v.actor, v.unreadOnly)
	if err != nil {
		return errMsg{err}
	}
	return notificationsLoadedMsg{items: items}
}

func (v *NotificationListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height

	case notificationsLoadedMsg:
		v.items = msg.items
		v.cursor = clamp(v.cursor, 0, max(len(v.items)-1, 0))
		v.loaded = true

	case errMsg:
		v.loaded = true
		v.status = errorText(msg.err)

	case tea.KeyMsg:
		v.status = ""
		switch {
		case msg.String() == "ctrl+c":
			return v, tea.Quit
		case key.Matches(msg, v.keys.Back), msg.String() == "q":
			return v, func() tea.Msg { return BackToProjects{} }
		case key.Matches(msg, v.keys.Up):
			v.cursor = max(v.cursor-1, 0)
		case key.Matches(msg, v.keys.Down):
			v.cursor = min(v.cursor+1, max(len(v.items)-1, 0))
		case key.Matches(msg, v.keys.Open):
			v.unreadOnly = !v.unreadOnly
			v.cursor = 0
			return v, v.load
		case key.Matches(msg, v.keys.Enter):
			if v.cursor < len(v.items) {
				if err := v.svc.MarkRead(v.ctx, v.actor, v.items[v.cursor].ID); err != nil {
					v.status = errorText(err)
					return v, nil
				}
				return v, v.load
			}
		case key.Matches(msg, v.keys.ReadAll):
			n, err := v.svc.MarkAllRead(v.ctx, v.actor)
			if err != nil {
				v.status = errorText(err)
				return v, nil
			}
			v.status = fmt.Sprintf("%d marked as read", n)
			return v, v.load
		}
	}
	return v, nil
}

func (v *NotificationListView) View() string {
	s := v.styles
	if !v.loaded {
		return s.TitleMuted.Render("Loading...")
	}

	width := max(styles.ContentWidth(v.width)-4, 20)
	title := "Notifications"
	if v.unreadOnly {
		title += " (unread)"
	}

	lines := []string{s.Title.Render(title), ""}
	if len(v.items) == 0 {
		lines = append(lines, s.TitleMuted.Render("Nothing here"))
	}
	for i, n := range v.items {
		style := s.ListItem
		if i == v.cursor {
			style = s.ListSelected
		}
		marker := "  "
		if !n.Read {
			marker = s.Unread.Render("● ")
		}
		when := s.TitleMuted.Render(n.CreatedAt.Local().Format("Jan 2 15:04"))
		lines = append(lines, style.Width(width).Render(marker+truncate(n.Message, width-20)+"  "+when))
	}

	if v.status != "" {
		lines = append(lines, s.StatusBar.Render(v.status))
	}
	lines = append(lines, helpLine(s, "↵", "mark read", "A", "mark all", "o", "unread only", "esc", "back"))

	return styles.CenterView(lipgloss.JoinVertical(lipgloss.Left, lines...), v.width, v.height)
}
