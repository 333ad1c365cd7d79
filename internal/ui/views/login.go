package views

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/taskboard/internal/services"
	"github.com/tgienger/taskboard/internal/ui/keys"
	"github.com/tgienger/taskboard/internal/ui/styles"
)

// LoginView asks for credentials before anything else is shown
type LoginView struct {
	ctx    context.Context
	svc    *services.Service
	styles *styles.Styles
	keys   keys.KeyMap

	width  int
	height int

	username textinput.Model
	password textinput.Model
	focusIdx int // 0=username, 1=password
	err      string
}

func NewLoginView(ctx context.Context, svc *services.Service) *LoginView {
	username := textinput.New()
	username.Placeholder = "username"
	username.CharLimit = 150
	username.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.CharLimit = 128
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	return &LoginView{
		ctx:      ctx,
		svc:      svc,
		styles:   styles.NewStyles(),
		keys:     keys.DefaultKeyMap(),
		username: username,
		password: password,
	}
}

func (v *LoginView) Init() tea.Cmd {
	return textinput.Blink
}

func (v *LoginView) submit() tea.Msg {
	u, err := v.svc.Authenticate(v.ctx, strings.TrimSpace(v.username.Value()), v.password.Value())
	if err != nil {
		return errMsg{err}
	}
	return LoggedIn{User: u}
}

func (v *LoginView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case errMsg:
		v.err = errorText(msg.err)
		v.password.Reset()
		return v, nil

	case tea.KeyMsg:
		switch {
		case msg.String() == "ctrl+c", key.Matches(msg, v.keys.Back):
			return v, tea.Quit
		case key.Matches(msg, v.keys.Tab), msg.String() == "shift+tab":
			v.focusIdx = 1 - v.focusIdx
			v.updateFocus()
			return v, nil
		case key.Matches(msg, v.keys.Enter):
			if v.focusIdx == 0 {
				v.focusIdx = 1
				v.updateFocus()
				return v, nil
			}
			v.err = ""
			return v, v.submit
		}
	}

	var cmd tea.Cmd
	if v.focusIdx == 0 {
		v.username, cmd = v.username.Update(msg)
	} else {
		v.password, cmd = v.password.Update(msg)
	}
	return v, cmd
}

func (v *LoginView) updateFocus() {
	v.username.Blur()
	v.password.Blur()
	if v.focusIdx == 0 {
		v.username.Focus()
	} else {
		v.password.Focus()
	}
}

func (v *LoginView) View() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	inputWidth := clamp(contentWidth-6, 20, 40)

	userStyle, passStyle := s.Input, s.Input
	if v.focusIdx == 0 {
		userStyle = s.InputFocused
	} else {
		passStyle = s.InputFocused
	}

	lines := []string{
		s.Title.Render("taskboard"),
		"",
		"Username:",
		userStyle.Width(inputWidth).Render(v.username.View()),
		"",
		"Password:",
		passStyle.Width(inputWidth).Render(v.password.View()),
		"",
	}
	if v.err != "" {
		lines = append(lines, s.Error.Render(v.err), "")
	}
	lines = append(lines, s.TitleMuted.Render("Tab: next • Enter: sign in • Esc: quit"))

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Left, lines...),
	)
	return styles.CenterView(centered, v.width, v.height)
}
