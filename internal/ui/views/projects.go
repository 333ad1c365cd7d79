package views

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/taskboard/internal/db"
	"github.com/tgienger/taskboard/internal/models"
	"github.com/tgienger/taskboard/internal/perrors"
	"github.com/tgienger/taskboard/internal/services"
	"github.com/tgienger/taskboard/internal/ui/keys"
	"github.com/tgienger/taskboard/internal/ui/styles"
)

type projectItem struct {
	project models.ProjectView
}

func (i projectItem) Title() string       { return i.project.Name }
func (i projectItem) Description() string { return i.project.Description }
func (i projectItem) FilterValue() string { return i.project.Name }

type projectDelegate struct {
	styles *styles.Styles
	width  int
}

func (d projectDelegate) Height() int                               { return 2 }
func (d projectDelegate) Spacing() int                              { return 1 }
func (d projectDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d projectDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	p, ok := item.(projectItem)
	if !ok {
		return
	}

	width := max(d.width-4, 20)
	lineStyle := d.styles.ListItem
	if index == m.Index() {
		lineStyle = d.styles.ListSelected
	}

	title := p.project.Name
	if p.project.Overdue {
		title += " " + d.styles.Overdue.Render("overdue")
	}
	if !p.project.Active {
		title += " " + d.styles.TitleMuted.Render("(inactive)")
	}

	meta := fmt.Sprintf("%s  %d tasks", styles.ProgressBar(p.project.Progress, 10), p.project.TaskCount)
	if p.project.Description != "" {
		meta += "  " + truncate(p.project.Description, max(width-32, 10))
	}

	fmt.Fprintf(w, "%s\n%s",
		lineStyle.Width(width).Render(title),
		lineStyle.Foreground(styles.Current.ForegroundDim).Width(width).Render(meta),
	)
}

// ProjectListView lists projects with their progress
type ProjectListView struct {
	ctx      context.Context
	svc      *services.Service
	actor    *models.User
	list     list.Model
	delegate *projectDelegate
	styles   *styles.Styles
	keys     keys.KeyMap

	width  int
	height int
	loaded bool
	unread int
	status string

	creating bool
	inputs   []textinput.Model // name, description, start, end
	focusIdx int               // len(inputs) is the create button

	confirmingDelete bool
	deleteTargetID   int64
	deleteTargetName string

	showHelpPopup bool
}

const (
	fieldProjectName = iota
	fieldProjectDesc
	fieldProjectStart
	fieldProjectEnd
)

func NewProjectListView(ctx context.Context, svc *services.Service, actor *models.User) *ProjectListView {
	s := styles.NewStyles()

	inputs := make([]textinput.Model, 4)
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].CharLimit = 200
	}
	inputs[fieldProjectName].Placeholder = "Project name"
	inputs[fieldProjectDesc].Placeholder = "Description (optional)"
	inputs[fieldProjectStart].Placeholder = models.DateLayout
	inputs[fieldProjectStart].CharLimit = 10
	inputs[fieldProjectEnd].Placeholder = "End date (optional)"
	inputs[fieldProjectEnd].CharLimit = 10

	delegate := &projectDelegate{styles: s, width: styles.MaxWidth}

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Projects"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = s.Title
	l.SetShowHelp(false)

	return &ProjectListView{
		ctx:      ctx,
		svc:      svc,
		actor:    actor,
		list:     l,
		delegate: delegate,
		styles:   s,
		keys:     keys.DefaultKeyMap(),
		inputs:   inputs,
	}
}

func (v *ProjectListView) Init() tea.Cmd {
	return v.loadProjects
}

type projectsLoadedMsg struct {
	projects []models.ProjectView
	unread   int
}

func (v *ProjectListView) loadProjects() tea.Msg {
	projects, err := v.svc.ListProjects(v.ctx, v.actor, db.ProjectFilter{})
	if err != nil {
		return errMsg{err}
	}
	unread, err := v.svc.UnreadCount(v.ctx, v.actor)
	if err != nil {
		return errMsg{err}
	}
	return projectsLoadedMsg{projects: projects, unread: unread}
}

func (v *ProjectListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := styles.ContentWidth(msg.Width)
		v.delegate.width = contentWidth
		v.list.SetSize(contentWidth-4, msg.Height-7)
		return v, nil

	case projectsLoadedMsg:
		items := make([]list.Item, len(msg.projects))
		for i, p := range msg.projects {
			items[i] = projectItem{project: p}
		}
		v.list.SetItems(items)
		v.unread = msg.unread
		v.loaded = true
		return v, nil

	case errMsg:
		v.loaded = true
		v.status = errorText(msg.err)
		return v, nil

	case tea.KeyMsg:
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}
		if v.confirmingDelete {
			return v.updateConfirmDelete(msg)
		}
		if v.creating {
			return v.updateCreating(msg)
		}
		if v.list.FilterState() == list.Filtering {
			break
		}

		v.status = ""
		switch {
		case key.Matches(msg, v.keys.Quit):
			return v, tea.Quit
		case key.Matches(msg, v.keys.New):
			return v, v.startCreate()
		case key.Matches(msg, v.keys.Help):
			v.showHelpPopup = true
			return v, nil
		case key.Matches(msg, v.keys.Inbox):
			return v, func() tea.Msg { return OpenInbox{} }
		case key.Matches(msg, v.keys.Enter):
			if item, ok := v.list.SelectedItem().(projectItem); ok {
				return v, func() tea.Msg {
					return SelectedProject{Project: item.project}
				}
			}
		case key.Matches(msg, v.keys.Delete):
			if item, ok := v.list.SelectedItem().(projectItem); ok {
				v.confirmingDelete = true
				v.deleteTargetID = item.project.ID
				v.deleteTargetName = item.project.Name
				return v, nil
			}
		}
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

func (v *ProjectListView) startCreate() tea.Cmd {
	v.creating = true
	v.focusIdx = 0
	for i := range v.inputs {
		v.inputs[i].Reset()
	}
	v.inputs[fieldProjectStart].SetValue(v.svc.Today().String())
	v.updateFocus()
	return textinput.Blink
}

func (v *ProjectListView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.confirmingDelete = false
		if err := v.svc.DeleteProject(v.ctx, v.actor, v.deleteTargetID); err != nil {
			v.status = errorText(err)
			return v, nil
		}
		return v, v.loadProjects
	case "n", "N", "esc":
		v.confirmingDelete = false
	}
	return v, nil
}

func (v *ProjectListView) updateCreating(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(v.inputs) + 1
	switch {
	case key.Matches(msg, v.keys.Back):
		v.creating = false
		v.status = ""
		return v, nil
	case key.Matches(msg, v.keys.Save):
		return v, v.create()
	case msg.String() == "shift+tab":
		v.focusIdx = (v.focusIdx + n - 1) % n
		v.updateFocus()
		return v, nil
	case key.Matches(msg, v.keys.Tab):
		v.focusIdx = (v.focusIdx + 1) % n
		v.updateFocus()
		return v, nil
	case key.Matches(msg, v.keys.Enter):
		if v.focusIdx < len(v.inputs) {
			v.focusIdx++
			v.updateFocus()
			return v, nil
		}
		return v, v.create()
	}

	if v.focusIdx >= len(v.inputs) {
		return v, nil
	}
	var cmd tea.Cmd
	v.inputs[v.focusIdx], cmd = v.inputs[v.focusIdx].Update(msg)
	return v, cmd
}

func (v *ProjectListView) create() tea.Cmd {
	in, err := v.projectInput()
	if err != nil {
		v.status = errorText(err)
		return nil
	}
	project, err := v.svc.CreateProject(v.ctx, v.actor, in)
	if err != nil {
		v.status = errorText(err)
		return nil
	}
	v.creating = false
	v.status = ""
	return func() tea.Msg { return SelectedProject{Project: *project} }
}

func (v *ProjectListView) projectInput() (services.ProjectInput, error) {
	in := services.ProjectInput{
		Name:        strings.TrimSpace(v.inputs[fieldProjectName].Value()),
		Description: strings.TrimSpace(v.inputs[fieldProjectDesc].Value()),
	}
	start, err := models.ParseDate(v.inputs[fieldProjectStart].Value())
	if err != nil {
		return in, perrors.NewErrValidation("start_date", "use YYYY-MM-DD")
	}
	in.StartDate = start

	if raw := strings.TrimSpace(v.inputs[fieldProjectEnd].Value()); raw != "" {
		end, err := models.ParseDate(raw)
		if err != nil {
			return in, perrors.NewErrValidation("end_date", "use YYYY-MM-DD")
		}
		in.EndDate = &end
	}
	return in, nil
}

func (v *ProjectListView) updateFocus() {
	for i := range v.inputs {
		v.inputs[i].Blur()
	}
	if v.focusIdx < len(v.inputs) {
		v.inputs[v.focusIdx].Focus()
	}
}

func (v *ProjectListView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}
	if v.confirmingDelete {
		return confirmBox(v.styles, "Delete Project?",
			fmt.Sprintf("%q and all of its tasks will be removed.", v.deleteTargetName),
			v.width, v.height)
	}
	if v.creating {
		return v.renderCreateForm()
	}
	if !v.loaded {
		return v.styles.TitleMuted.Render("Loading...")
	}
	if len(v.list.Items()) == 0 {
		return v.renderEmpty()
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		v.renderHeader(),
		v.list.View(),
		v.renderStatus(),
		v.renderHelp(),
	)
	return styles.CenterView(content, v.width, v.height)
}

func (v *ProjectListView) renderHeader() string {
	s := v.styles
	who := s.TitleMuted.Render(fmt.Sprintf("%s (%s)", v.actor.Username, v.actor.Role))
	if v.unread == 0 {
		return s.StatusBar.Render(who)
	}
	return s.StatusBar.Render(who + "  " + s.Unread.Render(fmt.Sprintf("● %d unread", v.unread)))
}

func (v *ProjectListView) renderStatus() string {
	if v.status == "" {
		return ""
	}
	return v.styles.Error.Render(v.status)
}

func (v *ProjectListView) renderEmpty() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	hint := "No projects have been shared with you yet"
	if v.actor.IsAdmin() {
		hint = "Press 'n' to create your first project"
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Render("No Projects"),
		"",
		s.TitleMuted.Render(hint),
		"",
		v.renderStatus(),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *ProjectListView) renderCreateForm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	inputWidth := clamp(contentWidth-6, 20, 50)

	labels := []string{"Name:", "Description:", "Start date:", "End date:"}
	lines := []string{s.Title.Render("New Project"), ""}
	for i, in := range v.inputs {
		style := s.Input
		if i == v.focusIdx {
			style = s.InputFocused
		}
		lines = append(lines, labels[i], style.Width(inputWidth).Render(in.View()))
	}

	btn := s.Button
	if v.focusIdx == len(v.inputs) {
		btn = s.ButtonFocused
	}
	lines = append(lines, "", btn.Render(" Create "), v.renderStatus(),
		s.TitleMuted.Render("Tab: next • Ctrl+S: save • Esc: cancel"))

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Left, lines...),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *ProjectListView) renderHelp() string {
	contentWidth := styles.ContentWidth(v.width)
	if contentWidth > 0 && contentWidth < 50 {
		return v.styles.Help.Render(v.styles.HelpKey.Render("?") + " help")
	}
	return helpLine(v.styles, "↵", "open", "n", "new", "d", "del", "i", "inbox", "/", "filter", "q", "quit")
}

func (v *ProjectListView) renderHelpPopup() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	content := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("Keyboard Shortcuts"),
		"",
		s.HelpKey.Render("↵")+"      open project",
		s.HelpKey.Render("n")+"      new project",
		s.HelpKey.Render("d")+"      delete project",
		s.HelpKey.Render("i")+"      notifications",
		s.HelpKey.Render("/")+"      filter by name",
		s.HelpKey.Render("q")+"      quit",
		"",
		s.TitleMuted.Render("Press any key to close"),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.Panel.Render(content),
	)
	return styles.CenterView(centered, v.width, v.height)
}
