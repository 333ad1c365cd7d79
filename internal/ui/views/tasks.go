package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
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

type taskMode int

const (
	modeList taskMode = iota
	modeSearch
	modeForm
	modeDetail
	modeComment
	modeAssign
	modeConfirmDelete
)

// TaskListView shows the tasks of one project and the detail of the selected task
type TaskListView struct {
	ctx     context.Context
	svc     *services.Service
	actor   *models.User
	project models.ProjectView
	styles  *styles.Styles
	keys    keys.KeyMap

	width  int
	height int

	mode          taskMode
	tasks         []models.TaskView
	cursor        int
	scrollY       int
	hideCompleted bool
	search        textinput.Model
	status        string

	// new task form
	formTitle    textinput.Model
	formDesc     textarea.Model
	formDue      textinput.Model
	formPriority int // index into models.Priorities
	formFocusIdx int // 0=title, 1=desc, 2=due, 3=priority, 4=save

	// detail
	comments     []models.Comment
	history      []models.HistoryEntry
	commentInput textarea.Model

	// assignment picker; index 0 clears the assignee
	users        []models.User
	assignCursor int
	assignReturn taskMode
}

func NewTaskListView(ctx context.Context, svc *services.Service, actor *models.User, project models.ProjectView) *TaskListView {
	search := textinput.New()
	search.Placeholder = "Search tasks..."
	search.CharLimit = 100

	formTitle := textinput.New()
	formTitle.Placeholder = "Task title"
	formTitle.CharLimit = 200

	formDesc := textarea.New()
	formDesc.Placeholder = "Description"
	formDesc.CharLimit = 2000
	formDesc.SetWidth(50)
	formDesc.SetHeight(3)
	formDesc.ShowLineNumbers = false

	formDue := textinput.New()
	formDue.Placeholder = models.DateLayout
	formDue.CharLimit = 10

	commentInput := textarea.New()
	commentInput.Placeholder = "Add a comment..."
	commentInput.CharLimit = 2000
	commentInput.SetWidth(50)
	commentInput.SetHeight(3)
	commentInput.ShowLineNumbers = false

	return &TaskListView{
		ctx:          ctx,
		svc:          svc,
		actor:        actor,
		project:      project,
		styles:       styles.NewStyles(),
		keys:         keys.DefaultKeyMap(),
		search:       search,
		formTitle:    formTitle,
		formDesc:     formDesc,
		formDue:      formDue,
		formPriority: 1,
		commentInput: commentInput,
	}
}

func (v *TaskListView) Init() tea.Cmd {
	return v.loadTasks
}

type tasksLoadedMsg struct {
	tasks []models.TaskView
}

type taskDetailMsg struct {
	task     models.TaskView
	comments []models.Comment
	history  []models.HistoryEntry
}

type usersLoadedMsg struct {
	users []models.User
}

func (v *TaskListView) loadTasks() tea.Msg {
	tasks, err := v.svc.ListTasks(v.ctx, v.actor, db.TaskFilter{
		ProjectID:        &v.project.ID,
		Search:           strings.TrimSpace(v.search.Value()),
		ExcludeCompleted: v.hideCompleted,
	})
	if err != nil {
		return errMsg{err}
	}
	return tasksLoadedMsg{tasks: tasks}
}

func (v *TaskListView) loadDetail(id int64) tea.Cmd {
	return func() tea.Msg {
		task, err := v.svc.GetTask(v.ctx, v.actor, id)
		if err != nil {
			return errMsg{err}
		}
		comments, err := v.svc.ListComments(v.ctx, v.actor, id)
		if err != nil {
			return errMsg{err}
		}
		history, err := v.svc.TaskHistory(v.ctx, v.actor, id)
		if err != nil {
			return errMsg{err}
		}
		return taskDetailMsg{task: *task, comments: comments, history: history}
	}
}

func (v *TaskListView) loadUsers() tea.Msg {
	users, err := v.svc.ListUsers(v.ctx, v.actor)
	if err != nil {
		return errMsg{err}
	}
	return usersLoadedMsg{users: users}
}

// selected returns the task under the cursor
func (v *TaskListView) selected() (models.TaskView, bool) {
	if v.cursor < 0 || v.cursor >= len(v.tasks) {
		return models.TaskView{}, false
	}
	return v.tasks[v.cursor], true
}

// replaceTask swaps in a fresh copy of a task after a save
func (v *TaskListView) replaceTask(t models.TaskView) {
	for i := range v.tasks {
		if v.tasks[i].ID == t.ID {
			v.tasks[i] = t
			return
		}
	}
}

func (v *TaskListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		textWidth := clamp(styles.ContentWidth(msg.Width)-10, 20, 60)
		v.formDesc.SetWidth(textWidth)
		v.commentInput.SetWidth(textWidth)
		return v, nil

	case tasksLoadedMsg:
		v.tasks = msg.tasks
		v.cursor = clamp(v.cursor, 0, max(len(v.tasks)-1, 0))
		v.ensureVisible()
		return v, nil

	case taskDetailMsg:
		v.replaceTask(msg.task)
		v.comments = msg.comments
		v.history = msg.history
		return v, nil

	case usersLoadedMsg:
		v.users = msg.users
		v.assignCursor = 0
		if t, ok := v.selected(); ok && t.AssigneeID != nil {
			for i, u := range v.users {
				if u.ID == *t.AssigneeID {
					v.assignCursor = i + 1
				}
			}
		}
		v.mode = modeAssign
		return v, nil

	case errMsg:
		v.status = errorText(msg.err)
		return v, nil

	case tea.KeyMsg:
		switch v.mode {
		case modeSearch:
			return v.updateSearch(msg)
		case modeForm:
			return v.updateForm(msg)
		case modeDetail:
			return v.updateDetail(msg)
		case modeComment:
			return v.updateComment(msg)
		case modeAssign:
			return v.updateAssign(msg)
		case modeConfirmDelete:
			return v.updateConfirmDelete(msg)
		}
		return v.updateList(msg)
	}
	return v, nil
}

func (v *TaskListView) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v.status = ""
	switch {
	case msg.String() == "ctrl+c":
		return v, tea.Quit
	case key.Matches(msg, v.keys.Back), msg.String() == "q":
		return v, func() tea.Msg { return BackToProjects{} }
	case key.Matches(msg, v.keys.Up):
		if v.cursor > 0 {
			v.cursor--
			v.ensureVisible()
		}
	case key.Matches(msg, v.keys.Down):
		if v.cursor < len(v.tasks)-1 {
			v.cursor++
			v.ensureVisible()
		}
	case key.Matches(msg, v.keys.Search):
		v.mode = modeSearch
		v.search.Focus()
		return v, textinput.Blink
	case key.Matches(msg, v.keys.Open):
		v.hideCompleted = !v.hideCompleted
		return v, v.loadTasks
	case key.Matches(msg, v.keys.New):
		return v, v.startForm()
	case key.Matches(msg, v.keys.Inbox):
		return v, func() tea.Msg { return OpenInbox{} }
	case key.Matches(msg, v.keys.Enter):
		if t, ok := v.selected(); ok {
			v.mode = modeDetail
			v.comments, v.history = nil, nil
			return v, v.loadDetail(t.ID)
		}
	default:
		return v, v.taskAction(msg)
	}
	return v, nil
}

// taskAction handles the keys shared by the list and the detail screen
func (v *TaskListView) taskAction(msg tea.KeyMsg) tea.Cmd {
	t, ok := v.selected()
	if !ok {
		return nil
	}
	switch {
	case key.Matches(msg, v.keys.Advance):
		return v.save(func() (*models.TaskView, error) {
			return v.svc.AdvanceState(v.ctx, v.actor, t.ID)
		})
	case key.Matches(msg, v.keys.Priority):
		next := nextPriority(t.Priority)
		return v.save(func() (*models.TaskView, error) {
			return v.svc.UpdateTask(v.ctx, v.actor, t.ID, services.TaskUpdate{Priority: &next})
		})
	case key.Matches(msg, v.keys.Assign):
		v.assignReturn = v.mode
		return v.loadUsers
	case key.Matches(msg, v.keys.Delete):
		v.mode = modeConfirmDelete
	}
	return nil
}

// save runs a task mutation and refreshes whatever screen is showing
func (v *TaskListView) save(fn func() (*models.TaskView, error)) tea.Cmd {
	t, err := fn()
	if err != nil {
		v.status = errorText(err)
		return nil
	}
	v.replaceTask(*t)
	if v.mode == modeDetail {
		return v.loadDetail(t.ID)
	}
	return v.loadTasks
}

func nextPriority(p models.Priority) models.Priority {
	for i, pr := range models.Priorities {
		if pr == p {
			return models.Priorities[(i+1)%len(models.Priorities)]
		}
	}
	return models.PriorityMedium
}

func (v *TaskListView) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.search.Reset()
		v.search.Blur()
		v.mode = modeList
		return v, v.loadTasks
	case key.Matches(msg, v.keys.Enter):
		v.search.Blur()
		v.mode = modeList
		v.cursor = 0
		return v, v.loadTasks
	}
	var cmd tea.Cmd
	v.search, cmd = v.search.Update(msg)
	return v, cmd
}

func (v *TaskListView) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v.status = ""
	switch {
	case key.Matches(msg, v.keys.Back), msg.String() == "q":
		v.mode = modeList
		return v, v.loadTasks
	case key.Matches(msg, v.keys.Comment):
		v.mode = modeComment
		v.commentInput.Reset()
		v.commentInput.Focus()
		return v, textarea.Blink
	}
	return v, v.taskAction(msg)
}

func (v *TaskListView) updateComment(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.commentInput.Blur()
		v.mode = modeDetail
		return v, nil
	case key.Matches(msg, v.keys.Save):
		t, ok := v.selected()
		if !ok {
			return v, nil
		}
		if _, err := v.svc.AddComment(v.ctx, v.actor, t.ID, v.commentInput.Value()); err != nil {
			v.status = errorText(err)
			return v, nil
		}
		v.commentInput.Blur()
		v.commentInput.Reset()
		v.mode = modeDetail
		return v, v.loadDetail(t.ID)
	}
	var cmd tea.Cmd
	v.commentInput, cmd = v.commentInput.Update(msg)
	return v, cmd
}

func (v *TaskListView) updateAssign(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	back := v.assignReturn
	switch {
	case key.Matches(msg, v.keys.Back):
		v.mode = back
	case key.Matches(msg, v.keys.Up):
		v.assignCursor = max(v.assignCursor-1, 0)
	case key.Matches(msg, v.keys.Down):
		v.assignCursor = min(v.assignCursor+1, len(v.users))
	case key.Matches(msg, v.keys.Enter):
		t, ok := v.selected()
		if !ok {
			v.mode = back
			return v, nil
		}
		upd := services.TaskUpdate{ClearAssignee: v.assignCursor == 0}
		if v.assignCursor > 0 {
			id := v.users[v.assignCursor-1].ID
			upd.AssigneeID = &id
		}
		v.mode = back
		return v, v.save(func() (*models.TaskView, error) {
			return v.svc.UpdateTask(v.ctx, v.actor, t.ID, upd)
		})
	}
	return v, nil
}

func (v *TaskListView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.mode = modeList
		t, ok := v.selected()
		if !ok {
			return v, nil
		}
		if err := v.svc.DeleteTask(v.ctx, v.actor, t.ID); err != nil {
			v.status = errorText(err)
			return v, nil
		}
		return v, v.loadTasks
	case "n", "N", "esc":
		v.mode = modeList
	}
	return v, nil
}

func (v *TaskListView) startForm() tea.Cmd {
	v.mode = modeForm
	v.formTitle.Reset()
	v.formDesc.Reset()
	v.formDue.SetValue(v.svc.Today().AddDays(7).String())
	v.formPriority = 1
	v.formFocusIdx = 0
	v.updateFormFocus()
	return textinput.Blink
}

func (v *TaskListView) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	const fields = 5
	switch {
	case key.Matches(msg, v.keys.Back):
		v.mode = modeList
		v.status = ""
		return v, nil
	case key.Matches(msg, v.keys.Save):
		return v, v.createTask()
	case msg.String() == "shift+tab":
		v.formFocusIdx = (v.formFocusIdx + fields - 1) % fields
		v.updateFormFocus()
		return v, nil
	case key.Matches(msg, v.keys.Tab):
		v.formFocusIdx = (v.formFocusIdx + 1) % fields
		v.updateFormFocus()
		return v, nil
	}

	switch v.formFocusIdx {
	case 0:
		if key.Matches(msg, v.keys.Enter) {
			v.formFocusIdx = 1
			v.updateFormFocus()
			return v, nil
		}
		var cmd tea.Cmd
		v.formTitle, cmd = v.formTitle.Update(msg)
		return v, cmd
	case 1:
		var cmd tea.Cmd
		v.formDesc, cmd = v.formDesc.Update(msg)
		return v, cmd
	case 2:
		var cmd tea.Cmd
		v.formDue, cmd = v.formDue.Update(msg)
		return v, cmd
	case 3:
		switch msg.String() {
		case "left", "h":
			v.formPriority = (v.formPriority + len(models.Priorities) - 1) % len(models.Priorities)
		case "right", "l", " ":
			v.formPriority = (v.formPriority + 1) % len(models.Priorities)
		}
		return v, nil
	}
	if key.Matches(msg, v.keys.Enter) {
		return v, v.createTask()
	}
	return v, nil
}

func (v *TaskListView) updateFormFocus() {
	v.formTitle.Blur()
	v.formDesc.Blur()
	v.formDue.Blur()
	switch v.formFocusIdx {
	case 0:
		v.formTitle.Focus()
	case 1:
		v.formDesc.Focus()
	case 2:
		v.formDue.Focus()
	}
}

func (v *TaskListView) createTask() tea.Cmd {
	due, err := models.ParseDate(v.formDue.Value())
	if err != nil {
		v.status = errorText(perrors.NewErrValidation("due_date", "use YYYY-MM-DD"))
		return nil
	}

	_, err = v.svc.CreateTask(v.ctx, v.actor, services.TaskInput{
		ProjectID:   v.project.ID,
		Title:       strings.TrimSpace(v.formTitle.Value()),
		Description: strings.TrimSpace(v.formDesc.Value()),
		DueDate:     due,
		Priority:    models.Priorities[v.formPriority],
	})
	if err != nil {
		v.status = errorText(err)
		return nil
	}
	v.mode = modeList
	v.status = ""
	return v.loadTasks
}

// visibleRows is how many task rows fit between the header and the help line
func (v *TaskListView) visibleRows() int {
	return max((v.height-8)/2, 1)
}

func (v *TaskListView) ensureVisible() {
	rows := v.visibleRows()
	if v.cursor < v.scrollY {
		v.scrollY = v.cursor
	}
	if v.cursor >= v.scrollY+rows {
		v.scrollY = v.cursor - rows + 1
	}
	v.scrollY = clamp(v.scrollY, 0, max(len(v.tasks)-rows, 0))
}

func (v *TaskListView) View() string {
	switch v.mode {
	case modeForm:
		return v.renderForm()
	case modeDetail, modeComment:
		return v.renderDetail()
	case modeAssign:
		return v.renderAssign()
	case modeConfirmDelete:
		t, _ := v.selected()
		return confirmBox(v.styles, "Delete Task?", fmt.Sprintf("%q will be removed.", t.Title), v.width, v.height)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		v.renderHeader(),
		v.renderTaskList(),
		v.renderStatus(),
		v.renderHelp(),
	)
	return styles.CenterView(content, v.width, v.height)
}

func (v *TaskListView) renderHeader() string {
	s := v.styles
	title := s.Title.Render("← " + v.project.Name)
	progress := s.TitleMuted.Render(styles.ProgressBar(v.project.Progress, 12))

	searchStyle := s.Input
	if v.mode == modeSearch {
		searchStyle = s.InputFocused
	}
	search := searchStyle.Width(clamp(styles.ContentWidth(v.width)-8, 20, 40)).Render(v.search.View())

	filter := "all tasks"
	if v.hideCompleted {
		filter = "open tasks"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", progress),
		lipgloss.JoinHorizontal(lipgloss.Center, search, "  ", s.TitleMuted.Render(filter)),
	)
}

func (v *TaskListView) renderTaskList() string {
	if len(v.tasks) == 0 {
		return v.styles.TitleMuted.Padding(1, 2).Render("No tasks. Press 'n' to add one.")
	}

	end := min(v.scrollY+v.visibleRows(), len(v.tasks))
	rows := make([]string, 0, end-v.scrollY)
	for i := v.scrollY; i < end; i++ {
		rows = append(rows, v.renderTaskItem(v.tasks[i], i == v.cursor))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (v *TaskListView) renderTaskItem(t models.TaskView, selected bool) string {
	s := v.styles
	width := max(styles.ContentWidth(v.width)-4, 20)

	lineStyle := s.ListItem
	if selected {
		lineStyle = s.ListSelected
	}

	due := dueLabel(t)
	if t.Overdue {
		due = s.Overdue.Render(due)
	}
	assignee := t.AssigneeName
	if assignee == "" {
		assignee = "unassigned"
	}

	title := lineStyle.Width(width).Render(truncate(t.Title, width-4))
	meta := lipgloss.JoinHorizontal(lipgloss.Top,
		s.StateBadge(t.State),
		s.PriorityBadge(t.Priority),
		s.TitleMuted.Render(fmt.Sprintf("%s  @%s  ", t.DueDate, assignee)),
		due,
	)
	return lipgloss.JoinVertical(lipgloss.Left, title, "  "+meta)
}

func (v *TaskListView) renderStatus() string {
	if v.status == "" {
		return ""
	}
	return v.styles.Error.Render(v.status)
}

func (v *TaskListView) renderHelp() string {
	if v.mode == modeSearch {
		return helpLine(v.styles, "↵", "apply", "esc", "clear")
	}
	return helpLine(v.styles,
		"↵", "open", "n", "new", "s", "state", "p", "priority",
		"a", "assign", "d", "del", "/", "search", "o", "open only", "esc", "back")
}

func (v *TaskListView) renderForm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	inputWidth := clamp(contentWidth-6, 20, 60)

	styleFor := func(idx int) lipgloss.Style {
		if v.formFocusIdx == idx {
			return s.InputFocused
		}
		return s.Input
	}

	priorities := make([]string, len(models.Priorities))
	for i, p := range models.Priorities {
		if i == v.formPriority {
			priorities[i] = s.PriorityBadge(p)
		} else {
			priorities[i] = s.Badge.Foreground(styles.Current.ForegroundDim).Render(p.Label())
		}
	}
	priorityBox := styleFor(3).Width(inputWidth).Render(strings.Join(priorities, " "))

	btn := s.Button
	if v.formFocusIdx == 4 {
		btn = s.ButtonFocused
	}

	form := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("New Task in "+v.project.Name),
		"",
		"Title:",
		styleFor(0).Width(inputWidth).Render(v.formTitle.View()),
		"Description:",
		styleFor(1).Width(inputWidth).Render(v.formDesc.View()),
		"Due date:",
		styleFor(2).Width(inputWidth).Render(v.formDue.View()),
		"Priority (←/→):",
		priorityBox,
		"",
		btn.Render(" Create "),
		v.renderStatus(),
		s.TitleMuted.Render("Tab: next • Ctrl+S: save • Esc: cancel"),
	)

	padded := lipgloss.NewStyle().Padding(1, 2).Render(form)
	return styles.CenterView(padded, v.width, v.height)
}

func (v *TaskListView) renderDetail() string {
	t, ok := v.selected()
	if !ok {
		return ""
	}

	s := v.styles
	label := s.TitleMuted
	textWidth := clamp(styles.ContentWidth(v.width)-10, 20, 70)
	text := lipgloss.NewStyle().Width(textWidth)

	assignee := t.AssigneeName
	if assignee == "" {
		assignee = s.TitleMuted.Render("Unassigned")
	}
	desc := t.Description
	if desc == "" {
		desc = s.TitleMuted.Render("No description")
	}
	due := t.DueDate.String() + "  " + dueLabel(t)
	if t.Overdue {
		due = s.Overdue.Render(due)
	}

	lines := []string{
		s.Title.MarginBottom(1).Render(t.Title),
		lipgloss.JoinHorizontal(lipgloss.Top, s.StateBadge(t.State), s.PriorityBadge(t.Priority)),
		"",
		label.Render("Assignee"), assignee,
		label.Render("Due"), due,
		label.Render("Description"), text.Render(desc),
		"",
		label.Render("History"),
	}
	for _, h := range v.history {
		lines = append(lines, s.TitleMuted.Render(h.CreatedAt.Local().Format("Jan 2 15:04")+" "+h.Username)+" "+text.Render(h.Action))
	}

	lines = append(lines, "", label.Render("Comments"))
	if len(v.comments) == 0 {
		lines = append(lines, s.TitleMuted.Render("No comments yet"))
	}
	for _, c := range v.comments {
		lines = append(lines,
			s.TitleMuted.Render(c.CreatedAt.Local().Format("Jan 2, 2006 3:04 PM")+" "+c.Username),
			text.Render(c.Content),
		)
	}

	if v.mode == modeComment {
		lines = append(lines, "", s.InputFocused.Render(v.commentInput.View()),
			helpLine(s, "ctrl+s", "submit", "esc", "cancel"))
	} else {
		lines = append(lines, helpLine(s, "s", "state", "p", "priority", "a", "assign", "c", "comment", "d", "delete", "esc", "back"))
	}
	lines = append(lines, v.renderStatus())

	padded := lipgloss.NewStyle().Padding(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	return styles.CenterView(padded, v.width, v.height)
}

func (v *TaskListView) renderAssign() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	rows := []string{s.Title.Render("Assign to"), ""}
	options := make([]string, 0, len(v.users)+1)
	options = append(options, "Unassigned")
	for _, u := range v.users {
		options = append(options, u.Username)
	}
	for i, name := range options {
		style := s.ListItem
		if i == v.assignCursor {
			style = s.ListSelected
		}
		rows = append(rows, style.Render(name))
	}
	rows = append(rows, "", s.TitleMuted.Render("↵: assign • Esc: cancel"))

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.Panel.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)),
	)
	return styles.CenterView(centered, v.width, v.height)
}
