// Package views holds the bubbletea models behind each TUI screen
package views

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/taskboard/internal/models"
	"github.com/tgienger/taskboard/internal/perrors"
	"github.com/tgienger/taskboard/internal/ui/styles"
)

// LoggedIn is sent once the login view has authenticated a user
type LoggedIn struct {
	User *models.User
}

// SelectedProject asks the app to open the task list of a project
type SelectedProject struct {
	Project models.ProjectView
}

// BackToProjects asks the app to return to the project list
type BackToProjects struct{}

// OpenInbox asks the app to show the notification list
type OpenInbox struct{}

// errMsg carries a failed command back into Update
type errMsg struct {
	err error
}

func (e errMsg) Error() string { return e.err.Error() }

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// errorText turns an error into a single status line
func errorText(err error) string {
	var perr perrors.Err
	if errors.As(err, &perr) {
		if perr.Field != "" {
			return fmt.Sprintf("%s: %s", perr.Field, perr.Message)
		}
		return perr.Message
	}
	return err.Error()
}

// dueLabel describes how far away a task's due date is
func dueLabel(t models.TaskView) string {
	switch {
	case t.State == models.StateCompleted:
		return "done"
	case t.Overdue:
		return fmt.Sprintf("%dd overdue", -t.DaysRemaining)
	case t.DaysRemaining == 0:
		return "due today"
	case t.DaysRemaining == 1:
		return "due tomorrow"
	}
	return fmt.Sprintf("in %dd", t.DaysRemaining)
}

// helpLine renders key/description pairs separated by bullets
func helpLine(s *styles.Styles, pairs ...string) string {
	parts := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, s.HelpKey.Render(pairs[i])+" "+pairs[i+1])
	}
	return s.Help.Render(strings.Join(parts, " • "))
}

// confirmBox renders a centered yes/no prompt
func confirmBox(s *styles.Styles, title, detail string, width, height int) string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render(title),
		"",
		s.TitleMuted.Render(detail),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			s.ButtonPrimary.Render(" Y - Yes "),
			"  ",
			s.Button.Render(" N - No "),
		),
	)

	centered := lipgloss.Place(styles.ContentWidth(width), height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, width, height)
}
