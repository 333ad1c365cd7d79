package models

import "math"

// ProjectProgress returns the percentage of completed tasks, rounded to two decimals.
// A project with no tasks has zero progress.
func ProjectProgress(tasks []Task) float64 {
	if len(tasks) == 0 {
		return 0
	}
	completed := 0
	for _, t := range tasks {
		if t.State == StateCompleted {
			completed++
		}
	}
	return Progress(completed, len(tasks))
}

// Progress computes round(100 * completed / total, 2)
func Progress(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*100*100) / 100
}

// IsOverdue reports whether the project's end date has passed while work remains
func (p *Project) IsOverdue(progress float64, today Date) bool {
	if p.EndDate == nil {
		return false
	}
	return today.After(*p.EndDate) && progress < 100
}

// IsOverdue reports whether the task is past its due date and not completed
func (t *Task) IsOverdue(today Date) bool {
	return today.After(t.DueDate) && t.State != StateCompleted
}

// DaysRemaining is negative once the due date has passed
func (t *Task) DaysRemaining(today Date) int {
	return today.DaysUntil(t.DueDate)
}

// ProjectView is a project together with its derived metrics
type ProjectView struct {
	Project
	TaskCount int     `json:"task_count"`
	Progress  float64 `json:"progress"`
	Overdue   bool    `json:"overdue"`
}

// NewProjectView computes the derived metrics for p over its tasks
func NewProjectView(p Project, tasks []Task, today Date) ProjectView {
	progress := ProjectProgress(tasks)
	return ProjectView{
		Project:   p,
		TaskCount: len(tasks),
		Progress:  progress,
		Overdue:   p.IsOverdue(progress, today),
	}
}

// TaskView is a task together with its derived metrics
type TaskView struct {
	Task
	AssigneeName  string `json:"assignee_name,omitempty"`
	Overdue       bool   `json:"overdue"`
	DaysRemaining int    `json:"days_remaining"`
}

// NewTaskView computes the derived metrics for t
func NewTaskView(t Task, assigneeName string, today Date) TaskView {
	return TaskView{
		Task:          t,
		AssigneeName:  assigneeName,
		Overdue:       t.IsOverdue(today),
		DaysRemaining: t.DaysRemaining(today),
	}
}
