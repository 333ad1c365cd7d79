package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/tgienger/taskboard/internal/logging"
	"github.com/tgienger/taskboard/internal/models"
	"github.com/tgienger/taskboard/internal/perrors"
)

// maxMessageLen is the notification column limit
const maxMessageLen = 255

// Kind tells the engine whether the task was just created or changed
type Kind int

const (
	Created Kind = iota
	Updated
)

// Mutation describes one completed task save
type Mutation struct {
	Kind Kind
	// Before is nil for Created, and for Updated when the snapshot could not be read
	Before *Snapshot
	// Task holds the values just written
	Task models.Task
	// Assignee is the resolved user of Task.AssigneeID, if any
	Assignee *models.User
	// Actor performed the save; nil falls back to the task creator
	Actor *models.User
}

// HistoryRecord is one history entry to append
type HistoryRecord struct {
	TaskID int64
	UserID int64
	Action string
}

// NotificationRecord is one notification to deliver
type NotificationRecord struct {
	UserID  int64
	TaskID  int64
	Type    models.NotificationType
	Message string
}

// Effects are the audit rows one mutation produces
type Effects struct {
	History       []HistoryRecord
	Notifications []NotificationRecord
}

// Empty reports whether nothing needs to be written
func (e Effects) Empty() bool {
	return len(e.History) == 0 && len(e.Notifications) == 0
}

// Plan computes the effects of m without touching storage
func Plan(m Mutation) Effects {
	var eff Effects
	t := m.Task

	actorID := t.CreatorID
	if m.Actor != nil {
		actorID = m.Actor.ID
	}

	switch m.Kind {
	case Created:
		eff.History = append(eff.History, HistoryRecord{
			TaskID: t.ID,
			UserID: actorID,
			Action: fmt.Sprintf("Task '%s' created", t.Title),
		})
		if t.AssigneeID != nil {
			eff.Notifications = append(eff.Notifications, assignmentNotice(t))
		}

	case Updated:
		if m.Before == nil {
			return eff
		}

		if m.Before.State != t.State {
			eff.History = append(eff.History, HistoryRecord{
				TaskID: t.ID,
				UserID: actorID,
				Action: fmt.Sprintf("State changed from '%s' to '%s'", m.Before.State, t.State),
			})
			if t.AssigneeID != nil {
				eff.Notifications = append(eff.Notifications, NotificationRecord{
					UserID:  *t.AssigneeID,
					TaskID:  t.ID,
					Type:    models.NotifyStateChange,
					Message: truncate(fmt.Sprintf("The state of '%s' changed to %s", t.Title, t.State.Label())),
				})
			}
		}

		// unassignment leaves no trace
		if !sameAssignee(m.Before.AssigneeID, t.AssigneeID) && t.AssigneeID != nil {
			eff.History = append(eff.History, HistoryRecord{
				TaskID: t.ID,
				UserID: actorID,
				Action: fmt.Sprintf("Task assigned to %s", assigneeName(m)),
			})
			eff.Notifications = append(eff.Notifications, assignmentNotice(t))
		}
	}

	return eff
}

// CommentNotice is the notification sent to the assignee when someone else comments
func CommentNotice(t models.Task, author models.User) *NotificationRecord {
	if t.AssigneeID == nil || *t.AssigneeID == author.ID {
		return nil
	}
	return &NotificationRecord{
		UserID:  *t.AssigneeID,
		TaskID:  t.ID,
		Type:    models.NotifyComment,
		Message: truncate(fmt.Sprintf("%s commented on '%s'", author.Username, t.Title)),
	}
}

// DueSoonNotice is the reminder for a task close to its due date
func DueSoonNotice(t models.Task, today models.Date) NotificationRecord {
	var when string
	switch days := t.DaysRemaining(today); days {
	case 0:
		when = "today"
	case 1:
		when = "tomorrow"
	default:
		when = fmt.Sprintf("in %d days", days)
	}
	return NotificationRecord{
		UserID:  *t.AssigneeID,
		TaskID:  t.ID,
		Type:    models.NotifyDueSoon,
		Message: truncate(fmt.Sprintf("The task '%s' is due %s", t.Title, when)),
	}
}

func assignmentNotice(t models.Task) NotificationRecord {
	return NotificationRecord{
		UserID:  *t.AssigneeID,
		TaskID:  t.ID,
		Type:    models.NotifyAssignment,
		Message: truncate("You have been assigned the task: " + t.Title),
	}
}

func assigneeName(m Mutation) string {
	if m.Assignee != nil {
		return m.Assignee.Username
	}
	return fmt.Sprintf("user #%d", *m.Task.AssigneeID)
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxMessageLen {
		return s
	}
	return string(r[:maxMessageLen-3]) + "..."
}

// Store is where audit rows are written
type Store interface {
	CreateHistoryEntry(ctx context.Context, taskID, userID int64, action string) (int64, error)
	CreateNotification(ctx context.Context, userID, taskID int64, typ models.NotificationType, message string) (int64, error)
}

// TxStore is a Store bound to the mutation's open transaction
type TxStore interface {
	Store
	Savepoint(ctx context.Context, name string, fn func() error) error
}

// Engine writes the effects of task mutations
type Engine struct {
	cb  *gobreaker.CircuitBreaker
	log logrus.FieldLogger
}

// NewEngine returns an engine whose notification writes go through a circuit breaker
func NewEngine() *Engine {
	log := logging.Logger.WithField("component", "audit")
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "notifications-cb",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
				Warn("circuit breaker state changed")
		},
	})
	return &Engine{cb: cb, log: log}
}

// Emit writes the effects of m inside a savepoint of tx. History is all or nothing:
// if any entry fails, the savepoint is rolled back and no audit rows remain.
// Notifications are then delivered one by one; a failed one does not undo the
// others or the history. Failures come back as a single AuditWrite error and never
// affect the task save itself.
func (e *Engine) Emit(ctx context.Context, tx TxStore, m Mutation) error {
	eff := Plan(m)
	if eff.Empty() {
		return nil
	}

	var notifyErrs []error
	err := tx.Savepoint(ctx, "audit", func() error {
		for _, h := range eff.History {
			if _, err := tx.CreateHistoryEntry(ctx, h.TaskID, h.UserID, h.Action); err != nil {
				return err
			}
		}
		notifyErrs = e.deliver(ctx, tx, eff.Notifications)
		return nil
	})
	if err != nil {
		return perrors.NewErrAuditWrite(fmt.Sprintf("history for task %d", m.Task.ID), err)
	}
	if len(notifyErrs) > 0 {
		return perrors.NewErrAuditWrite(fmt.Sprintf("notifications for task %d", m.Task.ID), errors.Join(notifyErrs...))
	}
	return nil
}

// Notify delivers standalone notifications, such as comment and due-soon notices
func (e *Engine) Notify(ctx context.Context, s Store, list ...NotificationRecord) error {
	if errs := e.deliver(ctx, s, list); len(errs) > 0 {
		return perrors.NewErrAuditWrite("notifications", errors.Join(errs...))
	}
	return nil
}

func (e *Engine) deliver(ctx context.Context, s Store, list []NotificationRecord) []error {
	var errs []error
	for _, n := range list {
		_, err := e.cb.Execute(func() (any, error) {
			return s.CreateNotification(ctx, n.UserID, n.TaskID, n.Type, n.Message)
		})
		if err != nil {
			e.log.WithError(err).WithFields(logrus.Fields{
				"user_id": n.UserID,
				"task_id": n.TaskID,
				"type":    n.Type,
			}).Warn("notification not delivered")
			errs = append(errs, err)
		}
	}
	return errs
}
