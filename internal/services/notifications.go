package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/tgienger/taskboard/internal/audit"
	"github.com/tgienger/taskboard/internal/db"
	"github.com/tgienger/taskboard/internal/models"
	"github.com/tgienger/taskboard/internal/perrors"
)

// ListNotifications returns the actor's notifications, newest first
func (s *Service) ListNotifications(ctx context.Context, actor *models.User, unreadOnly bool) ([]models.Notification, error) {
	if actor == nil {
		return nil, perrors.NewErrUnauthorized("authentication required")
	}
	return s.db.ListNotifications(ctx, actor.ID, unreadOnly)
}

// UnreadCount returns how many unread notifications the actor has
func (s *Service) UnreadCount(ctx context.Context, actor *models.User) (int, error) {
	if actor == nil {
		return 0, perrors.NewErrUnauthorized("authentication required")
	}
	return s.db.CountUnread(ctx, actor.ID)
}

// MarkRead marks one of the actor's notifications as read
func (s *Service) MarkRead(ctx context.Context, actor *models.User, id int64) error {
	if actor == nil {
		return perrors.NewErrUnauthorized("authentication required")
	}
	return s.db.MarkRead(ctx, id, actor.ID)
}

// MarkAllRead marks every notification of the actor as read
func (s *Service) MarkAllRead(ctx context.Context, actor *models.User) (int64, error) {
	if actor == nil {
		return 0, perrors.NewErrUnauthorized("authentication required")
	}
	return s.db.MarkAllRead(ctx, actor.ID)
}

// NotifyDueSoon reminds assignees of unfinished tasks due within days. A task that
// already has an unread reminder for its assignee is skipped. It returns how many
// reminders were created.
func (s *Service) NotifyDueSoon(ctx context.Context, days int) (int, error) {
	if days < 0 {
		return 0, perrors.NewErrValidation("days", "days cannot be negative")
	}

	today := s.Today()
	until := today.AddDays(days)
	tasks, err := s.db.ListTasks(ctx, db.TaskFilter{
		DueFrom:          &today,
		DueTo:            &until,
		ExcludeCompleted: true,
	})
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, t := range tasks {
		if t.AssigneeID == nil {
			continue
		}
		has, err := s.db.HasUnread(ctx, *t.AssigneeID, t.ID, models.NotifyDueSoon)
		if err != nil {
			return sent, err
		}
		if has {
			continue
		}
		if err := s.engine.Notify(ctx, s.db, audit.DueSoonNotice(t, today)); err != nil {
			s.logAuditFailure(err, logrus.Fields{"task_id": t.ID})
			continue
		}
		sent++
	}

	s.log.WithFields(logrus.Fields{"days": days, "sent": sent}).Info("due soon reminders sent")
	return sent, nil
}
