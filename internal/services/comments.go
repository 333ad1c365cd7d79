package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/tgienger/taskboard/internal/audit"
	"github.com/tgienger/taskboard/internal/db"
	"github.com/tgienger/taskboard/internal/models"
	"github.com/tgienger/taskboard/internal/perrors"
)

const (
	minCommentLen = 3
	maxCommentLen = 2000
)

// AddComment posts a comment on a task and tells the assignee about it
func (s *Service) AddComment(ctx context.Context, actor *models.User, taskID int64, content string) (*models.Comment, error) {
	if actor == nil {
		return nil, perrors.NewErrUnauthorized("authentication required")
	}
	content, err := requireText("content", content, minCommentLen, maxCommentLen)
	if err != nil {
		return nil, err
	}

	var comment *models.Comment
	err = s.db.WithTx(ctx, func(tx *db.Tx) error {
		t, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		if comment, err = tx.CreateComment(ctx, taskID, actor.ID, content); err != nil {
			return err
		}

		if notice := audit.CommentNotice(*t, *actor); notice != nil {
			s.logAuditFailure(s.engine.Notify(ctx, tx, *notice), logrus.Fields{"task_id": taskID, "actor": actor.Username})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// ListComments returns a task's comments, oldest first
func (s *Service) ListComments(ctx context.Context, actor *models.User, taskID int64) ([]models.Comment, error) {
	if actor == nil {
		return nil, perrors.NewErrUnauthorized("authentication required")
	}
	if _, err := s.db.GetTask(ctx, taskID); err != nil {
		return nil, err
	}
	return s.db.ListComments(ctx, taskID)
}
