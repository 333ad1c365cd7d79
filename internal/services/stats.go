package services

import (
	"context"

	"github.com/tgienger/taskboard/internal/db"
	"github.com/tgienger/taskboard/internal/models"
	"github.com/tgienger/taskboard/internal/perrors"
)

const (
	upcomingWindowDays = 7
	upcomingLimit      = 5
)

// Stats are the dashboard counters
type Stats struct {
	Projects   int                      `json:"projects"`
	Tasks      int                      `json:"tasks"`
	ByState    map[models.TaskState]int `json:"by_state"`
	ByPriority map[models.Priority]int  `json:"by_priority"`
	MyTasks    map[models.TaskState]int `json:"my_tasks"`
	Overdue    int                      `json:"overdue"`
	Unread     int                      `json:"unread_notifications"`
	Upcoming   []models.TaskView        `json:"upcoming"`
}

// Stats collects the dashboard counters for actor
func (s *Service) Stats(ctx context.Context, actor *models.User) (*Stats, error) {
	if actor == nil {
		return nil, perrors.NewErrUnauthorized("authentication required")
	}

	var st Stats
	var err error
	today := s.Today()

	if st.Projects, err = s.db.CountProjects(ctx); err != nil {
		return nil, err
	}
	if st.ByState, err = s.db.CountTasksByState(ctx, nil); err != nil {
		return nil, err
	}
	for _, n := range st.ByState {
		st.Tasks += n
	}
	if st.ByPriority, err = s.db.CountTasksByPriority(ctx); err != nil {
		return nil, err
	}
	if st.MyTasks, err = s.db.CountTasksByState(ctx, &actor.ID); err != nil {
		return nil, err
	}
	if st.Overdue, err = s.db.CountOverdueTasks(ctx, today); err != nil {
		return nil, err
	}
	if st.Unread, err = s.db.CountUnread(ctx, actor.ID); err != nil {
		return nil, err
	}

	until := today.AddDays(upcomingWindowDays)
	upcoming, err := s.db.ListTasks(ctx, db.TaskFilter{
		DueFrom:          &today,
		DueTo:            &until,
		ExcludeCompleted: true,
		Limit:            upcomingLimit,
	})
	if err != nil {
		return nil, err
	}
	if st.Upcoming, err = s.taskViews(ctx, upcoming); err != nil {
		return nil, err
	}

	return &st, nil
}
