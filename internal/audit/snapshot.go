package audit

import (
	"context"

	"github.com/tgienger/taskboard/internal/models"
)

// Snapshot is the persisted state and assignee of a task just before a save
type Snapshot struct {
	State      models.TaskState
	AssigneeID *int64
}

// StateReader reads the persisted fields a snapshot needs
type StateReader interface {
	GetTaskState(ctx context.Context, id int64) (models.TaskState, *int64, error)
}

// Capture reads the snapshot of taskID. It must run inside the mutation's transaction,
// before the write. A row that cannot be read yields nil, and the save carries on
// without change entries.
func Capture(ctx context.Context, r StateReader, taskID int64) *Snapshot {
	state, assigneeID, err := r.GetTaskState(ctx, taskID)
	if err != nil {
		return nil
	}
	return &Snapshot{State: state, AssigneeID: assigneeID}
}

func sameAssignee(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
