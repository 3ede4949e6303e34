package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTotalsIntegrity is the task type for the stored-totals integrity scan.
	TaskTotalsIntegrity = "billing:totals_integrity"
)

// NewTotalsIntegrityTask constructs an Asynq task for the integrity scan.
// The scan takes no parameters, so the payload is empty.
func NewTotalsIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskTotalsIntegrity, nil)
}
