// Package jobs runs the background side of the back office: replaying
// journaled channel calls that failed during a workflow transition.
package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeChannelReplay retries journaled storefront channel calls.
	TaskTypeChannelReplay = "channel:replay"
)

// NewChannelReplayTask constructs an Asynq task. The task carries no
// payload; the handler drains whatever is pending in the journal.
func NewChannelReplayTask() *asynq.Task {
	return asynq.NewTask(TaskTypeChannelReplay, nil)
}
