// Package jobs defines the background tasks processed by the worker binary.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInviteEmail delivers the invitation email for a pending account.
	TaskInviteEmail = "mail:invite"
	// TaskSessionPurge removes expired session rows from the database.
	TaskSessionPurge = "sessions:purge"
)

// InviteEmailPayload describes the invitation to deliver.
type InviteEmailPayload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// NewInviteEmailTask constructs an Asynq task for an invitation email.
func NewInviteEmailTask(payload InviteEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInviteEmail, data), nil
}

// NewSessionPurgeTask constructs the periodic session purge task.
func NewSessionPurgeTask() *asynq.Task {
	return asynq.NewTask(TaskSessionPurge, nil)
}
