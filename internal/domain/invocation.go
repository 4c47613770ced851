package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	InvocationStatusSucceeded = "succeeded"
	InvocationStatusFailed    = "failed"
)

// Invocation captures one command-line run for the audit log.
type Invocation struct {
	ID        uuid.UUID `json:"id"`
	Command   string    `json:"command"`
	Username  string    `json:"username"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// NewInvocation creates an invocation record stamped with the current time.
func NewInvocation(command, username, status string) Invocation {
	return Invocation{
		ID:        uuid.New(),
		Command:   command,
		Username:  username,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
}
