package service

import (
	"context"

	"github.com/deanwagman/peregrine/internal/domain"
	"github.com/deanwagman/peregrine/internal/repository"
)

// AuditRecorder writes invocations to the command log.
type AuditRecorder struct {
	log repository.InvocationLog
}

// NewAuditRecorder creates a recorder backed by log.
func NewAuditRecorder(log repository.InvocationLog) *AuditRecorder {
	return &AuditRecorder{log: log}
}

// RecordInvocation logs a completed run.
func (r *AuditRecorder) RecordInvocation(ctx context.Context, command string, user string) error {
	return r.log.Record(ctx, domain.NewInvocation(command, user, domain.InvocationStatusSucceeded))
}

// RecordFailure logs a run that ended in an error.
func (r *AuditRecorder) RecordFailure(ctx context.Context, command string, user string) error {
	return r.log.Record(ctx, domain.NewInvocation(command, user, domain.InvocationStatusFailed))
}
