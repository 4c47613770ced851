package service

import (
	"context"

	"github.com/deanwagman/peregrine/internal/domain"
	"github.com/deanwagman/peregrine/internal/ingestion"
	"github.com/deanwagman/peregrine/internal/repository"
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=interfaces.go RecordSource,EntitySink,EntityReader,InvocationRecorder

// RecordSource supplies records that are already filtered by model and
// property.
type RecordSource interface {
	Models(ctx context.Context) ([]string, error)
	Query(ctx context.Context, model string, filter domain.FilterMap) ([]domain.Record, error)
}

// EntitySink persists entities.
type EntitySink interface {
	Save(ctx context.Context, entities []domain.Entity) (repository.SaveResult, error)
}

// EntityReader reads entity files.
type EntityReader interface {
	ReadFile(ctx context.Context, path string, opts ingestion.Options) (ingestion.Batch, error)
}

// InvocationRecorder records that a command ran. It is called once per run,
// after the result is complete.
type InvocationRecorder interface {
	RecordInvocation(ctx context.Context, command string, user string) error
}
