package repository

import (
	"context"
	"errors"

	"github.com/deanwagman/peregrine/internal/domain"
)

// ErrTypeConflict is reported when a property's type disagrees with the type
// already recorded for its slug.
var ErrTypeConflict = errors.New("property type conflict")

// EntityStore persists entities in per-model tables and answers filtered
// record queries.
type EntityStore interface {
	Save(ctx context.Context, entities []domain.Entity) (SaveResult, error)
	Models(ctx context.Context) ([]string, error)
	Query(ctx context.Context, model string, filter domain.FilterMap) ([]domain.Record, error)
}

// SaveResult reports what a Save call persisted.
type SaveResult struct {
	Saved    int
	Rejected []EntityRejection
}

// EntityRejection describes an entity that was not stored. Index is the
// entity's position in the slice passed to Save.
type EntityRejection struct {
	Index  int    `json:"index"`
	Model  string `json:"model"`
	Reason string `json:"reason"`
}

// InvocationLog stores one row per command run for auditing.
type InvocationLog interface {
	Record(ctx context.Context, invocation domain.Invocation) error
	List(ctx context.Context, limit int, offset int) ([]domain.Invocation, error)
}
