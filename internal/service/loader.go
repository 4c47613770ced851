package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/deanwagman/peregrine/internal/ingestion"
	"github.com/deanwagman/peregrine/internal/repository"
)

// LoadSummary reports the outcome of loading one file into the store.
type LoadSummary struct {
	TotalEntities int                   `json:"totalEntities"`
	SavedEntities int                   `json:"savedEntities"`
	Rejected      []ingestion.Rejection `json:"rejected"`
}

// Loader moves entities from files into the store.
type Loader struct {
	reader EntityReader
	sink   EntitySink
	logger *zap.SugaredLogger
}

// NewLoader creates a loader.
func NewLoader(reader EntityReader, sink EntitySink, logger *zap.SugaredLogger) *Loader {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Loader{reader: reader, sink: sink, logger: logger}
}

// Load reads path and saves every accepted entity. Entities rejected by the
// reader or by the store are listed in the summary; neither fails the load.
func (l *Loader) Load(ctx context.Context, path string, opts ingestion.Options) (LoadSummary, error) {
	batch, err := l.reader.ReadFile(ctx, path, opts)
	if err != nil {
		return LoadSummary{}, err
	}

	summary := LoadSummary{
		TotalEntities: batch.Total,
		Rejected:      append([]ingestion.Rejection{}, batch.Rejected...),
	}
	if len(batch.Entities) == 0 {
		return summary, nil
	}

	result, err := l.sink.Save(ctx, batch.Entities)
	if err != nil {
		return LoadSummary{}, fmt.Errorf("failed to store entities from %s: %w", path, err)
	}
	summary.SavedEntities = result.Saved
	summary.Rejected = append(summary.Rejected, storeRejections(batch, result.Rejected)...)

	l.logger.Infow("Loaded entities",
		"file", path,
		"total", summary.TotalEntities,
		"saved", summary.SavedEntities,
		"rejected", len(summary.Rejected))
	return summary, nil
}

func storeRejections(batch ingestion.Batch, rejected []repository.EntityRejection) []ingestion.Rejection {
	out := make([]ingestion.Rejection, 0, len(rejected))
	for _, r := range rejected {
		row := 0
		if r.Index >= 0 && r.Index < len(batch.Rows) {
			row = batch.Rows[r.Index]
		}
		out = append(out, ingestion.Rejection{Row: row, Model: r.Model, Reason: r.Reason})
	}
	return out
}
