// Package pipeline implements the filter-and-aggregate core: property filter
// parsing, entity filtering and value histograms. Everything here is pure and
// single-threaded; sources and sinks live in other packages.
package pipeline

import "github.com/deanwagman/peregrine/internal/domain"

// Request is the raw user input for one run.
type Request struct {
	Models     []string
	Properties []string
}

// Outcome is the formatted result of a run plus the filter expressions that
// were skipped on the way.
type Outcome struct {
	Result  domain.Result
	Skipped []FilterError
	Matched int
}

// Run parses the filters, filters entities and aggregates the survivors.
func Run(entities []domain.Entity, req Request) Outcome {
	properties, skipped := ParseFilters(req.Properties)
	matched := FilterEntities(entities, domain.EntityFilter{
		Models:     req.Models,
		Properties: properties,
	})
	return Outcome{
		Result:  AggregateEntities(matched).Format(),
		Skipped: skipped,
		Matched: len(matched),
	}
}

// RunRecords aggregates records that a source has already filtered.
func RunRecords(records []domain.Record, skipped []FilterError) Outcome {
	return Outcome{
		Result:  Aggregate(records).Format(),
		Skipped: skipped,
		Matched: len(records),
	}
}
