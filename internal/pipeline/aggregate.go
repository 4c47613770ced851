package pipeline

import (
	"sort"

	"github.com/deanwagman/peregrine/internal/domain"
)

// Histogram counts occurrences per canonical value key and remembers the order
// in which keys were first seen.
type Histogram struct {
	counts map[string]int
	order  []string
}

func newHistogram() *Histogram {
	return &Histogram{counts: make(map[string]int)}
}

func (h *Histogram) add(key string) {
	if _, seen := h.counts[key]; !seen {
		h.order = append(h.order, key)
	}
	h.counts[key]++
}

// Count returns the number of occurrences recorded for key.
func (h *Histogram) Count(key string) int {
	return h.counts[key]
}

// Len returns the number of distinct keys.
func (h *Histogram) Len() int {
	return len(h.order)
}

// Aggregation maps a property slug to its value histogram.
type Aggregation map[string]*Histogram

// Aggregate counts every non-null value of every record, bucketed by slug and
// by the value's canonical key. Input must be fully materialized.
func Aggregate(records []domain.Record) Aggregation {
	aggregation := make(Aggregation)
	for _, record := range records {
		for slug, value := range record {
			if value.IsNull() {
				continue
			}
			histogram, ok := aggregation[slug]
			if !ok {
				histogram = newHistogram()
				aggregation[slug] = histogram
			}
			histogram.add(value.Key())
		}
	}
	return aggregation
}

// AggregateEntities aggregates nested entities.
func AggregateEntities(entities []domain.Entity) Aggregation {
	return Aggregate(domain.Records(entities))
}

// Format converts the aggregation into per-slug value lists sorted by
// descending count. Ties keep first-seen order.
func (a Aggregation) Format() domain.Result {
	result := make(domain.Result, len(a))
	for slug, histogram := range a {
		if histogram.Len() == 0 {
			continue
		}
		counts := make([]domain.ValueCount, 0, histogram.Len())
		for _, key := range histogram.order {
			counts = append(counts, domain.ValueCount{
				Value: domain.ParseKey(key),
				Count: histogram.counts[key],
			})
		}
		sort.SliceStable(counts, func(i, j int) bool {
			return counts[i].Count > counts[j].Count
		})
		result[slug] = counts
	}
	return result
}
