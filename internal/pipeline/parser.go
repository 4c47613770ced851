package pipeline

import (
	"fmt"
	"strings"

	"github.com/deanwagman/peregrine/internal/domain"
)

// FilterError describes a property filter expression that was skipped.
type FilterError struct {
	Expression string
	Reason     string
}

func (e FilterError) Error() string {
	return fmt.Sprintf("invalid property filter %q: %s", e.Expression, e.Reason)
}

// ParseFilters turns "key:v1,v2" expressions into a FilterMap. Each value is
// trimmed and type-inferred (numbers, booleans and null are parsed, everything
// else stays text); quote a value to keep surrounding spaces. Malformed expressions are skipped and reported; they never abort the
// parse. Repeated keys accumulate their values.
func ParseFilters(expressions []string) (domain.FilterMap, []FilterError) {
	filters := make(domain.FilterMap)
	var skipped []FilterError

	for _, expression := range expressions {
		key, rawValues, found := strings.Cut(expression, ":")
		key = strings.TrimSpace(key)
		if !found {
			skipped = append(skipped, FilterError{Expression: expression, Reason: "missing ':' separator"})
			continue
		}
		if key == "" {
			skipped = append(skipped, FilterError{Expression: expression, Reason: "missing property key"})
			continue
		}

		var values []domain.Value
		for _, raw := range strings.Split(rawValues, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			values = append(values, domain.InferValue(raw))
		}
		if len(values) == 0 {
			skipped = append(skipped, FilterError{Expression: expression, Reason: "missing value list"})
			continue
		}

		filters[key] = append(filters[key], values...)
	}

	return filters, skipped
}
