package domain

import "sort"

// FilterMap maps a property slug to its ordered acceptable values. A slug that
// is absent imposes no constraint; a present slug must be carried by the
// entity with a matching value.
type FilterMap map[string][]Value

// Keys returns the filtered slugs in sorted order.
func (m FilterMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Accepts reports whether value is one of the acceptable values for slug.
func (m FilterMap) Accepts(slug string, value Value) bool {
	for _, candidate := range m[slug] {
		if value.Matches(candidate) {
			return true
		}
	}
	return false
}

// EntityFilter represents filtering options for one aggregation run.
type EntityFilter struct {
	Models     []string
	Properties FilterMap
}

// AllowsModel reports whether model passes the allow-list. An empty list
// allows every model.
func (f EntityFilter) AllowsModel(model string) bool {
	if len(f.Models) == 0 {
		return true
	}
	for _, allowed := range f.Models {
		if allowed == model {
			return true
		}
	}
	return false
}
