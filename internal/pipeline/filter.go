package pipeline

import "github.com/deanwagman/peregrine/internal/domain"

// FilterEntities returns the entities that pass both the model allow-list and
// every property constraint, preserving their relative order. Models are
// OR-combined; property keys are AND-combined; values within a key are
// OR-combined. A missing or null property fails its key.
func FilterEntities(entities []domain.Entity, filter domain.EntityFilter) []domain.Entity {
	matched := make([]domain.Entity, 0, len(entities))
	for _, entity := range entities {
		if !filter.AllowsModel(entity.Model) {
			continue
		}
		if !matchesProperties(entity, filter.Properties) {
			continue
		}
		matched = append(matched, entity)
	}
	return matched
}

func matchesProperties(entity domain.Entity, filters domain.FilterMap) bool {
	for slug := range filters {
		property, ok := entity.Property(slug)
		if !ok || property.Value.IsNull() {
			return false
		}
		if !filters.Accepts(slug, property.Value) {
			return false
		}
	}
	return true
}
