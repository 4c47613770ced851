package domain

import (
	"fmt"
	"strings"
)

// PropertyType selects the storage representation of a property.
type PropertyType string

const (
	PropertyTypeString  PropertyType = "STRING"
	PropertyTypeInteger PropertyType = "INTEGER"
	PropertyTypeFloat   PropertyType = "FLOAT"
	PropertyTypeBoolean PropertyType = "BOOLEAN"
)

// ParsePropertyType resolves a case-insensitive type name. An empty name is
// returned as the empty type so callers can fall back to TypeOf.
func ParsePropertyType(raw string) (PropertyType, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "":
		return "", nil
	case "STRING", "TEXT":
		return PropertyTypeString, nil
	case "INTEGER", "INT":
		return PropertyTypeInteger, nil
	case "FLOAT", "NUMBER":
		return PropertyTypeFloat, nil
	case "BOOLEAN", "BOOL":
		return PropertyTypeBoolean, nil
	default:
		return "", fmt.Errorf("unknown property type %q", raw)
	}
}

// TypeOf derives a property type from a value's kind. Null has no type.
func TypeOf(v Value) PropertyType {
	switch v.Kind() {
	case KindText:
		return PropertyTypeString
	case KindInteger:
		return PropertyTypeInteger
	case KindFloat:
		return PropertyTypeFloat
	case KindBoolean:
		return PropertyTypeBoolean
	default:
		return ""
	}
}

// Property is a typed key/value pair carried by an entity.
type Property struct {
	Slug  string       `json:"slug"`
	Type  PropertyType `json:"type"`
	Value Value        `json:"value"`
}

// Entity represents a dynamic entity instance: a model name and an ordered
// bag of properties whose slugs are unique within the entity.
type Entity struct {
	Model      string     `json:"model"`
	Properties []Property `json:"properties"`
}

// NewEntity creates a new entity with immutable pattern
func NewEntity(model string, properties []Property) Entity {
	return Entity{
		Model:      model,
		Properties: copyProperties(properties),
	}
}

// Property looks up a property by slug.
func (e Entity) Property(slug string) (Property, bool) {
	for _, property := range e.Properties {
		if property.Slug == slug {
			return property, true
		}
	}
	return Property{}, false
}

// WithProperty returns a new entity with an added/updated property
func (e Entity) WithProperty(property Property) Entity {
	properties := copyProperties(e.Properties)
	for i := range properties {
		if properties[i].Slug == property.Slug {
			properties[i] = property
			return Entity{Model: e.Model, Properties: properties}
		}
	}
	return Entity{Model: e.Model, Properties: append(properties, property)}
}

// WithoutProperty returns a new entity without the specified property
func (e Entity) WithoutProperty(slug string) Entity {
	properties := make([]Property, 0, len(e.Properties))
	for _, property := range e.Properties {
		if property.Slug != slug {
			properties = append(properties, property)
		}
	}
	return Entity{Model: e.Model, Properties: properties}
}

// Record flattens the entity's properties into a slug-keyed record.
func (e Entity) Record() Record {
	record := make(Record, len(e.Properties))
	for _, property := range e.Properties {
		record[property.Slug] = property.Value
	}
	return record
}

// Record is the flat slug -> value shape returned by relational sources.
type Record map[string]Value

// Records flattens every entity, preserving order.
func Records(entities []Entity) []Record {
	records := make([]Record, len(entities))
	for i, entity := range entities {
		records[i] = entity.Record()
	}
	return records
}

func copyProperties(properties []Property) []Property {
	if properties == nil {
		return nil
	}
	copied := make([]Property, len(properties))
	copy(copied, properties)
	return copied
}
