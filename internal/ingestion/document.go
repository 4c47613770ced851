package ingestion

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/deanwagman/peregrine/internal/domain"
)

const entitySchemaURL = "https://github.com/deanwagman/peregrine/entity.schema.json"

//go:embed entity.schema.json
var entitySchema []byte

type documentValidator struct {
	schema *jsonschema.Schema
}

func newDocumentValidator() (*documentValidator, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(entitySchema))
	if err != nil {
		return nil, fmt.Errorf("failed to parse entity schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(entitySchemaURL, doc); err != nil {
		return nil, fmt.Errorf("failed to register entity schema: %w", err)
	}
	schema, err := compiler.Compile(entitySchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile entity schema: %w", err)
	}
	return &documentValidator{schema: schema}, nil
}

func (v *documentValidator) validate(raw string) error {
	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		return err
	}
	if err := v.schema.Validate(inst); err != nil {
		var validationErr *jsonschema.ValidationError
		if errors.As(err, &validationErr) {
			return errors.New(flattenLines(validationErr.Error()))
		}
		return err
	}
	return nil
}

type rawProperty struct {
	Slug  string       `json:"slug"`
	Type  string       `json:"type"`
	Value domain.Value `json:"value"`
}

// readDocument decodes a JSON or YAML document holding an array of entities,
// optionally nested under opts.Path. A single entity object is accepted as a
// one element array.
func (r *Reader) readDocument(format Format, payload []byte, opts Options) (Batch, error) {
	if format == FormatYAML {
		converted, err := yamlToJSON(payload)
		if err != nil {
			return Batch{}, err
		}
		payload = converted
	}
	if !gjson.ValidBytes(payload) {
		return Batch{}, fmt.Errorf("%w: malformed json", ErrInvalidDocument)
	}

	selected := gjson.ParseBytes(payload)
	if path := strings.TrimSpace(opts.Path); path != "" {
		selected = selected.Get(path)
		if !selected.Exists() {
			return Batch{}, fmt.Errorf("%w: path %q not found", ErrInvalidDocument, path)
		}
	}

	var elements []gjson.Result
	switch {
	case selected.IsArray():
		elements = selected.Array()
	case selected.IsObject():
		elements = []gjson.Result{selected}
	default:
		return Batch{}, fmt.Errorf("%w: expected an array of entities, got %s", ErrInvalidDocument, selected.Type)
	}

	batch := Batch{Total: len(elements)}
	for idx, element := range elements {
		row := idx + 1
		if err := r.validator.validate(element.Raw); err != nil {
			batch.Rejected = append(batch.Rejected, Rejection{
				Row:    row,
				Model:  element.Get("model").String(),
				Reason: err.Error(),
			})
			continue
		}
		entity, err := decodeEntity(element)
		if err != nil {
			batch.Rejected = append(batch.Rejected, Rejection{Row: row, Model: entity.Model, Reason: err.Error()})
			continue
		}
		batch.Entities = append(batch.Entities, entity)
		batch.Rows = append(batch.Rows, row)
	}
	return batch, nil
}

// decodeEntity builds an entity from a schema-valid element. Properties may be
// a list of {slug, type, value} objects or a plain slug -> value object, in
// which case types are inferred and document order is kept.
func decodeEntity(element gjson.Result) (domain.Entity, error) {
	model := strings.TrimSpace(element.Get("model").String())
	if model == "" {
		return domain.Entity{Model: model}, errors.New("model is empty")
	}

	var raws []rawProperty
	props := element.Get("properties")
	if props.IsArray() {
		for _, item := range props.Array() {
			var raw rawProperty
			if err := json.Unmarshal([]byte(item.Raw), &raw); err != nil {
				return domain.Entity{Model: model}, fmt.Errorf("failed to decode property: %w", err)
			}
			raws = append(raws, raw)
		}
	} else {
		var decodeErr error
		props.ForEach(func(key, value gjson.Result) bool {
			var v domain.Value
			if err := v.UnmarshalJSON([]byte(value.Raw)); err != nil {
				decodeErr = fmt.Errorf("failed to decode property %q: %w", key.String(), err)
				return false
			}
			raws = append(raws, rawProperty{Slug: key.String(), Value: v})
			return true
		})
		if decodeErr != nil {
			return domain.Entity{Model: model}, decodeErr
		}
	}

	properties := make([]domain.Property, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))
	for _, raw := range raws {
		slug := strings.TrimSpace(raw.Slug)
		if slug == "" {
			return domain.Entity{Model: model}, errors.New("property slug is empty")
		}
		if _, dup := seen[slug]; dup {
			return domain.Entity{Model: model}, fmt.Errorf("duplicate property %q", slug)
		}
		seen[slug] = struct{}{}

		propertyType, err := domain.ParsePropertyType(raw.Type)
		if err != nil {
			return domain.Entity{Model: model}, fmt.Errorf("property %q: %w", slug, err)
		}
		if propertyType == "" {
			propertyType = domain.TypeOf(raw.Value)
		}
		if propertyType == "" {
			// Untyped null carries no information.
			continue
		}
		value, err := raw.Value.Coerce(propertyType)
		if err != nil {
			return domain.Entity{Model: model}, fmt.Errorf("property %q: %w", slug, err)
		}
		properties = append(properties, domain.Property{Slug: slug, Type: propertyType, Value: value})
	}

	return domain.NewEntity(model, properties), nil
}

func yamlToJSON(payload []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	normalized, err := normalizeYAML(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	converted, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to convert yaml to json: %w", err)
	}
	return converted, nil
}

// normalizeYAML rewrites map[any]any nodes into JSON compatible maps.
func normalizeYAML(node any) (any, error) {
	switch v := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, child := range v {
			normalized, err := normalizeYAML(child)
			if err != nil {
				return nil, err
			}
			out[key] = normalized
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, child := range v {
			normalized, err := normalizeYAML(child)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(key)] = normalized
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			normalized, err := normalizeYAML(child)
			if err != nil {
				return nil, err
			}
			out[i] = normalized
		}
		return out, nil
	default:
		return v, nil
	}
}

func flattenLines(message string) string {
	lines := strings.Split(message, "\n")
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, "; ")
}
