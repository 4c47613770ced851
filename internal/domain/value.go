package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindInteger
	KindFloat
	KindBoolean
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBoolean:
		return "boolean"
	default:
		return "null"
	}
}

// Value is a scalar property value that keeps its type identity through
// filtering and aggregation. The zero Value is null.
type Value struct {
	kind    Kind
	text    string
	integer int64
	float   float64
	boolean bool
}

// Null returns the null value.
func Null() Value { return Value{} }

// Text wraps a string. Invalid UTF-8 is replaced with U+FFFD so that text
// which displays the same also compares and buckets the same.
func Text(s string) Value {
	return Value{kind: KindText, text: strings.ToValidUTF8(s, "\uFFFD")}
}

// Integer wraps an integer.
func Integer(i int64) Value { return Value{kind: KindInteger, integer: i} }

// Float wraps a floating point number.
func Float(f float64) Value { return Value{kind: KindFloat, float: f} }

// Boolean wraps a boolean.
func Boolean(b bool) Value { return Value{kind: KindBoolean, boolean: b} }

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Any returns the Go representation of v: string, int64, float64, bool or nil.
func (v Value) Any() any {
	switch v.kind {
	case KindText:
		return v.text
	case KindInteger:
		return v.integer
	case KindFloat:
		return v.float
	case KindBoolean:
		return v.boolean
	default:
		return nil
	}
}

// Display returns the representation used in aggregation output. Booleans are
// rendered as the strings "true" and "false"; numbers stay numeric.
func (v Value) Display() any {
	if v.kind == KindBoolean {
		return strconv.FormatBool(v.boolean)
	}
	return v.Any()
}

func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindInteger:
		return strconv.FormatInt(v.integer, 10)
	case KindFloat:
		return strconv.FormatFloat(v.float, 'g', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.boolean)
	default:
		return "null"
	}
}

// Key returns the canonical bucketing identity of v: its JSON literal. Text is
// quoted, so "2008" and 2008 never share a key.
func (v Value) Key() string {
	switch v.kind {
	case KindText:
		encoded, err := json.Marshal(v.text)
		if err != nil {
			return strconv.Quote(v.text)
		}
		return string(encoded)
	case KindFloat:
		if math.IsNaN(v.float) || math.IsInf(v.float, 0) {
			// Not representable in JSON; keep a textual form that cannot
			// collide with a quoted string.
			return strconv.FormatFloat(v.float, 'g', -1, 64)
		}
		return strconv.FormatFloat(v.float, 'f', -1, 64)
	default:
		return v.String()
	}
}

// ParseKey reverses Key.
func ParseKey(key string) Value {
	if value, ok := parseScalar(key); ok {
		return value
	}
	if f, err := strconv.ParseFloat(key, 64); err == nil {
		return Float(f)
	}
	return Text(key)
}

// InferValue performs best-effort type inference on raw filter text: JSON
// scalars (numbers, booleans, null, quoted strings) are parsed, anything else is
// kept as text.
func InferValue(raw string) Value {
	if value, ok := parseScalar(raw); ok {
		return value
	}
	return Text(raw)
}

func parseScalar(raw string) (Value, bool) {
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.UseNumber()

	var decoded any
	if err := decoder.Decode(&decoded); err != nil {
		return Value{}, false
	}
	// Trailing content means raw was not a single JSON literal.
	if rest := strings.TrimSpace(raw[decoder.InputOffset():]); rest != "" {
		return Value{}, false
	}

	value, err := ValueOf(decoded)
	if err != nil {
		return Value{}, false
	}
	return value, true
}

// ValueOf converts a decoded scalar (JSON, YAML or SQL) into a Value.
func ValueOf(raw any) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return Null(), nil
	case Value:
		return v, nil
	case string:
		return Text(v), nil
	case []byte:
		return Text(string(v)), nil
	case bool:
		return Boolean(v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return Integer(i), nil
		}
		f, err := v.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", v.String(), err)
		}
		return Float(f), nil
	case int:
		return Integer(int64(v)), nil
	case int8:
		return Integer(int64(v)), nil
	case int16:
		return Integer(int64(v)), nil
	case int32:
		return Integer(int64(v)), nil
	case int64:
		return Integer(v), nil
	case uint:
		return Integer(int64(v)), nil
	case uint8:
		return Integer(int64(v)), nil
	case uint16:
		return Integer(int64(v)), nil
	case uint32:
		return Integer(int64(v)), nil
	case uint64:
		if v > math.MaxInt64 {
			return Float(float64(v)), nil
		}
		return Integer(int64(v)), nil
	case float32:
		return Float(float64(v)), nil
	case float64:
		return Float(v), nil
	default:
		return Value{}, fmt.Errorf("unsupported value of type %T", raw)
	}
}

// Equal reports strict, type-aware equality. Integers and floats compare
// numerically; every other cross-kind comparison is false.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		if v.isNumeric() && other.isNumeric() {
			return v.number() == other.number()
		}
		return false
	}
	switch v.kind {
	case KindText:
		return v.text == other.text
	case KindInteger:
		return v.integer == other.integer
	case KindFloat:
		return v.float == other.float
	case KindBoolean:
		return v.boolean == other.boolean
	default:
		return true
	}
}

// Matches reports whether a stored value satisfies one acceptable filter
// value. Null never matches. A stored boolean also matches the integers 1 and 0.
func (v Value) Matches(filter Value) bool {
	if v.IsNull() || filter.IsNull() {
		return false
	}
	if v.Equal(filter) {
		return true
	}
	if v.kind == KindBoolean && filter.kind == KindInteger {
		return (v.boolean && filter.integer == 1) || (!v.boolean && filter.integer == 0)
	}
	return false
}

// ForColumn converts a filter value into the representation stored in a column
// of type t, following the same rules as Matches. It returns false when no
// stored value of that type could match.
func (v Value) ForColumn(t PropertyType) (Value, bool) {
	switch t {
	case PropertyTypeString:
		if v.kind == KindText {
			return v, true
		}
	case PropertyTypeInteger:
		switch v.kind {
		case KindInteger:
			return v, true
		case KindFloat:
			if i, ok := WholeInt(v.float); ok {
				return Integer(i), true
			}
		}
	case PropertyTypeFloat:
		if v.isNumeric() {
			return Float(v.number()), true
		}
	case PropertyTypeBoolean:
		switch v.kind {
		case KindBoolean:
			return v, true
		case KindInteger:
			if v.integer == 0 || v.integer == 1 {
				return Boolean(v.integer == 1), true
			}
		}
	}
	return Value{}, false
}

// Coerce converts v to the declared property type at an ingestion boundary.
// Null is accepted for every type.
func (v Value) Coerce(t PropertyType) (Value, error) {
	if v.IsNull() {
		return v, nil
	}
	switch t {
	case PropertyTypeString:
		return Text(v.String()), nil
	case PropertyTypeInteger:
		switch v.kind {
		case KindInteger:
			return v, nil
		case KindFloat:
			if i, ok := WholeInt(v.float); ok {
				return Integer(i), nil
			}
		case KindText:
			raw := strings.TrimSpace(v.text)
			if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
				return Integer(i), nil
			}
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				if i, ok := WholeInt(f); ok {
					return Integer(i), nil
				}
			}
		}
		return Value{}, fmt.Errorf("unable to coerce %s %q to integer", v.kind, v.String())
	case PropertyTypeFloat:
		switch v.kind {
		case KindInteger, KindFloat:
			return Float(v.number()), nil
		case KindText:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64); err == nil {
				return Float(f), nil
			}
		}
		return Value{}, fmt.Errorf("unable to coerce %s %q to float", v.kind, v.String())
	case PropertyTypeBoolean:
		switch v.kind {
		case KindBoolean:
			return v, nil
		case KindInteger:
			if v.integer == 0 || v.integer == 1 {
				return Boolean(v.integer == 1), nil
			}
		case KindText:
			if b, ok := parseBoolText(v.text); ok {
				return Boolean(b), nil
			}
		}
		return Value{}, fmt.Errorf("unable to coerce %s %q to boolean", v.kind, v.String())
	default:
		return Value{}, fmt.Errorf("unknown property type %q", t)
	}
}

// WholeInt converts f to int64 when it is a whole number inside the int64
// range.
func WholeInt(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < -(1<<63) || f >= 1<<63 {
		return 0, false
	}
	return int64(f), true
}

func parseBoolText(raw string) (bool, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "1", "yes", "y":
		return true, true
	case "0", "no", "n":
		return false, true
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, false
	}
	return b, true
}

func (v Value) isNumeric() bool {
	return v.kind == KindInteger || v.kind == KindFloat
}

func (v Value) number() float64 {
	if v.kind == KindInteger {
		return float64(v.integer)
	}
	return v.float
}

// MarshalJSON encodes v as its plain JSON literal.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindFloat && (math.IsNaN(v.float) || math.IsInf(v.float, 0)) {
		return json.Marshal(v.String())
	}
	return json.Marshal(v.Any())
}

// UnmarshalJSON decodes a JSON scalar, keeping integers distinct from floats.
func (v *Value) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var decoded any
	if err := decoder.Decode(&decoded); err != nil {
		return err
	}
	value, err := ValueOf(decoded)
	if err != nil {
		return err
	}
	*v = value
	return nil
}
