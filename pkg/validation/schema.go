// Package validation checks decoded JSON request bodies against declarative
// constraint maps before they are forwarded to eTims.
//
// Semantics follow the schema library used by the upstream SDK defaults:
// every violation is reported (no abort on first error), keys not named by a
// rule are stripped at every nesting level, required strings must be
// non-empty, and numeric strings are accepted and converted to numbers.
package validation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind is the JSON type a rule expects.
type Kind int

const (
	String Kind = iota
	Number
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Number:
		return "number"
	case Array:
		return "array"
	case Object:
		return "object"
	}
	return "unknown"
}

// Rule constrains a single key of a JSON object.
type Rule struct {
	Field    string
	Kind     Kind
	Required bool
	// Items is the schema of every element (Array) or of the nested value (Object).
	Items Schema
}

// Schema is an ordered list of rules; errors are reported in this order.
type Schema []Rule

// FieldError describes one violated rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Required returns a rule for a mandatory key.
func Required(field string, kind Kind) Rule {
	return Rule{Field: field, Kind: kind, Required: true}
}

// Optional returns a rule for a key that may be absent.
func Optional(field string, kind Kind) Rule {
	return Rule{Field: field, Kind: kind}
}

// ArrayOf returns a rule for a mandatory array whose elements are objects matching items.
func ArrayOf(field string, items Schema) Rule {
	return Rule{Field: field, Kind: Array, Required: true, Items: items}
}

// Fields returns the names of the top-level keys the schema accepts.
func (s Schema) Fields() []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, r.Field)
	}
	return out
}

// Validate checks doc against the schema. It returns the cleaned document
// (unknown keys removed, numbers normalized to json.Number) and every violation.
// A nil doc is treated as an empty object.
func (s Schema) Validate(doc map[string]any) (map[string]any, []FieldError) {
	var errs []FieldError
	out := s.validateObject(doc, nil, &errs)
	return out, errs
}

// pathElem is either a key or an array index.
type pathElem struct {
	key   string
	index int
}

func (s Schema) validateObject(doc map[string]any, path []pathElem, errs *[]FieldError) map[string]any {
	out := make(map[string]any, len(s))
	for _, rule := range s {
		p := appendPath(path, pathElem{key: rule.Field})
		v, present := doc[rule.Field]
		if !present {
			if rule.Required {
				addError(errs, p, "is required")
			}
			continue
		}
		if cleaned, ok := rule.check(v, p, errs); ok {
			out[rule.Field] = cleaned
		}
	}
	return out
}

func (r Rule) check(v any, path []pathElem, errs *[]FieldError) (any, bool) {
	switch r.Kind {
	case String:
		str, ok := v.(string)
		if !ok {
			addError(errs, path, "must be a string")
			return nil, false
		}
		if str == "" {
			addError(errs, path, "is not allowed to be empty")
			return nil, false
		}
		return str, true

	case Number:
		n, ok := toNumber(v)
		if !ok {
			addError(errs, path, "must be a number")
			return nil, false
		}
		return n, true

	case Array:
		arr, ok := v.([]any)
		if !ok {
			addError(errs, path, "must be an array")
			return nil, false
		}
		if r.Items == nil {
			return arr, true
		}
		cleaned := make([]any, 0, len(arr))
		for i, el := range arr {
			ip := appendPath(path, pathElem{index: i})
			obj, ok := el.(map[string]any)
			if !ok {
				addError(errs, ip, "must be of type object")
				continue
			}
			cleaned = append(cleaned, r.Items.validateObject(obj, ip, errs))
		}
		return cleaned, true

	case Object:
		obj, ok := v.(map[string]any)
		if !ok {
			addError(errs, path, "must be of type object")
			return nil, false
		}
		if r.Items == nil {
			return obj, true
		}
		return r.Items.validateObject(obj, path, errs), true
	}
	addError(errs, path, fmt.Sprintf("has unsupported rule kind %s", r.Kind))
	return nil, false
}

// toNumber accepts JSON numbers and numeric strings.
func toNumber(v any) (json.Number, bool) {
	switch n := v.(type) {
	case json.Number:
		if _, err := decimal.NewFromString(n.String()); err != nil {
			return "", false
		}
		return n, true
	case float64:
		return json.Number(strconv.FormatFloat(n, 'f', -1, 64)), true
	case float32:
		return json.Number(strconv.FormatFloat(float64(n), 'f', -1, 32)), true
	case int:
		return json.Number(strconv.Itoa(n)), true
	case int64:
		return json.Number(strconv.FormatInt(n, 10)), true
	case decimal.Decimal:
		return json.Number(n.String()), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return "", false
		}
		return json.Number(d.String()), true
	}
	return "", false
}

func appendPath(path []pathElem, e pathElem) []pathElem {
	out := make([]pathElem, len(path), len(path)+1)
	copy(out, path)
	return append(out, e)
}

func addError(errs *[]FieldError, path []pathElem, msg string) {
	*errs = append(*errs, FieldError{
		Field:   fieldName(path),
		Message: fmt.Sprintf("%q %s", label(path), msg),
	})
}

// fieldName renders a path as dotted keys: salesTrnsItems.0.itemCd
func fieldName(path []pathElem) string {
	parts := make([]string, len(path))
	for i, e := range path {
		if e.key != "" {
			parts[i] = e.key
		} else {
			parts[i] = strconv.Itoa(e.index)
		}
	}
	return strings.Join(parts, ".")
}

// label renders a path for messages: salesTrnsItems[0].itemCd
func label(path []pathElem) string {
	var b strings.Builder
	for i, e := range path {
		if e.key == "" {
			fmt.Fprintf(&b, "[%d]", e.index)
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(e.key)
	}
	return b.String()
}

// Decode parses a JSON body into a generic object, keeping numbers as json.Number.
// An empty body decodes to an empty object.
func Decode(body []byte) (map[string]any, error) {
	doc := map[string]any{}
	if len(strings.TrimSpace(string(body))) == 0 {
		return doc, nil
	}
	dec := json.NewDecoder(strings.NewReader(string(body)))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("request body must be a JSON object: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// ToDocument converts a typed request (struct, map) into a generic object via its JSON form.
func ToDocument(v any) (map[string]any, error) {
	switch d := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return d, nil
	case []byte:
		return Decode(d)
	case json.RawMessage:
		return Decode(d)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return Decode(raw)
}
