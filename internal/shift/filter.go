package shift

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/starford/timeshift/internal/notion"
)

// PropertyType is the type tag Notion declares for a property.
type PropertyType string

const (
	TypeSelect      PropertyType = "select"
	TypeMultiSelect PropertyType = "multi_select"
	TypeTitle       PropertyType = "title"
	TypeRichText    PropertyType = "rich_text"
	TypeNumber      PropertyType = "number"
	TypeCheckbox    PropertyType = "checkbox"
	TypePeople      PropertyType = "people"
	TypeFormula     PropertyType = "formula"
)

// Comparison is the operator of a predicate.
type Comparison string

const (
	Equals   Comparison = "equals"
	Contains Comparison = "contains"
)

// variant holds the filter construction for one supported property type.
type variant struct {
	comparison Comparison
	coerce     func(any) (any, error)
	render     func(p Predicate) notion.Filter
}

// keyed renders {"property": name, key: {comparison: value}}.
func keyed(key string) func(Predicate) notion.Filter {
	return func(p Predicate) notion.Filter {
		return notion.Filter{
			"property": p.Property,
			key:        map[string]any{string(p.Comparison): p.Value},
		}
	}
}

var variants = map[PropertyType]variant{
	TypeSelect:      {comparison: Equals, coerce: asText, render: keyed("select")},
	TypeMultiSelect: {comparison: Contains, coerce: asText, render: keyed("multi_select")},
	TypePeople:      {comparison: Contains, coerce: asText, render: keyed("people")},
	TypeTitle:       {comparison: Contains, coerce: asText, render: keyed("rich_text")},
	TypeRichText:    {comparison: Contains, coerce: asText, render: keyed("rich_text")},
	TypeNumber:      {comparison: Equals, coerce: asNumber, render: keyed("number")},
	TypeCheckbox:    {comparison: Equals, coerce: asBool, render: keyed("checkbox")},
	TypeFormula: {comparison: Contains, coerce: asText, render: func(p Predicate) notion.Filter {
		return notion.Filter{
			"property": p.Property,
			"formula":  map[string]any{"string": map[string]any{string(p.Comparison): p.Value}},
		}
	}},
}

// Supported reports whether properties of this type can be filtered on.
func (t PropertyType) Supported() bool {
	_, ok := variants[t]
	return ok
}

// Predicate is one compiled filter condition.
type Predicate struct {
	Property   string       `json:"property"`
	Type       PropertyType `json:"type"`
	Comparison Comparison   `json:"comparison"`
	Value      any          `json:"value"`
}

// Filter renders the predicate as a Notion filter object.
func (p Predicate) Filter() notion.Filter {
	return variants[p.Type].render(p)
}

// Compile turns user-supplied property/value pairs into predicates using the declared
// schema. Unknown properties, unsupported types and values that do not fit the type are
// dropped with a warning; the remaining pairs still compile. Names are processed in sorted
// order.
func Compile(raw map[string]any, schema PropertySchema, logger *slog.Logger) []Predicate {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Predicate
	for _, name := range names {
		typ, ok := schema[name]
		if !ok {
			logger.Warn("filter: property not found in database, skipping", slog.String("property", name))
			continue
		}
		v, ok := variants[typ]
		if !ok {
			logger.Warn("filter: unsupported property type, skipping",
				slog.String("property", name),
				slog.String("type", string(typ)))
			continue
		}
		value, err := v.coerce(raw[name])
		if err != nil {
			logger.Warn("filter: value does not match property type, skipping",
				slog.String("property", name),
				slog.String("type", string(typ)),
				slog.String("error", err.Error()))
			continue
		}
		out = append(out, Predicate{Property: name, Type: typ, Comparison: v.comparison, Value: value})
	}
	return out
}

// Combine merges predicates into a single query filter: nil for none, the predicate itself
// for one, and an AND of all of them otherwise.
func Combine(preds []Predicate) notion.Filter {
	switch len(preds) {
	case 0:
		return nil
	case 1:
		return preds[0].Filter()
	}
	filters := make([]notion.Filter, len(preds))
	for i, p := range preds {
		filters[i] = p.Filter()
	}
	return notion.And(filters...)
}

// Describe lists the filtered property names for summaries.
func Describe(preds []Predicate) string {
	if len(preds) == 0 {
		return "none"
	}
	names := make([]string, len(preds))
	for i, p := range preds {
		names[i] = p.Property
	}
	return strings.Join(names, ", ")
}

func asText(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case nil:
		return nil, fmt.Errorf("empty value")
	default:
		return fmt.Sprint(x), nil
	}
}

func asNumber(v any) (any, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", x)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("not a number: %v", v)
	}
}

func asBool(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "1", "yes", "on":
			return true, nil
		case "false", "0", "no", "off":
			return false, nil
		}
		return nil, fmt.Errorf("not a boolean: %q", x)
	default:
		return nil, fmt.Errorf("not a boolean: %v", v)
	}
}
