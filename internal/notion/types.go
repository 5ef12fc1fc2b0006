package notion

import (
	"encoding/json"
	"fmt"
)

// Filter is a Notion database filter object.
type Filter map[string]any

// And combines filters with logical AND.
func And(filters ...Filter) Filter {
	return Filter{"and": filters}
}

// PropertyDefinition describes one declared property of a database.
type PropertyDefinition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Database is the subset of a database object the service reads.
type Database struct {
	ID         string                        `json:"id"`
	Properties map[string]PropertyDefinition `json:"properties"`
}

// QueryRequest is the body of a database query.
type QueryRequest struct {
	Filter      Filter `json:"filter,omitempty"`
	StartCursor string `json:"start_cursor,omitempty"`
	PageSize    int    `json:"page_size,omitempty"`
}

// QueryResponse is one page of query results.
type QueryResponse struct {
	Results    []Page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// Page is a database row. Property values stay raw until a caller asks for one.
type Page struct {
	ID         string                     `json:"id"`
	Properties map[string]json.RawMessage `json:"properties"`
}

// DateValue is the value of a date property.
type DateValue struct {
	Start string  `json:"start"`
	End   *string `json:"end,omitempty"`
}

// Date decodes the named date property. It returns nil without error when the property is
// absent, empty, or not a date.
func (p Page) Date(property string) (*DateValue, error) {
	raw, ok := p.Properties[property]
	if !ok {
		return nil, nil
	}
	var v struct {
		Type string     `json:"type"`
		Date *DateValue `json:"date"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("notion: decode property %q: %w", property, err)
	}
	if v.Type != "" && v.Type != "date" {
		return nil, nil
	}
	return v.Date, nil
}

type pageUpdate struct {
	Properties map[string]datePropertyValue `json:"properties"`
}

type datePropertyValue struct {
	Date DateValue `json:"date"`
}

// APIError is a non-2xx response from the Notion API.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" && e.Message == "" {
		return fmt.Sprintf("notion: http %d", e.Status)
	}
	return fmt.Sprintf("notion: http %d: %s: %s", e.Status, e.Code, e.Message)
}
