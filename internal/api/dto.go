package api

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/timeshift/internal/audit"
	"github.com/starford/timeshift/internal/models"
	"github.com/starford/timeshift/internal/presets"
	"github.com/starford/timeshift/internal/runservice"
	"github.com/starford/timeshift/internal/shift"
)

// maxFormFilters is the number of property_name_N/property_value_N pairs read from the form.
const maxFormFilters = 10

// AdjustRequest is the JSON body of POST /api/adjust.
type AdjustRequest struct {
	Hours     int               `json:"hours" example:"2"`
	StartDate string            `json:"start_date" example:"2024-06-01"`
	Backward  bool              `json:"move_backward"`
	Filters   map[string]string `json:"filters,omitempty"`
	Preset    string            `json:"preset,omitempty"`
}

// Validate checks the request shape. Date syntax is checked by the engine.
func (r AdjustRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.StartDate, validation.Required.Error("start date is required")),
		validation.Field(&r.Hours, validation.Min(-shift.MaxShiftHours), validation.Max(shift.MaxShiftHours)),
		validation.Field(&r.Filters, validation.By(blankKeys)),
		validation.Field(&r.Preset, validation.Length(0, 128)),
	)
}

func blankKeys(v any) error {
	m, _ := v.(map[string]string)
	for k := range m {
		if strings.TrimSpace(k) == "" {
			return errors.New("filter property names must not be blank")
		}
	}
	return nil
}

func (r AdjustRequest) toService() runservice.Request {
	return runservice.Request{
		Hours:     r.Hours,
		StartDate: r.StartDate,
		Backward:  r.Backward,
		Filters:   r.Filters,
		Preset:    r.Preset,
	}
}

// RunScriptResponse is returned by the form endpoint on success.
type RunScriptResponse struct {
	Message string          `json:"message"`
	Outcome *models.Outcome `json:"outcome,omitempty"`
	RunID   string          `json:"run_id"`
	Warning string          `json:"warning,omitempty"`
}

// PropertiesResponse lists the database properties.
type PropertiesResponse struct {
	Properties []shift.PropertyInfo `json:"properties"`
}

// PresetsResponse lists the configured presets.
type PresetsResponse struct {
	Presets []presets.Preset `json:"presets"`
}

// RunsResponse lists recent runs.
type RunsResponse struct {
	Runs []audit.Run `json:"runs"`
}
