package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/starford/timeshift/internal/apperr"
	"github.com/starford/timeshift/internal/runservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *runservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *runservice.Service) *Handler {
	return &Handler{svc: svc}
}

// RunScript handles POST /run_script, the form submitted by the operator page.
//
//	@Summary		Shift dates from a form submission
//	@Tags			adjust
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			hours			formData	int		true	"Hours to shift"
//	@Param			start_date		formData	string	true	"Cutoff date"
//	@Param			move_backward	formData	bool	false	"Shift backwards"
//	@Success		200				{object}	RunScriptResponse
//	@Failure		400				{object}	errResponse
//	@Failure		500				{object}	errResponse
//	@Router			/run_script [post]
func (h *Handler) RunScript(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid form"))
		return
	}

	startDate := strings.TrimSpace(r.PostForm.Get("start_date"))
	if startDate == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("start date is required"))
		return
	}
	hours, err := strconv.Atoi(strings.TrimSpace(r.PostForm.Get("hours")))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("hours must be an integer"))
		return
	}

	req := runservice.Request{
		Hours:     hours,
		StartDate: startDate,
		Backward:  formBool(r.PostForm.Get("move_backward")),
		Filters:   formFilters(r),
		Preset:    strings.TrimSpace(r.PostForm.Get("preset")),
	}

	resp, err := h.svc.Adjust(r.Context(), req)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	if !resp.Success {
		writeRunFailure(w, resp)
		return
	}
	writeJSON(w, http.StatusOK, RunScriptResponse{
		Message: resp.Message,
		Outcome: resp.Outcome,
		RunID:   resp.RunID,
		Warning: resp.Warning,
	})
}

// formFilters collects property_name_N/property_value_N pairs; pairs with a blank
// name or value are ignored.
func formFilters(r *http.Request) map[string]string {
	filters := map[string]string{}
	for i := 1; i <= maxFormFilters; i++ {
		name := strings.TrimSpace(r.PostForm.Get(fmt.Sprintf("property_name_%d", i)))
		value := strings.TrimSpace(r.PostForm.Get(fmt.Sprintf("property_value_%d", i)))
		if name == "" || value == "" {
			continue
		}
		filters[name] = value
	}
	return filters
}

func formBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "yes":
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}

// Adjust handles POST /api/adjust.
//
//	@Summary		Shift dates
//	@Tags			adjust
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AdjustRequest	true	"Adjustment"
//	@Success		200		{object}	runservice.Response
//	@Failure		400		{object}	errResponse
//	@Failure		500		{object}	runservice.Response
//	@Security		BearerAuth
//	@Router			/adjust [post]
func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req AdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	resp, err := h.svc.Adjust(r.Context(), req.toService())
	if err != nil {
		writeRequestError(w, err)
		return
	}
	status := http.StatusOK
	if !resp.Success {
		status = failureStatus(resp.Err)
	}
	writeJSON(w, status, resp)
}

// Properties handles GET /api/properties.
//
//	@Summary		List database properties usable as filters
//	@Tags			schema
//	@Produce		json
//	@Success		200	{object}	PropertiesResponse
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/properties [get]
func (h *Handler) Properties(w http.ResponseWriter, r *http.Request) {
	props, err := h.svc.Properties(r.Context())
	if err != nil {
		slog.Error("list properties failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody("could not read database schema"))
		return
	}
	writeJSON(w, http.StatusOK, PropertiesResponse{Properties: props})
}

// Presets handles GET /api/presets.
func (h *Handler) Presets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, PresetsResponse{Presets: h.svc.Presets()})
}

// Runs handles GET /api/runs.
//
//	@Summary		List recent adjustment runs
//	@Tags			runs
//	@Produce		json
//	@Param			limit	query		int	false	"Max runs"
//	@Success		200		{object}	RunsResponse
//	@Security		BearerAuth
//	@Router			/runs [get]
func (h *Handler) Runs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.svc.Runs(r.Context(), limit)
	if err != nil {
		slog.Error("list runs failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, RunsResponse{Runs: runs})
}

// Live handles GET /health/live.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /health/ready. It fails while Notion is unreachable.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		slog.Warn("readiness check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeRequestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrMissingInput):
		writeJSON(w, http.StatusBadRequest, errorBody("start date is required"))
	case errors.Is(err, apperr.ErrUnknownPreset):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		slog.Error("adjust failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func writeRunFailure(w http.ResponseWriter, resp *runservice.Response) {
	writeJSON(w, failureStatus(resp.Err), errorBody(resp.Error))
}

func failureStatus(err error) int {
	if errors.Is(err, apperr.ErrInvalidDate) || errors.Is(err, apperr.ErrInvalidHours) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
