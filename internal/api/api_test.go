package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/timeshift/internal/notion"
	"github.com/starford/timeshift/internal/presets"
	"github.com/starford/timeshift/internal/runservice"
	"github.com/starford/timeshift/internal/shift"
	"github.com/starford/timeshift/internal/testutil"
)

// testEnv wires a router against a fake Notion API and a temp audit DB.
// An empty authToken means auth is disabled.
func testEnv(t *testing.T, authToken string) (*testutil.FakeNotion, http.Handler) {
	t.Helper()

	fake := testutil.NewFakeNotion(t)
	logger, _ := testutil.NewLogger()
	client := notion.NewClient(notion.Options{BaseURL: fake.URL(), APIKey: "k"})
	engine := shift.NewEngine(client, shift.Settings{DatabaseID: testutil.FakeDatabaseID}, logger)

	presetFile := filepath.Join(t.TempDir(), "presets.yaml")
	if err := os.WriteFile(presetFile, []byte("presets:\n  abc:\n    filters:\n      Cliente: ABC\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := presets.NewStore(presetFile)
	if err := store.Load(); err != nil {
		t.Fatal(err)
	}

	svc := runservice.NewService(engine, runservice.Deps{
		Audit:   testutil.TestAudit(t),
		Presets: store,
		Logger:  logger,
	})
	return fake, NewRouter(svc, authToken != "", authToken, nil)
}

func postForm(t *testing.T, h http.Handler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/run_script", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestRunScript_Success(t *testing.T) {
	fake, router := testEnv(t, "")
	fake.AddPages(testutil.FakePage{ID: "p1", Start: "2024-06-01T10:00:00"})

	w := postForm(t, router, url.Values{"hours": {"2"}, "start_date": {"2024-06-01"}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp RunScriptResponse
	decode(t, w, &resp)
	if !strings.HasPrefix(resp.Message, "Operation completed: updated 1 records from 2024-06-01.") {
		t.Errorf("message = %q", resp.Message)
	}
	if resp.Outcome == nil || resp.Outcome.Updated != 1 || resp.RunID == "" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestRunScript_MissingStartDate(t *testing.T) {
	fake, router := testEnv(t, "")
	w := postForm(t, router, url.Values{"hours": {"2"}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var resp errResponse
	decode(t, w, &resp)
	if resp.Error != "start date is required" {
		t.Errorf("error = %q", resp.Error)
	}
	if len(fake.Calls()) != 0 {
		t.Error("no remote calls expected")
	}
}

func TestRunScript_BadHours(t *testing.T) {
	_, router := testEnv(t, "")
	w := postForm(t, router, url.Values{"hours": {"two"}, "start_date": {"2024-06-01"}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestRunScript_InvalidDate(t *testing.T) {
	fake, router := testEnv(t, "")
	w := postForm(t, router, url.Values{"hours": {"2"}, "start_date": {"June 1st"}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp errResponse
	decode(t, w, &resp)
	if !strings.Contains(resp.Error, "date") {
		t.Errorf("error = %q", resp.Error)
	}
	if len(fake.Calls()) != 0 {
		t.Error("no remote calls expected")
	}
}

func TestRunScript_HoursOutOfRange(t *testing.T) {
	fake, router := testEnv(t, "")
	fake.AddPages(testutil.FakePage{ID: "p1", Start: "2024-06-01T10:00:00"})

	w := postForm(t, router, url.Values{"hours": {"100000000"}, "start_date": {"2024-06-01"}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if n := len(fake.Updates()); n != 0 {
		t.Errorf("made %d updates, want 0", n)
	}
}

func TestRunScript_BackwardAndFilters(t *testing.T) {
	fake, router := testEnv(t, "")
	fake.SetProperties(map[string]string{"Date": "date", "Cliente": "select"})
	fake.AddPages(testutil.FakePage{ID: "p1", Start: "2024-06-01T10:00:00"})

	w := postForm(t, router, url.Values{
		"hours":            {"3"},
		"start_date":       {"2024-06-01"},
		"move_backward":    {"on"},
		"property_name_1":  {"Cliente"},
		"property_value_1": {"ABC"},
		"property_name_2":  {"Ghost"},
		"property_value_2": {""},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp RunScriptResponse
	decode(t, w, &resp)
	if resp.Outcome.HoursApplied != -3 || resp.Outcome.FilterDescription != "Cliente" {
		t.Errorf("outcome = %+v", resp.Outcome)
	}
	p, _ := fake.Page("p1")
	if p.Start != "2024-06-01T07:00:00" {
		t.Errorf("start = %q", p.Start)
	}
}

func TestAdjustJSON(t *testing.T) {
	fake, router := testEnv(t, "")
	fake.AddPages(testutil.FakePage{ID: "p1", Start: "2024-06-02T08:00:00"})

	body, _ := json.Marshal(AdjustRequest{Hours: 1, StartDate: "2024-06-01"})
	req := httptest.NewRequest(http.MethodPost, "/api/adjust", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp runservice.Response
	decode(t, w, &resp)
	if !resp.Success || resp.Outcome.Updated != 1 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestAdjustJSON_Validation(t *testing.T) {
	_, router := testEnv(t, "")
	for name, body := range map[string]string{
		"bad json":     `{`,
		"no date":      `{"hours": 1}`,
		"blank filter": `{"hours": 1, "start_date": "2024-06-01", "filters": {" ": "x"}}`,
		"bad preset":   `{"hours": 1, "start_date": "2024-06-01", "preset": "nope"}`,
		"bad date":     `{"hours": 1, "start_date": "yesterday"}`,
		"huge hours":   `{"hours": 100000000, "start_date": "2024-06-01"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/adjust", strings.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, body = %s", name, w.Code, w.Body.String())
		}
	}
}

func TestPropertiesEndpoint(t *testing.T) {
	fake, router := testEnv(t, "")
	fake.SetProperties(map[string]string{"Date": "date", "Cliente": "select"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/properties", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp PropertiesResponse
	decode(t, w, &resp)
	if len(resp.Properties) != 2 || resp.Properties[0].Name != "Cliente" {
		t.Errorf("props = %+v", resp.Properties)
	}

	fake.FailSchema(http.StatusUnauthorized)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/properties", nil))
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

func TestPresetsAndRuns(t *testing.T) {
	_, router := testEnv(t, "")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/presets", nil))
	var ps PresetsResponse
	decode(t, w, &ps)
	if len(ps.Presets) != 1 || ps.Presets[0].Name != "abc" {
		t.Errorf("presets = %+v", ps.Presets)
	}

	postForm(t, router, url.Values{"hours": {"1"}, "start_date": {"2024-06-01"}})
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs?limit=5", nil))
	var rs RunsResponse
	decode(t, w, &rs)
	if len(rs.Runs) != 1 {
		t.Errorf("runs = %+v", rs.Runs)
	}
}

func TestHealth(t *testing.T) {
	fake, router := testEnv(t, "secret")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if w.Code != http.StatusOK {
		t.Errorf("live = %d", w.Code)
	}
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusOK {
		t.Errorf("ready = %d", w.Code)
	}

	fake.FailSchema(http.StatusInternalServerError)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("ready with failing remote = %d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, router := testEnv(t, "secret")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/presets", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/presets", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/presets", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token: status = %d", w.Code)
	}

	w = postForm(t, router, url.Values{"hours": {"1"}, "start_date": {"2024-06-01"}})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("form without token: status = %d", w.Code)
	}
}
