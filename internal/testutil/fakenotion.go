package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// FakeDatabaseID is the database id served by FakeNotion.
const FakeDatabaseID = "db-test"

// FakePage is a row served by FakeNotion. A page with an empty Start has a null date.
type FakePage struct {
	ID    string
	Start string
	End   string
	// Raw replaces the date property value verbatim when set.
	Raw json.RawMessage
}

// Call is one request received by FakeNotion.
type Call struct {
	Method        string
	Path          string
	Authorization string
	Version       string
}

// Update is one PATCH received by FakeNotion.
type Update struct {
	PageID string
	Start  string
	End    *string
}

// FakeNotion is an in-process stand-in for the Notion API. It serves a single database
// whose rows are mutated by page updates. Query filters are recorded, not evaluated.
type FakeNotion struct {
	DateProperty string

	mu           sync.Mutex
	properties   map[string]string
	pages        []FakePage
	schemaStatus int
	failQueryAt  int
	failUpdates  map[string]int
	calls        []Call
	queries      []map[string]any
	updates      []Update
	server       *httptest.Server
}

// NewFakeNotion starts a fake Notion API server that is closed when the test ends.
func NewFakeNotion(t *testing.T) *FakeNotion {
	t.Helper()
	f := &FakeNotion{
		DateProperty: "Date",
		properties:   map[string]string{"Date": "date"},
		failUpdates:  map[string]int{},
	}

	r := chi.NewRouter()
	r.Get("/databases/{id}", f.retrieveDatabase)
	r.Post("/databases/{id}/query", f.queryDatabase)
	r.Patch("/pages/{id}", f.updatePage)

	f.server = httptest.NewServer(f.record(r))
	t.Cleanup(f.server.Close)
	return f
}

// URL is the base URL to hand to notion.Options.
func (f *FakeNotion) URL() string { return f.server.URL }

// SetProperties replaces the declared schema (name → type).
func (f *FakeNotion) SetProperties(props map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.properties = props
}

// AddPages appends rows to the database.
func (f *FakeNotion) AddPages(pages ...FakePage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages = append(f.pages, pages...)
}

// FailSchema makes the schema endpoint answer with status.
func (f *FakeNotion) FailSchema(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schemaStatus = status
}

// FailQueryAt makes the n-th query call (1-based) answer 500.
func (f *FakeNotion) FailQueryAt(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failQueryAt = n
}

// FailUpdate makes updates of pageID answer with status.
func (f *FakeNotion) FailUpdate(pageID string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failUpdates[pageID] = status
}

// Pages returns a snapshot of the rows.
func (f *FakeNotion) Pages() []FakePage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakePage(nil), f.pages...)
}

// Page returns the row with the given id.
func (f *FakeNotion) Page(id string) (FakePage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.pages {
		if p.ID == id {
			return p, true
		}
	}
	return FakePage{}, false
}

// Calls returns every request received so far.
func (f *FakeNotion) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Queries returns the decoded bodies of every query call.
func (f *FakeNotion) Queries() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.queries...)
}

// Updates returns every successful page update.
func (f *FakeNotion) Updates() []Update {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Update(nil), f.updates...)
}

func (f *FakeNotion) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls = append(f.calls, Call{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			Version:       r.Header.Get("Notion-Version"),
		})
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (f *FakeNotion) retrieveDatabase(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.schemaStatus != 0 {
		writeNotionError(w, f.schemaStatus, "internal_server_error", "schema unavailable")
		return
	}
	if chi.URLParam(r, "id") != FakeDatabaseID {
		writeNotionError(w, http.StatusNotFound, "object_not_found", "database not found")
		return
	}
	props := make(map[string]any, len(f.properties))
	for name, typ := range f.properties {
		props[name] = map[string]any{"id": name, "name": name, "type": typ}
	}
	writeFakeJSON(w, http.StatusOK, map[string]any{
		"object":     "database",
		"id":         FakeDatabaseID,
		"properties": props,
	})
}

func (f *FakeNotion) queryDatabase(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeNotionError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, body)
	if f.failQueryAt > 0 && len(f.queries) == f.failQueryAt {
		writeNotionError(w, http.StatusInternalServerError, "internal_server_error", "query failed")
		return
	}

	size := 100
	if v, ok := body["page_size"].(float64); ok && v > 0 {
		size = int(v)
	}
	start := 0
	if c, ok := body["start_cursor"].(string); ok {
		n, err := strconv.Atoi(c)
		if err != nil {
			writeNotionError(w, http.StatusBadRequest, "validation_error", "bad cursor")
			return
		}
		start = n
	}
	end := min(start+size, len(f.pages))

	results := make([]map[string]any, 0, end-start)
	for _, p := range f.pages[start:end] {
		results = append(results, f.pageJSON(p))
	}
	var next any
	if end < len(f.pages) {
		next = strconv.Itoa(end)
	}
	writeFakeJSON(w, http.StatusOK, map[string]any{
		"object":      "list",
		"results":     results,
		"has_more":    end < len(f.pages),
		"next_cursor": next,
	})
}

func (f *FakeNotion) updatePage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body struct {
		Properties map[string]struct {
			Date *struct {
				Start string  `json:"start"`
				End   *string `json:"end"`
			} `json:"date"`
		} `json:"properties"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeNotionError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if status, ok := f.failUpdates[id]; ok {
		writeNotionError(w, status, "validation_error", "update rejected")
		return
	}
	prop, ok := body.Properties[f.DateProperty]
	if !ok || prop.Date == nil {
		writeNotionError(w, http.StatusBadRequest, "validation_error", "date property missing")
		return
	}
	for i := range f.pages {
		if f.pages[i].ID != id {
			continue
		}
		f.pages[i].Start = prop.Date.Start
		f.pages[i].End = ""
		if prop.Date.End != nil {
			f.pages[i].End = *prop.Date.End
		}
		f.pages[i].Raw = nil
		f.updates = append(f.updates, Update{PageID: id, Start: prop.Date.Start, End: prop.Date.End})
		writeFakeJSON(w, http.StatusOK, f.pageJSON(f.pages[i]))
		return
	}
	writeNotionError(w, http.StatusNotFound, "object_not_found", fmt.Sprintf("page %s not found", id))
}

func (f *FakeNotion) pageJSON(p FakePage) map[string]any {
	var date any
	switch {
	case p.Raw != nil:
		date = p.Raw
	case p.Start != "":
		d := map[string]any{"start": p.Start, "end": nil, "time_zone": nil}
		if p.End != "" {
			d["end"] = p.End
		}
		date = map[string]any{"id": "d", "type": "date", "date": d}
	default:
		date = map[string]any{"id": "d", "type": "date", "date": nil}
	}
	return map[string]any{
		"object":     "page",
		"id":         p.ID,
		"properties": map[string]any{f.DateProperty: date},
	}
}

func writeFakeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeNotionError(w http.ResponseWriter, status int, code, msg string) {
	writeFakeJSON(w, status, map[string]any{
		"object":  "error",
		"status":  status,
		"code":    code,
		"message": msg,
	})
}
