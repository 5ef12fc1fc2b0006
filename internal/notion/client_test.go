package notion

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/starford/timeshift/internal/testutil"
)

func testClient(t *testing.T) (*Client, *testutil.FakeNotion) {
	t.Helper()
	fake := testutil.NewFakeNotion(t)
	return NewClient(Options{BaseURL: fake.URL(), APIKey: "secret"}), fake
}

func TestRetrieveDatabase(t *testing.T) {
	c, fake := testClient(t)
	fake.SetProperties(map[string]string{"Date": "date", "Cliente": "select"})

	db, err := c.RetrieveDatabase(context.Background(), testutil.FakeDatabaseID)
	if err != nil {
		t.Fatalf("RetrieveDatabase: %v", err)
	}
	if got := db.Properties["Cliente"].Type; got != "select" {
		t.Errorf("Cliente type = %q, want select", got)
	}

	calls := fake.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	if calls[0].Authorization != "Bearer secret" {
		t.Errorf("Authorization = %q", calls[0].Authorization)
	}
	if calls[0].Version != DefaultVersion {
		t.Errorf("Notion-Version = %q, want %q", calls[0].Version, DefaultVersion)
	}
}

func TestRetrieveDatabase_APIError(t *testing.T) {
	c, _ := testClient(t)
	_, err := c.RetrieveDatabase(context.Background(), "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Code != "object_not_found" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestQueryDatabase_Cursor(t *testing.T) {
	c, fake := testClient(t)
	fake.AddPages(
		testutil.FakePage{ID: "a", Start: "2024-06-01T10:00:00.000+02:00"},
		testutil.FakePage{ID: "b"},
		testutil.FakePage{ID: "c", Start: "2024-06-02", End: "2024-06-03"},
	)
	ctx := context.Background()

	first, err := c.QueryDatabase(ctx, testutil.FakeDatabaseID, QueryRequest{PageSize: 2})
	if err != nil {
		t.Fatalf("QueryDatabase: %v", err)
	}
	if len(first.Results) != 2 || !first.HasMore || first.NextCursor == nil {
		t.Fatalf("first page = %+v", first)
	}

	second, err := c.QueryDatabase(ctx, testutil.FakeDatabaseID, QueryRequest{PageSize: 2, StartCursor: *first.NextCursor})
	if err != nil {
		t.Fatalf("QueryDatabase: %v", err)
	}
	if len(second.Results) != 1 || second.HasMore || second.NextCursor != nil {
		t.Fatalf("second page = %+v", second)
	}

	d, err := second.Results[0].Date("Date")
	if err != nil {
		t.Fatalf("Date: %v", err)
	}
	if d == nil || d.Start != "2024-06-02" || d.End == nil || *d.End != "2024-06-03" {
		t.Errorf("date = %+v", d)
	}

	empty, err := first.Results[1].Date("Date")
	if err != nil || empty != nil {
		t.Errorf("null date = %+v, %v", empty, err)
	}
	absent, err := first.Results[0].Date("Nope")
	if err != nil || absent != nil {
		t.Errorf("absent property = %+v, %v", absent, err)
	}
}

func TestUpdatePageDate(t *testing.T) {
	c, fake := testClient(t)
	fake.AddPages(testutil.FakePage{ID: "p1", Start: "2024-06-01T10:00:00"})

	if err := c.UpdatePageDate(context.Background(), "p1", "Date", DateValue{Start: "2024-06-01T12:00:00"}); err != nil {
		t.Fatalf("UpdatePageDate: %v", err)
	}
	ups := fake.Updates()
	if len(ups) != 1 || ups[0].Start != "2024-06-01T12:00:00" || ups[0].End != nil {
		t.Errorf("updates = %+v", ups)
	}

	fake.FailUpdate("p1", http.StatusConflict)
	err := c.UpdatePageDate(context.Background(), "p1", "Date", DateValue{Start: "x"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict {
		t.Errorf("err = %v, want 409 APIError", err)
	}
}

func TestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, APIKey: "k", Timeout: 50 * time.Millisecond})
	if _, err := c.RetrieveDatabase(context.Background(), "db"); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestAPIError_Message(t *testing.T) {
	e := &APIError{Status: 400, Code: "validation_error", Message: "bad"}
	if got := e.Error(); got != "notion: http 400: validation_error: bad" {
		t.Errorf("Error() = %q", got)
	}
	if got := (&APIError{Status: 502}).Error(); got != "notion: http 502" {
		t.Errorf("Error() = %q", got)
	}
}
