package shift

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/starford/timeshift/internal/notion"
	"github.com/starford/timeshift/internal/testutil"
)

func testRemote(t *testing.T) (*notion.Client, *testutil.FakeNotion) {
	t.Helper()
	fake := testutil.NewFakeNotion(t)
	return notion.NewClient(notion.Options{BaseURL: fake.URL(), APIKey: "test-key"}), fake
}

func testEngine(t *testing.T) (*Engine, *testutil.FakeNotion, *testutil.LogRecorder) {
	t.Helper()
	client, fake := testRemote(t)
	logger, rec := testutil.NewLogger()
	e := NewEngine(client, Settings{DatabaseID: testutil.FakeDatabaseID}, logger)
	return e, fake, rec
}

func discardLogger() *slog.Logger {
	logger, _ := testutil.NewLogger()
	return logger
}

// seedPages adds n pages p1..pn, each starting at 2024-06-01T10:00.
func seedPages(fake *testutil.FakeNotion, n int) {
	for i := 1; i <= n; i++ {
		fake.AddPages(testutil.FakePage{ID: fmt.Sprintf("p%d", i), Start: "2024-06-01T10:00:00"})
	}
}
