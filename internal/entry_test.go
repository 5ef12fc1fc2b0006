package internal

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/timeshift/internal/runservice"
	"github.com/starford/timeshift/internal/testutil"
)

func commandConfig(t *testing.T, fake *testutil.FakeNotion) *Config {
	t.Helper()
	cfg := validConfig(t)
	dir := t.TempDir()
	cfg.Notion.BaseURL = fake.URL()
	cfg.Notion.DatabaseID = testutil.FakeDatabaseID
	cfg.SQLite.Path = filepath.Join(dir, "audit.db")
	cfg.Presets.Path = ""
	cfg.App.LogFile = filepath.Join(dir, "timeshift.log")
	return cfg
}

func TestRunAdjust(t *testing.T) {
	fake := testutil.NewFakeNotion(t)
	fake.AddPages(testutil.FakePage{ID: "p1", Start: "2024-06-01T10:00:00"})
	cfg := commandConfig(t, fake)

	var out bytes.Buffer
	err := RunAdjust(context.Background(), runservice.Request{Hours: 4, StartDate: "2024-06-01"},
		WithConfig(cfg), WithOutput(&out))
	if err != nil {
		t.Fatalf("RunAdjust: %v", err)
	}
	if !strings.Contains(out.String(), "Records updated: 1") {
		t.Errorf("output = %q", out.String())
	}
	p, _ := fake.Page("p1")
	if p.Start != "2024-06-01T14:00:00" {
		t.Errorf("start = %q", p.Start)
	}

	logData, err := os.ReadFile(cfg.App.LogFile)
	if err != nil {
		t.Fatalf("log file: %v", err)
	}
	if !strings.Contains(string(logData), "adjust: completed") {
		t.Error("log file should receive engine logs")
	}
}

func TestRunAdjust_InvalidDateFails(t *testing.T) {
	fake := testutil.NewFakeNotion(t)
	cfg := commandConfig(t, fake)

	err := RunAdjust(context.Background(), runservice.Request{Hours: 1, StartDate: "tomorrow"},
		WithConfig(cfg), WithOutput(&bytes.Buffer{}))
	if err == nil || !strings.Contains(err.Error(), "date") {
		t.Fatalf("err = %v", err)
	}
}

func TestRunProperties(t *testing.T) {
	fake := testutil.NewFakeNotion(t)
	fake.SetProperties(map[string]string{"Date": "date", "Cliente": "select"})
	cfg := commandConfig(t, fake)

	var out bytes.Buffer
	if err := RunProperties(context.Background(), WithConfig(cfg), WithOutput(&out)); err != nil {
		t.Fatalf("RunProperties: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.HasPrefix(lines[1], "Cliente") || !strings.HasSuffix(lines[1], "true") {
		t.Errorf("Cliente row = %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], "false") {
		t.Errorf("Date row = %q", lines[2])
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("expected config error")
	}
}
