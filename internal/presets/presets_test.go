package presets

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/timeshift/internal/apperr"
)

const sample = `
presets:
  abc-active:
    description: Active projects for client ABC
    filters:
      Cliente: ABC
      Estado: Activo
  all-design:
    filters:
      Phase: Design
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestLoadAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	writeFile(t, path, sample)

	s := NewStore(path)
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Path() != path {
		t.Errorf("Path = %q, want %q", s.Path(), path)
	}

	got, err := s.Get("abc-active")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := Preset{
		Name:        "abc-active",
		Description: "Active projects for client ABC",
		Filters:     map[string]string{"Cliente": "ABC", "Estado": "Activo"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("preset mismatch (-want +got):\n%s", diff)
	}

	list := s.List()
	if len(list) != 2 || list[0].Name != "abc-active" || list[1].Name != "all-design" {
		t.Errorf("List = %+v", list)
	}
}

func TestGet_Unknown(t *testing.T) {
	s := NewStore("")
	if _, err := s.Get("nope"); !errors.Is(err, apperr.ErrUnknownPreset) {
		t.Errorf("err = %v, want ErrUnknownPreset", err)
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	writeFile(t, path, sample)
	s := NewStore(path)
	_ = s.Load()

	p, _ := s.Get("all-design")
	p.Filters["Phase"] = "Build"

	again, _ := s.Get("all-design")
	if again.Filters["Phase"] != "Design" {
		t.Error("mutating a returned preset changed the store")
	}
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "absent.yaml"))
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(s.List()) != 0 {
		t.Error("expected no presets")
	}
}

func TestLoad_BadFileKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	writeFile(t, path, sample)
	s := NewStore(path)
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}

	writeFile(t, path, "presets: [not, a, map")
	if err := s.Load(); err == nil {
		t.Fatal("expected parse error")
	}
	if len(s.List()) != 2 {
		t.Errorf("previous presets lost: %+v", s.List())
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	writeFile(t, path, sample)
	s := NewStore(path)
	_ = s.Load()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reloads atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Watch(ctx, logger, func(int) { reloads.Add(1) })
	}()
	time.Sleep(100 * time.Millisecond)

	writeFile(t, path, "presets:\n  only:\n    filters:\n      Cliente: XYZ\n")
	eventually(t, 3*time.Second, 20*time.Millisecond, func() bool {
		_, err := s.Get("only")
		return err == nil
	}, "preset file change was not picked up")

	writeFile(t, path, "presets: [broken")
	time.Sleep(400 * time.Millisecond)
	if _, err := s.Get("only"); err != nil {
		t.Errorf("broken reload dropped presets: %v", err)
	}

	cancel()
	<-done
	if reloads.Load() == 0 {
		t.Error("onReload never called")
	}
}
