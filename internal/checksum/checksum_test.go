package checksum

import (
	"testing"
	"time"
)

func TestSum_Known(t *testing.T) {
	got := Sum([]byte("abc"))
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("Sum = %q, want %q", got, want)
	}
}

func TestRun_IgnoresFilterOrder(t *testing.T) {
	cutoff := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	a := Run(2, cutoff, map[string]any{"Cliente": "ABC", "Usuario": "Juan"})
	b := Run(2, cutoff, map[string]any{"Usuario": "Juan", "Cliente": "ABC"})
	if a != b {
		t.Errorf("fingerprints differ: %s vs %s", a, b)
	}
}

func TestRun_DistinguishesParameters(t *testing.T) {
	cutoff := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	base := Run(2, cutoff, nil)
	if base == Run(-2, cutoff, nil) {
		t.Error("hours should change the fingerprint")
	}
	if base == Run(2, cutoff.Add(time.Hour), nil) {
		t.Error("cutoff should change the fingerprint")
	}
	if base == Run(2, cutoff, map[string]any{"Cliente": "ABC"}) {
		t.Error("filters should change the fingerprint")
	}
}
