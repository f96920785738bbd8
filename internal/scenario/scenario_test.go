package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunBadgeLifecycle(t *testing.T) {
	src := `
name: badge lifecycle
kinds:
  - kind: x-badge
    observed: [count]
steps:
  - create: x-badge
    as: badge
  - connect: badge
  - set-attribute: badge
    name: count
    value: "1"
  - set-attribute: badge
    name: hidden
    value: "yes"
  - remove-attribute: badge
    name: count
  - destroy: badge
expect:
  - construct x-badge $badge
  - connect x-badge $badge
  - attr x-badge $badge count "" -> "1"
  - attr x-badge $badge count "1" -> ""
  - disconnect x-badge $badge
  - finalize changes=2
`
	s, err := Parse("badge.yaml", []byte(src))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	res, err := Run(s, nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !res.OK() {
		t.Fatalf("expected clean run, got mismatches: %v", res.Mismatches)
	}
	if len(res.Trace) != 6 {
		t.Errorf("trace length = %d, want %d: %v", len(res.Trace), 6, res.Trace)
	}
	if res.Stats.Constructed != 1 {
		t.Errorf("Constructed = %d, want 1", res.Stats.Constructed)
	}
	// The write to "hidden" is not observed and never reaches the callback.
	if res.Stats.AttributesFiltered != 1 {
		t.Errorf("AttributesFiltered = %d, want 1", res.Stats.AttributesFiltered)
	}
	if res.Stats.Destroyed != 1 {
		t.Errorf("Destroyed = %d, want 1", res.Stats.Destroyed)
	}
}

func TestRunAdoption(t *testing.T) {
	src := `
name: adoption
kinds:
  - kind: x-card
steps:
  - create: x-card
    as: card
  - connect: card
  - new-document: lab
  - adopt: card
    doc: lab
    connected: true
  - disconnect: card
expect:
  - construct x-card $card
  - connect x-card $card
  - adopt x-card $card -> $lab connected=true
  - disconnect x-card $card
`
	s, err := Parse("adoption.yaml", []byte(src))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	res, err := Run(s, nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !res.OK() {
		t.Fatalf("expected clean run, got mismatches: %v", res.Mismatches)
	}
	if res.Stats.Adopted != 1 {
		t.Errorf("Adopted = %d, want 1", res.Stats.Adopted)
	}
}

func TestRunConnectUnder(t *testing.T) {
	src := `
name: nesting
kinds:
  - kind: x-list
  - kind: x-item
steps:
  - create: x-list
    as: list
  - connect: list
  - create: x-item
    as: item
  - connect: item
    under: list
  - disconnect: list
expect:
  - construct x-list $list
  - connect x-list $list
  - construct x-item $item
  - connect x-item $item
  - disconnect x-list $list
`
	s, err := Parse("nesting.yaml", []byte(src))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	res, err := Run(s, nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	// Detaching the list does not notify the nested item; engines report
	// each element separately, and the script only reported the list.
	if !res.OK() {
		t.Fatalf("expected clean run, got mismatches: %v", res.Mismatches)
	}
	if res.Stats.Disconnected != 1 {
		t.Errorf("Disconnected = %d, want 1", res.Stats.Disconnected)
	}
}

func TestRunExpectMismatch(t *testing.T) {
	src := `
kinds:
  - kind: x-badge
steps:
  - create: x-badge
    as: badge
expect:
  - construct x-badge $badge
  - connect x-badge $badge
`
	s, err := Parse("mismatch.yaml", []byte(src))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	res, err := Run(s, nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.OK() {
		t.Fatal("expected a mismatch for the missing connect line")
	}
	if len(res.Mismatches) != 1 {
		t.Fatalf("mismatches = %v, want one entry", res.Mismatches)
	}
	if !strings.Contains(res.Mismatches[0], "trace ended") {
		t.Errorf("mismatch = %q, want trace-ended report", res.Mismatches[0])
	}
}

func TestRunUnknownHandle(t *testing.T) {
	src := `
kinds:
  - kind: x-badge
steps:
  - connect: ghost
`
	s, err := Parse("ghost.yaml", []byte(src))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	_, err = Run(s, nil)
	if err == nil {
		t.Fatal("expected error for unknown handle")
	}
	if !strings.Contains(err.Error(), "E142") {
		t.Errorf("error = %v, want E142", err)
	}
}

func TestRunBadKindName(t *testing.T) {
	src := `
kinds:
  - kind: badge
steps:
  - create: badge
    as: badge
`
	s, err := Parse("plain.yaml", []byte(src))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	// Kind names need a hyphen; registration must fail before any step runs.
	_, err = Run(s, nil)
	if err == nil {
		t.Fatal("expected error for kind without hyphen")
	}
	if !strings.Contains(err.Error(), "E140") {
		t.Errorf("error = %v, want E140", err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"bad yaml", "kinds: [", "E140"},
		{"no kinds", "steps:\n  - create: x-a\n    as: a\n", "E140"},
		{"no steps", "kinds:\n  - kind: x-a\n", "E140"},
		{"empty step", "kinds:\n  - kind: x-a\nsteps:\n  - as: a\n", "E141"},
		{"two actions", "kinds:\n  - kind: x-a\nsteps:\n  - create: x-a\n    as: a\n    destroy: a\n", "E141"},
		{"create without as", "kinds:\n  - kind: x-a\nsteps:\n  - create: x-a\n", "E140"},
		{"adopt without doc", "kinds:\n  - kind: x-a\nsteps:\n  - adopt: a\n", "E140"},
		{"set without name", "kinds:\n  - kind: x-a\nsteps:\n  - set-attribute: a\n    value: v\n", "E140"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.name+".yaml", []byte(tt.src))
			if err == nil {
				t.Fatal("expected parse error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want %s", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "smoke.yaml")
	src := "kinds:\n  - kind: x-a\nsteps:\n  - create: x-a\n    as: a\n"
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(s.Steps) != 1 {
		t.Errorf("steps = %d, want 1", len(s.Steps))
	}

	_, err = Load(filepath.Join(dir, "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "E140") {
		t.Errorf("error = %v, want E140", err)
	}
}
