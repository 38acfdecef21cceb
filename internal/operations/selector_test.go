package operations

import (
	"errors"
	"strings"
	"testing"
	"time"

	"todosync/backend"
	"todosync/internal/utils"
)

func sampleTasks() []backend.Task {
	created := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	return []backend.Task{
		backend.NewTask("Buy milk", backend.PriorityNormal, backend.WithID("a1b2c3d4-0001"), backend.WithCreatedAt(created)),
		backend.NewTask("Call mom", backend.PriorityHigh, backend.WithID("a1b2ffff-0002"), backend.WithCreatedAt(created.Add(time.Minute))),
		backend.NewTask("Pay rent", backend.PriorityLow, backend.WithID("9f00aa11-0003"), backend.WithCreatedAt(created.Add(2*time.Minute)), backend.WithDone(true)),
	}
}

func TestFindByID(t *testing.T) {
	tasks := sampleTasks()

	tests := []struct {
		name string
		ref  string
		want string
	}{
		{"exact id", "a1b2c3d4-0001", "a1b2c3d4-0001"},
		{"unique prefix", "9f", "9f00aa11-0003"},
		{"case insensitive", "A1B2C3", "a1b2c3d4-0001"},
		{"trimmed", " a1b2f ", "a1b2ffff-0002"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindByID(tasks, tt.ref)
			if err != nil {
				t.Fatalf("FindByID(%q) error = %v", tt.ref, err)
			}
			if got.ID != tt.want {
				t.Errorf("FindByID(%q) = %s, want %s", tt.ref, got.ID, tt.want)
			}
		})
	}
}

func TestFindByIDErrors(t *testing.T) {
	tasks := sampleTasks()

	tests := []struct {
		name     string
		ref      string
		contains string
	}{
		{"no match", "zzz", "no task matches id 'zzz'"},
		{"empty", "", "no task matches"},
		{"ambiguous", "a1b2", "matches 2 tasks: a1b2c3d4-0001, a1b2ffff-0002"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FindByID(tasks, tt.ref)
			if err == nil {
				t.Fatal("expected an error")
			}
			var ews *utils.ErrorWithSuggestion
			if !errors.As(err, &ews) {
				t.Fatalf("error %T should carry a suggestion", err)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q should contain %q", err.Error(), tt.contains)
			}
		})
	}
}

func TestShortID(t *testing.T) {
	if got := ShortID("a1b2c3d4-0001"); got != "a1b2c3d4" {
		t.Errorf("ShortID() = %q", got)
	}
	if got := ShortID("abc"); got != "abc" {
		t.Errorf("ShortID(short) = %q", got)
	}
}

func TestCompleteIDs(t *testing.T) {
	tasks := sampleTasks()

	got := CompleteIDs(tasks, "", false)
	if len(got) != 2 {
		t.Fatalf("CompleteIDs() = %v, want 2 open tasks", got)
	}
	if got[0] != "a1b2c3d4\tBuy milk" {
		t.Errorf("CompleteIDs()[0] = %q", got[0])
	}

	if got := CompleteIDs(tasks, "9F", true); len(got) != 1 || !strings.HasPrefix(got[0], "9f00aa11") {
		t.Errorf("CompleteIDs(9F, done) = %v", got)
	}
	if got := CompleteIDs(tasks, "9f", false); len(got) != 0 {
		t.Errorf("CompleteIDs should skip done tasks, got %v", got)
	}
	if got := CompleteIDs(tasks, "a1b2c3d4-", false); len(got) != 1 || !strings.HasPrefix(got[0], "a1b2c3d4-0001\t") {
		t.Errorf("long prefixes should complete to the full id, got %v", got)
	}
}
