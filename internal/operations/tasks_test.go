package operations

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"todosync/backend"
)

func strPtr(s string) *string { return &s }

func TestBuildTask(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.Local)
	dates := NewDateParser("")

	task, err := BuildTask(TaskInput{Text: "  Write report ", Priority: "h", Due: "2026-03-12"}, dates, now)
	if err != nil {
		t.Fatalf("BuildTask() error = %v", err)
	}
	if task.ID == "" {
		t.Error("BuildTask() should generate an id")
	}
	if task.Text != "Write report" {
		t.Errorf("Text = %q", task.Text)
	}
	if task.Priority != backend.PriorityHigh {
		t.Errorf("Priority = %v", task.Priority)
	}
	if !task.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", task.CreatedAt, now)
	}
	if task.Deadline == nil || !task.Deadline.Equal(time.Date(2026, 3, 12, 12, 0, 0, 0, time.Local)) {
		t.Errorf("Deadline = %v", task.Deadline)
	}
	if task.EditedAt != nil || task.IsDone {
		t.Error("new tasks are open and never edited")
	}
}

func TestBuildTaskErrors(t *testing.T) {
	dates := NewDateParser("")
	tests := []struct {
		name string
		in   TaskInput
		is   error
	}{
		{"empty text", TaskInput{Text: "   "}, backend.ErrEmptyText},
		{"bad priority", TaskInput{Text: "x", Priority: "urgent"}, nil},
		{"bad deadline", TaskInput{Text: "x", Due: "banana"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildTask(tt.in, dates, time.Now())
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("error = %v, want %v", err, tt.is)
			}
		})
	}
}

func TestApplyEdit(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.Local)
	dates := NewDateParser("")
	deadline := time.Date(2026, 3, 20, 12, 0, 0, 0, time.Local)
	base := backend.NewTask("Buy milk", backend.PriorityNormal, backend.WithDeadline(deadline))

	tests := []struct {
		name    string
		in      EditInput
		changed bool
		check   func(t *testing.T, got backend.Task)
	}{
		{
			name:    "text",
			in:      EditInput{Text: strPtr("Buy oat milk")},
			changed: true,
			check: func(t *testing.T, got backend.Task) {
				if got.Text != "Buy oat milk" {
					t.Errorf("Text = %q", got.Text)
				}
			},
		},
		{
			name:    "same text",
			in:      EditInput{Text: strPtr("Buy milk")},
			changed: false,
		},
		{
			name:    "priority",
			in:      EditInput{Priority: strPtr("low")},
			changed: true,
			check: func(t *testing.T, got backend.Task) {
				if got.Priority != backend.PriorityLow {
					t.Errorf("Priority = %v", got.Priority)
				}
			},
		},
		{
			name:    "clear deadline",
			in:      EditInput{Due: strPtr("none")},
			changed: true,
			check: func(t *testing.T, got backend.Task) {
				if got.Deadline != nil {
					t.Errorf("Deadline = %v, want nil", got.Deadline)
				}
			},
		},
		{
			name:    "same deadline",
			in:      EditInput{Due: strPtr("2026-03-20")},
			changed: false,
		},
		{
			name:    "new deadline",
			in:      EditInput{Due: strPtr("2026-04-01")},
			changed: true,
			check: func(t *testing.T, got backend.Task) {
				if got.Deadline == nil || got.Deadline.Month() != time.April {
					t.Errorf("Deadline = %v", got.Deadline)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed, err := ApplyEdit(base, tt.in, dates, now)
			if err != nil {
				t.Fatalf("ApplyEdit() error = %v", err)
			}
			if changed != tt.changed {
				t.Fatalf("changed = %v, want %v", changed, tt.changed)
			}
			if got.ID != base.ID || !got.CreatedAt.Equal(base.CreatedAt) {
				t.Error("ApplyEdit must keep id and creation time")
			}
			if changed && got.EditedAt == nil {
				t.Error("an edited task must carry EditedAt")
			}
			if tt.check != nil {
				tt.check(t, got)
			}
		})
	}
}

func TestApplyEditRejectsEmptyText(t *testing.T) {
	base := backend.NewTask("Buy milk", backend.PriorityNormal)
	_, _, err := ApplyEdit(base, EditInput{Text: strPtr(" ")}, NewDateParser(""), time.Now())
	if !errors.Is(err, backend.ErrEmptyText) {
		t.Errorf("error = %v, want ErrEmptyText", err)
	}
}

func TestEditInputEmpty(t *testing.T) {
	if !(EditInput{}).Empty() {
		t.Error("zero EditInput should be empty")
	}
	if (EditInput{Due: strPtr("")}).Empty() {
		t.Error("an explicit --due should count as a change request")
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"", StatusTodo, false},
		{"a", StatusAll, false},
		{"DONE", StatusDone, false},
		{"o", StatusOverdue, false},
		{"later", StatusTodo, true},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStatus(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseStatus(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFilterTasks(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.Local)
	past := now.Add(-48 * time.Hour)
	tasks := []backend.Task{
		backend.NewTask("Buy milk", backend.PriorityNormal, backend.WithID("1")),
		backend.NewTask("Call mom", backend.PriorityHigh, backend.WithID("2"), backend.WithDeadline(past)),
		backend.NewTask("Pay rent", backend.PriorityLow, backend.WithID("3"), backend.WithDone(true)),
		backend.NewTask("Buy bread", backend.PriorityHigh, backend.WithID("4"), backend.WithDone(true), backend.WithDeadline(past)),
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{Status: StatusAll}, []string{"1", "2", "3", "4"}},
		{"todo", Filter{Status: StatusTodo}, []string{"1", "2"}},
		{"done", Filter{Status: StatusDone}, []string{"3", "4"}},
		{"overdue skips done", Filter{Status: StatusOverdue}, []string{"2"}},
		{"priority", Filter{Status: StatusAll, Priorities: []backend.Priority{backend.PriorityHigh}}, []string{"2", "4"}},
		{"search", Filter{Status: StatusAll, Search: "BUY"}, []string{"1", "4"}},
		{"combined", Filter{Status: StatusTodo, Search: "buy"}, []string{"1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterTasks(tasks, tt.filter, now)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d tasks, want %v", len(got), tt.want)
			}
			for i, task := range got {
				if task.ID != tt.want[i] {
					t.Errorf("task %d = %s, want %s", i, task.ID, tt.want[i])
				}
			}
		})
	}
}

func newFilterCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "list"}
	cmd.Flags().String("status", "todo", "")
	cmd.Flags().StringArray("priority", nil, "")
	cmd.Flags().String("search", "", "")
	return cmd
}

func TestBuildFilter(t *testing.T) {
	cmd := newFilterCommand()
	if err := cmd.Flags().Parse([]string{"--status", "a", "--priority", "h,l", "--priority", "n", "--search", "milk"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	f, err := BuildFilter(cmd)
	if err != nil {
		t.Fatalf("BuildFilter() error = %v", err)
	}
	if f.Status != StatusAll {
		t.Errorf("Status = %v", f.Status)
	}
	want := []backend.Priority{backend.PriorityHigh, backend.PriorityLow, backend.PriorityNormal}
	if len(f.Priorities) != len(want) {
		t.Fatalf("Priorities = %v", f.Priorities)
	}
	for i := range want {
		if f.Priorities[i] != want[i] {
			t.Errorf("Priorities[%d] = %v, want %v", i, f.Priorities[i], want[i])
		}
	}
	if f.Search != "milk" {
		t.Errorf("Search = %q", f.Search)
	}
}

func TestBuildFilterInvalid(t *testing.T) {
	cmd := newFilterCommand()
	if err := cmd.Flags().Parse([]string{"--priority", "urgent"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, err := BuildFilter(cmd); err == nil {
		t.Error("BuildFilter() should reject an unknown priority")
	}
}
