package operations

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"todosync/backend"
	"todosync/internal/utils"
)

// TaskInput holds the raw values of an add command
type TaskInput struct {
	Text     string
	Priority string
	Due      string
	Done     bool
}

// BuildTask validates in and creates a new task from it
func BuildTask(in TaskInput, dates *DateParser, now time.Time) (backend.Task, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return backend.Task{}, backend.ErrEmptyText
	}

	priority, err := ParsePriorityFlag(in.Priority)
	if err != nil {
		return backend.Task{}, err
	}

	opts := []backend.TaskOption{backend.WithCreatedAt(now), backend.WithDone(in.Done)}
	deadline, err := dates.ParseDeadline(in.Due, now)
	if err != nil {
		return backend.Task{}, err
	}
	if deadline != nil {
		opts = append(opts, backend.WithDeadline(*deadline))
	}

	return backend.NewTask(text, priority, opts...), nil
}

// EditInput holds the flags of an edit command. Nil fields are left alone.
type EditInput struct {
	Text     *string
	Priority *string
	Due      *string // "" or "none" clears the deadline
}

// Empty reports whether no field was given
func (in EditInput) Empty() bool {
	return in.Text == nil && in.Priority == nil && in.Due == nil
}

// ApplyEdit returns task with the edit applied and whether anything changed
func ApplyEdit(task backend.Task, in EditInput, dates *DateParser, now time.Time) (backend.Task, bool, error) {
	edited := task
	changed := false

	if in.Text != nil {
		text := strings.TrimSpace(*in.Text)
		if text == "" {
			return task, false, backend.ErrEmptyText
		}
		if text != task.Text {
			edited = edited.WithText(text)
			changed = true
		}
	}

	if in.Priority != nil {
		p, err := ParsePriorityFlag(*in.Priority)
		if err != nil {
			return task, false, err
		}
		if p != task.Priority {
			edited = edited.WithPriority(p)
			changed = true
		}
	}

	if in.Due != nil {
		due := strings.TrimSpace(*in.Due)
		if due == "" || strings.EqualFold(due, "none") {
			if task.Deadline != nil {
				edited = edited.WithoutDeadline()
				changed = true
			}
		} else {
			deadline, err := dates.ParseDeadline(due, now)
			if err != nil {
				return task, false, err
			}
			if task.Deadline == nil || !task.Deadline.Equal(*deadline) {
				edited = edited.WithDeadline(*deadline)
				changed = true
			}
		}
	}

	return edited, changed, nil
}

// ParsePriorityFlag converts a --priority value, reporting bad input with a
// suggestion
func ParsePriorityFlag(s string) (backend.Priority, error) {
	p, err := backend.ParsePriority(s)
	if err != nil {
		return backend.DefaultPriority, utils.ErrInvalidPriority(s)
	}
	return p, nil
}

// Status filters tasks by completion
type Status string

const (
	StatusAll     Status = "all"
	StatusTodo    Status = "todo"
	StatusDone    Status = "done"
	StatusOverdue Status = "overdue"
)

// ParseStatus converts a --status value. Single letters are accepted.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "t", "todo":
		return StatusTodo, nil
	case "a", "all":
		return StatusAll, nil
	case "d", "done":
		return StatusDone, nil
	case "o", "overdue":
		return StatusOverdue, nil
	default:
		return StatusTodo, fmt.Errorf("invalid status '%s' (valid: all/a, todo/t, done/d, overdue/o)", s)
	}
}

// Filter selects which tasks a list command shows
type Filter struct {
	Status     Status
	Priorities []backend.Priority
	Search     string
}

// Match reports whether task passes the filter at time now
func (f Filter) Match(task backend.Task, now time.Time) bool {
	switch f.Status {
	case StatusTodo:
		if task.IsDone {
			return false
		}
	case StatusDone:
		if !task.IsDone {
			return false
		}
	case StatusOverdue:
		if !task.IsOverdue(now) {
			return false
		}
	}

	if len(f.Priorities) > 0 {
		found := false
		for _, p := range f.Priorities {
			if p == task.Priority {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.Search != "" && !strings.Contains(strings.ToLower(task.Text), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// FilterTasks returns the tasks matching f, preserving order
func FilterTasks(tasks []backend.Task, f Filter, now time.Time) []backend.Task {
	out := make([]backend.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Match(t, now) {
			out = append(out, t)
		}
	}
	return out
}

// BuildFilter constructs a Filter from cobra command flags
func BuildFilter(cmd *cobra.Command) (Filter, error) {
	var filter Filter

	status, _ := cmd.Flags().GetString("status")
	s, err := ParseStatus(status)
	if err != nil {
		return filter, err
	}
	filter.Status = s

	priorities, _ := cmd.Flags().GetStringArray("priority")
	for _, value := range priorities {
		// Accept both repeated flags and comma separated values
		for part := range strings.SplitSeq(value, ",") {
			p, err := ParsePriorityFlag(part)
			if err != nil {
				return filter, err
			}
			filter.Priorities = append(filter.Priorities, p)
		}
	}

	filter.Search, _ = cmd.Flags().GetString("search")
	return filter, nil
}
