package backend

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Priority is the importance of a task
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

// DefaultPriority is used when a task does not specify one
const DefaultPriority = PriorityNormal

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	default:
		return "normal"
	}
}

// Valid reports whether p is one of the three known levels
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityHigh
}

// ParsePriority converts user input into a Priority.
// Accepts the level names and their first letter.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "n", "normal":
		return PriorityNormal, nil
	case "l", "low":
		return PriorityLow, nil
	case "h", "high":
		return PriorityHigh, nil
	default:
		return DefaultPriority, fmt.Errorf("invalid priority %q (valid: low/l, normal/n, high/h)", s)
	}
}

// Task is one to-do item. It is treated as a value: changing a field means
// building a new Task with the same ID, never mutating a shared one.
type Task struct {
	ID        string     `json:"id" yaml:"id"`
	Text      string     `json:"text" yaml:"text"`
	Priority  Priority   `json:"priority" yaml:"priority"`
	Deadline  *time.Time `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	IsDone    bool       `json:"isDone" yaml:"is_done"`
	CreatedAt time.Time  `json:"createdAt" yaml:"created_at"`
	EditedAt  *time.Time `json:"editedAt,omitempty" yaml:"edited_at,omitempty"`
}

// TaskOption customises a task built by NewTask
type TaskOption func(*Task)

// WithID overrides the generated identifier
func WithID(id string) TaskOption {
	return func(t *Task) { t.ID = id }
}

// WithDeadline sets the deadline at construction
func WithDeadline(deadline time.Time) TaskOption {
	return func(t *Task) { t.Deadline = timePtr(deadline) }
}

// WithDone sets the completion flag at construction
func WithDone(done bool) TaskOption {
	return func(t *Task) { t.IsDone = done }
}

// WithCreatedAt overrides the creation timestamp
func WithCreatedAt(createdAt time.Time) TaskOption {
	return func(t *Task) { t.CreatedAt = createdAt }
}

// WithEditedAt sets the last modification timestamp at construction
func WithEditedAt(editedAt time.Time) TaskOption {
	return func(t *Task) { t.EditedAt = timePtr(editedAt) }
}

// NewTask creates a task with a fresh UUID and CreatedAt set to now
func NewTask(text string, priority Priority, opts ...TaskOption) Task {
	t := Task{
		ID:        uuid.NewString(),
		Text:      text,
		Priority:  priority,
		CreatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

// Validate rejects the transient placeholder state (empty text) and
// structurally broken tasks.
func (t Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task has no id")
	}
	if strings.TrimSpace(t.Text) == "" {
		return ErrEmptyText
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("task %s has invalid priority %d", t.ID, t.Priority)
	}
	return nil
}

// Equal compares tasks by identity
func (t Task) Equal(other Task) bool {
	return t.ID == other.ID
}

// Less orders tasks by (CreatedAt, ID)
func (t Task) Less(other Task) bool {
	if !t.CreatedAt.Equal(other.CreatedAt) {
		return t.CreatedAt.Before(other.CreatedAt)
	}
	return t.ID < other.ID
}

// IsOverdue reports whether an open task has a deadline before now
func (t Task) IsOverdue(now time.Time) bool {
	return !t.IsDone && t.Deadline != nil && t.Deadline.Before(now)
}

// WithText returns a copy with new text
func (t Task) WithText(text string) Task {
	t.Text = text
	return t.touch()
}

// WithPriority returns a copy with a new priority
func (t Task) WithPriority(p Priority) Task {
	t.Priority = p
	return t.touch()
}

// WithDeadline returns a copy with a new deadline
func (t Task) WithDeadline(deadline time.Time) Task {
	t.Deadline = timePtr(deadline)
	return t.touch()
}

// WithoutDeadline returns a copy with the deadline cleared
func (t Task) WithoutDeadline() Task {
	t.Deadline = nil
	return t.touch()
}

// WithDone returns a copy with a new completion flag
func (t Task) WithDone(done bool) Task {
	t.IsDone = done
	return t.touch()
}

// LastModified returns EditedAt when set, CreatedAt otherwise
func (t Task) LastModified() time.Time {
	if t.EditedAt != nil {
		return *t.EditedAt
	}
	return t.CreatedAt
}

func (t Task) touch() Task {
	t.EditedAt = timePtr(time.Now())
	return t
}

func (t Task) String() string {
	status := "[ ]"
	if t.IsDone {
		status = "[x]"
	}
	return fmt.Sprintf("%s %s (%s, %s)", status, t.Text, t.Priority, t.ID)
}

// SortTasks sorts in place by (CreatedAt, ID)
func SortTasks(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Less(tasks[j])
	})
}

func timePtr(t time.Time) *time.Time {
	return &t
}
