package remote

import (
	"fmt"
	"time"

	"todosync/backend"
)

// Wire importance tokens. The service names the three levels differently
// from the local priorities, so the mapping is explicit.
const (
	ImportanceLow       = "low"
	ImportanceBasic     = "basic"
	ImportanceImportant = "important"
)

// deadlineHour is the local time of day deadlines are pinned to before
// transmission, so that day comparisons do not drift across time zones.
const deadlineHour = 12

// Element is a task as exchanged with the list service
type Element struct {
	ID            string  `json:"id"`
	Text          string  `json:"text"`
	Importance    string  `json:"importance"`
	Deadline      *int64  `json:"deadline,omitempty"`
	Done          bool    `json:"done"`
	Color         *string `json:"color,omitempty"`
	CreatedAt     int64   `json:"created_at"`
	ChangedAt     int64   `json:"changed_at"`
	LastUpdatedBy string  `json:"last_updated_by"`
}

func importanceFor(p backend.Priority) string {
	switch p {
	case backend.PriorityLow:
		return ImportanceLow
	case backend.PriorityHigh:
		return ImportanceImportant
	default:
		return ImportanceBasic
	}
}

func priorityFor(importance string) (backend.Priority, error) {
	switch importance {
	case ImportanceLow:
		return backend.PriorityLow, nil
	case ImportanceBasic:
		return backend.PriorityNormal, nil
	case ImportanceImportant:
		return backend.PriorityHigh, nil
	default:
		return backend.DefaultPriority, fmt.Errorf("unknown importance %q", importance)
	}
}

// NormalizeDeadline pins a deadline to noon local time on the same day
func NormalizeDeadline(t time.Time) time.Time {
	local := t.In(time.Local)
	return time.Date(local.Year(), local.Month(), local.Day(), deadlineHour, 0, 0, 0, time.Local)
}

// toElement converts a task to its wire shape
func toElement(task backend.Task, deviceID string) Element {
	el := Element{
		ID:            task.ID,
		Text:          task.Text,
		Importance:    importanceFor(task.Priority),
		Done:          task.IsDone,
		CreatedAt:     task.CreatedAt.Unix(),
		ChangedAt:     task.LastModified().Unix(),
		LastUpdatedBy: deviceID,
	}
	if task.Deadline != nil {
		d := NormalizeDeadline(*task.Deadline).Unix()
		el.Deadline = &d
	}
	return el
}

// toTask converts a wire element to a task
func toTask(el Element) (backend.Task, error) {
	if el.ID == "" {
		return backend.Task{}, fmt.Errorf("element without id")
	}
	priority, err := priorityFor(el.Importance)
	if err != nil {
		return backend.Task{}, fmt.Errorf("element %s: %w", el.ID, err)
	}

	task := backend.Task{
		ID:        el.ID,
		Text:      el.Text,
		Priority:  priority,
		IsDone:    el.Done,
		CreatedAt: time.Unix(el.CreatedAt, 0),
	}
	if el.Deadline != nil {
		d := time.Unix(*el.Deadline, 0)
		task.Deadline = &d
	}
	if el.ChangedAt != 0 && el.ChangedAt != el.CreatedAt {
		e := time.Unix(el.ChangedAt, 0)
		task.EditedAt = &e
	}
	return task, nil
}

func toElements(tasks []backend.Task, deviceID string) []Element {
	out := make([]Element, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toElement(t, deviceID))
	}
	return out
}

func toTasks(elements []Element) ([]backend.Task, error) {
	out := make([]backend.Task, 0, len(elements))
	for _, el := range elements {
		task, err := toTask(el)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	backend.SortTasks(out)
	return out, nil
}
