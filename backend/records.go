package backend

import (
	"encoding/json"
	"math"
	"time"
)

// Stored priority values. Normal is the default and is never written.
const (
	storedPriorityHigh   = 0
	storedPriorityNormal = 1
	storedPriorityLow    = 2
)

// Record is the persisted shape of a task: a flat object where optional
// keys are omitted instead of being null.
type Record struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	IsDone    bool     `json:"isDone"`
	CreatedAt float64  `json:"createdAt"`
	Priority  *int     `json:"priority,omitempty"`
	Deadline  *float64 `json:"deadline,omitempty"`
	EditedAt  *float64 `json:"editedAt,omitempty"`
}

// rawRecord is used on decode so that missing required keys can be told
// apart from zero values.
type rawRecord struct {
	ID        *string  `json:"id"`
	Text      *string  `json:"text"`
	IsDone    *bool    `json:"isDone"`
	CreatedAt *float64 `json:"createdAt"`
	Priority  *int     `json:"priority"`
	Deadline  *float64 `json:"deadline"`
	EditedAt  *float64 `json:"editedAt"`
}

// ToRecord converts a task to its persisted shape
func ToRecord(t Task) Record {
	r := Record{
		ID:        t.ID,
		Text:      t.Text,
		IsDone:    t.IsDone,
		CreatedAt: TimeToSeconds(t.CreatedAt),
	}
	if t.Priority != PriorityNormal {
		p := storedPriority(t.Priority)
		r.Priority = &p
	}
	if t.Deadline != nil {
		d := TimeToSeconds(*t.Deadline)
		r.Deadline = &d
	}
	if t.EditedAt != nil {
		e := TimeToSeconds(*t.EditedAt)
		r.EditedAt = &e
	}
	return r
}

// Task converts a record back into a task
func (r Record) Task() (Task, bool) {
	priority := PriorityNormal
	if r.Priority != nil {
		p, ok := priorityFromStored(*r.Priority)
		if !ok {
			return Task{}, false
		}
		priority = p
	}

	t := Task{
		ID:        r.ID,
		Text:      r.Text,
		Priority:  priority,
		IsDone:    r.IsDone,
		CreatedAt: SecondsToTime(r.CreatedAt),
	}
	if r.Deadline != nil {
		t.Deadline = timePtr(SecondsToTime(*r.Deadline))
	}
	if r.EditedAt != nil {
		t.EditedAt = timePtr(SecondsToTime(*r.EditedAt))
	}
	return t, true
}

// EncodeRecords serialises tasks as a JSON array of records, in display order
func EncodeRecords(tasks []Task) ([]byte, error) {
	sorted := make([]Task, len(tasks))
	copy(sorted, tasks)
	SortTasks(sorted)

	records := make([]Record, 0, len(sorted))
	for _, t := range sorted {
		records = append(records, ToRecord(t))
	}
	return json.MarshalIndent(records, "", "  ")
}

// DecodeRecords parses a JSON array of records. It fails with ErrUnparsable
// when the top-level value is not an array; individual records that do not
// match the expected shape are skipped and counted.
func DecodeRecords(data []byte) ([]Task, int, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, 0, &StoreError{Op: "Decode", Err: ErrUnparsable, Cause: err}
	}

	tasks := make([]Task, 0, len(elements))
	skipped := 0
	for _, raw := range elements {
		task, ok := decodeRecord(raw)
		if !ok {
			skipped++
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, skipped, nil
}

func decodeRecord(raw json.RawMessage) (Task, bool) {
	var rr rawRecord
	if err := json.Unmarshal(raw, &rr); err != nil {
		return Task{}, false
	}
	if rr.ID == nil || rr.Text == nil || rr.IsDone == nil || rr.CreatedAt == nil {
		return Task{}, false
	}
	if *rr.ID == "" {
		return Task{}, false
	}
	return Record{
		ID:        *rr.ID,
		Text:      *rr.Text,
		IsDone:    *rr.IsDone,
		CreatedAt: *rr.CreatedAt,
		Priority:  rr.Priority,
		Deadline:  rr.Deadline,
		EditedAt:  rr.EditedAt,
	}.Task()
}

func storedPriority(p Priority) int {
	switch p {
	case PriorityHigh:
		return storedPriorityHigh
	case PriorityLow:
		return storedPriorityLow
	default:
		return storedPriorityNormal
	}
}

func priorityFromStored(v int) (Priority, bool) {
	switch v {
	case storedPriorityHigh:
		return PriorityHigh, true
	case storedPriorityNormal:
		return PriorityNormal, true
	case storedPriorityLow:
		return PriorityLow, true
	default:
		return DefaultPriority, false
	}
}

// TimeToSeconds converts to fractional seconds since the Unix epoch
func TimeToSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// SecondsToTime converts fractional epoch seconds, rounded to the microsecond
func SecondsToTime(s float64) time.Time {
	sec, frac := math.Modf(s)
	nsec := math.Round(frac*1e6) * 1e3
	return time.Unix(int64(sec), int64(nsec))
}
