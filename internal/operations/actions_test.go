package operations

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"todosync/backend"
	"todosync/internal/utils"
)

// fakeService applies every mutation locally and then fails with remoteErr
type fakeService struct {
	items     map[string]backend.Task
	remoteErr error
	calls     []string
}

func newFakeService(tasks ...backend.Task) *fakeService {
	s := &fakeService{items: make(map[string]backend.Task)}
	for _, t := range tasks {
		s.items[t.ID] = t
	}
	return s
}

func (s *fakeService) Items() []backend.Task {
	out := make([]backend.Task, 0, len(s.items))
	for _, t := range s.items {
		out = append(out, t)
	}
	backend.SortTasks(out)
	return out
}

func (s *fakeService) AddItem(ctx context.Context, task backend.Task) (backend.Task, error) {
	s.calls = append(s.calls, "add")
	s.items[task.ID] = task
	return task, s.remoteErr
}

func (s *fakeService) UpdateItem(ctx context.Context, task backend.Task) (backend.Task, error) {
	s.calls = append(s.calls, "update")
	s.items[task.ID] = task
	return task, s.remoteErr
}

func (s *fakeService) RemoveItem(ctx context.Context, id string) (backend.Task, error) {
	s.calls = append(s.calls, "remove")
	t, ok := s.items[id]
	if !ok {
		return backend.Task{}, backend.ErrNotFound
	}
	delete(s.items, id)
	return t, s.remoteErr
}

func newTestActions(svc *fakeService) *Actions {
	a := NewActions(svc, NewDateParser(""), "home")
	a.Now = func() time.Time { return time.Date(2026, 3, 10, 8, 0, 0, 0, time.Local) }
	return a
}

func TestHandleAdd(t *testing.T) {
	svc := newFakeService()
	a := newTestActions(svc)

	res, err := a.HandleAdd(context.Background(), TaskInput{Text: "Buy milk", Priority: "high"})
	if err != nil {
		t.Fatalf("HandleAdd() error = %v", err)
	}
	if res.Warning != nil {
		t.Errorf("unexpected warning: %v", res.Warning)
	}
	if _, ok := svc.items[res.Task.ID]; !ok {
		t.Error("task was not added to the service")
	}
	if res.Task.Priority != backend.PriorityHigh {
		t.Errorf("Priority = %v", res.Task.Priority)
	}
}

func TestHandleAddRejectsEmptyText(t *testing.T) {
	svc := newFakeService()
	_, err := newTestActions(svc).HandleAdd(context.Background(), TaskInput{Text: ""})
	if !errors.Is(err, backend.ErrEmptyText) {
		t.Errorf("error = %v, want ErrEmptyText", err)
	}
	if len(svc.calls) != 0 {
		t.Errorf("no service call expected, got %v", svc.calls)
	}
}

func TestHandleAddRemoteFailureIsWarning(t *testing.T) {
	svc := newFakeService()
	svc.remoteErr = backend.NewTransportError(backend.OpAdd, errors.New("dial tcp: connection refused"))

	res, err := newTestActions(svc).HandleAdd(context.Background(), TaskInput{Text: "Buy milk"})
	if err != nil {
		t.Fatalf("HandleAdd() error = %v, remote failures must not fail the command", err)
	}
	if res.Warning == nil {
		t.Fatal("expected a warning")
	}
	if !strings.Contains(res.Warning.Error(), "remote 'home' is unreachable") {
		t.Errorf("warning = %q", res.Warning.Error())
	}
	if len(svc.items) != 1 {
		t.Error("local change must be kept")
	}
}

func TestHandleEdit(t *testing.T) {
	task := backend.NewTask("Buy milk", backend.PriorityNormal, backend.WithID("abc123"))
	svc := newFakeService(task)
	a := newTestActions(svc)

	res, err := a.HandleEdit(context.Background(), "abc", EditInput{Text: strPtr("Buy bread")})
	if err != nil {
		t.Fatalf("HandleEdit() error = %v", err)
	}
	if res.Task.Text != "Buy bread" || svc.items["abc123"].Text != "Buy bread" {
		t.Errorf("edit not applied: %+v", res.Task)
	}

	_, err = a.HandleEdit(context.Background(), "abc", EditInput{Text: strPtr("Buy bread")})
	if !errors.Is(err, ErrNothingToChange) {
		t.Errorf("error = %v, want ErrNothingToChange", err)
	}
	if len(svc.calls) != 1 {
		t.Errorf("calls = %v, want a single update", svc.calls)
	}
}

func TestHandleEditUnknownID(t *testing.T) {
	svc := newFakeService()
	_, err := newTestActions(svc).HandleEdit(context.Background(), "nope", EditInput{Text: strPtr("x")})
	var ews *utils.ErrorWithSuggestion
	if !errors.As(err, &ews) {
		t.Errorf("error = %v, want a suggestion", err)
	}
}

func TestHandleSetDone(t *testing.T) {
	task := backend.NewTask("Buy milk", backend.PriorityNormal, backend.WithID("abc123"))
	svc := newFakeService(task)
	a := newTestActions(svc)

	res, err := a.HandleSetDone(context.Background(), "abc123", true)
	if err != nil {
		t.Fatalf("HandleSetDone() error = %v", err)
	}
	if !res.Task.IsDone || res.Task.EditedAt == nil {
		t.Errorf("task not marked done: %+v", res.Task)
	}

	if _, err := a.HandleSetDone(context.Background(), "abc123", true); err != nil {
		t.Fatalf("HandleSetDone() again error = %v", err)
	}
	if len(svc.calls) != 1 {
		t.Errorf("calls = %v, marking a done task done should not call the service", svc.calls)
	}
}

func TestHandleRemove(t *testing.T) {
	task := backend.NewTask("Buy milk", backend.PriorityNormal, backend.WithID("abc123"))
	svc := newFakeService(task)
	svc.remoteErr = backend.NewBackendError(backend.OpDelete, 401, "unauthorized")

	res, err := newTestActions(svc).HandleRemove(context.Background(), "abc")
	if err != nil {
		t.Fatalf("HandleRemove() error = %v", err)
	}
	if res.Task.ID != "abc123" {
		t.Errorf("removed %q", res.Task.ID)
	}
	if res.Warning == nil || !strings.Contains(res.Warning.Error(), "authentication failed") {
		t.Errorf("warning = %v", res.Warning)
	}
	if len(svc.items) != 0 {
		t.Error("task should be removed locally")
	}
}

func TestExplainRemoteError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"unauthorized", backend.NewBackendError(backend.OpList, 403, "forbidden"), "authentication failed for remote 'home'"},
		{"stale", backend.NewBackendError(backend.OpEdit, 400, "unsynchronized data"), "out of date"},
		{"transport", backend.NewTransportError(backend.OpList, errors.New("no such host")), "unreachable"},
		{"deadline", context.DeadlineExceeded, "unreachable"},
		{"server", backend.NewBackendError(backend.OpAdd, 500, "boom"), "did not accept the change"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExplainRemoteError(tt.err, "home")
			if got == nil || !strings.Contains(got.Error(), tt.contains) {
				t.Errorf("ExplainRemoteError() = %v, want it to contain %q", got, tt.contains)
			}
		})
	}

	if ExplainRemoteError(nil, "home") != nil {
		t.Error("ExplainRemoteError(nil) should be nil")
	}
}

func TestIsRemoteFailure(t *testing.T) {
	if !IsRemoteFailure(backend.NewBackendError(backend.OpAdd, 500, "boom")) {
		t.Error("protocol errors are remote failures")
	}
	if !IsRemoteFailure(context.Canceled) {
		t.Error("cancelled calls are remote failures")
	}
	if IsRemoteFailure(backend.ErrEmptyText) {
		t.Error("validation errors are local")
	}
}

func TestBackgroundSyncArgs(t *testing.T) {
	if got := strings.Join(backgroundSyncArgs(""), " "); got != "sync --quiet" {
		t.Errorf("args = %q", got)
	}
	if got := strings.Join(backgroundSyncArgs("/tmp/c.yaml"), " "); got != "sync --quiet --config /tmp/c.yaml" {
		t.Errorf("args = %q", got)
	}
}
