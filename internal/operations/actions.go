package operations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"todosync/backend"
	"todosync/internal/utils"
)

// ErrNothingToChange is returned by HandleEdit when no field differs
var ErrNothingToChange = errors.New("nothing to change")

// TaskService is the part of the sync coordinator the CLI actions use
type TaskService interface {
	Items() []backend.Task
	AddItem(ctx context.Context, task backend.Task) (backend.Task, error)
	UpdateItem(ctx context.Context, task backend.Task) (backend.Task, error)
	RemoveItem(ctx context.Context, id string) (backend.Task, error)
}

// Result is the outcome of a mutating action. The local change is always
// applied when err is nil; Warning is set when the remote did not accept it
// and the change waits for the next sync.
type Result struct {
	Task    backend.Task
	Warning error
}

// Actions runs task commands against a TaskService
type Actions struct {
	Service TaskService
	Dates   *DateParser
	Remote  string // Remote name used in messages
	Now     func() time.Time
}

// NewActions creates Actions with the wall clock
func NewActions(service TaskService, dates *DateParser, remote string) *Actions {
	return &Actions{Service: service, Dates: dates, Remote: remote, Now: time.Now}
}

// HandleAdd creates a task from in
func (a *Actions) HandleAdd(ctx context.Context, in TaskInput) (Result, error) {
	task, err := BuildTask(in, a.Dates, a.Now())
	if err != nil {
		return Result{}, err
	}
	added, err := a.Service.AddItem(ctx, task)
	return a.result(added, err)
}

// HandleEdit applies in to the task ref points at
func (a *Actions) HandleEdit(ctx context.Context, ref string, in EditInput) (Result, error) {
	task, err := FindByID(a.Service.Items(), ref)
	if err != nil {
		return Result{}, err
	}
	edited, changed, err := ApplyEdit(task, in, a.Dates, a.Now())
	if err != nil {
		return Result{}, err
	}
	if !changed {
		return Result{Task: task}, ErrNothingToChange
	}
	updated, err := a.Service.UpdateItem(ctx, edited)
	return a.result(updated, err)
}

// HandleSetDone marks the task ref points at as done or not done. A task
// already in that state is returned without a remote call.
func (a *Actions) HandleSetDone(ctx context.Context, ref string, done bool) (Result, error) {
	task, err := FindByID(a.Service.Items(), ref)
	if err != nil {
		return Result{}, err
	}
	if task.IsDone == done {
		return Result{Task: task}, nil
	}
	updated, err := a.Service.UpdateItem(ctx, task.WithDone(done))
	return a.result(updated, err)
}

// HandleRemove deletes the task ref points at
func (a *Actions) HandleRemove(ctx context.Context, ref string) (Result, error) {
	task, err := FindByID(a.Service.Items(), ref)
	if err != nil {
		return Result{}, err
	}
	removed, err := a.Service.RemoveItem(ctx, task.ID)
	return a.result(removed, err)
}

// result separates remote failures, which leave the local change in place,
// from local ones
func (a *Actions) result(task backend.Task, err error) (Result, error) {
	if err == nil {
		return Result{Task: task}, nil
	}
	if IsRemoteFailure(err) {
		return Result{Task: task, Warning: ExplainRemoteError(err, a.Remote)}, nil
	}
	return Result{}, err
}

// IsRemoteFailure reports whether err came from the remote exchange rather
// than the local cache
func IsRemoteFailure(err error) bool {
	return backend.IsProtocolError(err) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

// ExplainRemoteError turns a remote failure into an error with a suggestion
func ExplainRemoteError(err error, remote string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, backend.ErrUnauthorized):
		return utils.ErrAuthenticationFailed(remote)
	case errors.Is(err, backend.ErrStaleRevision):
		return utils.ErrOutOfSync(remote)
	case errors.Is(err, backend.ErrTransport):
		return utils.ErrRemoteOffline(remote, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return utils.ErrRemoteOffline(remote, "deadline exceeded")
	default:
		return utils.WrapWithSuggestion(
			fmt.Errorf("remote '%s' did not accept the change: %w", remote, err),
			"Run 'todosync sync' to retry",
		)
	}
}

// backgroundSyncArgs returns the arguments of the detached sync process
func backgroundSyncArgs(configPath string) []string {
	args := []string{"sync", "--quiet"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	return args
}
