package backend

import "context"

// UnknownRevision is the revision before the first successful exchange
const UnknownRevision int64 = -1

// Remote operation names, used in errors and logs
const (
	OpList       = "List"
	OpBulkUpdate = "BulkUpdate"
	OpGet        = "Get"
	OpAdd        = "Add"
	OpEdit       = "Edit"
	OpDelete     = "Delete"
)

// ListResult is the answer to a list or bulk update call
type ListResult struct {
	Items    []Task
	Revision int64
}

// ItemResult is the answer to a single record call
type ItemResult struct {
	Item     Task
	Revision int64
}

// RemoteClient is the revision-versioned list service. Every call carries the
// caller's last known revision; the service may reject a stale one with an
// error matching ErrStaleRevision. Cancelling ctx cancels the call.
type RemoteClient interface {
	List(ctx context.Context, revision int64) (ListResult, error)
	BulkUpdate(ctx context.Context, revision int64, tasks []Task) (ListResult, error)
	Get(ctx context.Context, revision int64, id string) (ItemResult, error)
	Add(ctx context.Context, revision int64, task Task) (ItemResult, error)
	Edit(ctx context.Context, revision int64, task Task) (ItemResult, error)
	Delete(ctx context.Context, revision int64, id string) (ItemResult, error)
}
