package sync

import (
	"context"
	"errors"
	"strings"

	"todosync/backend"
)

// AddItem inserts task locally, persists it and notifies listeners, then
// sends it to the remote. A remote failure is returned verbatim and leaves
// the local record in place, pending until the next successful sync.
func (c *Coordinator) AddItem(ctx context.Context, task backend.Task) (backend.Task, error) {
	if err := c.checkOpen(); err != nil {
		return task, err
	}
	if err := validateForStore(task); err != nil {
		return task, err
	}

	if err := c.onQueue(func() { c.applyLocal(mutationAdd, task, task.ID) }); err != nil {
		return task, err
	}

	var result backend.ItemResult
	err := c.runRemote(ctx, remoteJob{
		op: backend.OpAdd,
		call: func(ctx context.Context, revision int64) error {
			var err error
			result, err = c.remote.Add(ctx, revision, task)
			return err
		},
		complete: func(err error) error {
			return c.finishMutation(backend.OpAdd, mutationAdd, task.ID, err, &result)
		},
	})
	return c.current(task), err
}

// UpdateItem overwrites the local record with the same id (inserting it if
// absent), persists, notifies, then sends the edit to the remote.
func (c *Coordinator) UpdateItem(ctx context.Context, task backend.Task) (backend.Task, error) {
	if err := c.checkOpen(); err != nil {
		return task, err
	}
	if err := validateForStore(task); err != nil {
		return task, err
	}

	if err := c.onQueue(func() { c.applyLocal(mutationUpdate, task, task.ID) }); err != nil {
		return task, err
	}

	var result backend.ItemResult
	err := c.runRemote(ctx, remoteJob{
		op: backend.OpEdit,
		call: func(ctx context.Context, revision int64) error {
			var err error
			result, err = c.remote.Edit(ctx, revision, task)
			return err
		},
		complete: func(err error) error {
			return c.finishMutation(backend.OpEdit, mutationUpdate, task.ID, err, &result)
		},
	})
	return c.current(task), err
}

// RemoveItem deletes the local record, persists, notifies, then deletes it
// remotely. An id absent from the cache fails with backend.ErrNotFound and
// no remote call is made.
func (c *Coordinator) RemoveItem(ctx context.Context, id string) (backend.Task, error) {
	if err := c.checkOpen(); err != nil {
		return backend.Task{}, err
	}

	var (
		removed backend.Task
		local   error
	)
	if err := c.onQueue(func() {
		removed, local = c.store.Get(id)
		if local == nil {
			c.applyLocal(mutationDelete, removed, id)
		}
	}); err != nil {
		return backend.Task{}, err
	}
	if local != nil {
		return backend.Task{}, local
	}

	var result backend.ItemResult
	err := c.runRemote(ctx, remoteJob{
		op: backend.OpDelete,
		call: func(ctx context.Context, revision int64) error {
			var err error
			result, err = c.remote.Delete(ctx, revision, id)
			return err
		},
		complete: func(err error) error {
			return c.finishMutation(backend.OpDelete, mutationDelete, id, err, &result)
		},
	})
	return removed, err
}

// GetAllItems reads the full remote list without touching the cache.
// Success advances the revision; failure does not mark the coordinator dirty.
func (c *Coordinator) GetAllItems(ctx context.Context) ([]backend.Task, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	var result backend.ListResult
	err := c.runRemote(ctx, remoteJob{
		op: backend.OpList,
		call: func(ctx context.Context, revision int64) error {
			var err error
			result, err = c.remote.List(ctx, revision)
			return err
		},
		complete: func(err error) error {
			if err != nil {
				c.logger.Warn("%s failed: %v", backend.OpList, err)
				return err
			}
			c.advanceRevision(result.Revision)
			c.publish()
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return result.Items, nil
}

// GetItem reads one remote record without touching the cache
func (c *Coordinator) GetItem(ctx context.Context, id string) (backend.Task, error) {
	if err := c.checkOpen(); err != nil {
		return backend.Task{}, err
	}

	var result backend.ItemResult
	err := c.runRemote(ctx, remoteJob{
		op: backend.OpGet,
		call: func(ctx context.Context, revision int64) error {
			var err error
			result, err = c.remote.Get(ctx, revision, id)
			return err
		},
		complete: func(err error) error {
			if err != nil {
				c.logger.Debug("%s %s failed: %v", backend.OpGet, id, err)
				return err
			}
			c.advanceRevision(result.Revision)
			c.publish()
			return nil
		},
	})
	if err != nil {
		return backend.Task{}, err
	}
	return result.Item, nil
}

func validateForStore(task backend.Task) error {
	if strings.TrimSpace(task.Text) == "" {
		return backend.ErrEmptyText
	}
	return task.Validate()
}

// applyLocal performs the optimistic write. Serial queue only.
func (c *Coordinator) applyLocal(kind mutationKind, task backend.Task, id string) {
	switch kind {
	case mutationDelete:
		_, _ = c.store.Delete(id)
		c.tombstones.Add(id, struct{}{})
	default:
		c.store.Add(task)
		c.tombstones.Remove(id)
	}

	c.journalSeq++
	if c.syncing > 0 {
		c.journal = append(c.journal, journalEntry{seq: c.journalSeq, kind: kind, task: task, id: id})
	}
	c.inflight[id]++

	c.logger.Debug("Local %s of %s applied", kind, id)
	c.persist()
	c.publish()
	c.notify()
}

// finishMutation applies the outcome of a single record exchange. Serial
// queue only.
func (c *Coordinator) finishMutation(op string, kind mutationKind, id string, err error, result *backend.ItemResult) error {
	if c.inflight[id] <= 1 {
		delete(c.inflight, id)
	} else {
		c.inflight[id]--
	}

	if err != nil {
		c.unacked[id] = kind
		c.logger.Warn("%s of %s failed, cache left dirty: %v", op, id, err)
		c.publish()
		if c.opts.AutoResync && !errors.Is(err, context.Canceled) {
			c.TriggerSync()
		}
		return err
	}

	c.advanceRevision(result.Revision)
	delete(c.unacked, id)

	if kind != mutationDelete && c.acceptRemote(result.Item) {
		c.persist()
		c.publish()
		c.notify()
		return nil
	}
	c.publish()
	return nil
}

// acceptRemote replaces the local record with remote when the local record
// still exists and remote was edited later. Serial queue only.
func (c *Coordinator) acceptRemote(remote backend.Task) bool {
	local, err := c.store.Get(remote.ID)
	if err != nil || remote.EditedAt == nil {
		return false
	}
	if !remote.EditedAt.After(local.LastModified()) {
		return false
	}
	c.store.Update(remote)
	return true
}

// current returns the cached version of task, or task itself if it is gone
func (c *Coordinator) current(task backend.Task) backend.Task {
	for _, t := range c.snapshot.Load().Items {
		if t.ID == task.ID {
			return t
		}
	}
	return task
}
