package sync

import (
	"context"
	"errors"

	"todosync/backend"
)

// Bootstrap loads the cache and reconciles it with the remote. When the cache
// cannot be loaded the remote list seeds it instead. An unreachable remote
// leaves the coordinator dirty and the error is returned; the loaded cache
// stays usable.
func (c *Coordinator) Bootstrap(ctx context.Context) error {
	if err := c.LoadCache(); err != nil {
		c.logger.Info("No usable cache, seeding from remote: %v", err)

		items, err := c.GetAllItems(ctx)
		if err != nil {
			return err
		}
		if err := c.onQueue(func() {
			backend.ReplaceAll(c.store, items)
			c.persist()
			c.publish()
			c.notify()
		}); err != nil {
			return err
		}
	}
	return c.Sync(ctx)
}

// skipReporter is implemented by stores that drop malformed records on Load
type skipReporter interface {
	Skipped() int
}

// LoadCache replaces the in-memory cache with the persisted destination
// without contacting the remote.
func (c *Coordinator) LoadCache() error {
	if err := c.checkOpen(); err != nil {
		return err
	}

	var loadErr error
	if err := c.onQueue(func() {
		loadErr = c.store.Load(c.opts.Destination)
		if loadErr != nil {
			return
		}
		if r, ok := c.store.(skipReporter); ok && r.Skipped() > 0 {
			c.logger.Warn("Dropped %d malformed records while loading %s", r.Skipped(), c.opts.Destination)
		}
		c.publish()
		c.notify()
	}); err != nil {
		return err
	}
	return loadErr
}

// Sync uploads the entire cache with the last known revision and replaces
// the cache with the canonical list the remote answers with. On failure the
// cache is left untouched and the coordinator stays dirty.
//
// A stale revision is refreshed with one List call and the upload retried
// once. Local mutations applied while the exchange was in flight are
// replayed on top of the canonical list.
func (c *Coordinator) Sync(ctx context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	return c.runSync(ctx)
}

// runSync runs the exchange without the closed check, so a background sync
// started before Shutdown can finish
func (c *Coordinator) runSync(ctx context.Context) error {
	var (
		uploaded []backend.Task
		seq      uint64
		result   backend.ListResult
	)
	return c.runRemote(ctx, remoteJob{
		op: backend.OpBulkUpdate,
		prepare: func() {
			uploaded = c.store.Items()
			seq = c.journalSeq
			c.syncing++
			c.publish()
			c.logger.Debug("Sync started with %d items at revision %d", len(uploaded), c.revision.Load())
		},
		call: func(ctx context.Context, revision int64) error {
			var err error
			result, err = c.remote.BulkUpdate(ctx, revision, uploaded)
			if !errors.Is(err, backend.ErrStaleRevision) {
				return err
			}

			c.logger.Debug("Revision %d is stale, refreshing", revision)
			latest, listErr := c.remote.List(ctx, revision)
			if listErr != nil {
				return err
			}
			if qerr := c.onQueue(func() {
				c.advanceRevision(latest.Revision)
				c.publish()
			}); qerr != nil {
				return qerr
			}
			result, err = c.remote.BulkUpdate(ctx, latest.Revision, uploaded)
			return err
		},
		complete: func(err error) error {
			return c.finishSync(uploaded, seq, result, err)
		},
	})
}

// finishSync applies a bulk exchange outcome. Serial queue only.
func (c *Coordinator) finishSync(uploaded []backend.Task, seq uint64, result backend.ListResult, err error) error {
	c.syncing--
	defer c.trimJournal()

	if err != nil {
		c.syncFailed = true
		c.logger.Warn("Sync failed, cache left unchanged: %v", err)
		c.publish()
		return err
	}

	c.revision.Store(result.Revision)

	canonical := make(map[string]struct{}, len(result.Items))
	for _, t := range result.Items {
		canonical[t.ID] = struct{}{}
		c.tombstones.Remove(t.ID)
	}

	backend.ReplaceAll(c.store, result.Items)

	pending := make(map[string]mutationKind)
	if c.opts.Policy == PolicyKeepPending {
		local := make(map[string]backend.Task, len(uploaded))
		for _, t := range uploaded {
			local[t.ID] = t
		}
		for id, kind := range c.unacked {
			_, inCanonical := canonical[id]
			switch {
			case kind == mutationDelete && inCanonical:
				_, _ = c.store.Delete(id)
				pending[id] = kind
			case kind != mutationDelete && !inCanonical:
				if t, ok := local[id]; ok {
					c.store.Add(t)
					pending[id] = kind
				}
			}
		}
	}

	// Mutations made after the upload snapshot are newer than the canonical
	// list; their own remote calls are still queued behind this one.
	for _, entry := range c.journal {
		if entry.seq <= seq {
			continue
		}
		switch entry.kind {
		case mutationDelete:
			_, _ = c.store.Delete(entry.id)
		default:
			c.store.Add(entry.task)
		}
		if kind, ok := c.unacked[entry.id]; ok {
			pending[entry.id] = kind
		}
	}

	c.unacked = pending
	c.synced = true
	c.syncFailed = false

	c.logger.Debug("Sync completed: %d items at revision %d", c.store.Len(), result.Revision)
	c.persist()
	c.publish()
	c.notify()
	return nil
}

func (c *Coordinator) trimJournal() {
	if c.syncing == 0 {
		c.journal = nil
	}
}

// Refresh fetches the remote list and reconciles it record by record:
// a remote record edited later than its local counterpart wins, remote-only
// records are inserted, local-only records are deleted. Records with a
// pending local mutation and recently deleted ids are left alone.
func (c *Coordinator) Refresh(ctx context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}

	var result backend.ListResult
	return c.runRemote(ctx, remoteJob{
		op: backend.OpList,
		call: func(ctx context.Context, revision int64) error {
			var err error
			result, err = c.remote.List(ctx, revision)
			return err
		},
		complete: func(err error) error {
			if err != nil {
				c.logger.Warn("Refresh failed: %v", err)
				return err
			}
			c.advanceRevision(result.Revision)
			if c.reconcileList(result.Items) {
				c.persist()
				c.notify()
			}
			c.publish()
			return nil
		},
	})
}

// reconcileList merges a complete remote snapshot into the cache and reports
// whether anything changed. Serial queue only.
func (c *Coordinator) reconcileList(remote []backend.Task) bool {
	changed := false

	remoteIDs := make(map[string]struct{}, len(remote))
	for _, t := range remote {
		remoteIDs[t.ID] = struct{}{}
	}

	for _, local := range c.store.Items() {
		if _, ok := remoteIDs[local.ID]; ok || c.protected(local.ID) {
			continue
		}
		if _, err := c.store.Delete(local.ID); err == nil {
			changed = true
		}
	}

	for _, r := range remote {
		if c.tombstones.Contains(r.ID) || c.protected(r.ID) {
			continue
		}
		local, err := c.store.Get(r.ID)
		if err != nil {
			c.store.Add(r)
			changed = true
			continue
		}
		if r.LastModified().After(local.LastModified()) {
			c.store.Update(r)
			changed = true
		}
	}
	return changed
}

// protected reports whether id has a local mutation the remote has not
// acknowledged yet
func (c *Coordinator) protected(id string) bool {
	if c.inflight[id] > 0 {
		return true
	}
	_, ok := c.unacked[id]
	return ok
}
