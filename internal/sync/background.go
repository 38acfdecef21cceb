package sync

import (
	"sync"
	"time"
)

// TriggerSync starts a background sync and returns immediately. Triggers
// arriving while one is already running are dropped. Shutdown waits for a
// started sync up to its timeout.
func (c *Coordinator) TriggerSync() {
	if !c.syncTriggered.CompareAndSwap(false, true) {
		return
	}
	if !c.startBackground() {
		c.syncTriggered.Store(false)
		return
	}

	go func() {
		defer c.wg.Done()
		defer c.syncTriggered.Store(false)
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("Panic in background sync: %v", r)
			}
		}()

		if err := c.runSync(c.baseCtx); err != nil {
			c.logger.Warn("Background sync error: %v", err)
			return
		}
		c.logger.Debug("Background sync completed")
	}()
}

// StartPeriodicSync triggers a sync every interval until the returned func is
// called or the coordinator shuts down.
func (c *Coordinator) StartPeriodicSync(interval time.Duration) func() {
	if interval <= 0 || !c.startBackground() {
		return func() {}
	}

	stop := make(chan struct{})
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.TriggerSync()
			case <-stop:
				return
			case <-c.stopping:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(stop) })
	}
}

// startBackground registers a background goroutine unless shutdown began
func (c *Coordinator) startBackground() bool {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if c.closed.Load() {
		return false
	}
	c.wg.Add(1)
	return true
}
