package reconcile

import (
	"context"
	"time"
)

// mirror runs fn against the remote store in its own goroutine. The account
// id is captured now so a later sign-out does not redirect the write.
func (c *Controller) mirror(op string, fn func(ctx context.Context, accountID string) error) {
	accountID := c.ws.account.ID
	c.beginSync()

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		ctx, cancel := c.remoteCtx(1)
		err := fn(ctx, accountID)
		cancel()
		c.post(func() { c.endSync(op, accountID, err) })
	}()
}

func (c *Controller) beginSync() {
	if c.ws.status.Pending == 0 {
		c.ws.status.Err = nil
	}
	c.ws.status.Pending++
	c.ws.status.Sync = SyncSyncing
	c.ws.statusSeq++
	c.notifyStatus()
}

// endSync settles the status once the last pending write finishes. Any
// failure during the burst shows as error.
func (c *Controller) endSync(op, accountID string, err error) {
	if err != nil {
		c.log.Warn(context.Background(), "remote write failed", "op", op, "account", accountID, "error", err)
		c.ws.status.Err = err
	}
	if c.ws.status.Pending > 0 {
		c.ws.status.Pending--
	}
	if c.ws.status.Pending > 0 {
		c.notifyStatus()
		return
	}
	if c.ws.status.Err != nil {
		c.settle(SyncError)
	} else {
		c.settle(SyncSynced)
	}
}

// failStatus reports a failure that is not tied to a mirrored write, such as
// a failed migration or fetch.
func (c *Controller) failStatus(err error) {
	c.ws.status.Err = err
	c.settle(SyncError)
}

func (c *Controller) settle(s SyncStatus) {
	c.ws.status.Sync = s
	c.ws.statusSeq++
	seq := c.ws.statusSeq
	c.notifyStatus()

	time.AfterFunc(c.opts.StatusDisplayWindow, func() {
		c.post(func() {
			if c.ws.statusSeq != seq || c.ws.status.Pending > 0 {
				return
			}
			c.ws.status = Status{Sync: SyncIdle}
			c.notifyStatus()
		})
	})
}

func (c *Controller) resetStatus() {
	c.ws.statusSeq++
	c.ws.status = Status{Sync: SyncIdle, Pending: c.ws.status.Pending}
	if c.ws.status.Pending > 0 {
		c.ws.status.Sync = SyncSyncing
	}
	c.notifyStatus()
}

func (c *Controller) notifyStatus() {
	if c.opts.OnStatus != nil {
		c.opts.OnStatus(c.ws.status)
	}
}
