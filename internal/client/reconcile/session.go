package reconcile

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/glucokeeper/internal/client/cache"
	"github.com/dmitrijs2005/glucokeeper/internal/client/models"
	"github.com/dmitrijs2005/glucokeeper/internal/client/services"
	"github.com/dmitrijs2005/glucokeeper/internal/common"
	"github.com/dmitrijs2005/glucokeeper/internal/logging"
)

// Start loads the local cache into the working set and, when an identity
// provider is configured, begins resolving the stored session in the
// background. It returns as soon as the working set is anonymous.
func (c *Controller) Start(ctx context.Context) error {
	snap, err := c.cache.LoadSnapshot(ctx)
	if err != nil {
		return err
	}

	return c.do(ctx, func() {
		c.applyCache(snap)
		c.setState(StateAnonymous)
		if c.auth == nil {
			return
		}
		c.ws.gen++
		gen := c.ws.gen
		c.setState(StateAuthenticating)
		c.inflight.Add(1)
		go c.resolve(gen)
	})
}

func (c *Controller) resolve(gen uint64) {
	defer c.inflight.Done()

	ctx, cancel := c.remoteCtx(1)
	acc, err := c.auth.Resolve(ctx)
	cancel()
	if err != nil {
		c.log.Warn(context.Background(), "session resolve failed", "error", err)
		acc = nil
	}

	if acc == nil {
		c.post(func() {
			if c.ws.gen == gen {
				c.enterSignedOut()
			}
		})
		return
	}
	c.establish(gen, acc)
}

// SignIn authenticates and then migrates and loads in the background. Use
// Wait to block until the session is ready.
func (c *Controller) SignIn(ctx context.Context, email string, password []byte) (*services.Account, error) {
	return c.authenticate(ctx, func(ctx context.Context) (*services.Account, error) {
		return c.auth.SignIn(ctx, email, password)
	})
}

// SignUp creates an account and continues like SignIn.
func (c *Controller) SignUp(ctx context.Context, email string, password []byte) (*services.Account, error) {
	return c.authenticate(ctx, func(ctx context.Context) (*services.Account, error) {
		return c.auth.SignUp(ctx, email, password)
	})
}

func (c *Controller) authenticate(ctx context.Context, login func(context.Context) (*services.Account, error)) (*services.Account, error) {
	if c.auth == nil {
		return nil, common.ErrUnavailable
	}

	var (
		gen  uint64
		prev State
		err  error
	)
	if derr := c.do(ctx, func() {
		switch {
		case c.ws.state == StateReady:
			err = ErrAlreadySignedIn
			return
		case c.ws.state.transitional():
			err = common.ErrSessionNotReady
			return
		}
		prev = c.ws.state
		c.ws.gen++
		gen = c.ws.gen
		c.setState(StateAuthenticating)
	}); derr != nil {
		return nil, derr
	}
	if err != nil {
		return nil, err
	}

	acc, err := login(ctx)
	if err == nil && acc == nil {
		err = common.ErrUnauthorized
	}
	if err != nil {
		_ = c.do(context.Background(), func() {
			if c.ws.gen == gen {
				c.setState(prev)
			}
		})
		return nil, err
	}

	if derr := c.do(ctx, func() {
		if c.ws.gen == gen {
			c.inflight.Add(1)
			go func() {
				defer c.inflight.Done()
				c.establish(gen, acc)
			}()
		}
	}); derr != nil {
		return nil, derr
	}
	return acc, nil
}

// advance runs fn on the controller goroutine if the session generation is
// still gen.
func (c *Controller) advance(gen uint64, fn func()) bool {
	ok := false
	err := c.do(context.Background(), func() {
		if c.ws.gen != gen {
			return
		}
		ok = true
		fn()
	})
	return err == nil && ok
}

// establish runs on a bootstrap goroutine: migrate the local cache if it
// holds anything, then fetch the account's data. The two steps never
// overlap and the working set is replaced only after both finish.
func (c *Controller) establish(gen uint64, acc *services.Account) {
	ctx := context.Background()
	log := c.log.With("account", acc.ID)

	if !c.advance(gen, func() { c.ws.account = acc }) {
		return
	}

	local, err := c.cache.LoadSnapshot(ctx)
	if err != nil {
		log.Warn(ctx, "local cache unreadable, skipping migration", "error", err)
		local = cache.Snapshot{}
	}

	var bootErr error
	if !local.Empty() {
		if !c.advance(gen, func() { c.setState(StateMigrating) }) {
			return
		}
		mctx, cancel := c.remoteCtx(1 + len(local.Users) + len(local.Entries))
		err := c.remote.Migrate(mctx, acc.ID, local.Users, local.Entries)
		cancel()

		if err != nil {
			log.Error(ctx, "migration failed, local data kept for next sign-in", "error", err)
			bootErr = err
		} else {
			log.Info(ctx, "local data migrated", "users", len(local.Users), "entries", len(local.Entries))
			if !c.advance(gen, func() { c.dropMigrated(ctx, log) }) {
				log.Warn(ctx, "session changed during migration, local cache kept")
				return
			}
		}
	}

	if !c.advance(gen, func() { c.setState(StateLoading) }) {
		return
	}

	fctx, cancel := c.remoteCtx(2)
	users, uerr := c.remote.GetUsers(fctx, acc.ID)
	var entries []models.Entry
	var eerr error
	if uerr == nil {
		entries, eerr = c.remote.GetEntries(fctx, acc.ID)
	}
	cancel()

	if fetchErr := errors.Join(uerr, eerr); fetchErr != nil {
		log.Error(ctx, "remote fetch failed", "error", fetchErr)
		users, entries = nil, nil
		bootErr = errors.Join(bootErr, fetchErr)
	}

	c.advance(gen, func() {
		c.applyCache(cache.Snapshot{Users: users, Entries: entries, SelectedUserID: local.SelectedUserID})
		c.setState(StateReady)
		if bootErr != nil {
			c.failStatus(bootErr)
		}
	})
}

// dropMigrated empties the local cache after a successful migration. It runs
// on the controller goroutine while the session that migrated is current.
func (c *Controller) dropMigrated(ctx context.Context, log logging.Logger) {
	if c.opts.KeepCacheAfterMigration {
		log.Warn(ctx, "remote store is not durable, local cache kept after migration")
		return
	}
	if err := c.cache.Clear(ctx); err != nil {
		log.Warn(ctx, "could not clear migrated cache", "error", err)
	}
}

// SignOut forgets the session and falls back to the local cache. Remote
// writes still in flight are not cancelled.
func (c *Controller) SignOut(ctx context.Context) error {
	if c.auth != nil {
		if err := c.auth.SignOut(ctx); err != nil {
			return err
		}
	}
	return c.do(ctx, func() {
		if c.ws.state.local() {
			return
		}
		c.ws.gen++
		c.enterSignedOut()
	})
}

// enterSignedOut clears the working set and rebuilds it from the cache.
func (c *Controller) enterSignedOut() {
	c.ws.account = nil
	c.clearWorkingSet()
	c.setState(StateSignedOut)
	c.resetStatus()

	snap, err := c.cache.LoadSnapshot(context.Background())
	if err != nil {
		c.log.Warn(context.Background(), "local cache unreadable after sign-out", "error", err)
		return
	}
	c.applyCache(snap)
}
