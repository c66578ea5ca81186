// Package reconcile owns the in-memory working set (users, entries and the
// selected user) and keeps it consistent with the local cache while signed
// out and with the remote store while signed in.
//
// A single goroutine owns the working set. Public methods hand it a closure
// and wait for it to run; remote completions and status timers come back the
// same way. Remote writes are optimistic: the working set changes first and
// is never rolled back when the mirror fails.
package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/glucokeeper/internal/client/cache"
	"github.com/dmitrijs2005/glucokeeper/internal/client/client"
	"github.com/dmitrijs2005/glucokeeper/internal/client/csvimport"
	"github.com/dmitrijs2005/glucokeeper/internal/client/dedup"
	"github.com/dmitrijs2005/glucokeeper/internal/client/models"
	"github.com/dmitrijs2005/glucokeeper/internal/client/services"
	"github.com/dmitrijs2005/glucokeeper/internal/idgen"
	"github.com/dmitrijs2005/glucokeeper/internal/logging"
)

var (
	// ErrClosed is returned by every method after Close.
	ErrClosed = errors.New("controller closed")
	// ErrAlreadySignedIn is returned by SignIn and SignUp in the ready state.
	ErrAlreadySignedIn = errors.New("already signed in")
)

const (
	DefaultRemoteTimeout       = 10 * time.Second
	DefaultStatusDisplayWindow = 3 * time.Second
)

// Options tunes a Controller. Zero values pick the defaults.
type Options struct {
	// RemoteTimeout bounds each remote call. A migration gets one
	// RemoteTimeout per document plus one.
	RemoteTimeout time.Duration
	// StatusDisplayWindow is how long synced or error stays visible before
	// the status returns to idle.
	StatusDisplayWindow time.Duration
	DedupPolicy         dedup.Policy
	// Location interprets CSV datetimes that carry no zone.
	Location *time.Location
	// OnStatus is called on the controller goroutine after every status
	// change. It must not call back into the Controller.
	OnStatus func(Status)
	// KeepCacheAfterMigration leaves the local cache in place once it has
	// been migrated. Set it when the remote store does not outlive the
	// process.
	KeepCacheAfterMigration bool
	Now                     func() time.Time
}

func (o Options) withDefaults() Options {
	if o.RemoteTimeout <= 0 {
		o.RemoteTimeout = DefaultRemoteTimeout
	}
	if o.StatusDisplayWindow <= 0 {
		o.StatusDisplayWindow = DefaultStatusDisplayWindow
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// workingSet is only touched on the controller goroutine.
type workingSet struct {
	state    State
	users    []models.User
	entries  []models.Entry
	selected int64
	account  *services.Account

	// gen changes on every session transition so late bootstrap results
	// from an abandoned session are ignored.
	gen uint64

	status Status
	// statusSeq invalidates pending revert timers.
	statusSeq uint64
}

// Snapshot is a copy of the working set.
type Snapshot struct {
	State          State
	Users          []models.User
	Entries        []models.Entry
	SelectedUserID int64
	Account        *services.Account
	Status         Status
}

// SelectedUser returns the selected user, if any.
func (s Snapshot) SelectedUser() (models.User, bool) {
	if s.SelectedUserID == 0 {
		return models.User{}, false
	}
	return models.FindUser(s.Users, s.SelectedUserID)
}

// Controller serializes every read and change of the working set on one
// goroutine. Build it with New.
type Controller struct {
	cache  cache.Store
	remote client.Client
	auth   services.AuthService
	ids    idgen.Source
	parser *csvimport.Parser
	log    logging.Logger
	opts   Options

	cmds     chan func()
	quit     chan struct{}
	stopped  chan struct{}
	inflight sync.WaitGroup
	once     sync.Once

	ws workingSet
}

// New builds a Controller and starts its goroutine. auth may be nil, in
// which case the controller stays anonymous. Call Start to load the cache
// and Close to stop.
func New(store cache.Store, remote client.Client, auth services.AuthService, ids idgen.Source, log logging.Logger, opts Options) *Controller {
	if log == nil {
		log = logging.Nop()
	}
	opts = opts.withDefaults()
	c := &Controller{
		cache:   store,
		remote:  remote,
		auth:    auth,
		ids:     ids,
		parser:  csvimport.NewParser(opts.Location),
		log:     log,
		opts:    opts,
		cmds:    make(chan func()),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
		ws: workingSet{
			users:   []models.User{},
			entries: []models.Entry{},
		},
	}
	go c.run()
	return c
}

func (c *Controller) run() {
	defer close(c.stopped)
	for {
		select {
		case fn := <-c.cmds:
			fn()
		case <-c.quit:
			return
		}
	}
}

// do runs fn on the controller goroutine and waits for it.
func (c *Controller) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case c.cmds <- func() { fn(); close(done) }:
	case <-c.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-c.stopped:
		return ErrClosed
	}
}

// post queues fn without waiting for it to run.
func (c *Controller) post(fn func()) {
	select {
	case c.cmds <- fn:
	case <-c.quit:
	}
}

// Close stops the controller goroutine. Remote calls already in flight are
// not cancelled; their results are dropped.
func (c *Controller) Close() {
	c.once.Do(func() {
		close(c.quit)
		<-c.stopped
	})
}

// Wait blocks until every remote operation started so far, including a
// sign-in bootstrap, has finished and its result has been applied.
func (c *Controller) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return c.do(ctx, func() {})
}

// Snapshot returns a copy of the working set, the session state and the
// sync status.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	err := c.do(ctx, func() {
		s = Snapshot{
			State:          c.ws.state,
			Users:          append([]models.User{}, c.ws.users...),
			Entries:        append([]models.Entry{}, c.ws.entries...),
			SelectedUserID: c.ws.selected,
			Status:         c.ws.status,
		}
		if c.ws.account != nil {
			acc := *c.ws.account
			s.Account = &acc
		}
	})
	return s, err
}

// State returns the current session state.
func (c *Controller) State(ctx context.Context) (State, error) {
	var s State
	err := c.do(ctx, func() { s = c.ws.state })
	return s, err
}

// Status returns the current sync status.
func (c *Controller) Status(ctx context.Context) (Status, error) {
	var s Status
	err := c.do(ctx, func() { s = c.ws.status })
	return s, err
}

func (c *Controller) setState(s State) {
	if c.ws.state == s {
		return
	}
	c.log.Debug(context.Background(), "session state", "from", c.ws.state.String(), "to", s.String())
	c.ws.state = s
}

func (c *Controller) applyCache(snap cache.Snapshot) {
	c.ws.users = append([]models.User{}, snap.Users...)
	c.ws.entries = append([]models.Entry{}, snap.Entries...)
	c.ws.selected = 0
	if _, ok := models.FindUser(c.ws.users, snap.SelectedUserID); ok {
		c.ws.selected = snap.SelectedUserID
	}
}

func (c *Controller) clearWorkingSet() {
	c.ws.users = []models.User{}
	c.ws.entries = []models.Entry{}
	c.ws.selected = 0
}

func (c *Controller) remoteCtx(n int) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.opts.RemoteTimeout*time.Duration(n))
}
