package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/glucokeeper/internal/client/cache"
	"github.com/dmitrijs2005/glucokeeper/internal/client/client"
	"github.com/dmitrijs2005/glucokeeper/internal/client/config"
	"github.com/dmitrijs2005/glucokeeper/internal/client/dedup"
	"github.com/dmitrijs2005/glucokeeper/internal/client/migrations"
	"github.com/dmitrijs2005/glucokeeper/internal/client/reconcile"
	"github.com/dmitrijs2005/glucokeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/glucokeeper/internal/client/services"
	"github.com/dmitrijs2005/glucokeeper/internal/common"
	"github.com/dmitrijs2005/glucokeeper/internal/docstore"
	"github.com/dmitrijs2005/glucokeeper/internal/filex"
	"github.com/dmitrijs2005/glucokeeper/internal/idgen"
	"github.com/dmitrijs2005/glucokeeper/internal/logging"
)

const (
	databaseFile = "glucokeeper.db"
	// drainPeriods is how many remote timeouts Close waits for pending writes.
	drainPeriods = 3
)

type App struct {
	config  *config.Config
	ctrl    *reconcile.Controller
	log     logging.Logger
	loc     *time.Location
	reader  *bufio.Reader
	out     io.Writer
	closers []func() error
}

// NewApp opens the local database and the configured remote store, wires
// the controller and loads the local cache. Close releases everything.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log := logging.New(c.LogFormat, c.LogLevel, os.Stderr)

	loc, err := c.TimeLocation()
	if err != nil {
		return nil, err
	}

	a := &App{config: c, log: log, loc: loc, reader: bufio.NewReader(os.Stdin), out: os.Stdout}
	if err := a.wire(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	c := a.config

	dir, err := filex.EnsureDir(c.CachePath)
	if err != nil {
		return err
	}

	db, err := migrations.Open(ctx, filepath.Join(dir, databaseFile))
	if err != nil {
		a.log.Error(ctx, "error initializing database", "error", err)
		return err
	}
	a.closers = append(a.closers, db.Close)
	meta := metadata.NewSQLiteRepository(db)

	var store cache.Store
	switch c.CacheBackend {
	case config.CacheDiskv:
		store = cache.NewDiskv(filepath.Join(dir, "cache"), a.log)
	default:
		store = cache.NewSQLite(db, a.log)
	}

	docs, closeDocs, err := remoteOpener(ctx, c)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, closeDocs)

	secret := []byte(c.SecretKey)
	if len(secret) == 0 {
		a.log.Warn(ctx, "no secret key configured, sessions will not survive a restart")
		secret = common.GenerateRandByteArray(32)
	}
	auth := services.NewAuthService(docs, meta, secret, c.TokenValidity, a.log)

	ids, err := idgen.NewSnowflake(c.SnowflakeNode)
	if err != nil {
		return err
	}

	policy := dedup.PolicyBaseline
	if c.DedupWithinBatch {
		policy = dedup.PolicyWithinBatch
	}

	volatile := c.RemoteBackend == config.RemoteMemory
	if volatile {
		a.log.Warn(ctx, "memory remote selected, remote data is lost on exit and the local cache is kept after sign-in")
	}

	a.ctrl = reconcile.New(store, client.NewDocClient(docs, a.log), auth, ids, a.log, reconcile.Options{
		RemoteTimeout:           c.RemoteTimeout,
		StatusDisplayWindow:     c.StatusDisplayWindow,
		DedupPolicy:             policy,
		Location:                a.loc,
		OnStatus:                a.onStatus,
		KeepCacheAfterMigration: volatile,
	})
	a.closers = append(a.closers, func() error {
		a.drain()
		a.ctrl.Close()
		return nil
	})

	return a.ctrl.Start(ctx)
}

var remoteOpener = openRemote

func openRemote(ctx context.Context, c *config.Config) (docstore.Store, func() error, error) {
	noop := func() error { return nil }
	switch c.RemoteBackend {
	case config.RemoteS3:
		s, err := docstore.NewS3(ctx, docstore.S3Options{
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	case config.RemotePostgres:
		pg, db, err := docstore.OpenPostgres(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, db.Close, nil
	default:
		return docstore.NewMemory(), noop, nil
	}
}

func (a *App) onStatus(s reconcile.Status) {
	if s.Sync == reconcile.SyncError && s.Err != nil {
		a.log.Warn(context.Background(), "sync failed", "error", s.Err)
	}
}

// drain waits for pending remote writes so they land before storage closes.
func (a *App) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainPeriods*a.config.RemoteTimeout)
	defer cancel()
	if err := a.ctrl.Wait(ctx); err != nil {
		a.log.Warn(ctx, "pending remote writes did not finish before exit", "error", err)
	}
}

// Run starts the REPL and blocks until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	fmt.Fprintln(a.out, "Welcome to glucokeeper (type 'help' for commands)")
	runREPL(ctx, a, func() string { return a.prompt(ctx) }, a.reader)
}

// Close waits for pending remote writes, stops the controller and releases
// storage in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) prompt(ctx context.Context) string {
	snap, err := a.ctrl.Snapshot(ctx)
	if err != nil {
		return "(closed)"
	}
	s := snap.State.String()
	if u, ok := snap.SelectedUser(); ok {
		s = u.Name + " " + s
	}
	if snap.Status.Sync != reconcile.SyncIdle {
		s += " " + snap.Status.Sync.String()
	}
	return "(" + s + ")"
}
