// Package cache is the local persistence used while no account is signed in.
//
// It stores three JSON values under fixed keys (users, entries and
// selectedUserId). Each Save writes one key. SaveUsersAndSelection writes two
// and is atomic only on backends that implement Batcher.
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/glucokeeper/internal/client/models"
	"github.com/dmitrijs2005/glucokeeper/internal/common"
	"github.com/dmitrijs2005/glucokeeper/internal/logging"
)

// Snapshot is everything the cache holds. A zero SelectedUserID means no
// user is selected.
type Snapshot struct {
	Users          []models.User
	Entries        []models.Entry
	SelectedUserID int64
}

// Empty reports whether there is nothing to migrate.
func (s Snapshot) Empty() bool {
	return len(s.Users) == 0 && len(s.Entries) == 0
}

// Store is the contract the controller depends on.
type Store interface {
	LoadSnapshot(ctx context.Context) (Snapshot, error)
	SaveUsers(ctx context.Context, users []models.User) error
	SaveEntries(ctx context.Context, entries []models.Entry) error
	SaveSelectedUser(ctx context.Context, userID int64) error
	SaveUsersAndSelection(ctx context.Context, users []models.User, selected int64) error
	Clear(ctx context.Context) error
}

// KV is the raw key/value backend. Get returns (nil, nil) for a missing key.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	DeleteKeys(ctx context.Context, keys ...string) error
}

// Batcher is implemented by backends that can apply several writes as one.
type Batcher interface {
	Batch(ctx context.Context, fn func(ctx context.Context, kv KV) error) error
}

// Cache implements Store over any KV.
type Cache struct {
	kv  KV
	log logging.Logger
}

func New(kv KV, log logging.Logger) *Cache {
	if log == nil {
		log = logging.Nop()
	}
	return &Cache{kv: kv, log: log}
}

// LoadSnapshot reads all three keys. Missing keys give empty defaults. A
// value that does not decode is logged and treated as missing, so a single
// damaged key does not hide the others.
func (c *Cache) LoadSnapshot(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{Users: []models.User{}, Entries: []models.Entry{}}

	if err := c.load(ctx, common.CacheKeyUsers, &snap.Users); err != nil {
		return Snapshot{}, err
	}
	if err := c.load(ctx, common.CacheKeyEntries, &snap.Entries); err != nil {
		return Snapshot{}, err
	}

	var selected *int64
	if err := c.load(ctx, common.CacheKeySelectedUserID, &selected); err != nil {
		return Snapshot{}, err
	}
	if selected != nil {
		snap.SelectedUserID = *selected
	}

	if snap.Users == nil {
		snap.Users = []models.User{}
	}
	if snap.Entries == nil {
		snap.Entries = []models.Entry{}
	}
	for i := range snap.Entries {
		if snap.Entries[i].Medications == nil {
			snap.Entries[i].Medications = []models.Medication{}
		}
	}
	return snap, nil
}

func (c *Cache) load(ctx context.Context, key string, dst any) error {
	raw, err := c.kv.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("cache load %s: %w", key, err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.log.Warn(ctx, "discarding undecodable cache value", "key", key, "error", err)
	}
	return nil
}

func (c *Cache) SaveUsers(ctx context.Context, users []models.User) error {
	if users == nil {
		users = []models.User{}
	}
	return c.save(ctx, common.CacheKeyUsers, users)
}

func (c *Cache) SaveEntries(ctx context.Context, entries []models.Entry) error {
	if entries == nil {
		entries = []models.Entry{}
	}
	return c.save(ctx, common.CacheKeyEntries, entries)
}

// SaveSelectedUser stores userID, or null when userID is zero.
func (c *Cache) SaveSelectedUser(ctx context.Context, userID int64) error {
	if userID == 0 {
		return c.save(ctx, common.CacheKeySelectedUserID, nil)
	}
	return c.save(ctx, common.CacheKeySelectedUserID, userID)
}

// SaveUsersAndSelection stores users and the selected user id together.
func (c *Cache) SaveUsersAndSelection(ctx context.Context, users []models.User, selected int64) error {
	write := func(ctx context.Context, kv KV) error {
		w := &Cache{kv: kv, log: c.log}
		if err := w.SaveUsers(ctx, users); err != nil {
			return err
		}
		return w.SaveSelectedUser(ctx, selected)
	}
	if b, ok := c.kv.(Batcher); ok {
		return b.Batch(ctx, write)
	}
	return write(ctx, c.kv)
}

// Clear removes the three cache keys. Other keys sharing the backend, such
// as the session token, are left alone.
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.kv.DeleteKeys(ctx, common.CacheKeyUsers, common.CacheKeyEntries, common.CacheKeySelectedUserID); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

func (c *Cache) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("cache save %s: %w", key, err)
	}
	return nil
}
