package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/dmitrijs2005/glucokeeper/internal/client/models"
	"github.com/dmitrijs2005/glucokeeper/internal/common"
	"github.com/dmitrijs2005/glucokeeper/internal/docstore"
	"github.com/dmitrijs2005/glucokeeper/internal/logging"
)

// Client is what the controller needs from the remote side.
type Client interface {
	SaveUser(ctx context.Context, accountID string, u models.User) error
	SaveEntry(ctx context.Context, accountID string, e models.Entry) error
	GetUsers(ctx context.Context, accountID string) ([]models.User, error)
	GetEntries(ctx context.Context, accountID string) ([]models.Entry, error)
	DeleteEntry(ctx context.Context, accountID string, entryID int64) error
	Migrate(ctx context.Context, accountID string, users []models.User, entries []models.Entry) error
}

const (
	accountsCollection = "accounts"
	usersCollection    = "users"
	entriesCollection  = "entries"
)

// DocClient implements Client on top of a document store.
type DocClient struct {
	store docstore.Store
	log   logging.Logger
}

// NewDocClient returns a Client that keeps each account's documents in store.
func NewDocClient(store docstore.Store, log logging.Logger) *DocClient {
	if log == nil {
		log = logging.Nop()
	}
	return &DocClient{store: store, log: log}
}

func collectionPath(accountID, collection string) string {
	return docstore.Join(accountsCollection, accountID, collection)
}

func docPath(accountID, collection string, id int64) string {
	return docstore.Join(collectionPath(accountID, collection), strconv.FormatInt(id, 10))
}

func remoteErr(op, accountID, path string, err error) error {
	return &common.RemoteError{Op: op, AccountID: accountID, Path: path, Err: err}
}

func (c *DocClient) SaveUser(ctx context.Context, accountID string, u models.User) error {
	if accountID == "" {
		return remoteErr("save user", accountID, "", common.ErrUnauthorized)
	}
	path := docPath(accountID, usersCollection, u.ID)
	body, err := json.Marshal(newUserDoc(u))
	if err != nil {
		return remoteErr("save user", accountID, path, err)
	}
	if err := c.store.Put(ctx, path, body); err != nil {
		return remoteErr("save user", accountID, path, err)
	}
	return nil
}

func (c *DocClient) SaveEntry(ctx context.Context, accountID string, e models.Entry) error {
	if accountID == "" {
		return remoteErr("save entry", accountID, "", common.ErrUnauthorized)
	}
	path := docPath(accountID, entriesCollection, e.ID)
	body, err := json.Marshal(newEntryDoc(e))
	if err != nil {
		return remoteErr("save entry", accountID, path, err)
	}
	if err := c.store.Put(ctx, path, body); err != nil {
		return remoteErr("save entry", accountID, path, err)
	}
	return nil
}

// GetUsers returns every user of the account in creation (id) order.
// Documents that do not decode are logged and skipped.
func (c *DocClient) GetUsers(ctx context.Context, accountID string) ([]models.User, error) {
	if accountID == "" {
		return nil, remoteErr("get users", accountID, "", common.ErrUnauthorized)
	}
	path := collectionPath(accountID, usersCollection)
	docs, err := c.store.List(ctx, path)
	if err != nil {
		return nil, remoteErr("get users", accountID, path, err)
	}

	users := make([]models.User, 0, len(docs))
	for key, body := range docs {
		u, err := decodeUser(key, body)
		if err != nil {
			c.log.Warn(ctx, "skipping malformed user document", "path", docstore.Join(path, key), "error", err)
			continue
		}
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// GetEntries returns every entry of the account, newest id first, which is
// the order the working set keeps them in.
func (c *DocClient) GetEntries(ctx context.Context, accountID string) ([]models.Entry, error) {
	if accountID == "" {
		return nil, remoteErr("get entries", accountID, "", common.ErrUnauthorized)
	}
	path := collectionPath(accountID, entriesCollection)
	docs, err := c.store.List(ctx, path)
	if err != nil {
		return nil, remoteErr("get entries", accountID, path, err)
	}

	entries := make([]models.Entry, 0, len(docs))
	for key, body := range docs {
		e, err := decodeEntry(key, body)
		if err != nil {
			c.log.Warn(ctx, "skipping malformed entry document", "path", docstore.Join(path, key), "error", err)
			continue
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID > entries[j].ID })
	return entries, nil
}

// DeleteEntry removes the entry document. Deleting a missing entry succeeds.
func (c *DocClient) DeleteEntry(ctx context.Context, accountID string, entryID int64) error {
	if accountID == "" {
		return remoteErr("delete entry", accountID, "", common.ErrUnauthorized)
	}
	path := docPath(accountID, entriesCollection, entryID)
	if err := c.store.Delete(ctx, path); err != nil {
		return remoteErr("delete entry", accountID, path, err)
	}
	return nil
}

// Migrate upserts users and then entries one by one. It is not atomic: on
// the first failure it stops and reports how many writes landed. Running it
// again with the same data is safe.
func (c *DocClient) Migrate(ctx context.Context, accountID string, users []models.User, entries []models.Entry) error {
	if accountID == "" {
		return remoteErr("migrate", accountID, "", common.ErrUnauthorized)
	}

	progress := &common.MigrationError{AccountID: accountID}
	fail := func(err error) error {
		path := ""
		var re *common.RemoteError
		if errors.As(err, &re) {
			path, err = re.Path, re.Err
		}
		progress.Err = err
		return remoteErr("migrate", accountID, path, progress)
	}

	for _, u := range users {
		if err := c.SaveUser(ctx, accountID, u); err != nil {
			return fail(err)
		}
		progress.UsersDone++
	}
	for _, e := range entries {
		if err := c.SaveEntry(ctx, accountID, e); err != nil {
			return fail(err)
		}
		progress.EntriesDone++
	}

	c.log.Info(ctx, "migration complete", "account", accountID, "users", progress.UsersDone, "entries", progress.EntriesDone)
	return nil
}

var _ Client = (*DocClient)(nil)

func parseID(key string) (int64, error) {
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("bad document id %q", key)
	}
	return id, nil
}

var errInvalidDoc = errors.New("document fails validation")
