package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/glucokeeper/internal/client/csvimport"
	"github.com/dmitrijs2005/glucokeeper/internal/client/dedup"
	"github.com/dmitrijs2005/glucokeeper/internal/client/models"
	"github.com/dmitrijs2005/glucokeeper/internal/common"
)

// EntryInput is a manually submitted measurement. A zero Timestamp means
// now.
type EntryInput struct {
	Measurement float64
	TimePeriod  models.TimePeriod
	Timestamp   time.Time
	Medications []models.Medication
}

// ImportResult adds the rows the parser dropped to the dedup outcome.
type ImportResult struct {
	dedup.BatchResult
	Skipped []csvimport.SkippedRow
}

func (c *Controller) checkMutable() error {
	if c.ws.state.transitional() {
		return common.ErrSessionNotReady
	}
	return nil
}

// freshID returns an id not present in the working set.
func (c *Controller) freshID(taken map[int64]struct{}) int64 {
	for {
		id := c.ids.Next()
		if _, dup := taken[id]; !dup && id != 0 {
			taken[id] = struct{}{}
			return id
		}
	}
}

func (c *Controller) takenIDs() map[int64]struct{} {
	taken := make(map[int64]struct{}, len(c.ws.users)+len(c.ws.entries))
	for _, u := range c.ws.users {
		taken[u.ID] = struct{}{}
	}
	for _, e := range c.ws.entries {
		taken[e.ID] = struct{}{}
	}
	return taken
}

func (c *Controller) writeLocal(what string, fn func(ctx context.Context) error) {
	ctx := context.Background()
	if err := fn(ctx); err != nil {
		c.log.Error(ctx, "local cache write failed", "key", what, "error", err)
	}
}

// AddUser creates a user with a unique (case-insensitive) name and selects
// it.
func (c *Controller) AddUser(ctx context.Context, name string) (models.User, error) {
	var (
		user models.User
		err  error
	)
	if derr := c.do(ctx, func() {
		if err = c.checkMutable(); err != nil {
			return
		}
		if _, exists := models.FindUserByName(c.ws.users, name); exists {
			err = common.NewValidationError("name", "a user with this name already exists")
			return
		}
		user, err = models.NewUser(c.freshID(c.takenIDs()), name, c.opts.Now())
		if err != nil {
			return
		}

		c.ws.users = append(c.ws.users, user)
		c.ws.selected = user.ID

		if c.ws.state.local() {
			users := append([]models.User{}, c.ws.users...)
			c.writeLocal(common.CacheKeyUsers, func(ctx context.Context) error { return c.cache.SaveUsersAndSelection(ctx, users, user.ID) })
			return
		}
		c.writeLocal(common.CacheKeySelectedUserID, func(ctx context.Context) error { return c.cache.SaveSelectedUser(ctx, user.ID) })
		c.mirror("save user", func(ctx context.Context, accountID string) error {
			return c.remote.SaveUser(ctx, accountID, user)
		})
	}); derr != nil {
		return models.User{}, derr
	}
	return user, err
}

// SelectUser makes userID the target of new entries and imports. Zero
// clears the selection. The choice is remembered locally in every state.
func (c *Controller) SelectUser(ctx context.Context, userID int64) error {
	var err error
	if derr := c.do(ctx, func() {
		if err = c.checkMutable(); err != nil {
			return
		}
		if userID != 0 {
			if _, ok := models.FindUser(c.ws.users, userID); !ok {
				err = fmt.Errorf("user %d: %w", userID, common.ErrNotFound)
				return
			}
		}
		c.ws.selected = userID
		c.writeLocal(common.CacheKeySelectedUserID, func(ctx context.Context) error { return c.cache.SaveSelectedUser(ctx, userID) })
	}); derr != nil {
		return derr
	}
	return err
}

// SubmitEntry records a measurement for the selected user. At most
// models.MaxMedications medications are accepted.
func (c *Controller) SubmitEntry(ctx context.Context, in EntryInput) (models.Entry, error) {
	meds := models.FilterMedications(in.Medications)
	if len(meds) > models.MaxMedications {
		return models.Entry{}, common.NewValidationError("medications", fmt.Sprintf("at most %d allowed", models.MaxMedications))
	}
	if in.TimePeriod != "" && !in.TimePeriod.Valid() {
		return models.Entry{}, common.NewValidationError("timePeriod", fmt.Sprintf("unknown period %q", in.TimePeriod))
	}

	var (
		entry models.Entry
		err   error
	)
	if derr := c.do(ctx, func() {
		if err = c.checkMutable(); err != nil {
			return
		}
		if c.ws.selected == 0 {
			err = common.ErrNoUserSelected
			return
		}
		ts := in.Timestamp
		if ts.IsZero() {
			ts = c.opts.Now()
		}
		entry, err = models.NewEntry(c.freshID(c.takenIDs()), c.ws.selected, in.Measurement, in.TimePeriod, ts, meds)
		if err != nil {
			return
		}

		c.ws.entries = append([]models.Entry{entry}, c.ws.entries...)

		if c.ws.state.local() {
			entries := append([]models.Entry{}, c.ws.entries...)
			c.writeLocal(common.CacheKeyEntries, func(ctx context.Context) error { return c.cache.SaveEntries(ctx, entries) })
			return
		}
		c.mirror("save entry", func(ctx context.Context, accountID string) error {
			return c.remote.SaveEntry(ctx, accountID, entry)
		})
	}); derr != nil {
		return models.Entry{}, derr
	}
	return entry, err
}

// DeleteEntry removes an entry from the working set and from storage.
func (c *Controller) DeleteEntry(ctx context.Context, entryID int64) error {
	var err error
	if derr := c.do(ctx, func() {
		if err = c.checkMutable(); err != nil {
			return
		}
		idx := -1
		for i, e := range c.ws.entries {
			if e.ID == entryID {
				idx = i
				break
			}
		}
		if idx < 0 {
			err = fmt.Errorf("entry %d: %w", entryID, common.ErrNotFound)
			return
		}

		entries := make([]models.Entry, 0, len(c.ws.entries)-1)
		entries = append(entries, c.ws.entries[:idx]...)
		entries = append(entries, c.ws.entries[idx+1:]...)
		c.ws.entries = entries

		if c.ws.state.local() {
			snapshot := append([]models.Entry{}, entries...)
			c.writeLocal(common.CacheKeyEntries, func(ctx context.Context) error { return c.cache.SaveEntries(ctx, snapshot) })
			return
		}
		c.mirror("delete entry", func(ctx context.Context, accountID string) error {
			return c.remote.DeleteEntry(ctx, accountID, entryID)
		})
	}); derr != nil {
		return derr
	}
	return err
}

// ImportCSV parses text and admits the non-duplicate rows for the selected
// user. Nothing is admitted when the text is not a usable CSV.
func (c *Controller) ImportCSV(ctx context.Context, text string) (ImportResult, error) {
	parsed, err := c.parser.Parse(text)
	if err != nil {
		return ImportResult{}, err
	}
	batch, err := c.ImportBatch(ctx, parsed.Entries)
	if err != nil {
		return ImportResult{}, err
	}
	return ImportResult{BatchResult: batch, Skipped: parsed.Skipped}, nil
}

// ImportBatch stamps candidates with the selected user, drops duplicates of
// entries already in the working set and prepends the rest in input order.
// Remotely the admitted entries are saved one after another by a single
// mirror.
func (c *Controller) ImportBatch(ctx context.Context, candidates []models.Entry) (dedup.BatchResult, error) {
	var (
		res dedup.BatchResult
		err error
	)
	if derr := c.do(ctx, func() {
		if err = c.checkMutable(); err != nil {
			return
		}
		if c.ws.selected == 0 {
			err = common.ErrNoUserSelected
			return
		}

		res = dedup.ImportBatch(candidates, c.ws.entries, c.ws.selected, c.opts.DedupPolicy)
		if res.ImportedCount == 0 {
			return
		}

		taken := c.takenIDs()
		for i := range res.Admitted {
			res.Admitted[i].ID = c.freshID(taken)
		}
		admitted := append([]models.Entry{}, res.Admitted...)
		c.ws.entries = append(admitted, c.ws.entries...)

		if c.ws.state.local() {
			entries := append([]models.Entry{}, c.ws.entries...)
			c.writeLocal(common.CacheKeyEntries, func(ctx context.Context) error { return c.cache.SaveEntries(ctx, entries) })
			return
		}
		c.mirror("import entries", func(_ context.Context, accountID string) error {
			var errs []error
			for _, e := range admitted {
				ctx, cancel := c.remoteCtx(1)
				errs = append(errs, c.remote.SaveEntry(ctx, accountID, e))
				cancel()
			}
			return errors.Join(errs...)
		})
	}); derr != nil {
		return dedup.BatchResult{}, derr
	}
	return res, err
}
