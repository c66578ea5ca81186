// Package dedup decides whether an imported measurement is a re-import of
// one already on record.
package dedup

import (
	"time"

	"github.com/dmitrijs2005/glucokeeper/internal/client/models"
)

// Window is the timestamp distance below which two readings of the same
// value by the same user count as one event.
const Window = 60 * time.Second

// Policy selects which entries a candidate is compared against.
type Policy int

const (
	// PolicyBaseline compares only against entries that existed before the
	// import. Two identical rows in one file are both admitted.
	PolicyBaseline Policy = iota
	// PolicyWithinBatch also compares against candidates admitted earlier in
	// the same batch.
	PolicyWithinBatch
)

func (p Policy) String() string {
	switch p {
	case PolicyWithinBatch:
		return "within-batch"
	default:
		return "baseline"
	}
}

// IsDuplicate reports whether candidate and existing record the same event:
// same user, exactly equal measurement and timestamps strictly less than
// Window apart.
func IsDuplicate(candidate, existing models.Entry) bool {
	if candidate.UserID != existing.UserID || candidate.Measurement != existing.Measurement {
		return false
	}
	d := candidate.Timestamp.Sub(existing.Timestamp)
	if d < 0 {
		d = -d
	}
	return d < Window
}

// HasDuplicate reports whether candidate duplicates any entry in existing.
func HasDuplicate(candidate models.Entry, existing []models.Entry) bool {
	for _, e := range existing {
		if IsDuplicate(candidate, e) {
			return true
		}
	}
	return false
}

// BatchResult is the outcome of ImportBatch.
type BatchResult struct {
	Admitted       []models.Entry
	ImportedCount  int
	DuplicateCount int
	// InvalidCount is the number of candidates dropped because they have no
	// numeric measurement or no timestamp.
	InvalidCount int
}

// ImportBatch stamps every candidate with userID and splits the batch into
// admitted entries, duplicates and invalid candidates, keeping input order.
// existing is not modified.
func ImportBatch(candidates, existing []models.Entry, userID int64, policy Policy) BatchResult {
	res := BatchResult{Admitted: make([]models.Entry, 0, len(candidates))}

	for _, c := range candidates {
		c = c.WithUser(userID)
		if !models.IsValidEntry(c) || c.ExceedsMedicationCap() {
			res.InvalidCount++
			continue
		}
		if HasDuplicate(c, existing) || (policy == PolicyWithinBatch && HasDuplicate(c, res.Admitted)) {
			res.DuplicateCount++
			continue
		}
		res.Admitted = append(res.Admitted, c)
	}

	res.ImportedCount = len(res.Admitted)
	return res
}
