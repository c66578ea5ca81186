// Package models defines the canonical User and Entry records shared by the
// cache, the remote store and the controller.
package models

import (
	"math"
	"strings"
	"time"

	"github.com/dmitrijs2005/glucokeeper/internal/common"
)

// MaxMedications is how many medications a manually submitted entry may carry.
// CSV import does not enforce it; see Entry.ExceedsMedicationCap.
const MaxMedications = 3

// TimePeriod is the meal-relative moment a measurement was taken.
type TimePeriod string

const (
	BeforeBreakfast TimePeriod = "before-breakfast"
	AfterBreakfast  TimePeriod = "after-breakfast"
	BeforeLunch     TimePeriod = "before-lunch"
	AfterLunch      TimePeriod = "after-lunch"
	BeforeDinner    TimePeriod = "before-dinner"
	AfterDinner     TimePeriod = "after-dinner"
)

// DefaultTimePeriod is used when a period is absent or unrecognised.
const DefaultTimePeriod = BeforeBreakfast

// TimePeriods lists every period in day order.
var TimePeriods = []TimePeriod{BeforeBreakfast, AfterBreakfast, BeforeLunch, AfterLunch, BeforeDinner, AfterDinner}

var periodLabels = map[TimePeriod]string{
	BeforeBreakfast: "Before Breakfast",
	AfterBreakfast:  "After Breakfast",
	BeforeLunch:     "Before Lunch",
	AfterLunch:      "After Lunch",
	BeforeDinner:    "Before Dinner",
	AfterDinner:     "After Dinner",
}

var labelPeriods = func() map[string]TimePeriod {
	m := make(map[string]TimePeriod, len(periodLabels))
	for p, l := range periodLabels {
		m[l] = p
	}
	return m
}()

// Valid reports whether p is one of the six known periods.
func (p TimePeriod) Valid() bool {
	_, ok := periodLabels[p]
	return ok
}

// OrDefault returns p, or DefaultTimePeriod when p is not valid.
func (p TimePeriod) OrDefault() TimePeriod {
	if p.Valid() {
		return p
	}
	return DefaultTimePeriod
}

// Label is the human-readable form used in spreadsheets ("Before Lunch").
func (p TimePeriod) Label() string {
	return periodLabels[p.OrDefault()]
}

// PeriodFromLabel maps a spreadsheet label to a TimePeriod. The match is
// exact (case and spacing sensitive); anything else yields DefaultTimePeriod.
func PeriodFromLabel(label string) TimePeriod {
	if p, ok := labelPeriods[label]; ok {
		return p
	}
	return DefaultTimePeriod
}

// Medication is a dose taken together with a measurement.
type Medication struct {
	Name  string  `json:"name"`
	Units float64 `json:"units"`
}

func (m Medication) empty() bool {
	return strings.TrimSpace(m.Name) == "" || !(m.Units > 0) || math.IsInf(m.Units, 0)
}

// FilterMedications drops medications without a name or with non-positive
// units. The result is never nil.
func FilterMedications(meds []Medication) []Medication {
	out := make([]Medication, 0, len(meds))
	for _, m := range meds {
		if m.empty() {
			continue
		}
		out = append(out, Medication{Name: strings.TrimSpace(m.Name), Units: m.Units})
	}
	return out
}

// Entry is one glucose measurement. Entries are never mutated in place.
type Entry struct {
	ID          int64        `json:"id"`
	UserID      int64        `json:"userId"`
	Measurement float64      `json:"measurement"`
	TimePeriod  TimePeriod   `json:"timePeriod"`
	Timestamp   time.Time    `json:"timestamp"`
	Medications []Medication `json:"medications"`
}

// NormalizeTime converts t to UTC with millisecond precision, the resolution
// timestamps are stored with.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// NewCandidate builds an entry that has no id or user yet, as produced by
// the CSV parser. Empty medications are filtered out.
func NewCandidate(measurement float64, period TimePeriod, ts time.Time, meds []Medication) (Entry, error) {
	if math.IsNaN(measurement) || math.IsInf(measurement, 0) {
		return Entry{}, common.NewValidationError("measurement", "must be a finite number")
	}
	if ts.IsZero() {
		return Entry{}, common.NewValidationError("timestamp", "required")
	}
	return Entry{
		Measurement: measurement,
		TimePeriod:  period.OrDefault(),
		Timestamp:   NormalizeTime(ts),
		Medications: FilterMedications(meds),
	}, nil
}

// NewEntry builds a complete entry and rejects it when a required field is
// missing.
func NewEntry(id, userID int64, measurement float64, period TimePeriod, ts time.Time, meds []Medication) (Entry, error) {
	if id == 0 {
		return Entry{}, common.NewValidationError("id", "required")
	}
	if userID == 0 {
		return Entry{}, common.NewValidationError("userId", "required")
	}
	e, err := NewCandidate(measurement, period, ts, meds)
	if err != nil {
		return Entry{}, err
	}
	e.ID = id
	e.UserID = userID
	return e, nil
}

// WithUser returns a copy of e stamped with userID.
func (e Entry) WithUser(userID int64) Entry {
	e.UserID = userID
	e.Medications = append([]Medication(nil), e.Medications...)
	if e.Medications == nil {
		e.Medications = []Medication{}
	}
	return e
}

// ExceedsMedicationCap reports whether e carries more than MaxMedications.
func (e Entry) ExceedsMedicationCap() bool {
	return len(e.Medications) > MaxMedications
}

// IsValidEntry reports whether e has a user, a numeric measurement, a known
// (or defaultable) time period and a timestamp.
func IsValidEntry(e Entry) bool {
	if e.UserID == 0 {
		return false
	}
	if math.IsNaN(e.Measurement) || math.IsInf(e.Measurement, 0) {
		return false
	}
	if e.TimePeriod != "" && !e.TimePeriod.Valid() {
		return false
	}
	return !e.Timestamp.IsZero()
}
