// Package report derives read-only views from a list of entries: filtered
// and time-ordered logs, summary statistics and per-period averages.
package report

import (
	"sort"
	"time"

	"github.com/dmitrijs2005/glucokeeper/internal/client/models"
)

// Filter selects entries. Zero fields do not restrict.
type Filter struct {
	UserID int64
	Since  time.Time
	Until  time.Time
}

// LastDays returns a filter for userID covering the days before now.
func LastDays(userID int64, days int, now time.Time) Filter {
	f := Filter{UserID: userID}
	if days > 0 {
		f.Since = now.Add(-time.Duration(days) * 24 * time.Hour)
	}
	return f
}

func (f Filter) match(e models.Entry) bool {
	if f.UserID != 0 && e.UserID != f.UserID {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !e.Timestamp.Before(f.Until) {
		return false
	}
	return true
}

// Select returns the entries matching f, oldest first. The input is not
// modified.
func Select(entries []models.Entry, f Filter) []models.Entry {
	out := make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		if f.match(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// Summary holds basic statistics over a set of measurements. All values are
// zero for an empty set.
type Summary struct {
	Count   int
	Average float64
	Min     float64
	Max     float64
}

func Summarize(entries []models.Entry) Summary {
	if len(entries) == 0 {
		return Summary{}
	}
	s := Summary{Count: len(entries), Min: entries[0].Measurement, Max: entries[0].Measurement}
	var sum float64
	for _, e := range entries {
		sum += e.Measurement
		s.Min = min(s.Min, e.Measurement)
		s.Max = max(s.Max, e.Measurement)
	}
	s.Average = sum / float64(len(entries))
	return s
}

// PeriodAverage is the mean measurement for one time period.
type PeriodAverage struct {
	Period  models.TimePeriod
	Count   int
	Average float64
}

// ByPeriod averages measurements per time period in day order. Periods
// without entries are left out.
func ByPeriod(entries []models.Entry) []PeriodAverage {
	totals := make(map[models.TimePeriod]*PeriodAverage, len(models.TimePeriods))
	for _, e := range entries {
		p := e.TimePeriod.OrDefault()
		pa, ok := totals[p]
		if !ok {
			pa = &PeriodAverage{Period: p}
			totals[p] = pa
		}
		pa.Count++
		pa.Average += e.Measurement
	}

	out := make([]PeriodAverage, 0, len(totals))
	for _, p := range models.TimePeriods {
		pa, ok := totals[p]
		if !ok {
			continue
		}
		pa.Average /= float64(pa.Count)
		out = append(out, *pa)
	}
	return out
}
