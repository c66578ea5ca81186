// Package csvimport turns spreadsheet exports into entry candidates.
//
// The expected layout is a header row followed by rows of
//
//	datetime, time period label, blood sugar, unit, [medication, units] x 3
//
// Malformed rows are skipped rather than failing the whole import, because
// partial exports are common. Only input without a single data line is an
// error (common.ErrEmptyInput).
package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/dmitrijs2005/glucokeeper/internal/client/models"
	"github.com/dmitrijs2005/glucokeeper/internal/common"
)

const (
	colDateTime = iota
	colPeriod
	colBloodSugar
	colUnit
	colFirstMedication
)

const (
	minFields        = 3
	medicationPairs  = 3
	medicationFields = 2
)

// SkipReason says why a row was left out.
type SkipReason string

const (
	SkipTooFewFields  SkipReason = "too few fields"
	SkipMissingValue  SkipReason = "empty datetime or blood sugar"
	SkipBadDateTime   SkipReason = "unparseable datetime"
	SkipBadBloodSugar SkipReason = "blood sugar is not a number"
	SkipMalformed     SkipReason = "malformed csv"
)

// SkippedRow identifies a dropped data row by its 1-based line number.
type SkippedRow struct {
	Line   int
	Reason SkipReason
}

// Result is the outcome of a parse. Entries carry no id and no user id; the
// caller stamps both before admission.
type Result struct {
	Entries []models.Entry
	Skipped []SkippedRow
}

// Parser converts CSV text into entry candidates.
type Parser struct {
	loc *time.Location
}

// NewParser returns a Parser that interprets datetimes without an explicit
// zone in loc. A nil loc means time.Local.
func NewParser(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.Local
	}
	return &Parser{loc: loc}
}

// Parse reads text and returns every row that could be turned into an entry.
// An empty Result (all rows skipped) is not an error.
func (p *Parser) Parse(text string) (*Result, error) {
	text = strings.TrimSpace(text)
	if len(strings.Split(text, "\n")) < 2 {
		return nil, common.ErrEmptyInput
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.ReuseRecord = false

	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEmptyInput, err)
	}

	res := &Result{Entries: make([]models.Entry, 0)}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				res.Skipped = append(res.Skipped, SkippedRow{Line: pe.StartLine, Reason: SkipMalformed})
				continue
			}
			return nil, err
		}

		line, _ := r.FieldPos(0)
		entry, reason := p.parseRecord(record)
		if reason != "" {
			res.Skipped = append(res.Skipped, SkippedRow{Line: line, Reason: reason})
			continue
		}
		res.Entries = append(res.Entries, entry)
	}
	return res, nil
}

func (p *Parser) parseRecord(record []string) (models.Entry, SkipReason) {
	if len(record) < minFields {
		return models.Entry{}, SkipTooFewFields
	}

	dateTime := field(record, colDateTime)
	bloodSugar := field(record, colBloodSugar)
	if dateTime == "" || bloodSugar == "" {
		return models.Entry{}, SkipMissingValue
	}

	ts, err := dateparse.ParseIn(dateTime, p.loc)
	if err != nil {
		return models.Entry{}, SkipBadDateTime
	}

	measurement, ok := leadingFloat(bloodSugar)
	if !ok {
		return models.Entry{}, SkipBadBloodSugar
	}

	meds := make([]models.Medication, 0, medicationPairs)
	for i := 0; i < medicationPairs; i++ {
		col := colFirstMedication + i*medicationFields
		name := field(record, col)
		units, ok := leadingFloat(field(record, col+1))
		if name == "" || !ok || units <= 0 {
			continue
		}
		meds = append(meds, models.Medication{Name: name, Units: units})
	}

	entry, err := models.NewCandidate(measurement, models.PeriodFromLabel(field(record, colPeriod)), ts, meds)
	if err != nil {
		return models.Entry{}, SkipBadBloodSugar
	}
	return entry, ""
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

var numberPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// leadingFloat parses the numeric prefix of s, so "110 mg/dL" reads as 110
// and "4u" as 4. It fails when s does not start with a finite number.
func leadingFloat(s string) (float64, bool) {
	m := numberPrefix.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
