package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dmitrijs2005/glucokeeper/internal/client/models"
)

// DefaultUnit is written to the unit column.
const DefaultUnit = "mg/dL"

// ExportLayout is the datetime format of exported rows. The importer reads
// it back in the same location.
const ExportLayout = "2006-01-02 15:04:05.000"

var exportHeader = []string{
	"Date & Time", "Time Period", "Blood Sugar", "Unit",
	"Medication 1", "Units 1", "Medication 2", "Units 2", "Medication 3", "Units 3",
}

// WriteCSV writes entries in the column layout the CSV importer accepts.
// Times are rendered in loc; nil means time.Local. Medications beyond the
// third are not written.
func WriteCSV(w io.Writer, entries []models.Entry, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, e := range entries {
		row := make([]string, len(exportHeader))
		row[0] = e.Timestamp.In(loc).Format(ExportLayout)
		row[1] = e.TimePeriod.Label()
		row[2] = formatNumber(e.Measurement)
		row[3] = DefaultUnit
		for i, m := range e.Medications {
			if i == models.MaxMedications {
				break
			}
			row[4+2*i] = m.Name
			row[5+2*i] = formatNumber(m.Units)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write entry %d: %w", e.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
