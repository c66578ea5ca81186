package client

import (
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/glucokeeper/internal/client/models"
)

// timestampLayout is RFC 3339 in UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

type userDoc struct {
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

type entryDoc struct {
	UserID      int64               `json:"userId"`
	Measurement float64             `json:"measurement"`
	TimePeriod  models.TimePeriod   `json:"timePeriod"`
	Timestamp   string              `json:"timestamp"`
	Medications []models.Medication `json:"medications"`
}

func formatTime(t time.Time) string {
	return models.NormalizeTime(t).Format(timestampLayout)
}

func newUserDoc(u models.User) userDoc {
	return userDoc{Name: u.Name, CreatedAt: formatTime(u.CreatedAt)}
}

func newEntryDoc(e models.Entry) entryDoc {
	meds := e.Medications
	if meds == nil {
		meds = []models.Medication{}
	}
	return entryDoc{
		UserID:      e.UserID,
		Measurement: e.Measurement,
		TimePeriod:  e.TimePeriod.OrDefault(),
		Timestamp:   formatTime(e.Timestamp),
		Medications: meds,
	}
}

func decodeUser(key string, body []byte) (models.User, error) {
	id, err := parseID(key)
	if err != nil {
		return models.User{}, err
	}
	var doc userDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return models.User{}, err
	}
	var createdAt time.Time
	if doc.CreatedAt != "" {
		if createdAt, err = time.Parse(time.RFC3339Nano, doc.CreatedAt); err != nil {
			return models.User{}, err
		}
	}
	u := models.User{ID: id, Name: doc.Name, CreatedAt: models.NormalizeTime(createdAt)}
	if !models.IsValidUser(u) {
		return models.User{}, errInvalidDoc
	}
	return u, nil
}

func decodeEntry(key string, body []byte) (models.Entry, error) {
	id, err := parseID(key)
	if err != nil {
		return models.Entry{}, err
	}
	var doc entryDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return models.Entry{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, doc.Timestamp)
	if err != nil {
		return models.Entry{}, err
	}
	e := models.Entry{
		ID:          id,
		UserID:      doc.UserID,
		Measurement: doc.Measurement,
		TimePeriod:  doc.TimePeriod.OrDefault(),
		Timestamp:   models.NormalizeTime(ts),
		Medications: models.FilterMedications(doc.Medications),
	}
	if !models.IsValidEntry(e) {
		return models.Entry{}, errInvalidDoc
	}
	return e, nil
}
