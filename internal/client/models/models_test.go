package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/dmitrijs2005/glucokeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ts = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

func TestPeriodFromLabel(t *testing.T) {
	tests := []struct {
		label string
		want  TimePeriod
	}{
		{"Before Breakfast", BeforeBreakfast},
		{"After Breakfast", AfterBreakfast},
		{"Before Lunch", BeforeLunch},
		{"After Lunch", AfterLunch},
		{"Before Dinner", BeforeDinner},
		{"After Dinner", AfterDinner},
		{"after dinner", BeforeBreakfast},
		{"After  Dinner", BeforeBreakfast},
		{"", BeforeBreakfast},
		{"Bedtime", BeforeBreakfast},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, PeriodFromLabel(tt.label))
		})
	}
}

func TestTimePeriod_LabelRoundTrip(t *testing.T) {
	for _, p := range TimePeriods {
		assert.Equal(t, p, PeriodFromLabel(p.Label()))
	}
	assert.Equal(t, "Before Breakfast", TimePeriod("nonsense").Label())
}

func TestFilterMedications(t *testing.T) {
	got := FilterMedications([]Medication{
		{Name: "Insulin", Units: 4},
		{Name: "", Units: 2},
		{Name: "Metformin", Units: 0},
		{Name: "X", Units: -1},
		{Name: " Y ", Units: 1.5},
		{Name: "Z", Units: math.NaN()},
	})
	assert.Equal(t, []Medication{{Name: "Insulin", Units: 4}, {Name: "Y", Units: 1.5}}, got)

	assert.NotNil(t, FilterMedications(nil))
}

func TestNewEntry_RejectsMissingFields(t *testing.T) {
	_, err := NewEntry(0, 1, 100, BeforeLunch, ts, nil)
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = NewEntry(1, 0, 100, BeforeLunch, ts, nil)
	var ve *common.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "userId", ve.Field)

	_, err = NewEntry(1, 1, math.NaN(), BeforeLunch, ts, nil)
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = NewEntry(1, 1, math.Inf(1), BeforeLunch, ts, nil)
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = NewEntry(1, 1, 100, BeforeLunch, time.Time{}, nil)
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestNewEntry_DefaultsAndNormalizes(t *testing.T) {
	local := time.Date(2024, 1, 1, 10, 0, 0, 123456789, time.FixedZone("X", 2*3600))
	e, err := NewEntry(5, 7, 95.5, "", local, nil)
	require.NoError(t, err)

	assert.Equal(t, BeforeBreakfast, e.TimePeriod)
	assert.Equal(t, time.Date(2024, 1, 1, 8, 0, 0, 123000000, time.UTC), e.Timestamp)
	assert.NotNil(t, e.Medications)
	assert.True(t, IsValidEntry(e))
}

func TestIsValidEntry(t *testing.T) {
	good := Entry{ID: 1, UserID: 2, Measurement: 100, TimePeriod: AfterLunch, Timestamp: ts}
	assert.True(t, IsValidEntry(good))

	noUser := good
	noUser.UserID = 0
	assert.False(t, IsValidEntry(noUser))

	nan := good
	nan.Measurement = math.NaN()
	assert.False(t, IsValidEntry(nan))

	badPeriod := good
	badPeriod.TimePeriod = "brunch"
	assert.False(t, IsValidEntry(badPeriod))

	emptyPeriod := good
	emptyPeriod.TimePeriod = ""
	assert.True(t, IsValidEntry(emptyPeriod))

	noTime := good
	noTime.Timestamp = time.Time{}
	assert.False(t, IsValidEntry(noTime))
}

func TestEntry_ExceedsMedicationCap(t *testing.T) {
	e := Entry{Medications: make([]Medication, MaxMedications)}
	assert.False(t, e.ExceedsMedicationCap())
	e.Medications = append(e.Medications, Medication{Name: "extra", Units: 1})
	assert.True(t, e.ExceedsMedicationCap())
}

func TestEntry_JSONShape(t *testing.T) {
	e, err := NewEntry(11, 22, 110, AfterDinner, ts, []Medication{{Name: "Insulin", Units: 3}})
	require.NoError(t, err)

	b, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":11,"userId":22,"measurement":110,"timePeriod":"after-dinner",
		"timestamp":"2024-01-01T08:00:00Z","medications":[{"name":"Insulin","units":3}]}`, string(b))
}

func TestNewUser(t *testing.T) {
	u, err := NewUser(3, "  Alice ", ts)
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)
	assert.True(t, IsValidUser(u))

	_, err = NewUser(3, "   ", ts)
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = NewUser(0, "Bob", ts)
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestFindUserByName_CaseInsensitive(t *testing.T) {
	users := []User{{ID: 1, Name: "Alice"}, {ID: 2, Name: "Bob"}}

	u, ok := FindUserByName(users, " alice")
	require.True(t, ok)
	assert.Equal(t, int64(1), u.ID)

	_, ok = FindUserByName(users, "carol")
	assert.False(t, ok)

	u, ok = FindUser(users, 2)
	require.True(t, ok)
	assert.Equal(t, "Bob", u.Name)
}
