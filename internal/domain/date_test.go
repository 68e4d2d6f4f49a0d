package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCivilDateOfMillis(t *testing.T) {
	tests := []struct {
		name string
		ts   time.Time
		want CivilDate
	}{
		{
			name: "winter, london equals utc",
			ts:   time.Date(2024, time.January, 15, 23, 30, 0, 0, time.UTC),
			want: NewCivilDate(2024, time.January, 15),
		},
		{
			name: "summer, late utc evening is next london day",
			ts:   time.Date(2024, time.June, 15, 23, 30, 0, 0, time.UTC),
			want: NewCivilDate(2024, time.June, 16),
		},
		{
			name: "summer, midday stays same day",
			ts:   time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC),
			want: NewCivilDate(2024, time.June, 15),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CivilDateOfMillis(tc.ts.UnixMilli()))
		})
	}
}

func TestCivilDateDaysUntil(t *testing.T) {
	d := NewCivilDate(2024, time.March, 1)

	assert.Equal(t, 0, d.DaysUntil(d))
	assert.Equal(t, 1, d.DaysUntil(NewCivilDate(2024, time.March, 2)))
	assert.Equal(t, 31, d.DaysUntil(NewCivilDate(2024, time.April, 1)))
	assert.Equal(t, -1, d.DaysUntil(NewCivilDate(2024, time.February, 29)))
	// Crosses the BST switch on 31 March; still plain calendar days.
	assert.Equal(t, 30, NewCivilDate(2024, time.March, 15).DaysUntil(NewCivilDate(2024, time.April, 14)))
}

func TestParseCivilDate(t *testing.T) {
	d, err := ParseCivilDate("2024-04-06")
	require.NoError(t, err)
	assert.Equal(t, NewCivilDate(2024, time.April, 6), d)
	assert.Equal(t, "2024-04-06", d.String())

	_, err = ParseCivilDate("06/04/2024")
	assert.Error(t, err)
	_, err = ParseCivilDate("")
	assert.Error(t, err)
}

func TestCivilDateAdd(t *testing.T) {
	d := NewCivilDate(2024, time.December, 30)
	assert.Equal(t, NewCivilDate(2025, time.January, 2), d.Add(3))
	assert.Equal(t, NewCivilDate(2024, time.December, 27), d.Add(-3))
}

func TestCivilDateDayBounds(t *testing.T) {
	// 2024-06-15 runs 23:00 UTC on the 14th to 22:59:59.999 UTC on the 15th (BST).
	d := NewCivilDate(2024, time.June, 15)
	assert.Equal(t, time.Date(2024, time.June, 14, 23, 0, 0, 0, time.UTC).UnixMilli(), d.StartMillis())
	assert.Equal(t, time.Date(2024, time.June, 15, 23, 0, 0, 0, time.UTC).UnixMilli()-1, d.EndMillis())
}
