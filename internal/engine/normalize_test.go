package engine

import (
	"testing"
	"time"

	"deliverylens/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp_Layouts(t *testing.T) {
	want := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	for _, in := range []string{
		"2024-03-05 14:30:00",
		"2024-03-05T14:30:00Z",
		"2024-03-05T14:30:00+00:00",
		"2024-03-05T14:30:00",
		"2024-03-05 14:30",
		"  2024-03-05 14:30:00 ",
	} {
		got := ParseTimestamp(in)
		require.True(t, got.Valid, in)
		assert.True(t, want.Equal(got.Time), "%s parsed as %s", in, got.Time)
		assert.Equal(t, time.UTC, got.Time.Location())
	}

	zoned := ParseTimestamp("2024-03-05T16:30:00+02:00")
	require.True(t, zoned.Valid)
	assert.True(t, want.Equal(zoned.Time))
	_, offset := zoned.Time.Zone()
	assert.Equal(t, 2*60*60, offset)

	dateOnly := ParseTimestamp("2024-03-05")
	require.True(t, dateOnly.Valid)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), dateOnly.Time)
}

func TestParseTimestamp_MissingMarker(t *testing.T) {
	for _, in := range []string{"", "   ", "n/a", "2024-13-40", "05/03/2024"} {
		assert.False(t, ParseTimestamp(in).Valid, "%q", in)
	}
	assert.Equal(t, "", FormatTimestamp(ParseTimestamp("garbage")))
}

func TestNormalizeDates(t *testing.T) {
	in := dataset.Table{
		Name:    dataset.Orders,
		Columns: []string{"order_id", "order_purchase_timestamp", "note"},
		Rows: [][]string{
			{"b", "2024-01-02T10:00:00Z", "2024-01-02"},
			{"a", "bogus", "x"},
			{"c"},
		},
	}
	out := NormalizeDates(in, "order_purchase_timestamp", "not_there")

	assert.Equal(t, [][]string{
		{"b", "2024-01-02 10:00:00", "2024-01-02"},
		{"a", "", "x"},
		{"c"},
	}, out.Rows)
	assert.Equal(t, "2024-01-02T10:00:00Z", in.Rows[0][1], "input must not change")
	assert.Equal(t, "bogus", in.Rows[1][1])
}

func TestNormalizeDates_KeepsSourceOffset(t *testing.T) {
	in := dataset.Table{
		Columns: []string{"d"},
		Rows:    [][]string{{"2024-01-31T22:00:00-03:00"}, {"2024-01-31T22:00:00+00:00"}},
	}
	out := NormalizeDates(in, "d")
	assert.Equal(t, "2024-01-31 22:00:00-03:00", out.Rows[0][0])
	assert.Equal(t, "2024-01-31 22:00:00", out.Rows[1][0])

	got := ParseTimestamp(out.Rows[0][0])
	require.True(t, got.Valid)
	assert.True(t, time.Date(2024, 2, 1, 1, 0, 0, 0, time.UTC).Equal(got.Time))
}

func TestNormalizeDates_Idempotent(t *testing.T) {
	in := dataset.Table{
		Columns: []string{"d"},
		Rows:    [][]string{{"2024-01-02T10:00:00+01:00"}, {"2024-01-03"}, {""}, {"nope"}},
	}
	once := NormalizeDates(in, "d")
	twice := NormalizeDates(once, "d")
	assert.Equal(t, once, twice)
	assert.Equal(t, "2024-01-02 10:00:00+01:00", once.Rows[0][0])
	assert.Equal(t, "2024-01-03 00:00:00", once.Rows[1][0])
}
