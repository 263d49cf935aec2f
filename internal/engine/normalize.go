package engine

import (
	"strings"
	"time"

	"deliverylens/internal/dataset"
	"deliverylens/internal/model"
)

// CanonicalLayout is the text form NormalizeDates writes back for UTC
// timestamps. ZonedLayout keeps a non-zero source offset.
const (
	CanonicalLayout = "2006-01-02 15:04:05"
	ZonedLayout     = CanonicalLayout + "Z07:00"
)

// parseLayouts is the single parse rule applied to every date column.
// Order matters: the canonical form comes first so normalized tables
// re-parse without ambiguity.
var parseLayouts = []string{
	CanonicalLayout,
	ZonedLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp converts source text into a timestamp. Values without an
// offset, or with a zero one, are UTC; other offsets are kept. Anything that
// does not parse yields the missing marker.
func ParseTimestamp(value string) model.NullTime {
	value = strings.TrimSpace(value)
	if value == "" {
		return model.NullTime{}
	}
	for _, layout := range parseLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		if _, offset := t.Zone(); offset == 0 {
			t = t.UTC()
		}
		return model.At(t)
	}
	return model.NullTime{}
}

// FormatTimestamp renders a timestamp in CanonicalLayout, or ZonedLayout
// when it carries an offset. A missing timestamp renders as "".
func FormatTimestamp(t model.NullTime) string {
	if !t.Valid {
		return ""
	}
	if _, offset := t.Time.Zone(); offset != 0 {
		return t.Time.Format(ZonedLayout)
	}
	return t.Time.UTC().Format(CanonicalLayout)
}

// NormalizeDates returns a copy of t whose cells in the given columns are
// rewritten to CanonicalLayout, or emptied when unparseable. Row order is
// kept and columns absent from t are ignored. Applying it twice gives the
// same table as applying it once.
func NormalizeDates(t dataset.Table, columns ...string) dataset.Table {
	out := t.Clone()
	for _, col := range columns {
		idx, ok := out.ColumnIndex(col)
		if !ok {
			continue
		}
		for _, row := range out.Rows {
			if idx >= len(row) {
				continue
			}
			row[idx] = FormatTimestamp(ParseTimestamp(row[idx]))
		}
	}
	return out
}
