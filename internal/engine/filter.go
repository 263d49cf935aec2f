package engine

import (
	"fmt"
	"strings"
	"time"

	"deliverylens/internal/model"
)

// DateLayout is the text form of a calendar date bound.
const DateLayout = "2006-01-02"

// AllPaymentTypes disables the payment type filter.
const AllPaymentTypes = "All"

// DateRange is an inclusive interval of calendar dates. A nil bound leaves
// that side open. Only the date part of a bound is used.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// ParseDateRange parses optional "2006-01-02" bounds; empty means open.
func ParseDateRange(start, end string) (DateRange, error) {
	var r DateRange
	if s := strings.TrimSpace(start); s != "" {
		t, err := time.Parse(DateLayout, s)
		if err != nil {
			return DateRange{}, fmt.Errorf("parse start date: %w", err)
		}
		r.Start = &t
	}
	if s := strings.TrimSpace(end); s != "" {
		t, err := time.Parse(DateLayout, s)
		if err != nil {
			return DateRange{}, fmt.Errorf("parse end date: %w", err)
		}
		r.End = &t
	}
	return r, nil
}

// Bounded reports whether at least one side is set.
func (r DateRange) Bounded() bool { return r.Start != nil || r.End != nil }

// Inverted reports whether start is after end.
func (r DateRange) Inverted() bool {
	return r.Start != nil && r.End != nil && calendarDate(*r.Start).After(calendarDate(*r.End))
}

// Contains reports whether the calendar date of t, read in t's own zone,
// falls inside the range.
// A missing timestamp is only contained by a fully open range.
func (r DateRange) Contains(t model.NullTime) bool {
	if !r.Bounded() {
		return true
	}
	if !t.Valid {
		return false
	}
	d := calendarDate(t.Time)
	if r.Start != nil && d.Before(calendarDate(*r.Start)) {
		return false
	}
	if r.End != nil && d.After(calendarDate(*r.End)) {
		return false
	}
	return true
}

// String renders the range for logs and reports.
func (r DateRange) String() string {
	return formatBound(r.Start, "-inf") + ".." + formatBound(r.End, "+inf")
}

// FilterByPurchaseDate returns the orders whose purchase date is in r,
// in input order. An inverted range selects nothing.
func FilterByPurchaseDate(orders []model.Order, r DateRange) []model.Order {
	out := make([]model.Order, 0, len(orders))
	if r.Inverted() {
		return out
	}
	for _, o := range orders {
		if r.Contains(o.PurchaseTime) {
			out = append(out, o)
		}
	}
	return out
}

// FilterPayments keeps the payments of one type. "All" or "" keeps every
// row. Type names compare case-insensitively.
func FilterPayments(payments []model.Payment, paymentType string) []model.Payment {
	paymentType = strings.TrimSpace(paymentType)
	if paymentType == "" || strings.EqualFold(paymentType, AllPaymentTypes) {
		return append([]model.Payment(nil), payments...)
	}
	out := make([]model.Payment, 0, len(payments))
	for _, p := range payments {
		if strings.EqualFold(p.PaymentType, paymentType) {
			out = append(out, p)
		}
	}
	return out
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func formatBound(t *time.Time, open string) string {
	if t == nil {
		return open
	}
	return t.Format(DateLayout)
}
