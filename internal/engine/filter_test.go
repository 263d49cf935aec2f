package engine

import (
	"testing"
	"time"

	"deliverylens/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func purchasedAt(id, ts string) model.Order {
	return model.Order{OrderID: id, PurchaseTime: ParseTimestamp(ts)}
}

func ids(orders []model.Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.OrderID)
	}
	return out
}

func mustRange(t *testing.T, start, end string) DateRange {
	t.Helper()
	r, err := ParseDateRange(start, end)
	require.NoError(t, err)
	return r
}

func TestParseDateRange(t *testing.T) {
	r := mustRange(t, "2024-01-01", "")
	require.NotNil(t, r.Start)
	assert.Nil(t, r.End)
	assert.Equal(t, "2024-01-01..+inf", r.String())
	assert.Equal(t, "-inf..+inf", DateRange{}.String())

	_, err := ParseDateRange("2024-01-01", "01/02/2024")
	assert.Error(t, err)
	_, err = ParseDateRange("yesterday", "")
	assert.Error(t, err)
}

func TestFilterByPurchaseDate_InclusiveBounds(t *testing.T) {
	orders := []model.Order{
		purchasedAt("before", "2023-12-31 23:59:59"),
		purchasedAt("first", "2024-01-01 00:00:00"),
		purchasedAt("mid", "2024-01-15 12:00:00"),
		purchasedAt("last", "2024-01-31 23:59:59"),
		purchasedAt("after", "2024-02-01 00:00:00"),
		{OrderID: "missing"},
	}
	got := FilterByPurchaseDate(orders, mustRange(t, "2024-01-01", "2024-01-31"))
	assert.Equal(t, []string{"first", "mid", "last"}, ids(got))
}

func TestFilterByPurchaseDate_OpenRangeKeepsEverything(t *testing.T) {
	orders := []model.Order{purchasedAt("a", "2024-01-01"), {OrderID: "missing"}}
	assert.Equal(t, []string{"a", "missing"}, ids(FilterByPurchaseDate(orders, DateRange{})))
}

func TestFilterByPurchaseDate_HalfOpen(t *testing.T) {
	orders := []model.Order{purchasedAt("a", "2024-01-01"), purchasedAt("b", "2024-06-01"), {OrderID: "missing"}}
	assert.Equal(t, []string{"b"}, ids(FilterByPurchaseDate(orders, mustRange(t, "2024-03-01", ""))))
	assert.Equal(t, []string{"a"}, ids(FilterByPurchaseDate(orders, mustRange(t, "", "2024-03-01"))))
}

func TestFilterByPurchaseDate_InvertedRangeIsEmpty(t *testing.T) {
	orders := []model.Order{purchasedAt("a", "2024-01-15")}
	r := mustRange(t, "2024-02-01", "2024-01-01")
	assert.True(t, r.Inverted())

	got := FilterByPurchaseDate(orders, r)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDateRange_UsesDatePartOfBounds(t *testing.T) {
	start := time.Date(2024, 1, 10, 18, 0, 0, 0, time.UTC)
	r := DateRange{Start: &start, End: &start}
	assert.True(t, r.Contains(ParseTimestamp("2024-01-10 01:00:00")))
	assert.False(t, r.Contains(ParseTimestamp("2024-01-11 00:00:00")))
}

func TestFilterPayments(t *testing.T) {
	payments := []model.Payment{
		{OrderID: "1", PaymentType: "credit_card"},
		{OrderID: "2", PaymentType: "boleto"},
		{OrderID: "3", PaymentType: "Credit_Card"},
	}
	assert.Len(t, FilterPayments(payments, AllPaymentTypes), 3)
	assert.Len(t, FilterPayments(payments, ""), 3)
	assert.Len(t, FilterPayments(payments, "all"), 3)

	got := FilterPayments(payments, "credit_card")
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].OrderID)
	assert.Equal(t, "3", got[1].OrderID)

	assert.Empty(t, FilterPayments(payments, "voucher"))
}

func TestFilterByPurchaseDate_UsesSourceZoneDate(t *testing.T) {
	orders := []model.Order{
		purchasedAt("late-evening", "2024-01-31T22:00:00-03:00"),
		purchasedAt("early-morning", "2024-02-01T01:00:00+05:00"),
	}
	jan := mustRange(t, "2024-01-01", "2024-01-31")
	assert.Equal(t, []string{"late-evening"}, ids(FilterByPurchaseDate(orders, jan)))

	feb := mustRange(t, "2024-02-01", "2024-02-29")
	assert.Equal(t, []string{"early-morning"}, ids(FilterByPurchaseDate(orders, feb)))
}
