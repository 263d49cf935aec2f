package engine

import (
	"math"
	"strconv"
	"strings"

	"deliverylens/internal/dataset"
	"deliverylens/internal/model"
)

// unknownPaymentType labels payment rows with a blank type.
const unknownPaymentType = "not_defined"

// DecodeOrders builds typed orders from a validated orders table.
func DecodeOrders(t dataset.Table, cols dataset.OrderColumns) []model.Order {
	id := columnOf(t, cols.OrderID)
	purchase := columnOf(t, cols.PurchaseTime)
	delivered := columnOf(t, cols.DeliveredTime)
	estimated := columnOf(t, cols.EstimatedDeliveryTime)

	out := make([]model.Order, 0, t.Len())
	for i := range t.Rows {
		out = append(out, model.Order{
			OrderID:               t.Cell(i, id),
			PurchaseTime:          ParseTimestamp(t.Cell(i, purchase)),
			DeliveredTime:         ParseTimestamp(t.Cell(i, delivered)),
			EstimatedDeliveryTime: ParseTimestamp(t.Cell(i, estimated)),
		})
	}
	return out
}

// DecodePayments builds typed payments. Unparseable or negative values
// keep the row but mark it invalid.
func DecodePayments(t dataset.Table, cols dataset.PaymentColumns) []model.Payment {
	id := columnOf(t, cols.OrderID)
	typ := columnOf(t, cols.PaymentType)
	val := columnOf(t, cols.PaymentValue)

	out := make([]model.Payment, 0, t.Len())
	for i := range t.Rows {
		p := model.Payment{
			OrderID:     t.Cell(i, id),
			PaymentType: t.Cell(i, typ),
		}
		if p.PaymentType == "" {
			p.PaymentType = unknownPaymentType
		}
		if v, err := strconv.ParseFloat(t.Cell(i, val), 64); err == nil && v >= 0 && !math.IsInf(v, 0) {
			p.PaymentValue = v
			p.Valid = true
		}
		out = append(out, p)
	}
	return out
}

// DecodeReviews builds typed reviews. Scores outside [1,5] or not integral
// mark the row invalid. The comment column is optional.
func DecodeReviews(t dataset.Table, cols dataset.ReviewColumns) []model.Review {
	id := columnOf(t, cols.OrderID)
	score := columnOf(t, cols.ReviewScore)
	comment := columnOf(t, cols.ReviewComment)

	out := make([]model.Review, 0, t.Len())
	for i := range t.Rows {
		r := model.Review{
			OrderID:       t.Cell(i, id),
			ReviewComment: t.Cell(i, comment),
		}
		if s, ok := parseScore(t.Cell(i, score)); ok {
			r.ReviewScore = s
			r.Valid = true
		}
		out = append(out, r)
	}
	return out
}

func parseScore(value string) (int, bool) {
	value = strings.TrimSpace(value)
	if n, err := strconv.Atoi(value); err == nil {
		return n, n >= 1 && n <= 5
	}
	// Float-typed exports write scores as "4.0".
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, false
	}
	n := int(f)
	return n, n >= 1 && n <= 5
}

func columnOf(t dataset.Table, name string) int {
	if name == "" {
		return -1
	}
	idx, _ := t.ColumnIndex(name)
	return idx
}
