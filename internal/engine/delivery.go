package engine

import (
	"time"

	"deliverylens/internal/model"
)

const day = 24 * time.Hour

// DeliveryRecord carries the derived delivery fields of one eligible order.
// DeliveryDays is nil when the purchase time is missing.
type DeliveryRecord struct {
	OrderID      string `json:"order_id"`
	DeliveryDays *int   `json:"delivery_days"`
	IsLate       bool   `json:"is_late"`
	DaysLate     int    `json:"days_late"`
}

// ComputeDelivery derives delivery metrics for every order that has both a
// delivered and an estimated delivery time. Other orders are left out so
// they never count toward delivery aggregates.
func ComputeDelivery(orders []model.Order) []DeliveryRecord {
	out := make([]DeliveryRecord, 0, len(orders))
	for _, o := range orders {
		if !o.DeliveredTime.Valid || !o.EstimatedDeliveryTime.Valid {
			continue
		}
		rec := DeliveryRecord{OrderID: o.OrderID}
		if o.PurchaseTime.Valid {
			// negative spans are kept to surface inconsistent source data
			d := floorDays(o.DeliveredTime.Time.Sub(o.PurchaseTime.Time))
			rec.DeliveryDays = &d
		}
		if late := o.DeliveredTime.Time.Sub(o.EstimatedDeliveryTime.Time); late > 0 {
			rec.IsLate = true
			rec.DaysLate = ceilDays(late)
		}
		out = append(out, rec)
	}
	return out
}

// floorDays counts whole days, rounding toward negative infinity.
func floorDays(d time.Duration) int {
	n := int(d / day)
	if d%day < 0 {
		n--
	}
	return n
}

// ceilDays counts started days, so any positive span is at least one.
func ceilDays(d time.Duration) int {
	n := int(d / day)
	if d%day > 0 {
		n++
	}
	return n
}
