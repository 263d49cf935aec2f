package model

import (
	"encoding/json"
	"time"
)

// NullTime is a timestamp that may be missing. The zero value is the
// missing marker; it never stands in for a default date.
type NullTime struct {
	Time  time.Time
	Valid bool
}

// At returns a present timestamp. The zone of t is kept so calendar dates
// stay those of the source.
func At(t time.Time) NullTime {
	return NullTime{Time: t, Valid: true}
}

// MarshalJSON encodes a missing timestamp as null.
func (n NullTime) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Time)
}

// Order is one purchase, with date columns already normalized.
type Order struct {
	OrderID               string   `json:"orderId"`
	PurchaseTime          NullTime `json:"purchaseTime"`
	DeliveredTime         NullTime `json:"deliveredTime"`
	EstimatedDeliveryTime NullTime `json:"estimatedDeliveryTime"`
}

// Payment is one payment record. An order may have several.
// Valid is false when the source value did not parse or was negative.
type Payment struct {
	OrderID      string  `json:"orderId"`
	PaymentType  string  `json:"paymentType"`
	PaymentValue float64 `json:"paymentValue"`
	Valid        bool    `json:"valid"`
}

// Review is the customer review for an order.
// Valid is false when the score did not parse or falls outside [1,5].
type Review struct {
	OrderID       string `json:"orderId"`
	ReviewScore   int    `json:"reviewScore"`
	ReviewComment string `json:"reviewComment,omitempty"`
	Valid         bool   `json:"valid"`
}
