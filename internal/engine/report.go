package engine

import (
	"errors"
	"time"

	"deliverylens/internal/dataset"
)

// Notice kinds.
const (
	NoticeSchema           = "schema"
	NoticeEmpty            = "empty"
	NoticeInsufficientData = "insufficient_data"
)

// Notice explains why a report section was skipped or left undefined.
type Notice struct {
	Section string `json:"section"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Metric is a scalar aggregate that may be undefined.
type Metric struct {
	Value   float64 `json:"value"`
	Defined bool    `json:"defined"`
}

func metricOf(v float64, err error) Metric {
	if err != nil {
		return Metric{}
	}
	return Metric{Value: v, Defined: true}
}

// Counts tracks how many rows flowed through each stage.
type Counts struct {
	OrdersLoaded     int `json:"orders_loaded"`
	OrdersInRange    int `json:"orders_in_range"`
	EligibleOrders   int `json:"eligible_orders"`
	LateOrders       int `json:"late_orders"`
	PaymentsLoaded   int `json:"payments_loaded"`
	PaymentsSelected int `json:"payments_selected"`
	ReviewsLoaded    int `json:"reviews_loaded"`
	ReviewsScored    int `json:"reviews_scored"`
	JoinedPairs      int `json:"joined_pairs"`
}

// Report is the result of one engine run.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	DateRange   string    `json:"date_range"`
	PaymentType string    `json:"payment_type"`
	TopN        int       `json:"top_n"`
	ReviewScope string    `json:"review_scope"`

	Counts Counts `json:"counts"`

	OnTimeRate          Metric `json:"on_time_rate"`
	AverageDeliveryDays Metric `json:"average_delivery_days"`
	AverageReviewScore  Metric `json:"average_review_score"`

	TopLateOrders       []DeliveryRecord `json:"top_late_orders"`
	PaymentDistribution []PaymentShare   `json:"payment_distribution"`
	MostPopularPayment  string           `json:"most_popular_payment,omitempty"`
	DeliveryVsReview    []ScoreDelivery  `json:"delivery_vs_review"`
	ScoreSummaries      []ScoreSummary   `json:"score_summaries"`

	Notices []Notice `json:"notices,omitempty"`
}

func (r *Report) notice(section string, err error) {
	kind := NoticeInsufficientData
	var schemaErr *dataset.SchemaError
	var emptyErr *dataset.EmptyDatasetError
	switch {
	case errors.As(err, &schemaErr):
		kind = NoticeSchema
	case errors.As(err, &emptyErr):
		kind = NoticeEmpty
	}
	r.Notices = append(r.Notices, Notice{Section: section, Kind: kind, Message: err.Error()})
}
