package engine

import (
	"errors"
	"math"
	"sort"

	"deliverylens/internal/model"
)

// ErrUndefinedAggregate is returned when an aggregate has no eligible
// input. Callers present it as insufficient data, never as zero.
var ErrUndefinedAggregate = errors.New("insufficient data")

// OnTimeRate returns the percentage of records delivered on or before the
// estimate.
func OnTimeRate(records []DeliveryRecord) (float64, error) {
	if len(records) == 0 {
		return 0, ErrUndefinedAggregate
	}
	onTime := 0
	for _, r := range records {
		if !r.IsLate {
			onTime++
		}
	}
	return float64(onTime) / float64(len(records)) * 100, nil
}

// AverageDeliveryDays returns the mean delivery_days over records that
// have one.
func AverageDeliveryDays(records []DeliveryRecord) (float64, error) {
	var sum, n int
	for _, r := range records {
		if r.DeliveryDays == nil {
			continue
		}
		sum += *r.DeliveryDays
		n++
	}
	if n == 0 {
		return 0, ErrUndefinedAggregate
	}
	return float64(sum) / float64(n), nil
}

// AverageReviewScore returns the mean score of the valid reviews.
func AverageReviewScore(reviews []model.Review) (float64, error) {
	var sum, n int
	for _, r := range reviews {
		if !r.Valid {
			continue
		}
		sum += r.ReviewScore
		n++
	}
	if n == 0 {
		return 0, ErrUndefinedAggregate
	}
	return float64(sum) / float64(n), nil
}

// TopLateOrders returns up to n late records, most days late first, ties
// by order id ascending.
func TopLateOrders(records []DeliveryRecord, n int) []DeliveryRecord {
	late := make([]DeliveryRecord, 0)
	if n <= 0 {
		return late
	}
	for _, r := range records {
		if r.IsLate {
			late = append(late, r)
		}
	}
	sort.SliceStable(late, func(i, j int) bool {
		if late[i].DaysLate != late[j].DaysLate {
			return late[i].DaysLate > late[j].DaysLate
		}
		return late[i].OrderID < late[j].OrderID
	})
	if len(late) > n {
		late = late[:n]
	}
	return late
}

// PaymentShare is one row of the payment method distribution.
type PaymentShare struct {
	PaymentType string  `json:"payment_type"`
	Count       int     `json:"count"`
	Percentage  float64 `json:"percentage"`
	TotalValue  float64 `json:"total_value"`
}

// PaymentDistribution counts payment rows per type, most used first and
// ties by type name. Percentages carry one decimal and are apportioned by
// largest remainder so they always sum to exactly 100.
func PaymentDistribution(payments []model.Payment) []PaymentShare {
	byType := make(map[string]*PaymentShare)
	for _, p := range payments {
		s, ok := byType[p.PaymentType]
		if !ok {
			s = &PaymentShare{PaymentType: p.PaymentType}
			byType[p.PaymentType] = s
		}
		s.Count++
		if p.Valid {
			s.TotalValue += p.PaymentValue
		}
	}

	out := make([]PaymentShare, 0, len(byType))
	for _, s := range byType {
		s.TotalValue = round(s.TotalValue, 2)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].PaymentType < out[j].PaymentType
	})
	apportionTenths(out, len(payments))
	return out
}

func apportionTenths(shares []PaymentShare, total int) {
	if total == 0 {
		return
	}
	const whole = 1000
	tenths := make([]int, len(shares))
	remainders := make([]int, len(shares))
	assigned := 0
	for i, s := range shares {
		tenths[i] = s.Count * whole / total
		remainders[i] = s.Count * whole % total
		assigned += tenths[i]
	}
	order := make([]int, len(shares))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]] > remainders[order[b]]
	})
	for k := 0; k < whole-assigned; k++ {
		tenths[order[k%len(order)]]++
	}
	for i := range shares {
		shares[i].Percentage = float64(tenths[i]) / 10
	}
}

// MostPopularPayment returns the first entry of a distribution.
func MostPopularPayment(dist []PaymentShare) (PaymentShare, bool) {
	if len(dist) == 0 {
		return PaymentShare{}, false
	}
	return dist[0], true
}

// OrderTotals sums the valid payment values of each order.
func OrderTotals(payments []model.Payment) map[string]float64 {
	out := make(map[string]float64)
	for _, p := range payments {
		if !p.Valid {
			continue
		}
		out[p.OrderID] += p.PaymentValue
	}
	return out
}

// ScoreDelivery pairs a review score with the delivery time of its order.
type ScoreDelivery struct {
	ReviewScore  int `json:"review_score"`
	DeliveryDays int `json:"delivery_days"`
}

// DeliveryVsReview inner-joins delivery records with valid reviews on
// order id. Records without delivery_days do not join.
func DeliveryVsReview(records []DeliveryRecord, reviews []model.Review) []ScoreDelivery {
	scores := make(map[string][]int, len(reviews))
	for _, r := range reviews {
		if r.Valid {
			scores[r.OrderID] = append(scores[r.OrderID], r.ReviewScore)
		}
	}
	out := make([]ScoreDelivery, 0)
	for _, rec := range records {
		if rec.DeliveryDays == nil {
			continue
		}
		for _, s := range scores[rec.OrderID] {
			out = append(out, ScoreDelivery{ReviewScore: s, DeliveryDays: *rec.DeliveryDays})
		}
	}
	return out
}

// TrimOutliers drops pairs whose delivery time exceeds the given quantile
// of all delivery times. A quantile outside (0,1) keeps everything.
func TrimOutliers(pairs []ScoreDelivery, quantile float64) []ScoreDelivery {
	if quantile <= 0 || quantile >= 1 || len(pairs) == 0 {
		return append([]ScoreDelivery(nil), pairs...)
	}
	days := make([]float64, len(pairs))
	for i, p := range pairs {
		days[i] = float64(p.DeliveryDays)
	}
	sort.Float64s(days)
	limit := percentile(days, quantile*100)
	out := make([]ScoreDelivery, 0, len(pairs))
	for _, p := range pairs {
		if float64(p.DeliveryDays) <= limit {
			out = append(out, p)
		}
	}
	return out
}

// ScoreSummary is the box-plot summary of delivery days for one score.
type ScoreSummary struct {
	ReviewScore int     `json:"review_score"`
	Count       int     `json:"count"`
	Min         float64 `json:"min"`
	Q1          float64 `json:"q1"`
	Median      float64 `json:"median"`
	Q3          float64 `json:"q3"`
	Max         float64 `json:"max"`
}

// SummarizeByScore groups pairs by review score, ascending.
func SummarizeByScore(pairs []ScoreDelivery) []ScoreSummary {
	groups := make(map[int][]float64)
	for _, p := range pairs {
		groups[p.ReviewScore] = append(groups[p.ReviewScore], float64(p.DeliveryDays))
	}
	out := make([]ScoreSummary, 0, len(groups))
	for score, days := range groups {
		sort.Float64s(days)
		out = append(out, ScoreSummary{
			ReviewScore: score,
			Count:       len(days),
			Min:         days[0],
			Q1:          percentile(days, 25),
			Median:      percentile(days, 50),
			Q3:          percentile(days, 75),
			Max:         days[len(days)-1],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReviewScore < out[j].ReviewScore })
	return out
}

// percentile interpolates linearly over sorted values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 || p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := (p / 100) * float64(len(sorted)-1)
	lower := int(rank)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[lower]
	}
	weight := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}

func round(value float64, places int) float64 {
	factor := math.Pow10(places)
	return math.Round(value*factor) / factor
}
