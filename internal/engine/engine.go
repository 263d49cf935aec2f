package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"deliverylens/internal/dataset"
	"deliverylens/internal/model"

	"go.uber.org/zap"
)

// ReviewScope selects which reviews feed the average review score.
type ReviewScope string

const (
	// ReviewScopeAll averages every supplied review.
	ReviewScopeAll ReviewScope = "all"
	// ReviewScopeFiltered averages reviews of orders inside the date range.
	ReviewScopeFiltered ReviewScope = "filtered"
)

// ParseReviewScope accepts "all" or "filtered"; empty means all.
func ParseReviewScope(s string) (ReviewScope, error) {
	switch ReviewScope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ReviewScopeAll:
		return ReviewScopeAll, nil
	case ReviewScopeFiltered:
		return ReviewScopeFiltered, nil
	default:
		return "", fmt.Errorf("unknown review scope %q", s)
	}
}

// DefaultTopN is the length of the late order ranking in DefaultOptions.
const DefaultTopN = 10

// Options configures one engine run. TopN is used as given, so 0 lists no
// late orders; start from DefaultOptions for the usual ranking length.
type Options struct {
	Layout          dataset.Layout
	DateRange       DateRange
	PaymentType     string
	TopN            int
	ReviewScope     ReviewScope
	OutlierQuantile float64
}

// DefaultOptions returns an open date range over all payment types, the top
// 10 late orders, every review in the score average and the delivery vs
// review pairs trimmed at the 0.99 quantile.
func DefaultOptions() Options {
	return Options{
		Layout:          dataset.DefaultLayout(),
		PaymentType:     AllPaymentTypes,
		TopN:            DefaultTopN,
		ReviewScope:     ReviewScopeAll,
		OutlierQuantile: 0.99,
	}
}

// Engine runs the validate, normalize, filter, derive, aggregate pipeline.
// It holds no state between runs and never mutates its input.
type Engine struct {
	opts Options
	log  *zap.Logger
	now  func() time.Time
}

// New builds an engine. A nil logger disables logging.
func New(opts Options, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.ReviewScope == "" {
		opts.ReviewScope = ReviewScopeAll
	}
	if strings.TrimSpace(opts.PaymentType) == "" {
		opts.PaymentType = AllPaymentTypes
	}
	return &Engine{
		opts: opts,
		log:  log.Named("engine"),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Run computes a report over b. Sections whose dataset fails validation
// are skipped with a notice. The error is non-nil only when the context
// ends or no dataset is usable.
func (e *Engine) Run(ctx context.Context, b dataset.Bundle) (Report, error) {
	l := e.opts.Layout
	rep := Report{
		GeneratedAt:         e.now(),
		DateRange:           e.opts.DateRange.String(),
		PaymentType:         e.opts.PaymentType,
		TopN:                e.opts.TopN,
		ReviewScope:         string(e.opts.ReviewScope),
		TopLateOrders:       []DeliveryRecord{},
		PaymentDistribution: []PaymentShare{},
		DeliveryVsReview:    []ScoreDelivery{},
		ScoreSummaries:      []ScoreSummary{},
	}

	v := dataset.ValidateBundle(b, l)
	checks := []struct {
		section string
		err     error
	}{
		{dataset.Orders, v.Orders},
		{dataset.Payments, v.Payments},
		{dataset.Reviews, v.Reviews},
	}
	for _, c := range checks {
		if c.err != nil {
			e.log.Warn("dataset rejected", zap.String("dataset", c.section), zap.Error(c.err))
			rep.notice(c.section, c.err)
		}
	}
	if v.AllFailed() {
		return rep, fmt.Errorf("validate datasets: %w", v.Err())
	}

	var (
		inRange []model.Order
		records []DeliveryRecord
	)
	if v.Orders == nil {
		normalized := NormalizeDates(b.Orders, l.Orders.DateColumns()...)
		orders := DecodeOrders(normalized, l.Orders)
		inRange = FilterByPurchaseDate(orders, e.opts.DateRange)
		records = ComputeDelivery(inRange)

		rep.Counts.OrdersLoaded = len(orders)
		rep.Counts.OrdersInRange = len(inRange)
		rep.Counts.EligibleOrders = len(records)
		for _, r := range records {
			if r.IsLate {
				rep.Counts.LateOrders++
			}
		}

		rate, err := OnTimeRate(records)
		rep.OnTimeRate = metricOf(rate, err)
		if err != nil {
			rep.notice("on_time_rate", fmt.Errorf("on-time rate: %w", err))
		}
		avg, err := AverageDeliveryDays(records)
		rep.AverageDeliveryDays = metricOf(avg, err)
		if err != nil {
			rep.notice("average_delivery_days", fmt.Errorf("average delivery days: %w", err))
		}
		rep.TopLateOrders = TopLateOrders(records, e.opts.TopN)
	}
	if err := ctx.Err(); err != nil {
		return rep, err
	}

	if v.Payments == nil {
		payments := DecodePayments(b.Payments, l.Payments)
		selected := FilterPayments(payments, e.opts.PaymentType)
		rep.Counts.PaymentsLoaded = len(payments)
		rep.Counts.PaymentsSelected = len(selected)
		rep.PaymentDistribution = PaymentDistribution(selected)
		if top, ok := MostPopularPayment(rep.PaymentDistribution); ok {
			rep.MostPopularPayment = top.PaymentType
		}
	}
	if err := ctx.Err(); err != nil {
		return rep, err
	}

	if v.Reviews == nil {
		reviews := DecodeReviews(b.Reviews, l.Reviews)
		rep.Counts.ReviewsLoaded = len(reviews)
		scoped, err := e.scopeReviews(reviews, inRange, v.Orders)
		if err == nil {
			var avg float64
			avg, err = AverageReviewScore(scoped)
			rep.AverageReviewScore = metricOf(avg, err)
		}
		if err != nil {
			rep.notice("average_review_score", fmt.Errorf("average review score: %w", err))
		}
		for _, r := range scoped {
			if r.Valid {
				rep.Counts.ReviewsScored++
			}
		}

		if v.Orders == nil {
			pairs := TrimOutliers(DeliveryVsReview(records, reviews), e.opts.OutlierQuantile)
			rep.DeliveryVsReview = pairs
			rep.ScoreSummaries = SummarizeByScore(pairs)
			rep.Counts.JoinedPairs = len(pairs)
		}
	}

	e.log.Info("report computed",
		zap.String("date_range", rep.DateRange),
		zap.Int("orders_in_range", rep.Counts.OrdersInRange),
		zap.Int("eligible_orders", rep.Counts.EligibleOrders),
		zap.Int("late_orders", rep.Counts.LateOrders),
		zap.Int("payments_selected", rep.Counts.PaymentsSelected),
		zap.Int("notices", len(rep.Notices)),
	)
	return rep, ctx.Err()
}

func (e *Engine) scopeReviews(reviews []model.Review, inRange []model.Order, ordersErr error) ([]model.Review, error) {
	if e.opts.ReviewScope != ReviewScopeFiltered {
		return reviews, nil
	}
	if ordersErr != nil {
		return nil, fmt.Errorf("filtered scope needs orders: %w", ErrUndefinedAggregate)
	}
	ids := make(map[string]struct{}, len(inRange))
	for _, o := range inRange {
		ids[o.OrderID] = struct{}{}
	}
	out := make([]model.Review, 0, len(reviews))
	for _, r := range reviews {
		if _, ok := ids[r.OrderID]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}
