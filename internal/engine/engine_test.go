package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"deliverylens/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func fixtureBundle() dataset.Bundle {
	l := dataset.DefaultLayout()
	return dataset.Bundle{
		Orders: dataset.Table{
			Name:    dataset.Orders,
			Columns: l.Orders.Required(),
			Rows: [][]string{
				{"1", "2024-01-01 09:00:00", "2024-01-05 09:00:00", "2024-01-10 00:00:00"},
				{"2", "2024-01-02 09:00:00", "2024-01-15 09:00:00", "2024-01-10 00:00:00"},
				{"3", "2024-02-10 09:00:00", "", "2024-02-20 00:00:00"},
				{"4", "2024-03-01T08:00:00Z", "2024-03-20T08:00:00Z", "2024-03-10T00:00:00Z"},
			},
		},
		Payments: dataset.Table{
			Name:    dataset.Payments,
			Columns: l.Payments.Required(),
			Rows: [][]string{
				{"1", "credit", "100"},
				{"2", "credit", "50"},
				{"3", "voucher", "20"},
			},
		},
		Reviews: dataset.Table{
			Name:    dataset.Reviews,
			Columns: []string{"order_id", "review_score", "review_comment_message"},
			Rows: [][]string{
				{"1", "5", "great"},
				{"2", "2", ""},
				{"4", "1", "late"},
				{"9", "4", ""},
			},
		},
	}
}

func newTestEngine(t *testing.T, mutate func(*Options)) *Engine {
	opts := DefaultOptions()
	opts.OutlierQuantile = 0
	if mutate != nil {
		mutate(&opts)
	}
	e := New(opts, zaptest.NewLogger(t))
	e.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	return e
}

func TestRun_FullPipeline(t *testing.T) {
	rep, err := newTestEngine(t, nil).Run(context.Background(), fixtureBundle())
	require.NoError(t, err)

	assert.Equal(t, "-inf..+inf", rep.DateRange)
	assert.Equal(t, Counts{
		OrdersLoaded:     4,
		OrdersInRange:    4,
		EligibleOrders:   3,
		LateOrders:       2,
		PaymentsLoaded:   3,
		PaymentsSelected: 3,
		ReviewsLoaded:    4,
		ReviewsScored:    4,
		JoinedPairs:      3,
	}, rep.Counts)

	require.True(t, rep.OnTimeRate.Defined)
	assert.InDelta(t, 100.0/3, rep.OnTimeRate.Value, 1e-9)
	require.True(t, rep.AverageDeliveryDays.Defined)
	assert.InDelta(t, (4.0+13+19)/3, rep.AverageDeliveryDays.Value, 1e-9)
	require.True(t, rep.AverageReviewScore.Defined)
	assert.InDelta(t, 3.0, rep.AverageReviewScore.Value, 1e-9)

	require.Len(t, rep.TopLateOrders, 2)
	assert.Equal(t, "4", rep.TopLateOrders[0].OrderID)
	assert.Equal(t, 11, rep.TopLateOrders[0].DaysLate)
	assert.Equal(t, "2", rep.TopLateOrders[1].OrderID)
	assert.Equal(t, 6, rep.TopLateOrders[1].DaysLate)

	assert.Equal(t, "credit", rep.MostPopularPayment)
	require.Len(t, rep.PaymentDistribution, 2)
	assert.Equal(t, 66.7, rep.PaymentDistribution[0].Percentage)

	assert.Len(t, rep.ScoreSummaries, 3)
	assert.Empty(t, rep.Notices)
}

func TestRun_DoesNotMutateInput(t *testing.T) {
	b := fixtureBundle()
	before := b.Orders.Clone()
	_, err := newTestEngine(t, nil).Run(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, before, b.Orders)
}

func TestRun_DateRangeAndPaymentFilter(t *testing.T) {
	e := newTestEngine(t, func(o *Options) {
		r, err := ParseDateRange("2024-01-01", "2024-01-31")
		require.NoError(t, err)
		o.DateRange = r
		o.PaymentType = "voucher"
		o.TopN = 1
	})
	rep, err := e.Run(context.Background(), fixtureBundle())
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Counts.OrdersInRange)
	assert.InDelta(t, 50.0, rep.OnTimeRate.Value, 1e-9)
	require.Len(t, rep.TopLateOrders, 1)
	assert.Equal(t, "2", rep.TopLateOrders[0].OrderID)

	assert.Equal(t, 1, rep.Counts.PaymentsSelected)
	require.Len(t, rep.PaymentDistribution, 1)
	assert.Equal(t, 100.0, rep.PaymentDistribution[0].Percentage)
}

func TestRun_InvertedRangeLeavesOrderAggregatesUndefined(t *testing.T) {
	e := newTestEngine(t, func(o *Options) {
		r, err := ParseDateRange("2024-12-31", "2024-01-01")
		require.NoError(t, err)
		o.DateRange = r
	})
	rep, err := e.Run(context.Background(), fixtureBundle())
	require.NoError(t, err)

	assert.False(t, rep.OnTimeRate.Defined)
	assert.False(t, rep.AverageDeliveryDays.Defined)
	assert.Empty(t, rep.TopLateOrders)
	kinds := map[string]string{}
	for _, n := range rep.Notices {
		kinds[n.Section] = n.Kind
	}
	assert.Equal(t, NoticeInsufficientData, kinds["on_time_rate"])
	assert.Equal(t, NoticeInsufficientData, kinds["average_delivery_days"])
	assert.True(t, rep.AverageReviewScore.Defined, "review scope all ignores the range")
}

func TestRun_DeficientDatasetSkipsOnlyItsSections(t *testing.T) {
	b := fixtureBundle()
	b.Payments = dataset.Table{Name: dataset.Payments, Columns: []string{"order_id"}, Rows: [][]string{{"1"}}}
	b.Reviews.Rows = nil

	rep, err := newTestEngine(t, nil).Run(context.Background(), b)
	require.NoError(t, err)

	assert.True(t, rep.OnTimeRate.Defined)
	assert.Empty(t, rep.PaymentDistribution)
	assert.Empty(t, rep.MostPopularPayment)
	assert.False(t, rep.AverageReviewScore.Defined)
	assert.Empty(t, rep.ScoreSummaries)

	require.Len(t, rep.Notices, 2)
	assert.Equal(t, Notice{
		Section: dataset.Payments,
		Kind:    NoticeSchema,
		Message: "payments: missing required column(s): payment_type, payment_value",
	}, rep.Notices[0])
	assert.Equal(t, Notice{Section: dataset.Reviews, Kind: NoticeEmpty, Message: "reviews: empty"}, rep.Notices[1])
}

func TestRun_AllDatasetsDeficient(t *testing.T) {
	rep, err := newTestEngine(t, nil).Run(context.Background(), dataset.Bundle{})
	require.Error(t, err)

	var emptyErr *dataset.EmptyDatasetError
	assert.True(t, errors.As(err, &emptyErr))
	assert.Len(t, rep.Notices, 3)
}

func TestRun_FilteredReviewScope(t *testing.T) {
	e := newTestEngine(t, func(o *Options) {
		r, err := ParseDateRange("2024-01-01", "2024-01-01")
		require.NoError(t, err)
		o.DateRange = r
		o.ReviewScope = ReviewScopeFiltered
	})
	rep, err := e.Run(context.Background(), fixtureBundle())
	require.NoError(t, err)
	require.True(t, rep.AverageReviewScore.Defined)
	assert.Equal(t, 5.0, rep.AverageReviewScore.Value)
	assert.Equal(t, 1, rep.Counts.ReviewsScored)

	b := fixtureBundle()
	b.Orders.Rows = nil
	rep, err = e.Run(context.Background(), b)
	require.NoError(t, err)
	assert.False(t, rep.AverageReviewScore.Defined)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestEngine(t, nil).Run(ctx, fixtureBundle())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseReviewScope(t *testing.T) {
	s, err := ParseReviewScope("")
	require.NoError(t, err)
	assert.Equal(t, ReviewScopeAll, s)
	s, err = ParseReviewScope(" Filtered ")
	require.NoError(t, err)
	assert.Equal(t, ReviewScopeFiltered, s)
	_, err = ParseReviewScope("recent")
	assert.Error(t, err)
}

func TestNew_AppliesDefaults(t *testing.T) {
	e := New(Options{}, nil)
	assert.Equal(t, 0, e.opts.TopN)
	assert.Equal(t, ReviewScopeAll, e.opts.ReviewScope)
	assert.Equal(t, AllPaymentTypes, e.opts.PaymentType)
}

func TestRun_TopNZeroListsNoLateOrders(t *testing.T) {
	rep, err := newTestEngine(t, func(o *Options) { o.TopN = 0 }).Run(context.Background(), fixtureBundle())
	require.NoError(t, err)
	assert.Equal(t, 0, rep.TopN)
	assert.Empty(t, rep.TopLateOrders)
	assert.Equal(t, 2, rep.Counts.LateOrders)
}
