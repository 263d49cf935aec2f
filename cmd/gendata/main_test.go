package main

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"deliverylens/internal/dataset"
	"deliverylens/internal/engine"
	"deliverylens/internal/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestGenerate_Shape(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := generate(rand.New(rand.NewSource(42)), 500, start, 30)

	require.NoError(t, dataset.ValidateBundle(b, dataset.DefaultLayout()).Err())
	assert.Equal(t, 500, b.Orders.Len())
	assert.GreaterOrEqual(t, b.Payments.Len(), 500)
	assert.LessOrEqual(t, b.Payments.Len(), 1000)
	assert.Less(t, b.Reviews.Len(), 500)

	orders := engine.DecodeOrders(b.Orders, dataset.DefaultLayout().Orders)
	recs := engine.ComputeDelivery(orders)
	assert.Less(t, len(recs), 500, "some orders are never delivered")
	late := 0
	for _, r := range recs {
		if r.IsLate {
			late++
		}
		require.NotNil(t, r.DeliveryDays)
		assert.GreaterOrEqual(t, *r.DeliveryDays, 0)
	}
	assert.Greater(t, late, 0)

	end := start.AddDate(0, 0, 30)
	for _, o := range orders {
		assert.False(t, o.PurchaseTime.Time.Before(start))
		assert.True(t, o.PurchaseTime.Time.Before(end))
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := generate(rand.New(rand.NewSource(7)), 50, start, 10)
	b := generate(rand.New(rand.NewSource(7)), 50, start, 10)
	assert.Equal(t, a, b)
}

func TestRun_WritesCSVAndPebble(t *testing.T) {
	dir := t.TempDir()
	o := options{count: 20, seed: 1, outDir: filepath.Join(dir, "csv"), pebbleDir: filepath.Join(dir, "pebble"), start: "2024-02-01", days: 5}
	require.NoError(t, run(o, zaptest.NewLogger(t)))

	fromCSV, err := source.NewCSVSource(o.outDir, source.Names{}, nil).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, fromCSV.Orders.Len())

	st, err := source.NewPebbleStore(o.pebbleDir, nil)
	require.NoError(t, err)
	defer st.Close()
	fromPebble, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fromCSV.Orders.Rows, fromPebble.Orders.Rows)
	assert.Equal(t, fromCSV.Payments.Len(), fromPebble.Payments.Len())
}

func TestRun_BadStart(t *testing.T) {
	assert.Error(t, run(options{start: "soon", outDir: t.TempDir()}, zaptest.NewLogger(t)))
}
