package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"deliverylens/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestCSVSource_Load(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "orders_dataset.csv", "order_id,order_purchase_timestamp,order_delivered_customer_date,order_estimated_delivery_date\no1,2024-01-01 10:00:00,2024-01-05 10:00:00,2024-01-10 00:00:00\n")
	writeFile(t, dir, "order_payments_dataset.csv", "order_id,payment_type,payment_value\no1,credit_card,10.5\n")
	writeFile(t, dir, "r.csv", "order_id,review_score\no1,5\n")

	src := NewCSVSource(dir, Names{Reviews: "r.csv"}, nil)
	b, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, dataset.Orders, b.Orders.Name)
	assert.Equal(t, 1, b.Orders.Len())
	assert.Equal(t, "credit_card", b.Payments.Cell(0, 1))
	assert.Equal(t, dataset.Reviews, b.Reviews.Name)
	assert.Equal(t, []string{"order_id", "review_score"}, b.Reviews.Columns)
}

func TestCSVSource_MissingFile(t *testing.T) {
	_, err := NewCSVSource(t.TempDir(), Names{}, nil).Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCSVSource_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCSVSource(t.TempDir(), Names{}, nil).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
