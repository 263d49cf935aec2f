// Package source loads the three input tables from files, SQL databases,
// Kafka topics or a local Pebble store.
package source

import (
	"context"

	"deliverylens/internal/dataset"
)

// Source supplies one bundle per call. Implementations do not cache:
// each Load reads the backing store again.
type Source interface {
	Load(ctx context.Context) (dataset.Bundle, error)
}

// Names maps each dataset to its physical location: a file name, table
// name or topic depending on the source.
type Names struct {
	Orders   string `mapstructure:"orders"`
	Payments string `mapstructure:"payments"`
	Reviews  string `mapstructure:"reviews"`
}

// each visits the datasets in a fixed order.
func (n Names) each(fn func(dataset string, location string) error) error {
	for _, p := range [][2]string{
		{dataset.Orders, n.Orders},
		{dataset.Payments, n.Payments},
		{dataset.Reviews, n.Reviews},
	} {
		if err := fn(p[0], p[1]); err != nil {
			return err
		}
	}
	return nil
}

func assign(b *dataset.Bundle, t dataset.Table) {
	switch t.Name {
	case dataset.Orders:
		b.Orders = t
	case dataset.Payments:
		b.Payments = t
	case dataset.Reviews:
		b.Reviews = t
	}
}
