package source

import (
	"context"
	"fmt"
	"path/filepath"

	"deliverylens/internal/dataset"

	"go.uber.org/zap"
)

// DefaultFiles are the Olist export file names.
func DefaultFiles() Names {
	return Names{
		Orders:   "orders_dataset.csv",
		Payments: "order_payments_dataset.csv",
		Reviews:  "order_reviews_dataset.csv",
	}
}

// CSVSource reads three CSV files from one directory.
type CSVSource struct {
	dir   string
	files Names
	log   *zap.Logger
}

func NewCSVSource(dir string, files Names, log *zap.Logger) *CSVSource {
	if log == nil {
		log = zap.NewNop()
	}
	d := DefaultFiles()
	if files.Orders == "" {
		files.Orders = d.Orders
	}
	if files.Payments == "" {
		files.Payments = d.Payments
	}
	if files.Reviews == "" {
		files.Reviews = d.Reviews
	}
	return &CSVSource{dir: dir, files: files, log: log.Named("csv")}
}

func (s *CSVSource) Load(ctx context.Context) (dataset.Bundle, error) {
	var b dataset.Bundle
	err := s.files.each(func(name, file string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(s.dir, file)
		t, err := dataset.ReadCSVFile(path, name)
		if err != nil {
			return fmt.Errorf("csv source: %w", err)
		}
		s.log.Debug("table loaded", zap.String("dataset", name), zap.String("path", path), zap.Int("rows", t.Len()))
		assign(&b, t)
		return nil
	})
	return b, err
}
