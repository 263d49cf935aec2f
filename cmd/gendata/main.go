package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"deliverylens/internal/dataset"
	"deliverylens/internal/engine"
	"deliverylens/internal/logger"
	"deliverylens/internal/model"
	"deliverylens/internal/source"

	"go.uber.org/zap"
)

type options struct {
	count     int
	seed      int64
	outDir    string
	pebbleDir string
	start     string
	days      int
}

func main() {
	var o options
	flag.IntVar(&o.count, "count", 1000, "number of orders to generate")
	flag.Int64Var(&o.seed, "seed", 0, "random seed (default: current time)")
	flag.StringVar(&o.outDir, "out", "./data", "output directory for the CSV files")
	flag.StringVar(&o.pebbleDir, "pebble", "", "also store the tables in this pebble directory")
	flag.StringVar(&o.start, "start", "2024-01-01", "first purchase date, YYYY-MM-DD")
	flag.IntVar(&o.days, "days", 180, "purchase dates spread over this many days")
	flag.Parse()

	log, err := logger.New(logger.Config{Service: "gendata"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(o, log); err != nil {
		log.Fatal("generation failed", zap.Error(err))
	}
}

func run(o options, log *zap.Logger) error {
	start, err := time.Parse(engine.DateLayout, o.start)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if o.seed == 0 {
		o.seed = time.Now().UnixNano()
	}
	b := generate(rand.New(rand.NewSource(o.seed)), o.count, start, o.days)

	if err := os.MkdirAll(o.outDir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	files := source.DefaultFiles()
	for _, f := range []struct {
		name string
		t    dataset.Table
	}{
		{files.Orders, b.Orders},
		{files.Payments, b.Payments},
		{files.Reviews, b.Reviews},
	} {
		if err := dataset.WriteCSVFile(filepath.Join(o.outDir, f.name), f.t); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}

	if o.pebbleDir != "" {
		st, err := source.NewPebbleStore(o.pebbleDir, log)
		if err != nil {
			return err
		}
		defer st.Close()
		for _, t := range []dataset.Table{b.Orders, b.Payments, b.Reviews} {
			if err := st.Write(t); err != nil {
				return err
			}
		}
	}

	log.Info("datasets generated",
		zap.Int64("seed", o.seed),
		zap.String("dir", o.outDir),
		zap.Int("orders", b.Orders.Len()),
		zap.Int("payments", b.Payments.Len()),
		zap.Int("reviews", b.Reviews.Len()),
	)
	return nil
}

var paymentTypes = []string{"credit_card", "credit_card", "credit_card", "boleto", "voucher", "debit_card"}

// generate builds Olist-shaped tables. About 3% of orders are never
// delivered, about 10% arrive after the estimate and about 90% are reviewed;
// late orders skew toward low scores.
func generate(rng *rand.Rand, count int, start time.Time, days int) dataset.Bundle {
	if days <= 0 {
		days = 1
	}
	l := dataset.DefaultLayout()
	b := dataset.Bundle{
		Orders:   dataset.Table{Name: dataset.Orders, Columns: l.Orders.Required()},
		Payments: dataset.Table{Name: dataset.Payments, Columns: l.Payments.Required()},
		Reviews: dataset.Table{
			Name:    dataset.Reviews,
			Columns: []string{l.Reviews.OrderID, l.Reviews.ReviewScore, l.Reviews.ReviewComment},
		},
	}

	for i := 0; i < count; i++ {
		id := fmt.Sprintf("o%06d", i+1)
		purchase := start.Add(time.Duration(rng.Int63n(int64(days) * 24 * int64(time.Hour))))
		estimated := purchase.Add(time.Duration(10+rng.Intn(20)) * 24 * time.Hour).Truncate(24 * time.Hour)

		delivered := ""
		late := false
		switch r := rng.Float64(); {
		case r < 0.03:
		case r < 0.13:
			late = true
			delivered = engine.FormatTimestamp(model.At(estimated.Add(time.Duration(1+rng.Intn(15*24)) * time.Hour)))
		default:
			span := estimated.Sub(purchase)
			delivered = engine.FormatTimestamp(model.At(purchase.Add(time.Duration(rng.Int63n(int64(span))))))
		}
		b.Orders.Rows = append(b.Orders.Rows, []string{
			id,
			engine.FormatTimestamp(model.At(purchase)),
			delivered,
			engine.FormatTimestamp(model.At(estimated)),
		})

		parts := 1 + rng.Intn(2)
		for p := 0; p < parts; p++ {
			value := 10 + rng.Float64()*490
			b.Payments.Rows = append(b.Payments.Rows, []string{
				id,
				paymentTypes[rng.Intn(len(paymentTypes))],
				strconv.FormatFloat(value, 'f', 2, 64),
			})
		}

		if rng.Float64() < 0.9 {
			score := 4 + rng.Intn(2)
			if late || delivered == "" {
				score = 1 + rng.Intn(3)
			}
			comment := ""
			if score <= 2 {
				comment = "pedido atrasado"
			}
			b.Reviews.Rows = append(b.Reviews.Rows, []string{id, strconv.Itoa(score), comment})
		}
	}
	return b
}
