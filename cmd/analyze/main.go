package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"deliverylens/internal/config"
	"deliverylens/internal/engine"
	"deliverylens/internal/export"
	"deliverylens/internal/logger"
	"deliverylens/internal/metrics"
	"deliverylens/internal/source"

	"go.uber.org/zap"
)

type flags struct {
	configPath string
	runID      string
	set        map[string]string
}

func main() {
	f := readFlags()
	if err := run(f, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "analyze failed: %v\n", err)
		os.Exit(1)
	}
}

// overridable maps flag names to the config fields they replace.
var overridable = map[string]func(*config.Config, string) error{
	"source":       func(c *config.Config, v string) error { c.Source.Kind = v; return nil },
	"csv-dir":      func(c *config.Config, v string) error { c.Source.CSVDir = v; return nil },
	"pebble-dir":   func(c *config.Config, v string) error { c.Source.PebbleDir = v; return nil },
	"start":        func(c *config.Config, v string) error { c.Analysis.Start = v; return nil },
	"end":          func(c *config.Config, v string) error { c.Analysis.End = v; return nil },
	"payment-type": func(c *config.Config, v string) error { c.Analysis.PaymentType = v; return nil },
	"review-scope": func(c *config.Config, v string) error { c.Analysis.ReviewScope = v; return nil },
	"output":       func(c *config.Config, v string) error { c.Output = v; return nil },
	"metrics-addr": func(c *config.Config, v string) error { c.MetricsAddr = v; return nil },
	"log-level":    func(c *config.Config, v string) error { c.LogLevel = v; return nil },
	"export-dir":   func(c *config.Config, v string) error { c.Export.Dir = v; return nil },
	"sinks": func(c *config.Config, v string) error {
		c.Export.Sinks = splitList(v)
		return nil
	},
	"top-n": func(c *config.Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("top-n: %w", err)
		}
		c.Analysis.TopN = n
		return nil
	},
}

func readFlags() flags {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "config file (default: ./deliverylens.yaml if present)")
	flag.StringVar(&f.runID, "run-id", "", "run identifier (default: UTC timestamp)")
	flag.String("source", "", "input source: csv|sql|kafka|pebble")
	flag.String("csv-dir", "", "directory holding the CSV exports")
	flag.String("pebble-dir", "", "pebble data directory")
	flag.String("start", "", "first purchase date, YYYY-MM-DD")
	flag.String("end", "", "last purchase date, YYYY-MM-DD")
	flag.String("payment-type", "", "payment type filter, or All")
	flag.String("review-scope", "", "reviews averaged: all|filtered")
	flag.String("top-n", "", "number of late orders to list")
	flag.String("output", "", "report format: text|json")
	flag.String("metrics-addr", "", "serve /metrics on this address until interrupted")
	flag.String("log-level", "", "log level")
	flag.String("sinks", "", "comma-separated export sinks: file,kafka")
	flag.String("export-dir", "", "directory for the file sink")
	flag.Parse()

	f.set = make(map[string]string)
	flag.Visit(func(fl *flag.Flag) {
		if _, ok := overridable[fl.Name]; ok {
			f.set[fl.Name] = fl.Value.String()
		}
	})
	return f
}

func applyOverrides(cfg *config.Config, set map[string]string) error {
	for name, value := range set {
		if err := overridable[name](cfg, value); err != nil {
			return err
		}
	}
	return cfg.Validate()
}

func run(f flags, stdout io.Writer) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if err := applyOverrides(&cfg, f.set); err != nil {
		return err
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	runID := f.runID
	if runID == "" {
		runID = time.Now().UTC().Format("20060102T150405Z")
	}
	log = logger.WithRun(log, runID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mreg := metrics.NewRegistry()
	var srv *http.Server
	if cfg.MetricsAddr != "" {
		srv = serveMetrics(cfg.MetricsAddr, mreg, log)
		defer func() { _ = srv.Close() }()
	}

	src, closeSrc, err := openSource(cfg, log)
	if err != nil {
		return err
	}
	defer closeSrc()

	opts, err := cfg.EngineOptions()
	if err != nil {
		return err
	}

	start := time.Now()
	bundle, err := src.Load(ctx)
	if err != nil {
		mreg.ObserveFailure(time.Since(start))
		return fmt.Errorf("load %s source: %w", cfg.Source.Kind, err)
	}
	rep, err := engine.New(opts, log).Run(ctx, bundle)
	if err != nil {
		mreg.ObserveFailure(time.Since(start))
		return fmt.Errorf("run: %w", err)
	}
	mreg.ObserveReport(rep, time.Since(start))

	pub, closePub := openPublisher(cfg)
	defer closePub()
	if pub != nil {
		if err := pub.Publish(ctx, runID, rep); err != nil {
			mreg.Published.WithLabelValues("error").Inc()
			return fmt.Errorf("publish: %w", err)
		}
		mreg.Published.WithLabelValues("ok").Inc()
		log.Info("report published", zap.Strings("sinks", cfg.Export.Sinks))
	}

	if err := render(stdout, cfg.Output, rep); err != nil {
		return err
	}

	if srv != nil {
		log.Info("serving metrics until interrupted", zap.String("addr", cfg.MetricsAddr))
		<-ctx.Done()
	}
	return nil
}

func render(w io.Writer, format string, rep engine.Report) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	return printReport(w, rep)
}

func openSource(cfg config.Config, log *zap.Logger) (source.Source, func(), error) {
	noop := func() {}
	s := cfg.Source
	switch s.Kind {
	case config.SourceCSV:
		return source.NewCSVSource(s.CSVDir, s.Files, log), noop, nil
	case config.SourceSQL:
		db, err := source.OpenSQL(s.SQLDriver, s.SQLDSN, log)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return source.NewSQLSource(db, s.Tables, log), closeDB, nil
	case config.SourceKafka:
		return source.NewKafkaSource(s.KafkaBootstrap, s.Topics, s.KafkaIdle, log), noop, nil
	case config.SourcePebble:
		st, err := source.NewPebbleStore(s.PebbleDir, log)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown source kind %q", s.Kind)
	}
}

func openPublisher(cfg config.Config) (export.Publisher, func()) {
	var pubs []export.Publisher
	var closers []func() error
	for _, sink := range cfg.Export.Sinks {
		switch sink {
		case config.SinkFile:
			pubs = append(pubs, export.NewFilePublisher(cfg.Export.Dir))
		case config.SinkKafka:
			kp := export.NewKafkaPublisher(cfg.Export.KafkaBootstrap, cfg.Export.KafkaTopic)
			pubs = append(pubs, kp)
			closers = append(closers, kp.Close)
		}
	}
	closeAll := func() {
		for _, c := range closers {
			_ = c()
		}
	}
	switch len(pubs) {
	case 0:
		return nil, closeAll
	case 1:
		return pubs[0], closeAll
	default:
		return export.NewMultiPublisher(pubs...), closeAll
	}
}

func serveMetrics(addr string, mreg *metrics.Registry, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", mreg.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	})
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()
	return srv
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
