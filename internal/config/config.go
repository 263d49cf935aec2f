package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"deliverylens/internal/dataset"
	"deliverylens/internal/engine"
	"deliverylens/internal/source"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Source kinds.
const (
	SourceCSV    = "csv"
	SourceSQL    = "sql"
	SourceKafka  = "kafka"
	SourcePebble = "pebble"
)

// Export sinks.
const (
	SinkFile  = "file"
	SinkKafka = "kafka"
)

type Config struct {
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
	MetricsAddr string `mapstructure:"metrics_addr"`
	Output      string `mapstructure:"output"`

	Source   SourceConfig   `mapstructure:"source"`
	Layout   dataset.Layout `mapstructure:"layout"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Export   ExportConfig   `mapstructure:"export"`
}

type SourceConfig struct {
	Kind           string        `mapstructure:"kind"`
	CSVDir         string        `mapstructure:"csv_dir"`
	Files          source.Names  `mapstructure:"files"`
	SQLDriver      string        `mapstructure:"sql_driver"`
	SQLDSN         string        `mapstructure:"sql_dsn"`
	Tables         source.Names  `mapstructure:"tables"`
	KafkaBootstrap string        `mapstructure:"kafka_bootstrap"`
	Topics         source.Names  `mapstructure:"topics"`
	KafkaIdle      time.Duration `mapstructure:"kafka_idle"`
	PebbleDir      string        `mapstructure:"pebble_dir"`
}

type AnalysisConfig struct {
	Start           string  `mapstructure:"start"`
	End             string  `mapstructure:"end"`
	PaymentType     string  `mapstructure:"payment_type"`
	TopN            int     `mapstructure:"top_n"`
	ReviewScope     string  `mapstructure:"review_scope"`
	OutlierQuantile float64 `mapstructure:"outlier_quantile"`
}

type ExportConfig struct {
	Sinks          []string `mapstructure:"sinks"`
	Dir            string   `mapstructure:"dir"`
	KafkaBootstrap string   `mapstructure:"kafka_bootstrap"`
	KafkaTopic     string   `mapstructure:"kafka_topic"`
}

// Load reads .env, then an optional YAML file, then DELIVERYLENS_* env
// vars. path selects an explicit file; empty searches for
// deliverylens.yaml in the working directory and /etc/deliverylens.
// The result is not validated; callers apply their overrides first and
// then call Validate.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("deliverylens")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/deliverylens")
	}
	v.SetEnvPrefix("DELIVERYLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("output", "text")

	files, tables, topics := source.DefaultFiles(), source.DefaultTables(), source.DefaultTopics()
	v.SetDefault("source.kind", SourceCSV)
	v.SetDefault("source.csv_dir", "./data")
	v.SetDefault("source.files.orders", files.Orders)
	v.SetDefault("source.files.payments", files.Payments)
	v.SetDefault("source.files.reviews", files.Reviews)
	v.SetDefault("source.sql_driver", "postgres")
	v.SetDefault("source.sql_dsn", "")
	v.SetDefault("source.tables.orders", tables.Orders)
	v.SetDefault("source.tables.payments", tables.Payments)
	v.SetDefault("source.tables.reviews", tables.Reviews)
	v.SetDefault("source.kafka_bootstrap", "localhost:9092")
	v.SetDefault("source.topics.orders", topics.Orders)
	v.SetDefault("source.topics.payments", topics.Payments)
	v.SetDefault("source.topics.reviews", topics.Reviews)
	v.SetDefault("source.kafka_idle", "5s")
	v.SetDefault("source.pebble_dir", "./data/pebble")

	l := dataset.DefaultLayout()
	v.SetDefault("layout.orders.order_id", l.Orders.OrderID)
	v.SetDefault("layout.orders.purchase_time", l.Orders.PurchaseTime)
	v.SetDefault("layout.orders.delivered_time", l.Orders.DeliveredTime)
	v.SetDefault("layout.orders.estimated_delivery_time", l.Orders.EstimatedDeliveryTime)
	v.SetDefault("layout.payments.order_id", l.Payments.OrderID)
	v.SetDefault("layout.payments.payment_type", l.Payments.PaymentType)
	v.SetDefault("layout.payments.payment_value", l.Payments.PaymentValue)
	v.SetDefault("layout.reviews.order_id", l.Reviews.OrderID)
	v.SetDefault("layout.reviews.review_score", l.Reviews.ReviewScore)
	v.SetDefault("layout.reviews.review_comment", l.Reviews.ReviewComment)

	d := engine.DefaultOptions()
	v.SetDefault("analysis.start", "")
	v.SetDefault("analysis.end", "")
	v.SetDefault("analysis.payment_type", d.PaymentType)
	v.SetDefault("analysis.top_n", d.TopN)
	v.SetDefault("analysis.review_scope", string(d.ReviewScope))
	v.SetDefault("analysis.outlier_quantile", d.OutlierQuantile)

	v.SetDefault("export.sinks", []string{})
	v.SetDefault("export.dir", "./reports")
	v.SetDefault("export.kafka_bootstrap", "")
	v.SetDefault("export.kafka_topic", "deliverylens.reports")
}

// Validate checks values the engine and adapters cannot recover from.
func (c Config) Validate() error {
	var errs []error
	switch c.Output {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("output must be text or json, got %q", c.Output))
	}
	switch c.Source.Kind {
	case SourceCSV, SourceSQL, SourceKafka, SourcePebble:
	default:
		errs = append(errs, fmt.Errorf("unknown source kind %q", c.Source.Kind))
	}
	if c.Source.Kind == SourceSQL && strings.TrimSpace(c.Source.SQLDSN) == "" {
		errs = append(errs, errors.New("source.sql_dsn is required for the sql source"))
	}
	if c.Analysis.TopN < 0 {
		errs = append(errs, fmt.Errorf("analysis.top_n must not be negative, got %d", c.Analysis.TopN))
	}
	if q := c.Analysis.OutlierQuantile; q < 0 || q >= 1 {
		errs = append(errs, fmt.Errorf("analysis.outlier_quantile must be in [0,1), got %v", q))
	}
	for _, s := range c.Export.Sinks {
		switch s {
		case SinkFile:
		case SinkKafka:
			if c.Export.KafkaBootstrap == "" || c.Export.KafkaTopic == "" {
				errs = append(errs, errors.New("export.kafka_bootstrap and export.kafka_topic are required for the kafka sink"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown export sink %q", s))
		}
	}
	if _, err := c.EngineOptions(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// EngineOptions converts the analysis section into engine options.
func (c Config) EngineOptions() (engine.Options, error) {
	r, err := engine.ParseDateRange(c.Analysis.Start, c.Analysis.End)
	if err != nil {
		return engine.Options{}, fmt.Errorf("analysis date range: %w", err)
	}
	scope, err := engine.ParseReviewScope(c.Analysis.ReviewScope)
	if err != nil {
		return engine.Options{}, fmt.Errorf("analysis.review_scope: %w", err)
	}
	return engine.Options{
		Layout:          c.Layout,
		DateRange:       r,
		PaymentType:     c.Analysis.PaymentType,
		TopN:            c.Analysis.TopN,
		ReviewScope:     scope,
		OutlierQuantile: c.Analysis.OutlierQuantile,
	}, nil
}
