package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"deliverylens/internal/dataset"
	"deliverylens/internal/logger"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DefaultTables are the table names used when none are configured.
func DefaultTables() Names {
	return Names{
		Orders:   "orders",
		Payments: "order_payments",
		Reviews:  "order_reviews",
	}
}

// OpenSQL opens a gorm connection. driver is "postgres" or "sqlite".
func OpenSQL(driver, dsn string, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.NewGormLogger(log)})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	return db, nil
}

// SQLSource reads every column of three tables with SELECT *.
type SQLSource struct {
	db     *gorm.DB
	tables Names
	log    *zap.Logger
}

func NewSQLSource(db *gorm.DB, tables Names, log *zap.Logger) *SQLSource {
	if log == nil {
		log = zap.NewNop()
	}
	d := DefaultTables()
	if tables.Orders == "" {
		tables.Orders = d.Orders
	}
	if tables.Payments == "" {
		tables.Payments = d.Payments
	}
	if tables.Reviews == "" {
		tables.Reviews = d.Reviews
	}
	return &SQLSource{db: db, tables: tables, log: log.Named("sql")}
}

func (s *SQLSource) Load(ctx context.Context) (dataset.Bundle, error) {
	var b dataset.Bundle
	err := s.tables.each(func(name, table string) error {
		t, err := s.readTable(ctx, name, table)
		if err != nil {
			return fmt.Errorf("sql source: %s: %w", name, err)
		}
		s.log.Debug("table loaded", zap.String("dataset", name), zap.String("table", table), zap.Int("rows", t.Len()))
		assign(&b, t)
		return nil
	})
	return b, err
}

func (s *SQLSource) readTable(ctx context.Context, name, table string) (dataset.Table, error) {
	rows, err := s.db.WithContext(ctx).Table(table).Rows()
	if err != nil {
		return dataset.Table{}, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return dataset.Table{}, err
	}
	t := dataset.Table{Name: name, Columns: make([]string, len(cols)), Rows: [][]string{}}
	for i, c := range cols {
		t.Columns[i] = dataset.NormalizeColumn(c)
	}

	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return dataset.Table{}, err
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			row[i] = cellText(v)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, rows.Err()
}

// cellText renders a driver value the way the CSV export would.
func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
