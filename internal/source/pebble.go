package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"deliverylens/internal/dataset"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"
)

// PebbleStore keeps tables in a local Pebble database. A table named n
// stores its header under "n#columns" and its rows under "n/<seq>" as
// JSON string arrays, so a prefix scan returns rows in insertion order.
type PebbleStore struct {
	db  *pebble.DB
	log *zap.Logger
}

func NewPebbleStore(dir string, log *zap.Logger) (*PebbleStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts := &pebble.Options{
		MemTableSize:             64 << 20,
		MaxConcurrentCompactions: func() int { return 2 },
		L0CompactionThreshold:    4,
		L0StopWritesThreshold:    8,
		WALBytesPerSync:          1 << 20,
	}
	db, err := pebble.Open(filepath.Clean(dir), opts)
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleStore{db: db, log: log.Named("pebble")}, nil
}

func (p *PebbleStore) Close() error { return p.db.Close() }

func columnsKey(name string) []byte { return []byte(name + "#columns") }

func rowKey(name string, seq int) []byte { return []byte(fmt.Sprintf("%s/%012d", name, seq)) }

// rowBounds covers every "name/..." key: '0' sorts right after '/'.
func rowBounds(name string) ([]byte, []byte) { return []byte(name + "/"), []byte(name + "0") }

// Write replaces the stored copy of t atomically.
func (p *PebbleStore) Write(t dataset.Table) error {
	if t.Name == "" {
		return errors.New("pebble write: table has no name")
	}
	wb := p.db.NewBatch()
	defer wb.Close()

	lo, hi := rowBounds(t.Name)
	if err := wb.DeleteRange(lo, hi, nil); err != nil {
		return fmt.Errorf("pebble write %s: %w", t.Name, err)
	}
	header, err := json.Marshal(t.Columns)
	if err != nil {
		return fmt.Errorf("pebble write %s: %w", t.Name, err)
	}
	if err := wb.Set(columnsKey(t.Name), header, nil); err != nil {
		return fmt.Errorf("pebble write %s: %w", t.Name, err)
	}
	for i, row := range t.Rows {
		b, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("pebble write %s row %d: %w", t.Name, i, err)
		}
		if err := wb.Set(rowKey(t.Name, i), b, nil); err != nil {
			return fmt.Errorf("pebble write %s row %d: %w", t.Name, i, err)
		}
	}
	if err := wb.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("pebble commit %s: %w", t.Name, err)
	}
	p.log.Debug("table stored", zap.String("dataset", t.Name), zap.Int("rows", t.Len()))
	return nil
}

// ReadTable returns the stored table, or a table with only its name set
// when nothing was written under that name.
func (p *PebbleStore) ReadTable(name string) (dataset.Table, error) {
	t := dataset.Table{Name: name}
	v, closer, err := p.db.Get(columnsKey(name))
	if errors.Is(err, pebble.ErrNotFound) {
		return t, nil
	}
	if err != nil {
		return dataset.Table{}, fmt.Errorf("pebble read %s: %w", name, err)
	}
	err = json.Unmarshal(v, &t.Columns)
	_ = closer.Close()
	if err != nil {
		return dataset.Table{}, fmt.Errorf("pebble read %s header: %w", name, err)
	}

	lo, hi := rowBounds(name)
	it, err := p.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return dataset.Table{}, fmt.Errorf("pebble iter %s: %w", name, err)
	}
	defer it.Close()
	t.Rows = [][]string{}
	for it.First(); it.Valid(); it.Next() {
		var row []string
		if err := json.Unmarshal(it.Value(), &row); err != nil {
			return dataset.Table{}, fmt.Errorf("pebble read %s %s: %w", name, it.Key(), err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, it.Error()
}

// Load reads the orders, payments and reviews tables.
func (p *PebbleStore) Load(ctx context.Context) (dataset.Bundle, error) {
	var b dataset.Bundle
	for _, name := range []string{dataset.Orders, dataset.Payments, dataset.Reviews} {
		if err := ctx.Err(); err != nil {
			return b, err
		}
		t, err := p.ReadTable(name)
		if err != nil {
			return b, err
		}
		assign(&b, t)
	}
	return b, nil
}
