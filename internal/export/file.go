package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"deliverylens/internal/dataset"
	"deliverylens/internal/engine"
)

const manifestFile = "manifest.latest.json"

// Manifest points at the most recent run written by a FilePublisher.
type Manifest struct {
	RunID                string `json:"runId"`
	Dir                  string `json:"dir"`
	CreatedAtEpochSecond int64  `json:"createdAt"`
}

// FilePublisher writes each run into baseDir/<runID>/ as report.json,
// late_orders.csv and payment_distribution.csv, then updates
// baseDir/manifest.latest.json.
type FilePublisher struct {
	baseDir string
	now     func() time.Time
}

func NewFilePublisher(baseDir string) *FilePublisher {
	return &FilePublisher{baseDir: baseDir, now: time.Now}
}

func (f *FilePublisher) Publish(ctx context.Context, runID string, rep engine.Report) error {
	if runID == "" || runID != filepath.Base(runID) {
		return fmt.Errorf("invalid run id %q", runID)
	}
	dir := filepath.Join(f.baseDir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, "report.json"), rep); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := dataset.WriteCSVFile(filepath.Join(dir, "late_orders.csv"), lateOrdersTable(rep)); err != nil {
		return fmt.Errorf("write late orders: %w", err)
	}
	if err := dataset.WriteCSVFile(filepath.Join(dir, "payment_distribution.csv"), paymentTable(rep)); err != nil {
		return fmt.Errorf("write payment distribution: %w", err)
	}
	m := Manifest{RunID: runID, Dir: dir, CreatedAtEpochSecond: f.now().UTC().Unix()}
	return writeJSON(filepath.Join(f.baseDir, manifestFile), m)
}

// ReadLatest returns the manifest of the last published run.
func (f *FilePublisher) ReadLatest() (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(f.baseDir, manifestFile))
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return m, nil
}

// ReadReport loads report.json of a published run.
func (f *FilePublisher) ReadReport(runID string) (engine.Report, error) {
	data, err := os.ReadFile(filepath.Join(f.baseDir, runID, "report.json"))
	if err != nil {
		return engine.Report{}, fmt.Errorf("read report: %w", err)
	}
	var rep engine.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return engine.Report{}, fmt.Errorf("unmarshal report: %w", err)
	}
	return rep, nil
}

func writeJSON(path string, v any) (err error) {
	// readers never observe a partially written file
	tmp := path + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_ = out.Close()
		return fmt.Errorf("encode: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Join(fmt.Errorf("rename: %w", err), os.Remove(tmp))
	}
	return nil
}

func lateOrdersTable(rep engine.Report) dataset.Table {
	t := dataset.Table{
		Name:    "late_orders",
		Columns: []string{"order_id", "delivery_days", "days_late"},
	}
	for _, r := range rep.TopLateOrders {
		days := ""
		if r.DeliveryDays != nil {
			days = strconv.Itoa(*r.DeliveryDays)
		}
		t.Rows = append(t.Rows, []string{r.OrderID, days, strconv.Itoa(r.DaysLate)})
	}
	return t
}

func paymentTable(rep engine.Report) dataset.Table {
	t := dataset.Table{
		Name:    "payment_distribution",
		Columns: []string{"payment_type", "count", "percentage", "total_value"},
	}
	for _, s := range rep.PaymentDistribution {
		t.Rows = append(t.Rows, []string{
			s.PaymentType,
			strconv.Itoa(s.Count),
			strconv.FormatFloat(s.Percentage, 'f', 1, 64),
			strconv.FormatFloat(s.TotalValue, 'f', 2, 64),
		})
	}
	return t
}
