package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// SchemaError reports required columns absent from a dataset.
type SchemaError struct {
	Dataset string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing required column(s): %s", e.Dataset, strings.Join(e.Missing, ", "))
}

// EmptyDatasetError reports a dataset with zero rows.
type EmptyDatasetError struct {
	Dataset string
}

func (e *EmptyDatasetError) Error() string {
	return fmt.Sprintf("%s: empty", e.Dataset)
}

// Validate checks that t carries every required column and at least one
// row. A table with neither header nor rows is reported as empty.
func Validate(t Table, required []string) error {
	if len(t.Columns) == 0 && len(t.Rows) == 0 {
		return &EmptyDatasetError{Dataset: t.Name}
	}
	var missing []string
	for _, col := range required {
		if _, ok := t.ColumnIndex(col); !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Dataset: t.Name, Missing: missing}
	}
	if len(t.Rows) == 0 {
		return &EmptyDatasetError{Dataset: t.Name}
	}
	return nil
}

// Validation is the per-dataset outcome of ValidateBundle. A nil field
// means that dataset may be used.
type Validation struct {
	Orders   error
	Payments error
	Reviews  error
}

// ValidateBundle validates the three tables independently so a deficient
// dataset does not block sections that do not depend on it.
func ValidateBundle(b Bundle, l Layout) Validation {
	return Validation{
		Orders:   Validate(named(b.Orders, Orders), l.Orders.Required()),
		Payments: Validate(named(b.Payments, Payments), l.Payments.Required()),
		Reviews:  Validate(named(b.Reviews, Reviews), l.Reviews.Required()),
	}
}

// AllFailed reports whether no dataset is usable.
func (v Validation) AllFailed() bool {
	return v.Orders != nil && v.Payments != nil && v.Reviews != nil
}

// Err joins every validation failure, or returns nil.
func (v Validation) Err() error {
	return errors.Join(v.Orders, v.Payments, v.Reviews)
}

func named(t Table, name string) Table {
	if t.Name == "" {
		t.Name = name
	}
	return t
}
