package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// EncodeRow renders one row as a JSON object whose keys follow the column
// order. Cells past the end of row encode as "".
func EncodeRow(columns []string, row []string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		var cell string
		if i < len(row) {
			cell = row[i]
		}
		v, err := json.Marshal(cell)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// DecodeRow reads a flat JSON object back into keys and text values, in
// document order. Numbers keep their literal text, null becomes "".
func DecodeRow(data []byte) ([]string, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("decode row: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, errors.New("decode row: not a JSON object")
	}
	var keys, values []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("decode row: %w", err)
		}
		key, _ := tok.(string)
		tok, err = dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("decode row %q: %w", key, err)
		}
		val, err := scalarText(tok)
		if err != nil {
			return nil, nil, fmt.Errorf("decode row %q: %w", key, err)
		}
		keys = append(keys, key)
		values = append(values, val)
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, fmt.Errorf("decode row: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, nil, errors.New("decode row: trailing data")
	}
	return keys, values, nil
}

func scalarText(tok json.Token) (string, error) {
	switch v := tok.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("nested value %v", v)
	}
}

// tableBuilder assembles a table from rows whose keys may differ. Columns
// appear in first-seen order.
type tableBuilder struct {
	name    string
	columns []string
	index   map[string]int
	rows    [][]string
}

func newTableBuilder(name string) *tableBuilder {
	return &tableBuilder{name: name, index: make(map[string]int)}
}

func (b *tableBuilder) add(keys, values []string) {
	row := make([]string, len(b.columns))
	for i, k := range keys {
		idx, ok := b.index[k]
		if !ok {
			idx = len(b.columns)
			b.index[k] = idx
			b.columns = append(b.columns, k)
		}
		for len(row) <= idx {
			row = append(row, "")
		}
		row[idx] = values[i]
	}
	b.rows = append(b.rows, row)
}
