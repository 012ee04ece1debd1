// Package pipeline reads the car dataset, coerces the feature columns and drops incomplete rows.
package pipeline

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// TargetColumns are coerced to numbers and charted, in chart order.
var TargetColumns = []string{"highwaympg", "curbweight", "horsepower"}

var ErrDatasetNotFound = errors.New("dataset file not found")

// Row is one CSV record. Numeric values are filled in by cleaning rules.
type Row struct {
	// Index is the zero-based position in the file, header excluded.
	Index   int
	values  []string
	columns map[string]int
	numeric map[string]float64
}

// Raw returns the cell text for column.
func (r *Row) Raw(column string) (string, bool) {
	i, ok := r.columns[column]
	if !ok {
		return "", false
	}
	return r.values[i], true
}

// Number returns the coerced value for column.
func (r *Row) Number(column string) (float64, bool) {
	v, ok := r.numeric[column]
	return v, ok
}

func (r *Row) setNumeric(column string, v float64) {
	if r.numeric == nil {
		r.numeric = make(map[string]float64)
	}
	r.numeric[column] = v
}

type Options struct {
	// Encoding names the file charset (WHATWG label). Empty means UTF-8.
	Encoding string
	// Columns overrides TargetColumns.
	Columns []string
}

// Dataset is a loaded CSV plus its cleaned view.
type Dataset struct {
	Name    string
	Header  []string
	Records [][]string
	// Rows holds the records that survived cleaning, in file order.
	Rows    []*Row
	Present []string
	Missing []string
	Issues  []QualityIssue
	Stats   CleaningStats
}

// LoadDataset reads path and cleans the target columns that exist in it.
// A missing file yields an error wrapping ErrDatasetNotFound.
func LoadDataset(path string, opts Options) (*Dataset, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, path)
		}
		return nil, err
	}
	ds, err := Parse(bytes.NewReader(payload), opts)
	if err != nil {
		return nil, err
	}
	ds.Name = filepath.Base(path)
	return ds, nil
}

// Parse reads CSV from r. The first record is the header.
func Parse(r io.Reader, opts Options) (*Dataset, error) {
	decoded, err := decodeReader(r, opts.Encoding)
	if err != nil {
		return nil, err
	}
	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("no columns to parse from file")
	}
	if err != nil {
		return nil, err
	}
	header = normalizeHeader(header)
	index := make(map[string]int, len(header))
	for i, name := range header {
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var records [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("line %d: expected %d fields, saw %d", line, len(header), len(rec))
		}
		for len(rec) < len(header) {
			rec = append(rec, "")
		}
		records = append(records, rec)
	}

	columns := opts.Columns
	if len(columns) == 0 {
		columns = TargetColumns
	}
	ds := &Dataset{Header: header, Records: records}
	for _, col := range columns {
		if _, ok := index[col]; ok {
			ds.Present = append(ds.Present, col)
		} else {
			ds.Missing = append(ds.Missing, col)
		}
	}

	rows := make([]*Row, len(records))
	for i, rec := range records {
		rows[i] = &Row{Index: i, values: rec, columns: index}
	}
	cleaner := NewDataCleaner(ds.Present...)
	ds.Rows, ds.Issues = cleaner.Clean(rows)
	ds.Stats = cleaner.GetStats()
	return ds, nil
}

// Shape is the row and column count of the file as read, before incomplete rows are dropped.
func (ds *Dataset) Shape() (rows, cols int) {
	return len(ds.Records), len(ds.Header)
}

// CleanRowCount is the number of rows left after dropping incomplete ones.
func (ds *Dataset) CleanRowCount() int {
	return len(ds.Rows)
}

// Empty reports whether there is nothing left to chart.
func (ds *Dataset) Empty() bool {
	return ds == nil || len(ds.Header) == 0 || len(ds.Rows) == 0
}

// Head returns up to n records as read from the file.
func (ds *Dataset) Head(n int) [][]string {
	if n < 0 || n > len(ds.Records) {
		n = len(ds.Records)
	}
	return ds.Records[:n]
}

// HasColumn reports whether the header contains column.
func (ds *Dataset) HasColumn(column string) bool {
	for _, name := range ds.Header {
		if name == column {
			return true
		}
	}
	return false
}

// Series returns the cleaned values of column with their original row positions.
func (ds *Dataset) Series(column string) (index []float64, values []float64, ok bool) {
	if !ds.HasColumn(column) {
		return nil, nil, false
	}
	index = make([]float64, 0, len(ds.Rows))
	values = make([]float64, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		v, found := row.Number(column)
		if !found {
			if raw, present := row.Raw(column); present {
				v, found = ParseNumber(raw)
			}
			if !found {
				continue
			}
		}
		// infinities survive cleaning but have no place on a chart axis
		if math.IsInf(v, 0) {
			continue
		}
		index = append(index, float64(row.Index))
		values = append(values, v)
	}
	return index, values, true
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	copy(out, header)
	if len(out) > 0 {
		out[0] = strings.TrimPrefix(out[0], "\ufeff")
	}
	return out
}
