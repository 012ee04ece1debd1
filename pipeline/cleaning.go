package pipeline

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CleaningRule inspects one row. Returning an error rejects the row.
type CleaningRule interface {
	Apply(*Row) (*Row, error)
	Name() string
}

// QualityIssue records why a row was rejected.
type QualityIssue struct {
	Type      string    `json:"type"`
	Column    string    `json:"column"`
	Row       int       `json:"row"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// DataCleaner runs every rule over every row and keeps the rows no rule rejected.
type DataCleaner struct {
	rules []CleaningRule

	stats     CleaningStats
	statsLock sync.RWMutex
}

type CleaningStats struct {
	TotalProcessed int64            `json:"total_processed"`
	Passed         int64            `json:"passed"`
	Rejected       int64            `json:"rejected"`
	Issues         map[string]int64 `json:"issues"`
	LastClean      time.Time        `json:"last_clean"`
}

// NewDataCleaner returns a cleaner with a numeric coercion rule for each column.
func NewDataCleaner(columns ...string) *DataCleaner {
	cleaner := &DataCleaner{
		rules: make([]CleaningRule, 0, len(columns)),
		stats: CleaningStats{Issues: make(map[string]int64)},
	}
	for _, col := range columns {
		cleaner.AddRule(NewNumericCoercionRule(col))
	}
	return cleaner
}

func (dc *DataCleaner) AddRule(rule CleaningRule) {
	dc.rules = append(dc.rules, rule)
}

// Clean applies all rules. A row is dropped if any rule rejects it; every rule still runs
// so each bad cell is reported.
func (dc *DataCleaner) Clean(rows []*Row) ([]*Row, []QualityIssue) {
	cleaned := make([]*Row, 0, len(rows))
	var issues []QualityIssue

	dc.statsLock.Lock()
	defer dc.statsLock.Unlock()

	for _, row := range rows {
		dc.stats.TotalProcessed++

		var rowIssues []QualityIssue
		for _, rule := range dc.rules {
			next, err := rule.Apply(row)
			if err != nil {
				column := ""
				if cr, ok := rule.(interface{ Column() string }); ok {
					column = cr.Column()
				}
				rowIssues = append(rowIssues, QualityIssue{
					Type:      rule.Name(),
					Column:    column,
					Row:       row.Index,
					Message:   err.Error(),
					Timestamp: time.Now(),
				})
				dc.stats.Issues[rule.Name()+":"+column]++
				continue
			}
			if next != nil {
				row = next
			}
		}

		if len(rowIssues) > 0 {
			dc.stats.Rejected++
			issues = append(issues, rowIssues...)
			continue
		}
		dc.stats.Passed++
		cleaned = append(cleaned, row)
	}

	dc.stats.LastClean = time.Now()
	return cleaned, issues
}

func (dc *DataCleaner) GetStats() CleaningStats {
	dc.statsLock.RLock()
	defer dc.statsLock.RUnlock()

	stats := dc.stats
	stats.Issues = make(map[string]int64, len(dc.stats.Issues))
	for k, v := range dc.stats.Issues {
		stats.Issues[k] = v
	}
	return stats
}

// NumericCoercionRule parses a column the way a lenient dataframe coercion does:
// unparseable or empty cells become null, and a null rejects the row.
type NumericCoercionRule struct {
	column string
}

func NewNumericCoercionRule(column string) *NumericCoercionRule {
	return &NumericCoercionRule{column: column}
}

func (r *NumericCoercionRule) Name() string {
	return "numeric_coercion"
}

func (r *NumericCoercionRule) Column() string {
	return r.column
}

func (r *NumericCoercionRule) Apply(row *Row) (*Row, error) {
	raw, ok := row.Raw(r.column)
	if !ok {
		return nil, fmt.Errorf("column %q missing from row %d", r.column, row.Index)
	}
	v, ok := ParseNumber(raw)
	if !ok {
		return nil, fmt.Errorf("column %q: value %q is not numeric", r.column, raw)
	}
	row.setNumeric(r.column, v)
	return row, nil
}

// ParseNumber converts a CSV cell to a float. Blank cells, NaN and hexadecimal
// literals count as null.
func ParseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	digits := strings.TrimLeft(s, "+-")
	if len(digits) > 1 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
