package pipeline

import (
	"math"
	"testing"
)

func newRow(index int, header []string, values ...string) *Row {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[name] = i
	}
	return &Row{Index: index, values: values, columns: columns}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		raw    string
		want   float64
		wantOK bool
	}{
		{raw: "30", want: 30, wantOK: true},
		{raw: " 2548 ", want: 2548, wantOK: true},
		{raw: "1.5e2", want: 150, wantOK: true},
		{raw: "-7.25", want: -7.25, wantOK: true},
		{raw: "", wantOK: false},
		{raw: "   ", wantOK: false},
		{raw: "?", wantOK: false},
		{raw: "NaN", wantOK: false},
		{raw: "1,000", wantOK: false},
		{raw: "111hp", wantOK: false},
		{raw: "0x1p4", wantOK: false},
		{raw: "-0X10", wantOK: false},
		{raw: "0.5", want: 0.5, wantOK: true},
		{raw: "inf", want: math.Inf(1), wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseNumber(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("ParseNumber(%q) ok = %v, want %v", tt.raw, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Fatalf("ParseNumber(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNumericCoercionRule(t *testing.T) {
	header := []string{"CarName", "horsepower"}
	rule := NewNumericCoercionRule("horsepower")

	tests := []struct {
		name    string
		row     *Row
		wantErr bool
	}{
		{name: "numeric", row: newRow(0, header, "audi 100ls", "102"), wantErr: false},
		{name: "text", row: newRow(1, header, "audi 100ls", "n/a"), wantErr: true},
		{name: "blank", row: newRow(2, header, "audi 100ls", ""), wantErr: true},
		{name: "column absent", row: newRow(3, []string{"CarName"}, "audi"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rule.Apply(tt.row)
			if (err != nil) != tt.wantErr {
				t.Errorf("NumericCoercionRule.Apply() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDataCleanerDropsRowsWithAnyNull(t *testing.T) {
	header := []string{"highwaympg", "curbweight", "horsepower"}
	rows := []*Row{
		newRow(0, header, "27", "2548", "111"),
		newRow(1, header, "?", "2548", "111"),
		newRow(2, header, "26", "", "154"),
		newRow(3, header, "x", "y", "z"),
		newRow(4, header, "30", "2337", "102"),
	}

	cleaner := NewDataCleaner(header...)
	cleaned, issues := cleaner.Clean(rows)

	if len(cleaned) != 2 {
		t.Fatalf("expected 2 clean rows, got %d", len(cleaned))
	}
	if cleaned[0].Index != 0 || cleaned[1].Index != 4 {
		t.Fatalf("expected rows 0 and 4 to survive, got %d and %d", cleaned[0].Index, cleaned[1].Index)
	}
	if v, ok := cleaned[1].Number("curbweight"); !ok || v != 2337 {
		t.Fatalf("expected coerced curbweight 2337, got %v (%v)", v, ok)
	}
	// row 3 reports all three bad cells
	if len(issues) != 5 {
		t.Fatalf("expected 5 issues, got %d: %+v", len(issues), issues)
	}

	stats := cleaner.GetStats()
	if stats.TotalProcessed != 5 || stats.Passed != 2 || stats.Rejected != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.Issues["numeric_coercion:highwaympg"] != 2 {
		t.Fatalf("expected 2 highwaympg issues, got %d", stats.Issues["numeric_coercion:highwaympg"])
	}
}
