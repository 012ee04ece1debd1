package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const carCSV = "car_ID,CarName,highwaympg,curbweight,horsepower,price\n" +
	"1,alfa-romero giulia,27,2548,111,13495\n" +
	"2,alfa-romero stelvio,27,2548,111,16500\n" +
	"3,audi 100 ls,?,2337,102,13950\n" +
	"4,audi 100ls,22,2824,,17450\n" +
	"5,bmw 320i,25,2507,101,16430\n" +
	"6,bmw x1,twenty,2844,121,\n"

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoadDatasetCountsBeforeAndAfterDrop(t *testing.T) {
	ds, err := LoadDataset(writeCSV(t, "CarPrice.csv", carCSV), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, cols := ds.Shape()
	if rows != 6 || cols != 6 {
		t.Fatalf("expected shape 6x6, got %dx%d", rows, cols)
	}
	if ds.ShapeMessage() != "Dataset memiliki 6 baris dan 6 kolom." {
		t.Fatalf("unexpected shape message %q", ds.ShapeMessage())
	}
	// rows 3, 4 and 6 each hold a non-numeric target; the blank price is not a target
	if ds.CleanRowCount() != 3 {
		t.Fatalf("expected 3 clean rows, got %d", ds.CleanRowCount())
	}
	if !strings.HasPrefix(ds.CleanMessage(), "3 baris tersisa setelah 3 baris") {
		t.Fatalf("unexpected clean message %q", ds.CleanMessage())
	}
	if ds.Name != "CarPrice.csv" {
		t.Fatalf("unexpected name %q", ds.Name)
	}

	head := ds.Head(5)
	if len(head) != 5 {
		t.Fatalf("expected 5 preview rows, got %d", len(head))
	}
	if head[2][2] != "?" {
		t.Fatalf("preview should show raw values, got %q", head[2][2])
	}

	idx, values, ok := ds.Series("highwaympg")
	if !ok {
		t.Fatal("expected highwaympg series")
	}
	wantIdx := []float64{0, 1, 4}
	wantVals := []float64{27, 27, 25}
	for i := range wantIdx {
		if idx[i] != wantIdx[i] || values[i] != wantVals[i] {
			t.Fatalf("series point %d = (%v, %v), want (%v, %v)", i, idx[i], values[i], wantIdx[i], wantVals[i])
		}
	}
}

func TestLoadDatasetMissingColumnKeepsOthers(t *testing.T) {
	content := "CarName,highwaympg,curbweight,horse_power\n" +
		"audi,30,2337,102\n" +
		"bmw,25,2507,101\n"
	ds, err := LoadDataset(writeCSV(t, "CarPrice.csv", content), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ds.Missing) != 1 || ds.Missing[0] != "horsepower" {
		t.Fatalf("expected horsepower missing, got %v", ds.Missing)
	}
	if ds.CleanRowCount() != 2 {
		t.Fatalf("missing column must not drop rows, got %d", ds.CleanRowCount())
	}
	for _, col := range []string{"highwaympg", "curbweight"} {
		if _, values, ok := ds.Series(col); !ok || len(values) != 2 {
			t.Fatalf("expected %s series with 2 points, got %v (%v)", col, values, ok)
		}
	}
	if _, _, ok := ds.Series("horsepower"); ok {
		t.Fatal("horsepower series should be unavailable")
	}
	want := "Kolom 'horsepower' tidak ditemukan di dataset. Mungkin maksud Anda 'horse_power'?"
	if got := ds.MissingColumnMessage("horsepower"); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestLoadDatasetErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "CarPrice.csv")
	_, err := LoadDataset(missing, Options{})
	if !errors.Is(err, ErrDatasetNotFound) {
		t.Fatalf("expected ErrDatasetNotFound, got %v", err)
	}
	if got := LoadMessage(missing, err); got != "File 'CarPrice.csv' tidak ditemukan. Bagian dataset tidak dapat ditampilkan." {
		t.Fatalf("unexpected message %q", got)
	}

	tests := []struct {
		name    string
		content string
	}{
		{name: "empty", content: ""},
		{name: "too many fields", content: "a,b\n1,2\n1,2,3\n"},
		{name: "bare quote", content: "a,b\n1,x\"y\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeCSV(t, "CarPrice.csv", tt.content)
			_, err := LoadDataset(p, Options{})
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, ErrDatasetNotFound) {
				t.Fatal("parse errors must not look like a missing file")
			}
			if got := LoadMessage(p, err); !strings.HasPrefix(got, "Error saat memuat CarPrice.csv: ") {
				t.Fatalf("unexpected message %q", got)
			}
		})
	}
}

func TestLoadDatasetShortRowsAndHeaderOnly(t *testing.T) {
	ds, err := LoadDataset(writeCSV(t, "CarPrice.csv", "highwaympg,curbweight,horsepower\n30,2500\n"), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows, _ := ds.Shape(); rows != 1 {
		t.Fatalf("expected 1 row, got %d", rows)
	}
	if !ds.Empty() {
		t.Fatal("short row has a blank horsepower and should be dropped")
	}

	ds, err = LoadDataset(writeCSV(t, "CarPrice.csv", "highwaympg,curbweight,horsepower\n"), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ds.Empty() {
		t.Fatal("header-only dataset should be empty")
	}
	if EmptyMessage("data/CarPrice.csv") != "Tidak dapat menampilkan grafik karena dataset 'CarPrice.csv' tidak dimuat atau kosong." {
		t.Fatalf("unexpected empty message %q", EmptyMessage("data/CarPrice.csv"))
	}
}

func TestParseDecodesLegacyEncoding(t *testing.T) {
	// "Citroën" in windows-1252 plus a UTF-8 BOM-free header
	content := "CarName,highwaympg,curbweight,horsepower\nCitro\xebn ds,24,2800,95\n"
	ds, err := Parse(strings.NewReader(content), Options{Encoding: "windows-1252"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.Records[0][0] != "Citroën ds" {
		t.Fatalf("expected decoded name, got %q", ds.Records[0][0])
	}

	if _, err := Parse(strings.NewReader(content), Options{Encoding: "klingon"}); err == nil {
		t.Fatal("expected error for unknown encoding")
	}
}

func TestParseStripsBOM(t *testing.T) {
	ds, err := Parse(strings.NewReader("\ufeffhighwaympg,curbweight,horsepower\n30,2500,100\n"), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ds.HasColumn("highwaympg") || len(ds.Missing) != 0 {
		t.Fatalf("BOM should not hide the first column: header %q", ds.Header)
	}
}

func TestSuggest(t *testing.T) {
	header := []string{"car_ID", "HighwayMPG", "curb-weight", "price"}
	if s, ok := Suggest("highwaympg", header); !ok || s != "HighwayMPG" {
		t.Fatalf("expected HighwayMPG, got %q (%v)", s, ok)
	}
	if s, ok := Suggest("curbweight", header); !ok || s != "curb-weight" {
		t.Fatalf("expected curb-weight, got %q (%v)", s, ok)
	}
	if s, ok := Suggest("horsepower", header); ok {
		t.Fatalf("expected no suggestion, got %q", s)
	}
}

func TestSeriesSkipsInfinityAndHex(t *testing.T) {
	content := "highwaympg,curbweight,horsepower\n" +
		"27,2548,111\n" +
		"inf,2337,102\n" +
		"0x1p4,2824,115\n" +
		"25,2507,101\n"
	ds, err := LoadDataset(writeCSV(t, "CarPrice.csv", content), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// the hex cell is null, the infinite one is a number
	if ds.CleanRowCount() != 3 {
		t.Fatalf("expected 3 clean rows, got %d", ds.CleanRowCount())
	}

	idx, values, ok := ds.Series("highwaympg")
	if !ok {
		t.Fatal("expected highwaympg series")
	}
	if len(idx) != 2 || idx[0] != 0 || idx[1] != 3 || values[0] != 27 || values[1] != 25 {
		t.Fatalf("unexpected series %v %v", idx, values)
	}
}
