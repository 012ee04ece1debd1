package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/agnivade/levenshtein"
)

// maxSuggestDistance bounds how far a header may be from a missing column to be suggested.
const maxSuggestDistance = 3

// LoadMessage is the text shown when the dataset could not be loaded.
func LoadMessage(path string, err error) string {
	name := filepath.Base(path)
	if errors.Is(err, ErrDatasetNotFound) {
		return fmt.Sprintf("File '%s' tidak ditemukan. Bagian dataset tidak dapat ditampilkan.", name)
	}
	return fmt.Sprintf("Error saat memuat %s: %v", name, err)
}

// ShapeMessage describes the file as read.
func (ds *Dataset) ShapeMessage() string {
	rows, cols := ds.Shape()
	return fmt.Sprintf("Dataset memiliki %d baris dan %d kolom.", rows, cols)
}

// CleanMessage describes what is left after incomplete rows are dropped.
func (ds *Dataset) CleanMessage() string {
	rows, _ := ds.Shape()
	return fmt.Sprintf("%d baris tersisa setelah %d baris dengan nilai kosong dihapus.", ds.CleanRowCount(), rows-ds.CleanRowCount())
}

// EmptyMessage replaces the chart section when there is nothing to chart.
func EmptyMessage(path string) string {
	return fmt.Sprintf("Tidak dapat menampilkan grafik karena dataset '%s' tidak dimuat atau kosong.", filepath.Base(path))
}

// MissingColumnMessage is the placeholder shown instead of a chart for an absent column.
func (ds *Dataset) MissingColumnMessage(column string) string {
	msg := fmt.Sprintf("Kolom '%s' tidak ditemukan di dataset.", column)
	if s, ok := Suggest(column, ds.Header); ok {
		msg += fmt.Sprintf(" Mungkin maksud Anda '%s'?", s)
	}
	return msg
}

// Suggest returns the header closest to column, ignoring case, if it is near enough.
func Suggest(column string, header []string) (string, bool) {
	best := ""
	bestDist := maxSuggestDistance + 1
	target := strings.ToLower(column)
	for _, name := range header {
		if name == column {
			continue
		}
		d := levenshtein.ComputeDistance(target, strings.ToLower(name))
		if d < bestDist {
			best, bestDist = name, d
		}
	}
	return best, best != ""
}

// ChartTitles are the headings above each feature chart.
var ChartTitles = map[string]string{
	"highwaympg": "Grafik Highway MPG",
	"curbweight": "Grafik Curbweight",
	"horsepower": "Grafik Horsepower",
}

// ChartTitle returns the heading for column.
func ChartTitle(column string) string {
	if t, ok := ChartTitles[column]; ok {
		return t
	}
	return "Grafik " + column
}
