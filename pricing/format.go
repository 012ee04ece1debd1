package pricing

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var ErrNonFinite = errors.New("prediction is not a finite number")

var groupPrinter = message.NewPrinter(language.English)

// FormatRupiah renders v as "Rp 12.345,68": two decimals, grouped with commas first and
// then swapped to the Indonesian convention (comma→X, period→comma, X→period).
func FormatRupiah(v float64) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", ErrNonFinite
	}
	// Round on the binary value first so ties match strconv, not decimal half-even.
	// The sign is kept apart so values that round to zero stay "-0,00".
	digits := strconv.FormatFloat(v, 'f', 2, 64)
	digits, negative := strings.CutPrefix(digits, "-")
	rounded, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return "", err
	}
	s := groupPrinter.Sprintf("%.2f", rounded)
	if negative {
		s = "-" + s
	}
	s = strings.ReplaceAll(s, ",", "X")
	s = strings.ReplaceAll(s, ".", ",")
	s = strings.ReplaceAll(s, "X", ".")
	return "Rp " + s, nil
}
