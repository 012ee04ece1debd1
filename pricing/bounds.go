package pricing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"carprice/ml"
)

var ErrOutOfRange = errors.New("value out of range")

// Bound describes one numeric input widget.
type Bound struct {
	Name    string
	Label   string
	Help    string
	Min     float64
	Max     float64
	Default float64
	Step    float64
}

var (
	HighwayMPG = Bound{Name: "highwaympg", Label: "Highway MPG", Help: "Miles per gallon di jalan tol.", Min: 0, Max: 100, Default: 30, Step: 1}
	Curbweight = Bound{Name: "curbweight", Label: "Curbweight (lbs)", Help: "Berat kosong mobil dalam pound.", Min: 500, Max: 6000, Default: 2500, Step: 50}
	Horsepower = Bound{Name: "horsepower", Label: "Horsepower (hp)", Help: "Tenaga kuda mesin.", Min: 0, Max: 500, Default: 100, Step: 5}
)

// Bounds lists the inputs in ml.FeatureOrder.
var Bounds = []Bound{HighwayMPG, Curbweight, Horsepower}

func (b Bound) Validate(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s: %w: not a finite number", b.Label, ErrOutOfRange)
	}
	if v < b.Min || v > b.Max {
		return fmt.Errorf("%s: %w: %g not in [%g, %g]", b.Label, ErrOutOfRange, v, b.Min, b.Max)
	}
	return nil
}

// Clamp pins v into [Min, Max]. NaN becomes Default.
func (b Bound) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return b.Default
	}
	return math.Max(b.Min, math.Min(b.Max, v))
}

// Defaults returns the initial widget values.
func Defaults() ml.Features {
	return ml.Features{HighwayMPG: HighwayMPG.Default, Curbweight: Curbweight.Default, Horsepower: Horsepower.Default}
}

// Validate checks every input against its bound.
func Validate(f ml.Features) error {
	values := f.Vector()
	for i, b := range Bounds {
		if err := b.Validate(values[i]); err != nil {
			return err
		}
	}
	return nil
}

// ParseFeatures reads the inputs by name. Absent or blank inputs take their default.
func ParseFeatures(get func(name string) (string, bool)) (ml.Features, error) {
	values := make([]float64, len(Bounds))
	for i, b := range Bounds {
		raw, ok := get(b.Name)
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			values[i] = b.Default
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return ml.Features{}, fmt.Errorf("%s: %q bukan angka", b.Label, raw)
		}
		values[i] = v
	}
	return ml.Features{HighwayMPG: values[0], Curbweight: values[1], Horsepower: values[2]}, nil
}

// FormatInput renders v the way an input widget shows it.
func FormatInput(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
