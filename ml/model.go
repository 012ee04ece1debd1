package ml

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// FeatureOrder is the column order the price model was trained with.
// Artifacts that name their features must list exactly these, in this order.
var FeatureOrder = []string{"highwaympg", "curbweight", "horsepower"}

// Features is one prediction request.
type Features struct {
	HighwayMPG float64 `json:"highwaympg"`
	Curbweight float64 `json:"curbweight"`
	Horsepower float64 `json:"horsepower"`
}

// Vector returns the features in FeatureOrder.
func (f Features) Vector() []float64 {
	return []float64{f.HighwayMPG, f.Curbweight, f.Horsepower}
}

// Regressor is the matrix-level contract of a loaded artifact: one row per sample in,
// one row per sample out.
type Regressor interface {
	Predict(x mat.Matrix) (mat.Matrix, error)
}

// Predictor turns a single feature vector into a price.
type Predictor interface {
	Predict(ctx context.Context, f Features) (float64, error)
}

// NewPredictor adapts r so callers see a scalar result: element [0][0] of r's output.
func NewPredictor(r Regressor) Predictor {
	return &regressorPredictor{r: r}
}

type regressorPredictor struct {
	r Regressor
}

func (p *regressorPredictor) Predict(ctx context.Context, f Features) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	x := mat.NewDense(1, len(FeatureOrder), f.Vector())
	out, err := p.r.Predict(x)
	if err != nil {
		return 0, err
	}
	if out == nil {
		return 0, errors.New("model returned no output")
	}
	rows, cols := out.Dims()
	if rows == 0 || cols == 0 {
		return 0, errors.New("model returned empty output")
	}
	return out.At(0, 0), nil
}

// Close releases resources held by p when its model has any.
func Close(p Predictor) error {
	if c, ok := p.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func checkFeatureNames(names []string) error {
	if len(names) != len(FeatureOrder) {
		return fmt.Errorf("artifact lists %d features, want %d %v", len(names), len(FeatureOrder), FeatureOrder)
	}
	for i, name := range names {
		if name != FeatureOrder[i] {
			return fmt.Errorf("artifact feature %d is %q, want %q", i, name, FeatureOrder[i])
		}
	}
	return nil
}

func checkFinite(values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("parameter %d is not finite", i)
		}
	}
	return nil
}
