package ml

import (
	"encoding/json"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// LinearRegression is an ordinary least squares model: y = X·w + b.
type LinearRegression struct {
	features     []string
	coefficients *mat.VecDense
	intercept    float64
}

type linearArtifact struct {
	Type         string    `json:"type"`
	Features     []string  `json:"features"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// NewLinearRegression builds a model from fitted parameters in FeatureOrder.
func NewLinearRegression(coefficients []float64, intercept float64) (*LinearRegression, error) {
	if len(coefficients) != len(FeatureOrder) {
		return nil, fmt.Errorf("got %d coefficients, want %d", len(coefficients), len(FeatureOrder))
	}
	if err := checkFinite(append([]float64{intercept}, coefficients...)); err != nil {
		return nil, err
	}
	w := make([]float64, len(coefficients))
	copy(w, coefficients)
	return &LinearRegression{
		features:     append([]string(nil), FeatureOrder...),
		coefficients: mat.NewVecDense(len(w), w),
		intercept:    intercept,
	}, nil
}

func decodeLinear(payload []byte) (*LinearRegression, error) {
	var a linearArtifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, err
	}
	if err := checkFeatureNames(a.Features); err != nil {
		return nil, err
	}
	return NewLinearRegression(a.Coefficients, a.Intercept)
}

// Predict returns an n×1 matrix of prices for the n rows of x.
func (lr *LinearRegression) Predict(x mat.Matrix) (mat.Matrix, error) {
	if lr.coefficients == nil {
		return nil, errors.New("model not loaded")
	}
	rows, cols := x.Dims()
	if cols != lr.coefficients.Len() {
		return nil, fmt.Errorf("got %d features, model expects %d", cols, lr.coefficients.Len())
	}
	out := mat.NewDense(rows, 1, nil)
	out.Mul(x, lr.coefficients)
	out.Apply(func(_, _ int, v float64) float64 { return v + lr.intercept }, out)
	return out, nil
}

// MarshalJSON writes the artifact form read by LoadModel.
func (lr *LinearRegression) MarshalJSON() ([]byte, error) {
	coef := make([]float64, lr.coefficients.Len())
	for i := range coef {
		coef[i] = lr.coefficients.AtVec(i)
	}
	return json.Marshal(linearArtifact{
		Type:         TypeLinearRegression,
		Features:     lr.features,
		Coefficients: coef,
		Intercept:    lr.intercept,
	})
}
