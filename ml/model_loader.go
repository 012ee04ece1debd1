package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const (
	TypeLinearRegression = "linear_regression"
	TypeRegressionTree   = "regression_tree"
	TypeRemote           = "remote"
	// TypeAuto reads the type from the artifact header.
	TypeAuto = "auto"
)

var (
	ErrModelNotFound    = errors.New("model file not found")
	ErrUnsupportedModel = errors.New("unsupported model type")
)

// LoadOptions carries settings only some model types need.
type LoadOptions struct {
	RemoteAddr    string
	RemoteTimeout time.Duration
}

// LoadModel opens the artifact at path and returns a ready predictor.
// A missing file yields an error wrapping ErrModelNotFound.
func LoadModel(modelType, path string, opts LoadOptions) (Predictor, error) {
	if modelType == TypeRemote {
		m, err := DialRemote(opts.RemoteAddr, opts.RemoteTimeout)
		if err != nil {
			return nil, err
		}
		return m, nil
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, path)
		}
		return nil, err
	}

	var header struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &header); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if modelType == "" || modelType == TypeAuto {
		modelType = header.Type
	} else if header.Type != "" && header.Type != modelType {
		return nil, fmt.Errorf("artifact type %q does not match configured type %q", header.Type, modelType)
	}

	var r Regressor
	switch modelType {
	case TypeLinearRegression:
		r, err = decodeLinear(payload)
	case TypeRegressionTree:
		r, err = decodeTree(payload)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, modelType)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s artifact: %w", modelType, err)
	}
	return NewPredictor(r), nil
}

// SaveModel writes r in the artifact format LoadModel reads.
func SaveModel(r Regressor, path string) error {
	var payload []byte
	var err error
	switch m := r.(type) {
	case *LinearRegression:
		payload, err = json.Marshal(m)
	case *RegressionTree:
		payload, err = json.Marshal(treeArtifact{Type: TypeRegressionTree, Features: FeatureOrder, Nodes: m.nodes})
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedModel, r)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

// LoadMessage is the text shown to the user after a load attempt.
func LoadMessage(path string, err error) string {
	switch {
	case err == nil:
		return "Model prediksi berhasil dimuat."
	case errors.Is(err, ErrModelNotFound):
		return fmt.Sprintf("Error: File '%s' tidak ditemukan. Pastikan file model ada di direktori yang sama.", filepath.Base(path))
	default:
		return fmt.Sprintf("Error saat memuat model: %v", err)
	}
}
