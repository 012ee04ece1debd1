package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"carprice/ml"
)

var ErrModelNotLoaded = errors.New("model is not loaded")

// ErrorHint follows every prediction error shown to the user.
const ErrorHint = "Pastikan input numerik benar dan model dimuat dengan sukses."

// Result is one successful prediction.
type Result struct {
	ID        string      `json:"id"`
	Features  ml.Features `json:"features"`
	Price     float64     `json:"price"`
	Formatted string      `json:"formatted"`
	Cached    bool        `json:"cached"`
	CreatedAt time.Time   `json:"created_at"`
}

// Message is the success line shown under the form.
func (r *Result) Message() string {
	return "Prediksi Harga Mobil: " + r.Formatted
}

// ErrorMessage is the failure line shown under the form; ErrorHint goes below it.
func ErrorMessage(err error) string {
	return fmt.Sprintf("Terjadi kesalahan saat melakukan prediksi: %v", err)
}

// Recorder persists results. Failures are logged and never fail the prediction.
type Recorder interface {
	Record(ctx context.Context, r Result) error
}

// Publisher fans results out to live subscribers.
type Publisher interface {
	Publish(r Result)
}

type Option func(*Service)

func WithRecorder(r Recorder) Option { return func(s *Service) { s.recorder = r } }

func WithPublisher(p Publisher) Option { return func(s *Service) { s.publisher = p } }

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.logger = l } }

// modelRef pairs a predictor with the results it produced. Swapping the ref swaps the
// cache with it, so a late result from a replaced model never reaches the new cache.
type modelRef struct {
	p     ml.Predictor
	cache *lru.Cache[ml.Features, float64]
}

// Service runs predictions against the current model. The model can be swapped while
// requests are in flight.
type Service struct {
	model     atomic.Pointer[modelRef]
	cacheSize int
	recorder  Recorder
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a service around model, which may be nil until SetModel is called.
// cacheSize <= 0 disables caching.
func NewService(model ml.Predictor, cacheSize int, opts ...Option) (*Service, error) {
	s := &Service{logger: zap.NewNop(), now: time.Now, cacheSize: cacheSize}
	for _, opt := range opts {
		opt(s)
	}
	if model != nil {
		ref, err := s.newRef(model)
		if err != nil {
			return nil, err
		}
		s.model.Store(ref)
	}
	return s, nil
}

func (s *Service) newRef(p ml.Predictor) (*modelRef, error) {
	ref := &modelRef{p: p}
	if s.cacheSize > 0 {
		c, err := lru.New[ml.Features, float64](s.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create prediction cache: %w", err)
		}
		ref.cache = c
	}
	return ref, nil
}

// Model returns the current predictor or nil.
func (s *Service) Model() ml.Predictor {
	if ref := s.model.Load(); ref != nil {
		return ref.p
	}
	return nil
}

// SetModel installs p with an empty cache and returns the previous predictor so the
// caller can close it.
func (s *Service) SetModel(p ml.Predictor) ml.Predictor {
	var next *modelRef
	if p != nil {
		// lru.New only fails for a non-positive size, which newRef never passes
		next, _ = s.newRef(p)
	}
	old := s.model.Swap(next)
	if old == nil {
		return nil
	}
	if old.cache != nil {
		old.cache.Purge()
	}
	return old.p
}

// Predict runs the current model on f. Inputs are not range-checked here; callers
// validate or clamp them first.
func (s *Service) Predict(ctx context.Context, f ml.Features) (*Result, error) {
	ref := s.model.Load()
	if ref == nil {
		return nil, ErrModelNotLoaded
	}

	price, cached := 0.0, false
	if ref.cache != nil {
		price, cached = ref.cache.Get(f)
	}
	if !cached {
		var err error
		price, err = ref.p.Predict(ctx, f)
		if err != nil {
			s.logger.Warn("prediction failed", zap.Error(err), zap.Any("features", f))
			return nil, err
		}
		if math.IsNaN(price) || math.IsInf(price, 0) {
			return nil, ErrNonFinite
		}
		if ref.cache != nil {
			ref.cache.Add(f, price)
		}
	}

	formatted, err := FormatRupiah(price)
	if err != nil {
		return nil, err
	}
	res := Result{
		ID:        uuid.NewString(),
		Features:  f,
		Price:     price,
		Formatted: formatted,
		Cached:    cached,
		CreatedAt: s.now().UTC(),
	}

	if s.recorder != nil {
		if err := s.recorder.Record(ctx, res); err != nil {
			s.logger.Warn("failed to record prediction", zap.String("id", res.ID), zap.Error(err))
		}
	}
	if s.publisher != nil {
		s.publisher.Publish(res)
	}
	s.logger.Debug("prediction", zap.String("id", res.ID), zap.Float64("price", price), zap.Bool("cached", cached))
	return &res, nil
}
