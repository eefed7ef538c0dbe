// Package classifier serves predictions from the loaded model.
//
// A Service standardizes the raw features, runs the model under a single
// process-wide lock and maps the class index through a bounds-checked
// table. A Lifecycle builds the Service from its artifacts at startup and
// releases the model at shutdown.
package classifier

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Brownie44l1/classifier-api/internal/apperr"
	"github.com/Brownie44l1/classifier-api/internal/scaler"
)

// Model runs inference on one standardized row. Implementations need not
// be safe for concurrent use.
type Model interface {
	Infer(standardized []float64) (int64, error)
	Close() error
}

// ModelLoader builds a Model from the serialized graph.
type ModelLoader func(artifact []byte) (Model, error)

// Result is the outcome of one prediction.
type Result struct {
	ClassIndex int64
	ClassName  string
}

// Prediction is the class index in the numeric form reported to callers.
func (r Result) Prediction() float64 { return float64(r.ClassIndex) }

type options struct {
	rec Recorder
	log zerolog.Logger
}

type Option func(*options)

func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.rec = r
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

func buildOptions(opts []Option) options {
	o := options{rec: nopRecorder{}, log: log.Logger}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Service is safe for concurrent use. At most one inference runs at a time.
type Service struct {
	scaler  *scaler.Scaler
	model   Model
	classes ClassTable

	// mu guards every use of model.
	mu    sync.Mutex
	state atomic.Int32

	rec Recorder
	log zerolog.Logger
}

// NewService returns a Ready service that owns m.
func NewService(sc *scaler.Scaler, m Model, classes ClassTable, opts ...Option) (*Service, error) {
	if sc == nil {
		return nil, errors.New("classifier: scaler is required")
	}
	if m == nil {
		return nil, errors.New("classifier: model is required")
	}
	if classes.Len() == 0 {
		return nil, errors.New("classifier: class table is empty")
	}

	o := buildOptions(opts)
	s := &Service{
		scaler:  sc,
		model:   m,
		classes: classes,
		rec:     o.rec,
		log:     o.log,
	}
	s.state.Store(int32(Ready))
	return s, nil
}

func (s *Service) State() State { return State(s.state.Load()) }

// Width is the number of raw features Predict expects.
func (s *Service) Width() int { return s.scaler.Width() }

func (s *Service) Classes() []string { return s.classes.Names() }

// Predict classifies one raw feature vector. It never returns a partial
// Result: on error the Result is zero.
func (s *Service) Predict(features []float64) (Result, error) {
	res, err := s.predict(features)
	s.rec.PredictionObserved(outcomeOf(err))

	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.InvalidInput, apperr.Unavailable:
			s.log.Warn().Err(err).Int("features", len(features)).Msg("prediction rejected")
		default:
			s.log.Error().Err(err).Msg("prediction failed")
		}
		return Result{}, err
	}

	s.log.Debug().
		Int64("class_index", res.ClassIndex).
		Str("class_name", res.ClassName).
		Msg("prediction served")
	return res, nil
}

func (s *Service) predict(features []float64) (Result, error) {
	if s.State() != Ready {
		return Result{}, apperr.New(apperr.Unavailable, "predict", "service is %s", s.State())
	}
	if len(features) != s.scaler.Width() {
		return Result{}, apperr.New(apperr.InvalidInput, "predict",
			"expected %d features, got %d", s.scaler.Width(), len(features)).
			WithFields(fmt.Sprintf("Features array must have exactly %d elements", s.scaler.Width()))
	}

	standardized, err := s.scaler.Standardize(features)
	if err != nil {
		return Result{}, err
	}

	index, err := s.infer(standardized)
	if err != nil {
		return Result{}, err
	}

	name, err := s.classes.Lookup(index)
	if err != nil {
		return Result{}, err
	}
	return Result{ClassIndex: index, ClassName: name}, nil
}

// infer holds mu for exactly the duration of the model call.
func (s *Service) infer(standardized []float64) (int64, error) {
	waitStart := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec.LockWaitObserved(time.Since(waitStart))

	// The model may have been released while this call was waiting.
	if s.State() != Ready {
		return 0, apperr.New(apperr.Unavailable, "predict", "service is %s", s.State())
	}

	start := time.Now()
	index, err := s.model.Infer(standardized)
	s.rec.InferenceObserved(time.Since(start))
	if err != nil {
		if apperr.KindOf(err) == apperr.Internal {
			err = apperr.Wrap(apperr.Inference, "infer", err)
		}
		return 0, err
	}
	return index, nil
}

// close releases the model once no inference is in flight.
func (s *Service) close() error {
	s.state.Store(int32(ShuttingDown))

	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.model.Close()
	s.state.Store(int32(Closed))
	return err
}

func outcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	switch apperr.KindOf(err) {
	case apperr.InvalidInput:
		return OutcomeInvalidInput
	case apperr.UnknownClass:
		return OutcomeUnknownClass
	case apperr.Unavailable:
		return OutcomeUnavailable
	default:
		return OutcomeInference
	}
}
