package classifier

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/Brownie44l1/classifier-api/internal/apperr"
	"github.com/Brownie44l1/classifier-api/internal/scaler"
)

// State is the lifecycle position of the service.
type State int32

const (
	Uninitialized State = iota
	Ready
	ShuttingDown
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case ShuttingDown:
		return "shutting down"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Config names the startup artifacts.
type Config struct {
	ModelPath         string
	PreprocessingPath string
	Features          int
	Classes           []string
}

// Lifecycle loads the service once and releases it once.
type Lifecycle struct {
	cfg  Config
	load ModelLoader
	opts []Option
	o    options

	mu       sync.Mutex
	started  bool
	shutdown bool
	state    State
	svc      *Service
}

func NewLifecycle(cfg Config, load ModelLoader, opts ...Option) *Lifecycle {
	return &Lifecycle{
		cfg:   cfg,
		load:  load,
		opts:  opts,
		o:     buildOptions(opts),
		state: Uninitialized,
	}
}

// Start loads the scaler parameters and the model. Any failure is a
// ModelLoad error and the lifecycle never becomes Ready. Start runs at
// most once.
func (l *Lifecycle) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return apperr.New(apperr.ModelLoad, "start", "lifecycle already started")
	}
	l.started = true

	if l.shutdown {
		return apperr.New(apperr.ModelLoad, "start", "lifecycle already shut down")
	}

	svc, err := l.build()
	if err != nil {
		l.o.log.Error().Err(err).Msg("startup failed, service will not become ready")
		return err
	}

	l.svc = svc
	l.o.rec.ModelLoaded(true)
	l.o.log.Info().
		Str("model", l.cfg.ModelPath).
		Str("preprocessing", l.cfg.PreprocessingPath).
		Int("features", l.cfg.Features).
		Strs("classes", svc.Classes()).
		Msg("classifier ready")
	return nil
}

func (l *Lifecycle) build() (*Service, error) {
	if l.load == nil {
		return nil, apperr.New(apperr.ModelLoad, "start", "no model loader configured")
	}

	names := l.cfg.Classes
	if len(names) == 0 {
		names = DefaultClasses
	}
	classes, err := NewClassTable(names...)
	if err != nil {
		return nil, apperr.Wrap(apperr.ModelLoad, "load classes", err)
	}

	params, err := scaler.LoadParams(l.cfg.PreprocessingPath)
	if err != nil {
		return nil, apperr.Wrap(apperr.ModelLoad, "load scaler", err)
	}
	sc, err := scaler.New(params, l.cfg.Features)
	if err != nil {
		return nil, apperr.Wrap(apperr.ModelLoad, "load scaler", err)
	}
	l.o.log.Debug().
		Floats64("mean", params.Mean).
		Floats64("scale", params.Scale).
		Msg("scaler parameters loaded")

	artifact, err := os.ReadFile(l.cfg.ModelPath)
	if err != nil {
		return nil, apperr.Wrap(apperr.ModelLoad, "read model", err)
	}

	m, err := l.load(artifact)
	if err != nil {
		if apperr.KindOf(err) != apperr.ModelLoad {
			err = apperr.Wrap(apperr.ModelLoad, "load model", err)
		}
		return nil, err
	}
	if m == nil {
		return nil, apperr.New(apperr.ModelLoad, "load model", "loader returned no model")
	}

	svc, err := NewService(sc, m, classes, l.opts...)
	if err != nil {
		return nil, errors.Join(apperr.Wrap(apperr.ModelLoad, "start", err), m.Close())
	}
	return svc, nil
}

// State reports the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.svc != nil {
		return l.svc.State()
	}
	return l.state
}

// Service returns the running service, or an Unavailable error unless the
// lifecycle is Ready.
func (l *Lifecycle) Service() (*Service, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.svc == nil || l.svc.State() != Ready {
		state := l.state
		if l.svc != nil {
			state = l.svc.State()
		}
		return nil, apperr.New(apperr.Unavailable, "service", "classifier is %s", state)
	}
	return l.svc, nil
}

// Shutdown releases the model. It is idempotent and safe after a failed
// or missing Start.
func (l *Lifecycle) Shutdown() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.shutdown {
		return nil
	}
	l.shutdown = true

	if l.svc == nil {
		l.state = Closed
		return nil
	}

	err := l.svc.close()
	l.state = Closed
	l.o.rec.ModelLoaded(false)
	if err != nil {
		l.o.log.Error().Err(err).Msg("failed to release model")
		return fmt.Errorf("release model: %w", err)
	}
	l.o.log.Info().Msg("classifier closed")
	return nil
}

// Predict resolves the running service and predicts with it.
func (l *Lifecycle) Predict(features []float64) (Result, error) {
	svc, err := l.Service()
	if err != nil {
		return Result{}, err
	}
	return svc.Predict(features)
}
