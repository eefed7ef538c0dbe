package classifier

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/classifier-api/internal/scaler"
)

// stubModel stands in for the ONNX handle. It tracks how many inference
// calls overlap so tests can check the service lock.
type stubModel struct {
	class int64
	err   error
	delay time.Duration

	calls     atomic.Int32
	active    atomic.Int32
	maxActive atomic.Int32
	closes    atomic.Int32

	mu   sync.Mutex
	last []float64
}

func (m *stubModel) Infer(standardized []float64) (int64, error) {
	m.calls.Add(1)
	n := m.active.Add(1)
	defer m.active.Add(-1)
	for {
		cur := m.maxActive.Load()
		if n <= cur || m.maxActive.CompareAndSwap(cur, n) {
			break
		}
	}

	m.mu.Lock()
	m.last = append([]float64(nil), standardized...)
	m.mu.Unlock()

	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return 0, m.err
	}
	return m.class, nil
}

func (m *stubModel) Close() error {
	m.closes.Add(1)
	return nil
}

func (m *stubModel) lastInput() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

type panicModel struct{ stubModel }

func (m *panicModel) Infer([]float64) (int64, error) {
	m.calls.Add(1)
	panic("native fault")
}

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []Outcome
	loaded   []bool
	infers   int
	waits    int
}

func (r *outcomeRecorder) PredictionObserved(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *outcomeRecorder) InferenceObserved(time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.infers++
}

func (r *outcomeRecorder) LockWaitObserved(time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits++
}

func (r *outcomeRecorder) ModelLoaded(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = append(r.loaded, v)
}

func fill(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func identityScaler(t *testing.T) *scaler.Scaler {
	t.Helper()
	sc, err := scaler.New(scaler.Params{Mean: fill(0, 10), Scale: fill(1, 10)}, 10)
	require.NoError(t, err)
	return sc
}

func newTestService(t *testing.T, m Model, opts ...Option) *Service {
	t.Helper()
	classes, err := NewClassTable(DefaultClasses...)
	require.NoError(t, err)
	svc, err := NewService(identityScaler(t), m, classes, opts...)
	require.NoError(t, err)
	return svc
}

// writeArtifacts lays out a preprocessing document and a model file and
// returns a Config pointing at them.
func writeArtifacts(t *testing.T, mean, scale []float64) Config {
	t.Helper()
	dir := t.TempDir()

	doc := map[string]any{
		"classifier": map[string]any{
			"scaler_mean":  mean,
			"scaler_scale": scale,
		},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	preprocessing := filepath.Join(dir, "sklearn_preprocessing.json")
	require.NoError(t, os.WriteFile(preprocessing, data, 0o600))

	modelPath := filepath.Join(dir, "sklearn_classifier.onnx")
	require.NoError(t, os.WriteFile(modelPath, []byte("onnx-bytes"), 0o600))

	return Config{
		ModelPath:         modelPath,
		PreprocessingPath: preprocessing,
		Features:          10,
		Classes:           DefaultClasses,
	}
}

func loaderFor(m Model) (ModelLoader, *atomic.Int32) {
	var loads atomic.Int32
	return func(artifact []byte) (Model, error) {
		loads.Add(1)
		if len(artifact) == 0 {
			return nil, errors.New("empty artifact")
		}
		return m, nil
	}, &loads
}
