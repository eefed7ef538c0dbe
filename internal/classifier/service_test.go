package classifier

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/classifier-api/internal/apperr"
	"github.com/Brownie44l1/classifier-api/internal/scaler"
)

func TestPredictRoundTrip(t *testing.T) {
	m := &stubModel{class: 2}
	svc := newTestService(t, m)

	res, err := svc.Predict(fill(0.5, 10))
	require.NoError(t, err)
	assert.Equal(t, Result{ClassIndex: 2, ClassName: "C"}, res)
	assert.Equal(t, 2.0, res.Prediction())
}

func TestPredictEndToEnd(t *testing.T) {
	m := &stubModel{class: 1}
	svc := newTestService(t, m)

	features := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	res, err := svc.Predict(features)
	require.NoError(t, err)

	assert.Equal(t, 1.0, res.Prediction())
	assert.Equal(t, "B", res.ClassName)
	assert.Equal(t, features, m.lastInput(), "identity scaler must pass features through")
}

func TestPredictStandardizesBeforeInference(t *testing.T) {
	sc, err := scaler.New(scaler.Params{Mean: fill(1, 10), Scale: fill(2, 10)}, 10)
	require.NoError(t, err)
	classes, err := NewClassTable(DefaultClasses...)
	require.NoError(t, err)

	m := &stubModel{class: 0}
	svc, err := NewService(sc, m, classes)
	require.NoError(t, err)

	_, err = svc.Predict(fill(5, 10))
	require.NoError(t, err)
	assert.Equal(t, fill(2, 10), m.lastInput())
}

func TestPredictRejectsWrongLength(t *testing.T) {
	m := &stubModel{class: 0}
	rec := &outcomeRecorder{}
	svc := newTestService(t, m, WithRecorder(rec))

	for _, n := range []int{0, 9, 11} {
		_, err := svc.Predict(fill(1, n))
		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
		assert.Equal(t, []string{"Features array must have exactly 10 elements"}, apperr.FieldsOf(err))
	}
	assert.Equal(t, int32(0), m.calls.Load(), "no inference for rejected input")
	assert.Equal(t, 0, rec.waits, "lock never taken for rejected input")
	assert.Equal(t, []Outcome{OutcomeInvalidInput, OutcomeInvalidInput, OutcomeInvalidInput}, rec.outcomes)
}

func TestPredictUnknownClass(t *testing.T) {
	for _, class := range []int64{7, 4, -1} {
		m := &stubModel{class: class}
		svc := newTestService(t, m)

		res, err := svc.Predict(fill(0, 10))
		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrUnknownClass)
		assert.Equal(t, Result{}, res)
	}
}

func TestPredictInferenceError(t *testing.T) {
	m := &stubModel{err: errors.New("output port missing")}
	rec := &outcomeRecorder{}
	svc := newTestService(t, m, WithRecorder(rec))

	_, err := svc.Predict(fill(0, 10))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInference)
	assert.Equal(t, []Outcome{OutcomeInference}, rec.outcomes)

	// A classified error from the model keeps its kind.
	m.err = apperr.New(apperr.InvalidInput, "infer", "bad width")
	_, err = svc.Predict(fill(0, 10))
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestPredictReleasesLockAfterFailure(t *testing.T) {
	m := &stubModel{err: errors.New("boom")}
	svc := newTestService(t, m)

	_, err := svc.Predict(fill(0, 10))
	require.Error(t, err)

	m.err = nil
	m.class = 3
	done := make(chan Result, 1)
	go func() {
		res, _ := svc.Predict(fill(0, 10))
		done <- res
	}()

	select {
	case res := <-done:
		assert.Equal(t, "D", res.ClassName)
	case <-time.After(2 * time.Second):
		t.Fatal("lock was not released after a failed inference")
	}
}

func TestPredictReleasesLockAfterPanic(t *testing.T) {
	m := &panicModel{}
	svc := newTestService(t, m)

	assert.Panics(t, func() { _, _ = svc.Predict(fill(0, 10)) })

	locked := make(chan struct{})
	go func() {
		svc.mu.Lock()
		svc.mu.Unlock()
		close(locked)
	}()
	select {
	case <-locked:
	case <-time.After(2 * time.Second):
		t.Fatal("lock held after panic")
	}
}

func TestPredictSerializesInference(t *testing.T) {
	m := &stubModel{class: 1, delay: 5 * time.Millisecond}
	rec := &outcomeRecorder{}
	svc := newTestService(t, m, WithRecorder(rec))

	const callers = 50
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			res, err := svc.Predict(fill(float64(1), 10))
			if err == nil && res.ClassName != "B" {
				err = errors.New("unexpected class " + res.ClassName)
			}
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(callers), m.calls.Load())
	assert.Equal(t, int32(1), m.maxActive.Load(), "inference calls overlapped")
	assert.Equal(t, callers, rec.infers)
	assert.Equal(t, callers, rec.waits)
}

func TestPredictAfterClose(t *testing.T) {
	m := &stubModel{class: 0}
	svc := newTestService(t, m)

	require.NoError(t, svc.close())
	assert.Equal(t, Closed, svc.State())
	assert.Equal(t, int32(1), m.closes.Load())

	_, err := svc.Predict(fill(0, 10))
	assert.ErrorIs(t, err, apperr.ErrUnavailable)
	assert.Equal(t, int32(0), m.calls.Load())
}

func TestNewServiceValidation(t *testing.T) {
	classes, err := NewClassTable(DefaultClasses...)
	require.NoError(t, err)
	sc := identityScaler(t)

	_, err = NewService(nil, &stubModel{}, classes)
	assert.Error(t, err)
	_, err = NewService(sc, nil, classes)
	assert.Error(t, err)
	_, err = NewService(sc, &stubModel{}, ClassTable{})
	assert.Error(t, err)

	svc, err := NewService(sc, &stubModel{}, classes)
	require.NoError(t, err)
	assert.Equal(t, Ready, svc.State())
	assert.Equal(t, 10, svc.Width())
	assert.Equal(t, DefaultClasses, svc.Classes())
}

func TestClassTable(t *testing.T) {
	table, err := NewClassTable("A", "B", "C", "D")
	require.NoError(t, err)
	assert.Equal(t, 4, table.Len())

	for i, want := range []string{"A", "B", "C", "D"} {
		got, err := table.Lookup(int64(i))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	for _, idx := range []int64{-1, 4, 7, 1 << 40} {
		_, err := table.Lookup(idx)
		assert.ErrorIs(t, err, apperr.ErrUnknownClass, "index %d", idx)
	}

	names := table.Names()
	names[0] = "Z"
	got, _ := table.Lookup(0)
	assert.Equal(t, "A", got, "Names returns a copy")

	_, err = NewClassTable()
	assert.Error(t, err)
	_, err = NewClassTable("A", "")
	assert.Error(t, err)
	_, err = NewClassTable("A", "A")
	assert.Error(t, err)
}
