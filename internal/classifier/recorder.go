package classifier

import "time"

// Outcome labels a finished Predict call.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeInvalidInput Outcome = "invalid_input"
	OutcomeInference    Outcome = "inference_error"
	OutcomeUnknownClass Outcome = "unknown_class"
	OutcomeUnavailable  Outcome = "unavailable"
)

// Recorder receives instrumentation from the service.
type Recorder interface {
	PredictionObserved(Outcome)
	InferenceObserved(time.Duration)
	LockWaitObserved(time.Duration)
	ModelLoaded(bool)
}

type nopRecorder struct{}

func (nopRecorder) PredictionObserved(Outcome)      {}
func (nopRecorder) InferenceObserved(time.Duration) {}
func (nopRecorder) LockWaitObserved(time.Duration)  {}
func (nopRecorder) ModelLoaded(bool)                {}
