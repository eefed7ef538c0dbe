// Package model owns the compiled ONNX inference graph.
package model

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/Brownie44l1/classifier-api/internal/apperr"
)

// Options configure the runtime and the session.
type Options struct {
	// SharedLibraryPath points at the onnxruntime shared library. Empty
	// uses the platform default lookup.
	SharedLibraryPath string
	// Features is the width of the single input row.
	Features       int
	IntraOpThreads int
	InterOpThreads int
}

// Handle runs a single-input, single-output classifier graph.
//
// Handle does no locking of its own. Infer must not be called
// concurrently on the same Handle.
type Handle struct {
	session     *ort.DynamicAdvancedSession
	inputName   string
	outputName  string
	features    int
	ownsRuntime bool
	closeOnce   sync.Once
}

// Inspect lists the ports of the graph in artifact.
func Inspect(artifact []byte, libraryPath string) (Ports, error) {
	owns, err := acquireRuntime(libraryPath)
	if err != nil {
		return Ports{}, err
	}
	if owns {
		defer releaseRuntime()
	}

	inputs, outputs, err := ort.GetInputOutputInfoWithONNXData(artifact)
	if err != nil {
		return Ports{}, fmt.Errorf("failed to read model ports: %w", err)
	}
	return newPorts(inputs, outputs), nil
}

// Load builds a Handle from the serialized graph in artifact. Any failure
// is a ModelLoad error and leaves no native resources behind.
func Load(artifact []byte, opts Options) (*Handle, error) {
	h, err := load(artifact, opts)
	if err != nil {
		return nil, apperr.Wrap(apperr.ModelLoad, "load model", err)
	}
	return h, nil
}

func load(artifact []byte, opts Options) (h *Handle, err error) {
	if len(artifact) == 0 {
		return nil, errors.New("model artifact is empty")
	}
	if opts.Features <= 0 {
		return nil, fmt.Errorf("feature width must be positive, got %d", opts.Features)
	}

	owns, err := acquireRuntime(opts.SharedLibraryPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil && owns {
			releaseRuntime()
		}
	}()

	inputs, outputs, err := ort.GetInputOutputInfoWithONNXData(artifact)
	if err != nil {
		return nil, fmt.Errorf("failed to read model ports: %w", err)
	}
	in, out, err := resolvePorts(inputs, outputs, opts.Features)
	if err != nil {
		return nil, err
	}

	sessionOpts, err := newSessionOptions(opts)
	if err != nil {
		return nil, err
	}
	defer sessionOpts.Destroy()

	session, err := ort.NewDynamicAdvancedSessionWithONNXData(artifact,
		[]string{in.Name}, []string{out.Name}, sessionOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	log.Info().
		Str("input", in.Name).
		Str("output", out.Name).
		Int("features", opts.Features).
		Msg("model session created")

	return &Handle{
		session:     session,
		inputName:   in.Name,
		outputName:  out.Name,
		features:    opts.Features,
		ownsRuntime: owns,
	}, nil
}

func newSessionOptions(opts Options) (*ort.SessionOptions, error) {
	so, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	if opts.IntraOpThreads > 0 {
		if err := so.SetIntraOpNumThreads(opts.IntraOpThreads); err != nil {
			so.Destroy()
			return nil, fmt.Errorf("failed to set intra-op threads: %w", err)
		}
	}
	if opts.InterOpThreads > 0 {
		if err := so.SetInterOpNumThreads(opts.InterOpThreads); err != nil {
			so.Destroy()
			return nil, fmt.Errorf("failed to set inter-op threads: %w", err)
		}
	}
	return so, nil
}

// Infer runs the graph on one standardized row and returns the predicted
// class index exactly as the graph emitted it. Every tensor created here
// is destroyed before Infer returns.
func (h *Handle) Infer(standardized []float64) (int64, error) {
	if h == nil || h.session == nil {
		return 0, apperr.New(apperr.Inference, "infer", "model handle is closed")
	}
	if len(standardized) != h.features {
		return 0, apperr.New(apperr.InvalidInput, "infer",
			"expected %d features, got %d", h.features, len(standardized))
	}

	input, err := ort.NewTensor(ort.NewShape(1, int64(h.features)), narrow(standardized))
	if err != nil {
		return 0, apperr.Wrap(apperr.Inference, "infer", fmt.Errorf("failed to create input tensor: %w", err))
	}
	defer input.Destroy()

	// A nil output slot is allocated by the runtime with the graph's own type.
	outputs := []ort.Value{nil}
	defer func() {
		if outputs[0] != nil {
			outputs[0].Destroy()
		}
	}()

	if err := h.session.Run([]ort.Value{input}, outputs); err != nil {
		return 0, apperr.Wrap(apperr.Inference, "infer", fmt.Errorf("inference failed: %w", err))
	}

	return classIndex(h.outputName, outputs[0])
}

// narrow converts the standardized row to the float32 precision the graph
// takes as input. This is the only place precision is reduced.
func narrow(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// classIndex copies the scalar label out of the native output value. An
// output of any other shape or type is an Inference error.
func classIndex(name string, v ort.Value) (int64, error) {
	label, err := scalarLabel(name, v)
	if err != nil {
		return 0, apperr.Wrap(apperr.Inference, "infer", err)
	}
	return label, nil
}

func scalarLabel(name string, v ort.Value) (int64, error) {
	if v == nil {
		return 0, fmt.Errorf("output %q missing from result", name)
	}

	var label int64
	switch t := v.(type) {
	case *ort.Tensor[int64]:
		data := t.GetData()
		if len(data) != 1 {
			return 0, fmt.Errorf("output %q has %d elements, expected 1", name, len(data))
		}
		label = data[0]
	case *ort.Tensor[int32]:
		data := t.GetData()
		if len(data) != 1 {
			return 0, fmt.Errorf("output %q has %d elements, expected 1", name, len(data))
		}
		label = int64(data[0])
	default:
		return 0, fmt.Errorf("output %q has unexpected type %T, expected an integer tensor", name, v)
	}
	return label, nil
}

// Close releases the session and, if Load created it, the runtime
// environment. It is safe to call more than once and on a nil Handle.
func (h *Handle) Close() error {
	if h == nil {
		return nil
	}
	var errs []error
	h.closeOnce.Do(func() {
		if h.session != nil {
			if err := h.session.Destroy(); err != nil {
				errs = append(errs, fmt.Errorf("failed to destroy ONNX session: %w", err))
			}
			h.session = nil
		}
		if h.ownsRuntime {
			if err := releaseRuntime(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
