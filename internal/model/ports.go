package model

import (
	"fmt"
	"strings"

	ort "github.com/yalue/onnxruntime_go"
)

// Port describes one named input or output of the inference graph.
type Port struct {
	Name        string  `json:"name"`
	ValueType   string  `json:"value_type"`
	ElementType string  `json:"element_type,omitempty"`
	Dimensions  []int64 `json:"dimensions,omitempty"`
}

// Ports lists every port of a graph.
type Ports struct {
	Inputs  []Port `json:"inputs"`
	Outputs []Port `json:"outputs"`
}

func newPort(info ort.InputOutputInfo) Port {
	p := Port{
		Name:      info.Name,
		ValueType: info.OrtValueType.String(),
	}
	if info.OrtValueType == ort.ONNXTypeTensor {
		p.ElementType = info.DataType.String()
		p.Dimensions = append([]int64(nil), info.Dimensions...)
	}
	return p
}

func newPorts(inputs, outputs []ort.InputOutputInfo) Ports {
	ps := Ports{
		Inputs:  make([]Port, 0, len(inputs)),
		Outputs: make([]Port, 0, len(outputs)),
	}
	for _, in := range inputs {
		ps.Inputs = append(ps.Inputs, newPort(in))
	}
	for _, out := range outputs {
		ps.Outputs = append(ps.Outputs, newPort(out))
	}
	return ps
}

// resolvePorts enforces the single-input, single-output shape of the graph.
// A statically sized feature dimension on the input must equal width.
func resolvePorts(inputs, outputs []ort.InputOutputInfo, width int) (in, out ort.InputOutputInfo, err error) {
	if len(inputs) != 1 {
		return in, out, fmt.Errorf("graph must expose exactly one input port, found %d%s", len(inputs), portNames(inputs))
	}
	if len(outputs) != 1 {
		return in, out, fmt.Errorf("graph must expose exactly one output port, found %d%s", len(outputs), portNames(outputs))
	}
	in, out = inputs[0], outputs[0]

	if in.OrtValueType != ort.ONNXTypeTensor {
		return in, out, fmt.Errorf("input port %q is a %s, expected a tensor", in.Name, in.OrtValueType)
	}
	if dims := in.Dimensions; len(dims) == 2 && dims[1] > 0 && dims[1] != int64(width) {
		return in, out, fmt.Errorf("input port %q expects %d features, configured for %d", in.Name, dims[1], width)
	}
	return in, out, nil
}

func portNames(infos []ort.InputOutputInfo) string {
	if len(infos) == 0 {
		return ""
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	return " (" + strings.Join(names, ", ") + ")"
}
