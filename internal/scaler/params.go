package scaler

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// preprocessingFile is the document written by the training pipeline.
// JSON exports decode through the YAML parser unchanged.
type preprocessingFile struct {
	Classifier *Params `yaml:"classifier"`
}

// LoadParams reads the scaler statistics from the classifier namespace of
// the preprocessing document at path.
func LoadParams(path string) (Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Params{}, fmt.Errorf("failed to read preprocessing file %s: %w", path, err)
	}
	return ParseParams(data)
}

// ParseParams decodes a preprocessing document held in memory.
func ParseParams(data []byte) (Params, error) {
	var doc preprocessingFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Params{}, fmt.Errorf("failed to parse preprocessing file: %w", err)
	}
	if doc.Classifier == nil {
		return Params{}, fmt.Errorf("preprocessing file has no classifier section")
	}
	if len(doc.Classifier.Mean) == 0 {
		return Params{}, fmt.Errorf("classifier.scaler_mean is missing or empty")
	}
	if len(doc.Classifier.Scale) == 0 {
		return Params{}, fmt.Errorf("classifier.scaler_scale is missing or empty")
	}
	return *doc.Classifier, nil
}
