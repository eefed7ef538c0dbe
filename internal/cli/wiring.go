package cli

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/Brownie44l1/classifier-api/internal/cfg"
	"github.com/Brownie44l1/classifier-api/internal/classifier"
	"github.com/Brownie44l1/classifier-api/internal/logging"
	"github.com/Brownie44l1/classifier-api/internal/model"
)

func setupLogging(s cfg.Settings, stderr io.Writer) (zerolog.Logger, io.Closer, error) {
	return logging.Setup(logging.Options{
		Level:      s.Log.Level,
		Format:     s.Log.Format,
		File:       s.Log.File,
		MaxSizeMB:  s.Log.MaxSizeMB,
		MaxBackups: s.Log.MaxBackups,
		MaxAgeDays: s.Log.MaxAgeDays,
	}, stderr)
}

func lifecycleConfig(s cfg.Settings) classifier.Config {
	return classifier.Config{
		ModelPath:         s.Model.Path,
		PreprocessingPath: s.Model.PreprocessingPath,
		Features:          s.Classifier.Features,
		Classes:           s.Classifier.Classes,
	}
}

// onnxLoader adapts model.Load to the classifier's loader signature.
func onnxLoader(s cfg.Settings) classifier.ModelLoader {
	opts := model.Options{
		SharedLibraryPath: s.Model.RuntimeLibrary,
		Features:          s.Classifier.Features,
		IntraOpThreads:    s.Model.IntraOpThreads,
		InterOpThreads:    s.Model.InterOpThreads,
	}
	return func(artifact []byte) (classifier.Model, error) {
		h, err := model.Load(artifact, opts)
		if err != nil {
			return nil, err
		}
		return h, nil
	}
}
