package cfg

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CLASSIFIER_MODEL_PATH.
const EnvPrefix = "CLASSIFIER"

type Settings struct {
	Server     Server
	Model      Model
	Classifier Classifier
	Log        Log
	Metrics    Metrics
}

type Server struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Model struct {
	Path              string
	PreprocessingPath string
	RuntimeLibrary    string
	IntraOpThreads    int
	InterOpThreads    int
}

type Classifier struct {
	Features int
	Classes  []string
}

type Log struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type Metrics struct {
	Enabled bool
}

// SetDefaults installs the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("model.path", "models/sklearn_classifier.onnx")
	v.SetDefault("model.preprocessing_path", "models/sklearn_preprocessing.json")
	v.SetDefault("model.runtime_library", "")
	v.SetDefault("model.intra_op_threads", 0)
	v.SetDefault("model.inter_op_threads", 0)

	v.SetDefault("classifier.features", 10)
	v.SetDefault("classifier.classes", []string{"A", "B", "C", "D"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("metrics.enabled", true)
}

// BindEnv makes every key overridable from CLASSIFIER_* variables.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// New returns a viper instance with defaults and env binding.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	return v
}

// ReadFile merges the config file at path into v. Format is taken from the
// file extension.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

// Load resolves Settings from v and validates them.
func Load(v *viper.Viper) (Settings, error) {
	s := Settings{
		Server: Server{
			Addr:            v.GetString("server.addr"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Model: Model{
			Path:              v.GetString("model.path"),
			PreprocessingPath: v.GetString("model.preprocessing_path"),
			RuntimeLibrary:    v.GetString("model.runtime_library"),
			IntraOpThreads:    v.GetInt("model.intra_op_threads"),
			InterOpThreads:    v.GetInt("model.inter_op_threads"),
		},
		Classifier: Classifier{
			Features: v.GetInt("classifier.features"),
			Classes:  splitClasses(v.GetStringSlice("classifier.classes")),
		},
		Log: Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			File:       v.GetString("log.file"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAgeDays: v.GetInt("log.max_age_days"),
		},
		Metrics: Metrics{
			Enabled: v.GetBool("metrics.enabled"),
		},
	}

	if err := validateSettings(&s); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return s, nil
}

// splitClasses accepts both a YAML list and a comma separated env value.
func splitClasses(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func validateSettings(s *Settings) error {
	if s.Server.Addr == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if s.Server.ReadTimeout < time.Second || s.Server.ReadTimeout > 5*time.Minute {
		return fmt.Errorf("read timeout must be between 1s and 5m, got %v", s.Server.ReadTimeout)
	}
	if s.Server.WriteTimeout < time.Second || s.Server.WriteTimeout > 5*time.Minute {
		return fmt.Errorf("write timeout must be between 1s and 5m, got %v", s.Server.WriteTimeout)
	}
	if s.Server.ShutdownTimeout < time.Second || s.Server.ShutdownTimeout > 5*time.Minute {
		return fmt.Errorf("shutdown timeout must be between 1s and 5m, got %v", s.Server.ShutdownTimeout)
	}

	if s.Model.Path == "" {
		return fmt.Errorf("model path cannot be empty")
	}
	if s.Model.PreprocessingPath == "" {
		return fmt.Errorf("preprocessing path cannot be empty")
	}
	if s.Model.IntraOpThreads < 0 || s.Model.IntraOpThreads > 256 {
		return fmt.Errorf("intra-op threads must be between 0 and 256, got %d", s.Model.IntraOpThreads)
	}
	if s.Model.InterOpThreads < 0 || s.Model.InterOpThreads > 256 {
		return fmt.Errorf("inter-op threads must be between 0 and 256, got %d", s.Model.InterOpThreads)
	}

	if s.Classifier.Features <= 0 || s.Classifier.Features > 10000 {
		return fmt.Errorf("feature count must be between 1 and 10000, got %d", s.Classifier.Features)
	}
	if len(s.Classifier.Classes) == 0 {
		return fmt.Errorf("at least one class name must be specified")
	}

	switch s.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log format must be console or json, got %q", s.Log.Format)
	}
	if s.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("log max size must be positive, got %d", s.Log.MaxSizeMB)
	}
	if s.Log.MaxBackups < 0 || s.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log retention values cannot be negative")
	}

	return nil
}
