// Package cli implements the classifier-api command line.
package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Brownie44l1/classifier-api/internal/cfg"
)

// NewRootCommand builds the command tree around its own viper instance.
func NewRootCommand() *cobra.Command {
	v := cfg.New()
	var cfgFile, envFile string

	root := &cobra.Command{
		Use:   "classifier-api",
		Short: "Serve predictions from an ONNX classifier",
		Long: `classifier-api loads a compiled ONNX classifier and the standard-scaler
parameters it was trained with, then serves predictions over HTTP.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadEnvFile(envFile); err != nil {
				return err
			}
			return cfg.ReadFile(v, cfgFile)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config, ignored if missing")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().String("model", "", "path to the ONNX model")
	root.PersistentFlags().String("preprocessing", "", "path to the scaler preprocessing document")
	root.PersistentFlags().String("runtime-library", "", "path to the onnxruntime shared library")

	// BindPFlag only fails on a nil flag.
	_ = v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("model.path", root.PersistentFlags().Lookup("model"))
	_ = v.BindPFlag("model.preprocessing_path", root.PersistentFlags().Lookup("preprocessing"))
	_ = v.BindPFlag("model.runtime_library", root.PersistentFlags().Lookup("runtime-library"))

	root.AddCommand(newServeCommand(v))
	root.AddCommand(newPredictCommand(v))
	root.AddCommand(newInspectCommand(v))
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}
