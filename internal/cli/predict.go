package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Brownie44l1/classifier-api/internal/cfg"
	"github.com/Brownie44l1/classifier-api/internal/classifier"
	"github.com/Brownie44l1/classifier-api/internal/client"
)

type predictOutput struct {
	Prediction     float64 `json:"prediction"`
	Classification string  `json:"classification"`
}

func newPredictCommand(v *viper.Viper) *cobra.Command {
	var (
		url     string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "predict FEATURE...",
		Short: "Classify one feature vector",
		Long: `Classify one feature vector given as arguments (space or comma separated).
With --url the request goes to a running server, otherwise the model is
loaded locally for a single prediction. Put -- before the features when
any of them is negative.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			features, err := parseFeatures(args)
			if err != nil {
				return err
			}

			var out predictOutput
			if url != "" {
				out, err = predictRemote(cmd.Context(), url, timeout, features)
			} else {
				out, err = predictLocal(v, cmd.ErrOrStderr(), features)
			}
			if err != nil {
				return err
			}
			return writeIndented(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "base URL of a running classifier server")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout for --url")
	return cmd
}

func parseFeatures(args []string) ([]float64, error) {
	var features []float64
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			f, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid feature %q: %w", part, err)
			}
			features = append(features, f)
		}
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("no features given")
	}
	return features, nil
}

func predictRemote(ctx context.Context, url string, timeout time.Duration, features []float64) (predictOutput, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c := client.New(url, timeout)
	if err := c.Ready(ctx); err != nil {
		return predictOutput{}, err
	}
	p, err := c.Predict(ctx, features)
	if err != nil {
		return predictOutput{}, err
	}
	return predictOutput{Prediction: p.Prediction, Classification: p.Classification}, nil
}

func predictLocal(v *viper.Viper, stderr io.Writer, features []float64) (predictOutput, error) {
	s, err := cfg.Load(v)
	if err != nil {
		return predictOutput{}, err
	}
	logger, closer, err := setupLogging(s, stderr)
	if err != nil {
		return predictOutput{}, err
	}
	if closer != nil {
		defer closer.Close()
	}

	lc := classifier.NewLifecycle(lifecycleConfig(s), onnxLoader(s), classifier.WithLogger(logger))
	defer lc.Shutdown()
	if err := lc.Start(); err != nil {
		return predictOutput{}, err
	}

	res, err := lc.Predict(features)
	if err != nil {
		return predictOutput{}, err
	}
	return predictOutput{Prediction: res.Prediction(), Classification: res.ClassName}, nil
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
