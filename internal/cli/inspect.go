package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Brownie44l1/classifier-api/internal/cfg"
	"github.com/Brownie44l1/classifier-api/internal/model"
)

func newInspectCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "List the input and output ports of the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := cfg.Load(v)
			if err != nil {
				return err
			}
			artifact, err := os.ReadFile(s.Model.Path)
			if err != nil {
				return fmt.Errorf("failed to read model %s: %w", s.Model.Path, err)
			}
			ports, err := model.Inspect(artifact, s.Model.RuntimeLibrary)
			if err != nil {
				return err
			}
			return writeIndented(cmd.OutOrStdout(), ports)
		},
	}
}
