package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/nexus-cli/internal/config"
	"github.com/sells-group/nexus-cli/internal/pipeline"
	"github.com/sells-group/nexus-cli/internal/scorer"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "nexus",
	Short: "Decision intelligence for tabular data",
	Long:  "Loads CSV and Excel files, flags anomalous records with an isolation forest, scores and tiers risk, and recommends an action per record.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

// newPipeline validates the loaded config for mode and builds a pipeline
// using the default detector.
func newPipeline(mode string) (*pipeline.Pipeline, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	if err := scorer.ValidateConfig(cfg.Scorer); err != nil {
		return nil, err
	}
	return pipeline.New(cfg, nil), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
