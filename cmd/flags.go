package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/nexus-cli/internal/config"
)

// runFlags are the per-invocation overrides shared by analyze and batch.
// Only flags the user actually set replace config values.
type runFlags struct {
	sheet         string
	sheetIndex    int
	delimiter     string
	contamination float64
	seed          int64
	trees         int
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "spreadsheet sheet name (default: first sheet)")
	cmd.Flags().IntVar(&f.sheetIndex, "sheet-index", 0, "0-based spreadsheet sheet index")
	cmd.Flags().StringVar(&f.delimiter, "delimiter", ",", "CSV field delimiter")
	cmd.Flags().Float64Var(&f.contamination, "contamination", 0.02, "expected share of anomalous records")
	cmd.Flags().Int64Var(&f.seed, "seed", 42, "random seed for the isolation forest")
	cmd.Flags().IntVar(&f.trees, "trees", 200, "number of isolation trees")
}

func (f *runFlags) apply(cmd *cobra.Command, c *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("sheet") {
		c.Ingest.Sheet = f.sheet
	}
	if fs.Changed("sheet-index") {
		c.Ingest.SheetIndex = f.sheetIndex
	}
	if fs.Changed("delimiter") {
		c.Ingest.Delimiter = f.delimiter
	}
	if fs.Changed("contamination") {
		c.Scorer.Contamination = f.contamination
	}
	if fs.Changed("seed") {
		c.Scorer.Seed = f.seed
	}
	if fs.Changed("trees") {
		c.Scorer.Trees = f.trees
	}
}
