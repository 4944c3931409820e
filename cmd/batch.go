package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/nexus-cli/internal/ingest"
	"github.com/sells-group/nexus-cli/internal/model"
	"github.com/sells-group/nexus-cli/internal/pipeline"
)

var (
	batchOutDir      string
	batchConcurrency int
	batchFlags       runFlags
)

var batchCmd = &cobra.Command{
	Use:   "batch <glob>...",
	Short: "Analyze many files concurrently",
	Long: `Runs an independent analysis for every CSV, XLSX, or XLS file matched by the
given paths or glob patterns and writes one scored CSV per file to --out-dir.
A failing file is logged and counted; it never stops the other files.

Examples:
  nexus batch 'exports/*.csv' 'exports/*.xlsx' --out-dir scored
  nexus batch a.csv b.xls --concurrency 2`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		batchFlags.apply(cmd, cfg)
		if cmd.Flags().Changed("concurrency") {
			cfg.Batch.MaxConcurrentFiles = batchConcurrency
		}
		p, err := newPipeline("batch")
		if err != nil {
			return err
		}

		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return eris.New("batch: no .csv, .xlsx or .xls files matched")
		}
		if err := os.MkdirAll(batchOutDir, 0o755); err != nil {
			return eris.Wrap(err, "batch: create output dir")
		}

		outcomes := runBatch(cmd, p, files, batchOutDir, cfg.Batch.MaxConcurrentFiles)
		writeBatchSummary(cmd.OutOrStdout(), outcomes)

		failed := 0
		for _, o := range outcomes {
			if o.Err != nil {
				failed++
			}
		}
		if failed == len(outcomes) {
			return eris.Errorf("batch: all %d files failed", failed)
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchOutDir, "out-dir", ".", "directory for per-file scored CSV exports")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 4, "max files to analyze concurrently (default from config)")
	batchFlags.register(batchCmd)
	rootCmd.AddCommand(batchCmd)
}

// batchOutcome is the result of one file in a batch.
type batchOutcome struct {
	File    string
	Export  string
	Summary model.Summary
	Err     error
}

// expandInputs resolves paths and glob patterns to a sorted, de-duplicated
// list of supported files.
func expandInputs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pat := range patterns {
		matches, err := filepath.Glob(pat)
		if err != nil {
			return nil, eris.Wrapf(err, "batch: bad pattern %q", pat)
		}
		for _, m := range matches {
			m = filepath.Clean(m)
			if seen[m] || ingest.NormalizeFormat(m) == "" {
				continue
			}
			if info, statErr := os.Stat(m); statErr != nil || info.IsDir() {
				continue
			}
			seen[m] = true
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

// exportPath names the scored CSV for file inside dir.
func exportPath(dir, file string) string {
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	return filepath.Join(dir, base+"_scored.csv")
}

// exportPaths assigns every file its own export path. Files that share a
// base name (q1/ledger.csv, q2/ledger.xlsx) keep the source extension in
// the name and then take a counter, so concurrent runs never write the same
// file. Names are compared case-insensitively.
func exportPaths(dir string, files []string) []string {
	used := make(map[string]bool, len(files))
	paths := make([]string, len(files))
	for i, file := range files {
		path := exportPath(dir, file)
		if used[strings.ToLower(path)] {
			base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
			ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(file)), ".")
			path = filepath.Join(dir, base+"_"+ext+"_scored.csv")
			for n := 2; used[strings.ToLower(path)]; n++ {
				path = filepath.Join(dir, fmt.Sprintf("%s_%s_%d_scored.csv", base, ext, n))
			}
		}
		used[strings.ToLower(path)] = true
		paths[i] = path
	}
	return paths
}

func runBatch(cmd *cobra.Command, p *pipeline.Pipeline, files []string, outDir string, concurrency int) []batchOutcome {
	outcomes := make([]batchOutcome, len(files))
	exports := exportPaths(outDir, files)

	g, gCtx := errgroup.WithContext(cmd.Context())
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64
	for i, file := range files {
		g.Go(func() error {
			outcomes[i] = batchOutcome{File: file}

			data, err := os.ReadFile(file)
			if err == nil {
				var res *pipeline.Result
				res, err = p.Run(gCtx, file, data)
				if err == nil {
					outcomes[i].Summary = res.Summary()
					outcomes[i].Export = exports[i]
					err = res.WriteCSVFile(outcomes[i].Export)
				}
			}

			if err != nil {
				failed.Add(1)
				outcomes[i].Err = err
				outcomes[i].Export = ""
				zap.L().Error("batch: file failed", zap.String("file", file), zap.Error(err))
				return nil // don't abort batch on individual failure
			}
			succeeded.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("batch: complete",
		zap.Int("total", len(files)),
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return outcomes
}

func writeBatchSummary(w io.Writer, outcomes []batchOutcome) {
	fmt.Fprintln(w, "| File | Records | Anomalies | High Risk | Export |")
	fmt.Fprintln(w, "|---|---|---|---|---|")
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Fprintf(w, "| %s | - | - | - | failed: %s |\n", o.File, o.Err)
			continue
		}
		fmt.Fprintf(w, "| %s | %d | %d | %d | %s |\n",
			o.File, o.Summary.TotalRecords, o.Summary.Anomalies, o.Summary.HighRisk, o.Export)
	}
}
