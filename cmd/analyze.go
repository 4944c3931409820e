package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/nexus-cli/internal/model"
	"github.com/sells-group/nexus-cli/internal/pipeline"
)

var (
	analyzeMode    string
	analyzeFormat  string
	analyzeExport  string
	analyzePreview int
	analyzeLimit   int
	analyzeFlags   runFlags
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze one CSV, XLSX, or XLS file",
	Long: `Loads a data file, flags anomalies, scores and tiers risk, and prints a report.

Examples:
  # Executive overview as markdown
  nexus analyze ledger.csv

  # Top risky records as JSON, plus a scored CSV export
  nexus analyze ledger.xlsx --mode risk --format json --export ledger_scored.csv

  # Second sheet of a legacy workbook, different seed
  nexus analyze q3.xls --sheet-index 1 --seed 7`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := pipeline.ParseMode(analyzeMode)
		if err != nil {
			return err
		}
		if err := validateOutputFormat(analyzeFormat); err != nil {
			return err
		}

		analyzeFlags.apply(cmd, cfg)
		p, err := newPipeline("analyze")
		if err != nil {
			return err
		}

		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return eris.Wrapf(err, "analyze: read %s", path)
		}

		res, err := p.Run(cmd.Context(), path, data)
		if err != nil {
			return err
		}

		if analyzeExport != "" {
			if err := res.WriteCSVFile(analyzeExport); err != nil {
				return err
			}
			zap.L().Info("analyze: export written", zap.String("path", analyzeExport))
		}

		return writeResult(cmd.OutOrStdout(), res, mode, analyzeFormat, analyzeLimit, analyzePreview)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeMode, "mode", "overview", "report mode: overview, risk, or automation")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "text", "output format: text, json, or yaml")
	analyzeCmd.Flags().StringVar(&analyzeExport, "export", "", "write the scored table as CSV to this path")
	analyzeCmd.Flags().IntVar(&analyzePreview, "preview", 0, "print the first N cleaned rows (text format only)")
	analyzeCmd.Flags().IntVar(&analyzeLimit, "limit", 0, "max high-risk records in json/yaml output (default from config)")
	analyzeFlags.register(analyzeCmd)
	rootCmd.AddCommand(analyzeCmd)
}

func validateOutputFormat(format string) error {
	switch format {
	case "text", "json", "yaml":
		return nil
	default:
		return eris.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}

// writeResult prints a run in the requested format.
func writeResult(w io.Writer, res *pipeline.Result, mode pipeline.Mode, format string, limit, preview int) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(res.Digest(limit)), "analyze: encode json")
	case "yaml":
		out, err := yaml.Marshal(res.Digest(limit))
		if err != nil {
			return eris.Wrap(err, "analyze: encode yaml")
		}
		_, err = w.Write(out)
		return err
	default:
		if preview > 0 {
			fmt.Fprintf(w, "## Data Preview\n%s\n", markdownTable(res.Preview(preview)))
		}
		_, err := io.WriteString(w, res.FormatReport(mode))
		return err
	}
}

func markdownTable(t *model.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "| %s |\n", strings.Join(t.Header(), " | "))
	fmt.Fprintf(&b, "|%s\n", strings.Repeat("---|", t.NumCols()))
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = strings.ReplaceAll(v.String(), "|", `\|`)
		}
		fmt.Fprintf(&b, "| %s |\n", strings.Join(cells, " | "))
	}
	return b.String()
}
