package pipeline

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/nexus-cli/internal/model"
)

// ExportTable returns the cleaned table with anomaly_flag, risk_score,
// risk_tier, and automation_action appended.
func (r *Result) ExportTable() *model.Table {
	out := r.Scored.Augmented()
	out.Columns = append(out.Columns, model.Column{Name: model.ColAutomationAction, Kind: model.ColumnText})
	for i, rec := range r.Recommendations {
		out.Rows[i] = append(out.Rows[i], model.Text(rec.Action))
	}
	return out
}

// ExportCSV writes the export table as UTF-8 CSV with a header row.
func (r *Result) ExportCSV(w io.Writer) error {
	t := r.ExportTable()

	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header()); err != nil {
		return eris.Wrap(err, "export: write header")
	}

	record := make([]string, t.NumCols())
	for _, row := range t.Rows {
		for j, v := range row {
			record[j] = v.String()
		}
		if err := cw.Write(record); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush")
}

// WriteCSVFile writes the export to outputPath, replacing any existing file.
func (r *Result) WriteCSVFile(outputPath string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return eris.Wrap(err, "export: create file")
	}

	if err := r.ExportCSV(f); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrap(f.Close(), "export: close file")
}
