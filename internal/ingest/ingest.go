// Package ingest turns raw CSV, XLSX, and XLS uploads into cleaned record tables.
package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/nexus-cli/internal/config"
	"github.com/sells-group/nexus-cli/internal/model"
)

// Supported upload formats.
const (
	FormatCSV  = ".csv"
	FormatXLSX = ".xlsx"
	FormatXLS  = ".xls"
)

// DefaultTextFill replaces missing text cells.
const DefaultTextFill = "Unknown"

// Options configures parsing and gap filling.
type Options struct {
	Delimiter  rune     // CSV only; default ','
	Sheet      string   // spreadsheet sheet name; overrides SheetIndex
	SheetIndex int      // 0-based spreadsheet sheet index
	MaxRows    int      // data rows to keep; 0 means unlimited
	NATokens   []string // cell values treated as missing besides blanks
	TextFill   string   // default DefaultTextFill
}

// OptionsFromConfig builds Options from the ingest section of the config.
func OptionsFromConfig(c config.IngestConfig) Options {
	opts := Options{
		Sheet:      c.Sheet,
		SheetIndex: c.SheetIndex,
		MaxRows:    c.MaxRows,
		NATokens:   c.NATokens,
		TextFill:   c.TextFill,
	}
	if r := []rune(c.Delimiter); len(r) == 1 {
		opts.Delimiter = r[0]
	}
	return opts
}

// Stats describes what cleaning did to a table.
type Stats struct {
	Format         string         `json:"format"`
	RowsRead       int            `json:"rows_read"`
	DroppedColumns []string       `json:"dropped_columns,omitempty"`
	Imputed        map[string]int `json:"imputed,omitempty"` // column -> cells filled
}

// NormalizeFormat maps a file name or extension to one of the supported
// format constants. It returns "" for anything else.
func NormalizeFormat(nameOrExt string) string {
	ext := strings.ToLower(strings.TrimSpace(nameOrExt))
	if e := filepath.Ext(ext); e != "" {
		ext = e
	} else if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	switch ext {
	case FormatCSV, FormatXLSX, FormatXLS:
		return ext
	default:
		return ""
	}
}

// Load parses data in the declared format and returns a cleaned table.
func Load(data []byte, ext string, opts Options) (*model.Table, error) {
	t, _, err := LoadWithStats(data, ext, opts)
	return t, err
}

// LoadWithStats is Load that also reports dropped columns and imputed cells.
func LoadWithStats(data []byte, ext string, opts Options) (*model.Table, *Stats, error) {
	format := NormalizeFormat(ext)
	if format == "" {
		return nil, nil, model.NewFormatError(ext, fmt.Errorf("unsupported file type (want .csv, .xlsx or .xls)"))
	}
	if len(data) == 0 {
		return nil, nil, model.NewFormatError(format, fmt.Errorf("empty file"))
	}

	var (
		records [][]string
		err     error
	)
	switch format {
	case FormatCSV:
		records, err = readCSV(data, opts.Delimiter)
	case FormatXLSX:
		records, err = readXLSX(data, opts)
	case FormatXLS:
		records, err = readXLS(data, opts)
	}
	if err != nil {
		if model.IsFormatError(err) {
			return nil, nil, err
		}
		return nil, nil, model.NewFormatError(format, err)
	}

	raw, err := buildRaw(records, opts)
	if err != nil {
		var fe *model.FormatError
		if errors.As(err, &fe) && fe.Source == "" {
			fe.Source = format
		}
		return nil, nil, err
	}

	stats := &Stats{Format: format, RowsRead: raw.NumRows()}
	t, dropped := DropEmptyColumns(raw)
	stats.DroppedColumns = dropped
	if t.NumCols() == 0 {
		return nil, nil, &model.InsufficientDataError{Reason: "every column is empty"}
	}

	imputed, err := Impute(t, opts.TextFill)
	if err != nil {
		return nil, nil, eris.Wrap(err, "ingest: impute")
	}
	stats.Imputed = imputed

	zap.L().Debug("ingest: table loaded",
		zap.String("format", format),
		zap.Int("rows", t.NumRows()),
		zap.Int("columns", t.NumCols()),
		zap.Int("numeric_columns", len(t.NumericColumns())),
		zap.Strings("dropped", dropped),
	)

	return t, stats, nil
}
