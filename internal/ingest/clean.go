package ingest

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/sells-group/nexus-cli/internal/model"
)

// buildRaw turns string records into a typed table that may still contain
// missing cells. The first non-blank record is the header.
func buildRaw(records [][]string, opts Options) (*model.Table, error) {
	start := -1
	for i, rec := range records {
		if !blankRecord(rec) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, model.NewFormatError("", fmt.Errorf("no header row"))
	}

	header := headerNames(records[start])
	ncol := len(header)

	na := naSet(opts.NATokens)
	var cells [][]string
	for i := start + 1; i < len(records); i++ {
		rec := records[i]
		if blankRecord(rec) {
			continue
		}
		if opts.MaxRows > 0 && len(cells) >= opts.MaxRows {
			break
		}
		if len(rec) > ncol {
			for _, extra := range rec[ncol:] {
				if strings.TrimSpace(extra) != "" {
					return nil, model.NewFormatError("", fmt.Errorf("row %d: expected %d fields, saw %d", i+1, ncol, len(rec)))
				}
			}
			rec = rec[:ncol]
		}
		row := make([]string, ncol)
		for j := range rec {
			v := strings.TrimSpace(rec[j])
			if _, missing := na[v]; missing {
				v = ""
			}
			row[j] = v
		}
		cells = append(cells, row)
	}
	if len(cells) == 0 {
		return nil, &model.InsufficientDataError{Reason: "header has no data rows"}
	}

	t := &model.Table{Columns: make([]model.Column, ncol), Rows: make([][]model.Value, len(cells))}
	for i := range cells {
		t.Rows[i] = make([]model.Value, ncol)
	}
	for j, name := range header {
		kind := inferKind(cells, j)
		t.Columns[j] = model.Column{Name: name, Kind: kind}
		for i, row := range cells {
			v := row[j]
			switch {
			case v == "":
				t.Rows[i][j] = model.Missing()
			case kind == model.ColumnNumeric:
				f, _ := parseNumber(v)
				t.Rows[i][j] = model.Number(f)
			default:
				t.Rows[i][j] = model.Text(v)
			}
		}
	}
	return t, nil
}

// inferKind reports numeric when every non-missing cell parses as a finite
// number. Columns with no values are reported as text and dropped later.
func inferKind(cells [][]string, j int) model.ColumnKind {
	seen := false
	for _, row := range cells {
		if row[j] == "" {
			continue
		}
		if _, ok := parseNumber(row[j]); !ok {
			return model.ColumnText
		}
		seen = true
	}
	if !seen {
		return model.ColumnText
	}
	return model.ColumnNumeric
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// headerNames trims header cells, names blank ones "Unnamed: i" and
// suffixes repeats with ".1", ".2", ...
func headerNames(rec []string) []string {
	names := make([]string, len(rec))
	seen := make(map[string]bool, len(rec))
	suffix := make(map[string]int)
	for i, h := range rec {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if seen[name] {
			base := name
			for seen[name] {
				suffix[base]++
				name = fmt.Sprintf("%s.%d", base, suffix[base])
			}
		}
		seen[name] = true
		names[i] = name
	}
	return names
}

func blankRecord(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func naSet(tokens []string) map[string]struct{} {
	set := map[string]struct{}{"": {}}
	for _, tok := range tokens {
		set[strings.TrimSpace(tok)] = struct{}{}
	}
	return set
}

// DropEmptyColumns returns a copy of t without columns whose every cell is
// missing, plus the names of the dropped columns.
func DropEmptyColumns(t *model.Table) (*model.Table, []string) {
	keep := make([]int, 0, t.NumCols())
	var dropped []string
	for j, col := range t.Columns {
		empty := true
		for _, row := range t.Rows {
			if !row[j].IsMissing() {
				empty = false
				break
			}
		}
		if empty {
			dropped = append(dropped, col.Name)
			continue
		}
		keep = append(keep, j)
	}

	out := &model.Table{Columns: make([]model.Column, len(keep)), Rows: make([][]model.Value, len(t.Rows))}
	for k, j := range keep {
		out.Columns[k] = t.Columns[j]
	}
	for i, row := range t.Rows {
		r := make([]model.Value, len(keep))
		for k, j := range keep {
			r[k] = row[j]
		}
		out.Rows[i] = r
	}
	return out, dropped
}

// Impute fills missing cells in place: numeric columns with their median,
// text columns with fill (DefaultTextFill when empty). A numeric column with
// no values at all has no median and yields an InsufficientDataError.
func Impute(t *model.Table, fill string) (map[string]int, error) {
	if fill == "" {
		fill = DefaultTextFill
	}
	counts := make(map[string]int)
	for j, col := range t.Columns {
		var missing []int
		var present []float64
		for i, row := range t.Rows {
			if row[j].IsMissing() {
				missing = append(missing, i)
			} else if col.Kind == model.ColumnNumeric {
				present = append(present, row[j].Num)
			}
		}
		if len(missing) == 0 {
			continue
		}

		var v model.Value
		if col.Kind == model.ColumnNumeric {
			if len(present) == 0 {
				return nil, &model.InsufficientDataError{Column: col.Name, Reason: "numeric column has no values to take a median from"}
			}
			v = model.Number(Median(present))
		} else {
			v = model.Text(fill)
		}
		for _, i := range missing {
			t.Rows[i][j] = v
		}
		counts[col.Name] = len(missing)
	}
	return counts, nil
}

// Median returns the middle value of vals, averaging the two middle values
// for even lengths. vals is not modified.
func Median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	mid := len(cp) / 2
	if len(cp)%2 == 1 {
		return cp[mid]
	}
	return (cp[mid-1] + cp[mid]) / 2
}
