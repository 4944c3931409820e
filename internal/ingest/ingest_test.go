package ingest

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/nexus-cli/internal/config"
	"github.com/sells-group/nexus-cli/internal/model"
)

func defaultOpts() Options {
	return OptionsFromConfig(config.Defaults().Ingest)
}

func createTestXLSX(t *testing.T, sheets map[string][][]string) []byte {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				cell := row.AddCell()
				cell.SetString(cellData)
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func colValues(t *testing.T, tbl *model.Table, name string) []model.Value {
	t.Helper()
	j := tbl.ColumnIndex(name)
	require.GreaterOrEqual(t, j, 0, "column %q not found", name)
	out := make([]model.Value, tbl.NumRows())
	for i, row := range tbl.Rows {
		out[i] = row[j]
	}
	return out
}

func TestNormalizeFormat(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"data.csv", FormatCSV},
		{"DATA.CSV", FormatCSV},
		{".xlsx", FormatXLSX},
		{"xls", FormatXLS},
		{"/tmp/reports/q3.XLS", FormatXLS},
		{"notes.txt", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeFormat(tt.in))
		})
	}
}

func TestLoadCSV_TypesAndImputation(t *testing.T) {
	data := "id,amount,region,empty,score\n" +
		"1,10,north,,0.5\n" +
		"2,,south,,1.5\n" +
		"3,30,,,\n" +
		"4,40,east,,2.5\n"

	tbl, stats, err := LoadWithStats([]byte(data), "upload.csv", defaultOpts())
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "amount", "region", "score"}, tbl.Header())
	assert.Equal(t, []string{"empty"}, stats.DroppedColumns)
	assert.Equal(t, 4, stats.RowsRead)
	assert.Equal(t, map[string]int{"amount": 1, "region": 1, "score": 1}, stats.Imputed)

	assert.Equal(t, model.ColumnNumeric, tbl.Columns[0].Kind)
	assert.Equal(t, model.ColumnNumeric, tbl.Columns[1].Kind)
	assert.Equal(t, model.ColumnText, tbl.Columns[2].Kind)

	// Median of 10, 30, 40.
	assert.Equal(t, model.Number(30), colValues(t, tbl, "amount")[1])
	// Median of 0.5, 1.5, 2.5.
	assert.Equal(t, model.Number(1.5), colValues(t, tbl, "score")[2])
	assert.Equal(t, model.Text("Unknown"), colValues(t, tbl, "region")[2])
}

func TestLoadCSV_NoMissingCellsAfterIngest(t *testing.T) {
	data := "a,b,c\n1,x,\n,NA,3\n5,,N/A\n7,y,9\n"

	tbl, err := Load([]byte(data), ".csv", defaultOpts())
	require.NoError(t, err)

	for i, row := range tbl.Rows {
		for j, v := range row {
			assert.False(t, v.IsMissing(), "row %d col %s missing", i, tbl.Columns[j].Name)
		}
	}
	assert.Equal(t, model.Number(5), colValues(t, tbl, "a")[1])
	assert.Equal(t, model.Number(6), colValues(t, tbl, "c")[0])
}

func TestLoadCSV_MixedColumnIsText(t *testing.T) {
	data := "code,value\n100,1\nA7,2\n300,3\n"

	tbl, err := Load([]byte(data), "csv", defaultOpts())
	require.NoError(t, err)

	assert.Equal(t, model.ColumnText, tbl.Columns[0].Kind)
	assert.Equal(t, model.Text("100"), tbl.Rows[0][0])
	assert.Equal(t, model.ColumnNumeric, tbl.Columns[1].Kind)
}

func TestLoadCSV_DuplicateAndBlankHeaders(t *testing.T) {
	data := "x,x,,x\n1,2,3,4\n"

	tbl, err := Load([]byte(data), ".csv", defaultOpts())
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "x.1", "Unnamed: 2", "x.2"}, tbl.Header())
}

func TestLoadCSV_UTF8BOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("amount,qty\n1,2\n3,4\n")...)

	tbl, err := Load(data, ".csv", defaultOpts())
	require.NoError(t, err)
	assert.Equal(t, "amount", tbl.Columns[0].Name)
}

func TestLoadCSV_UTF16LE(t *testing.T) {
	text := "amount,qty\n1,2\n3,4\n"
	data := []byte{0xFF, 0xFE}
	for _, r := range text {
		data = append(data, byte(r), 0)
	}

	tbl, err := Load(data, ".csv", defaultOpts())
	require.NoError(t, err)
	assert.Equal(t, []string{"amount", "qty"}, tbl.Header())
	assert.Equal(t, model.Number(3), tbl.Rows[1][0])
}

func TestLoadCSV_Delimiter(t *testing.T) {
	opts := defaultOpts()
	opts.Delimiter = ';'

	tbl, err := Load([]byte("a;b\n1;2\n"), ".csv", opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tbl.Header())
}

func TestLoadCSV_SkipsBlankLinesAndPadsShortRows(t *testing.T) {
	data := "\n\na,b,c\n1,2\n\n4,5,6\n,,\n"

	tbl, err := Load([]byte(data), ".csv", defaultOpts())
	require.NoError(t, err)
	require.Equal(t, 2, tbl.NumRows())
	// c imputed with the median of its only value.
	assert.Equal(t, model.Number(6), tbl.Rows[0][2])
}

func TestLoadCSV_MaxRows(t *testing.T) {
	opts := defaultOpts()
	opts.MaxRows = 2

	tbl, err := Load([]byte("a,b\n1,2\n3,4\n5,6\n"), ".csv", opts)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.NumRows())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		ext    string
		isFmt  bool
		isData bool
	}{
		{"unsupported extension", "a,b\n1,2\n", ".json", true, false},
		{"empty file", "", ".csv", true, false},
		{"only blank lines", "\n\n  \n", ".csv", true, false},
		{"extra fields", "a,b\n1,2,3\n", ".csv", true, false},
		{"header only", "a,b\n", ".csv", false, true},
		{"only NA values", "a,b\nNA,null\n", ".csv", false, true},
		{"garbage xlsx", "not a zip", ".xlsx", true, false},
		{"garbage xls", "not a workbook", ".xls", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.data), tt.ext, defaultOpts())
			require.Error(t, err)
			assert.Equal(t, tt.isFmt, model.IsFormatError(err), "format error: %v", err)
			assert.Equal(t, tt.isData, model.IsInsufficientData(err), "data error: %v", err)
		})
	}
}

func TestLoadCSV_TrailingBlankFieldsAllowed(t *testing.T) {
	tbl, err := Load([]byte("a,b\n1,2,,\n3,4\n"), ".csv", defaultOpts())
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.NumCols())
}

func TestLoadXLSX_Basic(t *testing.T) {
	data := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"Name", "Revenue", "Cost"},
			{"Alice", "100", "40"},
			{"Bob", "", "50"},
			{"Cara", "300", "60"},
		},
	})

	tbl, err := Load(data, "book.xlsx", defaultOpts())
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Revenue", "Cost"}, tbl.Header())
	assert.Equal(t, model.ColumnText, tbl.Columns[0].Kind)
	assert.Equal(t, model.ColumnNumeric, tbl.Columns[1].Kind)
	assert.Equal(t, model.Number(200), tbl.Rows[1][1])
}

func TestLoadXLSX_SheetSelection(t *testing.T) {
	data := createTestXLSX(t, map[string][][]string{
		"Second": {{"x", "y"}, {"1", "2"}},
	})

	opts := defaultOpts()
	opts.Sheet = "Second"
	tbl, err := Load(data, ".xlsx", opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, tbl.Header())

	opts.Sheet = "Missing"
	_, err = Load(data, ".xlsx", opts)
	require.Error(t, err)
	assert.True(t, model.IsFormatError(err))
	assert.True(t, strings.Contains(err.Error(), "Missing"))

	opts.Sheet = ""
	opts.SheetIndex = 3
	_, err = Load(data, ".xlsx", opts)
	assert.True(t, model.IsFormatError(err))
}

// readTestXLS loads testdata/ledger.xls, a BIFF8 workbook with a "Ledger"
// sheet (blank cell, absent cell, RK number, missing row 4) and a
// "Summary" sheet.
func readTestXLS(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "ledger.xls"))
	require.NoError(t, err)
	return data
}

func TestLoadXLS_Basic(t *testing.T) {
	tbl, stats, err := LoadWithStats(readTestXLS(t), "ledger.xls", defaultOpts())
	require.NoError(t, err)

	assert.Equal(t, FormatXLS, stats.Format)
	assert.Equal(t, []string{"vendor", "amount", "qty"}, tbl.Header())
	assert.Equal(t, model.ColumnText, tbl.Columns[0].Kind)
	assert.Equal(t, model.ColumnNumeric, tbl.Columns[1].Kind)
	assert.Equal(t, model.ColumnNumeric, tbl.Columns[2].Kind)

	// Row 4 has no record and is skipped like a blank line.
	require.Equal(t, 4, tbl.NumRows())
	assert.Equal(t, []model.Value{
		model.Text("acme"), model.Text("globex"), model.Text("initech"), model.Text("umbrella"),
	}, colValues(t, tbl, "vendor"))

	// amount: umbrella is a BLANK cell, filled with median(10, 12, 9).
	assert.Equal(t, []model.Value{
		model.Number(10), model.Number(12), model.Number(9), model.Number(10),
	}, colValues(t, tbl, "amount"))

	// qty: globex has no cell at all, filled with median(10, 11, 13).
	assert.Equal(t, []model.Value{
		model.Number(10), model.Number(11), model.Number(11), model.Number(13),
	}, colValues(t, tbl, "qty"))

	assert.Equal(t, map[string]int{"amount": 1, "qty": 1}, stats.Imputed)
}

func TestLoadXLS_SheetSelection(t *testing.T) {
	data := readTestXLS(t)

	tests := []struct {
		name       string
		sheet      string
		sheetIndex int
		header     []string
		rows       int
	}{
		{"default first sheet", "", 0, []string{"vendor", "amount", "qty"}, 4},
		{"by index", "", 1, []string{"region", "total", "count"}, 2},
		{"by name", "Summary", 0, []string{"region", "total", "count"}, 2},
		{"name wins over index", "Ledger", 1, []string{"vendor", "amount", "qty"}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := defaultOpts()
			opts.Sheet = tt.sheet
			opts.SheetIndex = tt.sheetIndex

			tbl, err := Load(data, ".xls", opts)
			require.NoError(t, err)
			assert.Equal(t, tt.header, tbl.Header())
			assert.Equal(t, tt.rows, tbl.NumRows())
		})
	}

	opts := defaultOpts()
	opts.Sheet = "Summary"
	tbl, err := Load(data, ".xls", opts)
	require.NoError(t, err)
	assert.Equal(t, []model.Value{model.Number(1.5), model.Number(3.25)}, colValues(t, tbl, "total"))
}

func TestLoadXLS_SheetErrors(t *testing.T) {
	data := readTestXLS(t)

	opts := defaultOpts()
	opts.Sheet = "Missing"
	_, err := Load(data, ".xls", opts)
	require.Error(t, err)
	assert.True(t, model.IsFormatError(err))
	assert.Contains(t, err.Error(), "Missing")

	opts.Sheet = ""
	opts.SheetIndex = 2
	_, err = Load(data, ".xls", opts)
	require.Error(t, err)
	assert.True(t, model.IsFormatError(err))
	assert.Contains(t, err.Error(), "out of range")
}

func TestDropEmptyColumns(t *testing.T) {
	tbl := &model.Table{
		Columns: []model.Column{{Name: "a", Kind: model.ColumnNumeric}, {Name: "b", Kind: model.ColumnText}},
		Rows: [][]model.Value{
			{model.Number(1), model.Missing()},
			{model.Missing(), model.Missing()},
		},
	}

	out, dropped := DropEmptyColumns(tbl)
	assert.Equal(t, []string{"b"}, dropped)
	assert.Equal(t, []string{"a"}, out.Header())
	assert.Len(t, out.Rows[1], 1)
	// Input is untouched.
	assert.Equal(t, 2, tbl.NumCols())
}

func TestImpute_AllMissingNumericColumnFails(t *testing.T) {
	tbl := &model.Table{
		Columns: []model.Column{{Name: "a", Kind: model.ColumnNumeric}},
		Rows:    [][]model.Value{{model.Missing()}, {model.Missing()}},
	}

	_, err := Impute(tbl, "")
	require.Error(t, err)
	assert.True(t, model.IsInsufficientData(err))
	assert.Contains(t, err.Error(), `"a"`)
}

func TestImpute_CustomTextFill(t *testing.T) {
	tbl := &model.Table{
		Columns: []model.Column{{Name: "region", Kind: model.ColumnText}},
		Rows:    [][]model.Value{{model.Text("x")}, {model.Missing()}},
	}

	counts, err := Impute(tbl, "n/a")
	require.NoError(t, err)
	assert.Equal(t, 1, counts["region"])
	assert.Equal(t, model.Text("n/a"), tbl.Rows[1][0])
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single", []float64{4}, 4},
		{"odd", []float64{9, 1, 5}, 5},
		{"even", []float64{4, 1, 3, 2}, 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Median(tt.in), 1e-12)
		})
	}
}
