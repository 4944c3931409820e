package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", ledgerCSV)
	b := writeFile(t, dir, "b.XLSX", "x")
	writeFile(t, dir, "notes.txt", "x")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.csv"), 0o755))

	files, err := expandInputs([]string{filepath.Join(dir, "*"), a, dir + string(filepath.Separator) + "." + string(filepath.Separator) + "a.csv"})
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, files)

	_, err = expandInputs([]string{"[bad"})
	assert.Error(t, err)
}

func TestExportPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "q3_scored.csv"), exportPath("out", "/data/q3.xlsx"))
	assert.Equal(t, filepath.Join("out", "ledger_scored.csv"), exportPath("out", "ledger.csv"))
}

func TestExportPaths_SharedBaseNames(t *testing.T) {
	files := []string{
		filepath.Join("q1", "ledger.csv"),
		filepath.Join("q2", "ledger.XLSX"),
		filepath.Join("q3", "ledger.csv"),
		filepath.Join("q4", "Ledger.csv"),
		"other.xls",
	}

	assert.Equal(t, []string{
		filepath.Join("out", "ledger_scored.csv"),
		filepath.Join("out", "ledger_xlsx_scored.csv"),
		filepath.Join("out", "ledger_csv_scored.csv"),
		filepath.Join("out", "Ledger_csv_2_scored.csv"),
		filepath.Join("out", "other_scored.csv"),
	}, exportPaths("out", files))
}

func TestBatch_SharedBaseNameKeepsBothExports(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "q1"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "q2"), 0o755))
	writeFile(t, filepath.Join(dir, "q1"), "ledger.csv", ledgerCSV)
	writeFile(t, filepath.Join(dir, "q2"), "ledger.csv", ledgerCSV+"acme,10,11\n")
	outDir := filepath.Join(dir, "scored")

	out, err := executeCommand(t, "batch", filepath.Join(dir, "q*", "ledger.csv"), "--out-dir", outDir, "--concurrency", "2")
	require.NoError(t, err)

	first, err := os.ReadFile(filepath.Join(outDir, "ledger_scored.csv"))
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(outDir, "ledger_csv_scored.csv"))
	require.NoError(t, err)

	assert.Len(t, strings.Split(strings.TrimSpace(string(first)), "\n"), 11)
	assert.Len(t, strings.Split(strings.TrimSpace(string(second)), "\n"), 12)
	assert.Contains(t, out, filepath.Join(outDir, "ledger_csv_scored.csv"))
}

func TestBatch_PartialFailure(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, "jan.csv", ledgerCSV)
	writeFile(t, dir, "feb.csv", ledgerCSV)
	writeFile(t, dir, "broken.csv", "name,amount\na,1\nb,2\n")
	outDir := filepath.Join(dir, "scored")

	out, err := executeCommand(t, "batch", filepath.Join(dir, "*.csv"), "--out-dir", outDir, "--concurrency", "2")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(outDir, "jan_scored.csv"))
	assert.FileExists(t, filepath.Join(outDir, "feb_scored.csv"))
	assert.NoFileExists(t, filepath.Join(outDir, "broken_scored.csv"))

	assert.Contains(t, out, "| File | Records | Anomalies | High Risk | Export |")
	assert.Contains(t, out, "failed:")
	assert.Equal(t, 2, cfg.Batch.MaxConcurrentFiles)
}

func TestBatch_AllFailed(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, "one.csv", "a\n1\n")
	writeFile(t, dir, "two.csv", "a,b\n")

	_, err := executeCommand(t, "batch", filepath.Join(dir, "*.csv"), "--out-dir", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 files failed")
}

func TestBatch_NoMatches(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	_, err := executeCommand(t, "batch", filepath.Join(dir, "*.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .csv")
}

func TestBatch_InvalidConcurrency(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, "jan.csv", ledgerCSV)

	_, err := executeCommand(t, "batch", filepath.Join(dir, "jan.csv"), "--concurrency", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent_files")
}
