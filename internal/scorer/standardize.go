package scorer

import (
	"gonum.org/v1/gonum/stat"
)

// Standardize returns z-scores of x column by column, using the population
// mean and standard deviation. Columns with zero spread become all zeros.
// x is row-major and is not modified.
func Standardize(x [][]float64) [][]float64 {
	z := make([][]float64, len(x))
	if len(x) == 0 {
		return z
	}
	d := len(x[0])
	for i := range z {
		z[i] = make([]float64, d)
	}

	col := make([]float64, len(x))
	for j := 0; j < d; j++ {
		for i := range x {
			col[i] = x[i][j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			continue
		}
		for i := range x {
			z[i][j] = (x[i][j] - mean) / std
		}
	}
	return z
}
