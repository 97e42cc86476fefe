package correlate

import (
	"fmt"
	"math"

	"crypto-market-lab/internal/domain"
)

// Matrix is a labeled square correlation matrix. Values[i][j] is the Pearson
// correlation of Labels[i] and Labels[j]; cells without enough overlapping
// observations hold NaN.
type Matrix struct {
	Labels []string
	Values [][]float64
}

// Empty reports whether the matrix has no labels.
func (m Matrix) Empty() bool { return len(m.Labels) == 0 }

// pearson computes the Pearson correlation over the pairwise-complete
// observations of x and y. Fewer than two complete pairs, or a constant
// column, yields NaN.
func pearson(x, y []float64) float64 {
	var n int
	var sumX, sumY float64
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		n++
		sumX += x[i]
		sumY += y[i]
	}
	if n < 2 {
		return math.NaN()
	}
	meanX, meanY := sumX/float64(n), sumY/float64(n)

	var cov, varX, varY float64
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		dx, dy := x[i]-meanX, y[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(varX*varY)
}

// Pearson computes the pairwise correlation matrix over the named columns of
// the frame, or over all columns when none are named. The diagonal is 1.
func Pearson(f domain.Frame, cols ...string) Matrix {
	if len(cols) == 0 {
		cols = f.Columns
	}
	labels := make([]string, 0, len(cols))
	for _, name := range cols {
		if f.HasColumn(name) {
			labels = append(labels, name)
		}
	}

	values := make([][]float64, len(labels))
	for i := range values {
		values[i] = make([]float64, len(labels))
	}
	for i, a := range labels {
		values[i][i] = 1
		for j := i + 1; j < len(labels); j++ {
			r := pearson(f.Column(a), f.Column(labels[j]))
			values[i][j] = r
			values[j][i] = r
		}
	}
	return Matrix{Labels: labels, Values: values}
}

// Annotate returns a copy of the matrix with crypto labels rewritten as
// "SYM (Category)". Traditional indices and category aggregates keep their
// plain names.
func (m Matrix) Annotate(categories domain.CategoryMap) Matrix {
	labels := make([]string, len(m.Labels))
	for i, name := range m.Labels {
		if isTraditional(name) || IsCategoryIndex(name) {
			labels[i] = name
			continue
		}
		labels[i] = fmt.Sprintf("%s (%s)", name, categories.CategoryOf(name))
	}
	return Matrix{Labels: labels, Values: m.Values}
}

// CryptoMatrix computes the correlation matrix over the crypto columns plus
// their category aggregates, with crypto labels annotated by category.
func CryptoMatrix(aligned domain.Frame, categories domain.CategoryMap) Matrix {
	withIndexes := AddCategoryIndexes(Returns(aligned), categories)

	cols := make([]string, 0, len(withIndexes.Columns))
	for _, name := range withIndexes.Columns {
		if !isTraditional(name) {
			cols = append(cols, name)
		}
	}
	return Pearson(withIndexes, cols...).Annotate(categories)
}

// MarketMatrix computes the full correlation matrix over every column of the
// aligned frame plus the category aggregates, with crypto labels annotated by
// category.
func MarketMatrix(aligned domain.Frame, categories domain.CategoryMap) Matrix {
	return Pearson(AddCategoryIndexes(Returns(aligned), categories)).Annotate(categories)
}

// CategoryMatrix aggregates crypto returns into per-category index columns
// and correlates them with the traditional indices.
func CategoryMatrix(aligned domain.Frame, categories domain.CategoryMap) Matrix {
	returns := Returns(aligned)
	withIndexes := AddCategoryIndexes(returns, categories)

	cols := make([]string, 0, len(withIndexes.Columns))
	for _, name := range withIndexes.Columns {
		if IsCategoryIndex(name) || isTraditional(name) {
			cols = append(cols, name)
		}
	}
	return Pearson(withIndexes, cols...)
}
