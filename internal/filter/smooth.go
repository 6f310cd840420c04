package filter

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// movingAverage smooths each row with a centered uniform window,
// reflecting samples at the edges
func movingAverage(block *mat.Dense, size int) *mat.Dense {
	if size < 1 {
		size = 1
	}
	rows, cols := block.Dims()
	out := mat.NewDense(rows, cols, nil)
	left := size / 2
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, block)
		for c := 0; c < cols; c++ {
			acc := 0.0
			for k := 0; k < size; k++ {
				acc += row[reflectIndex(c-left+k, cols)]
			}
			out.Set(i, c, acc/float64(size))
		}
	}
	return out
}

// gaussianSmooth convolves each row with a truncated gaussian kernel
// (radius 4*sigma), reflecting samples at the edges
func gaussianSmooth(block *mat.Dense, sigma float64) *mat.Dense {
	if sigma <= 0 {
		return mat.DenseCopyOf(block)
	}
	radius := int(4*sigma + 0.5)
	kernel := make([]float64, 2*radius+1)
	sum := 0.0
	for k := -radius; k <= radius; k++ {
		w := math.Exp(-float64(k*k) / (2 * sigma * sigma))
		kernel[k+radius] = w
		sum += w
	}
	for k := range kernel {
		kernel[k] /= sum
	}

	rows, cols := block.Dims()
	out := mat.NewDense(rows, cols, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, block)
		for c := 0; c < cols; c++ {
			acc := 0.0
			for k := -radius; k <= radius; k++ {
				acc += kernel[k+radius] * row[reflectIndex(c+k, cols)]
			}
			out.Set(i, c, acc)
		}
	}
	return out
}

// medianSmooth replaces each sample with the median of its centered
// window, reflecting samples at the edges
func medianSmooth(block *mat.Dense, size int) *mat.Dense {
	if size < 1 {
		size = 1
	}
	rows, cols := block.Dims()
	out := mat.NewDense(rows, cols, nil)
	left := size / 2
	row := make([]float64, cols)
	window := make([]float64, size)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, block)
		for c := 0; c < cols; c++ {
			for k := 0; k < size; k++ {
				window[k] = row[reflectIndex(c-left+k, cols)]
			}
			sort.Float64s(window)
			m := window[size/2]
			if size%2 == 0 {
				m = (window[size/2-1] + window[size/2]) / 2
			}
			out.Set(i, c, m)
		}
	}
	return out
}
