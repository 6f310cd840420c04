package filter

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// waveletDenoise decomposes each row with a Haar wavelet to the given
// level, soft-thresholds every detail band at half its maximum
// coefficient, and reconstructs. Output keeps the input shape.
func waveletDenoise(block *mat.Dense, level int) *mat.Dense {
	if level < 1 {
		level = 1
	}
	rows, cols := block.Dims()
	out := mat.NewDense(rows, cols, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, block)
		out.SetRow(i, haarDenoiseRow(row, level))
	}
	return out
}

const invSqrt2 = 1 / math.Sqrt2

// haarStep splits a signal into approximation and detail coefficients.
// Odd-length signals are extended by repeating the last sample.
func haarStep(signal []float64) (approx, detail []float64) {
	n := len(signal)
	half := (n + 1) / 2
	approx = make([]float64, half)
	detail = make([]float64, half)
	for k := 0; k < half; k++ {
		a := signal[2*k]
		b := a
		if 2*k+1 < n {
			b = signal[2*k+1]
		}
		approx[k] = (a + b) * invSqrt2
		detail[k] = (a - b) * invSqrt2
	}
	return approx, detail
}

// haarInverse reconstructs a signal of length n from one decomposition step
func haarInverse(approx, detail []float64, n int) []float64 {
	signal := make([]float64, n)
	for k := range approx {
		a := (approx[k] + detail[k]) * invSqrt2
		b := (approx[k] - detail[k]) * invSqrt2
		signal[2*k] = a
		if 2*k+1 < n {
			signal[2*k+1] = b
		}
	}
	return signal
}

func haarDenoiseRow(row []float64, level int) []float64 {
	lengths := make([]int, 0, level)
	details := make([][]float64, 0, level)
	approx := row
	for l := 0; l < level && len(approx) > 1; l++ {
		lengths = append(lengths, len(approx))
		a, d := haarStep(approx)
		details = append(details, d)
		approx = a
	}

	// threshold every non-approximation band at half its maximum
	for _, d := range details {
		maxv := d[0]
		for _, v := range d[1:] {
			if v > maxv {
				maxv = v
			}
		}
		softThreshold(d, 0.5*maxv)
	}

	for l := len(details) - 1; l >= 0; l-- {
		approx = haarInverse(approx, details[l], lengths[l])
	}
	return approx
}

// softThreshold shrinks coefficients toward zero by value in place
func softThreshold(coeffs []float64, value float64) {
	for i, v := range coeffs {
		shrunk := math.Abs(v) - value
		if shrunk < 0 {
			shrunk = 0
		}
		coeffs[i] = math.Copysign(shrunk, v)
	}
}
