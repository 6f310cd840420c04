package filter

import (
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
)

// fourierLowPass removes frequency components above the relative
// threshold from each row and reconstructs from the real part
func fourierLowPass(block *mat.Dense, threshold float64) *mat.Dense {
	rows, cols := block.Dims()
	out := mat.NewDense(rows, cols, nil)
	fft := fourier.NewFFT(cols)
	row := make([]float64, cols)
	var coeffs []complex128
	for i := 0; i < rows; i++ {
		mat.Row(row, i, block)
		coeffs = fft.Coefficients(coeffs, row)
		for k := range coeffs {
			if float64(k)/float64(cols) > threshold {
				coeffs[k] = 0
			}
		}
		rec := fft.Sequence(nil, coeffs)
		// the gonum transform pair is unnormalized
		for c := range rec {
			rec[c] /= float64(cols)
		}
		out.SetRow(i, rec)
	}
	return out
}
