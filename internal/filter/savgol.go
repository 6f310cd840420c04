package filter

import (
	"gonum.org/v1/gonum/mat"
)

// savgolDerivative applies a Savitzky-Golay local polynomial fit along
// each row, returning the requested derivative. Edge samples are covered
// by evaluating the polynomial fitted to the first and last full windows,
// so the output keeps the input shape. Windows wider than the row are
// clamped to the nearest odd usable length.
func savgolDerivative(block *mat.Dense, window, polyorder, deriv int) *mat.Dense {
	rows, cols := block.Dims()
	if window > cols {
		window = cols
		if window%2 == 0 {
			window--
		}
	}
	if window < 1 {
		window = 1
	}
	if polyorder >= window {
		polyorder = window - 1
	}
	if deriv > polyorder {
		// derivative beyond the fitted order is identically zero
		return mat.NewDense(rows, cols, nil)
	}

	pinv := polyfitPseudoInverse(window, polyorder)
	out := mat.NewDense(rows, cols, nil)
	half := window / 2

	row := make([]float64, cols)
	coeffs := make([]float64, polyorder+1)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, block)

		// interior: convolution with the derivative row of the pseudo-inverse
		for c := half; c < cols-half; c++ {
			acc := 0.0
			for k := 0; k < window; k++ {
				acc += pinv.At(deriv, k) * row[c-half+k]
			}
			out.Set(i, c, acc*factorial(deriv))
		}

		// leading edge: polynomial fitted to the first window
		fitWindow(pinv, row[:window], coeffs)
		for c := 0; c < half; c++ {
			out.Set(i, c, polyDeriv(coeffs, float64(c-half), deriv))
		}

		// trailing edge: polynomial fitted to the last window
		fitWindow(pinv, row[cols-window:], coeffs)
		for c := cols - half; c < cols; c++ {
			out.Set(i, c, polyDeriv(coeffs, float64(c-(cols-1-half)), deriv))
		}
	}
	return out
}

// polyfitPseudoInverse builds (A^T A)^-1 A^T for the centered Vandermonde
// design matrix of the window, giving least-squares polynomial coefficients
// as a linear map of the window samples
func polyfitPseudoInverse(window, polyorder int) *mat.Dense {
	half := window / 2
	a := mat.NewDense(window, polyorder+1, nil)
	for i := 0; i < window; i++ {
		x := float64(i - half)
		p := 1.0
		for j := 0; j <= polyorder; j++ {
			a.Set(i, j, p)
			p *= x
		}
	}
	var ata mat.Dense
	ata.Mul(a.T(), a)
	var inv mat.Dense
	if err := inv.Inverse(&ata); err != nil {
		// the centered Vandermonde normal matrix is nonsingular for
		// polyorder < window; this is unreachable for clamped inputs
		panic(err)
	}
	var pinv mat.Dense
	pinv.Mul(&inv, a.T())
	return &pinv
}

func fitWindow(pinv *mat.Dense, samples []float64, coeffs []float64) {
	order, window := pinv.Dims()
	for j := 0; j < order; j++ {
		acc := 0.0
		for k := 0; k < window; k++ {
			acc += pinv.At(j, k) * samples[k]
		}
		coeffs[j] = acc
	}
}

// polyDeriv evaluates the deriv-th derivative of the fitted polynomial at x
func polyDeriv(coeffs []float64, x float64, deriv int) float64 {
	acc := 0.0
	for j := len(coeffs) - 1; j >= deriv; j-- {
		scale := 1.0
		for k := 0; k < deriv; k++ {
			scale *= float64(j - k)
		}
		acc = acc*x + coeffs[j]*scale
	}
	return acc
}

func factorial(n int) float64 {
	f := 1.0
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return f
}
