// Package filter implements the spectral denoising stage applied to the
// wavenumber block before scaling and training. Every variant maps an
// R x C block to a block of identical shape.
package filter

import (
	"gonum.org/v1/gonum/mat"

	"ftnirs/domain/dataset"
	"ftnirs/internal/logging"
)

// Kind selects one of the supported spectral filters
type Kind string

const (
	SavitzkyGolay Kind = "savgol"
	MovingAverage Kind = "moving_average"
	Gaussian      Kind = "gaussian"
	Median        Kind = "median"
	Wavelet       Kind = "wavelet"
	Fourier       Kind = "fourier"
	PCA           Kind = "pca"
)

// Kinds lists every supported filter
func Kinds() []Kind {
	return []Kind{SavitzkyGolay, MovingAverage, Gaussian, Median, Wavelet, Fourier, PCA}
}

// Options carries the per-variant tuning knobs
type Options struct {
	Window    int     // Savitzky-Golay window length (odd)
	PolyOrder int     // Savitzky-Golay polynomial order
	Deriv     int     // Savitzky-Golay derivative order
	Size      int     // moving average / median window
	Sigma     float64 // gaussian standard deviation
	Level     int     // wavelet decomposition level
	Threshold float64 // fourier relative frequency cutoff
	Rank      int     // pca component limit
}

// DefaultOptions returns the tuning used by the production pipeline
func DefaultOptions() Options {
	return Options{
		Window:    17,
		PolyOrder: 2,
		Deriv:     1,
		Size:      5,
		Sigma:     2,
		Level:     1,
		Threshold: 0.1,
		Rank:      5,
	}
}

// ParseKind resolves a filter name. An unrecognized name falls back to
// Savitzky-Golay; callers that want to warn on the fallback should compare
// the result with the input.
func ParseKind(name string) Kind {
	k := Kind(name)
	switch k {
	case SavitzkyGolay, MovingAverage, Gaussian, Median, Wavelet, Fourier, PCA:
		return k
	}
	return SavitzkyGolay
}

// Apply runs the named filter over the block with default options
func Apply(kind Kind, block *mat.Dense) *mat.Dense {
	return ApplyWith(kind, block, DefaultOptions())
}

// ApplyWith runs the named filter with explicit options. The returned
// block always has the shape of the input.
func ApplyWith(kind Kind, block *mat.Dense, opts Options) *mat.Dense {
	switch kind {
	case MovingAverage:
		return movingAverage(block, opts.Size)
	case Gaussian:
		return gaussianSmooth(block, opts.Sigma)
	case Median:
		return medianSmooth(block, opts.Size)
	case Wavelet:
		return waveletDenoise(block, opts.Level)
	case Fourier:
		return fourierLowPass(block, opts.Threshold)
	case PCA:
		return pcaReconstruct(block, opts.Rank)
	default:
		return savgolDerivative(block, opts.Window, opts.PolyOrder, opts.Deriv)
	}
}

// PreprocessSpectra filters the wavenumber block of the frame in place.
// The training and test partitions are filtered independently, never
// jointly; for the PCA variant this means the two partitions do not share
// a fitted basis.
func PreprocessSpectra(f *dataset.Frame, name string, log *logging.Logger) Kind {
	kind := ParseKind(name)
	if log != nil && string(kind) != name {
		log.Warn("unknown filter %q, falling back to %s", name, SavitzkyGolay)
	}
	for _, tag := range []string{dataset.TagTraining, dataset.TagTest} {
		rows := f.PartitionRows(tag)
		if len(rows) == 0 {
			continue
		}
		block := f.SpectralBlock(rows)
		f.SetSpectralBlock(rows, Apply(kind, block))
	}
	return kind
}

// reflectIndex mirrors an out-of-range index back into [0, n)
// using (d c b a | a b c d) edge handling
func reflectIndex(i, n int) int {
	for i < 0 || i >= n {
		if i < 0 {
			i = -i - 1
		}
		if i >= n {
			i = 2*n - i - 1
		}
	}
	return i
}
