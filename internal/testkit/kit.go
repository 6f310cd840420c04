// Package testkit provides synthetic specimen tables for tests: frames
// that satisfy the wide-table contract with a learnable age signal baked
// into the spectra.
package testkit

import (
	"fmt"
	"math"
	"math/rand"

	"ftnirs/domain/dataset"
)

// CovariateCount is the number of free-form biological covariate columns
// in a generated frame (contract columns 10..99)
const CovariateCount = 90

// SyntheticFrame generates a schema-conforming frame with the given
// partition sizes and spectral width. The spectral rows carry a smooth
// age-dependent signal plus noise, so a model can actually learn from
// them. Generation is deterministic for a fixed seed.
func SyntheticFrame(trainRows, testRows, spectralCols int, seed int64) *dataset.Frame {
	rng := rand.New(rand.NewSource(seed))

	columns := make([]string, 0, dataset.SpectralStart+spectralCols)
	columns = append(columns, dataset.IdentityColumns[:]...)
	for i := 1; i <= CovariateCount; i++ {
		columns = append(columns, fmt.Sprintf("cov_%d", i))
	}
	for i := 1; i <= spectralCols; i++ {
		columns = append(columns, fmt.Sprintf("wn_%d", i))
	}

	total := trainRows + testRows
	f := dataset.New(columns, total)
	for i := 0; i < total; i++ {
		f.Filenames[i] = fmt.Sprintf("scan_%03d.spc", i)
		if i < trainRows {
			f.Samples[i] = dataset.TagTraining
		} else {
			f.Samples[i] = dataset.TagTest
		}

		age := 1 + rng.Float64()*14
		f.Values.Set(i, 0, age)                      // age
		f.Values.Set(i, 1, 50+age*10+rng.NormFloat64()) // weight
		f.Values.Set(i, 2, 10+age*2+rng.NormFloat64())  // length
		f.Values.Set(i, 3, 40+rng.Float64()*20)         // latitude
		f.Values.Set(i, 4, -70+rng.Float64()*10)        // longitude
		sex := rng.Intn(3)
		for s := 0; s < 3; s++ {
			v := 0.0
			if s == sex {
				v = 1
			}
			f.Values.Set(i, 5+s, v)
		}
		for j := 0; j < CovariateCount; j++ {
			f.Values.Set(i, 8+j, rng.NormFloat64())
		}
		for j := 0; j < spectralCols; j++ {
			phase := float64(j) / float64(spectralCols)
			signal := math.Sin(2*math.Pi*phase*3)*age + age*phase
			f.Values.Set(i, dataset.SpectralStart-dataset.NumericOffset+j, signal+0.1*rng.NormFloat64())
		}
	}
	return f
}

// WithMissing punches NaN holes into the frame for data quality tests
func WithMissing(f *dataset.Frame, cells [][2]int) *dataset.Frame {
	for _, c := range cells {
		f.Values.Set(c[0], c[1], math.NaN())
	}
	return f
}
