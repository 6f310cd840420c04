package dataset

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"ftnirs/internal/errors"
)

// Fixed wide-table contract. The first ten columns identify the specimen,
// columns 10..99 are free-form biological covariates, and every column from
// index 100 on must be a wavenumber measurement.
const (
	MinColumns     = 100
	IdentityWidth  = 10
	BioStart       = 3    // weight, the first feature column
	SpectralStart  = 100  // first wavenumber column
	BranchAWidth   = 97   // contract columns 3..99
	BranchBWidth   = 1000 // contract columns 100..1099
	FeatureWidth   = BranchAWidth + BranchBWidth
	CanonicalWidth = SpectralStart + BranchBWidth
)

// IdentityColumns is the exact required naming of the first ten columns
var IdentityColumns = [IdentityWidth]string{
	"filename", "sample", "age", "weight", "length",
	"latitude", "longitude", "sex_M", "sex_F", "sex_immature",
}

// spectralMarkers are the recognized wavenumber column name tokens
var spectralMarkers = [...]string{"wavenumber", "wn"}

// Partition tags carried in the `sample` column
const (
	TagTraining = "training"
	TagTest     = "test"
)

// Frame is a wide specimen table. The `filename` and `sample` columns are
// kept as strings; everything from `age` on lives in one numeric matrix,
// so numeric column j corresponds to contract column j+2.
type Frame struct {
	Columns   []string
	Filenames []string
	Samples   []string
	Values    *mat.Dense
}

// NumericOffset is the contract index of the first numeric column (age)
const NumericOffset = 2

// New creates an empty frame with the given column names and row capacity
func New(columns []string, rows int) *Frame {
	return &Frame{
		Columns:   columns,
		Filenames: make([]string, rows),
		Samples:   make([]string, rows),
		Values:    mat.NewDense(rows, len(columns)-NumericOffset, nil),
	}
}

// Rows returns the number of specimens in the frame
func (f *Frame) Rows() int {
	return len(f.Filenames)
}

// NumericCols returns the width of the numeric block
func (f *Frame) NumericCols() int {
	return len(f.Columns) - NumericOffset
}

// Age returns a copy of the age column
func (f *Frame) Age() []float64 {
	out := make([]float64, f.Rows())
	mat.Col(out, 0, f.Values)
	return out
}

// SetAge overwrites the age column
func (f *Frame) SetAge(vals []float64) {
	f.Values.SetCol(0, vals)
}

// PartitionRows returns the row indexes whose sample tag matches
func (f *Frame) PartitionRows(tag string) []int {
	var idx []int
	for i, s := range f.Samples {
		if s == tag {
			idx = append(idx, i)
		}
	}
	return idx
}

// SpectralBlock copies the wavenumber block for the given rows into a
// dense rows x BranchBWidth matrix
func (f *Frame) SpectralBlock(rows []int) *mat.Dense {
	width := f.NumericCols() - (SpectralStart - NumericOffset)
	block := mat.NewDense(len(rows), width, nil)
	for bi, ri := range rows {
		for j := 0; j < width; j++ {
			block.Set(bi, j, f.Values.At(ri, SpectralStart-NumericOffset+j))
		}
	}
	return block
}

// SetSpectralBlock writes a filtered block back for the given rows
func (f *Frame) SetSpectralBlock(rows []int, block *mat.Dense) {
	_, width := block.Dims()
	for bi, ri := range rows {
		for j := 0; j < width; j++ {
			f.Values.Set(ri, SpectralStart-NumericOffset+j, block.At(bi, j))
		}
	}
}

// FeatureRow copies the full feature span (covariates plus wavenumbers,
// contract columns 3..1099) of one specimen
func (f *Frame) FeatureRow(row int) []float64 {
	width := f.NumericCols() - 1 // everything numeric except age
	out := make([]float64, width)
	for j := 0; j < width; j++ {
		out[j] = f.Values.At(row, j+1)
	}
	return out
}

// BranchInputs copies the biological covariates and the spectral sequence
// of the given rows into the two model input matrices
func (f *Frame) BranchInputs(rows []int) (bio, spec *mat.Dense) {
	bio = mat.NewDense(len(rows), BranchAWidth, nil)
	specWidth := f.NumericCols() - (SpectralStart - NumericOffset)
	spec = mat.NewDense(len(rows), specWidth, nil)
	for bi, ri := range rows {
		for j := 0; j < BranchAWidth; j++ {
			bio.Set(bi, j, f.Values.At(ri, BioStart-NumericOffset+j))
		}
		for j := 0; j < specWidth; j++ {
			spec.Set(bi, j, f.Values.At(ri, SpectralStart-NumericOffset+j))
		}
	}
	return bio, spec
}

// HasMissing reports whether any numeric cell is NaN
func (f *Frame) HasMissing() bool {
	r, c := f.Values.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if math.IsNaN(f.Values.At(i, j)) {
				return true
			}
		}
	}
	return false
}

// Clone returns a deep copy of the frame
func (f *Frame) Clone() *Frame {
	clone := &Frame{
		Columns:   append([]string(nil), f.Columns...),
		Filenames: append([]string(nil), f.Filenames...),
		Samples:   append([]string(nil), f.Samples...),
	}
	clone.Values = mat.DenseCopyOf(f.Values)
	return clone
}

// ValidateSchema confirms the fixed wide-table contract: at least 100
// columns, the exact identity naming for the first ten, and a recognized
// wavenumber marker in every column name from index 100 on. It then fails
// on any missing value. Pure validation, no mutation.
func (f *Frame) ValidateSchema() error {
	if len(f.Columns) < MinColumns {
		return errors.SchemaError("table should have at least %d columns, but it has %d", MinColumns, len(f.Columns))
	}
	for i, expected := range IdentityColumns {
		if f.Columns[i] != expected {
			return errors.SchemaError("column %d should be named %q, but found %q", i+1, expected, f.Columns[i])
		}
	}
	for i := SpectralStart; i < len(f.Columns); i++ {
		if !isSpectralName(f.Columns[i]) {
			return errors.SchemaError("column %q does not contain 'wavenumber' or 'wn'", f.Columns[i])
		}
	}
	if f.HasMissing() {
		return errors.DataQualityError("data contains missing values")
	}
	return nil
}

func isSpectralName(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range spectralMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// ImputeMissing replaces NaN cells with their column mean. This is an
// explicit caller-invoked repair step; validation itself always fails on
// missing values. Returns the number of cells repaired.
func (f *Frame) ImputeMissing() int {
	r, c := f.Values.Dims()
	repaired := 0
	for j := 0; j < c; j++ {
		sum, n := 0.0, 0
		for i := 0; i < r; i++ {
			if v := f.Values.At(i, j); !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		if n == 0 || n == r {
			continue
		}
		mean := sum / float64(n)
		for i := 0; i < r; i++ {
			if math.IsNaN(f.Values.At(i, j)) {
				f.Values.Set(i, j, mean)
				repaired++
			}
		}
	}
	return repaired
}
