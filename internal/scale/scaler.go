// Package scale implements the invertible per-column numeric transforms
// applied to the target and feature columns before fitting, and their
// explicit parameter dump/reload contract used by the persistence layer.
package scale

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"ftnirs/internal/errors"
)

// Kind selects one of the supported scalers
type Kind string

const (
	Standard  Kind = "standard"
	MinMax    Kind = "minmax"
	MaxAbs    Kind = "maxabs"
	Robust    Kind = "robust"
	Normalize Kind = "normalize"
)

// Kinds lists every supported scaler
func Kinds() []Kind {
	return []Kind{Standard, MinMax, MaxAbs, Robust, Normalize}
}

// ParseKind resolves a scaler name; unsupported names are a ParameterError
func ParseKind(name string) (Kind, error) {
	k := Kind(name)
	switch k {
	case Standard, MinMax, MaxAbs, Robust, Normalize:
		return k, nil
	}
	return "", errors.ParameterError("unsupported scaling method: %s", name)
}

// Scaler is a fitted invertible transform over a fixed set of columns.
// Center and Scale hold the per-column statistics for the column-wise
// kinds. The unit-norm kind is row-wise: it has no fitted state, and
// RowNorms records the norms seen by the most recent Transform so the
// mapping stays invertible.
type Scaler struct {
	Kind     Kind      `json:"kind"`
	Center   []float64 `json:"center,omitempty"`
	Scale    []float64 `json:"scale,omitempty"`
	RowNorms []float64 `json:"row_norms,omitempty"`
}

// New creates an unfitted scaler of the given kind
func New(kind Kind) *Scaler {
	return &Scaler{Kind: kind}
}

// Fit learns the per-column statistics from x
func (s *Scaler) Fit(x *mat.Dense) error {
	rows, cols := x.Dims()
	if rows == 0 || cols == 0 {
		return errors.ParameterError("cannot fit %s scaler on an empty matrix", s.Kind)
	}
	if s.Kind == Normalize {
		// unit-norm scaling carries no fitted state
		return nil
	}
	s.Center = make([]float64, cols)
	s.Scale = make([]float64, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, x)
		center, scale, err := columnStats(s.Kind, col)
		if err != nil {
			return err
		}
		s.Center[j] = center
		s.Scale[j] = scale
	}
	return nil
}

func columnStats(kind Kind, col []float64) (center, scale float64, err error) {
	switch kind {
	case Standard:
		center = floats.Sum(col) / float64(len(col))
		variance := 0.0
		for _, v := range col {
			d := v - center
			variance += d * d
		}
		scale = math.Sqrt(variance / float64(len(col)))
	case MinMax:
		center = floats.Min(col)
		scale = floats.Max(col) - center
	case MaxAbs:
		for _, v := range col {
			if a := math.Abs(v); a > scale {
				scale = a
			}
		}
	case Robust:
		center, err = stats.Median(col)
		if err != nil {
			return 0, 0, errors.Wrap(err, "robust scaler median")
		}
		q1, err1 := stats.Percentile(col, 25)
		q3, err3 := stats.Percentile(col, 75)
		if err1 != nil || err3 != nil {
			// degenerate column, fall back to an identity scale
			q1, q3 = 0, 0
		}
		scale = q3 - q1
	}
	if scale == 0 {
		scale = 1
	}
	return center, scale, nil
}

// Transform scales x in place
func (s *Scaler) Transform(x *mat.Dense) {
	rows, cols := x.Dims()
	if s.Kind == Normalize {
		s.RowNorms = make([]float64, rows)
		for i := 0; i < rows; i++ {
			norm := 0.0
			for j := 0; j < cols; j++ {
				v := x.At(i, j)
				norm += v * v
			}
			norm = math.Sqrt(norm)
			s.RowNorms[i] = norm
			if norm == 0 {
				continue
			}
			for j := 0; j < cols; j++ {
				x.Set(i, j, x.At(i, j)/norm)
			}
		}
		return
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			x.Set(i, j, (x.At(i, j)-s.Center[j])/s.Scale[j])
		}
	}
}

// InverseTransform returns x to the original units in place
func (s *Scaler) InverseTransform(x *mat.Dense) {
	rows, cols := x.Dims()
	if s.Kind == Normalize {
		for i := 0; i < rows && i < len(s.RowNorms); i++ {
			for j := 0; j < cols; j++ {
				x.Set(i, j, x.At(i, j)*s.RowNorms[i])
			}
		}
		return
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			x.Set(i, j, x.At(i, j)*s.Scale[j]+s.Center[j])
		}
	}
}

// TransformRow scales one row vector with the fitted statistics
func (s *Scaler) TransformRow(row []float64) []float64 {
	out := make([]float64, len(row))
	if s.Kind == Normalize {
		norm := 0.0
		for _, v := range row {
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			copy(out, row)
			return out
		}
		for j, v := range row {
			out[j] = v / norm
		}
		return out
	}
	for j, v := range row {
		out[j] = (v - s.Center[j]) / s.Scale[j]
	}
	return out
}

// InverseValue maps a single scaled value of column j back to original
// units. For the row-wise unit-norm kind j indexes the recorded training
// row norms, so the result is only meaningful for the rows the scaler
// was fitted on; values for unseen specimens have no true inverse.
func (s *Scaler) InverseValue(v float64, j int) float64 {
	if s.Kind == Normalize {
		if j < len(s.RowNorms) {
			return v * s.RowNorms[j]
		}
		return v
	}
	return v*s.Scale[j] + s.Center[j]
}

// InverseColumn maps a scaled single-column slice back to original units.
// For the column-wise kinds the column statistics of column 0 apply; for
// the row-wise unit-norm kind each entry uses its recorded row norm.
func (s *Scaler) InverseColumn(vals []float64) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		if s.Kind == Normalize {
			out[i] = s.InverseValue(v, i)
		} else {
			out[i] = v*s.Scale[0] + s.Center[0]
		}
	}
	return out
}
