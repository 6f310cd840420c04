package scale

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"ftnirs/internal/errors"
	"ftnirs/internal/testkit"
)

func randomMatrix(rows, cols int, seed int64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	x := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			x.Set(i, j, 10*rng.NormFloat64()+5)
		}
	}
	return x
}

func TestScaler_RoundTrip(t *testing.T) {
	for _, kind := range Kinds() {
		x := randomMatrix(8, 6, 31)
		orig := mat.DenseCopyOf(x)

		s := New(kind)
		require.NoError(t, s.Fit(x), "fit %s", kind)
		s.Transform(x)
		s.InverseTransform(x)
		assert.True(t, mat.EqualApprox(orig, x, 1e-9), "%s round trip drifted", kind)
	}
}

func TestScaler_StandardCentersColumns(t *testing.T) {
	x := randomMatrix(50, 3, 7)
	s := New(Standard)
	require.NoError(t, s.Fit(x))
	s.Transform(x)

	col := make([]float64, 50)
	for j := 0; j < 3; j++ {
		mat.Col(col, j, x)
		mean, variance := 0.0, 0.0
		for _, v := range col {
			mean += v
		}
		mean /= 50
		for _, v := range col {
			variance += (v - mean) * (v - mean)
		}
		assert.InDelta(t, 0, mean, 1e-9)
		assert.InDelta(t, 1, variance/50, 1e-9)
	}
}

func TestScaler_MinMaxBounds(t *testing.T) {
	x := randomMatrix(20, 4, 9)
	s := New(MinMax)
	require.NoError(t, s.Fit(x))
	s.Transform(x)
	r, c := x.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := x.At(i, j)
			assert.GreaterOrEqual(t, v, -1e-12)
			assert.LessOrEqual(t, v, 1+1e-12)
		}
	}
}

func TestScaler_NormalizeRowsToUnitNorm(t *testing.T) {
	x := randomMatrix(10, 5, 3)
	s := New(Normalize)
	require.NoError(t, s.Fit(x))
	s.Transform(x)
	for i := 0; i < 10; i++ {
		norm := 0.0
		for j := 0; j < 5; j++ {
			norm += x.At(i, j) * x.At(i, j)
		}
		assert.InDelta(t, 1, math.Sqrt(norm), 1e-9, "row %d", i)
	}
	assert.Len(t, s.RowNorms, 10)
}

func TestScaler_ConstantColumnGetsIdentityScale(t *testing.T) {
	x := mat.NewDense(4, 2, []float64{
		3, 1,
		3, 2,
		3, 3,
		3, 4,
	})
	for _, kind := range []Kind{Standard, MinMax, MaxAbs, Robust} {
		s := New(kind)
		require.NoError(t, s.Fit(mat.DenseCopyOf(x)), "fit %s", kind)
		assert.Equal(t, 1.0, s.Scale[0], "%s scale on constant column", kind)
	}
}

func TestParseKind_Unsupported(t *testing.T) {
	_, err := ParseKind("power")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeParameterError))
	assert.Contains(t, err.Error(), "power")
}

func TestFitApply_ScalesAgeAndFeatures(t *testing.T) {
	f := testkit.SyntheticFrame(12, 4, 10, 17)
	rawAges := f.Age()

	scalerX, scalerY, err := FitApply("standard", f)
	require.NoError(t, err)
	require.NotNil(t, scalerX)
	require.NotNil(t, scalerY)

	// age is transformed in place and invertible via the y scaler
	back := scalerY.InverseColumn(f.Age())
	for i, want := range rawAges {
		assert.InDelta(t, want, back[i], 1e-9, "row %d", i)
	}

	// the x scaler covers every numeric column except age
	assert.Len(t, scalerX.Scale, f.NumericCols()-1)
}

func TestFitApply_UnknownScalerRejected(t *testing.T) {
	f := testkit.SyntheticFrame(4, 2, 10, 17)
	_, _, err := FitApply("quantile", f)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeParameterError))
}

func TestMarshalUnmarshal_RoundTrip(t *testing.T) {
	x := randomMatrix(6, 3, 41)
	s := New(Robust)
	require.NoError(t, s.Fit(x))

	data, err := Marshal(s)
	require.NoError(t, err)

	restored, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, s.Kind, restored.Kind)
	assert.InDeltaSlice(t, s.Center, restored.Center, 1e-12)
	assert.InDeltaSlice(t, s.Scale, restored.Scale, 1e-12)
}

func TestUnmarshal_RejectsUnknownKind(t *testing.T) {
	_, err := Unmarshal([]byte(`{"kind":"quantile"}`))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeParameterError))
}
