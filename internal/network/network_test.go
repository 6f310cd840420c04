package network

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"ftnirs/internal/errors"
)

func smallParams() HyperParams {
	return HyperParams{
		ConvLayers: 1,
		KernelSize: 7,
		Stride:     3,
		Dropout:    0,
		MaxPooling: false,
		Filters:    4,
		DenseUnits: 8,
		Dropout2:   0,
	}
}

func randomSample(bioLen, specLen int, rng *rand.Rand) (bio, spec []float64) {
	bio = make([]float64, bioLen)
	spec = make([]float64, specLen)
	for i := range bio {
		bio[i] = rng.NormFloat64()
	}
	for i := range spec {
		spec[i] = rng.NormFloat64()
	}
	return bio, spec
}

func TestBuild_TopologyShapes(t *testing.T) {
	n, err := Build(97, 200, DefaultHyperParams(), 1)
	require.NoError(t, err)

	require.Len(t, n.Convs, 1)
	conv := n.Convs[0]
	// same padding with stride 51 over 200 samples
	assert.Equal(t, 4, conv.OutLen)
	assert.Equal(t, 4, conv.PoolLen)
	assert.Equal(t, 50, conv.Filters)

	assert.Equal(t, 50*4, n.Reduce.In)
	assert.Equal(t, BranchBReduced, n.Reduce.Out)
	assert.Equal(t, 97+BranchBReduced, n.Hidden.In)
	assert.Equal(t, 256, n.Hidden.Out)
	assert.Equal(t, 1, n.Output.Out)
}

func TestBuild_MaxPoolingHalvesSequence(t *testing.T) {
	hp := smallParams()
	hp.MaxPooling = true
	n, err := Build(5, 30, hp, 1)
	require.NoError(t, err)
	conv := n.Convs[0]
	assert.Equal(t, 10, conv.OutLen)
	assert.True(t, conv.Pool)
	assert.Equal(t, 5, conv.PoolLen)
}

func TestBuild_PoolingSkippedOnUnitSequence(t *testing.T) {
	hp := smallParams()
	hp.MaxPooling = true
	hp.Stride = 40
	n, err := Build(5, 30, hp, 1)
	require.NoError(t, err)
	conv := n.Convs[0]
	assert.Equal(t, 1, conv.OutLen)
	assert.False(t, conv.Pool)
	assert.Equal(t, 1, conv.PoolLen)
}

func TestBuild_StackedConvLayers(t *testing.T) {
	hp := smallParams()
	hp.ConvLayers = 3
	n, err := Build(5, 81, hp, 1)
	require.NoError(t, err)
	require.Len(t, n.Convs, 3)
	// each layer's channel count and length feed the next
	assert.Equal(t, 1, n.Convs[0].InChannels)
	assert.Equal(t, 4, n.Convs[1].InChannels)
	assert.Equal(t, n.Convs[0].PoolLen, n.Convs[1].InLen)
	assert.Equal(t, n.Convs[1].PoolLen, n.Convs[2].InLen)
	assert.Equal(t, n.Convs[2].Filters*n.Convs[2].PoolLen, n.Reduce.In)
}

func TestBuild_RejectsInvalidParams(t *testing.T) {
	hp := smallParams()
	hp.ConvLayers = 0
	_, err := Build(5, 30, hp, 1)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeParameterError))

	_, err = Build(0, 30, smallParams(), 1)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeParameterError))
}

func TestBuild_DeterministicForSeed(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	bio, spec := randomSample(5, 30, rng)

	a, err := Build(5, 30, smallParams(), 42)
	require.NoError(t, err)
	b, err := Build(5, 30, smallParams(), 42)
	require.NoError(t, err)
	c, err := Build(5, 30, smallParams(), 43)
	require.NoError(t, err)

	assert.Equal(t, a.Predict(bio, spec), b.Predict(bio, spec))
	assert.NotEqual(t, a.Predict(bio, spec), c.Predict(bio, spec))
}

func TestPredict_Finite(t *testing.T) {
	n, err := Build(5, 30, smallParams(), 7)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		bio, spec := randomSample(5, 30, rng)
		pred := n.Predict(bio, spec)
		assert.False(t, math.IsNaN(pred) || math.IsInf(pred, 0))
	}
}

func TestTrainBatch_ReducesLoss(t *testing.T) {
	n, err := Build(5, 30, smallParams(), 11)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(3))
	const samples = 8
	bio := make([][]float64, samples)
	spec := make([][]float64, samples)
	y := make([]float64, samples)
	for s := 0; s < samples; s++ {
		bio[s], spec[s] = randomSample(5, 30, rng)
		// learnable target: a fixed linear readout of the inputs
		y[s] = 0.5*bio[s][0] - 0.25*spec[s][3]
	}

	first := n.TrainBatch(bio, spec, y, rng)
	var last float64
	for i := 0; i < 300; i++ {
		last = n.TrainBatch(bio, spec, y, rng)
	}
	assert.False(t, math.IsNaN(last))
	assert.Less(t, last, first)
}

func TestTrainBatch_WithDropout(t *testing.T) {
	hp := smallParams()
	hp.Dropout = 0.3
	hp.Dropout2 = 0.2
	n, err := Build(5, 30, hp, 13)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(5))
	bio := [][]float64{nil, nil}
	spec := [][]float64{nil, nil}
	y := []float64{1, -1}
	bio[0], spec[0] = randomSample(5, 30, rng)
	bio[1], spec[1] = randomSample(5, 30, rng)

	for i := 0; i < 10; i++ {
		loss := n.TrainBatch(bio, spec, y, rng)
		assert.False(t, math.IsNaN(loss))
	}
}

func TestSnapshotRestore_RecoversPredictions(t *testing.T) {
	n, err := Build(5, 30, smallParams(), 17)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(9))
	bio, spec := randomSample(5, 30, rng)

	snap, err := n.Snapshot()
	require.NoError(t, err)
	want := n.Predict(bio, spec)

	// training moves the weights
	n.TrainBatch([][]float64{bio}, [][]float64{spec}, []float64{5}, rng)
	require.NotEqual(t, want, n.Predict(bio, spec))

	require.NoError(t, n.Restore(snap))
	assert.Equal(t, want, n.Predict(bio, spec))
}

func TestClone_Independent(t *testing.T) {
	n, err := Build(5, 30, smallParams(), 19)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(21))
	bio, spec := randomSample(5, 30, rng)

	clone, err := n.Clone()
	require.NoError(t, err)
	want := clone.Predict(bio, spec)

	n.TrainBatch([][]float64{bio}, [][]float64{spec}, []float64{5}, rng)
	assert.Equal(t, want, clone.Predict(bio, spec))
}

func TestEvaluate_PerfectPredictions(t *testing.T) {
	n, err := Build(5, 30, smallParams(), 23)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(25))

	const rows = 4
	bioM := make([][]float64, rows)
	specM := make([][]float64, rows)
	y := make([]float64, rows)
	bio := mat.NewDense(rows, 5, nil)
	spec := mat.NewDense(rows, 30, nil)
	for i := 0; i < rows; i++ {
		bioM[i], specM[i] = randomSample(5, 30, rng)
		bio.SetRow(i, bioM[i])
		spec.SetRow(i, specM[i])
		y[i] = n.Predict(bioM[i], specM[i])
	}
	mse, mae := n.Evaluate(bio, spec, y)
	assert.InDelta(t, 0, mse, 1e-12)
	assert.InDelta(t, 0, mae, 1e-12)
}

func TestParamsFromValues(t *testing.T) {
	good := []interface{}{2, 51, 26, 0.1, true, 50, 64, 0.05}
	hp, err := ParamsFromValues(good)
	require.NoError(t, err)
	assert.Equal(t, 2, hp.ConvLayers)
	assert.Equal(t, 51, hp.KernelSize)
	assert.Equal(t, 26, hp.Stride)
	assert.True(t, hp.MaxPooling)
	assert.Equal(t, 64, hp.DenseUnits)

	_, err = ParamsFromValues(good[:7])
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeParameterError))
	assert.Contains(t, err.Error(), "8 values")

	_, err = ParamsFromValues(append(append([]interface{}{}, good...), 1))
	require.Error(t, err)

	bad := append([]interface{}{}, good...)
	bad[1] = "wide"
	_, err = ParamsFromValues(bad)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeParameterError))

	// a numeric flag is accepted for the boolean slot
	flag := append([]interface{}{}, good...)
	flag[4] = 1.0
	hp, err = ParamsFromValues(flag)
	require.NoError(t, err)
	assert.True(t, hp.MaxPooling)
}

func TestValidate_Bounds(t *testing.T) {
	hp := smallParams()
	hp.Dropout = 1.0
	require.Error(t, hp.Validate())

	hp = smallParams()
	hp.Filters = 0
	require.Error(t, hp.Validate())

	require.NoError(t, DefaultHyperParams().Validate())
}
