package search

import (
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ftnirs/internal/network"
)

func TestSample_StaysOnGrid(t *testing.T) {
	space := DefaultSpace()
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		hp := space.Sample(rng)
		require.NoError(t, hp.Validate())
		assert.GreaterOrEqual(t, hp.KernelSize, 51)
		assert.LessOrEqual(t, hp.KernelSize, 201)
		assert.Zero(t, (hp.KernelSize-51)%10, "kernel off grid: %d", hp.KernelSize)
		assert.GreaterOrEqual(t, hp.Stride, 26)
		assert.LessOrEqual(t, hp.Stride, 101)
		assert.GreaterOrEqual(t, hp.Dropout, 0.1-1e-9)
		assert.LessOrEqual(t, hp.Dropout, 0.5+1e-9)
		assert.GreaterOrEqual(t, hp.DenseUnits, 4)
		assert.LessOrEqual(t, hp.DenseUnits, 640)
	}
}

func TestSample_DeterministicForSeed(t *testing.T) {
	space := DefaultSpace()
	a := space.Sample(rand.New(rand.NewSource(5)))
	b := space.Sample(rand.New(rand.NewSource(5)))
	assert.Equal(t, a, b)
}

func TestNeighbor_ChangesAtMostOneParameter(t *testing.T) {
	space := DefaultSpace()
	rng := rand.New(rand.NewSource(2))
	base := space.Defaults()
	for i := 0; i < 100; i++ {
		next := space.Neighbor(base, rng)
		require.NoError(t, next.Validate())
		changed := 0
		if next.ConvLayers != base.ConvLayers {
			changed++
		}
		if next.KernelSize != base.KernelSize {
			changed++
		}
		if next.Stride != base.Stride {
			changed++
		}
		if next.Dropout != base.Dropout {
			changed++
		}
		if next.MaxPooling != base.MaxPooling {
			changed++
		}
		if next.Filters != base.Filters {
			changed++
		}
		if next.DenseUnits != base.DenseUnits {
			changed++
		}
		if next.Dropout2 != base.Dropout2 {
			changed++
		}
		assert.LessOrEqual(t, changed, 1)
	}
}

func TestDefaults(t *testing.T) {
	hp := DefaultSpace().Defaults()
	assert.Equal(t, network.DefaultHyperParams(), hp)
}

// scoreByKernel is a deterministic stand-in objective: smaller kernels
// score better, so the search should converge on the space minimum.
func scoreByKernel(calls *atomic.Int64) Objective {
	return func(hp network.HyperParams, epochs int, checkpointDir string) (*network.Network, float64, error) {
		if calls != nil {
			calls.Add(1)
		}
		model, err := network.Build(2, 10, network.HyperParams{
			ConvLayers: 1, KernelSize: 3, Stride: 2,
			Filters: 2, DenseUnits: 2,
		}, 1)
		if err != nil {
			return nil, 0, err
		}
		return model, float64(hp.KernelSize), nil
	}
}

func TestHyperband_PicksLowestLoss(t *testing.T) {
	var calls atomic.Int64
	res, err := Hyperband(DefaultSpace(), scoreByKernel(&calls), Options{
		MaxEpochs:  9,
		Candidates: 9,
		Eta:        3,
		Seed:       7,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Model)
	assert.Equal(t, float64(res.Params.KernelSize), res.ValLoss)
	// elimination trains shrinking bands: 9 + 3 + 1 objective calls
	assert.Equal(t, int64(13), calls.Load())
}

func TestHyperband_DeterministicForSeed(t *testing.T) {
	opts := Options{MaxEpochs: 4, Candidates: 6, Seed: 11}
	a, err := Hyperband(DefaultSpace(), scoreByKernel(nil), opts)
	require.NoError(t, err)
	b, err := Hyperband(DefaultSpace(), scoreByKernel(nil), opts)
	require.NoError(t, err)
	assert.Equal(t, a.Params, b.Params)
	assert.Equal(t, a.ValLoss, b.ValLoss)
}

func TestGuided_FirstTrialIsDefaults(t *testing.T) {
	var seen []network.HyperParams
	obj := func(hp network.HyperParams, epochs int, dir string) (*network.Network, float64, error) {
		seen = append(seen, hp)
		return scoreByKernel(nil)(hp, epochs, dir)
	}
	res, err := Guided(DefaultSpace(), obj, Options{MaxEpochs: 3, Candidates: 5, Seed: 3})
	require.NoError(t, err)
	require.NotEmpty(t, seen)
	assert.Equal(t, DefaultSpace().Defaults(), seen[0])
	assert.Len(t, seen, 5)
	// the winner is the lowest score over all trials
	for _, hp := range seen {
		assert.LessOrEqual(t, res.ValLoss, float64(hp.KernelSize))
	}
}

func TestOptionsFill(t *testing.T) {
	o := Options{}
	o.fill()
	assert.Equal(t, 1, o.MaxEpochs)
	assert.Equal(t, 9, o.Candidates)
	assert.Equal(t, 3, o.Eta)
}
