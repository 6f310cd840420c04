// Package search selects model hyperparameters by wrapping the builder in
// one of two strategies: successive-halving band elimination across
// training budgets, or guided sampling over the full space.
package search

import (
	"math/rand"

	"ftnirs/internal/network"
)

// IntRange is a closed stepped integer range
type IntRange struct {
	Min, Max, Step int
	Default        int
}

// FloatRange is a closed stepped float range
type FloatRange struct {
	Min, Max, Step float64
	Default        float64
}

// Space is the discrete hyperparameter search space consumed by both
// strategies
type Space struct {
	ConvLayers IntRange
	KernelSize IntRange
	Stride     IntRange
	Dropout    FloatRange
	MaxPooling []bool
	Filters    IntRange
	DenseUnits IntRange
	Dropout2   FloatRange
}

// DefaultSpace returns the documented bounds and defaults for every
// tunable parameter
func DefaultSpace() Space {
	return Space{
		ConvLayers: IntRange{Min: 1, Max: 4, Step: 1, Default: 1},
		KernelSize: IntRange{Min: 51, Max: 201, Step: 10, Default: 101},
		Stride:     IntRange{Min: 26, Max: 101, Step: 5, Default: 51},
		Dropout:    FloatRange{Min: 0.1, Max: 0.5, Step: 0.05, Default: 0.1},
		MaxPooling: []bool{false, true},
		Filters:    IntRange{Min: 50, Max: 100, Step: 10, Default: 50},
		DenseUnits: IntRange{Min: 4, Max: 640, Step: 32, Default: 256},
		Dropout2:   FloatRange{Min: 0, Max: 0.5, Step: 0.05, Default: 0},
	}
}

func (r IntRange) count() int {
	return (r.Max-r.Min)/r.Step + 1
}

func (r IntRange) sample(rng *rand.Rand) int {
	return r.Min + rng.Intn(r.count())*r.Step
}

// neighbor moves one step from v, staying inside the range
func (r IntRange) neighbor(v int, rng *rand.Rand) int {
	if rng.Intn(2) == 0 {
		v -= r.Step
	} else {
		v += r.Step
	}
	if v < r.Min {
		v = r.Min
	}
	if v > r.Max {
		v = r.Max
	}
	return v
}

func (r FloatRange) count() int {
	return int((r.Max-r.Min)/r.Step+0.5) + 1
}

func (r FloatRange) sample(rng *rand.Rand) float64 {
	return r.Min + float64(rng.Intn(r.count()))*r.Step
}

func (r FloatRange) neighbor(v float64, rng *rand.Rand) float64 {
	if rng.Intn(2) == 0 {
		v -= r.Step
	} else {
		v += r.Step
	}
	if v < r.Min {
		v = r.Min
	}
	if v > r.Max {
		v = r.Max
	}
	return v
}

// Sample draws one parameter set uniformly from the stepped grid
func (s Space) Sample(rng *rand.Rand) network.HyperParams {
	return network.HyperParams{
		ConvLayers: s.ConvLayers.sample(rng),
		KernelSize: s.KernelSize.sample(rng),
		Stride:     s.Stride.sample(rng),
		Dropout:    s.Dropout.sample(rng),
		MaxPooling: s.MaxPooling[rng.Intn(len(s.MaxPooling))],
		Filters:    s.Filters.sample(rng),
		DenseUnits: s.DenseUnits.sample(rng),
		Dropout2:   s.Dropout2.sample(rng),
	}
}

// Neighbor perturbs one randomly chosen parameter of hp by a single grid
// step, used by the guided strategy to exploit the incumbent
func (s Space) Neighbor(hp network.HyperParams, rng *rand.Rand) network.HyperParams {
	switch rng.Intn(8) {
	case 0:
		hp.ConvLayers = s.ConvLayers.neighbor(hp.ConvLayers, rng)
	case 1:
		hp.KernelSize = s.KernelSize.neighbor(hp.KernelSize, rng)
	case 2:
		hp.Stride = s.Stride.neighbor(hp.Stride, rng)
	case 3:
		hp.Dropout = s.Dropout.neighbor(hp.Dropout, rng)
	case 4:
		hp.MaxPooling = !hp.MaxPooling
	case 5:
		hp.Filters = s.Filters.neighbor(hp.Filters, rng)
	case 6:
		hp.DenseUnits = s.DenseUnits.neighbor(hp.DenseUnits, rng)
	case 7:
		hp.Dropout2 = s.Dropout2.neighbor(hp.Dropout2, rng)
	}
	return hp
}

// Defaults returns the documented default parameter set
func (s Space) Defaults() network.HyperParams {
	return network.HyperParams{
		ConvLayers: s.ConvLayers.Default,
		KernelSize: s.KernelSize.Default,
		Stride:     s.Stride.Default,
		Dropout:    s.Dropout.Default,
		MaxPooling: false,
		Filters:    s.Filters.Default,
		DenseUnits: s.DenseUnits.Default,
		Dropout2:   s.Dropout2.Default,
	}
}
