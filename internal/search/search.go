package search

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"ftnirs/internal/errors"
	"ftnirs/internal/logging"
	"ftnirs/internal/network"
)

// Objective trains one candidate for at most the given epoch budget and
// scores it on held-out validation loss. Candidates may stash best-weight
// checkpoints under checkpointDir; the engine owns that directory and
// removes it when the search concludes.
type Objective func(hp network.HyperParams, epochs int, checkpointDir string) (*network.Network, float64, error)

// Result is the winning candidate of a search
type Result struct {
	Model   *network.Network
	Params  network.HyperParams
	ValLoss float64
}

// Options tunes a search run
type Options struct {
	MaxEpochs  int   // full training budget of the final rung
	Candidates int   // initial candidate count (Hyperband) or trial count (guided)
	Eta        int   // Hyperband elimination factor
	Seed       int64 // drives candidate sampling; fixed seed, fixed outcome
	Logger     *logging.Logger
}

func (o *Options) fill() {
	if o.MaxEpochs < 1 {
		o.MaxEpochs = 1
	}
	if o.Candidates < 1 {
		o.Candidates = 9
	}
	if o.Eta < 2 {
		o.Eta = 3
	}
}

type candidate struct {
	hp      network.HyperParams
	model   *network.Network
	valLoss float64
}

// Hyperband runs iterative band elimination: every surviving candidate is
// trained at the current budget, the worst (eta-1)/eta are dropped, and
// the budget grows by eta until one band remains at full budget. The
// lowest validation loss wins; ties keep the earlier candidate, which is
// deterministic under a fixed seed.
func Hyperband(space Space, obj Objective, opts Options) (*Result, error) {
	opts.fill()
	tmpDir, err := os.MkdirTemp("", "ftnirs-search-*")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create search scratch directory")
	}
	defer os.RemoveAll(tmpDir)

	rng := rand.New(rand.NewSource(opts.Seed))
	band := make([]candidate, opts.Candidates)
	for i := range band {
		band[i] = candidate{hp: space.Sample(rng)}
	}

	budget := opts.MaxEpochs
	rungs := 1
	for n := opts.Candidates; n > 1; n = (n + opts.Eta - 1) / opts.Eta {
		rungs++
	}
	for r := 1; r < rungs; r++ {
		budget = (budget + opts.Eta - 1) / opts.Eta
	}

	rung := 0
	for {
		for i := range band {
			model, valLoss, err := obj(band[i].hp, budget, rungDir(tmpDir, rung, i))
			if err != nil {
				return nil, err
			}
			band[i].model = model
			band[i].valLoss = valLoss
		}
		if opts.Logger != nil {
			opts.Logger.Debug("hyperband rung %d: %d candidates at %d epochs, best val_loss %.6f",
				rung, len(band), budget, bestOf(band).valLoss)
		}
		if len(band) == 1 && budget >= opts.MaxEpochs {
			break
		}
		band = survivors(band, opts.Eta)
		if budget < opts.MaxEpochs {
			budget *= opts.Eta
			if budget > opts.MaxEpochs {
				budget = opts.MaxEpochs
			}
		}
		rung++
	}

	best := bestOf(band)
	return &Result{Model: best.model, Params: best.hp, ValLoss: best.valLoss}, nil
}

// Guided runs a full-space search: the first half of the trials samples
// the grid uniformly, the second half perturbs the incumbent one grid
// step at a time. This stands in for a Bayesian optimizer while staying
// fully deterministic for a fixed seed.
func Guided(space Space, obj Objective, opts Options) (*Result, error) {
	opts.fill()
	tmpDir, err := os.MkdirTemp("", "ftnirs-search-*")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create search scratch directory")
	}
	defer os.RemoveAll(tmpDir)

	rng := rand.New(rand.NewSource(opts.Seed))
	best := candidate{valLoss: math.Inf(1)}
	for trial := 0; trial < opts.Candidates; trial++ {
		var hp network.HyperParams
		switch {
		case trial == 0:
			hp = space.Defaults()
		case trial < (opts.Candidates+1)/2 || best.model == nil:
			hp = space.Sample(rng)
		default:
			hp = space.Neighbor(best.hp, rng)
		}
		model, valLoss, err := obj(hp, opts.MaxEpochs, rungDir(tmpDir, 0, trial))
		if err != nil {
			return nil, err
		}
		if opts.Logger != nil {
			opts.Logger.Debug("guided trial %d: val_loss %.6f", trial, valLoss)
		}
		if valLoss < best.valLoss {
			best = candidate{hp: hp, model: model, valLoss: valLoss}
		}
	}
	if best.model == nil {
		return nil, errors.New(errors.CodeInternalError, "search produced no candidate")
	}
	return &Result{Model: best.model, Params: best.hp, ValLoss: best.valLoss}, nil
}

func rungDir(base string, rung, idx int) string {
	dir := filepath.Join(base, "rung", strconv.Itoa(rung), strconv.Itoa(idx))
	_ = os.MkdirAll(dir, 0o755)
	return dir
}

// survivors keeps the best ceil(n/eta) candidates, preserving rank order.
// Sorting is stable so equal losses keep their sampling order.
func survivors(band []candidate, eta int) []candidate {
	sort.SliceStable(band, func(i, j int) bool {
		return band[i].valLoss < band[j].valLoss
	})
	keep := (len(band) + eta - 1) / eta
	if keep < 1 {
		keep = 1
	}
	return band[:keep]
}

func bestOf(band []candidate) candidate {
	best := band[0]
	for _, c := range band[1:] {
		if c.valLoss < best.valLoss {
			best = c
		}
	}
	return best
}
