package train

import (
	"ftnirs/domain/dataset"
	"ftnirs/internal/errors"
	"ftnirs/internal/network"
)

// GridScore is one scored parameter set, kept in grid order
type GridScore struct {
	Index   int
	Params  network.HyperParams
	ValLoss float64
}

// GridResult collects every scored parameter set plus the winning one
type GridResult struct {
	Scores   []GridScore
	Best     network.HyperParams
	BestLoss float64
	Model    *network.Network
}

// GridSearch prepares the frame, then builds, fits and scores each
// caller-supplied parameter set sequentially. Every set is the same
// list of eight concrete values TrainManual accepts. Scores come back
// in grid order and ties keep the earlier set, so the winner is
// deterministic for a fixed grid and seed.
func (o *Orchestrator) GridSearch(f *dataset.Frame, filterName, scalerName string, grid [][]interface{}) (*GridResult, error) {
	if len(grid) == 0 {
		return nil, errors.ParameterError("grid search needs at least one parameter set")
	}
	if _, _, _, err := o.prepare(f, filterName, scalerName); err != nil {
		return nil, err
	}

	cfg := o.settings()
	bio, spec, y := branchRows(f, f.PartitionRows(dataset.TagTraining))
	inputB := spectralWidth(f)

	res := &GridResult{Scores: make([]GridScore, 0, len(grid))}
	for i, values := range grid {
		hp, err := network.ParamsFromValues(values)
		if err != nil {
			return nil, errors.Wrapf(err, "parameter set %d", i)
		}
		model, err := network.Build(dataset.BranchAWidth, inputB, hp, cfg.Seed)
		if err != nil {
			return nil, errors.Wrapf(err, "parameter set %d", i)
		}
		_, valLoss, err := fitModel(model, bio, spec, y, fitSettings{
			Epochs:          cfg.Epochs,
			BatchSize:       cfg.BatchSize,
			Patience:        cfg.Patience,
			ValidationSplit: cfg.ValidationSplit,
			Rng:             o.rng(),
			Log:             o.logger(),
		})
		if err != nil {
			return nil, err
		}
		res.Scores = append(res.Scores, GridScore{Index: i, Params: hp, ValLoss: valLoss})
		if res.Model == nil || valLoss < res.BestLoss {
			res.Best, res.BestLoss, res.Model = hp, valLoss, model
		}
	}
	o.logger().Event("grid_search",
		"sets", len(grid), "best_loss", res.BestLoss)
	return res, nil
}
