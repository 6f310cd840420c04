package train

import (
	"ftnirs/domain/dataset"
	"ftnirs/internal/artifact"
	"ftnirs/internal/errors"
	"ftnirs/internal/network"
	"ftnirs/internal/search"
)

// Strategy selects how the search engine explores the hyperparameter space
type Strategy string

const (
	StrategyHyperband Strategy = "hyperband"
	StrategyBayesian  Strategy = "bayesian"
)

// TrainManual validates, filters and scales the frame, builds the
// topology from exactly eight concrete parameter values, runs one
// full-length training pass and evaluates on the test partition.
func (o *Orchestrator) TrainManual(f *dataset.Frame, filterName, scalerName string, params []interface{}) (*Result, error) {
	hp, err := network.ParamsFromValues(params)
	if err != nil {
		return nil, err
	}
	build := func(inputB int) (*network.Network, error) {
		return network.Build(dataset.BranchAWidth, inputB, hp, o.settings().Seed)
	}
	res, err := o.run(f, filterName, scalerName, ApproachManual, build)
	if err != nil {
		return nil, err
	}
	res.Params = hp
	return res, nil
}

// TrainFinetune loads a persisted model and continues training it on
// new data without rebuilding the topology.
func (o *Orchestrator) TrainFinetune(f *dataset.Frame, filterName, scalerName, artifactPath string) (*Result, error) {
	build := func(inputB int) (*network.Network, error) {
		model, err := artifact.LoadModel(artifactPath)
		if err != nil {
			return nil, err
		}
		if model.InputB != inputB {
			return nil, errors.ShapeError(
				"persisted model expects %d spectral columns, frame has %d", model.InputB, inputB)
		}
		o.logger().Info("loaded model from %s", artifactPath)
		return model, nil
	}
	res, err := o.run(f, filterName, scalerName, ApproachFinetune, build)
	if err != nil {
		return nil, err
	}
	res.Params = res.Model.Params
	return res, nil
}

// run is the shared Raw -> Evaluated pipeline for the non-search modes
func (o *Orchestrator) run(f *dataset.Frame, filterName, scalerName, approach string,
	build func(inputB int) (*network.Network, error)) (*Result, error) {

	kind, scalerX, scalerY, err := o.prepare(f, filterName, scalerName)
	if err != nil {
		return nil, err
	}

	model, err := build(spectralWidth(f))
	if err != nil {
		return nil, err
	}

	cfg := o.settings()
	bio, spec, y := branchRows(f, f.PartitionRows(dataset.TagTraining))
	history, _, err := fitModel(model, bio, spec, y, fitSettings{
		Epochs:          cfg.Epochs,
		BatchSize:       cfg.BatchSize,
		Patience:        finalPassPatience,
		ValidationSplit: cfg.ValidationSplit,
		Rng:             o.rng(),
		Log:             o.logger(),
	})
	if err != nil {
		return nil, err
	}

	res := &Result{
		State:      StateFitted,
		Approach:   approach,
		Filter:     kind,
		ScalerKind: scalerX.Kind,
		Model:      model,
		ScalerX:    scalerX,
		ScalerY:    scalerY,
		History:    history,
	}
	return o.finish(f, res)
}

// TrainSearchDriven selects the topology with the requested search
// strategy, then runs a final full-length training pass on the winner.
func (o *Orchestrator) TrainSearchDriven(f *dataset.Frame, filterName, scalerName string, strategy Strategy) (*Result, error) {
	kind, scalerX, scalerY, err := o.prepare(f, filterName, scalerName)
	if err != nil {
		return nil, err
	}

	best, err := o.searchPrepared(f, strategy)
	if err != nil {
		return nil, err
	}

	cfg := o.settings()
	bio, spec, y := branchRows(f, f.PartitionRows(dataset.TagTraining))
	history, _, err := fitModel(best.Model, bio, spec, y, fitSettings{
		Epochs:          cfg.Epochs,
		BatchSize:       cfg.BatchSize,
		Patience:        finalPassPatience,
		ValidationSplit: cfg.ValidationSplit,
		Rng:             o.rng(),
		Log:             o.logger(),
	})
	if err != nil {
		return nil, err
	}

	res := &Result{
		State:      StateFitted,
		Approach:   ApproachSearch,
		Filter:     kind,
		ScalerKind: scalerX.Kind,
		Params:     best.Params,
		Model:      best.Model,
		ScalerX:    scalerX,
		ScalerY:    scalerY,
		History:    history,
	}
	return o.finish(f, res)
}

// SearchHyperparameters runs the pipeline through scaling and returns the
// winning candidate without the final training pass. The frame is
// validated, filtered and scaled in place like any training mode.
func (o *Orchestrator) SearchHyperparameters(f *dataset.Frame, filterName, scalerName string, strategy Strategy) (*search.Result, error) {
	if _, _, _, err := o.prepare(f, filterName, scalerName); err != nil {
		return nil, err
	}
	return o.searchPrepared(f, strategy)
}

// searchPrepared drives the search engine over an already prepared frame
func (o *Orchestrator) searchPrepared(f *dataset.Frame, strategy Strategy) (*search.Result, error) {
	cfg := o.settings()
	bio, spec, y := branchRows(f, f.PartitionRows(dataset.TagTraining))
	inputB := spectralWidth(f)

	objective := func(hp network.HyperParams, epochs int, checkpointDir string) (*network.Network, float64, error) {
		model, err := network.Build(dataset.BranchAWidth, inputB, hp, cfg.Seed)
		if err != nil {
			return nil, 0, err
		}
		_, valLoss, err := fitModel(model, bio, spec, y, fitSettings{
			Epochs:          epochs,
			BatchSize:       cfg.BatchSize,
			Patience:        cfg.Patience,
			ValidationSplit: cfg.ValidationSplit,
			CheckpointDir:   checkpointDir,
			Rng:             o.rng(),
			Log:             o.logger(),
		})
		if err != nil {
			return nil, 0, err
		}
		return model, valLoss, nil
	}

	opts := search.Options{
		MaxEpochs: cfg.Epochs,
		Seed:      cfg.Seed,
		Logger:    o.logger(),
	}
	switch strategy {
	case StrategyBayesian:
		return search.Guided(search.DefaultSpace(), objective, opts)
	case StrategyHyperband, "":
		return search.Hyperband(search.DefaultSpace(), objective, opts)
	}
	return nil, errors.ParameterError("unsupported search strategy: %s", strategy)
}

// finish evaluates on the test partition and records the run
func (o *Orchestrator) finish(f *dataset.Frame, res *Result) (*Result, error) {
	eval, err := o.Evaluate(res.Model, f)
	if err != nil {
		return nil, err
	}
	res.Evaluation = eval
	res.State = StateEvaluated
	o.record(res.Approach, res, rmse(eval.MSE))
	return res, nil
}
