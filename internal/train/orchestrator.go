// Package train coordinates the full pipeline: schema validation,
// spectral filtering, scaling, fitting and evaluation. One orchestrator
// run owns one table, one model and one scaler pair.
package train

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"ftnirs/domain/dataset"
	"ftnirs/internal/config"
	"ftnirs/internal/filter"
	"ftnirs/internal/ledger"
	"ftnirs/internal/logging"
	"ftnirs/internal/network"
	"ftnirs/internal/scale"
)

// State tracks pipeline progress through a training run
type State int

const (
	StateRaw State = iota
	StateValidated
	StateFiltered
	StateScaled
	StateFitted
	StateEvaluated
)

func (s State) String() string {
	switch s {
	case StateRaw:
		return "raw"
	case StateValidated:
		return "validated"
	case StateFiltered:
		return "filtered"
	case StateScaled:
		return "scaled"
	case StateFitted:
		return "fitted"
	case StateEvaluated:
		return "evaluated"
	}
	return "unknown"
}

// Training approach labels stored in artifact metadata
const (
	ApproachSearch   = "search"
	ApproachManual   = "manual"
	ApproachFinetune = "finetune"
)

// Orchestrator drives training runs. Zero-value fields fall back to the
// configuration defaults.
type Orchestrator struct {
	Config config.TrainingConfig
	Log    *logging.Logger
	Ledger *ledger.RunLedger // optional audit trail, best effort
}

// New creates an orchestrator with the given configuration
func New(cfg config.TrainingConfig, log *logging.Logger) *Orchestrator {
	if log == nil {
		log = logging.NewDefault()
	}
	return &Orchestrator{Config: cfg, Log: log}
}

// settings returns the training configuration with every zero field
// replaced by the package default, so a zero-value Orchestrator is usable
func (o *Orchestrator) settings() config.TrainingConfig {
	c := o.Config
	if c.Seed == 0 {
		c.Seed = config.DefaultSeed
	}
	if c.Epochs <= 0 {
		c.Epochs = config.DefaultEpochs
	}
	if c.BatchSize <= 0 {
		c.BatchSize = config.DefaultBatchSize
	}
	if c.Patience <= 0 {
		c.Patience = config.DefaultPatience
	}
	if c.ValidationSplit <= 0 || c.ValidationSplit >= 1 {
		c.ValidationSplit = config.DefaultValidationSplit
	}
	return c
}

func (o *Orchestrator) logger() *logging.Logger {
	if o.Log == nil {
		o.Log = logging.NewDefault()
	}
	return o.Log
}

// Result is the outcome of one training run
type Result struct {
	State      State
	Approach   string
	Filter     filter.Kind
	ScalerKind scale.Kind
	Params     network.HyperParams
	Model      *network.Network
	ScalerX    *scale.Scaler
	ScalerY    *scale.Scaler
	History    *History
	Evaluation *Evaluation
}

// prepare walks the frame through Raw -> Validated -> Filtered -> Scaled,
// mutating it in place, and returns the fitted scalers
func (o *Orchestrator) prepare(f *dataset.Frame, filterName, scalerName string) (filter.Kind, *scale.Scaler, *scale.Scaler, error) {
	log := o.logger()
	if err := f.ValidateSchema(); err != nil {
		return "", nil, nil, err
	}
	log.Debug("schema validated: %d columns, %d rows", len(f.Columns), f.Rows())

	kind := filter.PreprocessSpectra(f, filterName, log)
	log.Debug("spectra filtered with %s", kind)

	scalerX, scalerY, err := scale.FitApply(scalerName, f)
	if err != nil {
		return "", nil, nil, err
	}
	log.Debug("columns scaled with %s", scalerName)
	return kind, scalerX, scalerY, nil
}

// branchRows extracts per-row model inputs and scaled targets for the
// given frame rows
func branchRows(f *dataset.Frame, rows []int) (bio, spec [][]float64, y []float64) {
	bio = make([][]float64, len(rows))
	spec = make([][]float64, len(rows))
	y = make([]float64, len(rows))
	bioM, specM := f.BranchInputs(rows)
	for i, r := range rows {
		bio[i] = mat.Row(nil, i, bioM)
		spec[i] = mat.Row(nil, i, specM)
		y[i] = f.Values.At(r, 0)
	}
	return bio, spec, y
}

// spectralWidth is the Branch B input dimensionality for this frame
func spectralWidth(f *dataset.Frame) int {
	return len(f.Columns) - dataset.SpectralStart
}

func (o *Orchestrator) rng() *rand.Rand {
	return rand.New(rand.NewSource(o.settings().Seed))
}

// record writes the run to the audit ledger when one is attached
func (o *Orchestrator) record(approach string, res *Result, rmse float64) {
	o.logger().Event("training_run",
		"approach", approach, "filter", res.Filter, "scaler", res.ScalerKind,
		"r2", res.Evaluation.R2)
	if o.Ledger == nil {
		return
	}
	o.Ledger.Record(ledger.Entry{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Approach:  approach,
		Filter:    string(res.Filter),
		Scaler:    string(res.ScalerKind),
		Epochs:    o.settings().Epochs,
		TestR2:    res.Evaluation.R2,
		TestRMSE:  rmse,
	})
}
