package train

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"ftnirs/domain/dataset"
	"ftnirs/internal/errors"
	"ftnirs/internal/network"
	"ftnirs/internal/scale"
)

// Evaluation is the headline test-partition report of a training run.
// Predictions and metrics are in scaled units; use the run's target
// scaler to return them to years.
type Evaluation struct {
	Loss        float64 // mean squared error, the training objective
	MSE         float64
	MAE         float64
	R2          float64
	Predictions []float64
}

// Evaluate scores the model on the test partition. The training
// partition never contributes to this headline metric.
func (o *Orchestrator) Evaluate(model *network.Network, f *dataset.Frame) (*Evaluation, error) {
	rows := f.PartitionRows(dataset.TagTest)
	if len(rows) == 0 {
		return nil, errors.DataQualityError("frame has no test partition rows")
	}
	bio, spec, y := branchRows(f, rows)

	preds := make([]float64, len(y))
	for i := range y {
		preds[i] = model.Predict(bio[i], spec[i])
	}
	mse, mae := evaluateRows(model, bio, spec, y)
	return &Evaluation{
		Loss:        mse,
		MSE:         mse,
		MAE:         mae,
		R2:          stat.RSquaredFrom(preds, y, nil),
		Predictions: preds,
	}, nil
}

// TrainPrediction pairs one training row's prediction with its source
// file for auditability
type TrainPrediction struct {
	Filename  string
	Actual    float64 // original age units
	Predicted float64
}

// TrainingEvaluation is the separate training-partition report
type TrainingEvaluation struct {
	R2   float64
	RMSE float64
	Rows []TrainPrediction
}

// EvaluateTrainingSet scores the model on the training partition with
// predictions inverse-transformed back to original age units. This never
// feeds the headline metric; it exists for per-row audits.
func (o *Orchestrator) EvaluateTrainingSet(model *network.Network, f *dataset.Frame, scalerY *scale.Scaler) (*TrainingEvaluation, error) {
	idx := f.PartitionRows(dataset.TagTraining)
	if len(idx) == 0 {
		return nil, errors.DataQualityError("frame has no training partition rows")
	}
	bio, spec, y := branchRows(f, idx)

	preds := make([]float64, len(y))
	for i := range y {
		preds[i] = model.Predict(bio[i], spec[i])
	}
	actual, predicted := y, preds
	if scalerY != nil {
		actual = scalerY.InverseColumn(y)
		predicted = scalerY.InverseColumn(preds)
	}

	rows := make([]TrainPrediction, len(idx))
	mse := 0.0
	for i, r := range idx {
		rows[i] = TrainPrediction{
			Filename:  f.Filenames[r],
			Actual:    actual[i],
			Predicted: predicted[i],
		}
		diff := predicted[i] - actual[i]
		mse += diff * diff
	}
	mse /= float64(len(idx))

	return &TrainingEvaluation{
		R2:   stat.RSquaredFrom(predicted, actual, nil),
		RMSE: math.Sqrt(mse),
		Rows: rows,
	}, nil
}

func rmse(mse float64) float64 {
	return math.Sqrt(mse)
}
