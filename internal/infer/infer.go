// Package infer produces single predictions from one row of raw input
// using a trained model and its fitted scalers.
package infer

import (
	"ftnirs/domain/dataset"
	"ftnirs/internal/artifact"
	"ftnirs/internal/errors"
	"ftnirs/internal/network"
	"ftnirs/internal/scale"
)

// PredictRow extracts one specimen's full feature span, applies the
// feature scaler when provided, splits the vector into the two branch
// shapes by fixed offset, runs the forward pass and inverse-transforms
// the result when a target scaler is provided. A unit-norm target
// scaler is rejected: its recorded norms belong to the training rows
// and cannot map a new specimen's prediction back to years.
func PredictRow(model *network.Network, f *dataset.Frame, row int,
	scalerX, scalerY *scale.Scaler) (float64, error) {

	if scalerY != nil && scalerY.Kind == scale.Normalize {
		return 0, errors.ParameterError(
			"target scaler %q has no inverse for new specimens", scale.Normalize)
	}
	if row < 0 || row >= f.Rows() {
		return 0, errors.ShapeError("row %d out of range, frame has %d rows", row, f.Rows())
	}
	features := f.FeatureRow(row)
	expected := dataset.BranchAWidth + model.InputB
	if len(features) != expected {
		return 0, errors.ShapeError(
			"feature span is %d values wide, model expects %d", len(features), expected)
	}

	if scalerX != nil {
		features = scalerX.TransformRow(features)
	}
	bio := features[:dataset.BranchAWidth]
	spec := features[dataset.BranchAWidth:]

	pred := model.Predict(bio, spec)
	if scalerY != nil {
		pred = scalerY.InverseValue(pred, 0)
	}
	return pred, nil
}

// PredictRowFromArtifact loads a persisted model along with the scalers
// of its most recent metadata record and predicts one row
func PredictRowFromArtifact(path string, f *dataset.Frame, row int) (float64, error) {
	model, rec, err := artifact.Load(path)
	if err != nil {
		return 0, err
	}
	scalerX, scalerY, err := rec.Scalers()
	if err != nil {
		return 0, err
	}
	return PredictRow(model, f, row, scalerX, scalerY)
}
