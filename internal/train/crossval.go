package train

import (
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"ftnirs/domain/dataset"
	"ftnirs/internal/errors"
	"ftnirs/internal/network"
)

// FoldScore is one cross-validation fold's evaluation
type FoldScore struct {
	Fold int
	Loss float64
	MSE  float64
	MAE  float64
}

const crossValEpochs = 5

// CrossValidate runs a seeded K-fold evaluation over every row of the
// frame. Each fold trains an independent copy of the base model, so fit
// order cannot leak state between folds; results are collected in fold
// order to keep reporting deterministic.
func (o *Orchestrator) CrossValidate(base *network.Network, f *dataset.Frame, k int, seed int64) ([]FoldScore, error) {
	if k < 2 {
		return nil, errors.ParameterError("cross-validation needs at least 2 folds, got %d", k)
	}
	n := f.Rows()
	if n < k {
		return nil, errors.DataQualityError("cannot split %d rows into %d folds", n, k)
	}

	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(i, j int) { all[i], all[j] = all[j], all[i] })

	bio, spec, y := branchRows(f, all)

	batch := o.settings().BatchSize
	scores := make([]FoldScore, 0, k)
	for fold := 0; fold < k; fold++ {
		lo, hi := fold*n/k, (fold+1)*n/k

		var trBio, trSpec [][]float64
		var trY []float64
		for i := 0; i < n; i++ {
			if i >= lo && i < hi {
				continue
			}
			trBio = append(trBio, bio[i])
			trSpec = append(trSpec, spec[i])
			trY = append(trY, y[i])
		}

		model, err := base.Clone()
		if err != nil {
			return nil, err
		}
		foldRng := rand.New(rand.NewSource(seed + int64(fold)))
		for epoch := 0; epoch < crossValEpochs; epoch++ {
			order := foldRng.Perm(len(trY))
			for start := 0; start < len(order); start += batch {
				end := start + batch
				if end > len(order) {
					end = len(order)
				}
				bBio := make([][]float64, 0, end-start)
				bSpec := make([][]float64, 0, end-start)
				bY := make([]float64, 0, end-start)
				for _, idx := range order[start:end] {
					bBio = append(bBio, trBio[idx])
					bSpec = append(bSpec, trSpec[idx])
					bY = append(bY, trY[idx])
				}
				model.TrainBatch(bBio, bSpec, bY, foldRng)
			}
		}

		mse, mae := evaluateRows(model, bio[lo:hi], spec[lo:hi], y[lo:hi])
		scores = append(scores, FoldScore{Fold: fold, Loss: mse, MSE: mse, MAE: mae})
	}
	return scores, nil
}

// ModelComparison is one model's whole-frame score
type ModelComparison struct {
	R2  float64
	MSE float64
}

// CompareModels scores every named model over all rows of the frame,
// sequentially, and returns R-squared and mean squared error per name
func CompareModels(models map[string]*network.Network, f *dataset.Frame) map[string]ModelComparison {
	all := make([]int, f.Rows())
	for i := range all {
		all[i] = i
	}
	bio, spec, y := branchRows(f, all)

	results := make(map[string]ModelComparison, len(models))
	for name, model := range models {
		preds := make([]float64, len(y))
		mse := 0.0
		for i := range y {
			preds[i] = model.Predict(bio[i], spec[i])
			diff := preds[i] - y[i]
			mse += diff * diff
		}
		mse /= float64(len(y))
		results[name] = ModelComparison{
			R2:  stat.RSquaredFrom(preds, y, nil),
			MSE: mse,
		}
	}
	return results
}
