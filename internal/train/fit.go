package train

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"ftnirs/internal/errors"
	"ftnirs/internal/logging"
	"ftnirs/internal/network"
)

// History records per-epoch training curves for the rendering collaborator
type History struct {
	Loss    []float64
	ValLoss []float64
	MSE     []float64
	MAE     []float64
}

// fitSettings tunes one fitting pass
type fitSettings struct {
	Epochs          int
	BatchSize       int
	Patience        int
	ValidationSplit float64
	CheckpointDir   string // optional best-weights stash
	Rng             *rand.Rand
	Log             *logging.Logger
}

// The final full-length pass tolerates a much longer plateau than search
// candidates do
const finalPassPatience = 100

// fitModel trains the model on the given samples, holding out the tail
// ValidationSplit fraction for validation, shuffling mini-batches every
// epoch and early-stopping on a validation loss plateau. The best
// observed weights are restored before returning. Returns the training
// history and the best validation loss.
func fitModel(model *network.Network, bio, spec [][]float64, y []float64, s fitSettings) (*History, float64, error) {
	if len(y) == 0 {
		return nil, 0, errors.DataQualityError("no training rows to fit on")
	}
	if s.BatchSize < 1 {
		s.BatchSize = 1
	}

	nVal := int(float64(len(y)) * s.ValidationSplit)
	if nVal < 1 && len(y) > 1 {
		nVal = 1
	}
	nTrain := len(y) - nVal
	if nTrain < 1 {
		nTrain, nVal = len(y), 0
	}
	valBio, valSpec, valY := bio[nTrain:], spec[nTrain:], y[nTrain:]

	history := &History{}
	bestVal := math.Inf(1)
	var bestSnapshot []byte
	wait := 0

	order := make([]int, nTrain)
	for i := range order {
		order[i] = i
	}

	for epoch := 0; epoch < s.Epochs; epoch++ {
		s.Rng.Shuffle(nTrain, func(i, j int) { order[i], order[j] = order[j], order[i] })

		epochLoss, batches := 0.0, 0
		for start := 0; start < nTrain; start += s.BatchSize {
			end := start + s.BatchSize
			if end > nTrain {
				end = nTrain
			}
			bBio := make([][]float64, 0, end-start)
			bSpec := make([][]float64, 0, end-start)
			bY := make([]float64, 0, end-start)
			for _, idx := range order[start:end] {
				bBio = append(bBio, bio[idx])
				bSpec = append(bSpec, spec[idx])
				bY = append(bY, y[idx])
			}
			epochLoss += model.TrainBatch(bBio, bSpec, bY, s.Rng)
			batches++
		}
		epochLoss /= float64(batches)

		trainMSE, trainMAE := evaluateRows(model, bio[:nTrain], spec[:nTrain], y[:nTrain])
		valLoss := epochLoss
		if nVal > 0 {
			valLoss, _ = evaluateRows(model, valBio, valSpec, valY)
		}
		history.Loss = append(history.Loss, epochLoss)
		history.ValLoss = append(history.ValLoss, valLoss)
		history.MSE = append(history.MSE, trainMSE)
		history.MAE = append(history.MAE, trainMAE)

		if valLoss < bestVal {
			bestVal = valLoss
			wait = 0
			snap, err := model.Snapshot()
			if err != nil {
				return nil, 0, err
			}
			bestSnapshot = snap
			if s.CheckpointDir != "" {
				stashCheckpoint(s.CheckpointDir, snap, s.Log)
			}
		} else {
			wait++
			if wait >= s.Patience {
				if s.Log != nil {
					s.Log.Debug("early stopping at epoch %d, best val_loss %.6f", epoch, bestVal)
				}
				break
			}
		}
	}

	if bestSnapshot != nil {
		if err := model.Restore(bestSnapshot); err != nil {
			return nil, 0, err
		}
	}
	return history, bestVal, nil
}

// stashCheckpoint writes a best-weights checkpoint. The stash lives in a
// search-scoped temp directory, so failures are not fatal.
func stashCheckpoint(dir string, snapshot []byte, log *logging.Logger) {
	if err := os.WriteFile(filepath.Join(dir, "best.gob"), snapshot, 0o644); err != nil && log != nil {
		log.Warn("failed to stash checkpoint in %s: %v", dir, err)
	}
}

// evaluateRows computes MSE and MAE over slice-form inputs
func evaluateRows(model *network.Network, bio, spec [][]float64, y []float64) (mse, mae float64) {
	for i := range y {
		diff := model.Predict(bio[i], spec[i]) - y[i]
		mse += diff * diff
		mae += math.Abs(diff)
	}
	fn := float64(len(y))
	return mse / fn, mae / fn
}
