package network

import (
	"bytes"
	"encoding/gob"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"ftnirs/internal/errors"
)

// Network is the compiled dual-branch regression model. Branch A feeds
// the tabular covariates straight into the fusion point; Branch B runs
// the spectral sequence through stacked convolution blocks, flattens and
// reduces to a 4-wide representation. The fused vector passes through one
// hidden dense layer and a single linear output unit.
type Network struct {
	InputA int
	InputB int
	Params HyperParams

	Convs  []*Conv1D
	Reduce *Dense // flattened spectral branch -> 4
	Hidden *Dense // concat -> dense units
	Output *Dense // dense units -> 1

	opt *adam
}

// BranchBReduced is the fixed width of the spectral branch representation
const BranchBReduced = 4

// Build constructs and initializes the topology for the given input
// dimensionalities and hyperparameters. Initialization is deterministic
// for a fixed seed.
func Build(inputA, inputB int, hp HyperParams, seed int64) (*Network, error) {
	if err := hp.Validate(); err != nil {
		return nil, err
	}
	if inputA < 1 || inputB < 1 {
		return nil, errors.ParameterError("input dimensions must be positive, got %d and %d", inputA, inputB)
	}
	rng := rand.New(rand.NewSource(seed))
	n := &Network{InputA: inputA, InputB: inputB, Params: hp}

	channels, length := 1, inputB
	for i := 0; i < hp.ConvLayers; i++ {
		conv := newConv1D(channels, length, hp, rng)
		n.Convs = append(n.Convs, conv)
		channels, length = conv.Filters, conv.PoolLen
	}
	n.Reduce = newDense(channels*length, BranchBReduced, true, rng)
	n.Hidden = newDense(inputA+BranchBReduced, hp.DenseUnits, true, rng)
	n.Output = newDense(hp.DenseUnits, 1, false, rng)
	return n, nil
}

// sampleCache holds every intermediate of one forward pass
type sampleCache struct {
	convs     []*convCache
	convOuts  [][][]float64
	flat      []float64
	reduce    *denseCache
	fusedKeep []bool
	hidden    *denseCache
	hiddenOut []float64
	output    *denseCache
}

func (n *Network) forward(bio, spec []float64, train bool, rng *rand.Rand) (float64, *sampleCache) {
	cache := &sampleCache{}

	x := [][]float64{spec}
	for _, conv := range n.Convs {
		out, cc := conv.forward(x)
		if train && n.Params.Dropout > 0 {
			cc.dropped = make([][]bool, len(out))
			for f := range out {
				cc.dropped[f] = dropoutVec(out[f], n.Params.Dropout, rng)
			}
		}
		cache.convs = append(cache.convs, cc)
		cache.convOuts = append(cache.convOuts, out)
		x = out
	}

	flat := make([]float64, 0, len(x)*len(x[0]))
	for _, ch := range x {
		flat = append(flat, ch...)
	}
	cache.flat = flat

	reduced, rc := n.Reduce.forward(flat)
	cache.reduce = rc

	fused := make([]float64, 0, n.InputA+BranchBReduced)
	fused = append(fused, bio...)
	fused = append(fused, reduced...)

	hidden, hc := n.Hidden.forward(fused)
	cache.hidden = hc
	if train && n.Params.Dropout2 > 0 {
		cache.fusedKeep = dropoutVec(hidden, n.Params.Dropout2, rng)
	}
	cache.hiddenOut = hidden

	out, oc := n.Output.forward(hidden)
	cache.output = oc
	return out[0], cache
}

func (n *Network) backward(dPred float64, cache *sampleCache, g *gradients) {
	dHidden := n.Output.backward([]float64{dPred}, cache.output, g.output.W, g.output.B)
	dropoutBack(dHidden, cache.fusedKeep, n.Params.Dropout2)
	dFused := n.Hidden.backward(dHidden, cache.hidden, g.hidden.W, g.hidden.B)
	dReduced := dFused[n.InputA:]
	dFlat := n.Reduce.backward(dReduced, cache.reduce, g.reduce.W, g.reduce.B)

	// unflatten into the last conv layer's channel layout
	last := len(n.Convs) - 1
	chans := len(cache.convOuts[last])
	width := len(cache.convOuts[last][0])
	dOut := make([][]float64, chans)
	for f := 0; f < chans; f++ {
		dOut[f] = dFlat[f*width : (f+1)*width]
	}

	for i := last; i >= 0; i-- {
		cc := cache.convs[i]
		if cc.dropped != nil {
			for f := range dOut {
				dropoutBack(dOut[f], cc.dropped[f], n.Params.Dropout)
			}
		}
		dOut = n.Convs[i].backward(dOut, cc, g.convs[i].W, g.convs[i].B)
	}
}

// TrainBatch runs one forward/backward pass over a mini-batch and applies
// an Adam update. Returns the batch mean squared error.
func (n *Network) TrainBatch(bio, spec [][]float64, y []float64, rng *rand.Rand) float64 {
	g := n.newGradients()
	loss := 0.0
	scale := 1.0 / float64(len(y))
	for s := range y {
		pred, cache := n.forward(bio[s], spec[s], true, rng)
		diff := pred - y[s]
		loss += diff * diff
		n.backward(2*diff*scale, cache, g)
	}
	n.applyAdam(g)
	return loss * scale
}

// Predict runs the forward pass for one specimen
func (n *Network) Predict(bio, spec []float64) float64 {
	pred, _ := n.forward(bio, spec, false, nil)
	return pred
}

// PredictBatch runs the forward pass over matrix inputs row by row
func (n *Network) PredictBatch(bio, spec *mat.Dense) []float64 {
	rows, _ := bio.Dims()
	preds := make([]float64, rows)
	for i := 0; i < rows; i++ {
		preds[i] = n.Predict(mat.Row(nil, i, bio), mat.Row(nil, i, spec))
	}
	return preds
}

// Evaluate computes mean squared and mean absolute error over the inputs
func (n *Network) Evaluate(bio, spec *mat.Dense, y []float64) (mse, mae float64) {
	preds := n.PredictBatch(bio, spec)
	for i, p := range preds {
		diff := p - y[i]
		mse += diff * diff
		if diff < 0 {
			diff = -diff
		}
		mae += diff
	}
	fn := float64(len(y))
	return mse / fn, mae / fn
}

// Snapshot serializes the full weight state for later restore
func (n *Network) Snapshot() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(n); err != nil {
		return nil, errors.Wrap(err, "failed to snapshot network weights")
	}
	return buf.Bytes(), nil
}

// Restore replaces the weight state with a previous snapshot. Optimizer
// moments are reset, matching a best-weights restore after early stopping.
func (n *Network) Restore(snapshot []byte) error {
	var restored Network
	if err := gob.NewDecoder(bytes.NewReader(snapshot)).Decode(&restored); err != nil {
		return errors.Wrap(err, "failed to restore network weights")
	}
	*n = restored
	return nil
}

// Clone returns an independent deep copy of the network
func (n *Network) Clone() (*Network, error) {
	snap, err := n.Snapshot()
	if err != nil {
		return nil, err
	}
	clone := &Network{}
	if err := clone.Restore(snap); err != nil {
		return nil, err
	}
	return clone, nil
}
