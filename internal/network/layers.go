package network

import (
	"math"
	"math/rand"
)

// Conv1D is a strided same-padded convolution over a single spectral
// sequence, with relu activation and optional max pooling
type Conv1D struct {
	InChannels int
	InLen      int
	Filters    int
	Kernel     int
	Stride     int
	OutLen     int
	PadLeft    int
	Pool       bool
	PoolLen    int // sequence length after optional pooling

	W [][][]float64 // [filter][in channel][tap]
	B []float64
}

func newConv1D(inChannels, inLen int, hp HyperParams, rng *rand.Rand) *Conv1D {
	c := &Conv1D{
		InChannels: inChannels,
		InLen:      inLen,
		Filters:    hp.Filters,
		Kernel:     hp.KernelSize,
		Stride:     hp.Stride,
	}
	// same padding: outLen = ceil(inLen/stride)
	c.OutLen = (inLen + c.Stride - 1) / c.Stride
	padTotal := (c.OutLen-1)*c.Stride + c.Kernel - inLen
	if padTotal < 0 {
		padTotal = 0
	}
	c.PadLeft = padTotal / 2

	// pooling only when the sequence is long enough to halve
	c.PoolLen = c.OutLen
	if hp.MaxPooling && c.OutLen > 1 {
		c.Pool = true
		c.PoolLen = c.OutLen / 2
	}

	limit := math.Sqrt(6.0 / float64(inChannels*c.Kernel+c.Filters*c.Kernel))
	c.W = make([][][]float64, c.Filters)
	for f := range c.W {
		c.W[f] = make([][]float64, inChannels)
		for ch := range c.W[f] {
			c.W[f][ch] = make([]float64, c.Kernel)
			for k := range c.W[f][ch] {
				c.W[f][ch][k] = (rng.Float64()*2 - 1) * limit
			}
		}
	}
	c.B = make([]float64, c.Filters)
	return c
}

// convCache carries per-sample intermediates needed by the backward pass
type convCache struct {
	padded  [][]float64 // input with zero padding applied
	preAct  [][]float64 // pre-relu activations
	argmax  [][]int     // pooling winner indexes, nil when not pooling
	dropped [][]bool    // dropout mask applied to the layer output
}

func (c *Conv1D) forward(x [][]float64) ([][]float64, *convCache) {
	cache := &convCache{padded: make([][]float64, c.InChannels)}
	padded := c.PadLeft + c.InLen
	if need := (c.OutLen-1)*c.Stride + c.Kernel; need > padded {
		padded = need
	}
	for ch := 0; ch < c.InChannels; ch++ {
		row := make([]float64, padded)
		copy(row[c.PadLeft:], x[ch])
		cache.padded[ch] = row
	}

	cache.preAct = make([][]float64, c.Filters)
	act := make([][]float64, c.Filters)
	for f := 0; f < c.Filters; f++ {
		pre := make([]float64, c.OutLen)
		a := make([]float64, c.OutLen)
		for o := 0; o < c.OutLen; o++ {
			sum := c.B[f]
			base := o * c.Stride
			for ch := 0; ch < c.InChannels; ch++ {
				w := c.W[f][ch]
				xp := cache.padded[ch]
				for k := 0; k < c.Kernel; k++ {
					sum += w[k] * xp[base+k]
				}
			}
			pre[o] = sum
			if sum > 0 {
				a[o] = sum
			}
		}
		cache.preAct[f] = pre
		act[f] = a
	}

	if !c.Pool {
		return act, cache
	}
	cache.argmax = make([][]int, c.Filters)
	pooled := make([][]float64, c.Filters)
	for f := 0; f < c.Filters; f++ {
		p := make([]float64, c.PoolLen)
		am := make([]int, c.PoolLen)
		for o := 0; o < c.PoolLen; o++ {
			i, j := 2*o, 2*o+1
			if act[f][i] >= act[f][j] {
				p[o], am[o] = act[f][i], i
			} else {
				p[o], am[o] = act[f][j], j
			}
		}
		pooled[f] = p
		cache.argmax[f] = am
	}
	return pooled, cache
}

// backward routes the output gradient through pooling, relu and the
// kernel, accumulating weight gradients and returning the input gradient
func (c *Conv1D) backward(dOut [][]float64, cache *convCache, gw [][][]float64, gb []float64) [][]float64 {
	dAct := dOut
	if c.Pool {
		dAct = make([][]float64, c.Filters)
		for f := 0; f < c.Filters; f++ {
			d := make([]float64, c.OutLen)
			for o, idx := range cache.argmax[f] {
				d[idx] += dOut[f][o]
			}
			dAct[f] = d
		}
	}

	dPadded := make([][]float64, c.InChannels)
	for ch := range dPadded {
		dPadded[ch] = make([]float64, len(cache.padded[ch]))
	}
	for f := 0; f < c.Filters; f++ {
		for o := 0; o < c.OutLen; o++ {
			if cache.preAct[f][o] <= 0 {
				continue
			}
			dz := dAct[f][o]
			if dz == 0 {
				continue
			}
			gb[f] += dz
			base := o * c.Stride
			for ch := 0; ch < c.InChannels; ch++ {
				xp := cache.padded[ch]
				w := c.W[f][ch]
				gwf := gw[f][ch]
				dp := dPadded[ch]
				for k := 0; k < c.Kernel; k++ {
					gwf[k] += dz * xp[base+k]
					dp[base+k] += dz * w[k]
				}
			}
		}
	}

	dx := make([][]float64, c.InChannels)
	for ch := range dx {
		dx[ch] = dPadded[ch][c.PadLeft : c.PadLeft+c.InLen]
	}
	return dx
}

// Dense is a fully connected layer, relu or linear
type Dense struct {
	In, Out int
	Relu    bool
	W       [][]float64 // [out][in]
	B       []float64
}

func newDense(in, out int, relu bool, rng *rand.Rand) *Dense {
	d := &Dense{In: in, Out: out, Relu: relu}
	limit := math.Sqrt(6.0 / float64(in+out))
	d.W = make([][]float64, out)
	for o := range d.W {
		d.W[o] = make([]float64, in)
		for i := range d.W[o] {
			d.W[o][i] = (rng.Float64()*2 - 1) * limit
		}
	}
	d.B = make([]float64, out)
	return d
}

type denseCache struct {
	input  []float64
	preAct []float64
}

func (d *Dense) forward(x []float64) ([]float64, *denseCache) {
	cache := &denseCache{input: x, preAct: make([]float64, d.Out)}
	out := make([]float64, d.Out)
	for o := 0; o < d.Out; o++ {
		sum := d.B[o]
		w := d.W[o]
		for i, v := range x {
			sum += w[i] * v
		}
		cache.preAct[o] = sum
		if d.Relu && sum < 0 {
			sum = 0
		}
		out[o] = sum
	}
	return out, cache
}

func (d *Dense) backward(dOut []float64, cache *denseCache, gw [][]float64, gb []float64) []float64 {
	dx := make([]float64, d.In)
	for o := 0; o < d.Out; o++ {
		dz := dOut[o]
		if d.Relu && cache.preAct[o] <= 0 {
			continue
		}
		if dz == 0 {
			continue
		}
		gb[o] += dz
		w := d.W[o]
		gwo := gw[o]
		for i, v := range cache.input {
			gwo[i] += dz * v
			dx[i] += dz * w[i]
		}
	}
	return dx
}

// dropoutVec applies inverted dropout in place and returns the keep mask
func dropoutVec(x []float64, rate float64, rng *rand.Rand) []bool {
	if rate <= 0 {
		return nil
	}
	keep := make([]bool, len(x))
	scale := 1 / (1 - rate)
	for i := range x {
		if rng.Float64() < rate {
			x[i] = 0
		} else {
			keep[i] = true
			x[i] *= scale
		}
	}
	return keep
}

// dropoutBack zeroes the gradient of dropped units and rescales the rest
func dropoutBack(dx []float64, keep []bool, rate float64) {
	if keep == nil {
		return
	}
	scale := 1 / (1 - rate)
	for i := range dx {
		if keep[i] {
			dx[i] *= scale
		} else {
			dx[i] = 0
		}
	}
}
