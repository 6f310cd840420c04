package network

import "math"

// Adam defaults used by every fitting pass
const (
	adamLearningRate = 1e-3
	adamBeta1        = 0.9
	adamBeta2        = 0.999
	adamEpsilon      = 1e-7
)

// layerGrads mirrors one dense layer's parameters
type layerGrads struct {
	W [][]float64
	B []float64
}

// convGrads mirrors one convolution layer's parameters
type convGrads struct {
	W [][][]float64
	B []float64
}

// gradients accumulates one batch worth of parameter gradients
type gradients struct {
	convs  []*convGrads
	reduce *layerGrads
	hidden *layerGrads
	output *layerGrads
}

func (n *Network) newGradients() *gradients {
	g := &gradients{}
	for _, c := range n.Convs {
		cg := &convGrads{W: make([][][]float64, c.Filters), B: make([]float64, c.Filters)}
		for f := range cg.W {
			cg.W[f] = make([][]float64, c.InChannels)
			for ch := range cg.W[f] {
				cg.W[f][ch] = make([]float64, c.Kernel)
			}
		}
		g.convs = append(g.convs, cg)
	}
	g.reduce = newLayerGrads(n.Reduce)
	g.hidden = newLayerGrads(n.Hidden)
	g.output = newLayerGrads(n.Output)
	return g
}

func newLayerGrads(d *Dense) *layerGrads {
	lg := &layerGrads{W: make([][]float64, d.Out), B: make([]float64, d.Out)}
	for o := range lg.W {
		lg.W[o] = make([]float64, d.In)
	}
	return lg
}

// adam keeps first and second moment estimates for every parameter,
// aligned with the pointer order produced by parameters()
type adam struct {
	m, v []float64
	t    int
}

// parameters returns stable pointers to every trainable scalar. The
// gradient list from flatten() follows the identical order.
func (n *Network) parameters() []*float64 {
	var ps []*float64
	for _, c := range n.Convs {
		for f := range c.W {
			for ch := range c.W[f] {
				for k := range c.W[f][ch] {
					ps = append(ps, &c.W[f][ch][k])
				}
			}
		}
		for f := range c.B {
			ps = append(ps, &c.B[f])
		}
	}
	for _, d := range []*Dense{n.Reduce, n.Hidden, n.Output} {
		for o := range d.W {
			for i := range d.W[o] {
				ps = append(ps, &d.W[o][i])
			}
		}
		for o := range d.B {
			ps = append(ps, &d.B[o])
		}
	}
	return ps
}

func (g *gradients) flatten() []float64 {
	var gs []float64
	for _, c := range g.convs {
		for f := range c.W {
			for ch := range c.W[f] {
				gs = append(gs, c.W[f][ch]...)
			}
		}
		gs = append(gs, c.B...)
	}
	for _, l := range []*layerGrads{g.reduce, g.hidden, g.output} {
		for o := range l.W {
			gs = append(gs, l.W[o]...)
		}
		gs = append(gs, l.B...)
	}
	return gs
}

func (n *Network) applyAdam(g *gradients) {
	params := n.parameters()
	grads := g.flatten()
	if n.opt == nil || len(n.opt.m) != len(params) {
		n.opt = &adam{m: make([]float64, len(params)), v: make([]float64, len(params))}
	}
	o := n.opt
	o.t++
	c1 := 1 - math.Pow(adamBeta1, float64(o.t))
	c2 := 1 - math.Pow(adamBeta2, float64(o.t))
	for i, p := range params {
		grad := grads[i]
		o.m[i] = adamBeta1*o.m[i] + (1-adamBeta1)*grad
		o.v[i] = adamBeta2*o.v[i] + (1-adamBeta2)*grad*grad
		mHat := o.m[i] / c1
		vHat := o.v[i] / c2
		*p -= adamLearningRate * mHat / (math.Sqrt(vHat) + adamEpsilon)
	}
}
