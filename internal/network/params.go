// Package network implements the dual-branch regression model: a flat
// tabular branch concatenated with a convolutional spectral branch,
// trained with Adam on mean squared error.
package network

import (
	"ftnirs/internal/errors"
)

// HyperParams is the concrete 8-value topology parametrization shared by
// the manual builder and the search engine
type HyperParams struct {
	ConvLayers int     `json:"num_conv_layers"`
	KernelSize int     `json:"kernel_size"`
	Stride     int     `json:"stride_size"`
	Dropout    float64 `json:"dropout_rate"`
	MaxPooling bool    `json:"use_max_pooling"`
	Filters    int     `json:"num_filters"`
	DenseUnits int     `json:"dense"`
	Dropout2   float64 `json:"dropout_2"`
}

// DefaultHyperParams mirrors the search space defaults
func DefaultHyperParams() HyperParams {
	return HyperParams{
		ConvLayers: 1,
		KernelSize: 101,
		Stride:     51,
		Dropout:    0.1,
		MaxPooling: false,
		Filters:    50,
		DenseUnits: 256,
		Dropout2:   0.0,
	}
}

// ParamsFromValues builds a HyperParams from exactly eight numeric or
// boolean values in the fixed order: conv layers, kernel size, stride,
// dropout, max pooling, filters, dense units, second dropout.
func ParamsFromValues(values []interface{}) (HyperParams, error) {
	var hp HyperParams
	if len(values) != 8 {
		return hp, errors.ParameterError("model parameters must be a list of 8 values, got %d", len(values))
	}
	ints := func(i int) (int, bool) {
		switch v := values[i].(type) {
		case int:
			return v, true
		case float64:
			return int(v), true
		}
		return 0, false
	}
	flt := func(i int) (float64, bool) {
		switch v := values[i].(type) {
		case int:
			return float64(v), true
		case float64:
			return v, true
		}
		return 0, false
	}
	var ok bool
	if hp.ConvLayers, ok = ints(0); !ok {
		return hp, badParam(0)
	}
	if hp.KernelSize, ok = ints(1); !ok {
		return hp, badParam(1)
	}
	if hp.Stride, ok = ints(2); !ok {
		return hp, badParam(2)
	}
	if hp.Dropout, ok = flt(3); !ok {
		return hp, badParam(3)
	}
	if hp.MaxPooling, ok = values[4].(bool); !ok {
		// a numeric flag is tolerated for the boolean slot
		if v, numeric := flt(4); numeric {
			hp.MaxPooling = v != 0
		} else {
			return hp, badParam(4)
		}
	}
	if hp.Filters, ok = ints(5); !ok {
		return hp, badParam(5)
	}
	if hp.DenseUnits, ok = ints(6); !ok {
		return hp, badParam(6)
	}
	if hp.Dropout2, ok = flt(7); !ok {
		return hp, badParam(7)
	}
	if err := hp.Validate(); err != nil {
		return hp, err
	}
	return hp, nil
}

func badParam(i int) error {
	return errors.ParameterError("model parameter %d must be numeric or boolean", i)
}

// Validate rejects structurally impossible topologies
func (hp HyperParams) Validate() error {
	if hp.ConvLayers < 1 {
		return errors.ParameterError("conv layer count must be at least 1, got %d", hp.ConvLayers)
	}
	if hp.KernelSize < 1 || hp.Stride < 1 {
		return errors.ParameterError("kernel size and stride must be positive")
	}
	if hp.Filters < 1 || hp.DenseUnits < 1 {
		return errors.ParameterError("filter count and dense width must be positive")
	}
	if hp.Dropout < 0 || hp.Dropout >= 1 || hp.Dropout2 < 0 || hp.Dropout2 >= 1 {
		return errors.ParameterError("dropout rates must be in [0,1)")
	}
	return nil
}
