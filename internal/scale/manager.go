package scale

import (
	"gonum.org/v1/gonum/mat"

	"ftnirs/domain/dataset"
)

// FitApply fits one scaler to the age column and one to every remaining
// feature column, transforms the frame in place, and returns both fitted
// scalers for later inverse transforms.
//
// The statistics are learned from whatever frame is passed in; the
// training orchestrator passes the full table, test partition included.
func FitApply(name string, f *dataset.Frame) (scalerX, scalerY *Scaler, err error) {
	kind, err := ParseKind(name)
	if err != nil {
		return nil, nil, err
	}
	return FitApplyKind(kind, f)
}

// FitApplyKind is FitApply with an already-resolved scaler kind
func FitApplyKind(kind Kind, f *dataset.Frame) (scalerX, scalerY *Scaler, err error) {
	rows := f.Rows()

	scalerY = New(kind)
	y := mat.NewDense(rows, 1, f.Age())
	if err := scalerY.Fit(y); err != nil {
		return nil, nil, err
	}
	scalerY.Transform(y)
	f.SetAge(mat.Col(nil, 0, y))

	// feature columns: everything numeric except age, in frame order
	features := f.Values.Slice(0, rows, 1, f.NumericCols()).(*mat.Dense)
	scalerX = New(kind)
	if err := scalerX.Fit(features); err != nil {
		return nil, nil, err
	}
	scalerX.Transform(features)

	return scalerX, scalerY, nil
}
