package filter

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// pcaReconstruct projects the block onto its leading principal components
// and maps it back, a lossy fixed-rank denoise. The decomposition is
// fitted on the block passed in, so separate blocks never share a basis.
func pcaReconstruct(block *mat.Dense, rank int) *mat.Dense {
	rows, cols := block.Dims()
	maxRank := rows
	if cols < maxRank {
		maxRank = cols
	}
	if rank > maxRank {
		rank = maxRank
	}
	if rank < 1 {
		return mat.DenseCopyOf(block)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(block, nil); !ok {
		return mat.DenseCopyOf(block)
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	basis := vecs.Slice(0, cols, 0, rank)

	means := make([]float64, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, block)
		means[j] = stat.Mean(col, nil)
	}

	centered := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			centered.Set(i, j, block.At(i, j)-means[j])
		}
	}

	var scores mat.Dense
	scores.Mul(centered, basis)
	var recon mat.Dense
	recon.Mul(&scores, basis.T())
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			recon.Set(i, j, recon.At(i, j)+means[j])
		}
	}
	return &recon
}
