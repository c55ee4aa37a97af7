package kalman

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// OrderByDerivative lays the dim×dim kernel q (row-major) out over
// blockSize axes so the state is ordered by derivative first:
// [x, y, ..., vx, vy, ...].
func OrderByDerivative(q []float64, dim int, blockSize int) *mat.Dense {
	N := dim * blockSize
	D := mat.NewDense(N, N, nil)
	for i, x := range q {
		ix, iy := (i/dim)*blockSize, (i%dim)*blockSize
		for k := 0; k < blockSize; k++ {
			D.Set(ix+k, iy+k, x)
		}
	}
	return D
}

// QDiscreteWhiteNoise returns the process noise of a piecewise white noise
// model of order dim (2: position and velocity, 3: adds acceleration,
// 4: adds jerk), replicated over blockSize axes and scaled by variance.
//
// With orderByDim the axes form independent blocks ([x, vx, y, vy]);
// otherwise the result is ordered by derivative ([x, y, vx, vy]).
func QDiscreteWhiteNoise(dim int, dt float64, variance float64, blockSize int, orderByDim bool) (*mat.Dense, error) {
	if dim != 2 && dim != 3 && dim != 4 {
		return nil, fmt.Errorf("%w: noise order must be between 2 and 4, got %d", ErrInvalidParameter, dim)
	}
	if blockSize < 1 {
		return nil, fmt.Errorf("%w: block size must be positive, got %d", ErrInvalidParameter, blockSize)
	}

	var Q []float64
	switch dim {
	case 2:
		Q = []float64{
			0.25 * math.Pow(dt, 4), 0.5 * math.Pow(dt, 3),
			0.5 * math.Pow(dt, 3), math.Pow(dt, 2),
		}
	case 3:
		Q = []float64{
			0.25 * math.Pow(dt, 4), 0.5 * math.Pow(dt, 3), 0.5 * math.Pow(dt, 2),
			0.5 * math.Pow(dt, 3), math.Pow(dt, 2), dt,
			0.5 * math.Pow(dt, 2), dt, 1,
		}
	default:
		Q = []float64{
			math.Pow(dt, 6) / 36, math.Pow(dt, 5) / 12, math.Pow(dt, 4) / 6, math.Pow(dt, 3) / 6,
			math.Pow(dt, 5) / 12, math.Pow(dt, 4) / 4, math.Pow(dt, 3) / 2, math.Pow(dt, 2) / 2,
			math.Pow(dt, 4) / 6, math.Pow(dt, 3) / 2, math.Pow(dt, 2), dt,
			math.Pow(dt, 3) / 6, math.Pow(dt, 2) / 2, dt, 1,
		}
	}

	var res *mat.Dense
	if orderByDim {
		block := mat.NewDense(dim, dim, Q)
		blocks := make([]mat.Matrix, blockSize)
		for i := range blocks {
			blocks[i] = block
		}
		res = BlockDiag(blocks...)
	} else {
		res = OrderByDerivative(Q, dim, blockSize)
	}
	res.Scale(variance, res)
	return res, nil
}

// BlockDiag places mats along the diagonal of a new matrix.
func BlockDiag(mats ...mat.Matrix) *mat.Dense {
	w := 0
	h := 0
	for _, m := range mats {
		mw, mh := m.Dims()
		w += mw
		h += mh
	}
	if w == 0 || h == 0 {
		return &mat.Dense{}
	}

	newMatrix := mat.NewDense(w, h, nil)
	w, h = 0, 0
	for _, m := range mats {
		mw, mh := m.Dims()
		for i := 0; i < mw; i++ {
			for j := 0; j < mh; j++ {
				newMatrix.Set(w+i, h+j, m.At(i, j))
			}
		}
		w += mw
		h += mh
	}

	return newMatrix
}
