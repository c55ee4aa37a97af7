// Package kalman implements a linear Kalman filter tracking a point in the
// plane under constant acceleration from periodic position measurements.
//
// The state is [px, py, vx, vy]. Predict and Update are meant to be called
// alternately, once per sampling interval, Predict first.
package kalman

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	dimX = 4 // px, py, vx, vy
	dimZ = 2 // px, py
	dimU = 2 // ax, ay
)

// Position is a point in the measurement plane.
type Position struct {
	X, Y float64
}

// Estimator is a tracker fed one position measurement per time step.
type Estimator interface {
	Predict() Position
	Update(z Position) (Position, error)
}

// Option configures a Filter at construction.
type Option func(*Filter)

// WithoutRounding keeps the continuous state after Update. By default every
// component of the state is rounded to the nearest integer, ties to even.
func WithoutRounding() Option {
	return func(f *Filter) { f.round = false }
}

// Filter is a constant-acceleration Kalman filter. It is not safe for
// concurrent use; see SyncFilter.
type Filter struct {
	dt    float64
	round bool

	acc *mat.VecDense // (2)
	a   *mat.Dense    // (4, 4)
	b   *mat.Dense    // (4, 2)
	h   *mat.Dense    // (2, 4)
	q   *mat.Dense    // (4, 4)
	r   *mat.Dense    // (2, 2)
	id  *mat.Dense    // (4, 4) identity
	u   *mat.VecDense // B·acc, constant

	x *mat.VecDense // (4)
	p *mat.Dense    // (4, 4)

	// workspace reused by every step
	xw   mat.VecDense // (4)
	zw   mat.VecDense // (2)
	y    mat.VecDense // (2)
	pw   mat.Dense    // (4, 4)
	ikh  mat.Dense    // (4, 4)
	pht  mat.Dense    // (4, 2)
	k    mat.Dense    // (4, 2)
	s    mat.Dense    // (2, 2)
	sInv mat.Dense    // (2, 2)
}

// NewFilter builds a filter sampling every dt with constant acceleration
// (ax, ay), per-axis measurement standard deviations xStd and yStd, and
// acceleration noise standard deviation accStd.
//
// Zero standard deviations are accepted: a zero measurement noise makes
// Update trust the measurement fully.
func NewFilter(dt, ax, ay, xStd, yStd, accStd float64, opts ...Option) (*Filter, error) {
	for _, p := range []struct {
		name string
		v    float64
	}{
		{"dt", dt}, {"ax", ax}, {"ay", ay},
		{"x measurement std", xStd}, {"y measurement std", yStd}, {"acceleration std", accStd},
	} {
		if math.IsNaN(p.v) || math.IsInf(p.v, 0) {
			return nil, fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidParameter, p.name, p.v)
		}
	}
	if dt <= 0 {
		return nil, fmt.Errorf("%w: dt must be positive, got %v", ErrInvalidParameter, dt)
	}
	if xStd < 0 || yStd < 0 || accStd < 0 {
		return nil, fmt.Errorf("%w: standard deviations must not be negative, got (%v, %v, %v)",
			ErrInvalidParameter, xStd, yStd, accStd)
	}

	q, err := QDiscreteWhiteNoise(2, dt, accStd*accStd, dimU, false)
	if err != nil {
		return nil, fmt.Errorf("process noise: %w", err)
	}

	f := &Filter{
		dt:    dt,
		round: true,
		acc:   mat.NewVecDense(dimU, []float64{ax, ay}),
		id:    eye(dimX),
		x:     mat.NewVecDense(dimX, nil),
		p:     eye(dimX),
		a: mat.NewDense(dimX, dimX, []float64{
			1, 0, dt, 0,
			0, 1, 0, dt,
			0, 0, 1, 0,
			0, 0, 0, 1,
		}),
		b: mat.NewDense(dimX, dimU, []float64{
			dt * dt / 2, 0,
			0, dt * dt / 2,
			dt, 0,
			0, dt,
		}),
		h: mat.NewDense(dimZ, dimX, []float64{
			1, 0, 0, 0,
			0, 1, 0, 0,
		}),
		q: q,
		r: mat.NewDense(dimZ, dimZ, []float64{
			xStd * xStd, 0,
			0, yStd * yStd,
		}),
	}
	f.u = mat.NewVecDense(dimX, nil)
	f.u.MulVec(f.b, f.acc)

	f.xw = *mat.NewVecDense(dimX, nil)
	f.zw = *mat.NewVecDense(dimZ, nil)
	f.y = *mat.NewVecDense(dimZ, nil)
	f.pw = *mat.NewDense(dimX, dimX, nil)
	f.ikh = *mat.NewDense(dimX, dimX, nil)
	f.pht = *mat.NewDense(dimX, dimZ, nil)
	f.k = *mat.NewDense(dimX, dimZ, nil)
	f.s = *mat.NewDense(dimZ, dimZ, nil)
	f.sInv = *mat.NewDense(dimZ, dimZ, nil)

	for _, opt := range opts {
		opt(f)
	}

	diagf("new filter: dt=%g acc=(%g, %g) measurement std=(%g, %g) acceleration std=%g round=%t",
		dt, ax, ay, xStd, yStd, accStd, f.round)
	return f, nil
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// Predict advances the estimate by one time step using the motion model
// and returns the predicted position.
func (kf *Filter) Predict() Position {
	// x = A·x + B·acc
	kf.xw.MulVec(kf.a, kf.x)
	kf.x.AddVec(&kf.xw, kf.u)

	// P = A·P·Aᵀ + Q
	kf.pw.Mul(kf.a, kf.p)
	kf.p.Mul(&kf.pw, kf.a.T())
	kf.p.Add(kf.p, kf.q)

	pos := kf.position()
	tracef("predict: position=(%g, %g) velocity=(%g, %g)", pos.X, pos.Y, kf.x.AtVec(2), kf.x.AtVec(3))
	return pos
}

// Update corrects the estimate with the position measurement z and returns
// the corrected position. It fails with a *NumericalError, leaving the
// estimate unchanged, when the innovation covariance cannot be inverted.
//
// Calling Update more than once per Predict is allowed but reuses the same
// process noise for each measurement.
func (kf *Filter) Update(z Position) (Position, error) {
	// S = H·P·Hᵀ + R
	kf.pht.Mul(kf.p, kf.h.T())
	kf.s.Mul(kf.h, &kf.pht)
	kf.s.Add(&kf.s, kf.r)

	if err := kf.sInv.Inverse(&kf.s); err != nil {
		nerr := newNumericalError("update", err)
		opsf("update rejected: %v", nerr)
		return Position{}, nerr
	}
	for i := 0; i < dimZ; i++ {
		for j := 0; j < dimZ; j++ {
			if v := kf.sInv.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				nerr := newNumericalError("update", fmt.Errorf("inverse has non-finite entry %v", v))
				opsf("update rejected: %v", nerr)
				return Position{}, nerr
			}
		}
	}

	// K = P·Hᵀ·S⁻¹
	kf.k.Mul(&kf.pht, &kf.sInv)

	// x = round(x + K·(z − H·x))
	kf.zw.SetVec(0, z.X)
	kf.zw.SetVec(1, z.Y)
	kf.y.MulVec(kf.h, kf.x)
	kf.y.SubVec(&kf.zw, &kf.y)
	kf.xw.MulVec(&kf.k, &kf.y)
	kf.x.AddVec(kf.x, &kf.xw)
	if kf.round {
		for i := 0; i < dimX; i++ {
			kf.x.SetVec(i, math.RoundToEven(kf.x.AtVec(i)))
		}
	}

	// P = (I − K·H)·P
	kf.ikh.Mul(&kf.k, kf.h)
	kf.ikh.Sub(kf.id, &kf.ikh)
	kf.pw.Mul(&kf.ikh, kf.p)
	kf.p.Copy(&kf.pw)

	pos := kf.position()
	tracef("update: z=(%g, %g) innovation=(%g, %g) position=(%g, %g)",
		z.X, z.Y, kf.y.AtVec(0), kf.y.AtVec(1), pos.X, pos.Y)
	return pos, nil
}

func (kf *Filter) position() Position {
	return Position{X: kf.x.AtVec(0), Y: kf.x.AtVec(1)}
}

// State returns a copy of the state vector [px, py, vx, vy].
func (kf *Filter) State() [dimX]float64 {
	var s [dimX]float64
	for i := range s {
		s[i] = kf.x.AtVec(i)
	}
	return s
}

// Covariance returns a copy of the estimation error covariance.
func (kf *Filter) Covariance() [dimX][dimX]float64 {
	var c [dimX][dimX]float64
	for i := range c {
		for j := range c[i] {
			c[i][j] = kf.p.At(i, j)
		}
	}
	return c
}

// Dt returns the sampling interval.
func (kf *Filter) Dt() float64 { return kf.dt }

// Acceleration returns the constant control acceleration.
func (kf *Filter) Acceleration() Position {
	return Position{X: kf.acc.AtVec(0), Y: kf.acc.AtVec(1)}
}
