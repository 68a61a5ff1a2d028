// Copyright 2016 The Femsolve Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lis

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/femsolve/femsolve/blk"
	"gonum.org/v1/gonum/floats"
)

// CG is a preconditioned conjugate-gradients backend for symmetric
// positive-definite systems. The stopping test is
//
//	|r| < max(AbsTol, RelTol*|b|)
//
// within 2n iterations. Precon may be "" (identity) or "jacobi"
type CG struct {
	sys     blk.System
	opts    Options
	n       int
	r, p, q []float64 // residual, search direction, A*p
	z       []float64 // preconditioned residual
	diag    []float64 // jacobi preconditioner
}

// set factory
func init() {
	allocators["cg"] = func() Solver { return new(CG) }
}

// Init binds the handle to a linear system and allocates the work arrays
func (o *CG) Init(a blk.System, opts Options) (err error) {
	m, n := a.Size()
	if m != n {
		return chk.Err("cg: system must be square. %d != %d", m, n)
	}
	switch opts.Precon {
	case "", "jacobi":
	default:
		return chk.Err("cg: cannot find preconditioner named %q", opts.Precon)
	}
	o.sys = a
	o.opts = opts
	o.n = n
	o.r = make([]float64, n)
	o.p = make([]float64, n)
	o.q = make([]float64, n)
	o.z = make([]float64, n)
	if opts.Precon == "jacobi" {
		o.diag = make([]float64, n)
	}
	return
}

// Fact refreshes the preconditioner from the bound system
func (o *CG) Fact() (err error) {
	if o.diag != nil {
		o.sys.Diag(o.diag)
		for i, d := range o.diag {
			if d == 0 {
				return chk.Err("cg: jacobi preconditioner has zero diagonal at equation %d", i)
			}
		}
	}
	return
}

// Solve runs the conjugate-gradients iteration
func (o *CG) Solve(x, b []float64) (err error) {
	if len(x) != o.n || len(b) != o.n {
		return chk.Err("cg: vectors have wrong length. %d, %d != %d", len(x), len(b), o.n)
	}

	// tolerance
	tol := o.opts.AbsTol
	if t := o.opts.RelTol * floats.Norm(b, 2); t > tol {
		tol = t
	}
	if tol == 0 {
		tol = 1e-10
	}

	// r = b - A*x
	copy(o.r, b)
	o.sys.MatVecMulAdd(o.r, -1, x)

	// z = M⁻¹ r; p = z
	o.psolve(o.z, o.r)
	copy(o.p, o.z)
	rho := floats.Dot(o.r, o.z)

	maxit := 2 * o.n
	for it := 0; it < maxit; it++ {
		if floats.Norm(o.r, 2) < tol {
			if o.opts.Verbose {
				io.Pf("cg: converged in %d iterations\n", it)
			}
			return
		}

		// q = A*p
		floats.Scale(0, o.q)
		o.sys.MatVecMulAdd(o.q, 1, o.p)

		// α = ρ / pᵀq
		den := floats.Dot(o.p, o.q)
		if den == 0 {
			return chk.Err("cg: breakdown at iteration %d (pᵀAp = 0)", it)
		}
		α := rho / den

		// x += α p;  r -= α q
		floats.AddScaled(x, α, o.p)
		floats.AddScaled(o.r, -α, o.q)

		// z = M⁻¹ r;  β = ρ⁺/ρ;  p = z + β p
		o.psolve(o.z, o.r)
		rhonew := floats.Dot(o.r, o.z)
		β := rhonew / rho
		rho = rhonew
		for i := range o.p {
			o.p[i] = o.z[i] + β*o.p[i]
		}
	}
	return chk.Err("cg: iteration limit reached (%d iterations, |r| = %g > %g)", maxit, floats.Norm(o.r, 2), tol)
}

// Free releases resources
func (o *CG) Free() {
}

// psolve applies the preconditioner: dst = M⁻¹ src
func (o *CG) psolve(dst, src []float64) {
	if o.diag == nil {
		copy(dst, src)
		return
	}
	for i := range src {
		dst[i] = src[i] / o.diag[i]
	}
}
