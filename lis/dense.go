// Copyright 2016 The Femsolve Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lis

import (
	"github.com/cpmech/gosl/chk"
	"github.com/femsolve/femsolve/blk"
	"gonum.org/v1/gonum/mat"
)

// LU is a dense LU-factorisation backend. It is the default: pure Go, no
// external libraries, adequate for the moderate system sizes of staggered
// multiphysics runs
type LU struct {
	sys blk.System
	a   *mat.Dense
	lu  mat.LU
	n   int
}

// set factory
func init() {
	allocators["lu"] = func() Solver { return new(LU) }
}

// Init binds the handle to a linear system
func (o *LU) Init(a blk.System, opts Options) (err error) {
	m, n := a.Size()
	if m != n {
		return chk.Err("lu: system must be square. %d != %d", m, n)
	}
	o.sys = a
	o.n = n
	return
}

// Fact gathers the dense form and factorises it
func (o *LU) Fact() (err error) {
	o.a = o.sys.ToDense(o.a)
	o.lu.Factorize(o.a)
	return
}

// Solve computes x := A⁻¹ b using the last factorisation
func (o *LU) Solve(x, b []float64) (err error) {
	if len(x) != o.n || len(b) != o.n {
		return chk.Err("lu: vectors have wrong length. %d, %d != %d", len(x), len(b), o.n)
	}
	xv := mat.NewVecDense(o.n, x)
	bv := mat.NewVecDense(o.n, b)
	return o.lu.SolveVecTo(xv, false, bv)
}

// Free releases resources
func (o *LU) Free() {
}
