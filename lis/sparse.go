// Copyright 2016 The Femsolve Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lis

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
	"github.com/femsolve/femsolve/blk"
)

// Sparse is a sparse direct backend over gosl's UMFPACK bindings. Use it for
// large systems; it requires the UMFPACK library at build time. The wrapped
// solver panics on backend failures rather than returning errors
type Sparse struct {
	sys   blk.System
	args  la.SpArgs
	t     la.Triplet
	ls    la.SparseSolver
	ready bool // ls initialised against t's structure
	n     int
}

// set factory
func init() {
	allocators["umfpack"] = func() Solver { return new(Sparse) }
}

// Init binds the handle to a linear system
func (o *Sparse) Init(a blk.System, opts Options) (err error) {
	m, n := a.Size()
	if m != n {
		return chk.Err("umfpack: system must be square. %d != %d", m, n)
	}
	o.sys = a
	o.args.Verbose = opts.Verbose
	o.n = n
	return
}

// Fact gathers the triplet form, initialises the solver on first use and
// factorises
func (o *Sparse) Fact() (err error) {
	o.sys.ToTriplet(&o.t)
	if !o.ready {
		o.ls = la.NewSparseSolver("umfpack")
		o.ls.Init(&o.t, &o.args)
		o.ready = true
	}
	o.ls.Fact()
	return
}

// Solve computes x := A⁻¹ b using the last factorisation
func (o *Sparse) Solve(x, b []float64) (err error) {
	if !o.ready {
		return chk.Err("umfpack: Fact must be called before Solve")
	}
	o.ls.Solve(x, b, false)
	return
}

// Free releases backend resources
func (o *Sparse) Free() {
	if o.ready {
		o.ls.Free()
		o.ready = false
	}
}
