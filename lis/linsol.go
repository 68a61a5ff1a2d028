// Copyright 2016 The Femsolve Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package lis implements the linear-solver backends behind the fixed-point
// loops. A backend is a persisted handle: initialised once against a system,
// refreshed with Fact after each in-place reassembly, and reused across outer
// iterations and across repeated solver invocations
package lis

import (
	"github.com/cpmech/gosl/chk"
	"github.com/femsolve/femsolve/blk"
)

// Options selects and tunes a backend
type Options struct {
	Precon  string  // preconditioner; e.g. "jacobi" (iterative methods only)
	AbsTol  float64 // absolute tolerance (iterative methods only)
	RelTol  float64 // relative tolerance (iterative methods only)
	Verbose bool    // show backend messages
}

// Solver is a persisted linear-solver handle
type Solver interface {

	// Init binds the handle to a linear system. The system is referenced,
	// not copied: mutations made by reassembly are seen by the next Fact
	Init(a blk.System, opts Options) (err error)

	// Fact refreshes the handle from the bound system; e.g. performs the
	// factorisation or rebuilds the preconditioner
	Fact() (err error)

	// Solve computes x such that A*x = b
	Solve(x, b []float64) (err error)

	// Free releases backend resources
	Free()
}

// allocators holds all available backends
var allocators = make(map[string]func() Solver)

// New returns a new handle for the backend named method; e.g. "lu", "cg"
func New(method string) (Solver, error) {
	alloc, ok := allocators[method]
	if !ok {
		return nil, chk.Err("cannot find linear solver method named %q", method)
	}
	return alloc(), nil
}
