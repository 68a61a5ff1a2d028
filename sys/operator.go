// Copyright 2016 The Femsolve Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sys

import (
	"github.com/femsolve/femsolve/blk"
)

// Operator is one unit of weak-form contribution to the assembled system
type Operator interface {

	// Assemble adds this operator's contribution to the block matrix kb and
	// right-hand-side vector fb, evaluated at the current solution sol.
	// Contributions are additive: operators add, never overwrite. kb and fb
	// have been zeroed by the solver before the assembly loop
	Assemble(kb *blk.Matrix, fb, sol *blk.Vector) (err error)

	// NonlinearDeps returns the unknowns this operator depends on
	// nonlinearly; an empty result marks a linear contribution
	NonlinearDeps() []Unknown

	// FixedEqs returns the prescribed (Dirichlet/constrained) equations of
	// this operator, in the flat numbering of the problem's block vectors.
	// These equations never participate in residual-based convergence tests
	FixedEqs() []int
}

// Reduction derives an alternative (typically smaller) linear system for the
// solve step while the residual stays defined against the original system
type Reduction interface {

	// Reduce maps the assembled system and right-hand side to the reduced
	// ones used by the linear solver
	Reduce(a blk.System, b []float64) (ra blk.System, rb []float64, err error)

	// Expand maps a solution xr of the reduced system back to the full
	// degrees of freedom in x
	Expand(xr, x []float64) (err error)
}
