// Copyright 2016 The Femsolve Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package blk

import (
	"github.com/cpmech/gosl/la"
	"gonum.org/v1/gonum/mat"
)

// System is the linear operator handed to a linear-solver backend. Backends
// keep a reference (not a copy): the caller reassembles the operator in place
// and refreshes the backend before each solve. Matrix implements System; a
// reduction may substitute any other implementation for the solve step
type System interface {
	Size() (m, n int)
	MatVecMulAdd(y []float64, α float64, x []float64)
	Diag(dst []float64)
	ToTriplet(t *la.Triplet) *la.Triplet
	ToDense(dst *mat.Dense) *mat.Dense
}
