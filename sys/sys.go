// Copyright 2016 The Femsolve Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package sys defines the problem model consumed by the fixed-point solvers:
// unknowns, weak-form operators and problem descriptions. Concrete operators
// (finite elements, boundary conditions, constraints) live outside this
// repository and are supplied by the application
package sys

import (
	"github.com/femsolve/femsolve/blk"
)

// Unknown identifies one solution field of a (coupled) system; e.g. velocity
// or pressure. It doubles as the block key of vectors and matrices
type Unknown = blk.Tag

// Problem describes one sub-problem: an ordered list of unknowns and the set
// of operators contributing to its assembled system. The operator set is
// fixed for the lifetime of a solve session
type Problem struct {
	Name     string      // display name
	Unknowns []Unknown   // ordered; defines the block layout
	Ops      []Operator  // weak-form contributions (open set)
	Reducts  []Reduction // optional pre-solve eliminations
}

// HasUnknown tells whether u is declared by this problem
func (o *Problem) HasUnknown(u Unknown) bool {
	for _, v := range o.Unknowns {
		if v == u {
			return true
		}
	}
	return false
}
