// Copyright 2016 The Femsolve Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fix

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/femsolve/femsolve/blk"
	"github.com/femsolve/femsolve/lis"
	"github.com/femsolve/femsolve/sys"
)

// State holds all mutable data of one solve session: the assembled block
// system, the solution views, the residual scratch and the persisted linear
// solver handle. A State is bound 1:1 to a Problem and is meant to be reused:
// buffers are zeroed in place, never reallocated, and the handle survives
// across outer iterations and across repeated Solve calls
type State struct {

	// problem and configuration
	Prob *sys.Problem
	Conf *Config

	// assembled system; reused in place every outer iteration
	Kb  *blk.Matrix // block matrix, one block per (unknown,unknown) pair
	Fb  *blk.Vector // block right-hand side
	U   *blk.Vector // solution; blocks may view a larger shared vector
	Res *blk.Vector // residual scratch, congruent with Fb
	sol *blk.Vector // vector handed to Assemble: U, or the combined vector

	// derived at construction
	IsLinear bool     // detected (or forced) linearity
	fixed    []int    // union of the operators' prescribed equations
	inact    [][2]int // flat ranges excluded from the nonlinear residual

	// linear problem handed to the backend (Kb, or the reduced system)
	Lis     lis.Solver // persisted handle; nil until first needed
	rsys    blk.System
	rb      []float64   // reduced right-hand side
	rxs     [][]float64 // solution buffer per reduction level
	fb0     []float64   // frozen unreduced rhs (reduction case only)
	reduced bool
	rebind  bool // handle must be re-initialised against a new rsys

	// flat work arrays, congruent with U
	xb []float64 // solve result / current solution
	bb []float64 // right-hand side
	rr []float64 // residual

	// results of the last call
	ResNorm   float64 // nonlinear residual norm (linear residual for linear problems)
	LinNorm   float64 // linear residual diagnostic after the last solve
	Niter     int     // number of linear solves performed
	Converged bool
}

// NewState returns a State with fresh solution storage. ndofs gives the
// number of degrees of freedom per unknown, aligned with p.Unknowns
func NewState(p *sys.Problem, ndofs []int, conf *Config) (o *State, err error) {
	if len(ndofs) == 0 {
		return nil, chk.Err("problem %q: missing discretisation targets (ndofs)", p.Name)
	}
	if len(ndofs) != len(p.Unknowns) {
		return nil, chk.Err("problem %q: need one block size per unknown. %d != %d", p.Name, len(ndofs), len(p.Unknowns))
	}
	u := blk.NewVector(p.Unknowns, ndofs)
	return newState(p, u, u, conf)
}

// NewStateShared returns a State whose solution blocks are views into sol;
// every unknown of p must be present in sol. Operators assemble against the
// whole of sol, so they may read blocks owned by other sub-problems
func NewStateShared(p *sys.Problem, sol *blk.Vector, conf *Config) (o *State, err error) {
	u, err := sol.SubVector(p.Unknowns)
	if err != nil {
		return nil, chk.Err("problem %q: %v", p.Name, err)
	}
	return newState(p, u, sol, conf)
}

// newState builds the buffers and derives linearity and exclusion data
func newState(p *sys.Problem, u, sol *blk.Vector, conf *Config) (o *State, err error) {
	if conf == nil {
		conf = NewConfig()
	}
	err = conf.Validate()
	if err != nil {
		return
	}

	o = new(State)
	o.Prob = p
	o.Conf = conf
	o.U = u
	o.sol = sol

	ndofs := make([]int, u.Ntags())
	for i := 0; i < u.Ntags(); i++ {
		ndofs[i] = len(u.BlockAt(i))
	}
	o.Kb = blk.NewMatrix(p.Unknowns, ndofs)
	o.Fb = blk.NewVector(p.Unknowns, ndofs)
	o.Res = blk.NewVector(p.Unknowns, ndofs)
	o.rsys = o.Kb

	n := u.Len()
	o.xb = make([]float64, n)
	o.bb = make([]float64, n)
	o.rr = make([]float64, n)
	if len(p.Reducts) > 0 {
		o.fb0 = make([]float64, n)
	}

	// union of prescribed equations; the operator set is immutable, so this
	// is derived once
	seen := make(map[int]bool)
	for _, op := range p.Ops {
		for _, eq := range op.FixedEqs() {
			if eq < 0 || eq >= n {
				return nil, chk.Err("problem %q: fixed equation %d is out of range [0,%d)", p.Name, eq, n)
			}
			if !seen[eq] {
				seen[eq] = true
				o.fixed = append(o.fixed, eq)
			}
		}
	}

	o.applyConf()
	return
}

// applyConf derives linearity and inactive ranges from the configuration
func (o *State) applyConf() {

	// linearity detection: the problem is nonlinear if any operator declares
	// a nonlinear dependency on one of the problem's own unknowns
	detected := false
	for _, op := range o.Prob.Ops {
		for _, u := range op.NonlinearDeps() {
			if o.Prob.HasUnknown(u) {
				detected = true
			}
		}
	}
	switch o.Conf.Linearity {
	case "auto":
		o.IsLinear = !detected
	case "true":
		o.IsLinear = true
		if detected {
			io.Pfred("problem %q: forced linear but nonlinear dependencies were detected; results may be wrong\n", o.Prob.Name)
		}
	case "false":
		o.IsLinear = false
	}

	// inactive unknowns excluded from the nonlinear residual
	o.inact = o.inact[:0]
	for _, u := range o.Conf.Inactive {
		i := o.U.Index(u)
		if i < 0 {
			io.Pfred("problem %q: inactive unknown %q is not part of the problem; skipping\n", o.Prob.Name, u)
			continue
		}
		o.inact = append(o.inact, [2]int{o.U.Offset(i), o.U.Offset(i) + len(o.U.BlockAt(i))})
	}
}

// Refresh installs a new configuration on a reused State. Buffers are kept;
// the linear solver handle is reset only if the backend selection changed
func (o *State) Refresh(conf *Config) (err error) {
	if conf == nil {
		return
	}
	err = conf.Validate()
	if err != nil {
		return
	}
	if o.Lis != nil && (conf.MethodLinear != o.Conf.MethodLinear || conf.PreconLinear != o.Conf.PreconLinear) {
		o.ResetLis()
	}
	o.Conf = conf
	o.applyConf()
	return
}

// EnsureLis lazily creates the linear solver handle, or re-binds it when a
// reduction substituted a new linear system
func (o *State) EnsureLis() (err error) {
	opts := lis.Options{
		Precon:  o.Conf.PreconLinear,
		AbsTol:  o.Conf.AbsTol,
		RelTol:  o.Conf.RelTol,
		Verbose: o.Conf.Verbosity >= 3,
	}
	if o.Lis == nil {
		o.Lis, err = lis.New(o.Conf.MethodLinear)
		if err != nil {
			return
		}
		o.rebind = false
		return o.Lis.Init(o.rsys, opts)
	}
	if o.rebind {
		o.rebind = false
		return o.Lis.Init(o.rsys, opts)
	}
	return
}

// ResetLis frees the handle and forces reconfiguration on the next solve
func (o *State) ResetLis() {
	if o.Lis != nil {
		o.Lis.Free()
		o.Lis = nil
	}
}

// Free releases all backend resources
func (o *State) Free() {
	o.ResetLis()
}
