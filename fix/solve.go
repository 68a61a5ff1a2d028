// Copyright 2016 The Femsolve Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fix

import (
	"time"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
	"github.com/femsolve/femsolve/blk"
	"github.com/femsolve/femsolve/sys"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Solve constructs a State for p and runs the fixed-point loop. The returned
// State can be handed back to later calls (via State.Solve after Refresh) to
// reuse buffers and the persisted linear solver handle
func Solve(p *sys.Problem, ndofs []int, conf *Config) (u *blk.Vector, s *State, err error) {
	s, err = NewState(p, ndofs, conf)
	if err != nil {
		return
	}
	err = s.Solve()
	u = s.U
	return
}

// Solve runs the nonlinear/linear fixed-point loop on this State: alternating
// in-place reassembly, residual-based convergence tests and damped linear
// solves, until the residual norm drops below the target or the iteration cap
// is reached. Non-convergence is reported, not an error: the best available
// iterate stays in o.U
func (o *State) Solve() (err error) {

	conf := o.Conf
	if conf.ShowConfig {
		conf.Show()
	}

	maxits := conf.MaxIterations
	if o.IsLinear {
		// one assemble+solve pass suffices
		maxits = 0
	}

	o.Converged = false
	o.Niter = 0

	if conf.Verbosity >= 1 {
		io.Pf("\n%q: fixed-point iterations (linear=%v)\n", o.Prob.Name, o.IsLinear)
		io.Pf("%4s%23s%23s\n", "it", "resid", "linresid")
	}

	for j := 1; ; j++ {

		// linear problems are done after the single pass; this step only
		// reports convergence through the shared code path
		if o.IsLinear && j == 2 {
			o.Converged = o.ResNorm <= conf.TargetResidual
			break
		}

		// assemble
		t0 := time.Now()
		err = o.assemble(j == 1)
		if err != nil {
			return
		}
		if j == 1 {
			o.showSystem()
		}
		if conf.Verbosity >= 2 {
			io.Pf("%4d: assembly: %v (%d entries)\n", j, time.Since(t0), o.Kb.Nnz())
		}

		// linear solver (re)initialisation
		err = o.EnsureLis()
		if err != nil {
			return
		}

		// nonlinear residual and convergence decision
		if !o.IsLinear {
			o.ResNorm = o.nlResidual()
			if conf.Verbosity >= 1 {
				io.Pf("%4d%23.15e%23.15e\n", j, o.ResNorm, o.LinNorm)
			}
			if o.ResNorm <= conf.TargetResidual {
				o.Converged = true
				break
			}
			if j == maxits+1 {
				io.Pfyel("%q: maximum iterations reached: it = %d, resid = %g\n", o.Prob.Name, maxits, o.ResNorm)
				break
			}
		}

		// linear solve and damped update
		t0 = time.Now()
		err = o.linSolve()
		if err != nil {
			return
		}
		o.Niter = j
		if conf.Verbosity >= 2 {
			io.Pf("%4d: solve: %v\n", j, time.Since(t0))
		}
	}

	if conf.Verbosity >= 1 {
		if o.Converged {
			io.PfGreen("%q: converged: %d solves, resid = %g\n", o.Prob.Name, o.Niter, o.ResNorm)
		} else {
			io.Pfyel("%q: not converged: %d solves, resid = %g\n", o.Prob.Name, o.Niter, o.ResNorm)
		}
	}
	return
}

// assemble zeroes the system in place and adds every operator's contribution
// at the current solution. On the first step, reduction operators derive the
// linear system handed to the backend while the unreduced right-hand side is
// frozen for residual comparisons
func (o *State) assemble(first bool) (err error) {
	o.Fb.Fill(0)
	o.Kb.Start()
	for _, op := range o.Prob.Ops {
		err = op.Assemble(o.Kb, o.Fb, o.sol)
		if err != nil {
			return chk.Err("problem %q: operator assembly failed:\n%v", o.Prob.Name, err)
		}
	}
	if first && len(o.Prob.Reducts) > 0 {
		err = o.reduce()
	}
	return
}

// reduce chains the reduction operators over the assembled system
func (o *State) reduce() (err error) {
	o.Fb.CopyToFlat(o.fb0)

	var a blk.System = o.Kb
	b := o.fb0
	o.rxs = o.rxs[:0]
	for _, red := range o.Prob.Reducts {
		a, b, err = red.Reduce(a, b)
		if err != nil {
			return chk.Err("problem %q: reduction failed:\n%v", o.Prob.Name, err)
		}
		m, _ := a.Size()
		if len(b) != m {
			return chk.Err("problem %q: reduced rhs has wrong length. %d != %d", o.Prob.Name, len(b), m)
		}
		o.rxs = append(o.rxs, make([]float64, m))
	}
	o.rsys = a
	o.rb = b
	o.reduced = true
	o.rebind = true // the handle must re-bind to the substituted system
	return
}

// nlResidual computes the nonlinear residual Kb·u − fb as a full block
// matrix-vector product, zeroes the entries at prescribed equations and at
// inactive unknowns, and returns its Euclidean norm. The result is also kept
// in o.Res for inspection
func (o *State) nlResidual() (nrm float64) {
	o.U.CopyToFlat(o.xb)
	if o.reduced {
		floats.ScaleTo(o.rr, -1, o.fb0)
	} else {
		o.Fb.CopyToFlat(o.bb)
		floats.ScaleTo(o.rr, -1, o.bb)
	}
	o.Kb.MatVecMulAdd(o.rr, 1, o.xb)
	o.zeroExcluded(o.rr, true)
	nrm = la.Vector(o.rr).Norm()
	o.Res.CopyFromFlat(o.rr)
	return
}

// linSolve pushes the current matrix and right-hand side into the persisted
// handle, solves, recomputes the linear residual as a diagnostic and applies
// the damped update to the solution blocks
func (o *State) linSolve() (err error) {

	// refresh factorisation/preconditioner from the (reassembled) system
	err = o.Lis.Fact()
	if err != nil {
		return
	}

	// solve; backend failures propagate untouched
	if o.reduced {
		last := len(o.rxs) - 1
		err = o.Lis.Solve(o.rxs[last], o.rb)
		if err != nil {
			return
		}
		for k := last; k > 0; k-- {
			err = o.Prob.Reducts[k].Expand(o.rxs[k], o.rxs[k-1])
			if err != nil {
				return chk.Err("problem %q: reduction expansion failed:\n%v", o.Prob.Name, err)
			}
		}
		err = o.Prob.Reducts[0].Expand(o.rxs[0], o.xb)
		if err != nil {
			return chk.Err("problem %q: reduction expansion failed:\n%v", o.Prob.Name, err)
		}
	} else {
		o.Fb.CopyToFlat(o.bb)
		err = o.Lis.Solve(o.xb, o.bb)
		if err != nil {
			return
		}
	}

	// linear residual diagnostic: Kb·x − fb with prescribed equations zeroed
	if o.reduced {
		floats.ScaleTo(o.rr, -1, o.fb0)
	} else {
		floats.ScaleTo(o.rr, -1, o.bb)
	}
	o.Kb.MatVecMulAdd(o.rr, 1, o.xb)
	o.zeroExcluded(o.rr, false)
	o.LinNorm = la.Vector(o.rr).Norm()
	if o.IsLinear {
		o.ResNorm = o.LinNorm
		o.Res.CopyFromFlat(o.rr)
	}

	// damped update: u ← d·u + (1−d)·x
	d := o.Conf.Damping
	for i := 0; i < o.U.Ntags(); i++ {
		u := o.U.BlockAt(i)
		x := o.xb[o.U.Offset(i) : o.U.Offset(i)+len(u)]
		if d > 0 {
			for k := range u {
				u[k] = d*u[k] + (1-d)*x[k]
			}
		} else {
			copy(u, x)
		}
	}
	return
}

// zeroExcluded zeroes prescribed equations and, if withInactive, the blocks
// of inactive unknowns
func (o *State) zeroExcluded(r []float64, withInactive bool) {
	for _, eq := range o.fixed {
		r[eq] = 0
	}
	if withInactive {
		for _, rg := range o.inact {
			la.Vector(r[rg[0]:rg[1]]).Fill(0)
		}
	}
}

// showSystem prints the assembled matrix and/or its block sparsity pattern
func (o *State) showSystem() {
	if o.Conf.Spy {
		io.Pf("\n%q: block sparsity\n", o.Prob.Name)
		o.Kb.Spy()
	}
	if o.Conf.ShowMatrix {
		io.Pf("\n%q: assembled matrix\n%v\n", o.Prob.Name, mat.Formatted(o.Kb.ToDense(nil), mat.Squeeze()))
	}
}
