// Copyright 2016 The Femsolve Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fix

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/femsolve/femsolve/blk"
	"github.com/femsolve/femsolve/sys"
)

func verbose() {
	chk.Verbose = true
}

// denseOp adds a constant matrix and right-hand side; linear
type denseOp struct {
	a     [][]float64
	b     []float64
	fixed []int
	nass  int
}

func (o *denseOp) Assemble(kb *blk.Matrix, fb, sol *blk.Vector) error {
	o.nass++
	for i := range o.a {
		for j, v := range o.a[i] {
			if v != 0 {
				kb.Put(i, j, v)
			}
		}
		fb.AddAt(i, o.b[i])
	}
	return nil
}

func (o *denseOp) NonlinearDeps() []sys.Unknown { return nil }
func (o *denseOp) FixedEqs() []int              { return o.fixed }

// tanhOp adds the system 2u = 1 + tanh(u); nonlinear in its unknown
type tanhOp struct {
	unk  sys.Unknown
	n    int
	nass int
}

func (o *tanhOp) Assemble(kb *blk.Matrix, fb, sol *blk.Vector) error {
	o.nass++
	u := sol.Block(o.unk)
	for i := 0; i < o.n; i++ {
		kb.Put(i, i, 2)
		fb.AddAt(i, 1+math.Tanh(u[i]))
	}
	return nil
}

func (o *tanhOp) NonlinearDeps() []sys.Unknown { return []sys.Unknown{o.unk} }
func (o *tanhOp) FixedEqs() []int              { return nil }

// idOp adds the system u = u: its residual vanishes at any iterate; declared
// nonlinear
type idOp struct {
	unk sys.Unknown
	n   int
}

func (o *idOp) Assemble(kb *blk.Matrix, fb, sol *blk.Vector) error {
	u := sol.Block(o.unk)
	for i := 0; i < o.n; i++ {
		kb.Put(i, i, 1)
		fb.AddAt(i, u[i])
	}
	return nil
}

func (o *idOp) NonlinearDeps() []sys.Unknown { return []sys.Unknown{o.unk} }
func (o *idOp) FixedEqs() []int              { return nil }

func Test_lin01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("lin01. linear problem: exactly one assemble+solve pass")

	op := &denseOp{
		a: [][]float64{{2, 1, 0}, {1, 2, 1}, {0, 1, 2}},
		b: []float64{4, 8, 8},
	}
	p := &sys.Problem{Name: "poisson", Unknowns: []sys.Unknown{"v"}, Ops: []sys.Operator{op}}

	u, s, err := Solve(p, []int{3}, nil)
	if err != nil {
		tst.Errorf("Solve failed:\n%v", err)
		return
	}
	chk.IntAssert(op.nass, 1)
	chk.IntAssert(s.Niter, 1)
	if !s.Converged {
		tst.Errorf("linear solve must converge\n")
		return
	}
	chk.Array(tst, "u", 1e-12, u.Block("v"), []float64{1, 2, 3})
	if s.ResNorm > 1e-12 {
		tst.Errorf("linear residual too large: %g\n", s.ResNorm)
	}
}

func Test_lin02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("lin02. forcing a linear problem through the nonlinear path")

	op := &denseOp{
		a: [][]float64{{2, 1}, {1, 2}},
		b: []float64{4, 5},
	}
	p := &sys.Problem{Name: "forced", Unknowns: []sys.Unknown{"v"}, Ops: []sys.Operator{op}}

	conf := NewConfig()
	conf.Linearity = "false"
	u, s, err := Solve(p, []int{2}, conf)
	if err != nil {
		tst.Errorf("Solve failed:\n%v", err)
		return
	}

	// first iteration solves exactly; second only verifies the residual
	chk.IntAssert(op.nass, 2)
	chk.IntAssert(s.Niter, 1)
	if !s.Converged {
		tst.Errorf("must converge\n")
		return
	}
	chk.Array(tst, "u", 1e-12, u.Block("v"), []float64{1, 2})
}

func Test_nl01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("nl01. nonlinear fixed-point iterations: 2u = 1 + tanh(u)")

	op := &tanhOp{unk: "v", n: 3}
	p := &sys.Problem{Name: "tanh", Unknowns: []sys.Unknown{"v"}, Ops: []sys.Operator{op}}

	conf := NewConfig()
	conf.MaxIterations = 30
	conf.TargetResidual = 1e-12
	u, s, err := Solve(p, []int{3}, conf)
	if err != nil {
		tst.Errorf("Solve failed:\n%v", err)
		return
	}
	if !s.Converged {
		tst.Errorf("must converge, resid = %g\n", s.ResNorm)
		return
	}
	for i, v := range u.Block("v") {
		chk.Float64(tst, io.Sf("2u-1-tanh(u) [%d]", i), 1e-11, 2*v-1-math.Tanh(v), 0)
	}
	io.Pforan("iterations = %v, resid = %v\n", s.Niter, s.ResNorm)
}

func Test_nl02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("nl02. zero residual at the start: no solve is needed")

	op := &idOp{unk: "v", n: 4}
	p := &sys.Problem{Name: "identity", Unknowns: []sys.Unknown{"v"}, Ops: []sys.Operator{op}}

	s, err := NewState(p, []int{4}, nil)
	if err != nil {
		tst.Errorf("NewState failed:\n%v", err)
		return
	}
	copy(s.U.Block("v"), []float64{-1, 0, 1, 2})
	err = s.Solve()
	if err != nil {
		tst.Errorf("Solve failed:\n%v", err)
		return
	}
	if !s.Converged {
		tst.Errorf("must converge at the start\n")
		return
	}
	chk.IntAssert(s.Niter, 0)
	chk.Array(tst, "u unchanged", 1e-17, s.U.Block("v"), []float64{-1, 0, 1, 2})
}

func Test_nl03(tst *testing.T) {

	//verbose()
	chk.PrintTitle("nl03. iteration cap reached: last iterate is returned")

	op := &tanhOp{unk: "v", n: 1}
	p := &sys.Problem{Name: "capped", Unknowns: []sys.Unknown{"v"}, Ops: []sys.Operator{op}}

	conf := NewConfig()
	conf.MaxIterations = 0
	conf.TargetResidual = 1e-12
	u, s, err := Solve(p, []int{1}, conf)
	if err != nil {
		tst.Errorf("non-convergence must not be an error, got:\n%v", err)
		return
	}
	if s.Converged {
		tst.Errorf("must not converge with zero iterations\n")
		return
	}
	chk.IntAssert(s.Niter, 0)
	chk.Float64(tst, "u untouched", 1e-17, u.Block("v")[0], 0)
}

func Test_damp01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("damp01. damped update: u = d*old + (1-d)*new")

	for _, d := range []float64{0, 0.25, 0.5, 0.9} {
		op := &denseOp{
			a: [][]float64{{2, 1}, {1, 2}},
			b: []float64{4, 5},
		}
		p := &sys.Problem{Name: "damped", Unknowns: []sys.Unknown{"v"}, Ops: []sys.Operator{op}}
		conf := NewConfig()
		conf.Damping = d
		s, err := NewState(p, []int{2}, conf)
		if err != nil {
			tst.Errorf("NewState failed:\n%v", err)
			return
		}
		old := []float64{10, -10}
		copy(s.U.Block("v"), old)
		err = s.Solve()
		if err != nil {
			tst.Errorf("Solve failed:\n%v", err)
			return
		}
		xnew := []float64{1, 2} // exact solution of the linear system
		correct := []float64{
			d*old[0] + (1-d)*xnew[0],
			d*old[1] + (1-d)*xnew[1],
		}
		chk.Array(tst, io.Sf("u (d=%g)", d), 1e-12, s.U.Block("v"), correct)
	}
}

func Test_fixdof01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("fixdof01. prescribed equations never influence the residual norm")

	a := [][]float64{{2, 1}, {1, 2}}
	b := []float64{4, 5}
	run := func(garbage bool) float64 {
		ops := []sys.Operator{&denseOp{a: a, b: b, fixed: []int{0}}}
		if garbage {
			ops = append(ops, &denseOp{
				a: [][]float64{{1e9, 0}, {0, 0}},
				b: []float64{7e8, 0},
			})
		}
		p := &sys.Problem{Name: "bc", Unknowns: []sys.Unknown{"v"}, Ops: ops}
		conf := NewConfig()
		conf.Linearity = "false"
		conf.MaxIterations = 0
		_, s, err := Solve(p, []int{2}, conf)
		if err != nil {
			tst.Errorf("Solve failed:\n%v", err)
			return -1
		}
		return s.ResNorm
	}
	clean := run(false)
	dirty := run(true)
	chk.Float64(tst, "residual norm unchanged by garbage at fixed dofs", 1e-15, dirty, clean)
	chk.Float64(tst, "norm is |fb| off the fixed equation", 1e-15, clean, 5)
}

func Test_inact01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("inact01. inactive unknowns are excluded from the residual")

	op := &denseOp{
		a: [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		b: []float64{3, 1e6, 1e6},
	}
	p := &sys.Problem{Name: "staged", Unknowns: []sys.Unknown{"v", "q"}, Ops: []sys.Operator{op}}

	conf := NewConfig()
	conf.Linearity = "false"
	conf.MaxIterations = 0
	conf.Inactive = []sys.Unknown{"q", "not-here"} // the second one only warns
	_, s, err := Solve(p, []int{1, 2}, conf)
	if err != nil {
		tst.Errorf("Solve failed:\n%v", err)
		return
	}
	chk.Float64(tst, "residual norm from active block only", 1e-15, s.ResNorm, 3)
}

func Test_reuse01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("reuse01. reused state keeps buffers and the solver handle")

	op := &denseOp{
		a: [][]float64{{2, 1}, {1, 2}},
		b: []float64{4, 5},
	}
	p := &sys.Problem{Name: "reused", Unknowns: []sys.Unknown{"v"}, Ops: []sys.Operator{op}}

	s, err := NewState(p, []int{2}, nil)
	if err != nil {
		tst.Errorf("NewState failed:\n%v", err)
		return
	}
	err = s.Solve()
	if err != nil {
		tst.Errorf("first Solve failed:\n%v", err)
		return
	}
	kb, fb, res := s.Kb, s.Fb, s.Res
	ublock := &s.U.Block("v")[0]
	handle := s.Lis

	err = s.Solve()
	if err != nil {
		tst.Errorf("second Solve failed:\n%v", err)
		return
	}
	if s.Kb != kb || s.Fb != fb || s.Res != res {
		tst.Errorf("buffers must not be reallocated across calls\n")
		return
	}
	if &s.U.Block("v")[0] != ublock {
		tst.Errorf("solution storage must not be reallocated across calls\n")
		return
	}
	if s.Lis != handle {
		tst.Errorf("linear solver handle must be reused across calls\n")
		return
	}
	chk.IntAssert(op.nass, 2)
	chk.Array(tst, "u", 1e-12, s.U.Block("v"), []float64{1, 2})

	// switching the backend forces reconfiguration
	conf := NewConfig()
	conf.MethodLinear = "cg"
	err = s.Refresh(conf)
	if err != nil {
		tst.Errorf("Refresh failed:\n%v", err)
		return
	}
	if s.Lis != nil {
		tst.Errorf("handle must be reset when the backend changes\n")
		return
	}
	err = s.Solve()
	if err != nil {
		tst.Errorf("third Solve failed:\n%v", err)
		return
	}
	if s.Lis == handle {
		tst.Errorf("a new handle must be created after reconfiguration\n")
		return
	}
	chk.Array(tst, "u via cg", 1e-8, s.U.Block("v"), []float64{1, 2})
}
