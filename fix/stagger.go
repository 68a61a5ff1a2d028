// Copyright 2016 The Femsolve Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fix

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/femsolve/femsolve/blk"
	"github.com/femsolve/femsolve/sys"
)

// Coupled drives several sub-problems to joint stationarity by staggered
// (Gauss-Seidel) iteration. All sub-problem States share one combined
// solution vector keyed by unknown: overlapping sub-problems communicate
// exclusively through its shared blocks, and later sub-problems of a sweep
// see the blocks already updated earlier in the same sweep
type Coupled struct {
	States []*State    // one per sub-problem, in sweep order
	Sol    *blk.Vector // combined solution vector
	Conf   *Config     // outer-loop options (MaxSteps, Verbosity)

	prev []float64 // previous-iterate snapshot of Sol

	// results of the last call
	Nsteps    int
	Converged bool
}

// NewCoupled builds one State per problem over a single combined solution
// vector. Either an initial vector sol (whose tagged blocks are reused and
// must contain every required unknown) or per-problem block sizes ndofs must
// be given. confs may be nil (defaults), hold one shared configuration, or
// one per problem
func NewCoupled(probs []*sys.Problem, ndofs [][]int, sol *blk.Vector, confs []*Config) (o *Coupled, err error) {
	if len(probs) == 0 {
		return nil, chk.Err("at least one problem is required")
	}

	// per-problem configurations
	switch len(confs) {
	case 0:
		confs = make([]*Config, len(probs))
		for i := range confs {
			confs[i] = NewConfig()
		}
	case 1:
		shared := confs[0]
		confs = make([]*Config, len(probs))
		for i := range confs {
			confs[i] = shared
		}
	case len(probs):
	default:
		return nil, chk.Err("need one configuration, one per problem, or none. %d != %d", len(confs), len(probs))
	}

	// combined solution vector
	if sol == nil {
		if ndofs == nil {
			return nil, chk.Err("missing input: either discretisation targets or an initial combined vector must be given")
		}
		if len(ndofs) != len(probs) {
			return nil, chk.Err("need one set of block sizes per problem. %d != %d", len(ndofs), len(probs))
		}
		sol, err = combinedVector(probs, ndofs)
		if err != nil {
			return
		}
	} else {
		var missing []sys.Unknown
		for _, p := range probs {
			for _, u := range p.Unknowns {
				if !sol.Has(u) {
					missing = append(missing, u)
				}
			}
		}
		if len(missing) > 0 {
			return nil, chk.Err("initial combined vector is missing blocks for unknowns %v", missing)
		}
	}

	o = new(Coupled)
	o.Sol = sol
	o.Conf = confs[0]
	o.States = make([]*State, len(probs))
	for i, p := range probs {
		if len(p.Reducts) > 0 {
			return nil, chk.Err("problem %q: reduction operators are not supported in coupled runs", p.Name)
		}
		o.States[i], err = NewStateShared(p, sol, confs[i])
		if err != nil {
			return nil, err
		}
	}
	o.prev = make([]float64, sol.Len())
	return
}

// Solve iterates all sub-problems, in order, until every one of them reports
// a residual below its own tolerance within the same sweep, or MaxSteps is
// exhausted. Each sweep performs exactly one assemble+solve per sub-problem
// against the current combined solution. Non-convergence is reported, not an
// error: the last combined iterate stays in o.Sol
func (o *Coupled) Solve() (err error) {

	conf := o.Conf
	o.Converged = false
	o.Nsteps = 0

	if conf.Verbosity >= 1 {
		io.Pf("\nstaggered iterations: %d problems, maxsteps = %d\n", len(o.States), conf.MaxSteps)
	}

	for step := 1; step <= conf.MaxSteps; step++ {
		o.Nsteps = step

		// previous-iterate snapshot (value copy; kept for change-based
		// diagnostics, not consumed by the stopping test)
		o.Sol.CopyToFlat(o.prev)

		// fixed-order sweep: each sub-problem assembles against the current
		// combined solution, including blocks just updated in this sweep
		for _, s := range o.States {
			err = s.assemble(false)
			if err != nil {
				return
			}
			err = s.EnsureLis()
			if err != nil {
				return
			}
			s.ResNorm = s.nlResidual()
			s.Converged = s.ResNorm <= s.Conf.TargetResidual
			err = s.linSolve()
			if err != nil {
				return
			}
			s.Niter++
		}

		if conf.Verbosity >= 1 {
			io.Pf("%4d:", step)
			for _, s := range o.States {
				io.Pf("  %q %.3e", s.Prob.Name, s.ResNorm)
			}
			io.Pf("\n")
		}

		all := true
		for _, s := range o.States {
			if !s.Converged {
				all = false
			}
		}
		if all {
			o.Converged = true
			break
		}
	}

	if conf.Verbosity >= 1 {
		if o.Converged {
			io.PfGreen("staggered iterations converged in %d steps\n", o.Nsteps)
		} else {
			io.Pfyel("staggered iterations: maximum steps reached: %d\n", o.Nsteps)
		}
	}
	return
}

// SolveCoupled is the convenience entry: build the coupled set, iterate to
// stationarity and return the combined solution vector
func SolveCoupled(probs []*sys.Problem, ndofs [][]int, sol *blk.Vector, conf *Config) (u *blk.Vector, err error) {
	var confs []*Config
	if conf != nil {
		confs = []*Config{conf}
	}
	c, err := NewCoupled(probs, ndofs, sol, confs)
	if err != nil {
		return
	}
	err = c.Solve()
	u = c.Sol
	return
}

// combinedVector allocates one vector holding every unknown over all
// problems, in first-seen order. Shared unknowns must agree in size
func combinedVector(probs []*sys.Problem, ndofs [][]int) (sol *blk.Vector, err error) {
	var tags []blk.Tag
	var sizes []int
	seen := make(map[sys.Unknown]int)
	for i, p := range probs {
		if len(ndofs[i]) != len(p.Unknowns) {
			return nil, chk.Err("problem %q: need one block size per unknown. %d != %d", p.Name, len(ndofs[i]), len(p.Unknowns))
		}
		for k, u := range p.Unknowns {
			if n, ok := seen[u]; ok {
				if n != ndofs[i][k] {
					return nil, chk.Err("unknown %q has conflicting block sizes: %d != %d", u, ndofs[i][k], n)
				}
				continue
			}
			seen[u] = ndofs[i][k]
			tags = append(tags, u)
			sizes = append(sizes, ndofs[i][k])
		}
	}
	return blk.NewVector(tags, sizes), nil
}
