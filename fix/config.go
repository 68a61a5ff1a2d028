// Copyright 2016 The Femsolve Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package fix implements the solver-orchestration core: the single-problem
// nonlinear/linear fixed-point loop and the multi-problem staggered
// (Gauss-Seidel) coupling loop
package fix

import (
	"encoding/json"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/femsolve/femsolve/sys"
)

// Config holds the solver configuration. All options are enumerated and
// typed; SetDefault fills documented defaults and Validate checks ranges
type Config struct {

	// fixed-point loop
	Verbosity      int     `json:"verbosity"`       // diagnostic level: 0 = quiet, 1 = per-step summary, 2 = timings
	MaxIterations  int     `json:"maxiterations"`   // cap on outer nonlinear iterations (≥ 0)
	TargetResidual float64 `json:"target_residual"` // nonlinear residual tolerance
	Linearity      string  `json:"is_linear"`       // "auto" (detect), "true" (force), "false" (force)
	Damping        float64 `json:"damping"`         // d ∈ [0,1): u ← d·u + (1−d)·x; 0 = replace outright

	// linear solver backend
	MethodLinear string  `json:"method_linear"` // backend name; e.g. "lu", "cg", "umfpack"
	PreconLinear string  `json:"precon_linear"` // preconditioner name (iterative backends)
	AbsTol       float64 `json:"abstol"`        // backend absolute tolerance
	RelTol       float64 `json:"reltol"`        // backend relative tolerance

	// residual evaluation
	Inactive []sys.Unknown `json:"inactive"` // unknowns excluded from the nonlinear residual

	// diagnostic display
	ShowConfig bool `json:"show_config"` // print configuration before solving
	ShowMatrix bool `json:"show_matrix"` // print the assembled matrix
	Spy        bool `json:"spy"`         // print the block sparsity pattern

	// staggered coupling loop
	MaxSteps        int     `json:"maxsteps"`         // cap on outer coupling sweeps (≥ 1)
	ToleranceChange float64 `json:"tolerance_change"` // accepted but not consumed by any stopping test yet
}

// NewConfig returns a configuration with default values
func NewConfig() (o *Config) {
	o = new(Config)
	o.SetDefault()
	return
}

// SetDefault sets default values
func (o *Config) SetDefault() {
	o.Verbosity = 0
	o.MaxIterations = 10
	o.TargetResidual = 1e-10
	o.Linearity = "auto"
	o.Damping = 0
	o.MethodLinear = "lu"
	o.PreconLinear = ""
	o.AbsTol = 1e-11
	o.RelTol = 1e-11
	o.MaxSteps = 100
}

// Validate checks ranges
func (o *Config) Validate() (err error) {
	if o.MaxIterations < 0 {
		return chk.Err("maxiterations must be non-negative. %d is invalid", o.MaxIterations)
	}
	if o.Damping < 0 || o.Damping >= 1 {
		return chk.Err("damping must be within [0,1). %g is invalid", o.Damping)
	}
	if o.TargetResidual <= 0 {
		return chk.Err("target_residual must be positive. %g is invalid", o.TargetResidual)
	}
	if o.MaxSteps < 1 {
		return chk.Err("maxsteps must be at least 1. %d is invalid", o.MaxSteps)
	}
	switch o.Linearity {
	case "auto", "true", "false":
	default:
		return chk.Err("is_linear must be \"auto\", \"true\" or \"false\". %q is invalid", o.Linearity)
	}
	return
}

// Show prints the configuration
func (o *Config) Show() {
	b, _ := json.MarshalIndent(o, "", "  ")
	io.Pf("%s\n", b)
}
