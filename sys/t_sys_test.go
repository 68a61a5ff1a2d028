// Copyright 2016 The Femsolve Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sys

import (
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/femsolve/femsolve/blk"
)

func Test_prob01(tst *testing.T) {

	chk.PrintTitle("prob01. problem unknowns and block keys")

	p := &Problem{Name: "coupled", Unknowns: []Unknown{"u", "pl"}}
	if !p.HasUnknown("pl") {
		tst.Errorf("HasUnknown must find a declared unknown\n")
		return
	}
	if p.HasUnknown("T") {
		tst.Errorf("HasUnknown must not find an undeclared unknown\n")
		return
	}

	// unknowns key the blocks of solution vectors directly
	v := blk.NewVector(p.Unknowns, []int{3, 2})
	chk.IntAssert(v.Index("pl"), 1)
}
