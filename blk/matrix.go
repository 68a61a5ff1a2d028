// Copyright 2016 The Femsolve Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package blk

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
	"gonum.org/v1/gonum/mat"
)

// Matrix is a square block-sparse operator: one additive coordinate-format
// block per (row-tag, col-tag) pair. Blocks not touched by any operator are
// implicitly zero and never allocated. Start resets the entry counts without
// releasing storage so that the same Matrix can be reassembled in place every
// outer iteration
type Matrix struct {
	tags   []Tag
	sizes  []int
	offs   []int
	blocks map[[2]int]*cooBlock
	m      int // total size
}

// cooBlock holds the additive entries of one (i,j) block and its compiled
// compressed-column form for matrix-vector products
type cooBlock struct {
	ri, ci []int // block-local coordinates
	x      []float64
	tri    la.Triplet
	tcap   int // capacity given to tri at the last Init
	cm     *la.CCMatrix
	dirty  bool
}

// NewMatrix allocates a square block matrix congruent with a block vector
// having the given tags and block sizes
func NewMatrix(tags []Tag, ndofs []int) (o *Matrix) {
	if len(tags) != len(ndofs) {
		chk.Panic("number of tags (%d) must be equal to the number of block sizes (%d)", len(tags), len(ndofs))
	}
	o = new(Matrix)
	o.tags = make([]Tag, len(tags))
	copy(o.tags, tags)
	o.sizes = make([]int, len(ndofs))
	copy(o.sizes, ndofs)
	o.offs = make([]int, len(tags)+1)
	for i, n := range ndofs {
		o.offs[i+1] = o.offs[i] + n
	}
	o.m = o.offs[len(tags)]
	o.blocks = make(map[[2]int]*cooBlock)
	return
}

// Size returns the global dimensions
func (o *Matrix) Size() (m, n int) {
	return o.m, o.m
}

// Tags returns the ordered block keys
func (o *Matrix) Tags() []Tag {
	return o.tags
}

// Start resets all blocks for a new assembly, keeping their storage
func (o *Matrix) Start() {
	for _, b := range o.blocks {
		b.ri = b.ri[:0]
		b.ci = b.ci[:0]
		b.x = b.x[:0]
		b.dirty = true
	}
}

// Put adds v to the (I,J) entry, with I and J in the flat numbering congruent
// with the block vector. Repeated puts at the same coordinates accumulate
func (o *Matrix) Put(I, J int, v float64) {
	if I < 0 || I >= o.m || J < 0 || J >= o.m {
		chk.Panic("cannot put entry at (%d,%d) in %d x %d matrix", I, J, o.m, o.m)
	}
	bi := o.findBlock(I)
	bj := o.findBlock(J)
	key := [2]int{bi, bj}
	b, ok := o.blocks[key]
	if !ok {
		b = new(cooBlock)
		o.blocks[key] = b
	}
	b.ri = append(b.ri, I-o.offs[bi])
	b.ci = append(b.ci, J-o.offs[bj])
	b.x = append(b.x, v)
	b.dirty = true
}

// Nnz returns the total number of stored entries (with duplicates)
func (o *Matrix) Nnz() (nnz int) {
	for _, b := range o.blocks {
		nnz += len(b.x)
	}
	return
}

// MatVecMulAdd computes y += α * M * x over all allocated blocks, with y and x
// in flat numbering
func (o *Matrix) MatVecMulAdd(y []float64, α float64, x []float64) {
	for key, b := range o.blocks {
		if len(b.x) == 0 {
			continue
		}
		o.compile(key, b)
		bi, bj := key[0], key[1]
		la.SpMatVecMulAdd(y[o.offs[bi]:o.offs[bi+1]], α, b.cm, x[o.offs[bj]:o.offs[bj+1]])
	}
}

// Diag adds the diagonal entries of the diagonal blocks into dst
func (o *Matrix) Diag(dst []float64) {
	la.Vector(dst).Fill(0)
	for key, b := range o.blocks {
		if key[0] != key[1] {
			continue
		}
		off := o.offs[key[0]]
		for k, i := range b.ri {
			if i == b.ci[k] {
				dst[off+i] += b.x[k]
			}
		}
	}
}

// ToTriplet (re)initialises t with the global sparse triplet form of o
func (o *Matrix) ToTriplet(t *la.Triplet) *la.Triplet {
	t.Init(o.m, o.m, imax(o.Nnz(), 1))
	for key, b := range o.blocks {
		roff, coff := o.offs[key[0]], o.offs[key[1]]
		for k := range b.x {
			t.Put(roff+b.ri[k], coff+b.ci[k], b.x[k])
		}
	}
	return t
}

// ToDense accumulates o into a dense matrix, reusing dst when its shape fits
func (o *Matrix) ToDense(dst *mat.Dense) *mat.Dense {
	if dst != nil {
		r, c := dst.Dims()
		if r != o.m || c != o.m {
			dst = nil
		}
	}
	if dst == nil {
		dst = mat.NewDense(o.m, o.m, nil)
	} else {
		dst.Zero()
	}
	for key, b := range o.blocks {
		roff, coff := o.offs[key[0]], o.offs[key[1]]
		for k := range b.x {
			i, j := roff+b.ri[k], coff+b.ci[k]
			dst.Set(i, j, dst.At(i, j)+b.x[k])
		}
	}
	return dst
}

// Spy prints the number of stored entries per block pair
func (o *Matrix) Spy() {
	io.Pf("%10s", "")
	for _, t := range o.tags {
		io.Pf("%10s", t)
	}
	io.Pf("\n")
	for i, t := range o.tags {
		io.Pf("%10s", t)
		for j := range o.tags {
			nnz := 0
			if b, ok := o.blocks[[2]int{i, j}]; ok {
				nnz = len(b.x)
			}
			if nnz > 0 {
				io.Pf("%10d", nnz)
			} else {
				io.Pf("%10s", ".")
			}
		}
		io.Pf("\n")
	}
}

// compile refreshes the compressed form of one block
func (o *Matrix) compile(key [2]int, b *cooBlock) {
	if !b.dirty {
		return
	}
	nnz := len(b.x)
	if nnz > b.tcap {
		b.tri.Init(o.sizes[key[0]], o.sizes[key[1]], nnz)
		b.tcap = nnz
	} else {
		b.tri.Start()
	}
	for k := range b.x {
		b.tri.Put(b.ri[k], b.ci[k], b.x[k])
	}
	b.cm = b.tri.ToMatrix(nil)
	b.dirty = false
}

// findBlock returns the index of the block owning flat index I
func (o *Matrix) findBlock(I int) int {
	for i := 1; i < len(o.offs); i++ {
		if I < o.offs[i] {
			return i - 1
		}
	}
	return len(o.offs) - 2
}

func imax(a, b int) int {
	if a > b {
		return a
	}
	return b
}
