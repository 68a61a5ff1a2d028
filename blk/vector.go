// Copyright 2016 The Femsolve Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package blk implements the block-structured vectors and matrices shared by
// the fixed-point solvers. Blocks are keyed by the tag of a solution field;
// all containers are allocated once and zeroed in place across iterations.
package blk

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
)

// Tag names one solution field; e.g. "u", "pl", "T". Blocks of vectors and
// matrices are keyed by it
type Tag string

// Vector is a block vector: one contiguous []float64 per tag. Blocks may be
// views into a larger shared backing array; sub-problems of a coupled run
// communicate exclusively through such shared blocks
type Vector struct {
	tags   []Tag       // ordered block keys
	blocks [][]float64 // [len(tags)] views
	offs   []int       // [len(tags)+1] block offsets in flat numbering
}

// NewVector allocates a fresh block vector with ndofs[i] entries for tags[i]
func NewVector(tags []Tag, ndofs []int) (o *Vector) {
	if len(tags) != len(ndofs) {
		chk.Panic("number of tags (%d) must be equal to the number of block sizes (%d)", len(tags), len(ndofs))
	}
	o = new(Vector)
	o.tags = make([]Tag, len(tags))
	copy(o.tags, tags)
	o.offs = make([]int, len(tags)+1)
	for i, n := range ndofs {
		if n < 1 {
			chk.Panic("block %q must have at least one entry", tags[i])
		}
		o.offs[i+1] = o.offs[i] + n
	}
	data := make([]float64, o.offs[len(tags)])
	o.blocks = make([][]float64, len(tags))
	for i := range tags {
		o.blocks[i] = data[o.offs[i]:o.offs[i+1]]
	}
	return
}

// SubVector returns a new block vector whose blocks are views into o's blocks,
// in the order given by tags. An error is returned if any tag is not present
func (o *Vector) SubVector(tags []Tag) (sub *Vector, err error) {
	sub = new(Vector)
	sub.tags = make([]Tag, len(tags))
	copy(sub.tags, tags)
	sub.blocks = make([][]float64, len(tags))
	sub.offs = make([]int, len(tags)+1)
	for i, t := range tags {
		j := o.Index(t)
		if j < 0 {
			return nil, chk.Err("vector has no block tagged %q", t)
		}
		sub.blocks[i] = o.blocks[j]
		sub.offs[i+1] = sub.offs[i] + len(o.blocks[j])
	}
	return
}

// Ntags returns the number of blocks
func (o *Vector) Ntags() int {
	return len(o.tags)
}

// Tags returns the ordered block keys
func (o *Vector) Tags() []Tag {
	return o.tags
}

// Len returns the total number of entries over all blocks
func (o *Vector) Len() int {
	return o.offs[len(o.tags)]
}

// Index returns the position of tag t or -1
func (o *Vector) Index(t Tag) int {
	for i, tag := range o.tags {
		if tag == t {
			return i
		}
	}
	return -1
}

// Has tells whether a block tagged t exists
func (o *Vector) Has(t Tag) bool {
	return o.Index(t) >= 0
}

// Block returns the mutable view of the block tagged t (nil if absent)
func (o *Vector) Block(t Tag) []float64 {
	i := o.Index(t)
	if i < 0 {
		return nil
	}
	return o.blocks[i]
}

// BlockAt returns the mutable view of the i-th block
func (o *Vector) BlockAt(i int) []float64 {
	return o.blocks[i]
}

// Offset returns the start of the i-th block in flat numbering
func (o *Vector) Offset(i int) int {
	return o.offs[i]
}

// At returns the entry at flat position i
func (o *Vector) At(i int) float64 {
	b, k := o.locate(i)
	return o.blocks[b][k]
}

// AddAt adds v to the entry at flat position i; contributions are additive
func (o *Vector) AddAt(i int, v float64) {
	b, k := o.locate(i)
	o.blocks[b][k] += v
}

// locate maps a flat position to (block, in-block) indices
func (o *Vector) locate(i int) (b, k int) {
	if i < 0 || i >= o.Len() {
		chk.Panic("flat position %d is out of range [0,%d)", i, o.Len())
	}
	for b = 1; b < len(o.offs); b++ {
		if i < o.offs[b] {
			return b - 1, i - o.offs[b-1]
		}
	}
	return
}

// Fill sets all entries of all blocks to s
func (o *Vector) Fill(s float64) {
	for _, b := range o.blocks {
		la.Vector(b).Fill(s)
	}
}

// Norm returns the Euclidean norm over all blocks
func (o *Vector) Norm() (nrm float64) {
	for _, b := range o.blocks {
		n := la.Vector(b).Norm()
		nrm += n * n
	}
	return math.Sqrt(nrm)
}

// CopyToFlat copies all blocks, in order, into dst (len(dst) must be o.Len())
func (o *Vector) CopyToFlat(dst []float64) {
	if len(dst) != o.Len() {
		chk.Panic("flat destination has wrong length. %d != %d", len(dst), o.Len())
	}
	for i, b := range o.blocks {
		copy(dst[o.offs[i]:o.offs[i+1]], b)
	}
}

// CopyFromFlat distributes src over the blocks, in order
func (o *Vector) CopyFromFlat(src []float64) {
	if len(src) != o.Len() {
		chk.Panic("flat source has wrong length. %d != %d", len(src), o.Len())
	}
	for i, b := range o.blocks {
		copy(b, src[o.offs[i]:o.offs[i+1]])
	}
}

// Clone returns a new vector with fresh storage holding a value copy of o
func (o *Vector) Clone() (c *Vector) {
	ndofs := make([]int, len(o.tags))
	for i, b := range o.blocks {
		ndofs[i] = len(b)
	}
	c = NewVector(o.tags, ndofs)
	for i, b := range o.blocks {
		copy(c.blocks[i], b)
	}
	return
}
