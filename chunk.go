// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stm

import "slices"

// TxChunk is a transactional ordered buffer: one TxRef holding a slice
// treated as an immutable sequence. Every transform leaves prior slice
// values untouched, so journal snapshots stay valid across re-runs.
type TxChunk[A any] struct {
	ref TxRef[[]A]
}

// NewTxChunk creates a chunk seeded with a copy of items.
func NewTxChunk[A any](items ...A) *TxChunk[A] {
	c := &TxChunk[A]{}
	c.ref.v.value = slices.Clone(items)
	return c
}

// Get returns a copy of the sequence; callers may mutate the result freely.
func (c *TxChunk[A]) Get(tx *Txn) []A {
	return slices.Clone(c.ref.Get(tx))
}

// Set replaces the sequence with a copy of items.
func (c *TxChunk[A]) Set(tx *Txn, items []A) {
	c.ref.Set(tx, slices.Clone(items))
}

// Append stages the sequence with a appended. The three-index slice pins
// capacity so the shared prefix is never overwritten by a later append.
func (c *TxChunk[A]) Append(tx *Txn, a A) {
	cur := c.ref.Get(tx)
	c.ref.Set(tx, append(cur[:len(cur):len(cur)], a))
}

// Drop stages the sequence with its first n elements removed.
// n past the end clears the sequence; n <= 0 is a no-op.
func (c *TxChunk[A]) Drop(tx *Txn, n int) {
	if n <= 0 {
		return
	}
	cur := c.ref.Get(tx)
	if n >= len(cur) {
		c.ref.Set(tx, nil)
		return
	}
	c.ref.Set(tx, cur[n:])
}

// Size returns the sequence length.
func (c *TxChunk[A]) Size(tx *Txn) int {
	return len(c.ref.Get(tx))
}

// IsEmpty reports whether the sequence is empty.
func (c *TxChunk[A]) IsEmpty(tx *Txn) bool {
	return c.Size(tx) == 0
}
