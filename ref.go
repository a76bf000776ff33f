// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stm

// TxRef is a transactional reference: a single versioned cell holding a
// value of type A. All access goes through a Txn journal; the cell itself
// changes only when the enclosing transaction commits.
type TxRef[A any] struct {
	v txVar
}

// NewTxRef creates a cell with the given initial value at version 0.
func NewTxRef[A any](initial A) *TxRef[A] {
	r := &TxRef[A]{}
	r.v.value = initial
	return r
}

// Get returns the cell's value as of this attempt's first read, or the
// staged pending value if the attempt already wrote the cell.
func (r *TxRef[A]) Get(tx *Txn) A {
	return tx.read(&r.v).(A)
}

// Set stages a pending value for commit.
func (r *TxRef[A]) Set(tx *Txn, a A) {
	tx.write(&r.v, a)
}

// Modify reads the cell, applies f to obtain a derived result and the next
// value, stages the next value, and returns the result. The read-compute-
// write sequence is indivisible with respect to conflicting transactions:
// either the whole attempt commits or it is discarded and re-run.
func Modify[A, B any](tx *Txn, r *TxRef[A], f func(A) (B, A)) B {
	b, next := f(r.Get(tx))
	r.Set(tx, next)
	return b
}

// Update stages f applied to the current value.
func (r *TxRef[A]) Update(tx *Txn, f func(A) A) {
	r.Set(tx, f(r.Get(tx)))
}

// GetAndSet stages a and returns the prior value.
func (r *TxRef[A]) GetAndSet(tx *Txn, a A) A {
	old := r.Get(tx)
	r.Set(tx, a)
	return old
}

// GetAndUpdate stages f applied to the current value and returns the prior value.
func (r *TxRef[A]) GetAndUpdate(tx *Txn, f func(A) A) A {
	old := r.Get(tx)
	r.Set(tx, f(old))
	return old
}

// UpdateAndGet stages f applied to the current value and returns the staged value.
func (r *TxRef[A]) UpdateAndGet(tx *Txn, f func(A) A) A {
	next := f(r.Get(tx))
	r.Set(tx, next)
	return next
}
