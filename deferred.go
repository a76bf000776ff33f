// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stm

import "code.hybscloud.com/kont"

// TxDeferred is a write-once transactional cell: unset until the first
// Done, then permanently holding one kont.Either result. First writer
// wins; later writers observe a false Done, never an error.
type TxDeferred[A, E any] struct {
	ref TxRef[*kont.Either[E, A]]
}

// NewTxDeferred creates an unset deferred.
func NewTxDeferred[A, E any]() *TxDeferred[A, E] {
	d := &TxDeferred[A, E]{}
	d.ref.v.value = (*kont.Either[E, A])(nil)
	return d
}

// Done stores result if the deferred is still unset and reports whether
// this call was the one that set it.
func (d *TxDeferred[A, E]) Done(tx *Txn, result kont.Either[E, A]) bool {
	if d.ref.Get(tx) != nil {
		return false
	}
	d.ref.Set(tx, &result)
	return true
}

// Succeed completes the deferred with a success value.
func (d *TxDeferred[A, E]) Succeed(tx *Txn, a A) bool {
	return d.Done(tx, kont.Right[E, A](a))
}

// Fail completes the deferred with a failure value.
func (d *TxDeferred[A, E]) Fail(tx *Txn, e E) bool {
	return d.Done(tx, kont.Left[E, A](e))
}

// Poll returns the stored result without blocking; false while unset.
func (d *TxDeferred[A, E]) Poll(tx *Txn) (kont.Either[E, A], bool) {
	if r := d.ref.Get(tx); r != nil {
		return *r, true
	}
	var zero kont.Either[E, A]
	return zero, false
}

// Await returns ErrRetry while unset. Once set it unwraps the result:
// the success value, or the failure wrapped in *FailureError[E] through
// the body's error channel.
func (d *TxDeferred[A, E]) Await(tx *Txn) (A, error) {
	var zero A
	r := d.ref.Get(tx)
	if r == nil {
		return zero, ErrRetry
	}
	if e, ok := r.GetLeft(); ok {
		return zero, &FailureError[E]{Cause: e}
	}
	a, _ := r.GetRight()
	return a, nil
}
