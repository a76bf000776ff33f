// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stm

import (
	"code.hybscloud.com/kont"
)

// txnDispatcher is the structural interface for transactional effect
// operations. DispatchTxn stages reads and writes in the ambient journal;
// ErrRetry short-circuits the attempt into a suspension.
type txnDispatcher interface {
	DispatchTxn(tx *Txn) (kont.Resumed, error)
}

// ReadRef is the effect operation for reading a cell.
// Perform(ReadRef[A]{Ref: r}) resumes with the journal's view of r.
type ReadRef[A any] struct {
	kont.Phantom[A]
	Ref *TxRef[A]
}

// DispatchTxn handles ReadRef by registering the cell in the journal.
// Never blocks.
func (op ReadRef[A]) DispatchTxn(tx *Txn) (kont.Resumed, error) {
	return op.Ref.Get(tx), nil
}

// WriteRef is the effect operation for staging a pending value.
// Perform(WriteRef[A]{Ref: r, Value: v}) stages v for commit.
type WriteRef[A any] struct {
	kont.Phantom[struct{}]
	Ref   *TxRef[A]
	Value A
}

// DispatchTxn handles WriteRef by staging in the journal. Never blocks.
func (op WriteRef[A]) DispatchTxn(tx *Txn) (kont.Resumed, error) {
	op.Ref.Set(tx, op.Value)
	return struct{}{}, nil
}

// RetryTx is the effect operation for explicit retry.
// Perform(RetryTx{}) suspends the attempt; the continuation never resumes
// within it.
type RetryTx struct {
	kont.Phantom[struct{}]
}

// DispatchTxn handles RetryTx by returning ErrRetry.
func (RetryTx) DispatchTxn(tx *Txn) (kont.Resumed, error) {
	return nil, ErrRetry
}

// CheckTx is the effect operation for conditional retry.
// Perform(CheckTx{Ok: ok}) continues when ok, suspends otherwise.
type CheckTx struct {
	kont.Phantom[struct{}]
	Ok bool
}

// DispatchTxn handles CheckTx. ErrRetry when the condition is false.
func (op CheckTx) DispatchTxn(tx *Txn) (kont.Resumed, error) {
	if !op.Ok {
		return nil, ErrRetry
	}
	return struct{}{}, nil
}
