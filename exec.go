// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stm

import (
	"context"

	"code.hybscloud.com/kont"
)

// txnHandler interprets transactional effects against one journal.
// ErrRetry from a dispatch short-circuits evaluation; the error is
// reported through errOut so the driver can park or abort.
// Value type: passed to evalFrames on the stack, avoiding heap allocation.
type txnHandler[R any] struct {
	tx     *Txn
	errOut *error
}

// Dispatch implements kont.Handler via structural interface assertion.
func (h txnHandler[R]) Dispatch(op kont.Operation) (kont.Resumed, bool) {
	top, ok := op.(txnDispatcher)
	if !ok {
		panic("stm: unhandled effect in txnHandler")
	}
	v, err := top.DispatchTxn(h.tx)
	if err != nil {
		*h.errOut = err
		var zero R
		return zero, false
	}
	return v, true
}

// ExecEff interprets an effect protocol within an existing transaction,
// staging its reads and writes in tx's journal. ErrRetry propagates to the
// caller so a protocol composes into a larger body like any primitive.
func ExecEff[R any](tx *Txn, protocol kont.Eff[R]) (R, error) {
	var err error
	h := txnHandler[R]{tx: tx, errOut: &err}
	r := kont.Handle(protocol, h)
	return r, err
}

// AtomicallyEff drives a whole effect protocol through the engine:
// conflicts re-run it, RetryTx parks the goroutine. The protocol is
// re-evaluated from scratch on every attempt and must be free of
// non-idempotent side effects.
func AtomicallyEff[R any](protocol kont.Eff[R]) (R, error) {
	return Atomically(func(tx *Txn) (R, error) {
		return ExecEff(tx, protocol)
	})
}

// AtomicallyEffContext is AtomicallyEff with cancellation while parked.
func AtomicallyEffContext[R any](ctx context.Context, protocol kont.Eff[R]) (R, error) {
	return AtomicallyContext(ctx, func(tx *Txn) (R, error) {
		return ExecEff(tx, protocol)
	})
}
