// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package stm provides transactional shared-memory primitives: versioned
// cells composed into atomic multi-step operations by optimistic,
// readset-validated transactions.
//
// # Architecture
//
//   - Cells: [TxRef] is a single versioned memory location. Versions move by
//     exactly 1 per writing commit, tracked with [code.hybscloud.com/atomix].
//   - Engine: each attempt records first-read versions and staged writes in a
//     [Txn] journal; commit validates the read-set and applies writes as one
//     indivisible step. Conflicts silently re-run the body with adaptive
//     backoff via [code.hybscloud.com/iox.Backoff].
//   - Blocking: [ErrRetry] (wrapping [code.hybscloud.com/iox.ErrWouldBlock])
//     suspends the calling goroutine until a cell in its read-set changes;
//     waiter records are pooled through [code.hybscloud.com/lfq]. No
//     busy-polling, no lost wakeups.
//   - Structures: [TxChunk], [TxQueue]/[TxDequeue] with four overflow
//     strategies, [TxPubSub], [TxDeferred] over [code.hybscloud.com/kont.Either],
//     and [TxSubscriptionRef] with replay-then-live [TxSubscriptionRef.Changes].
//
// # API Topologies
//
//   - Txn-world: primitives take an explicit *[Txn] and compose by sharing
//     it; drivers are [Atomically], [AtomicallyContext], [Atomic],
//     [AtomicContext].
//   - Eff-world: [ReadRef], [WriteRef], [RetryTx], [CheckTx] operations on
//     [code.hybscloud.com/kont] with fused constructors [GetBind], [SetThen],
//     [ModifyBind], [CheckThen]; run via [ExecEff] and [AtomicallyEff].
//
// # Semantics
//
// Bodies may run several times before committing and must not carry
// non-idempotent side effects. Conflicts and retries are never surfaced to
// callers; the only escapes are a [TxDeferred] failure ([FailureError]) and
// the shutdown interrupt ([ErrShutdown]) of queue take operations.
//
// # Example
//
//	account := stm.NewTxRef(100)
//	_, err := stm.Atomically(func(tx *stm.Txn) (struct{}, error) {
//		balance := account.Get(tx)
//		if balance < 10 {
//			return struct{}{}, tx.Retry() // parks until a deposit commits
//		}
//		account.Set(tx, balance-10)
//		return struct{}{}, nil
//	})
package stm
