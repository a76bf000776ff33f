// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stm

import "context"

// Strategy is the overflow policy of a capacity-bounded queue or hub.
type Strategy uint8

const (
	// Bounded blocks the offering transaction (retry) at capacity.
	Bounded Strategy = iota
	// Unbounded never rejects and has no capacity.
	Unbounded
	// Dropping rejects the offered value at capacity.
	Dropping
	// Sliding evicts the oldest value at capacity and accepts the new one.
	Sliding
)

func (s Strategy) String() string {
	switch s {
	case Bounded:
		return "bounded"
	case Unbounded:
		return "unbounded"
	case Dropping:
		return "dropping"
	case Sliding:
		return "sliding"
	}
	return "unknown"
}

// TxDequeue is the read capability of a transactional queue.
// *TxQueue implements it; handing out a TxDequeue withholds Offer.
type TxDequeue[A any] interface {
	// Take removes and returns the head. Returns ErrRetry while empty
	// and ErrShutdown once the queue is shut down.
	Take(tx *Txn) (A, error)
	// Poll removes and returns the head without blocking; empty and
	// shut-down queues both report false.
	Poll(tx *Txn) (A, bool)
	// TakeAll drains every item in one step. ErrShutdown once shut down.
	TakeAll(tx *Txn) ([]A, error)
	// TakeUpTo drains at most n items in one step without blocking.
	// ErrShutdown once shut down.
	TakeUpTo(tx *Txn, n int) ([]A, error)
	// Peek returns the head without removing it. Returns ErrRetry while
	// empty and ErrShutdown once shut down.
	Peek(tx *Txn) (A, error)
	Size(tx *Txn) int
	IsEmpty(tx *Txn) bool
	IsFull(tx *Txn) bool
	IsShutdown(tx *Txn) bool
	// AwaitShutdown returns ErrRetry until the queue is shut down.
	AwaitShutdown(tx *Txn) error
}

// TxQueue is a transactional FIFO queue with one of four overflow
// strategies. State is two cells (items, shutdown flag); all operations
// are plain journal reads and writes, so any combination of queue calls
// composes into one atomic transaction.
type TxQueue[A any] struct {
	strategy Strategy
	capacity int
	items    TxChunk[A]
	down     TxRef[bool]
}

// NewTxQueueBounded creates a queue that blocks offers at capacity.
func NewTxQueueBounded[A any](capacity int) *TxQueue[A] {
	return newTxQueue[A](Bounded, capacity)
}

// NewTxQueueUnbounded creates a queue without a capacity bound.
func NewTxQueueUnbounded[A any]() *TxQueue[A] {
	return newTxQueue[A](Unbounded, 0)
}

// NewTxQueueDropping creates a queue that rejects offers at capacity.
func NewTxQueueDropping[A any](capacity int) *TxQueue[A] {
	return newTxQueue[A](Dropping, capacity)
}

// NewTxQueueSliding creates a queue that evicts its oldest item at capacity.
func NewTxQueueSliding[A any](capacity int) *TxQueue[A] {
	return newTxQueue[A](Sliding, capacity)
}

func newTxQueue[A any](s Strategy, capacity int) *TxQueue[A] {
	q := &TxQueue[A]{strategy: s, capacity: capacity}
	q.items.ref.v.value = []A(nil)
	q.down.v.value = false
	return q
}

// Strategy returns the queue's overflow policy.
func (q *TxQueue[A]) Strategy() Strategy { return q.strategy }

// Capacity returns the configured capacity; 0 for unbounded queues.
func (q *TxQueue[A]) Capacity() int { return q.capacity }

// Offer appends a according to the queue's strategy. A shut-down queue
// reports false immediately. At capacity: Dropping reports false, Sliding
// evicts the oldest item and reports true, Bounded returns ErrRetry so the
// offering transaction suspends until capacity frees up or shutdown —
// both of which the re-run attempt observes afresh.
func (q *TxQueue[A]) Offer(tx *Txn, a A) (bool, error) {
	if q.down.Get(tx) {
		return false, nil
	}
	if q.strategy == Unbounded {
		q.items.Append(tx, a)
		return true, nil
	}
	size := q.items.Size(tx)
	if size < q.capacity {
		q.items.Append(tx, a)
		return true, nil
	}
	switch q.strategy {
	case Dropping:
		return false, nil
	case Sliding:
		if q.capacity <= 0 {
			return true, nil
		}
		q.items.Drop(tx, size-q.capacity+1)
		q.items.Append(tx, a)
		return true, nil
	default:
		return false, ErrRetry
	}
}

// OfferAll offers each value in order, one transaction per value, and
// returns the rejected sub-sequence. Other transactions may interleave
// between individual offers; this is deliberately not one atomic step.
func (q *TxQueue[A]) OfferAll(ctx context.Context, values []A) ([]A, error) {
	var rejected []A
	for _, v := range values {
		ok, err := AtomicallyContext(ctx, func(tx *Txn) (bool, error) {
			return q.Offer(tx, v)
		})
		if err != nil {
			return rejected, err
		}
		if !ok {
			rejected = append(rejected, v)
		}
	}
	return rejected, nil
}

// Take implements TxDequeue.
func (q *TxQueue[A]) Take(tx *Txn) (A, error) {
	var zero A
	if q.down.Get(tx) {
		return zero, ErrShutdown
	}
	cur := q.items.ref.Get(tx)
	if len(cur) == 0 {
		return zero, ErrRetry
	}
	q.items.ref.Set(tx, cur[1:])
	return cur[0], nil
}

// Poll implements TxDequeue.
func (q *TxQueue[A]) Poll(tx *Txn) (A, bool) {
	var zero A
	if q.down.Get(tx) {
		return zero, false
	}
	cur := q.items.ref.Get(tx)
	if len(cur) == 0 {
		return zero, false
	}
	q.items.ref.Set(tx, cur[1:])
	return cur[0], true
}

// TakeAll implements TxDequeue.
func (q *TxQueue[A]) TakeAll(tx *Txn) ([]A, error) {
	if q.down.Get(tx) {
		return nil, ErrShutdown
	}
	cur := q.items.ref.Get(tx)
	q.items.ref.Set(tx, nil)
	return cur, nil
}

// TakeUpTo implements TxDequeue.
func (q *TxQueue[A]) TakeUpTo(tx *Txn, n int) ([]A, error) {
	if q.down.Get(tx) {
		return nil, ErrShutdown
	}
	if n <= 0 {
		return nil, nil
	}
	cur := q.items.ref.Get(tx)
	if n >= len(cur) {
		q.items.ref.Set(tx, nil)
		return cur, nil
	}
	q.items.ref.Set(tx, cur[n:])
	return cur[:n:n], nil
}

// Peek implements TxDequeue.
func (q *TxQueue[A]) Peek(tx *Txn) (A, error) {
	var zero A
	if q.down.Get(tx) {
		return zero, ErrShutdown
	}
	cur := q.items.ref.Get(tx)
	if len(cur) == 0 {
		return zero, ErrRetry
	}
	return cur[0], nil
}

// Size implements TxDequeue.
func (q *TxQueue[A]) Size(tx *Txn) int {
	return q.items.Size(tx)
}

// IsEmpty implements TxDequeue.
func (q *TxQueue[A]) IsEmpty(tx *Txn) bool {
	return q.items.IsEmpty(tx)
}

// IsFull implements TxDequeue. Always false for unbounded queues.
func (q *TxQueue[A]) IsFull(tx *Txn) bool {
	if q.strategy == Unbounded {
		return false
	}
	return q.items.Size(tx) >= q.capacity
}

// Shutdown flips the queue into its terminal state and discards remaining
// items. Idempotent; the flag never reverts.
func (q *TxQueue[A]) Shutdown(tx *Txn) {
	if q.down.Get(tx) {
		return
	}
	q.down.Set(tx, true)
	q.items.ref.Set(tx, nil)
}

// IsShutdown implements TxDequeue.
func (q *TxQueue[A]) IsShutdown(tx *Txn) bool {
	return q.down.Get(tx)
}

// AwaitShutdown implements TxDequeue.
func (q *TxQueue[A]) AwaitShutdown(tx *Txn) error {
	return tx.Check(q.down.Get(tx))
}
