// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stm

import (
	"context"
	"slices"
)

// TxPubSub is a transactional fan-out hub. Each subscriber is an
// independent TxQueue created with the hub's strategy and capacity;
// Publish offers to every current subscriber within one transaction.
type TxPubSub[A any] struct {
	strategy Strategy
	capacity int
	subs     TxRef[[]*TxQueue[A]]
	down     TxRef[bool]
}

// NewTxPubSubBounded creates a hub whose subscribers block publishers at capacity.
func NewTxPubSubBounded[A any](capacity int) *TxPubSub[A] {
	return newTxPubSub[A](Bounded, capacity)
}

// NewTxPubSubUnbounded creates a hub whose subscribers are unbounded.
func NewTxPubSubUnbounded[A any]() *TxPubSub[A] {
	return newTxPubSub[A](Unbounded, 0)
}

// NewTxPubSubDropping creates a hub whose subscribers drop at capacity.
func NewTxPubSubDropping[A any](capacity int) *TxPubSub[A] {
	return newTxPubSub[A](Dropping, capacity)
}

// NewTxPubSubSliding creates a hub whose subscribers evict at capacity.
func NewTxPubSubSliding[A any](capacity int) *TxPubSub[A] {
	return newTxPubSub[A](Sliding, capacity)
}

func newTxPubSub[A any](s Strategy, capacity int) *TxPubSub[A] {
	p := &TxPubSub[A]{strategy: s, capacity: capacity}
	p.subs.v.value = []*TxQueue[A](nil)
	p.down.v.value = false
	return p
}

// Strategy returns the per-subscriber overflow policy.
func (p *TxPubSub[A]) Strategy() Strategy { return p.strategy }

// Capacity returns the per-subscriber capacity; 0 for unbounded hubs.
func (p *TxPubSub[A]) Capacity() int { return p.capacity }

// Publish offers a to every current subscriber. A shut-down hub reports
// false without delivering. Reports true only when every subscriber
// accepted; a dropping subscriber that rejects makes the result false while
// the others keep their delivery. With Bounded subscribers a full queue
// suspends the whole publish until it has room.
func (p *TxPubSub[A]) Publish(tx *Txn, a A) (bool, error) {
	if p.down.Get(tx) {
		return false, nil
	}
	accepted := true
	for _, q := range p.subs.Get(tx) {
		ok, err := q.Offer(tx, a)
		if err != nil {
			return false, err
		}
		accepted = accepted && ok
	}
	return accepted, nil
}

// PublishAll publishes each value in order, one transaction per value.
// Reports true only when every publish reported true.
func (p *TxPubSub[A]) PublishAll(ctx context.Context, values []A) (bool, error) {
	all := true
	for _, v := range values {
		ok, err := AtomicallyContext(ctx, func(tx *Txn) (bool, error) {
			return p.Publish(tx, v)
		})
		if err != nil {
			return false, err
		}
		all = all && ok
	}
	return all, nil
}

// AcquireSubscriber creates a subscriber queue with the hub's strategy and
// capacity and registers it. The pair with ReleaseSubscriber is exposed so
// callers can compose acquisition into a larger transaction; most callers
// want Subscribe. Subscribing to a shut-down hub yields an already
// shut-down queue.
func (p *TxPubSub[A]) AcquireSubscriber(tx *Txn) *TxQueue[A] {
	q := newTxQueue[A](p.strategy, p.capacity)
	if p.down.Get(tx) {
		q.down.v.value = true
		return q
	}
	cur := p.subs.Get(tx)
	p.subs.Set(tx, append(cur[:len(cur):len(cur)], q))
	return q
}

// ReleaseSubscriber removes q from the subscriber set and shuts it down.
// Unknown or already-released queues are shut down all the same.
func (p *TxPubSub[A]) ReleaseSubscriber(tx *Txn, q *TxQueue[A]) {
	cur := p.subs.Get(tx)
	if i := slices.Index(cur, q); i >= 0 {
		next := make([]*TxQueue[A], 0, len(cur)-1)
		next = append(next, cur[:i]...)
		next = append(next, cur[i+1:]...)
		p.subs.Set(tx, next)
	}
	q.Shutdown(tx)
}

// Subscribe registers a new subscriber queue and returns it with its
// release function. Callers must invoke release on every exit path,
// including cancellation; release removes and shuts down the queue.
func (p *TxPubSub[A]) Subscribe(ctx context.Context) (*TxQueue[A], func() error, error) {
	q, err := AtomicallyContext(ctx, func(tx *Txn) (*TxQueue[A], error) {
		return p.AcquireSubscriber(tx), nil
	})
	if err != nil {
		return nil, nil, err
	}
	release := func() error {
		return Atomic(func(tx *Txn) error {
			p.ReleaseSubscriber(tx, q)
			return nil
		})
	}
	return q, release, nil
}

// Shutdown flips the hub into its terminal state, shutting down every
// current subscriber queue. Idempotent; the flag never reverts.
func (p *TxPubSub[A]) Shutdown(tx *Txn) {
	if p.down.Get(tx) {
		return
	}
	p.down.Set(tx, true)
	for _, q := range p.subs.Get(tx) {
		q.Shutdown(tx)
	}
	p.subs.Set(tx, nil)
}

// IsShutdown reports whether the hub is shut down.
func (p *TxPubSub[A]) IsShutdown(tx *Txn) bool {
	return p.down.Get(tx)
}

// AwaitShutdown returns ErrRetry until the hub is shut down.
func (p *TxPubSub[A]) AwaitShutdown(tx *Txn) error {
	return tx.Check(p.down.Get(tx))
}

// Size returns the largest backlog among subscribers, 0 with none.
func (p *TxPubSub[A]) Size(tx *Txn) int {
	max := 0
	for _, q := range p.subs.Get(tx) {
		if n := q.Size(tx); n > max {
			max = n
		}
	}
	return max
}

// IsEmpty reports whether every subscriber backlog is empty.
func (p *TxPubSub[A]) IsEmpty(tx *Txn) bool {
	return p.Size(tx) == 0
}

// IsFull reports whether any subscriber is at capacity.
func (p *TxPubSub[A]) IsFull(tx *Txn) bool {
	for _, q := range p.subs.Get(tx) {
		if q.IsFull(tx) {
			return true
		}
	}
	return false
}
