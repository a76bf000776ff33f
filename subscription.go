// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stm

import (
	"context"
	"iter"
)

// TxSubscriptionRef pairs a TxRef with an unbounded TxPubSub so that every
// committed mutation is also broadcast, in the same transaction. Subscribers
// observe committed values in version order with no gaps.
type TxSubscriptionRef[A any] struct {
	ref    TxRef[A]
	pubsub *TxPubSub[A]
}

// NewTxSubscriptionRef creates a subscription ref with the given initial value.
func NewTxSubscriptionRef[A any](initial A) *TxSubscriptionRef[A] {
	s := &TxSubscriptionRef[A]{pubsub: NewTxPubSubUnbounded[A]()}
	s.ref.v.value = initial
	return s
}

// Get returns the current value.
func (s *TxSubscriptionRef[A]) Get(tx *Txn) A {
	return s.ref.Get(tx)
}

// ModifySubscriptionRef reads the value, applies f, stages the next value,
// and publishes it to the hub, all in one transaction. Everything below is
// sugar over this.
func ModifySubscriptionRef[A, B any](tx *Txn, s *TxSubscriptionRef[A], f func(A) (B, A)) (B, error) {
	b, next := f(s.ref.Get(tx))
	s.ref.Set(tx, next)
	if _, err := s.pubsub.Publish(tx, next); err != nil {
		return b, err
	}
	return b, nil
}

// Set stages and publishes a.
func (s *TxSubscriptionRef[A]) Set(tx *Txn, a A) error {
	_, err := ModifySubscriptionRef(tx, s, func(A) (struct{}, A) {
		return struct{}{}, a
	})
	return err
}

// Update stages and publishes f applied to the current value.
func (s *TxSubscriptionRef[A]) Update(tx *Txn, f func(A) A) error {
	_, err := ModifySubscriptionRef(tx, s, func(a A) (struct{}, A) {
		return struct{}{}, f(a)
	})
	return err
}

// GetAndSet stages and publishes a, returning the prior value.
func (s *TxSubscriptionRef[A]) GetAndSet(tx *Txn, a A) (A, error) {
	return ModifySubscriptionRef(tx, s, func(old A) (A, A) {
		return old, a
	})
}

// GetAndUpdate stages and publishes f applied to the current value,
// returning the prior value.
func (s *TxSubscriptionRef[A]) GetAndUpdate(tx *Txn, f func(A) A) (A, error) {
	return ModifySubscriptionRef(tx, s, func(old A) (A, A) {
		return old, f(old)
	})
}

// UpdateAndGet stages and publishes f applied to the current value,
// returning the staged value.
func (s *TxSubscriptionRef[A]) UpdateAndGet(tx *Txn, f func(A) A) (A, error) {
	return ModifySubscriptionRef(tx, s, func(old A) (A, A) {
		next := f(old)
		return next, next
	})
}

// Changes subscribes and, atomically with subscribing, seeds the new
// subscriber with the current value: the dequeue replays the current value
// first, then every subsequent committed change, with no seam where a
// concurrent Set could be missed or doubled. Callers must invoke release
// on every exit path.
func (s *TxSubscriptionRef[A]) Changes(ctx context.Context) (TxDequeue[A], func() error, error) {
	q, err := AtomicallyContext(ctx, func(tx *Txn) (*TxQueue[A], error) {
		q := s.pubsub.AcquireSubscriber(tx)
		if _, err := q.Offer(tx, s.ref.Get(tx)); err != nil {
			return nil, err
		}
		return q, nil
	})
	if err != nil {
		return nil, nil, err
	}
	release := func() error {
		return Atomic(func(tx *Txn) error {
			s.pubsub.ReleaseSubscriber(tx, q)
			return nil
		})
	}
	return q, release, nil
}

// ChangesStream returns a lazily-pulled sequence over Changes: the current
// value, then every subsequent committed change. The subscription is
// released when the consumer stops or ctx is done.
func (s *TxSubscriptionRef[A]) ChangesStream(ctx context.Context) iter.Seq[A] {
	return func(yield func(A) bool) {
		q, release, err := s.Changes(ctx)
		if err != nil {
			return
		}
		defer release()
		for {
			a, err := AtomicallyContext(ctx, func(tx *Txn) (A, error) {
				return q.Take(tx)
			})
			if err != nil {
				return
			}
			if !yield(a) {
				return
			}
		}
	}
}
