// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stm_test

import (
	"context"
	"slices"
	"testing"
	"time"

	"code.hybscloud.com/stm"
)

func offer[A any](t *testing.T, q *stm.TxQueue[A], a A) bool {
	t.Helper()
	ok, err := stm.Atomically(func(tx *stm.Txn) (bool, error) {
		return q.Offer(tx, a)
	})
	if err != nil {
		t.Fatalf("Offer: %v", err)
	}
	return ok
}

func take[A any](t *testing.T, q *stm.TxQueue[A]) A {
	t.Helper()
	v, err := stm.Atomically(func(tx *stm.Txn) (A, error) {
		return q.Take(tx)
	})
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	return v
}

func TestBoundedBlocksAtCapacity(t *testing.T) {
	skipRace(t)
	q := stm.NewTxQueueBounded[int](2)
	if !offer(t, q, 1) || !offer(t, q, 2) {
		t.Fatal("offers within capacity must succeed")
	}
	third := make(chan bool, 1)
	go func() {
		ok, err := stm.Atomically(func(tx *stm.Txn) (bool, error) {
			return q.Offer(tx, 3)
		})
		if err != nil {
			t.Errorf("blocked Offer: %v", err)
			return
		}
		third <- ok
	}()
	select {
	case <-third:
		t.Fatal("offer(3) must block at capacity")
	case <-time.After(50 * time.Millisecond):
	}
	if got := take(t, q); got != 1 {
		t.Fatalf("take = %d, want 1", got)
	}
	select {
	case ok := <-third:
		if !ok {
			t.Fatal("unblocked offer must report true")
		}
	case <-time.After(time.Second):
		t.Fatal("offer(3) not woken by the take")
	}
	if got := take(t, q); got != 2 {
		t.Fatalf("take = %d, want 2", got)
	}
	if got := take(t, q); got != 3 {
		t.Fatalf("take = %d, want 3", got)
	}
}

func TestDroppingRejectsAtCapacity(t *testing.T) {
	q := stm.NewTxQueueDropping[int](2)
	if !offer(t, q, 1) || !offer(t, q, 2) {
		t.Fatal("offers within capacity must succeed")
	}
	if offer(t, q, 3) {
		t.Fatal("offer(3) must report false on a full dropping queue")
	}
	if a, b := take(t, q), take(t, q); a != 1 || b != 2 {
		t.Fatalf("takes = %d, %d; want 1, 2", a, b)
	}
}

func TestSlidingEvictsOldest(t *testing.T) {
	q := stm.NewTxQueueSliding[int](2)
	for v := 1; v <= 3; v++ {
		if !offer(t, q, v) {
			t.Fatalf("offer(%d) must report true on a sliding queue", v)
		}
	}
	if a, b := take(t, q), take(t, q); a != 2 || b != 3 {
		t.Fatalf("takes = %d, %d; want 2, 3 (1 evicted)", a, b)
	}
}

func TestUnboundedNeverFull(t *testing.T) {
	q := stm.NewTxQueueUnbounded[int]()
	for v := range 100 {
		if !offer(t, q, v) {
			t.Fatalf("offer(%d) rejected on unbounded queue", v)
		}
	}
	full, _ := stm.Atomically(func(tx *stm.Txn) (bool, error) {
		return q.IsFull(tx), nil
	})
	if full {
		t.Fatal("unbounded queue reported full")
	}
}

func TestPollNeverBlocks(t *testing.T) {
	q := stm.NewTxQueueBounded[int](1)
	_, ok, err := pollOne(q)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if ok {
		t.Fatal("poll on empty queue must report false")
	}
	offer(t, q, 42)
	v, ok, err := pollOne(q)
	if err != nil || !ok || v != 42 {
		t.Fatalf("poll = (%d, %v, %v), want (42, true, nil)", v, ok, err)
	}
}

func pollOne(q *stm.TxQueue[int]) (int, bool, error) {
	type polled struct {
		v  int
		ok bool
	}
	p, err := stm.Atomically(func(tx *stm.Txn) (polled, error) {
		v, ok := q.Poll(tx)
		return polled{v, ok}, nil
	})
	return p.v, p.ok, err
}

func TestTakeAllAndTakeUpTo(t *testing.T) {
	q := stm.NewTxQueueUnbounded[int]()
	for v := 1; v <= 5; v++ {
		offer(t, q, v)
	}
	firstTwo, err := stm.Atomically(func(tx *stm.Txn) ([]int, error) {
		return q.TakeUpTo(tx, 2)
	})
	if err != nil {
		t.Fatalf("TakeUpTo: %v", err)
	}
	if !slices.Equal(firstTwo, []int{1, 2}) {
		t.Fatalf("TakeUpTo(2) = %v, want [1 2]", firstTwo)
	}
	rest, err := stm.Atomically(func(tx *stm.Txn) ([]int, error) {
		return q.TakeAll(tx)
	})
	if err != nil {
		t.Fatalf("TakeAll: %v", err)
	}
	if !slices.Equal(rest, []int{3, 4, 5}) {
		t.Fatalf("TakeAll = %v, want [3 4 5]", rest)
	}
	empty, _ := stm.Atomically(func(tx *stm.Txn) (bool, error) {
		return q.IsEmpty(tx), nil
	})
	if !empty {
		t.Fatal("queue must be empty after TakeAll")
	}
}

func TestPeekDoesNotRemove(t *testing.T) {
	q := stm.NewTxQueueUnbounded[string]()
	offer(t, q, "head")
	for range 2 {
		v, err := stm.Atomically(func(tx *stm.Txn) (string, error) {
			return q.Peek(tx)
		})
		if err != nil {
			t.Fatalf("Peek: %v", err)
		}
		if v != "head" {
			t.Fatalf("peek = %q, want %q", v, "head")
		}
	}
	if n := sizeOf(t, q); n != 1 {
		t.Fatalf("size after peeks = %d, want 1", n)
	}
}

func sizeOf[A any](t *testing.T, q *stm.TxQueue[A]) int {
	t.Helper()
	n, err := stm.Atomically(func(tx *stm.Txn) (int, error) {
		return q.Size(tx), nil
	})
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	return n
}

func TestShutdownSemantics(t *testing.T) {
	q := stm.NewTxQueueBounded[int](2)
	offer(t, q, 1)
	for range 2 { // idempotent
		if err := stm.Atomic(func(tx *stm.Txn) error {
			q.Shutdown(tx)
			return nil
		}); err != nil {
			t.Fatalf("Shutdown: %v", err)
		}
	}
	if ok := offer(t, q, 2); ok {
		t.Fatal("offer after shutdown must report false")
	}
	_, err := stm.Atomically(func(tx *stm.Txn) (int, error) {
		return q.Take(tx)
	})
	if !stm.IsShutdown(err) {
		t.Fatalf("take after shutdown: err = %v, want shutdown", err)
	}
	_, err = stm.Atomically(func(tx *stm.Txn) (int, error) {
		return q.Peek(tx)
	})
	if !stm.IsShutdown(err) {
		t.Fatalf("peek after shutdown: err = %v, want shutdown", err)
	}
	if _, ok, _ := pollOne(q); ok {
		t.Fatal("poll after shutdown must report false")
	}
	down, _ := stm.Atomically(func(tx *stm.Txn) (bool, error) {
		return q.IsShutdown(tx), nil
	})
	if !down {
		t.Fatal("IsShutdown must report true")
	}
}

func TestAwaitShutdown(t *testing.T) {
	skipRace(t)
	q := stm.NewTxQueueUnbounded[int]()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = stm.Atomic(q.AwaitShutdown)
	}()
	select {
	case <-done:
		t.Fatal("AwaitShutdown returned before shutdown")
	case <-time.After(50 * time.Millisecond):
	}
	_ = stm.Atomic(func(tx *stm.Txn) error {
		q.Shutdown(tx)
		return nil
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("AwaitShutdown not woken by shutdown")
	}
}

func TestOfferAllReportsRejected(t *testing.T) {
	q := stm.NewTxQueueDropping[int](2)
	rejected, err := q.OfferAll(context.Background(), []int{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("OfferAll: %v", err)
	}
	if !slices.Equal(rejected, []int{3, 4}) {
		t.Fatalf("rejected = %v, want [3 4]", rejected)
	}
	if a, b := take(t, q), take(t, q); a != 1 || b != 2 {
		t.Fatalf("takes = %d, %d; want 1, 2", a, b)
	}
}

func TestDequeueCapability(t *testing.T) {
	q := stm.NewTxQueueUnbounded[int]()
	var d stm.TxDequeue[int] = q
	offer(t, q, 9)
	v, err := stm.Atomically(func(tx *stm.Txn) (int, error) {
		return d.Take(tx)
	})
	if err != nil || v != 9 {
		t.Fatalf("take via TxDequeue = (%d, %v), want (9, nil)", v, err)
	}
}
