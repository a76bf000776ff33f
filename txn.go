// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stm

import (
	"context"
	"errors"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
)

// txVar is a single versioned memory cell. The value is mutated only by
// commit; the version moves by exactly 1 per commit that writes the cell.
// waiters holds goroutines parked on this cell by a retrying transaction.
type txVar struct {
	version atomix.Uint64
	mu      sync.Mutex // guards value and waiters
	value   any
	waiters map[*waiter]struct{}
}

// snapshot returns a consistent (value, version) pair.
func (v *txVar) snapshot() (any, uint64) {
	v.mu.Lock()
	val, ver := v.value, v.version.Load()
	v.mu.Unlock()
	return val, ver
}

// journalEntry records one cell's first-read version and, when written
// this attempt, the staged pending value.
type journalEntry struct {
	readVersion uint64
	value       any
	written     bool
}

// Txn is the per-attempt transaction journal. A Txn is created by the
// Atomically drivers, handed to the body, and discarded after the attempt;
// it is not safe for concurrent use and must not outlive the body call.
type Txn struct {
	log    map[*txVar]*journalEntry
	writes int
}

func newTxn() *Txn {
	return &Txn{log: make(map[*txVar]*journalEntry)}
}

// read registers the cell in the journal at first access and returns the
// journal's view of it: the staged pending value if written this attempt,
// otherwise the value captured at first read.
func (tx *Txn) read(v *txVar) any {
	if e, ok := tx.log[v]; ok {
		return e.value
	}
	val, ver := v.snapshot()
	tx.log[v] = &journalEntry{readVersion: ver, value: val}
	return val
}

// write stages a pending value without touching the cell. The cell's
// version is still captured at first access so that blind writes validate
// like reads at commit.
func (tx *Txn) write(v *txVar, val any) {
	e, ok := tx.log[v]
	if !ok {
		_, ver := v.snapshot()
		e = &journalEntry{readVersion: ver}
		tx.log[v] = e
	}
	if !e.written {
		e.written = true
		tx.writes++
	}
	e.value = val
}

// Retry requests suspension of the current transaction until a cell in its
// read-set changes. It returns ErrRetry for the body to propagate; staged
// writes of a retrying attempt are discarded by the driver.
func (tx *Txn) Retry() error {
	return ErrRetry
}

// Check returns ErrRetry when ok is false, nil otherwise.
func (tx *Txn) Check(ok bool) error {
	if !ok {
		return ErrRetry
	}
	return nil
}

// commitMu scopes the engine's single indivisible step: read-set
// validation, write application, version bumps, and waiter wakeup.
// Nothing else in the package holds it.
var commitMu sync.Mutex

// commit validates the journal against current cell versions and, when
// clean, applies staged writes and wakes waiters of every written cell.
// Reports false on conflict; the caller re-runs the body from scratch.
func (tx *Txn) commit() bool {
	commitMu.Lock()
	for v, e := range tx.log {
		if v.version.Load() != e.readVersion {
			commitMu.Unlock()
			return false
		}
	}
	if tx.writes == 0 {
		// Pure read: validation is the whole commit.
		commitMu.Unlock()
		return true
	}
	nextCommitSerial()
	for v, e := range tx.log {
		if !e.written {
			continue
		}
		v.mu.Lock()
		v.value = e.value
		v.version.Add(1)
		var wake []*waiter
		for w := range v.waiters {
			wake = append(wake, w)
			delete(v.waiters, w)
		}
		v.mu.Unlock()
		for _, w := range wake {
			w.signal()
		}
	}
	commitMu.Unlock()
	return true
}

// park suspends the calling goroutine until a cell in the journal's
// read-set is written by a later commit, or ctx is done (nil ctx never
// expires). Registration happens under commitMu after a final validation
// pass, so a wakeup between validation and parking cannot be lost.
func (tx *Txn) park(ctx context.Context) error {
	w := acquireWaiter()
	commitMu.Lock()
	for v, e := range tx.log {
		if v.version.Load() != e.readVersion {
			// Something changed while the body ran; re-run immediately.
			commitMu.Unlock()
			releaseWaiter(w)
			return nil
		}
	}
	for v := range tx.log {
		v.mu.Lock()
		if v.waiters == nil {
			v.waiters = make(map[*waiter]struct{})
		}
		v.waiters[w] = struct{}{}
		v.mu.Unlock()
		w.cells = append(w.cells, v)
	}
	commitMu.Unlock()

	if ctx == nil {
		<-w.wake
		w.unregister()
		releaseWaiter(w)
		return nil
	}
	select {
	case <-w.wake:
		w.unregister()
		releaseWaiter(w)
		return nil
	case <-ctx.Done():
		w.unregister()
		releaseWaiter(w)
		return ctx.Err()
	}
}

// waiter is a parked goroutine's handle: a 1-slot wake channel plus the
// cells it is registered on, for removal on wake or cancellation.
type waiter struct {
	wake  chan struct{}
	cells []*txVar
}

// signal delivers at most one wakeup. Extra signals collapse into the
// buffered slot; a stale signal surviving into pool reuse only causes one
// spurious re-validation.
func (w *waiter) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// unregister removes the waiter from every cell it parked on. Deleting an
// already-removed entry is a no-op, so racing a concurrent wakeup is fine.
func (w *waiter) unregister() {
	for _, v := range w.cells {
		v.mu.Lock()
		delete(v.waiters, w)
		v.mu.Unlock()
	}
	w.cells = w.cells[:0]
}

// waiterPoolCapacity bounds the free list of waiter records. Parks beyond
// it fall back to allocation; releases beyond it fall back to GC.
const waiterPoolCapacity = 256

// waiterPool recycles waiter records across parks, so a hot retry path
// does not allocate once the pool is warm.
var waiterPool = lfq.NewMPMC[*waiter](waiterPoolCapacity)

func acquireWaiter() *waiter {
	w, err := waiterPool.Dequeue()
	if err != nil {
		return &waiter{wake: make(chan struct{}, 1)}
	}
	select {
	case <-w.wake: // drop a stale signal from a previous use
	default:
	}
	return w
}

func releaseWaiter(w *waiter) {
	w.cells = w.cells[:0]
	_ = waiterPool.Enqueue(&w)
}

// Atomically runs body to commit. Each attempt gets a fresh journal;
// conflicts re-run the body silently with adaptive backoff (iox.Backoff)
// between attempts. When body returns ErrRetry the goroutine parks until a
// cell in the attempt's read-set changes. Any other body error aborts the
// transaction without committing and is returned as-is.
//
// Bodies may run several times and must not carry non-idempotent side
// effects; defer those until after Atomically returns.
func Atomically[A any](body func(*Txn) (A, error)) (A, error) {
	return atomically(nil, body)
}

// AtomicallyContext is Atomically with cancellation: a goroutine parked in
// retry is unparked and removed from every waiter set when ctx is done,
// returning ctx.Err().
func AtomicallyContext[A any](ctx context.Context, body func(*Txn) (A, error)) (A, error) {
	return atomically(ctx, body)
}

// Atomic runs a value-free body to commit.
func Atomic(body func(*Txn) error) error {
	_, err := atomically(nil, func(tx *Txn) (struct{}, error) {
		return struct{}{}, body(tx)
	})
	return err
}

// AtomicContext is Atomic with cancellation.
func AtomicContext(ctx context.Context, body func(*Txn) error) error {
	_, err := atomically(ctx, func(tx *Txn) (struct{}, error) {
		return struct{}{}, body(tx)
	})
	return err
}

func atomically[A any](ctx context.Context, body func(*Txn) (A, error)) (A, error) {
	var zero A
	var bo iox.Backoff
	for {
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				return zero, err
			}
		}
		tx := newTxn()
		a, err := body(tx)
		switch {
		case err == nil:
			if tx.commit() {
				return a, nil
			}
			bo.Wait()
		case errors.Is(err, ErrRetry):
			// A retrying attempt is read-only: staged writes die with tx.
			if perr := tx.park(ctx); perr != nil {
				return zero, perr
			}
			bo.Reset()
		default:
			return zero, err
		}
	}
}
