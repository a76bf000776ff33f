// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stm

import (
	"errors"
	"fmt"

	"code.hybscloud.com/iox"
)

// ErrRetry is the explicit-retry signal: a transaction body returns it
// (via Txn.Retry or a blocking primitive) to suspend until a cell in its
// read-set changes. It wraps iox.ErrWouldBlock so the ecosystem's semantic
// classification sees a transaction-level would-block for what it is.
// ErrRetry is control flow, not a failure; Atomically never returns it.
var ErrRetry = fmt.Errorf("stm: transaction would block: %w", iox.ErrWouldBlock)

// ErrShutdown reports an operation on a shut-down queue or hub whose
// semantics are to interrupt the caller (Take, Peek, TakeAll) rather than
// to yield a value. It is a terminal outcome, not a typed domain failure;
// callers that want a plain value on shutdown should Poll instead.
var ErrShutdown = errors.New("stm: shutdown")

// IsRetry reports whether err is the explicit-retry signal.
func IsRetry(err error) bool {
	return errors.Is(err, ErrRetry)
}

// IsShutdown reports whether err is the shutdown interrupt.
func IsShutdown(err error) bool {
	return errors.Is(err, ErrShutdown)
}

// FailureError carries the typed failure of a TxDeferred through the
// transaction body's error channel. Unwrap with errors.As.
type FailureError[E any] struct {
	Cause E
}

func (e *FailureError[E]) Error() string {
	return fmt.Sprintf("stm: deferred failed: %v", e.Cause)
}
