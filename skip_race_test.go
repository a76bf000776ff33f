// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package stm_test

import "testing"

// skipRace skips tests that park goroutines and therefore ride the lfq
// MPMC waiter pool. The race detector tracks per-variable happens-before
// and cannot see MPMC's cross-variable memory ordering (store-release on
// data, load-acquire on sequence), producing false positives.
func skipRace(tb testing.TB) {
	tb.Helper()
	tb.Skip("skip: waiter pool uses cross-variable memory ordering")
}
