// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stm

import (
	"code.hybscloud.com/kont"
)

// GetBind reads a cell and passes the value to f.
// Fuses Perform(ReadRef[A]{Ref: r}) + Bind.
func GetBind[A, B any](r *TxRef[A], f func(A) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(ReadRef[A]{Ref: r}), f)
}

// SetThen stages a value and then continues with next.
// Fuses Perform(WriteRef[A]{...}) + Then.
func SetThen[A, B any](r *TxRef[A], v A, next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(WriteRef[A]{Ref: r, Value: v}), next)
}

// ModifyBind reads a cell, applies f for a derived result and next value,
// stages the next value, and passes the result to k.
func ModifyBind[A, B, C any](r *TxRef[A], f func(A) (B, A), k func(B) kont.Eff[C]) kont.Eff[C] {
	return GetBind(r, func(a A) kont.Eff[C] {
		b, next := f(a)
		return SetThen(r, next, k(b))
	})
}

// CheckThen continues with next when ok, suspends the attempt otherwise.
// Fuses Perform(CheckTx{Ok: ok}) + Then.
func CheckThen[B any](ok bool, next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(CheckTx{Ok: ok}), next)
}

// RetryEff suspends the attempt unconditionally. The result type is
// phantom; the continuation never runs within the suspending attempt.
func RetryEff[A any]() kont.Eff[A] {
	return kont.Map[kont.Resumed, struct{}, A](kont.Perform(RetryTx{}), func(struct{}) A {
		var zero A
		return zero
	})
}
