// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stm

import "code.hybscloud.com/atomix"

// Serial is a monotonically increasing commit identifier. Every commit
// that writes at least one cell takes the next serial, totally ordering
// writing commits; happens-before between transactions is committed-before.
type Serial = uint64

// commits is the global monotonic counter of writing commits.
var commits atomix.Uint64

// nextCommitSerial assigns the next serial. Called under commitMu only.
func nextCommitSerial() Serial {
	return commits.Add(1)
}

// CommitSerial returns the serial of the most recent writing commit,
// 0 if none has happened yet.
func CommitSerial() Serial {
	return commits.Load()
}
