// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build ringqdebug

package ringq

import "code.hybscloud.com/atomix"

// RoleChecks is true when built with the ringqdebug tag.
// Single-producer and single-consumer entry points then panic when two
// goroutines are found inside the same side at once.
const RoleChecks = true

// roleGuard detects overlapping calls on a side that allows one goroutine.
// It catches overlap, not every misuse: two goroutines taking turns pass.
type roleGuard struct {
	busy atomix.Uint32
}

func (g *roleGuard) enter(msg string) {
	if !g.busy.CompareAndSwapAcqRel(0, 1) {
		panic(msg)
	}
}

func (g *roleGuard) exit() {
	g.busy.StoreRelease(0)
}
