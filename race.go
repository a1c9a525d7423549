// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package ringq

// RaceEnabled is true when the race detector is active.
// Tests use it to skip concurrent queue tests: payload bytes are plain
// memory published through per-slot sequences, which the detector
// cannot relate to the atomix orderings.
const RaceEnabled = true
