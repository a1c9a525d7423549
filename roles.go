// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !ringqdebug

package ringq

// RoleChecks is false unless built with the ringqdebug tag.
const RoleChecks = false

// roleGuard is empty in regular builds; its methods inline to nothing.
type roleGuard struct{}

func (*roleGuard) enter(string) {}

func (*roleGuard) exit() {}
