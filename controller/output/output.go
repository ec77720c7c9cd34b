// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package output maps a Manager state to the status flags read by the Sensor
// machine and by the pullup output.
package output

import (
	"fmt"

	"github.com/edgelesssys/pullup/controller/state"
)

// StatusFlags is the three flag status vector. Index 2 is the pullup signal.
type StatusFlags [3]bool

// Flag0 returns the first status flag.
func (f StatusFlags) Flag0() bool { return f[0] }

// Flag1 returns the second status flag.
func (f StatusFlags) Flag1() bool { return f[1] }

// Pullup returns the third status flag, the override signal.
func (f StatusFlags) Pullup() bool { return f[2] }

func (f StatusFlags) String() string {
	return fmt.Sprintf("[%t %t %t]", f[0], f[1], f[2])
}

// Map returns the status flags for a Manager state.
func Map(s state.ManagerState) StatusFlags {
	switch s {
	case state.ManagerTransition:
		return StatusFlags{false, true, false}
	case state.ManagerNominal:
		return StatusFlags{true, true, false}
	case state.ManagerManeuver:
		return StatusFlags{true, false, true}
	case state.ManagerStandby:
		return StatusFlags{true, false, false}
	}
	panic(fmt.Sprintf("output: %v", s))
}
