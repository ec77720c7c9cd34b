// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package manager implements the transition function of the Manager machine,
// which tracks the operational mode of the controller.
package manager

import (
	"fmt"

	"github.com/edgelesssys/pullup/controller/state"
)

// Next returns the Manager state for this cycle.
//
// sensorHealthy is the health flag committed by the previous cycle, not the
// health of the Sensor state computed in this one. Conditions are checked in
// order; when none holds the machine stays where it is.
func Next(current state.ManagerState, sensorHealthy, standby, apfail, supported bool) state.ManagerState {
	switch current {
	case state.ManagerTransition:
		if standby {
			return state.ManagerStandby
		}
		if supported && sensorHealthy {
			return state.ManagerNominal
		}
		return state.ManagerTransition

	case state.ManagerNominal:
		if standby {
			return state.ManagerStandby
		}
		if !sensorHealthy {
			return state.ManagerManeuver
		}
		return state.ManagerNominal

	case state.ManagerManeuver:
		if standby && sensorHealthy {
			return state.ManagerStandby
		}
		if supported && sensorHealthy {
			return state.ManagerTransition
		}
		return state.ManagerManeuver

	case state.ManagerStandby:
		if apfail {
			return state.ManagerManeuver
		}
		if !standby {
			return state.ManagerTransition
		}
		return state.ManagerStandby
	}

	// unreachable for values built through the state package
	panic(fmt.Sprintf("manager: %v", current))
}
