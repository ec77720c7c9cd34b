// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package sensor implements the transition function of the Sensor machine,
// which tracks instrument health.
package sensor

import (
	"fmt"

	"github.com/edgelesssys/pullup/controller/state"
)

// Next returns the Sensor state for this cycle.
//
// flag0 and flag1 are the status flags mapped from the Manager state computed
// in the same cycle; limits is the raw input.
func Next(current state.SensorState, flag0, flag1, limits bool) state.SensorState {
	switch current {
	case state.SensorNominal:
		if limits {
			return state.SensorFault
		}
		if !flag1 {
			return state.SensorTransition
		}
		return state.SensorNominal

	case state.SensorTransition:
		if flag0 && flag1 {
			return state.SensorNominal
		}
		return state.SensorTransition

	case state.SensorFault:
		// A fault clears once the confidence flag drops or the limits condition goes away.
		if !flag1 || !limits {
			return state.SensorTransition
		}
		return state.SensorFault
	}

	panic(fmt.Sprintf("sensor: %v", current))
}

// Healthy reports whether s counts as a healthy sensor for the Manager machine.
func Healthy(s state.SensorState) bool {
	return s != state.SensorFault
}
