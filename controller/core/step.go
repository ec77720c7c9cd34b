// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package core

import (
	"github.com/edgelesssys/pullup/controller/manager"
	"github.com/edgelesssys/pullup/controller/output"
	"github.com/edgelesssys/pullup/controller/sensor"
	"github.com/edgelesssys/pullup/controller/state"
)

// Result is everything computed during one cycle.
type Result struct {
	Next   state.Persistent
	Flags  output.StatusFlags
	Pullup bool
}

// Step runs one control cycle against prev and returns the record to commit
// together with the pullup output.
//
// The pullup output reflects the Manager state computed in this cycle. The
// committed SensorHealthy flag is only read by the Manager machine on the next cycle.
func Step(prev state.Persistent, in state.Inputs) (state.Persistent, bool) {
	r := Evaluate(prev, in)
	return r.Next, r.Pullup
}

// Evaluate is Step with the intermediate status flags exposed.
func Evaluate(prev state.Persistent, in state.Inputs) Result {
	mgr := manager.Next(prev.Manager, prev.SensorHealthy, in.Standby, in.APFail, in.Supported)
	flags := output.Map(mgr)
	sen := sensor.Next(prev.Sensor, flags.Flag0(), flags.Flag1(), in.Limits)

	return Result{
		Next: state.Persistent{
			Manager:       mgr,
			Sensor:        sen,
			SensorHealthy: sensor.Healthy(sen),
		},
		Flags:  flags,
		Pullup: flags.Pullup(),
	}
}
