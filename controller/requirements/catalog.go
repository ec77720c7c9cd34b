// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package requirements

import (
	"github.com/edgelesssys/pullup/controller/core"
	"github.com/edgelesssys/pullup/controller/output"
	"github.com/edgelesssys/pullup/controller/state"
)

func managerWas(s state.ManagerState) func(Case) bool {
	return func(c Case) bool { return c.Prev.Manager == s }
}

func sensorWas(s state.SensorState) func(Case) bool {
	return func(c Case) bool { return c.Prev.Sensor == s }
}

func managerIs(s state.ManagerState) func(Case, core.Result) bool {
	return func(_ Case, r core.Result) bool { return r.Next.Manager == s }
}

func sensorIs(s state.SensorState) func(Case, core.Result) bool {
	return func(_ Case, r core.Result) bool { return r.Next.Sensor == s }
}

func when(pre func(Case) bool, cond func(Case) bool) func(Case, core.Result) bool {
	return func(c Case, _ core.Result) bool { return pre(c) && cond(c) }
}

// Standard returns the transition requirements of the controller.
// Every one of them holds on every case returned by Enumerate.
func Standard() []Requirement {
	return []Requirement{
		{
			ID:          "R1",
			Description: "Exceeding sensor limits in NOMINAL while not in control shall fault the sensor, so the pullup latches on the next cycle",
			Assume: when(managerWas(state.ManagerNominal), func(c Case) bool {
				return c.Prev.Sensor == state.SensorNominal && c.Prev.SensorHealthy && c.Inputs.Limits && !c.Inputs.Standby
			}),
			Assert: func(_ Case, r core.Result) bool {
				return r.Next.Manager == state.ManagerNominal && r.Next.Sensor == state.SensorFault && !r.Next.SensorHealthy
			},
		},
		{
			ID:          "R2",
			Description: "TRANSITION shall change to STANDBY when the pilot is in control",
			Assume:      when(managerWas(state.ManagerTransition), func(c Case) bool { return c.Inputs.Standby }),
			Assert:      managerIs(state.ManagerStandby),
		},
		{
			ID:          "R3",
			Description: "TRANSITION shall change to NOMINAL when supported with healthy sensor data and not in control",
			Assume: when(managerWas(state.ManagerTransition), func(c Case) bool {
				return !c.Inputs.Standby && c.Inputs.Supported && c.Prev.SensorHealthy
			}),
			Assert: managerIs(state.ManagerNominal),
		},
		{
			ID:          "R4",
			Description: "NOMINAL shall change to MANEUVER and engage the pullup when sensor data is not healthy and not in control",
			Assume: when(managerWas(state.ManagerNominal), func(c Case) bool {
				return !c.Inputs.Standby && !c.Prev.SensorHealthy
			}),
			Assert: func(_ Case, r core.Result) bool { return r.Next.Manager == state.ManagerManeuver && r.Pullup },
		},
		{
			ID:          "R5",
			Description: "NOMINAL shall change to STANDBY when the pilot is in control",
			Assume:      when(managerWas(state.ManagerNominal), func(c Case) bool { return c.Inputs.Standby }),
			Assert:      managerIs(state.ManagerStandby),
		},
		{
			ID:          "R6",
			Description: "MANEUVER shall change to STANDBY when the pilot is in control and sensor data is healthy",
			Assume: when(managerWas(state.ManagerManeuver), func(c Case) bool {
				return c.Inputs.Standby && c.Prev.SensorHealthy
			}),
			Assert: func(_ Case, r core.Result) bool { return r.Next.Manager == state.ManagerStandby && !r.Pullup },
		},
		{
			ID:          "R7",
			Description: "MANEUVER shall change to TRANSITION when supported with healthy sensor data and not in control",
			Assume: when(managerWas(state.ManagerManeuver), func(c Case) bool {
				return !c.Inputs.Standby && c.Inputs.Supported && c.Prev.SensorHealthy
			}),
			Assert: managerIs(state.ManagerTransition),
		},
		{
			ID:          "R8",
			Description: "STANDBY shall change to TRANSITION when the pilot is not in control and the autopilot has not failed",
			Assume: when(managerWas(state.ManagerStandby), func(c Case) bool {
				return !c.Inputs.Standby && !c.Inputs.APFail
			}),
			Assert: managerIs(state.ManagerTransition),
		},
		{
			ID:          "R9",
			Description: "STANDBY shall change to MANEUVER and engage the pullup on an autopilot failure",
			Assume:      when(managerWas(state.ManagerStandby), func(c Case) bool { return c.Inputs.APFail }),
			Assert:      func(_ Case, r core.Result) bool { return r.Next.Manager == state.ManagerManeuver && r.Pullup },
		},
		{
			ID:          "R10",
			Description: "Sensor NOMINAL shall change to FAULT when limits are exceeded",
			Assume:      when(sensorWas(state.SensorNominal), func(c Case) bool { return c.Inputs.Limits }),
			Assert:      sensorIs(state.SensorFault),
		},
		{
			ID:          "R11",
			Description: "Sensor NOMINAL shall change to TRANSITION when the mode no longer requests sensor data",
			Assume: func(c Case, r core.Result) bool {
				return c.Prev.Sensor == state.SensorNominal && !c.Inputs.Limits && !r.Flags.Flag1()
			},
			Assert: sensorIs(state.SensorTransition),
		},
		{
			ID:          "R12",
			Description: "Sensor FAULT shall change to TRANSITION when not requested or limits are no longer exceeded",
			Assume: func(c Case, r core.Result) bool {
				return c.Prev.Sensor == state.SensorFault && (!r.Flags.Flag1() || !c.Inputs.Limits)
			},
			Assert: sensorIs(state.SensorTransition),
		},
		{
			ID:          "R13",
			Description: "Sensor TRANSITION shall change to NOMINAL when requested and the mode is correct",
			Assume: func(c Case, r core.Result) bool {
				return c.Prev.Sensor == state.SensorTransition && r.Flags.Flag0() && r.Flags.Flag1()
			},
			Assert: sensorIs(state.SensorNominal),
		},
	}
}

// Properties returns invariants that hold for every cycle.
func Properties() []Requirement {
	return []Requirement{
		{
			ID:          "P1",
			Description: "The pullup is engaged if and only if the new Manager state is MANEUVER",
			Assert:      func(_ Case, r core.Result) bool { return r.Pullup == (r.Next.Manager == state.ManagerManeuver) },
		},
		{
			ID:          "P2",
			Description: "The committed sensor health flag is set if and only if the new Sensor state is not FAULT",
			Assert:      func(_ Case, r core.Result) bool { return r.Next.SensorHealthy == (r.Next.Sensor != state.SensorFault) },
		},
		{
			ID:          "P3",
			Description: "The status flags are those of the new Manager state",
			Assert:      func(_ Case, r core.Result) bool { return r.Flags == output.Map(r.Next.Manager) },
		},
		{
			ID:          "P4",
			Description: "Both machines stay in enumerated states",
			Assert:      func(_ Case, r core.Result) bool { return r.Next.Validate() == nil },
		},
		{
			ID:          "P5",
			Description: "A sensor FAULT persists while the mode requests sensor data and limits stay exceeded",
			Assume: func(c Case, r core.Result) bool {
				return c.Prev.Sensor == state.SensorFault && r.Flags.Flag1() && c.Inputs.Limits
			},
			Assert: sensorIs(state.SensorFault),
		},
	}
}

// Historical returns the requirements as first stated against the generated
// controller, with state conditions taken literally from their numeric form.
// Several of them do not hold; they are kept to demonstrate counterexample reporting.
func Historical() []Requirement {
	return []Requirement{
		{
			ID:          "H1",
			Description: "Exceeding sensor limits shall latch an autopilot pullup",
			Assume: func(c Case, _ core.Result) bool {
				return c.Inputs.Limits && !c.Inputs.Standby && c.Inputs.Supported && !c.Inputs.APFail
			},
			Assert: func(_ Case, r core.Result) bool { return r.Pullup },
		},
		{
			ID:          "H2",
			Description: "Change states from TRANSITION to STANDBY when in control",
			Assume:      when(managerWas(state.ManagerTransition), func(c Case) bool { return c.Inputs.Standby }),
			Assert:      managerIs(state.ManagerStandby),
		},
		{
			ID:          "H3",
			Description: "Change states from TRANSITION to NOMINAL when supported and data is good",
			Assume: when(managerWas(state.ManagerTransition), func(c Case) bool {
				return c.Inputs.Supported && c.Prev.SensorHealthy
			}),
			Assert: managerIs(state.ManagerNominal),
		},
		{
			ID:          "H4",
			Description: "Change states from NOMINAL to MANEUVER when data is not good",
			Assume:      when(managerWas(state.ManagerNominal), func(c Case) bool { return !c.Prev.SensorHealthy }),
			Assert:      managerIs(state.ManagerManeuver),
		},
		{
			ID:          "H5",
			Description: "Change states from NOMINAL to STANDBY when in control",
			Assume:      when(managerWas(state.ManagerNominal), func(c Case) bool { return c.Inputs.Standby }),
			Assert:      managerIs(state.ManagerStandby),
		},
		{
			ID:          "H6",
			Description: "Change states from MANEUVER to STANDBY when in control and data is good",
			Assume: when(managerWas(state.ManagerManeuver), func(c Case) bool {
				return c.Inputs.Standby && c.Prev.SensorHealthy
			}),
			Assert: managerIs(state.ManagerStandby),
		},
		{
			ID:          "H7",
			Description: "Change states from PULLUP to TRANSITION when supported and data is good",
			// encoded state 3 is STANDBY
			Assume: when(managerWas(state.ManagerStandby), func(c Case) bool {
				return c.Inputs.Supported && c.Prev.SensorHealthy
			}),
			Assert: managerIs(state.ManagerTransition),
		},
		{
			ID:          "H8",
			Description: "Change states from STANDBY to TRANSITION when not in control",
			Assume:      when(managerWas(state.ManagerStandby), func(c Case) bool { return !c.Inputs.Standby }),
			Assert:      managerIs(state.ManagerTransition),
		},
		{
			ID:          "H9",
			Description: "Change states from STANDBY to MANEUVER when apfail occurs",
			Assume:      when(managerWas(state.ManagerStandby), func(c Case) bool { return c.Inputs.APFail }),
			Assert:      managerIs(state.ManagerManeuver),
		},
		{
			ID:          "H10",
			Description: "Change sensor states from NOMINAL to FAULT when limits are exceeded",
			// encoded sensor state 1 is TRANSITION
			Assume: when(sensorWas(state.SensorTransition), func(c Case) bool { return c.Inputs.Limits }),
			Assert: sensorIs(state.SensorFault),
		},
		{
			ID:          "H11",
			Description: "Change sensor states from NOMINAL to TRANSITION when not requested",
			Assume:      when(sensorWas(state.SensorTransition), func(c Case) bool { return !c.Inputs.Supported }),
			Assert:      sensorIs(state.SensorNominal),
		},
		{
			ID:          "H12",
			Description: "Change sensor states from FAULT to TRANSITION when not requested and limits not exceeded",
			Assume: when(sensorWas(state.SensorFault), func(c Case) bool {
				return !c.Inputs.Supported && !c.Inputs.Limits
			}),
			Assert: sensorIs(state.SensorNominal),
		},
		{
			ID:          "H13",
			Description: "Change sensor states from TRANSITION to NOMINAL when requested and mode is correct",
			Assume:      when(sensorWas(state.SensorNominal), func(c Case) bool { return c.Inputs.Supported }),
			Assert:      sensorIs(state.SensorTransition),
		},
	}
}
