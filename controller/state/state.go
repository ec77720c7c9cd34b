// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package state defines the closed state sets of the pullup controller
// and the persistent record carried from one control cycle to the next.
package state

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInvalidManagerState is returned when a value outside the Manager state set reaches a boundary.
	ErrInvalidManagerState = errors.New("invalid manager state")
	// ErrInvalidSensorState is returned when a value outside the Sensor state set reaches a boundary.
	ErrInvalidSensorState = errors.New("invalid sensor state")
)

// ManagerState is the operational mode of the controller.
type ManagerState int

const (
	ManagerTransition ManagerState = iota
	ManagerNominal
	ManagerManeuver
	ManagerStandby
	managerMax
)

var managerNames = [managerMax]string{"TRANSITION", "NOMINAL", "MANEUVER", "STANDBY"}

// ManagerStates returns every Manager state in encoding order.
func ManagerStates() []ManagerState {
	return []ManagerState{ManagerTransition, ManagerNominal, ManagerManeuver, ManagerStandby}
}

// Valid reports whether s is one of the enumerated Manager states.
func (s ManagerState) Valid() bool {
	return s >= 0 && s < managerMax
}

func (s ManagerState) String() string {
	if !s.Valid() {
		return fmt.Sprintf("ManagerState(%d)", int(s))
	}
	return managerNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s ManagerState) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidManagerState, int(s))
	}
	return []byte(managerNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ManagerState) UnmarshalText(text []byte) error {
	parsed, err := ParseManagerState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseManagerState parses a Manager state name, ignoring case.
func ParseManagerState(name string) (ManagerState, error) {
	for i, n := range managerNames {
		if strings.EqualFold(n, name) {
			return ManagerState(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidManagerState, name)
}

// ManagerStateFromInt converts an external integer encoding.
func ManagerStateFromInt(v int) (ManagerState, error) {
	s := ManagerState(v)
	if !s.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidManagerState, v)
	}
	return s, nil
}

// ManagerStateFromFloat converts the floating point encoding used by generated
// controller code (0.0 to 3.0). Non-integral values are rejected.
func ManagerStateFromFloat(v float64) (ManagerState, error) {
	if v != math.Trunc(v) || v < 0 || v >= float64(managerMax) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidManagerState, v)
	}
	return ManagerState(v), nil
}

// SensorState is the instrument health of the controller.
type SensorState int

const (
	SensorNominal SensorState = iota
	SensorTransition
	SensorFault
	sensorMax
)

var sensorNames = [sensorMax]string{"NOMINAL", "TRANSITION", "FAULT"}

// SensorStates returns every Sensor state in encoding order.
func SensorStates() []SensorState {
	return []SensorState{SensorNominal, SensorTransition, SensorFault}
}

// Valid reports whether s is one of the enumerated Sensor states.
func (s SensorState) Valid() bool {
	return s >= 0 && s < sensorMax
}

func (s SensorState) String() string {
	if !s.Valid() {
		return fmt.Sprintf("SensorState(%d)", int(s))
	}
	return sensorNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s SensorState) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSensorState, int(s))
	}
	return []byte(sensorNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SensorState) UnmarshalText(text []byte) error {
	parsed, err := ParseSensorState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSensorState parses a Sensor state name, ignoring case.
func ParseSensorState(name string) (SensorState, error) {
	for i, n := range sensorNames {
		if strings.EqualFold(n, name) {
			return SensorState(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidSensorState, name)
}

// SensorStateFromInt converts an external integer encoding.
func SensorStateFromInt(v int) (SensorState, error) {
	s := SensorState(v)
	if !s.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSensorState, v)
	}
	return s, nil
}

// SensorStateFromFloat converts the floating point encoding used by generated
// controller code (0.0 to 2.0). Non-integral values are rejected.
func SensorStateFromFloat(v float64) (SensorState, error) {
	if v != math.Trunc(v) || v < 0 || v >= float64(sensorMax) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidSensorState, v)
	}
	return SensorState(v), nil
}

// Inputs are the four booleans sampled once per cycle.
type Inputs struct {
	Standby   bool `json:"standby"`   // pilot in control
	APFail    bool `json:"apfail"`    // autopilot failure
	Supported bool `json:"supported"` // system health OK
	Limits    bool `json:"limits"`    // sensor limits exceeded
}

// AllInputs returns the 16 input combinations.
func AllInputs() []Inputs {
	all := make([]Inputs, 0, 16)
	for i := 0; i < 16; i++ {
		all = append(all, Inputs{
			Standby:   i&1 != 0,
			APFail:    i&2 != 0,
			Supported: i&4 != 0,
			Limits:    i&8 != 0,
		})
	}
	return all
}

// Persistent is the state committed at the end of a cycle and consumed by the next one.
//
// SensorHealthy summarizes the Sensor state of the previous cycle. It is stored
// rather than derived so the Manager machine sees sensor health with a one cycle lag.
type Persistent struct {
	Manager       ManagerState `json:"manager"`
	Sensor        SensorState  `json:"sensor"`
	SensorHealthy bool         `json:"sensorHealthy"`
}

// Initial returns the power-on record: Manager TRANSITION, Sensor NOMINAL, sensor healthy.
func Initial() Persistent {
	return Persistent{Manager: ManagerTransition, Sensor: SensorNominal, SensorHealthy: true}
}

// Validate checks that both machine states are enumerated values.
func (p Persistent) Validate() error {
	if !p.Manager.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidManagerState, int(p.Manager))
	}
	if !p.Sensor.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidSensorState, int(p.Sensor))
	}
	return nil
}

func (p Persistent) String() string {
	return fmt.Sprintf("manager=%s sensor=%s healthy=%t", p.Manager, p.Sensor, p.SensorHealthy)
}
