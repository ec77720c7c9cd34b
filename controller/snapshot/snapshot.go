// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package snapshot converts the persistent controller record to and from
// external representations. Every decoder rejects values outside the
// enumerated state sets instead of mapping them to a default.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/edgelesssys/pullup/controller/state"
	"github.com/fxamacker/cbor/v2"
	"github.com/tidwall/gjson"
)

// ErrMalformed is returned for input that is not a snapshot at all.
var ErrMalformed = errors.New("malformed snapshot")

const (
	fieldManager       = "manager"
	fieldSensor        = "sensor"
	fieldSensorHealthy = "sensorHealthy"
)

// MarshalJSON encodes p with state names.
func MarshalJSON(p state.Persistent) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(p)
}

// UnmarshalJSON decodes a JSON snapshot.
//
// States may be given by name ("MANEUVER") or by their numeric encoding
// (Manager 0 to 3, Sensor 0 to 2, integral floats allowed). sensorHealthy
// accepts a boolean or 0/1. Duplicate and unknown fields are rejected.
func UnmarshalJSON(data []byte) (state.Persistent, error) {
	if !gjson.ValidBytes(data) {
		return state.Persistent{}, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	if err := checkFields(gjson.ParseBytes(data)); err != nil {
		return state.Persistent{}, err
	}
	fields := gjson.GetManyBytes(data, fieldManager, fieldSensor, fieldSensorHealthy)

	mgr, err := managerFromJSON(fields[0])
	if err != nil {
		return state.Persistent{}, err
	}
	sen, err := sensorFromJSON(fields[1])
	if err != nil {
		return state.Persistent{}, err
	}
	healthy, err := boolFromJSON(fields[2])
	if err != nil {
		return state.Persistent{}, err
	}
	return state.Persistent{Manager: mgr, Sensor: sen, SensorHealthy: healthy}, nil
}

func checkFields(obj gjson.Result) error {
	if !obj.IsObject() {
		return fmt.Errorf("%w: expected an object", ErrMalformed)
	}
	var err error
	seen := make(map[string]bool, 3)
	obj.ForEach(func(key, _ gjson.Result) bool {
		switch name := key.String(); {
		case name != fieldManager && name != fieldSensor && name != fieldSensorHealthy:
			err = fmt.Errorf("%w: unknown field %q", ErrMalformed, name)
		case seen[name]:
			err = fmt.Errorf("%w: duplicate field %q", ErrMalformed, name)
		default:
			seen[name] = true
		}
		return err == nil
	})
	return err
}

func managerFromJSON(v gjson.Result) (state.ManagerState, error) {
	switch v.Type {
	case gjson.String:
		return state.ParseManagerState(v.Str)
	case gjson.Number:
		return state.ManagerStateFromFloat(v.Num)
	case gjson.Null:
		if !v.Exists() {
			return 0, fmt.Errorf("%w: missing field %q", ErrMalformed, fieldManager)
		}
	}
	return 0, fmt.Errorf("%w: %s", state.ErrInvalidManagerState, v.Raw)
}

func sensorFromJSON(v gjson.Result) (state.SensorState, error) {
	switch v.Type {
	case gjson.String:
		return state.ParseSensorState(v.Str)
	case gjson.Number:
		return state.SensorStateFromFloat(v.Num)
	case gjson.Null:
		if !v.Exists() {
			return 0, fmt.Errorf("%w: missing field %q", ErrMalformed, fieldSensor)
		}
	}
	return 0, fmt.Errorf("%w: %s", state.ErrInvalidSensorState, v.Raw)
}

func boolFromJSON(v gjson.Result) (bool, error) {
	switch v.Type {
	case gjson.True:
		return true, nil
	case gjson.False:
		return false, nil
	case gjson.Number:
		switch v.Num {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
	case gjson.Null:
		if !v.Exists() {
			return false, fmt.Errorf("%w: missing field %q", ErrMalformed, fieldSensorHealthy)
		}
	}
	return false, fmt.Errorf("%w: %s is not a boolean: %s", ErrMalformed, fieldSensorHealthy, v.Raw)
}

// cborSnapshot is the compact binary layout: states as small integers.
type cborSnapshot struct {
	_             struct{} `cbor:",toarray"`
	Manager       int
	Sensor        int
	SensorHealthy bool
}

// EncodeCBOR encodes p as a three element CBOR array.
func EncodeCBOR(p state.Persistent) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return cbor.Marshal(cborSnapshot{
		Manager:       int(p.Manager),
		Sensor:        int(p.Sensor),
		SensorHealthy: p.SensorHealthy,
	})
}

// DecodeCBOR decodes a snapshot produced by EncodeCBOR.
func DecodeCBOR(data []byte) (state.Persistent, error) {
	var raw cborSnapshot
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return state.Persistent{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	mgr, err := state.ManagerStateFromInt(raw.Manager)
	if err != nil {
		return state.Persistent{}, err
	}
	sen, err := state.SensorStateFromInt(raw.Sensor)
	if err != nil {
		return state.Persistent{}, err
	}
	return state.Persistent{Manager: mgr, Sensor: sen, SensorHealthy: raw.SensorHealthy}, nil
}
