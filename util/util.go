// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package util

import (
	"fmt"
	"os"

	"github.com/edgelesssys/pullup/controller/constants"
	"github.com/edgelesssys/pullup/controller/state"
	"go.uber.org/zap"
)

// Getenv returns the environment variable `name` if it exists or the handed fallback value elsewise.
func Getenv(name string, fallback string) string {
	value := os.Getenv(name)
	if len(value) == 0 {
		return fallback
	}
	return value
}

// EnvEnabled reports whether the environment variable `name`, or the fallback if it is unset, equals "1".
func EnvEnabled(name string, fallback string) bool {
	return Getenv(name, fallback) == "1"
}

// NewLogger creates the process logger.
// Development Logger shows a stacktrace for warnings & errors, Production Logger only for errors.
func NewLogger(devMode, debug bool) (*zap.Logger, error) {
	var cfg zap.Config
	if devMode {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else if devMode {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

// NewLoggerFromEnv creates the process logger configured by [constants.DevMode] and [constants.DebugLogging].
func NewLoggerFromEnv() (*zap.Logger, error) {
	return NewLogger(
		EnvEnabled(constants.DevMode, constants.DevModeDefault),
		EnvEnabled(constants.DebugLogging, constants.DebugLoggingDefault),
	)
}

// InitialStateFromEnv returns the power-on record, with the Manager and Sensor
// states optionally overridden by environment variables. Unknown names are an error.
func InitialStateFromEnv() (state.Persistent, error) {
	initial := state.Initial()

	mgr, err := state.ParseManagerState(Getenv(constants.InitialManagerState, constants.InitialManagerStateDefault))
	if err != nil {
		return state.Persistent{}, fmt.Errorf("reading %s: %w", constants.InitialManagerState, err)
	}
	sen, err := state.ParseSensorState(Getenv(constants.InitialSensorState, constants.InitialSensorStateDefault))
	if err != nil {
		return state.Persistent{}, fmt.Errorf("reading %s: %w", constants.InitialSensorState, err)
	}
	initial.Manager = mgr
	initial.Sensor = sen
	initial.SensorHealthy = sen != state.SensorFault
	return initial, nil
}
