// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package constants defines the environment variables and default values of the controller.
package constants

const (
	// DevMode enables more verbose logging.
	DevMode = "PULLUP_DEV_MODE"
	// DevModeDefault is the default logging mode.
	DevModeDefault = "0"

	// DebugLogging enables debug logs, including one line per cycle.
	DebugLogging = "PULLUP_DEBUG_LOGGING"
	// DebugLoggingDefault is the default value to use when the [DebugLogging] env variable is not set.
	DebugLoggingDefault = "0"

	// PromAddr is the address for the prometheus endpoint server to listen on.
	// The server is disabled if unset.
	PromAddr = "PULLUP_PROMETHEUS_ADDR"

	// InitialManagerState overrides the Manager state the controller starts in.
	InitialManagerState = "PULLUP_INITIAL_MANAGER_STATE"
	// InitialManagerStateDefault is the power-on Manager state.
	InitialManagerStateDefault = "TRANSITION"

	// InitialSensorState overrides the Sensor state the controller starts in.
	InitialSensorState = "PULLUP_INITIAL_SENSOR_STATE"
	// InitialSensorStateDefault is the power-on Sensor state.
	InitialSensorStateDefault = "NOMINAL"

	// MetricsNamespace is the Prometheus namespace of all exported metrics.
	MetricsNamespace = "pullup"
)
