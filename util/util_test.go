// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package util

import (
	"testing"

	"github.com/edgelesssys/pullup/controller/constants"
	"github.com/edgelesssys/pullup/controller/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetenv(t *testing.T) {
	tests := []struct {
		envname  string
		set      bool
		value    string
		fallback string
		result   string
	}{
		{"PULLUP_TEST_GETENV", true, "foo", "bar", "foo"},
		{"PULLUP_TEST_GETENV2", false, "not set", "bar", "bar"},
		{"PULLUP_TEST_GETENV3", true, "", "bar", "bar"},
	}
	for _, test := range tests {
		t.Run(test.envname, func(t *testing.T) {
			if test.set {
				t.Setenv(test.envname, test.value)
			}
			assert.Equal(t, test.result, Getenv(test.envname, test.fallback))
		})
	}
}

func TestEnvEnabled(t *testing.T) {
	assert := assert.New(t)

	t.Setenv("PULLUP_TEST_ENABLED", "1")
	assert.True(EnvEnabled("PULLUP_TEST_ENABLED", "0"))
	t.Setenv("PULLUP_TEST_ENABLED", "true")
	assert.False(EnvEnabled("PULLUP_TEST_ENABLED", "1"))
	assert.True(EnvEnabled("PULLUP_TEST_UNSET", "1"))
}

func TestNewLogger(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	log, err := NewLogger(false, false)
	require.NoError(err)
	assert.False(log.Core().Enabled(zap.DebugLevel))

	log, err = NewLogger(true, true)
	require.NoError(err)
	assert.True(log.Core().Enabled(zap.DebugLevel))
}

func TestInitialStateFromEnv(t *testing.T) {
	testCases := map[string]struct {
		manager string
		sensor  string
		want    state.Persistent
		wantErr error
	}{
		"defaults": {
			want: state.Initial(),
		},
		"standby start": {
			manager: "standby",
			want:    state.Persistent{Manager: state.ManagerStandby, Sensor: state.SensorNominal, SensorHealthy: true},
		},
		"faulted sensor is unhealthy": {
			sensor: "FAULT",
			want:   state.Persistent{Manager: state.ManagerTransition, Sensor: state.SensorFault, SensorHealthy: false},
		},
		"unknown manager state": {
			manager: "CLIMB",
			wantErr: state.ErrInvalidManagerState,
		},
		"unknown sensor state": {
			sensor:  "2",
			wantErr: state.ErrInvalidSensorState,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			t.Setenv(constants.InitialManagerState, tc.manager)
			t.Setenv(constants.InitialSensorState, tc.sensor)

			got, err := InitialStateFromEnv()
			if tc.wantErr != nil {
				assert.ErrorIs(err, tc.wantErr)
				return
			}
			assert.NoError(err)
			assert.Equal(tc.want, got)
		})
	}
}
