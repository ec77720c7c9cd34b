// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package scenario

import (
	"context"
	"testing"

	"github.com/edgelesssys/pullup/controller/core"
	"github.com/edgelesssys/pullup/controller/state"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const latchYAML = `
name: latch
cycles:
- inputs: {supported: true, limits: true}
  expect: {manager: NOMINAL, sensor: FAULT, sensorHealthy: false, pullup: false}
- inputs: {limits: true}
  repeat: 3
  expect: {manager: MANEUVER, pullup: true}
- inputs: {supported: true}
  expect: {manager: TRANSITION, pullup: false}
`

func TestParse(t *testing.T) {
	testCases := map[string]struct {
		data        string
		wantCycles  int
		wantInitial *state.Persistent
		wantErr     bool
	}{
		"yaml": {
			data:       latchYAML,
			wantCycles: 3,
		},
		"json": {
			data:       `{"name":"json","cycles":[{"inputs":{"standby":true}}]}`,
			wantCycles: 1,
		},
		"initial by name": {
			data: `
initial: {manager: STANDBY, sensor: NOMINAL, sensorHealthy: true}
cycles:
- inputs: {apfail: true}
`,
			wantCycles:  1,
			wantInitial: &state.Persistent{Manager: state.ManagerStandby, Sensor: state.SensorNominal, SensorHealthy: true},
		},
		"initial by number": {
			data: `
initial: {manager: 1, sensor: 2, sensorHealthy: 0}
cycles:
- inputs: {}
`,
			wantCycles:  1,
			wantInitial: &state.Persistent{Manager: state.ManagerNominal, Sensor: state.SensorFault},
		},
		"invalid initial": {
			data: `
initial: {manager: 7, sensor: 0, sensorHealthy: true}
cycles:
- inputs: {}
`,
			wantErr: true,
		},
		"unknown input": {
			data:    "cycles:\n- inputs: {turbo: true}\n",
			wantErr: true,
		},
		"unknown expectation state": {
			data:    "cycles:\n- inputs: {}\n  expect: {manager: CRUISE}\n",
			wantErr: true,
		},
		"negative repeat": {
			data:    "cycles:\n- inputs: {}\n  repeat: -1\n",
			wantErr: true,
		},
		"unknown initial field": {
			data:    "initial: {manager: NOMINAL, sensor: NOMINAL, sensorHealthy: true, cycle: 3}\ncycles:\n- inputs: {}\n",
			wantErr: true,
		},
		"repeat above limit": {
			data:    "cycles:\n- inputs: {}\n  repeat: 1000000000\n",
			wantErr: true,
		},
		"repeat at limit": {
			data:       "cycles:\n- inputs: {}\n  repeat: 100000\n",
			wantCycles: 1,
		},
		"duplicate key": {
			data:    "name: a\nname: b\ncycles:\n- inputs: {}\n",
			wantErr: true,
		},
		"no cycles": {
			data:    "name: empty\n",
			wantErr: true,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			sc, err := Parse([]byte(tc.data))
			if tc.wantErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			assert.Len(sc.Cycles, tc.wantCycles)
			assert.Equal(tc.wantInitial, sc.Initial)
		})
	}
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse([]byte("name: empty\ncycles: []\n"))
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestLoad(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	fs := afero.NewMemMapFs()
	require.NoError(afero.WriteFile(fs, "scenarios/latch.yaml", []byte(latchYAML), 0o644))

	sc, err := Load(fs, "scenarios/latch.yaml")
	require.NoError(err)
	assert.Equal("latch", sc.Name)
	assert.Equal(3, sc.Cycles[1].Repeat)
	assert.Equal(state.Inputs{Limits: true}, sc.Cycles[1].Inputs)

	_, err = Load(fs, "scenarios/missing.yaml")
	assert.Error(err)
}

func TestRun(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	sc, err := Parse([]byte(latchYAML))
	require.NoError(err)
	c, err := core.NewCore(state.Initial(), nil, nil, nil, nil)
	require.NoError(err)

	trace, err := Run(context.Background(), c, sc)
	require.NoError(err)
	assert.True(trace.Passed(), "%v", trace.Mismatches)
	assert.Equal("latch", trace.Name)
	require.Len(trace.Records, 5)
	for i, rec := range trace.Records {
		assert.EqualValues(i+1, rec.Cycle)
		if i > 0 {
			assert.Equal(trace.Records[i-1].After, rec.Before)
		}
	}
	assert.EqualValues(5, c.Cycle())
}

func TestRunMismatch(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	sc, err := Parse([]byte(`
initial: {manager: NOMINAL, sensor: NOMINAL, sensorHealthy: true}
cycles:
- inputs: {supported: true, limits: true}
  expect: {manager: MANEUVER, sensorHealthy: true, pullup: true}
`))
	require.NoError(err)
	c, err := core.NewCore(state.Initial(), nil, nil, nil, nil)
	require.NoError(err)

	trace, err := Run(context.Background(), c, sc)
	require.NoError(err)
	assert.False(trace.Passed())
	assert.Equal([]Mismatch{
		{Cycle: 1, Field: "manager", Want: "MANEUVER", Got: "NOMINAL"},
		{Cycle: 1, Field: "sensorHealthy", Want: "true", Got: "false"},
		{Cycle: 1, Field: "pullup", Want: "true", Got: "false"},
	}, trace.Mismatches)
	assert.Equal("cycle 1: manager: want MANEUVER, got NOMINAL", trace.Mismatches[0].String())
}

func TestRunCanceled(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	sc, err := Parse([]byte(latchYAML))
	require.NoError(err)
	c, err := core.NewCore(state.Initial(), nil, nil, nil, nil)
	require.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	trace, err := Run(ctx, c, sc)
	assert.ErrorIs(err, context.Canceled)
	assert.Empty(trace.Records)
}

func TestExampleScenarios(t *testing.T) {
	fs := afero.NewOsFs()
	files, err := afero.Glob(fs, "../../scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		t.Run(path, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			sc, err := Load(fs, path)
			require.NoError(err)
			c, err := core.NewCore(state.Initial(), nil, nil, nil, nil)
			require.NoError(err)

			trace, err := Run(context.Background(), c, sc)
			require.NoError(err)
			assert.True(trace.Passed(), "%v", trace.Mismatches)
		})
	}
}
