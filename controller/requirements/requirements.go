// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package requirements checks one-cycle transition requirements of the
// controller against every combination of persistent state and inputs.
//
// A requirement is an assumption over the cycle (previous record, inputs and the
// status flags of the cycle) and an assertion over its result. Because the
// state space is small, checking is exhaustive rather than sampled.
package requirements

import (
	"fmt"
	"sort"

	"github.com/edgelesssys/pullup/controller/core"
	"github.com/edgelesssys/pullup/controller/state"
)

// Case is one (previous record, inputs) pair.
type Case struct {
	Prev   state.Persistent `json:"prev"`
	Inputs state.Inputs     `json:"inputs"`
}

func (c Case) String() string {
	return fmt.Sprintf("%s standby=%t apfail=%t supported=%t limits=%t",
		c.Prev, c.Inputs.Standby, c.Inputs.APFail, c.Inputs.Supported, c.Inputs.Limits)
}

// Requirement is a property of a single cycle.
type Requirement struct {
	ID          string
	Description string
	// Assume selects the cycles the requirement talks about. A nil Assume selects every cycle.
	Assume func(Case, core.Result) bool
	Assert func(Case, core.Result) bool
}

// Counterexample is a cycle for which the assumption held and the assertion did not.
type Counterexample struct {
	Case   Case             `json:"case"`
	Next   state.Persistent `json:"next"`
	Pullup bool             `json:"pullup"`
}

// Outcome is the result of checking one requirement.
type Outcome struct {
	ID              string           `json:"id"`
	Description     string           `json:"description"`
	Checked         int              `json:"checked"`
	Counterexamples []Counterexample `json:"counterexamples,omitempty"`
}

// Holds reports whether no counterexample was found.
func (o Outcome) Holds() bool {
	return len(o.Counterexamples) == 0
}

// Vacuous reports whether no case satisfied the assumption.
func (o Outcome) Vacuous() bool {
	return o.Checked == 0
}

// Report is the result of a check run.
type Report struct {
	Cases    int       `json:"cases"`
	Outcomes []Outcome `json:"outcomes"`
}

// OK reports whether every requirement holds.
func (r Report) OK() bool {
	for _, o := range r.Outcomes {
		if !o.Holds() {
			return false
		}
	}
	return true
}

// Violated returns the IDs of requirements with counterexamples.
func (r Report) Violated() []string {
	var ids []string
	for _, o := range r.Outcomes {
		if !o.Holds() {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// Enumerate returns every combination of Manager state, Sensor state,
// sensor health flag and inputs.
func Enumerate() []Case {
	var states []state.Persistent
	for _, m := range state.ManagerStates() {
		for _, s := range state.SensorStates() {
			for _, healthy := range []bool{true, false} {
				states = append(states, state.Persistent{Manager: m, Sensor: s, SensorHealthy: healthy})
			}
		}
	}
	return CasesFrom(states)
}

// CasesFrom pairs every given record with every input combination.
func CasesFrom(states []state.Persistent) []Case {
	inputs := state.AllInputs()
	cases := make([]Case, 0, len(states)*len(inputs))
	for _, p := range states {
		for _, in := range inputs {
			cases = append(cases, Case{Prev: p, Inputs: in})
		}
	}
	return cases
}

// Reachable returns every record reachable from initial under arbitrary input sequences, initial included.
func Reachable(initial state.Persistent) []state.Persistent {
	seen := map[state.Persistent]bool{initial: true}
	queue := []state.Persistent{initial}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		for _, in := range state.AllInputs() {
			next, _ := core.Step(p, in)
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}

	reachable := make([]state.Persistent, 0, len(seen))
	for p := range seen {
		reachable = append(reachable, p)
	}
	sort.Slice(reachable, func(i, j int) bool {
		a, b := reachable[i], reachable[j]
		if a.Manager != b.Manager {
			return a.Manager < b.Manager
		}
		if a.Sensor != b.Sensor {
			return a.Sensor < b.Sensor
		}
		return a.SensorHealthy && !b.SensorHealthy
	})
	return reachable
}

// Check evaluates every requirement on every case.
func Check(cases []Case, reqs ...Requirement) Report {
	results := make([]core.Result, len(cases))
	for i, c := range cases {
		results[i] = core.Evaluate(c.Prev, c.Inputs)
	}

	report := Report{Cases: len(cases), Outcomes: make([]Outcome, 0, len(reqs))}
	for _, req := range reqs {
		outcome := Outcome{ID: req.ID, Description: req.Description}
		for i, c := range cases {
			if req.Assume != nil && !req.Assume(c, results[i]) {
				continue
			}
			outcome.Checked++
			if !req.Assert(c, results[i]) {
				outcome.Counterexamples = append(outcome.Counterexamples, Counterexample{
					Case:   c,
					Next:   results[i].Next,
					Pullup: results[i].Pullup,
				})
			}
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}
	return report
}
