// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package events implements a log of controller mode changes.
package events

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Machine names used in transition events.
const (
	MachineManager = "manager"
	MachineSensor  = "sensor"
)

// TransitionEvent is logged when one of the two machines changes state.
type TransitionEvent struct {
	Machine string `json:"machine"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// PullupEvent is logged when the override signal changes.
type PullupEvent struct {
	Engaged bool `json:"engaged"`
}

// Event represents a single event in the event log.
type Event struct {
	Timestamp  time.Time        `json:"time"`
	RunID      string           `json:"runID"`
	Cycle      uint64           `json:"cycle"`
	Transition *TransitionEvent `json:"transition,omitempty"`
	Pullup     *PullupEvent     `json:"pullup,omitempty"`
}

// Log is a log of controller events.
type Log struct {
	mux    sync.Mutex
	runID  string
	events []Event
}

// NewLog creates a new log whose events carry runID.
func NewLog(runID string) *Log {
	return &Log{runID: runID}
}

// Transition adds a transition event to the log.
func (l *Log) Transition(cycle uint64, machine, from, to string) {
	l.append(Event{
		Cycle:      cycle,
		Transition: &TransitionEvent{Machine: machine, From: from, To: to},
	})
}

// Pullup adds a pullup event to the log.
func (l *Log) Pullup(cycle uint64, engaged bool) {
	l.append(Event{
		Cycle:  cycle,
		Pullup: &PullupEvent{Engaged: engaged},
	})
}

// Events returns a copy of all logged events.
func (l *Log) Events() []Event {
	l.mux.Lock()
	defer l.mux.Unlock()
	return append([]Event(nil), l.events...)
}

// Handler returns a http.HandlerFunc which writes the log as JSON array.
func (l *Log) Handler() http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(l.Events())
	})
}

func (l *Log) append(e Event) {
	e.Timestamp = time.Now()
	e.RunID = l.runID
	l.mux.Lock()
	l.events = append(l.events, e)
	l.mux.Unlock()
}
