// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package translog provides an in-memory JSON audit log of state transitions.
package translog

import (
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mutex   sync.Mutex
	newSink zap.Sink
)

func init() {
	zap.RegisterSink("translog", func(u *url.URL) (zap.Sink, error) {
		return newSink, nil
	})
}

// Logger is a transition audit logger.
type Logger struct {
	mux sync.Mutex
	buf strings.Builder
	*zap.Logger
}

// New returns an initialized Logger.
func New() (*Logger, error) {
	config := zap.Config{
		Level:         zap.NewAtomicLevelAt(zapcore.InfoLevel),
		Development:   false,
		DisableCaller: true,
		Encoding:      "json",
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey: "transition",
			TimeKey:    "time",
			EncodeTime: zapcore.ISO8601TimeEncoder,
		},
		OutputPaths: []string{
			"translog://",
		},
	}

	logger := &Logger{}
	var err error

	mutex.Lock()
	newSink = logger
	logger.Logger, err = config.Build()
	newSink = nil
	mutex.Unlock()

	if err != nil {
		return nil, err
	}
	return logger, nil
}

// Write implements the zap.Sink interface.
func (l *Logger) Write(p []byte) (int, error) {
	l.mux.Lock()
	defer l.mux.Unlock()
	return l.buf.Write(p)
}

// String returns everything logged so far, one JSON object per line.
func (l *Logger) String() string {
	l.mux.Lock()
	defer l.mux.Unlock()
	return l.buf.String()
}

// Handler returns a http.HandlerFunc which writes the audit log as JSON lines.
func (l *Logger) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(l.String()))
	}
}

// Close implements the zap.Sink interface.
func (*Logger) Close() error { return nil }

// Sync implements the zap.Sink interface.
func (*Logger) Sync() error { return nil }
