// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package server contains the read-only HTTP endpoint exposing metrics,
// events and the transition audit log of a controller.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/edgelesssys/pullup/controller/core"
	"github.com/edgelesssys/pullup/controller/events"
	"github.com/edgelesssys/pullup/controller/snapshot"
	"github.com/edgelesssys/pullup/controller/translog"
	"github.com/edgelesssys/pullup/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// CreateServeMux creates a mux serving /metrics, /events, /audit and /state.
// Endpoints whose backing value is nil are not registered.
func CreateServeMux(reg *prometheus.Registry, eventlog *events.Log, audit *translog.Logger, co *core.Core) *http.ServeMux {
	mux := http.NewServeMux()
	if reg != nil {
		mux.Handle("/metrics", promhttp.InstrumentMetricHandler(reg, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	}
	if eventlog != nil {
		mux.Handle("/events", eventlog.Handler())
	}
	if audit != nil {
		mux.Handle("/audit", audit.Handler())
	}
	if co != nil {
		mux.HandleFunc("/state", stateHandler(co))
	}
	return mux
}

func stateHandler(co *core.Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		data, err := snapshot.MarshalJSON(co.State())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

// RunPrometheusServer runs a HTTP server serving mux until ctx is done.
func RunPrometheusServer(ctx context.Context, address string, zapLogger *zap.Logger, mux http.Handler) error {
	server := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logging.NewWrapper(zapLogger),
	}

	errChan := make(chan error, 1)
	go func() {
		zapLogger.Info("Starting prometheus /metrics endpoint", zap.String("address", address))
		errChan <- server.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Warn("Shutting down prometheus endpoint", zap.Error(err))
		return err
	}
	if err := <-errChan; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
