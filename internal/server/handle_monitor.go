package server

import (
	"context"
	"errors"
	"github.com/clambin/opendoor/internal/checker"
	"github.com/clambin/opendoor/internal/target"
	"github.com/clambin/opendoor/internal/trigger"
	"io"
	"log/slog"
	"net/http"
)

type monitorResponse struct {
	DeviceID string `json:"deviceId"`
	Running  bool   `json:"running"`
}

func handleStart(m Monitor, tgt func() target.Target, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t := tgt()
		// the loop outlives the request
		err := m.Start(context.WithoutCancel(r.Context()), t)
		switch {
		case err == nil:
			writeJSON(w, http.StatusAccepted, monitorResponse{DeviceID: t.DeviceID, Running: true})
		case errors.Is(err, checker.ErrGuardBusy):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, target.ErrNotConfigured), errors.Is(err, target.ErrInvalidTarget):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, trigger.ErrStopped):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			logger.Error("failed to start monitoring", "err", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
	}
}

func handleStop(m Monitor, tgt func() target.Target) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		t := tgt()
		if !t.Configured() {
			writeError(w, http.StatusBadRequest, target.ErrNotConfigured.Error())
			return
		}
		stopped := m.Stop(t.DeviceID)
		writeJSON(w, http.StatusOK, map[string]bool{"stopped": stopped})
	}
}

const maxPayload = 64 << 10

func handleOwnTracks(h OwnTracksHandler, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() { _ = r.Body.Close() }()
		payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayload))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err = h.Handle(r.Context(), payload); err != nil {
			if !errors.Is(err, target.ErrNotConfigured) {
				logger.Warn("failed to process owntracks message", "err", err)
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}
		// OwnTracks expects a (possibly empty) list of messages in return
		writeJSON(w, http.StatusOK, []any{})
	}
}
