package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/haukened/uidgen/internal/auth"
	"github.com/haukened/uidgen/internal/domain"
)

// handleUIDs serves GET /api/v1/uidgen?n=<count>. n defaults to 1.
func (h *Handler) handleUIDs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n := 1
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(ctx, w, http.StatusBadRequest, "parameter n must be an integer")
			return
		}
		n = v
	}
	alloc, err := h.Service.Allocate(ctx, n)
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	cid, _ := GetCorrelationID(ctx)
	cred, _ := auth.CredentialFrom(ctx)
	slog.Info("uids served", "domain", "httpx", "action", "allocate", "cid", cid, "owner", cred.Owner, "requested", n, "count", len(alloc.UIDs), "available", alloc.Available)
	writeJSON(w, http.StatusOK, Response{UIDs: alloc.UIDs, Status: "ok", Available: alloc.Available, Count: len(alloc.UIDs)})
}

// handleStatus serves GET /api/v1/uidgen/status.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Response{Status: "ok", Available: h.Service.Status()})
}

// handleInitialize reseeds from the directory and reports the refreshed
// status. A failed reseed leaves the previous state serving.
func (h *Handler) handleInitialize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cid, _ := GetCorrelationID(ctx)
	cred, _ := auth.CredentialFrom(ctx)
	available, err := h.Service.Initialize(ctx)
	if err != nil {
		slog.Error("initialize failed", "domain", "httpx", "action", "initialize", "cid", cid, "owner", cred.Owner, "err", err)
		if errors.Is(err, domain.ErrMalformedUID) || errors.Is(err, domain.ErrOutOfRange) {
			h.mapServiceError(ctx, w, err)
			return
		}
		h.writeError(ctx, w, http.StatusServiceUnavailable, "initialize failed")
		return
	}
	slog.Info("initialized", "domain", "httpx", "action", "initialize", "cid", cid, "owner", cred.Owner, "available", available)
	writeJSON(w, http.StatusOK, Response{Status: "ok", Available: available})
}
