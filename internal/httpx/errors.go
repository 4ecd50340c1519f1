package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/haukened/uidgen/internal/domain"
)

// Response is the JSON body of every API response. Errors carry a status of
// "ERROR: <message>" and zero counts.
type Response struct {
	UIDs      []string `json:"uids"`
	Status    string   `json:"status"`
	Available int      `json:"available"`
	Count     int      `json:"count"`
}

func writeJSON(w http.ResponseWriter, code int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes a JSON error body with given status code.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, Response{Status: "ERROR: " + msg})
	if cid, ok := GetCorrelationID(ctx); ok {
		slog.Debug("wrote error response", "cid", cid, "status", code, "msg", msg)
	}
}

// mapServiceError maps domain/service errors to HTTP responses.
func (h *Handler) mapServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	cid, _ := GetCorrelationID(ctx)
	switch {
	case errors.Is(err, domain.ErrInvalidCount):
		slog.Warn("service error", "cid", cid, "code", "invalid_count")
		h.writeError(ctx, w, http.StatusBadRequest, "n exceeds the maximum batch size")
	case errors.Is(err, domain.ErrMalformedUID), errors.Is(err, domain.ErrOutOfRange):
		slog.Error("service error", "cid", cid, "code", "directory_data", "err", err)
		h.writeError(ctx, w, http.StatusServiceUnavailable, "initialize failed: directory holds malformed uids")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		slog.Warn("service error", "cid", cid, "code", "canceled")
		h.writeError(ctx, w, http.StatusServiceUnavailable, "request canceled")
	default:
		slog.Error("unhandled service error", "cid", cid, "code", "unhandled", "err", err)
		h.writeError(ctx, w, http.StatusInternalServerError, "internal")
	}
}
