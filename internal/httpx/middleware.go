package httpx

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/haukened/uidgen/internal/auth"
	"github.com/haukened/uidgen/internal/metrics"
)

// secureHeaders middleware adds standard security & cache control headers.
// Responses are JSON only, so the CSP denies everything.
func (h *Handler) secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'")
		next.ServeHTTP(w, r)
	})
}

// requireBearer resolves the Authorization bearer secret to an enabled
// credential and stores it in the request context. Missing, unknown and
// disabled credentials all yield the same 401.
func (h *Handler) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		cid, _ := GetCorrelationID(ctx)
		secret, ok := bearerToken(r)
		if ok && h.Resolver != nil {
			if cred, err := h.Resolver.Resolve(secret); err == nil {
				next.ServeHTTP(w, r.WithContext(auth.WithCredential(ctx, cred)))
				return
			}
		}
		if h.Recorder != nil {
			h.Recorder.Inc(metrics.CounterAuthRejected, 1)
		}
		slog.Warn("rejected request", "domain", "httpx", "action", "auth", "cid", cid, "path", r.URL.Path, "bearer_present", ok)
		w.Header().Set("WWW-Authenticate", `Bearer realm="uidgen"`)
		h.writeError(ctx, w, http.StatusUnauthorized, "missing or invalid bearer token")
	})
}

// bearerToken extracts the secret of an "Authorization: Bearer <secret>" header.
func bearerToken(r *http.Request) (string, bool) {
	hdr := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(hdr, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
