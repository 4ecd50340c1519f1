package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/haukened/uidgen/internal/app"
	"github.com/haukened/uidgen/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeService implements ServicePort over a tiny counter.
type fakeService struct {
	mu        sync.Mutex
	available int
	next      int
	allocErr  error
	initErr   error
	initAvail int
	gotN      int
	initCalls int
}

func (f *fakeService) Allocate(ctx context.Context, n int) (app.Allocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotN = n
	if f.allocErr != nil {
		return app.Allocation{}, f.allocErr
	}
	uids := []string{}
	for i := 0; i < n && f.available > 0; i++ {
		uids = append(uids, fmt.Sprintf("U%02d", f.next))
		f.next++
		f.available--
	}
	return app.Allocation{UIDs: uids, Available: f.available}, nil
}

func (f *fakeService) Status() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available
}

func (f *fakeService) Initialize(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCalls++
	if f.initErr != nil {
		return 0, f.initErr
	}
	f.available = f.initAvail
	return f.available, nil
}

type fakeResolver struct{ bySecret map[string]domain.Credential }

func newFakeResolver() *fakeResolver {
	return &fakeResolver{bySecret: map[string]domain.Credential{
		"S1": {Name: "alice", Owner: "Alice", Enabled: true},
		"S2": {Name: "bob", Owner: "Bob", Enabled: false},
	}}
}

func (f *fakeResolver) Resolve(secret string) (domain.Credential, error) {
	c, ok := f.bySecret[secret]
	if !ok || !c.Enabled {
		return domain.Credential{}, domain.ErrCredentialNotFound
	}
	return c, nil
}

type fakeRecorder struct {
	mu sync.Mutex
	m  map[string]int64
}

func (f *fakeRecorder) Inc(name string, delta int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.m == nil {
		f.m = map[string]int64{}
	}
	f.m[name] += delta
}

func (f *fakeRecorder) get(name string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.m[name]
}

func do(t *testing.T, h http.Handler, method, target, token string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var body Response
	if ct := rr.Header().Get("Content-Type"); ct == "application/json" {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	}
	return rr, body
}

func newTestRouter(svc *fakeService) http.Handler {
	return New(svc, newFakeResolver(), nil).Router()
}

func TestUIDsDefaultsToOne(t *testing.T) {
	svc := &fakeService{available: 100}
	rr, body := do(t, newTestRouter(svc), http.MethodGet, "/api/v1/uidgen", "S1")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, svc.gotN)
	assert.Equal(t, Response{UIDs: []string{"U00"}, Status: "ok", Available: 99, Count: 1}, body)
	assert.NotEmpty(t, rr.Header().Get(CorrelationIDHeader))
}

func TestUIDsBatch(t *testing.T) {
	svc := &fakeService{available: 100}
	rr, body := do(t, newTestRouter(svc), http.MethodGet, "/api/v1/uidgen?n=3", "S1")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"U00", "U01", "U02"}, body.UIDs)
	assert.Equal(t, 97, body.Available)
	assert.Equal(t, 3, body.Count)
}

func TestUIDsShortfallIsOK(t *testing.T) {
	svc := &fakeService{available: 2}
	rr, body := do(t, newTestRouter(svc), http.MethodGet, "/api/v1/uidgen?n=5", "S1")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, 0, body.Available)

	rr, body = do(t, newTestRouter(svc), http.MethodGet, "/api/v1/uidgen?n=1", "S1")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", body.Status)
	assert.Empty(t, body.UIDs)
	assert.Contains(t, rr.Body.String(), `"uids":[]`)
}

func TestUIDsBadParameter(t *testing.T) {
	svc := &fakeService{available: 10}
	rr, body := do(t, newTestRouter(svc), http.MethodGet, "/api/v1/uidgen?n=abc", "S1")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "ERROR: parameter n must be an integer", body.Status)
	assert.Nil(t, body.UIDs)
}

func TestUIDsOverLimit(t *testing.T) {
	svc := &fakeService{available: 10, allocErr: fmt.Errorf("%w: 5000", domain.ErrInvalidCount)}
	rr, body := do(t, newTestRouter(svc), http.MethodGet, "/api/v1/uidgen?n=5000", "S1")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "ERROR: n exceeds the maximum batch size", body.Status)
}

func TestUIDsUnexpectedError(t *testing.T) {
	svc := &fakeService{allocErr: errors.New("boom")}
	rr, body := do(t, newTestRouter(svc), http.MethodGet, "/api/v1/uidgen", "S1")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "ERROR: internal", body.Status)
}

func TestStatus(t *testing.T) {
	svc := &fakeService{available: 42}
	rr, body := do(t, newTestRouter(svc), http.MethodGet, "/api/v1/uidgen/status", "S1")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, Response{Status: "ok", Available: 42}, body)
	assert.Contains(t, rr.Body.String(), `"uids":null`)
}

func TestInitializeGetAndPost(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		svc := &fakeService{available: 1, initAvail: 90}
		rr, body := do(t, newTestRouter(svc), method, "/api/v1/uidgen/initialize", "S1")
		require.Equal(t, http.StatusOK, rr.Code, method)
		assert.Equal(t, Response{Status: "ok", Available: 90}, body)
		assert.Equal(t, 1, svc.initCalls)
	}
}

func TestInitializeFailureKeepsServing(t *testing.T) {
	svc := &fakeService{available: 5, initErr: errors.New("directory offline")}
	r := newTestRouter(svc)
	rr, body := do(t, r, http.MethodPost, "/api/v1/uidgen/initialize", "S1")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "ERROR: initialize failed", body.Status)

	rr, body = do(t, r, http.MethodGet, "/api/v1/uidgen/status", "S1")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 5, body.Available)
}

func TestInitializeMalformedDirectory(t *testing.T) {
	svc := &fakeService{initErr: fmt.Errorf("parse directory: %w", domain.ErrMalformedUID)}
	rr, body := do(t, newTestRouter(svc), http.MethodPost, "/api/v1/uidgen/initialize", "S1")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "ERROR: initialize failed: directory holds malformed uids", body.Status)
}

func TestRouterRequiresAuth(t *testing.T) {
	svc := &fakeService{available: 10}
	r := newTestRouter(svc)
	for _, target := range []string{"/api/v1/uidgen", "/api/v1/uidgen/status", "/api/v1/uidgen/initialize"} {
		for _, token := range []string{"", "S2", "nope"} {
			rr, body := do(t, r, http.MethodGet, target, token)
			assert.Equal(t, http.StatusUnauthorized, rr.Code, "%s token=%q", target, token)
			assert.Equal(t, "ERROR: missing or invalid bearer token", body.Status)
		}
	}
	assert.Equal(t, 10, svc.available, "rejected requests must not allocate")
	assert.Equal(t, 0, svc.initCalls)
}

func TestRouterPublicProbes(t *testing.T) {
	ready := false
	h := New(&fakeService{}, newFakeResolver(), func(context.Context) error {
		if !ready {
			return errors.New("not initialized")
		}
		return nil
	})
	r := h.Router()
	rr, _ := do(t, r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	rr, _ = do(t, r, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	ready = true
	rr, _ = do(t, r, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouterBuildInfoIsPublic(t *testing.T) {
	h := New(&fakeService{}, newFakeResolver(), nil)
	h.BuildInfo = BuildInfo{Version: "1.2.3", Commit: "abc123", BuildDate: "2026-01-02"}
	r := h.Router()

	rr, _ := do(t, r, http.MethodGet, "/api/v1/buildinfo", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var got map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, map[string]string{"version": "1.2.3", "commit": "abc123", "build_date": "2026-01-02"}, got)

	rr, _ = do(t, r, http.MethodPost, "/api/v1/buildinfo", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestRouterMetricsBehindAuth(t *testing.T) {
	h := New(&fakeService{}, newFakeResolver(), nil)
	h.Metrics = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("metrics"))
	})
	r := h.Router()
	rr, _ := do(t, r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr, _ = do(t, r, http.MethodGet, "/metrics", "S1")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "metrics", rr.Body.String())
}

func TestRouterNotFoundAndMethod(t *testing.T) {
	r := newTestRouter(&fakeService{})
	rr, body := do(t, r, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "ERROR: not found", body.Status)

	rr, _ = do(t, r, http.MethodDelete, "/healthz", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
