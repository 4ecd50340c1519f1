package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeSnapshot struct {
	c   map[string]int64
	s   map[string]Summary
	err error
}

func (f *fakeSnapshot) Snapshot(ctx context.Context) (map[string]int64, map[string]Summary, error) {
	return f.c, f.s, f.err
}

func TestHandlerWritesSnapshot(t *testing.T) {
	f := &fakeSnapshot{c: map[string]int64{CounterUIDsAllocated: 1}, s: map[string]Summary{SummaryUIDsPerRequest: {Count: 2, Sum: 5, Min: 2, Max: 3}}}
	rw := httptest.NewRecorder()
	Handler(f, nil)(rw, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rw.Code)
	}
	if ct := rw.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var decoded struct {
		Counters  map[string]int64            `json:"counters"`
		Summaries map[string]map[string]int64 `json:"summaries"`
	}
	if err := json.Unmarshal(rw.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Counters[CounterUIDsAllocated] != 1 {
		t.Fatalf("counter mismatch")
	}
	if v := decoded.Summaries[SummaryUIDsPerRequest]; v["count"] != 2 || v["sum"] != 5 || v["min"] != 2 || v["max"] != 3 {
		t.Fatalf("summary mismatch: %+v", v)
	}
}

func TestHandlerSnapshotError(t *testing.T) {
	f := &fakeSnapshot{err: errors.New("db down")}
	rw := httptest.NewRecorder()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	Handler(f, logger)(rw, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rw.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rw.Code)
	}
	if ct := rw.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rw.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ERROR: metrics unavailable" {
		t.Fatalf("unexpected status %q", body.Status)
	}
	out := logs.String()
	if !strings.Contains(out, "domain=metrics") || !strings.Contains(out, "db down") {
		t.Fatalf("error not logged: %q", out)
	}
}

type staticGauges map[string]int64

func (g staticGauges) Gauges() map[string]int64 { return g }

func TestHandlerMergesGauges(t *testing.T) {
	f := &fakeSnapshot{c: map[string]int64{}, s: map[string]Summary{}}
	rw := httptest.NewRecorder()
	Handler(f, nil, staticGauges{"resync_cycles": 3}, staticGauges{"resync_failures": 1})(rw, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rw.Code)
	}
	var decoded struct {
		Gauges map[string]int64 `json:"gauges"`
	}
	if err := json.Unmarshal(rw.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Gauges["resync_cycles"] != 3 || decoded.Gauges["resync_failures"] != 1 {
		t.Fatalf("gauges mismatch: %+v", decoded.Gauges)
	}
}
