package metrics

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// SnapshotProvider abstracts Manager for testing.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (map[string]int64, map[string]Summary, error)
}

// GaugeSource reports point-in-time values kept outside the Manager, such as
// the resync loop's in-memory stats.
type GaugeSource interface {
	Gauges() map[string]int64
}

type snapshotBody struct {
	Counters  map[string]int64   `json:"counters"`
	Summaries map[string]Summary `json:"summaries"`
	Gauges    map[string]int64   `json:"gauges,omitempty"`
}

// errorBody matches the envelope of the uid API.
type errorBody struct {
	UIDs      []string `json:"uids"`
	Status    string   `json:"status"`
	Available int      `json:"available"`
	Count     int      `json:"count"`
}

// Handler returns an http.HandlerFunc that writes a JSON metrics snapshot,
// merged with the values of any gauge sources. Authentication is left to the
// router's middleware. A nil logger uses slog.Default().
func Handler(provider SnapshotProvider, logger *slog.Logger, gauges ...GaugeSource) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("domain", "metrics")
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		counters, summaries, err := provider.Snapshot(r.Context())
		if err != nil {
			log.Error("metrics snapshot failed", "action", "snapshot", "err", err)
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(errorBody{Status: "ERROR: metrics unavailable"})
			return
		}
		body := snapshotBody{Counters: counters, Summaries: summaries}
		for _, g := range gauges {
			for k, v := range g.Gauges() {
				if body.Gauges == nil {
					body.Gauges = make(map[string]int64)
				}
				body.Gauges[k] = v
			}
		}
		_ = json.NewEncoder(w).Encode(body)
	}
}
