package httpapi

import (
	"net/http"
	"strconv"

	"github.com/Overland-East-Bay/idem-ops-api/internal/app/idem"
)

// StatsReader is the slice of the idempotency service the stats endpoint needs.
type StatsReader interface {
	Stats() idem.Stats
}

type snapshotJSON struct {
	Present int64 `json:"present"`
	Unique  int64 `json:"unique"`
	Dupes   int64 `json:"dupes"`
	// DupePercentage is rendered with one decimal place, e.g. "66.7".
	DupePercentage string `json:"dupePercentage"`
}

type statsData struct {
	Window5m    snapshotJSON `json:"window5m"`
	Window60m   snapshotJSON `json:"window60m"`
	TrackedKeys int          `json:"trackedKeys"`
}

type statsResponse struct {
	Success bool      `json:"success"`
	Data    statsData `json:"data"`
}

func toSnapshotJSON(s idem.Snapshot) snapshotJSON {
	return snapshotJSON{
		Present:        s.Present,
		Unique:         s.Unique,
		Dupes:          s.Dupes,
		DupePercentage: strconv.FormatFloat(s.DupePercentage, 'f', 1, 64),
	}
}

// GET /api/ops/idem/stats
func handleStats(sr StatsReader) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		st := sr.Stats()
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, statsResponse{
			Success: true,
			Data: statsData{
				Window5m:    toSnapshotJSON(st.Window5m),
				Window60m:   toSnapshotJSON(st.Window60m),
				TrackedKeys: st.TrackedKeys,
			},
		})
	}
}

// POST /api/ops/idem/test
//
// The guard middleware in front of this handler does all the work; the handler itself only
// completes the request.
func handleGuardTest(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
