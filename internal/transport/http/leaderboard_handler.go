package http

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"secaware-training-service/internal/app"
	"secaware-training-service/internal/report"
)

type LeaderboardHandler struct {
	ranker *app.Ranker
}

func NewLeaderboardHandler(ranker *app.Ranker) *LeaderboardHandler {
	return &LeaderboardHandler{ranker: ranker}
}

// Get serves GET /api/leaderboard?gameType=&limit=
func (h *LeaderboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	board, err := h.ranker.Rank(r.Context(), r.URL.Query().Get("gameType"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

type AdminHandler struct {
	analytics *app.Analytics
	now       func() time.Time
}

func NewAdminHandler(analytics *app.Analytics) *AdminHandler {
	return &AdminHandler{analytics: analytics, now: time.Now}
}

func (h *AdminHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	snap, err := h.analytics.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Export streams the snapshot as an xlsx download.
func (h *AdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	snap, err := h.analytics.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := report.WriteAnalytics(&buf, snap); err != nil {
		writeError(w, r, err)
		return
	}
	filename := fmt.Sprintf("analytics-%s.xlsx", h.now().Format("20060102"))
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
