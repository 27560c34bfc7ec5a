package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"secaware-training-service/internal/app"
	"secaware-training-service/internal/domain"
)

// GameHandler exposes the training session lifecycle.
type GameHandler struct {
	training *app.TrainingService
}

func NewGameHandler(training *app.TrainingService) *GameHandler {
	return &GameHandler{training: training}
}

type submitSessionRequest struct {
	Answers          []domain.Answer `json:"answers"`
	TimeSpentSeconds int             `json:"timeSpent"`
}

// StartSession samples items and opens a session:
// GET /api/game/{gameType}/items?category=&difficulty=&limit=
func (h *GameHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	kind, err := domain.ParseKind(chi.URLParam(r, "gameType"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	filter := domain.ItemFilter{Category: q.Get("category"), Difficulty: q.Get("difficulty")}

	view, err := h.training.Start(r.Context(), id.UserID, kind, filter, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *GameHandler) Progress(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	progress, err := h.training.Progress(r.Context(), id.UserID, chi.URLParam(r, "sessionId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *GameHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	var answer domain.Answer
	if err := decodeBody(w, r, &answer); err != nil {
		writeError(w, r, err)
		return
	}
	feedback, err := h.training.SubmitAnswer(r.Context(), id.UserID, chi.URLParam(r, "sessionId"), answer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feedback)
}

func (h *GameHandler) SubmitSession(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	var req submitSessionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := h.training.SubmitSession(r.Context(), id.UserID, chi.URLParam(r, "sessionId"), req.Answers, req.TimeSpentSeconds)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	return nil
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidRequest, key)
	}
	return n, nil
}
