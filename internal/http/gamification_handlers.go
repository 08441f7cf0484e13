package httpx

import (
	"net/http"

	"github.com/HarpithaAakula/Dev-Collab/internal/gamify"
	"github.com/HarpithaAakula/Dev-Collab/internal/store"
	"github.com/HarpithaAakula/Dev-Collab/pkg/auth"
)

type GamificationAPI struct {
	DB *store.Postgres
}

// Leaderboard returns the top users by points.
func (a *GamificationAPI) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	page := queryInt(r, "page", 1)

	entries, err := a.DB.Leaderboard(r.Context(), limit, (page-1)*limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type entryDTO struct {
		UserID string `json:"userId"`
		Name   string `json:"name"`
		Points int    `json:"points"`
		Badges int    `json:"badges"`
	}
	out := make([]entryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryDTO{UserID: e.UserID, Name: e.Name, Points: e.Points, Badges: e.Badges})
	}
	writeJSON(w, out)
}

// Status returns the caller's points, level, badges, and counters.
func (a *GamificationAPI) Status(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.User(r.Context())
	prof, err := a.DB.GetGamificationProfile(r.Context(), id.UserID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if prof.Badges == nil {
		prof.Badges = []string{}
	}
	writeJSON(w, map[string]any{
		"points":       prof.Points,
		"level":        prof.Level,
		"badges":       prof.Badges,
		"actionCounts": prof.ActionCounts,
		"languages":    prof.Languages,
	})
}

// Badges returns the static badge catalogue.
func (a *GamificationAPI) Badges(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, gamify.Badges)
}
