package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/HarpithaAakula/Dev-Collab/internal/gamify"
	"github.com/HarpithaAakula/Dev-Collab/internal/store"
	"github.com/HarpithaAakula/Dev-Collab/internal/ws"
	"github.com/HarpithaAakula/Dev-Collab/pkg/auth"
)

type ProblemsAPI struct {
	DB     *store.Postgres
	Hub    *ws.Hub
	Engine *gamify.Engine
	Log    *slog.Logger
}

type createProblemReq struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Tags        string `json:"tags"` // comma-separated, matching the frontend form
}

type problemDTO struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Tags        []string      `json:"tags"`
	Status      string        `json:"status"`
	OwnerID     string        `json:"ownerId"`
	OwnerName   string        `json:"ownerName,omitempty"`
	ViewCount   int           `json:"viewCount"`
	Solutions   []solutionDTO `json:"solutions,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}

type solutionDTO struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName,omitempty"`
	Content    string    `json:"content"`
	Votes      int       `json:"votes"`
	IsAccepted bool      `json:"isAccepted"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toProblemDTO(p store.Problem) problemDTO {
	d := problemDTO{
		ID: p.ID, Title: p.Title, Description: p.Description, Tags: p.Tags,
		Status: p.Status, OwnerID: p.OwnerID, OwnerName: p.OwnerName,
		ViewCount: p.ViewCount, CreatedAt: p.CreatedAt,
	}
	for _, s := range p.Solutions {
		d.Solutions = append(d.Solutions, solutionDTO{
			ID: s.ID, AuthorID: s.AuthorID, AuthorName: s.AuthorName,
			Content: s.Content, Votes: s.Votes, IsAccepted: s.IsAccepted, CreatedAt: s.CreatedAt,
		})
	}
	return d
}

// Create handles new problem posts.
func (a *ProblemsAPI) Create(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.User(r.Context())

	var req createProblemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" || req.Description == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	var tags []string
	for _, t := range strings.Split(req.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	p, err := a.DB.CreateProblem(r.Context(), id.UserID, req.Title, req.Description, tags)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, toProblemDTO(p))
}

// List returns a page of problems, newest first.
func (a *ProblemsAPI) List(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "pageNumber", 1)
	const pageSize = 10

	problems, total, err := a.DB.ListProblems(r.Context(), pageSize, pageSize*(page-1))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]problemDTO, 0, len(problems))
	for _, p := range problems {
		out = append(out, toProblemDTO(p))
	}
	writeJSON(w, map[string]any{
		"problems": out,
		"page":     page,
		"pages":    (total + pageSize - 1) / pageSize,
		"count":    total,
	})
}

// Get returns one problem with its solutions, bumping the view count.
func (a *ProblemsAPI) Get(w http.ResponseWriter, r *http.Request) {
	p, err := a.DB.GetProblem(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "problem not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, toProblemDTO(p))
}

// Search runs a text search over title/description/tags.
func (a *ProblemsAPI) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		http.Error(w, "search query is required", http.StatusBadRequest)
		return
	}
	problems, err := a.DB.SearchProblems(r.Context(), q, 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]problemDTO, 0, len(problems))
	for _, p := range problems {
		out = append(out, toProblemDTO(p))
	}
	writeJSON(w, out)
}

// AddSolution attaches a solution, awards points, and notifies the
// problem owner.
func (a *ProblemsAPI) AddSolution(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.User(r.Context())
	problemID := r.PathValue("id")

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	s, err := a.DB.AddSolution(r.Context(), problemID, id.UserID, req.Content)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if a.Engine != nil {
		if _, err := a.Engine.Award(r.Context(), id.UserID, gamify.ActionSubmitSolution); err != nil {
			a.Log.Warn("gamify.award.solution", "user", id.UserID, "err", err)
		}
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, solutionDTO{
		ID: s.ID, AuthorID: s.AuthorID, AuthorName: id.Name,
		Content: s.Content, Votes: s.Votes, IsAccepted: s.IsAccepted, CreatedAt: s.CreatedAt,
	})
}

// Vote applies an upvote or downvote to a solution.
func (a *ProblemsAPI) Vote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VoteType string `json:"voteType"` // upvote or downvote
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	delta := 0
	switch req.VoteType {
	case "upvote":
		delta = 1
	case "downvote":
		delta = -1
	default:
		http.Error(w, "voteType must be upvote or downvote", http.StatusBadRequest)
		return
	}

	votes, err := a.DB.VoteSolution(r.Context(), r.PathValue("sid"), delta)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "solution not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"solutionId": r.PathValue("sid"), "votes": votes})
}

// Accept marks a solution accepted (problem owner only).
func (a *ProblemsAPI) Accept(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.User(r.Context())

	err := a.DB.AcceptSolution(r.Context(), r.PathValue("id"), r.PathValue("sid"), id.UserID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, store.ErrNotOwner):
		http.Error(w, "only the problem owner can accept", http.StatusForbidden)
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		writeJSON(w, map[string]any{"solutionId": r.PathValue("sid"), "isAccepted": true})
	}
}

// queryInt parses a positive int query param with a fallback
func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
