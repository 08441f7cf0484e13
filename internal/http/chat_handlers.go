package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/HarpithaAakula/Dev-Collab/internal/gamify"
	"github.com/HarpithaAakula/Dev-Collab/internal/store"
	"github.com/HarpithaAakula/Dev-Collab/internal/ws"
	"github.com/HarpithaAakula/Dev-Collab/pkg/auth"
)

type ChatAPI struct {
	DB     *store.Postgres
	Hub    *ws.Hub
	Engine *gamify.Engine
	Log    *slog.Logger
}

type messageDTO struct {
	ID         string    `json:"id"`
	ProblemID  string    `json:"problemId"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Send persists a chat message over REST. The returned ID is what the
// client passes along on the websocket relay so the room sees the
// durable identifier. Also notifies the problem owner and awards chat
// points.
func (a *ChatAPI) Send(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.User(r.Context())
	problemID := r.PathValue("problemId")

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	msgID, err := a.DB.SaveChatMessage(r.Context(), problemID, id.UserID, id.Name, req.Content)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	a.notifyOwner(r, problemID, id, msgID)

	if a.Engine != nil {
		if _, err := a.Engine.Award(r.Context(), id.UserID, gamify.ActionChatMessage); err != nil {
			a.Log.Warn("gamify.award.chat", "user", id.UserID, "err", err)
		}
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, messageDTO{
		ID: msgID, ProblemID: problemID, SenderID: id.UserID,
		SenderName: id.Name, Content: req.Content, CreatedAt: time.Now().UTC(),
	})
}

// notifyOwner stores a notification for the problem owner and pushes it
// over any live connections. Messages on your own problem stay quiet.
func (a *ChatAPI) notifyOwner(r *http.Request, problemID string, sender auth.Identity, msgID string) {
	ownerID, err := a.DB.GetProblemOwner(r.Context(), problemID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			a.Log.Warn("chat.notify.owner", "problem", problemID, "err", err)
		}
		return
	}
	if ownerID == sender.UserID {
		return
	}

	n := store.Notification{
		RecipientID:   ownerID,
		SenderID:      sender.UserID,
		Type:          "new_message",
		Message:       sender.Name + " sent a message on your problem",
		ProblemID:     problemID,
		RelatedItemID: msgID,
	}
	if _, err := a.DB.CreateNotification(r.Context(), n); err != nil {
		a.Log.Warn("chat.notify.store", "problem", problemID, "err", err)
		return
	}
	if a.Hub != nil {
		a.Hub.NotifyUser(ownerID, map[string]any{
			"type":      n.Type,
			"message":   n.Message,
			"problemId": problemID,
			"messageId": msgID,
		})
	}
}

// List returns a problem's persisted chat history, oldest first.
func (a *ChatAPI) List(w http.ResponseWriter, r *http.Request) {
	msgs, err := a.DB.ListChatMessages(r.Context(), r.PathValue("problemId"), 200)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]messageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageDTO{
			ID: m.ID, ProblemID: m.ProblemID, SenderID: m.SenderID,
			SenderName: m.SenderName, Content: m.Content, CreatedAt: m.CreatedAt,
		})
	}
	writeJSON(w, out)
}
