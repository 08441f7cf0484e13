package httpx

import (
	"errors"
	"net/http"
	"time"

	"github.com/HarpithaAakula/Dev-Collab/internal/store"
	"github.com/HarpithaAakula/Dev-Collab/pkg/auth"
)

type NotificationsAPI struct {
	DB *store.Postgres
}

type notificationDTO struct {
	ID            string    `json:"id"`
	SenderID      string    `json:"senderId,omitempty"`
	Type          string    `json:"type"`
	Message       string    `json:"message"`
	ProblemID     string    `json:"problemId,omitempty"`
	RelatedItemID string    `json:"relatedItemId,omitempty"`
	IsRead        bool      `json:"isRead"`
	CreatedAt     time.Time `json:"createdAt"`
}

// List returns a page of the caller's notifications plus unread count.
func (a *NotificationsAPI) List(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.User(r.Context())
	page := queryInt(r, "pageNumber", 1)
	const pageSize = 20

	notifs, total, unread, err := a.DB.ListNotifications(r.Context(), id.UserID, pageSize, pageSize*(page-1))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]notificationDTO, 0, len(notifs))
	for _, n := range notifs {
		out = append(out, notificationDTO{
			ID: n.ID, SenderID: n.SenderID, Type: n.Type, Message: n.Message,
			ProblemID: n.ProblemID, RelatedItemID: n.RelatedItemID,
			IsRead: n.IsRead, CreatedAt: n.CreatedAt,
		})
	}
	writeJSON(w, map[string]any{
		"notifications": out,
		"page":          page,
		"pages":         (total + pageSize - 1) / pageSize,
		"unreadCount":   unread,
	})
}

// MarkRead flags one notification read.
func (a *NotificationsAPI) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.User(r.Context())
	err := a.DB.MarkNotificationRead(r.Context(), r.PathValue("id"), id.UserID)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "notification not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"message": "notification marked as read"})
}

// MarkAllRead flags every unread notification for the caller.
func (a *NotificationsAPI) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.User(r.Context())
	if err := a.DB.MarkAllNotificationsRead(r.Context(), id.UserID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"message": "all notifications marked as read"})
}

// Delete removes one of the caller's notifications.
func (a *NotificationsAPI) Delete(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.User(r.Context())
	err := a.DB.DeleteNotification(r.Context(), r.PathValue("id"), id.UserID)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "notification not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"message": "notification removed"})
}
