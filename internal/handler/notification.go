package handler

import (
	"context"
	"net/http"

	"lostfound/internal/httputil"
	"lostfound/internal/model"
)

type notificationService interface {
	Recent(ctx context.Context, viewer model.Viewer) ([]model.Notification, error)
}

type NotificationHandler struct {
	notifService notificationService
}

func NewNotificationHandler(notifService notificationService) *NotificationHandler {
	return &NotificationHandler{
		notifService: notifService,
	}
}

// List handles GET /notifications
// Recent claims and comments on the viewer's posts, newest first.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	viewer, ok := requireViewer(w, r)
	if !ok {
		return
	}

	notifications, err := h.notifService.Recent(r.Context(), viewer)
	if err != nil {
		writeDomainError(w, err, "Failed to get notifications")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, notifications)
}
