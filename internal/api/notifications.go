package api

import (
	"net/http"
	"strconv"
)

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	list, err := h.svc.ListNotifications(r.Context(), UserFrom(r.Context()), unreadOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, "notifications", list)
}

func (h *Handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.UnreadCount(r.Context(), UserFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, "unread count", map[string]int{"unread": n})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.MarkRead(r.Context(), UserFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, "notification marked as read", nil)
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.MarkAllRead(r.Context(), UserFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, "notifications marked as read", map[string]int64{"marked": n})
}
