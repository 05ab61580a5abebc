package demo

import (
	"strconv"
	"time"

	"github.com/valyala/fasthttp"

	"yeetbank/pkg/router"
)

func (s *Server) handleNotifications(ctx *fasthttp.RequestCtx, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.notifications[userID]
	out := make([]map[string]any, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		n := list[i]
		out = append(out, map[string]any{
			"id":         n.id,
			"title":      n.title,
			"message":    n.message,
			"tag":        n.tag,
			"read":       n.read,
			"created_at": n.createdAt.UTC().Format(time.RFC3339Nano),
		})
	}
	router.WriteJSON(ctx, fasthttp.StatusOK, out)
}

func (s *Server) handleUnreadCount(ctx *fasthttp.RequestCtx, userID int64) {
	if s.unreadCountOff.Load() {
		router.WriteJSONError(ctx, fasthttp.StatusInternalServerError, "detail", "unread count unavailable")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, item := range s.notifications[userID] {
		if !item.read {
			n++
		}
	}
	router.WriteJSON(ctx, fasthttp.StatusOK, map[string]int{"count": n})
}

func (s *Server) handleMarkRead(ctx *fasthttp.RequestCtx, userID int64) {
	id, err := strconv.ParseInt(router.Param(ctx, "id"), 10, 64)
	if err != nil {
		router.WriteJSONError(ctx, fasthttp.StatusNotFound, "detail", "Not found.")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications[userID] {
		if n.id == id {
			n.read = true
			router.WriteJSON(ctx, fasthttp.StatusOK, map[string]any{"id": n.id, "read": true})
			return
		}
	}
	router.WriteJSONError(ctx, fasthttp.StatusNotFound, "detail", "Not found.")
}

// Notify pushes a notification to a user, as a backend job would.
func (s *Server) Notify(userID int64, title, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify(userID, title, msg, "system")
}
