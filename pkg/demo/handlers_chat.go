package demo

import (
	"io"
	"mime"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"yeetbank/pkg/router"
)

func (s *Server) participantJSON(id int64) map[string]any {
	a := s.accounts[id]
	if a == nil {
		return map[string]any{"id": id}
	}
	return map[string]any{
		"id":         a.ID,
		"username":   a.Email,
		"first_name": a.FirstName,
		"last_name":  a.LastName,
		"is_staff":   a.IsStaff,
	}
}

func (s *Server) messageJSON(m *message) map[string]any {
	out := map[string]any{
		"id":           m.id,
		"content":      m.content,
		"message_type": m.messageType,
		"sender":       s.participantJSON(m.senderID),
		"created_at":   m.createdAt.UTC().Format(time.RFC3339Nano),
	}
	if m.image != "" {
		out["image"] = m.image
	}
	return out
}

func (s *Server) roomJSON(rm *room) map[string]any {
	parts := make([]map[string]any, 0, len(rm.members))
	for _, id := range rm.members {
		parts = append(parts, s.participantJSON(id))
	}
	out := map[string]any{
		"id":           rm.id,
		"room_type":    rm.roomType,
		"participants": parts,
		"unread_count": 0,
		"updated_at":   rm.updatedAt.UTC().Format(time.RFC3339Nano),
	}
	if n := len(rm.messages); n > 0 {
		out["last_message"] = s.messageJSON(rm.messages[n-1])
	}
	return out
}

func (rm *room) has(id int64) bool {
	for _, m := range rm.members {
		if m == id {
			return true
		}
	}
	return false
}

// roomBetween finds or creates the room shared by a and b. Called with s.mu held.
func (s *Server) roomBetween(a, b int64) *room {
	for _, rm := range s.rooms {
		if len(rm.members) == 2 && rm.has(a) && rm.has(b) {
			return rm
		}
	}
	rm := &room{
		id:        s.id(),
		roomType:  "USER_USER",
		members:   []int64{a, b},
		updatedAt: s.clock.Now(),
		typing:    make(map[int64]time.Time),
	}
	s.rooms[rm.id] = rm
	return rm
}

func (s *Server) appendMessage(rm *room, sender int64, content, image, kind string) *message {
	m := &message{id: s.id(), senderID: sender, content: content, image: image, messageType: kind, createdAt: s.clock.Now()}
	rm.messages = append(rm.messages, m)
	rm.updatedAt = m.createdAt
	delete(rm.typing, sender)
	return m
}

func (s *Server) setTyping(rm *room, userID int64, typing bool) {
	if typing {
		rm.typing[userID] = s.clock.Now().Add(typingTTL)
		return
	}
	delete(rm.typing, userID)
}

// memberRoom loads the {room} parameter and checks membership. Called with s.mu held.
func (s *Server) memberRoom(ctx *fasthttp.RequestCtx, userID int64) *room {
	id, err := strconv.ParseInt(router.Param(ctx, "room"), 10, 64)
	if err != nil {
		router.WriteJSONError(ctx, fasthttp.StatusNotFound, "detail", "Not found.")
		return nil
	}
	rm := s.rooms[id]
	if rm == nil || !rm.has(userID) {
		router.WriteJSONError(ctx, fasthttp.StatusNotFound, "detail", "Not found.")
		return nil
	}
	return rm
}

func (s *Server) handleConversations(ctx *fasthttp.RequestCtx, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0)
	for _, rm := range s.sortedRooms() {
		if rm.has(userID) {
			out = append(out, s.roomJSON(rm))
		}
	}
	router.WriteJSON(ctx, fasthttp.StatusOK, out)
}

func (s *Server) sortedRooms() []*room {
	out := make([]*room, 0, len(s.rooms))
	for _, rm := range s.rooms {
		out = append(out, rm)
	}
	// most recent activity first, id as tiebreak
	sort.Slice(out, func(i, j int) bool {
		if !out[i].updatedAt.Equal(out[j].updatedAt) {
			return out[i].updatedAt.After(out[j].updatedAt)
		}
		return out[i].id < out[j].id
	})
	return out
}

func (s *Server) handleStaffUsers(ctx *fasthttp.RequestCtx, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0)
	for _, id := range s.order {
		if a := s.accounts[id]; a.IsStaff && a.ID != userID {
			out = append(out, s.participantJSON(a.ID))
		}
	}
	router.WriteJSON(ctx, fasthttp.StatusOK, out)
}

func (s *Server) handleStartChat(ctx *fasthttp.RequestCtx, userID int64) {
	var req struct {
		UserID int64 `json:"user_id"`
	}
	if err := router.ReadJSON(ctx, &req); err != nil || req.UserID == 0 {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "error", "user_id is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accounts[req.UserID] == nil || req.UserID == userID {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "error", "Invalid chat partner")
		return
	}
	router.WriteJSON(ctx, fasthttp.StatusOK, s.roomJSON(s.roomBetween(userID, req.UserID)))
}

func (s *Server) handleMessages(ctx *fasthttp.RequestCtx, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rm := s.memberRoom(ctx, userID)
	if rm == nil {
		return
	}
	out := make([]map[string]any, 0, len(rm.messages))
	for _, m := range rm.messages {
		out = append(out, s.messageJSON(m))
	}
	router.WriteJSON(ctx, fasthttp.StatusOK, out)
}

func (s *Server) handleSendMessage(ctx *fasthttp.RequestCtx, userID int64) {
	var content, kind, image string
	var data []byte
	if strings.HasPrefix(string(ctx.Request.Header.ContentType()), "multipart/form-data") {
		form, err := ctx.MultipartForm()
		if err != nil {
			router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "error", "Malformed upload")
			return
		}
		if v := form.Value["content"]; len(v) > 0 {
			content = v[0]
		}
		if v := form.Value["message_type"]; len(v) > 0 {
			kind = v[0]
		}
		if files := form.File["image"]; len(files) > 0 {
			fh := files[0]
			f, err := fh.Open()
			if err != nil {
				router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "error", "Unreadable image")
				return
			}
			data, err = io.ReadAll(f)
			f.Close()
			if err != nil {
				router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "error", "Unreadable image")
				return
			}
			ext := path.Ext(fh.Filename)
			if ext == "" {
				if exts, _ := mime.ExtensionsByType(fh.Header.Get("Content-Type")); len(exts) > 0 {
					ext = exts[0]
				}
			}
			image = "/media/chat/" + uuid.NewString() + ext
		}
	} else {
		var req struct {
			Content     string `json:"content"`
			MessageType string `json:"message_type"`
		}
		if err := router.ReadJSON(ctx, &req); err != nil {
			router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "error", "Malformed request body")
			return
		}
		content, kind = req.Content, req.MessageType
	}
	content = strings.TrimSpace(content)
	if content == "" && image == "" {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "error", "Message content is required")
		return
	}
	if !utf8.ValidString(content) {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "error", "Message content must be UTF-8")
		return
	}
	if kind == "" {
		kind = "TEXT"
		if image != "" {
			kind = "IMAGE"
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rm := s.memberRoom(ctx, userID)
	if rm == nil {
		return
	}
	if image != "" {
		s.media[path.Base(image)] = data
	}
	m := s.appendMessage(rm, userID, content, image, kind)
	router.WriteJSON(ctx, fasthttp.StatusCreated, s.messageJSON(m))
}

func (s *Server) handleSetTyping(ctx *fasthttp.RequestCtx, userID int64) {
	var req struct {
		IsTyping bool `json:"is_typing"`
	}
	if err := router.ReadJSON(ctx, &req); err != nil {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "error", "Malformed request body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rm := s.memberRoom(ctx, userID)
	if rm == nil {
		return
	}
	s.setTyping(rm, userID, req.IsTyping)
	router.WriteJSON(ctx, fasthttp.StatusOK, map[string]bool{"is_typing": req.IsTyping})
}

// handleGetTyping reports whether anyone other than the caller is typing.
func (s *Server) handleGetTyping(ctx *fasthttp.RequestCtx, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rm := s.memberRoom(ctx, userID)
	if rm == nil {
		return
	}
	now := s.clock.Now()
	typing := false
	for uid, until := range rm.typing {
		if uid != userID && !now.After(until) {
			typing = true
			break
		}
	}
	router.WriteJSON(ctx, fasthttp.StatusOK, map[string]bool{"is_typing": typing})
}

func (s *Server) handleMedia(ctx *fasthttp.RequestCtx) {
	name := router.Param(ctx, "name")
	s.mu.Lock()
	data, ok := s.media[name]
	s.mu.Unlock()
	if !ok {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		return
	}
	ctype := mime.TypeByExtension(path.Ext(name))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	ctx.SetContentType(ctype)
	ctx.SetBody(data)
}
