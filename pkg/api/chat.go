package api

import (
	"context"
	"fmt"
	"net/http"
)

// Conversations lists the rooms the user takes part in.
func (c *Client) Conversations(ctx context.Context) ([]Room, error) {
	var out []Room
	if err := c.do(ctx, call{method: http.MethodGet, path: "/chat/rooms/conversations/"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) StaffUsers(ctx context.Context) ([]Participant, error) {
	var out []Participant
	if err := c.do(ctx, call{method: http.MethodGet, path: "/chat/rooms/staff_users/"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StartChatWithUser returns the room shared with userID, creating it if needed.
func (c *Client) StartChatWithUser(ctx context.Context, userID int64) (*Room, error) {
	var out Room
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/chat/rooms/start_chat_with_user/",
		body:   map[string]int64{"user_id": userID},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Messages returns the full, server-ordered message list of a room.
func (c *Client) Messages(ctx context.Context, roomID int64) ([]ChatMessage, error) {
	var out []ChatMessage
	if err := c.do(ctx, call{method: http.MethodGet, path: fmt.Sprintf("/chat/rooms/%d/messages/", roomID)}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendMessage posts text as JSON, or text plus photo as multipart. A photo
// without text is sent with the content "Photo".
func (c *Client) SendMessage(ctx context.Context, roomID int64, content string, photo *Photo) (*ChatMessage, error) {
	cl := call{method: http.MethodPost, path: fmt.Sprintf("/chat/rooms/%d/send_message/", roomID)}
	if photo != nil {
		if content == "" {
			content = "Photo"
		}
		cl.form = &form{
			fields: [][2]string{{"content", content}, {"message_type", MessageImage}},
			files:  []formFile{{field: "image", photo: *photo}},
		}
	} else {
		cl.body = map[string]string{"content": content, "message_type": MessageText}
	}
	var out ChatMessage
	if err := c.do(ctx, cl, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetTyping(ctx context.Context, roomID int64, typing bool) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		path:   fmt.Sprintf("/chat/rooms/%d/set_typing/", roomID),
		body:   typingRequest{IsTyping: typing},
	}, nil)
}

// Typing reports whether the other party in the room is typing.
func (c *Client) Typing(ctx context.Context, roomID int64) (bool, error) {
	var out TypingStatus
	if err := c.do(ctx, call{method: http.MethodGet, path: fmt.Sprintf("/chat/rooms/%d/get_typing/", roomID)}, &out); err != nil {
		return false, err
	}
	return out.IsTyping, nil
}
