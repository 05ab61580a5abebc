package api

import (
	"context"
	"fmt"
	"net/http"

	"yeetbank/pkg/logger"
)

func (c *Client) Notifications(ctx context.Context) ([]Notification, error) {
	var out []Notification
	if err := c.do(ctx, call{method: http.MethodGet, path: "/notifications/"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MarkRead(ctx context.Context, id int64) error {
	return c.do(ctx, call{method: http.MethodPost, path: fmt.Sprintf("/notifications/%d/mark-read/", id)}, nil)
}

// UnreadCount asks the count endpoint and, when that fails, counts unread
// entries of the full list instead.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var out unreadCount
	err := c.do(ctx, call{method: http.MethodGet, path: "/notifications/unread-count/"}, &out)
	if err == nil {
		return out.Count, nil
	}
	logger.Debug("unread_count_fallback", "error", err)
	list, lerr := c.Notifications(ctx)
	if lerr != nil {
		return 0, lerr
	}
	n := 0
	for _, item := range list {
		if !item.Read {
			n++
		}
	}
	return n, nil
}
