package chat

import (
	"context"
	"strconv"

	"yeetbank/pkg/api"
)

// Entry is one line of the conversation list. Pending entries name a staff
// member the user has not talked to yet; opening one creates the room.
type Entry struct {
	RoomID      int64
	Partner     api.Participant
	LastMessage string
	Unread      int
	Pending     bool
}

// Key identifies the entry: the room id, or "staff-<id>" while pending.
func (e Entry) Key() string {
	if e.Pending {
		return "staff-" + strconv.FormatInt(e.Partner.ID, 10)
	}
	return strconv.FormatInt(e.RoomID, 10)
}

func (e Entry) Title() string { return e.Partner.DisplayName() }

// Directory lists conversations for self. Staff see the user rooms they take
// part in; everyone else sees every staff member, merged with any existing
// room.
func Directory(ctx context.Context, b Backend, self api.User) ([]Entry, error) {
	rooms, err := b.Conversations(ctx)
	if err != nil {
		return nil, err
	}
	if self.IsStaff {
		out := make([]Entry, 0, len(rooms))
		for _, rm := range rooms {
			if rm.RoomType != api.RoomUserUser {
				continue
			}
			other, ok := otherParticipant(rm, self.ID)
			if !ok {
				continue
			}
			out = append(out, roomEntry(rm, other))
		}
		return out, nil
	}

	staff, err := b.StaffUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(staff))
	for _, st := range staff {
		if rm, ok := findRoom(rooms, st.ID); ok {
			out = append(out, roomEntry(rm, st))
			continue
		}
		out = append(out, Entry{Partner: st, LastMessage: "Start a conversation", Pending: true})
	}
	return out, nil
}

func roomEntry(rm api.Room, partner api.Participant) Entry {
	e := Entry{RoomID: rm.ID, Partner: partner, Unread: rm.UnreadCount, LastMessage: "No messages"}
	if rm.LastMessage != nil && rm.LastMessage.Content != "" {
		e.LastMessage = rm.LastMessage.Content
	}
	return e
}

func otherParticipant(rm api.Room, self int64) (api.Participant, bool) {
	for _, p := range rm.Participants {
		if p.ID != self {
			return p, true
		}
	}
	return api.Participant{}, false
}

func findRoom(rooms []api.Room, userID int64) (api.Room, bool) {
	for _, rm := range rooms {
		if rm.HasParticipant(userID) {
			return rm, true
		}
	}
	return api.Room{}, false
}
