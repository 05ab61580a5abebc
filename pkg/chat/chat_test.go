package chat_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/raulk/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yeetbank/pkg/api"
	"yeetbank/pkg/chat"
	"yeetbank/pkg/demo"
	"yeetbank/pkg/demo/demotest"
	"yeetbank/pkg/session"
	"yeetbank/pkg/store"
)

func signIn(t *testing.T, h *demotest.Harness, email string) (*api.Client, api.User) {
	t.Helper()
	c := h.Client()
	kv, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	s, err := session.Attach(c, kv)
	require.NoError(t, err)
	u, err := s.Login(context.Background(), email, demo.DemoPassword)
	require.NoError(t, err)
	return c, *u
}

func msgs(n int) []api.ChatMessage {
	out := make([]api.ChatMessage, n)
	for i := range out {
		out[i] = api.ChatMessage{ID: int64(i + 1), Content: "m"}
	}
	return out
}

func TestReconcileByCount(t *testing.T) {
	cases := []struct {
		name    string
		local   int
		server  int
		changed bool
	}{
		{"both empty", 0, 0, false},
		{"server grew", 2, 3, true},
		{"same length", 3, 3, false},
		{"server shrank", 3, 1, false},
		{"first load", 0, 4, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			local, server := msgs(tc.local), msgs(tc.server)
			got, changed := chat.Reconcile(local, server)
			assert.Equal(t, tc.changed, changed)
			if changed {
				assert.Equal(t, server, got)
			} else {
				assert.Equal(t, local, got)
			}
		})
	}
}

func TestReconcileDoesNotAliasServerList(t *testing.T) {
	server := msgs(2)
	got, _ := chat.Reconcile(nil, server)
	server[0].Content = "edited"
	assert.Equal(t, "m", got[0].Content)
}

type signal struct {
	typing bool
	at     time.Duration
}

type recorder struct {
	mu    sync.Mutex
	start time.Time
	clk   *clock.Mock
	got   []signal
}

func (r *recorder) record(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, signal{typing: v, at: r.clk.Now().Sub(r.start)})
}

func (r *recorder) signals() []signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]signal(nil), r.got...)
}

func TestDebounceSendsFalseAfterIdle(t *testing.T) {
	clk := clock.NewMock()
	rec := &recorder{clk: clk, start: clk.Now()}
	d := chat.NewDebouncer(clk, 2*time.Second, rec.record)

	d.Keystroke()
	clk.Add(500 * time.Millisecond)
	d.Keystroke()
	clk.Add(500 * time.Millisecond)
	d.Keystroke()
	clk.Add(1999 * time.Millisecond)
	assert.Equal(t, []signal{{typing: true, at: 0}}, rec.signals())
	assert.True(t, d.Typing())

	clk.Add(time.Millisecond)
	assert.Eventually(t, func() bool { return len(rec.signals()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []signal{{true, 0}, {false, 3 * time.Second}}, rec.signals())

	d.Keystroke()
	assert.Eventually(t, func() bool { return len(rec.signals()) == 3 }, time.Second, 5*time.Millisecond)
	assert.True(t, rec.signals()[2].typing)
}

func TestDebounceFlushAndStop(t *testing.T) {
	clk := clock.NewMock()
	rec := &recorder{clk: clk, start: clk.Now()}
	d := chat.NewDebouncer(clk, 2*time.Second, rec.record)

	d.Flush()
	assert.Equal(t, []signal{{false, 0}}, rec.signals())

	d.Keystroke()
	d.Stop()
	clk.Add(5 * time.Second)
	time.Sleep(10 * time.Millisecond)
	assert.Len(t, rec.signals(), 2)
	assert.False(t, d.Typing())
}

func TestDirectoryForUserAndStaff(t *testing.T) {
	h := demotest.Start(t, demo.Options{})
	jc, john := signIn(t, h, "john@demo.com")
	ac, admin := signIn(t, h, "admin@demo.com")
	ctx := context.Background()

	entries, err := chat.Directory(ctx, jc, john)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Pending)
	assert.Equal(t, "staff-3", entries[0].Key())
	assert.Equal(t, "ADMIN USER", entries[0].Title())

	staffView, err := chat.Directory(ctx, ac, admin)
	require.NoError(t, err)
	assert.Empty(t, staffView)

	p := chat.NewPoller(jc, chat.Options{Clock: clock.NewMock()})
	t.Cleanup(p.Close)
	roomID, err := p.Open(ctx, entries[0])
	require.NoError(t, err)
	assert.NotZero(t, roomID)

	entries, err = chat.Directory(ctx, jc, john)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Pending)
	assert.Equal(t, roomID, entries[0].RoomID)

	staffView, err = chat.Directory(ctx, ac, admin)
	require.NoError(t, err)
	require.Len(t, staffView, 1)
	assert.Equal(t, "JOHN DOE", staffView[0].Title())
}

func TestPollerPicksUpMessagesAndTyping(t *testing.T) {
	h := demotest.Start(t, demo.Options{})
	jc, _ := signIn(t, h, "john@demo.com")
	roomID := h.Server.OpenRoom(1, 3)
	h.Server.PostMessage(roomID, 3, "Hello, how can I help?")

	clk := clock.NewMock()
	p := chat.NewPoller(jc, chat.Options{Clock: clk})
	t.Cleanup(p.Close)
	require.NoError(t, p.Select(context.Background(), roomID))
	require.Len(t, p.Snapshot().Messages, 1)

	h.Server.PostMessage(roomID, 3, "Are you there?")
	h.Server.SetTyping(roomID, 3, true)
	assert.Eventually(t, func() bool {
		clk.Add(time.Second)
		s := p.Snapshot()
		return len(s.Messages) == 2 && s.PeerTyping
	}, 2*time.Second, 20*time.Millisecond)
}

func TestSendEchoesAndStopsTyping(t *testing.T) {
	h := demotest.Start(t, demo.Options{})
	jc, _ := signIn(t, h, "john@demo.com")
	roomID := h.Server.OpenRoom(1, 3)

	p := chat.NewPoller(jc, chat.Options{Clock: clock.NewMock()})
	t.Cleanup(p.Close)
	ctx := context.Background()
	require.NoError(t, p.Select(ctx, roomID))

	p.Keystroke()
	assert.Eventually(t, func() bool { return h.Server.Typing(roomID, 1) }, time.Second, 10*time.Millisecond)

	var sawEcho bool
	var mu sync.Mutex
	p.OnChange(func(s chat.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		for _, o := range s.Pending {
			if o.Content == "Need help" {
				sawEcho = true
			}
		}
	})
	msg, err := p.Send(ctx, "need help", nil)
	require.NoError(t, err)
	assert.Equal(t, "Need help", msg.Content)

	snap := p.Snapshot()
	assert.Empty(t, snap.Pending)
	require.Len(t, snap.Messages, 1)
	mu.Lock()
	assert.True(t, sawEcho)
	mu.Unlock()
	assert.Eventually(t, func() bool { return !h.Server.Typing(roomID, 1) }, time.Second, 10*time.Millisecond)

	_, err = p.Send(ctx, "   ", nil)
	var ve *api.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestSendPhoto(t *testing.T) {
	h := demotest.Start(t, demo.Options{})
	jc, _ := signIn(t, h, "john@demo.com")
	roomID := h.Server.OpenRoom(1, 3)
	p := chat.NewPoller(jc, chat.Options{Clock: clock.NewMock()})
	t.Cleanup(p.Close)
	require.NoError(t, p.Select(context.Background(), roomID))

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	staged, err := chat.StageBytes("dot.png", png)
	require.NoError(t, err)
	assert.Contains(t, staged.DataURL, "data:image/png;base64,")

	msg, err := p.Send(context.Background(), "", staged)
	require.NoError(t, err)
	assert.Equal(t, "Photo", msg.Content)
	assert.Equal(t, api.MessageImage, msg.MessageType)
	assert.Contains(t, msg.Image, "/media/chat/")
}

func TestStageRejectsNonImage(t *testing.T) {
	_, err := chat.StageBytes("notes.txt", []byte("plain text"))
	assert.ErrorIs(t, err, chat.ErrNotImage)

	_, _, err = chat.ParseDataURL("data:text/plain,hello")
	assert.Error(t, err)
	ct, data, err := chat.ParseDataURL("data:image/gif;base64,R0lG")
	require.NoError(t, err)
	assert.Equal(t, "image/gif", ct)
	assert.Equal(t, []byte("GIF"), data)
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Hello", chat.Capitalize("hello"))
	assert.Equal(t, "Élan", chat.Capitalize("élan"))
	assert.Equal(t, "", chat.Capitalize(""))
	assert.Equal(t, "123", chat.Capitalize("123"))
}

// slowBackend holds room 1's second message fetch until released.
type slowBackend struct {
	chat.Backend
	mu      sync.Mutex
	calls   map[int64]int
	entered chan struct{}
	release chan struct{}
}

func (b *slowBackend) Messages(_ context.Context, roomID int64) ([]api.ChatMessage, error) {
	b.mu.Lock()
	b.calls[roomID]++
	n := b.calls[roomID]
	b.mu.Unlock()
	if roomID == 1 && n == 2 {
		close(b.entered)
		<-b.release
		return msgs(5), nil
	}
	if roomID == 1 {
		return msgs(1), nil
	}
	return msgs(2), nil
}

func (b *slowBackend) count(roomID int64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[roomID]
}

func (b *slowBackend) Typing(context.Context, int64) (bool, error) { return false, nil }

func (b *slowBackend) SetTyping(context.Context, int64, bool) error { return nil }

func TestLateTickDoesNotOverwriteNewRoom(t *testing.T) {
	b := &slowBackend{calls: map[int64]int{}, entered: make(chan struct{}), release: make(chan struct{})}
	clk := clock.NewMock()
	p := chat.NewPoller(b, chat.Options{Clock: clk, MessageInterval: time.Hour, TypingInterval: time.Hour})
	t.Cleanup(p.Close)
	ctx := context.Background()

	require.NoError(t, p.Select(ctx, 1))
	clk.Add(time.Hour)
	<-b.entered

	require.NoError(t, p.Select(ctx, 2))
	close(b.release)
	time.Sleep(20 * time.Millisecond)

	snap := p.Snapshot()
	assert.Equal(t, int64(2), snap.RoomID)
	assert.Len(t, snap.Messages, 2)

	before := b.count(1)
	for i := 0; i < 5; i++ {
		clk.Add(time.Hour)
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, before, b.count(1), "room 1 still polled after switching")
	assert.Greater(t, b.count(2), 1)
}
