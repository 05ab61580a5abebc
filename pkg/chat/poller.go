// Package chat emulates live messaging over the REST backend: the
// conversation directory, per-room message and typing polls, the outbound
// typing debouncer and photo staging.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/raulk/clock"

	"yeetbank/pkg/api"
	"yeetbank/pkg/logger"
	"yeetbank/pkg/metrics"
)

// ErrNoRoom is returned by Send when no conversation is selected.
var ErrNoRoom = errors.New("chat: no conversation selected")

type Backend interface {
	Conversations(ctx context.Context) ([]api.Room, error)
	StaffUsers(ctx context.Context) ([]api.Participant, error)
	StartChatWithUser(ctx context.Context, userID int64) (*api.Room, error)
	Messages(ctx context.Context, roomID int64) ([]api.ChatMessage, error)
	SendMessage(ctx context.Context, roomID int64, content string, photo *api.Photo) (*api.ChatMessage, error)
	SetTyping(ctx context.Context, roomID int64, typing bool) error
	Typing(ctx context.Context, roomID int64) (bool, error)
}

type Options struct {
	Clock           clock.Clock
	MessageInterval time.Duration
	TypingInterval  time.Duration
	TypingIdle      time.Duration
}

func (o *Options) defaults() {
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.MessageInterval <= 0 {
		o.MessageInterval = time.Second
	}
	if o.TypingInterval <= 0 {
		o.TypingInterval = time.Second
	}
	if o.TypingIdle <= 0 {
		o.TypingIdle = 2 * time.Second
	}
}

// Outgoing is a locally echoed message still waiting for the server.
type Outgoing struct {
	Content string
	Preview string
	id      uint64
}

// Snapshot is the selected room as the user should see it.
type Snapshot struct {
	RoomID     int64
	Messages   []api.ChatMessage
	Pending    []Outgoing
	PeerTyping bool
}

// Poller keeps one conversation in sync. Selecting another room tears down
// the previous room's loops and idle timer; ticks that complete for a room
// that is no longer selected are discarded.
type Poller struct {
	backend Backend
	opts    Options

	selectMu sync.Mutex
	wg       sync.WaitGroup

	mu         sync.Mutex
	room       int64
	gen        uint64
	messages   []api.ChatMessage
	pending    []Outgoing
	echoSeq    uint64
	peerTyping bool
	cancel     context.CancelFunc
	typing     *Debouncer
	observers  []func(Snapshot)
}

func NewPoller(backend Backend, opts Options) *Poller {
	opts.defaults()
	return &Poller{backend: backend, opts: opts}
}

// OnChange registers fn to run after every visible state change.
func (p *Poller) OnChange(fn func(Snapshot)) {
	p.mu.Lock()
	p.observers = append(p.observers, fn)
	p.mu.Unlock()
}

func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Poller) snapshotLocked() Snapshot {
	return Snapshot{
		RoomID:     p.room,
		Messages:   append([]api.ChatMessage(nil), p.messages...),
		Pending:    append([]Outgoing(nil), p.pending...),
		PeerTyping: p.peerTyping,
	}
}

// Open selects the room behind a directory entry, creating it first when the
// entry is pending.
func (p *Poller) Open(ctx context.Context, e Entry) (int64, error) {
	roomID := e.RoomID
	if e.Pending {
		rm, err := p.backend.StartChatWithUser(ctx, e.Partner.ID)
		if err != nil {
			return 0, err
		}
		roomID = rm.ID
	}
	return roomID, p.Select(ctx, roomID)
}

// Select stops polling the current room, loads roomID once and starts the
// message and typing polls. The loops run until ctx ends, another room is
// selected, or Close is called.
func (p *Poller) Select(ctx context.Context, roomID int64) error {
	p.selectMu.Lock()
	defer p.selectMu.Unlock()

	p.teardown()
	msgs, err := p.backend.Messages(ctx, roomID)
	if err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	signals := make(chan bool, 8)
	deb := NewDebouncer(p.opts.Clock, p.opts.TypingIdle, func(v bool) {
		select {
		case signals <- v:
		default:
			logger.Warn("typing_signal_dropped", "room", roomID, "typing", v)
		}
	})
	msgTicker := p.opts.Clock.Ticker(p.opts.MessageInterval)
	typTicker := p.opts.Clock.Ticker(p.opts.TypingInterval)

	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.room = roomID
	p.messages = msgs
	p.pending = nil
	p.peerTyping = false
	p.cancel = cancel
	p.typing = deb
	snap := p.snapshotLocked()
	fns := p.observersLocked()
	p.mu.Unlock()
	notify(fns, snap)

	p.wg.Add(3)
	go p.loop(loopCtx, msgTicker, func(c context.Context) { p.pollMessages(c, gen, roomID) })
	go p.loop(loopCtx, typTicker, func(c context.Context) { p.pollTyping(c, gen, roomID) })
	go p.signalLoop(loopCtx, roomID, signals)
	logger.Debug("chat_room_selected", "room", roomID, "messages", len(msgs))
	return nil
}

// Close stops all loops and waits for them to exit.
func (p *Poller) Close() {
	p.selectMu.Lock()
	p.teardown()
	p.selectMu.Unlock()
	p.wg.Wait()
}

func (p *Poller) teardown() {
	p.mu.Lock()
	cancel, deb := p.cancel, p.typing
	p.cancel, p.typing = nil, nil
	p.gen++
	p.room = 0
	p.messages = nil
	p.pending = nil
	p.peerTyping = false
	p.mu.Unlock()
	if deb != nil {
		deb.Stop()
	}
	if cancel != nil {
		cancel()
	}
}

func (p *Poller) loop(ctx context.Context, t *clock.Ticker, tick func(context.Context)) {
	defer p.wg.Done()
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			tick(ctx)
		}
	}
}

func (p *Poller) signalLoop(ctx context.Context, roomID int64, signals <-chan bool) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case v := <-signals:
			if err := p.backend.SetTyping(ctx, roomID, v); err != nil && ctx.Err() == nil {
				logger.Warn("typing_signal_failed", "room", roomID, "error", err)
			}
		}
	}
}

func (p *Poller) pollMessages(ctx context.Context, gen uint64, roomID int64) {
	msgs, err := p.backend.Messages(ctx, roomID)
	if err != nil {
		if ctx.Err() == nil {
			metrics.ChatPolls.WithLabelValues("messages", "error").Inc()
			logger.Warn("chat_poll_failed", "loop", "messages", "room", roomID, "error", err)
		}
		return
	}
	p.mu.Lock()
	if gen != p.gen || roomID != p.room {
		p.mu.Unlock()
		metrics.ChatPolls.WithLabelValues("messages", "stale").Inc()
		return
	}
	next, changed := Reconcile(p.messages, msgs)
	if !changed {
		p.mu.Unlock()
		metrics.ChatPolls.WithLabelValues("messages", "unchanged").Inc()
		return
	}
	p.messages = next
	snap := p.snapshotLocked()
	fns := p.observersLocked()
	p.mu.Unlock()
	metrics.ChatPolls.WithLabelValues("messages", "updated").Inc()
	notify(fns, snap)
}

func (p *Poller) pollTyping(ctx context.Context, gen uint64, roomID int64) {
	typing, err := p.backend.Typing(ctx, roomID)
	if err != nil {
		if ctx.Err() == nil {
			metrics.ChatPolls.WithLabelValues("typing", "error").Inc()
			logger.Warn("chat_poll_failed", "loop", "typing", "room", roomID, "error", err)
		}
		return
	}
	p.mu.Lock()
	if gen != p.gen || roomID != p.room {
		p.mu.Unlock()
		metrics.ChatPolls.WithLabelValues("typing", "stale").Inc()
		return
	}
	metrics.ChatPolls.WithLabelValues("typing", "ok").Inc()
	if typing == p.peerTyping {
		p.mu.Unlock()
		return
	}
	p.peerTyping = typing
	snap := p.snapshotLocked()
	fns := p.observersLocked()
	p.mu.Unlock()
	notify(fns, snap)
}

// Reconcile applies a server message list to the local one. The local list
// is replaced, by a copy of server, only when server is strictly longer.
func Reconcile(local, server []api.ChatMessage) ([]api.ChatMessage, bool) {
	if len(server) <= len(local) {
		return local, false
	}
	return append([]api.ChatMessage(nil), server...), true
}

// Keystroke feeds the composer's typing debouncer for the selected room.
func (p *Poller) Keystroke() {
	p.mu.Lock()
	deb := p.typing
	p.mu.Unlock()
	if deb != nil {
		deb.Keystroke()
	}
}

// Send posts text and an optional staged photo to the selected room. The
// message is echoed locally until the server answers.
func (p *Poller) Send(ctx context.Context, text string, photo *Staged) (*api.ChatMessage, error) {
	content := Capitalize(strings.TrimSpace(text))
	if content == "" && photo == nil {
		return nil, api.Invalid("message", "Message is empty")
	}
	var upload *api.Photo
	if photo != nil {
		var err error
		if upload, err = photo.Photo(); err != nil {
			return nil, err
		}
	}

	p.mu.Lock()
	if p.room == 0 {
		p.mu.Unlock()
		return nil, ErrNoRoom
	}
	roomID, gen, deb := p.room, p.gen, p.typing
	p.echoSeq++
	echo := Outgoing{Content: content, id: p.echoSeq}
	if echo.Content == "" {
		echo.Content = "Photo"
	}
	if photo != nil {
		echo.Preview = photo.DataURL
	}
	p.pending = append(p.pending, echo)
	snap := p.snapshotLocked()
	fns := p.observersLocked()
	p.mu.Unlock()
	notify(fns, snap)

	if deb != nil {
		deb.Flush()
	}
	msg, err := p.backend.SendMessage(ctx, roomID, content, upload)

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return msg, err
	}
	p.dropEcho(echo.id)
	if err == nil && !containsMessage(p.messages, msg.ID) {
		p.messages = append(p.messages, *msg)
	}
	snap = p.snapshotLocked()
	fns = p.observersLocked()
	p.mu.Unlock()
	notify(fns, snap)
	if err != nil {
		logger.Warn("chat_send_failed", "room", roomID, "error", err)
		return nil, err
	}
	return msg, nil
}

func (p *Poller) dropEcho(id uint64) {
	for i, e := range p.pending {
		if e.id == id {
			p.pending = append(p.pending[:i], p.pending[i+1:]...)
			return
		}
	}
}

func containsMessage(msgs []api.ChatMessage, id int64) bool {
	for _, m := range msgs {
		if m.ID == id {
			return true
		}
	}
	return false
}

func (p *Poller) observersLocked() []func(Snapshot) {
	return append([]func(Snapshot){}, p.observers...)
}

func notify(fns []func(Snapshot), snap Snapshot) {
	for _, fn := range fns {
		fn(snap)
	}
}

// Capitalize upper-cases the first letter of s.
func Capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}
