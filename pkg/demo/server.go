// Package demo is an in-memory implementation of the banking REST backend.
// It backs the yeetbank-demo binary and doubles as the fake remote in tests.
package demo

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/raulk/clock"
	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"

	"yeetbank/pkg/logger"
	"yeetbank/pkg/metrics"
	"yeetbank/pkg/router"
)

const typingTTL = 5 * time.Second

// Options configures a Server. Zero values take the demo defaults.
type Options struct {
	Accounts    []Account
	Clock       clock.Clock
	RateRPS     float64
	RateBurst   int
	ExternalFee decimal.Decimal
	WireFee     decimal.Decimal
}

type session struct {
	userID  int64
	refresh string
}

type room struct {
	id        int64
	roomType  string
	members   []int64
	messages  []*message
	updatedAt time.Time
	typing    map[int64]time.Time // user -> typing until
}

type message struct {
	id          int64
	senderID    int64
	content     string
	image       string
	messageType string
	createdAt   time.Time
}

type transaction struct {
	id          int64
	reference   string
	kind        string
	amount      decimal.Decimal
	fee         decimal.Decimal
	status      string
	description string
	sender      string
	recipient   string
	ownerID     int64
	createdAt   time.Time
}

type report struct {
	id          int64
	ownerID     int64
	transaction int64
	reason      string
	description string
	createdAt   time.Time
}

type notification struct {
	id        int64
	title     string
	message   string
	tag       string
	read      bool
	createdAt time.Time
}

// cachedReply is filled in once done is closed.
type cachedReply struct {
	done   chan struct{}
	status int
	body   []byte
}

// Server holds all demo state behind one mutex.
type Server struct {
	clock       clock.Clock
	limiter     *limiterPool
	externalFee decimal.Decimal
	wireFee     decimal.Decimal

	mu            sync.Mutex
	accounts      map[int64]*Account
	order         []int64
	access        map[string]int64
	refresh       map[string]int64
	rooms         map[int64]*room
	transactions  []*transaction
	reports       []*report
	notifications map[int64][]*notification
	media         map[string][]byte
	idem          map[string]*cachedReply
	nextID        int64

	refreshCalls   atomic.Int64
	refreshDelay   atomic.Int64
	unreadCountOff atomic.Bool
}

// New builds a Server seeded with opts.Accounts, or the default demo
// accounts when none are given.
func New(opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.RateRPS <= 0 {
		opts.RateRPS = 5
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 10
	}
	if opts.ExternalFee.IsZero() {
		opts.ExternalFee = decimal.RequireFromString("1.00")
	}
	if opts.WireFee.IsZero() {
		opts.WireFee = decimal.RequireFromString("15.00")
	}
	if len(opts.Accounts) == 0 {
		opts.Accounts = DefaultAccounts()
	}
	s := &Server{
		clock:         opts.Clock,
		limiter:       newLimiterPool(opts.RateRPS, opts.RateBurst, opts.Clock),
		externalFee:   opts.ExternalFee,
		wireFee:       opts.WireFee,
		accounts:      make(map[int64]*Account),
		access:        make(map[string]int64),
		refresh:       make(map[string]int64),
		rooms:         make(map[int64]*room),
		notifications: make(map[int64][]*notification),
		media:         make(map[string][]byte),
		idem:          make(map[string]*cachedReply),
		nextID:        100,
	}
	for i := range opts.Accounts {
		a := opts.Accounts[i]
		s.accounts[a.ID] = &a
		s.order = append(s.order, a.ID)
		if a.ID >= s.nextID {
			s.nextID = a.ID + 1
		}
		s.notify(a.ID, "Welcome to Yeet Bank", "Your account "+a.AccountNumber+" is ready.", "welcome")
	}
	return s
}

// Handler returns the routed handler, mounted under /api like the real backend.
func (s *Server) Handler() fasthttp.RequestHandler {
	r := router.New()
	r.Use(s.observe)

	r.POST("/api/auth/login/", s.handleLogin)
	r.POST("/api/auth/register/", s.handleRegister)
	r.POST("/api/auth/token/refresh/", s.handleRefresh)
	r.POST("/api/auth/logout/", s.authed(s.handleLogout))

	r.GET("/api/user/profile/", s.authed(s.handleProfile))
	r.PUT("/api/user/profile/", s.authed(s.handleUpdateProfile))
	r.POST("/api/user/change-pin/", s.authed(s.handleChangePIN))
	r.PUT("/api/user/change-password/", s.authed(s.handleChangePassword))

	r.POST("/api/transfers/validate-receiver/", s.authed(s.handleValidateReceiver))
	r.POST("/api/transactions/api/yeet_transfer/", s.authed(s.idempotent(s.handleYeetTransfer)))
	r.POST("/api/transactions/api/wire_transfer/", s.authed(s.idempotent(s.handleWireTransfer)))
	r.GET("/api/transactions/api/my_transactions/", s.authed(s.handleTransactions))
	r.GET("/api/transactions/api/account_summary/", s.authed(s.handleAccountSummary))
	r.POST("/api/transactions/api/reports/create/", s.authed(s.handleCreateReport))
	r.GET("/api/transactions/api/reports/", s.authed(s.handleReports))

	r.GET("/api/chat/rooms/conversations/", s.authed(s.handleConversations))
	r.GET("/api/chat/rooms/staff_users/", s.authed(s.handleStaffUsers))
	r.POST("/api/chat/rooms/start_chat_with_user/", s.authed(s.handleStartChat))
	r.GET("/api/chat/rooms/{room}/messages/", s.authed(s.handleMessages))
	r.POST("/api/chat/rooms/{room}/send_message/", s.authed(s.handleSendMessage))
	r.POST("/api/chat/rooms/{room}/set_typing/", s.authed(s.handleSetTyping))
	r.GET("/api/chat/rooms/{room}/get_typing/", s.authed(s.handleGetTyping))
	r.GET("/media/chat/{name}", s.handleMedia)

	r.GET("/api/notifications/", s.authed(s.handleNotifications))
	r.GET("/api/notifications/unread-count/", s.authed(s.handleUnreadCount))
	r.POST("/api/notifications/{id}/mark-read/", s.authed(s.handleMarkRead))

	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		router.WriteJSON(ctx, fasthttp.StatusOK, map[string]string{"status": "ok"})
	})
	r.GET("/metrics", metrics.Handler())
	r.NotFound(func(ctx *fasthttp.RequestCtx) {
		router.WriteJSONError(ctx, fasthttp.StatusNotFound, "detail", "Not found.")
	})
	return r.Handler()
}

// Run sweeps idle login limiters and expired typing flags until ctx ends.
func (s *Server) Run(ctx context.Context) {
	t := s.clock.Ticker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.limiter.sweep()
			s.sweepTyping()
		}
	}
}

func (s *Server) observe(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		logger.LogRequestFast(ctx)
		next(ctx)
		metrics.DemoRequests.WithLabelValues(string(ctx.Method()), metrics.StatusClass(ctx.Response.StatusCode())).Inc()
	}
}

type authedHandler func(ctx *fasthttp.RequestCtx, userID int64)

// authed resolves the bearer token to a user or answers 401.
func (s *Server) authed(h authedHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		raw := string(ctx.Request.Header.Peek("Authorization"))
		token, ok := strings.CutPrefix(raw, "Bearer ")
		if !ok || token == "" {
			router.WriteJSONError(ctx, fasthttp.StatusUnauthorized, "detail", "Authentication credentials were not provided.")
			return
		}
		s.mu.Lock()
		id, ok := s.access[token]
		s.mu.Unlock()
		if !ok {
			router.WriteJSONError(ctx, fasthttp.StatusUnauthorized, "detail", "Given token not valid for any token type")
			return
		}
		h(ctx, id)
	}
}

// idempotent replays the stored reply for a repeated Idempotency-Key. Keys
// are scoped per user and path; a request that arrives while the first one
// is still running waits for its reply.
func (s *Server) idempotent(h authedHandler) authedHandler {
	return func(ctx *fasthttp.RequestCtx, userID int64) {
		key := string(ctx.Request.Header.Peek("Idempotency-Key"))
		if key == "" {
			h(ctx, userID)
			return
		}
		scoped := itoa(userID) + "|" + string(ctx.Path()) + "|" + key
		s.mu.Lock()
		prev, seen := s.idem[scoped]
		if !seen {
			prev = &cachedReply{done: make(chan struct{})}
			s.idem[scoped] = prev
		}
		s.mu.Unlock()
		if seen {
			<-prev.done
			ctx.SetStatusCode(prev.status)
			ctx.SetContentType("application/json")
			ctx.SetBody(prev.body)
			return
		}
		defer close(prev.done)
		h(ctx, userID)
		prev.status = ctx.Response.StatusCode()
		prev.body = append([]byte(nil), ctx.Response.Body()...)
	}
}

func (s *Server) issueTokens(userID int64) (string, string) {
	access := "mock_access_token_" + itoa(userID) + "_" + uuid.NewString()
	refresh := "mock_refresh_token_" + itoa(userID) + "_" + uuid.NewString()
	s.access[access] = userID
	s.refresh[refresh] = userID
	return access, refresh
}

func (s *Server) id() int64 {
	s.nextID++
	return s.nextID
}

// notify must be called with s.mu held (or during construction).
func (s *Server) notify(userID int64, title, msg, tag string) {
	s.notifications[userID] = append(s.notifications[userID], &notification{
		id: s.id(), title: title, message: msg, tag: tag, createdAt: s.clock.Now(),
	})
}

func (s *Server) byAccountNumber(acct string) *Account {
	for _, id := range s.order {
		if a := s.accounts[id]; a.AccountNumber == acct {
			return a
		}
	}
	return nil
}

func (s *Server) sweepTyping() {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rm := range s.rooms {
		for uid, until := range rm.typing {
			if now.After(until) {
				delete(rm.typing, uid)
			}
		}
	}
}

// ExpireAccessTokens invalidates every issued access token, as if they all
// aged out at once. Refresh tokens stay valid.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	s.access = make(map[string]int64)
	s.mu.Unlock()
}

// RevokeRefreshTokens invalidates every refresh token.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	s.refresh = make(map[string]int64)
	s.mu.Unlock()
}

// RefreshCalls counts token refresh requests received.
func (s *Server) RefreshCalls() int64 { return s.refreshCalls.Load() }

// SetRefreshDelay makes token refreshes take at least d.
func (s *Server) SetRefreshDelay(d time.Duration) { s.refreshDelay.Store(int64(d)) }

// DisableUnreadCount makes the unread-count endpoint fail with 500.
func (s *Server) DisableUnreadCount(off bool) { s.unreadCountOff.Store(off) }

// Balance returns the current balance of an account number.
func (s *Server) Balance(accountNumber string) (decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.byAccountNumber(accountNumber)
	if a == nil {
		return decimal.Zero, false
	}
	return a.Balance, true
}

// TransactionCount reports how many transfers were executed; the
// recipient's deposit row is not counted.
func (s *Server) TransactionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.transactions {
		if t.kind != "DEPOSIT" {
			n++
		}
	}
	return n
}

// Typing reports whether userID has an unexpired typing flag in the room.
func (s *Server) Typing(roomID, userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rm := s.rooms[roomID]
	if rm == nil {
		return false
	}
	until, ok := rm.typing[userID]
	return ok && !s.clock.Now().After(until)
}

// PostMessage injects a message into a room as userID, as another client would.
func (s *Server) PostMessage(roomID, userID int64, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rm := s.rooms[roomID]
	if rm == nil {
		return false
	}
	s.appendMessage(rm, userID, content, "", "TEXT")
	return true
}

// SetTyping sets userID's typing flag, as another client would.
func (s *Server) SetTyping(roomID, userID int64, typing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rm := s.rooms[roomID]; rm != nil {
		s.setTyping(rm, userID, typing)
	}
}

// OpenRoom returns the room shared by two users, creating it if needed.
func (s *Server) OpenRoom(a, b int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomBetween(a, b).id
}
