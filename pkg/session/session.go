// Package session owns the credential pair and the current identity. It is
// the api.Credentials source for every authenticated request.
package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"yeetbank/pkg/api"
	"yeetbank/pkg/logger"
	"yeetbank/pkg/metrics"
	"yeetbank/pkg/store"
)

// KV is the durable storage the tokens are persisted to.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Backend is the subset of the API the store drives.
type Backend interface {
	Login(ctx context.Context, identifier, password string) (*api.LoginResponse, error)
	Register(ctx context.Context, r api.Registration) (*api.RegisterResponse, error)
	RefreshToken(ctx context.Context, refresh string) (*api.RefreshResponse, error)
	Profile(ctx context.Context) (*api.User, error)
	Logout(ctx context.Context) error
}

// Snapshot is a point-in-time copy of the session.
type Snapshot struct {
	UserID        int64
	Authenticated bool
	Identity      *api.User
	// PendingBalance is set while a locally applied balance has not yet
	// been confirmed by a profile fetch.
	PendingBalance *decimal.Decimal
}

// refreshTimeout bounds the shared token exchange, which outlives the
// caller that started it.
const refreshTimeout = 15 * time.Second

// Store holds the session. All methods are safe for concurrent use.
type Store struct {
	backend Backend
	kv      KV
	group   singleflight.Group

	mu       sync.RWMutex
	access   string
	refresh  string
	identity *api.User
	pending  *decimal.Decimal
	auth     bool
	expired  []func()
	changed  []func(Snapshot)
}

// New restores any persisted tokens. The identity is unknown until
// CurrentIdentity succeeds.
func New(backend Backend, kv KV) (*Store, error) {
	s := &Store{backend: backend, kv: kv}
	access, _, err := kv.Get(store.KeyAccessToken)
	if err != nil {
		return nil, err
	}
	refresh, _, err := kv.Get(store.KeyRefreshToken)
	if err != nil {
		return nil, err
	}
	s.access, s.refresh = access, refresh
	return s, nil
}

// Attach constructs a Store for client and installs it as the client's
// credential source.
func Attach(client *api.Client, kv KV) (*Store, error) {
	s, err := New(client, kv)
	if err != nil {
		return nil, err
	}
	client.UseCredentials(s)
	return s, nil
}

// OnExpired registers fn to run whenever the session is irrecoverably lost
// (the redirect-to-login signal).
func (s *Store) OnExpired(fn func()) {
	s.mu.Lock()
	s.expired = append(s.expired, fn)
	s.mu.Unlock()
}

// OnChange registers fn to receive a snapshot after every identity change.
func (s *Store) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	s.changed = append(s.changed, fn)
	s.mu.Unlock()
}

// AccessToken implements api.Credentials.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

// HasCredentials reports whether an access token is held, validated or not.
func (s *Store) HasCredentials() bool {
	return s.AccessToken() != ""
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{Authenticated: s.auth}
	if s.identity != nil {
		u := *s.identity
		snap.Identity = &u
		snap.UserID = u.ID
	}
	if s.pending != nil {
		p := *s.pending
		snap.PendingBalance = &p
	}
	return snap
}

// Identity returns the cached identity without a network call.
func (s *Store) Identity() (api.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return api.User{}, false
	}
	return *s.identity, true
}

// Login authenticates and persists the new token pair.
func (s *Store) Login(ctx context.Context, identifier, secret string) (*api.User, error) {
	if identifier == "" || secret == "" {
		return nil, api.Invalid("identifier", "Please enter your email/phone/account number and password")
	}
	res, err := s.backend.Login(ctx, identifier, secret)
	if err != nil {
		return nil, err
	}
	if err := s.setTokens(res.Access, res.Refresh); err != nil {
		return nil, err
	}
	if res.User == nil {
		// some deployments omit the user; fetch it
		u, ok := s.CurrentIdentity(ctx)
		if !ok {
			return nil, &api.AuthError{Message: "Login failed"}
		}
		return &u, nil
	}
	s.setIdentity(res.User)
	logger.Info("login_succeeded", "user", res.User.ID)
	return res.User, nil
}

// CurrentIdentity re-validates the held access token by fetching the
// profile. Any failure clears the session; ok=false means logged out.
func (s *Store) CurrentIdentity(ctx context.Context) (api.User, bool) {
	if !s.HasCredentials() {
		return api.User{}, false
	}
	u, err := s.backend.Profile(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return api.User{}, false
		}
		logger.Warn("identity_check_failed", "error", err)
		s.clear(true)
		return api.User{}, false
	}
	s.setIdentity(u)
	return *u, true
}

// Reload refreshes the identity for background callers. Unlike
// CurrentIdentity it keeps the session on transient failures; only an
// expired session or a rejected token signs the user out.
func (s *Store) Reload(ctx context.Context) (api.User, error) {
	if !s.HasCredentials() {
		return api.User{}, api.ErrSessionExpired
	}
	u, err := s.backend.Profile(ctx)
	if err != nil {
		var herr *api.HTTPError
		if errors.Is(err, api.ErrSessionExpired) || (errors.As(err, &herr) && herr.Status == http.StatusUnauthorized) {
			s.clear(true)
		}
		return api.User{}, err
	}
	s.setIdentity(u)
	return *u, nil
}

// Refresh implements api.Credentials. Concurrent callers share one
// exchange; a caller whose rejected token was already replaced gets the
// replacement without another exchange. A cancelled caller gets its
// context error and leaves the session as it was.
func (s *Store) Refresh(ctx context.Context, rejected string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	current := s.access
	s.mu.RUnlock()
	if rejected != "" && current != "" && current != rejected {
		return current, nil
	}
	ch := s.group.DoChan("refresh", func() (any, error) {
		// shared by every waiter, so it must not die with the first caller
		xctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return s.exchange(xctx)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(string), nil
	}
}

func (s *Store) exchange(ctx context.Context) (string, error) {
	s.mu.RLock()
	refresh := s.refresh
	s.mu.RUnlock()
	if refresh == "" {
		metrics.TokenRefreshes.WithLabelValues("missing").Inc()
		s.clear(true)
		return "", api.ErrSessionExpired
	}
	res, err := s.backend.RefreshToken(ctx, refresh)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			metrics.TokenRefreshes.WithLabelValues("aborted").Inc()
			logger.Warn("token_refresh_aborted", "error", err)
			return "", err
		}
		metrics.TokenRefreshes.WithLabelValues("failed").Inc()
		logger.Warn("token_refresh_failed", "error", err)
		s.clear(true)
		return "", &api.AuthError{Message: "Your session has expired. Please log in again.", Err: errors.Join(api.ErrSessionExpired, err)}
	}
	next := res.Refresh
	if next == "" {
		next = refresh
	}
	if err := s.setTokens(res.Access, next); err != nil {
		return "", err
	}
	metrics.TokenRefreshes.WithLabelValues("ok").Inc()
	logger.Debug("token_refreshed")
	return res.Access, nil
}

// Logout ends the session locally even when the backend call fails; that
// failure is still returned for the caller to report.
func (s *Store) Logout(ctx context.Context) error {
	var err error
	if s.HasCredentials() {
		if err = s.backend.Logout(ctx); err != nil {
			logger.Warn("logout_request_failed", "error", err)
		}
	}
	s.clear(false)
	return err
}

// ApplyBalance overlays a server-reported balance onto the identity until
// the next profile fetch confirms it.
func (s *Store) ApplyBalance(b decimal.Decimal) {
	s.mu.Lock()
	if s.identity != nil {
		s.identity.Balance = b
	}
	s.pending = &b
	snap := s.snapshotLocked()
	fns := append([]func(Snapshot){}, s.changed...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// Balance is the best known balance: the pending overlay, else the identity's.
func (s *Store) Balance() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pending != nil {
		return *s.pending
	}
	if s.identity != nil {
		return s.identity.Balance
	}
	return decimal.Zero
}

// AccountNumber of the signed-in user, empty when unknown.
func (s *Store) AccountNumber() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return ""
	}
	return s.identity.AccountNumber
}

func (s *Store) setTokens(access, refresh string) error {
	s.mu.Lock()
	s.access, s.refresh = access, refresh
	s.mu.Unlock()
	if err := s.kv.Set(store.KeyAccessToken, access); err != nil {
		return err
	}
	if refresh == "" {
		return s.kv.Delete(store.KeyRefreshToken)
	}
	return s.kv.Set(store.KeyRefreshToken, refresh)
}

// setIdentity replaces the identity with confirmed server state, which
// supersedes any pending balance overlay.
func (s *Store) setIdentity(u *api.User) {
	cp := *u
	s.mu.Lock()
	s.identity = &cp
	s.pending = nil
	s.auth = true
	snap := s.snapshotLocked()
	fns := append([]func(Snapshot){}, s.changed...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// clear drops credentials and identity. expired signals the
// redirect-to-login observers.
func (s *Store) clear(expired bool) {
	s.mu.Lock()
	had := s.access != "" || s.refresh != "" || s.auth
	s.access, s.refresh = "", ""
	s.identity = nil
	s.pending = nil
	s.auth = false
	snap := s.snapshotLocked()
	changed := append([]func(Snapshot){}, s.changed...)
	var onExpired []func()
	if expired && had {
		onExpired = append(onExpired, s.expired...)
	}
	s.mu.Unlock()

	if err := s.kv.Delete(store.KeyAccessToken); err != nil {
		logger.Error("credential_delete_failed", "key", store.KeyAccessToken, "error", err)
	}
	if err := s.kv.Delete(store.KeyRefreshToken); err != nil {
		logger.Error("credential_delete_failed", "key", store.KeyRefreshToken, "error", err)
	}
	for _, fn := range changed {
		fn(snap)
	}
	for _, fn := range onExpired {
		fn()
	}
}
