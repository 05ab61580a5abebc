package api_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yeetbank/pkg/api"
	"yeetbank/pkg/demo"
	"yeetbank/pkg/demo/demotest"
)

// tokenBox is a bare Credentials implementation over the client itself.
type tokenBox struct {
	mu      sync.Mutex
	client  *api.Client
	access  string
	refresh string
	calls   int
}

func (b *tokenBox) AccessToken() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.access
}

func (b *tokenBox) Refresh(ctx context.Context, _ string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	res, err := b.client.RefreshToken(ctx, b.refresh)
	if err != nil {
		return "", errors.Join(api.ErrSessionExpired, err)
	}
	b.access, b.refresh = res.Access, res.Refresh
	return b.access, nil
}

func loggedIn(t *testing.T) (*demotest.Harness, *api.Client, *tokenBox) {
	t.Helper()
	h := demotest.Start(t, demo.Options{})
	c := h.Client()
	res, err := c.Login(context.Background(), "john@demo.com", "demo123")
	require.NoError(t, err)
	box := &tokenBox{client: c, access: res.Access, refresh: res.Refresh}
	c.UseCredentials(box)
	return h, c, box
}

func TestBearerTokenAttached(t *testing.T) {
	_, c, box := loggedIn(t)
	u, err := c.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "john@demo.com", u.Email)
	assert.Equal(t, "50000", u.Balance.String())
	assert.Equal(t, 0, box.calls)
}

func TestExpiredTokenRefreshedOnceAndRetried(t *testing.T) {
	h, c, box := loggedIn(t)
	h.Server.ExpireAccessTokens()

	u, err := c.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, 1, box.calls)
	assert.EqualValues(t, 1, h.Server.RefreshCalls())
}

func TestRefreshFailureSurfaces(t *testing.T) {
	h, c, box := loggedIn(t)
	h.Server.ExpireAccessTokens()
	h.Server.RevokeRefreshTokens()

	_, err := c.Profile(context.Background())
	assert.ErrorIs(t, err, api.ErrSessionExpired)
	assert.Equal(t, 1, box.calls)
}

func TestPublicCallsNeverRefresh(t *testing.T) {
	_, c, box := loggedIn(t)
	_, err := c.Login(context.Background(), "john@demo.com", "bad")
	var ae *api.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 0, box.calls)
}

func TestNotFoundIsHTTPError(t *testing.T) {
	_, c, _ := loggedIn(t)
	_, err := c.Messages(context.Background(), 424242)
	var he *api.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, 404, he.Status)
	assert.Equal(t, "Not found.", he.Message("x"))
}

func TestCancelledContext(t *testing.T) {
	_, c, _ := loggedIn(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Profile(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegisterAndSettings(t *testing.T) {
	h := demotest.Start(t, demo.Options{})
	c := h.Client()
	ctx := context.Background()
	res, err := c.Register(ctx, api.Registration{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@demo.com", Phone: "+1999",
		Country: "UK", ResidentialAddress: "1 Analytical Way", Password: "engine1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccountNumber)
	c.UseCredentials(&tokenBox{client: c, access: res.Access, refresh: res.Refresh})

	_, err = c.Register(ctx, api.Registration{Email: "ada@demo.com", Password: "engine1"})
	var ae *api.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "Email already in use", ae.Message)

	u, err := c.Profile(ctx)
	require.NoError(t, err)
	assert.False(t, u.HasTransferPIN)
	require.NoError(t, c.ChangePIN(ctx, "", "4321"))
	require.NoError(t, c.ChangePassword(ctx, "engine1", "engine2"))
	err = c.ChangePassword(ctx, "wrong", "engine3")
	assert.Equal(t, "Current password is incorrect", api.ErrorMessage(api.PayloadOf(err), "x"))

	first := "Augusta"
	u, err = c.UpdateProfile(ctx, api.ProfileUpdate{FirstName: &first})
	require.NoError(t, err)
	assert.Equal(t, "Augusta Lovelace", u.FullName())
}

func TestReportsAndHistory(t *testing.T) {
	_, c, _ := loggedIn(t)
	ctx := context.Background()
	_, err := c.YeetTransfer(ctx, api.TransferRequest{RecipientAccount: "ACC0001235", Amount: 5, TransferPIN: "1234"}, "")
	require.NoError(t, err)

	txs, err := c.Transactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "5", txs[0].Amount.String())

	_, err = c.ReportTransaction(ctx, api.ReportRequest{Transaction: txs[0].ID})
	var ve *api.ValidationError
	require.ErrorAs(t, err, &ve)

	rep, err := c.ReportTransaction(ctx, api.ReportRequest{Transaction: txs[0].ID, Reason: "unauthorized"})
	require.NoError(t, err)
	assert.Equal(t, "PENDING", rep.Status)

	reps, err := c.Reports(ctx)
	require.NoError(t, err)
	assert.Len(t, reps, 1)

	sum, err := c.AccountSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, "49995", sum.Balance.String())
	assert.Equal(t, 1, sum.TransactionCount)
}
