package demo_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yeetbank/pkg/api"
	"yeetbank/pkg/demo"
	"yeetbank/pkg/demo/demotest"
)

type staticToken string

func (s staticToken) AccessToken() string { return string(s) }
func (s staticToken) Refresh(context.Context, string) (string, error) {
	return "", api.ErrSessionExpired
}

func login(t *testing.T, h *demotest.Harness, ident string) *api.Client {
	t.Helper()
	c := h.Client()
	res, err := c.Login(context.Background(), ident, demo.DemoPassword)
	require.NoError(t, err)
	c.UseCredentials(staticToken(res.Access))
	return c
}

func TestLoginByEmailPhoneOrAccount(t *testing.T) {
	h := demotest.Start(t, demo.Options{})
	for _, ident := range []string{"john@demo.com", "+1234567890", "ACC0001234"} {
		res, err := h.Client().Login(context.Background(), ident, "demo123")
		require.NoError(t, err, ident)
		assert.Contains(t, res.Access, "mock_access_token_1_")
		assert.Equal(t, "ACC0001234", res.User.AccountNumber)
	}
}

func TestLoginFailureMessage(t *testing.T) {
	h := demotest.Start(t, demo.Options{})
	_, err := h.Client().Login(context.Background(), "john@demo.com", "wrong")
	var ae *api.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "Invalid email/phone/account number or password", ae.Message)
}

func TestLoginRateLimitedPerIdentifier(t *testing.T) {
	h := demotest.Start(t, demo.Options{RateRPS: 0.001, RateBurst: 2})
	c := h.Client()
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, _ = c.Login(ctx, "jane@demo.com", "nope")
	}
	_, err := c.Login(ctx, "jane@demo.com", "demo123")
	var ae *api.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Message, "Too many login attempts")

	_, err = c.Login(ctx, "john@demo.com", "demo123")
	assert.NoError(t, err, "other identifiers are unaffected")
}

func TestInternalTransferMovesMoney(t *testing.T) {
	h := demotest.Start(t, demo.Options{})
	c := login(t, h, "john@demo.com")

	res, err := c.YeetTransfer(context.Background(), api.TransferRequest{
		RecipientAccount: "ACC0001235", Amount: 100, TransferPIN: "1234", Message: "rent",
	}, "")
	require.NoError(t, err)
	require.NotNil(t, res.NewBalance)
	assert.Equal(t, "49900", res.NewBalance.String())

	jane, _ := h.Server.Balance("ACC0001235")
	assert.True(t, jane.Equal(decimal.NewFromInt(25100)))
}

func TestTransferRejections(t *testing.T) {
	h := demotest.Start(t, demo.Options{})
	c := login(t, h, "jane@demo.com")
	ctx := context.Background()

	cases := []struct {
		name string
		req  api.TransferRequest
		msg  string
	}{
		{"wrong pin", api.TransferRequest{RecipientAccount: "ACC0001234", Amount: 10, TransferPIN: "0000"}, "Invalid transfer PIN"},
		{"too much", api.TransferRequest{RecipientAccount: "ACC0001234", Amount: 25000.01, TransferPIN: "5678"}, "Insufficient balance"},
		{"self", api.TransferRequest{RecipientAccount: "ACC0001235", Amount: 1, TransferPIN: "5678"}, "Cannot transfer to your own account"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.YeetTransfer(ctx, tc.req, "")
			var te *api.TransferError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, tc.msg, te.Message)
		})
	}
	bal, _ := h.Server.Balance("ACC0001235")
	assert.True(t, bal.Equal(decimal.NewFromInt(25000)))
}

func TestIdempotencyKeyReplaysResult(t *testing.T) {
	h := demotest.Start(t, demo.Options{})
	c := login(t, h, "john@demo.com")
	req := api.TransferRequest{RecipientAccount: "ACC0001235", Amount: 10, TransferPIN: "1234"}

	first, err := c.YeetTransfer(context.Background(), req, "key-1")
	require.NoError(t, err)
	second, err := c.YeetTransfer(context.Background(), req, "key-1")
	require.NoError(t, err)

	assert.Equal(t, first.TransactionID, second.TransactionID)
	bal, _ := h.Server.Balance("ACC0001234")
	assert.Equal(t, "49990", bal.String())
}

func TestConcurrentIdempotentTransfersApplyOnce(t *testing.T) {
	h := demotest.Start(t, demo.Options{})
	c := login(t, h, "john@demo.com")
	req := api.TransferRequest{RecipientAccount: "ACC0001235", Amount: 10, TransferPIN: "1234"}

	const n = 8
	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := c.YeetTransfer(context.Background(), req, "same-key")
			errs[i] = err
			if err == nil {
				ids[i] = res.TransactionID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	bal, _ := h.Server.Balance("ACC0001234")
	assert.Equal(t, "49990", bal.String())
}

func TestIdempotencyKeyScopedPerUser(t *testing.T) {
	h := demotest.Start(t, demo.Options{})
	john := login(t, h, "john@demo.com")
	jane := login(t, h, "jane@demo.com")
	ctx := context.Background()

	first, err := john.YeetTransfer(ctx, api.TransferRequest{RecipientAccount: "ACC0001235", Amount: 10, TransferPIN: "1234"}, "shared")
	require.NoError(t, err)
	second, err := jane.YeetTransfer(ctx, api.TransferRequest{RecipientAccount: "ACC0001234", Amount: 5, TransferPIN: "5678"}, "shared")
	require.NoError(t, err)

	assert.NotEqual(t, first.TransactionID, second.TransactionID)
	bal, _ := h.Server.Balance("ACC0001235")
	assert.Equal(t, "25005", bal.String())
}

func TestExternalAndWireFees(t *testing.T) {
	h := demotest.Start(t, demo.Options{})
	c := login(t, h, "jane@demo.com")
	ctx := context.Background()

	_, err := c.YeetTransfer(ctx, api.TransferRequest{RecipientAccount: "99887766", Amount: 100, TransferPIN: "5678"}, "")
	require.NoError(t, err)
	res, err := c.WireTransfer(ctx, api.WireTransferRequest{
		RecipientInfo: api.RecipientInfo{Name: "Ravi", Bank: "SBI", Account: "1234567890", IFSC: "SBIN0001"},
		Amount:        100, TransferPIN: "5678",
	}, "")
	require.NoError(t, err)
	// 25000 - (100+1) - (100+15)
	assert.Equal(t, "24784", res.NewBalance.String())
}

func TestValidateReceiver(t *testing.T) {
	h := demotest.Start(t, demo.Options{})
	c := login(t, h, "john@demo.com")

	r, err := c.ValidateReceiver(context.Background(), "ACC0001235")
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith", r.Name())

	_, err = c.ValidateReceiver(context.Background(), "ACC9999999")
	var te *api.TransferError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "Account not found", te.Message)
}

func TestUnauthenticatedRequest(t *testing.T) {
	h := demotest.Start(t, demo.Options{})
	c := h.Client()
	c.UseCredentials(staticToken("bogus"))
	_, err := c.Profile(context.Background())
	assert.True(t, errors.Is(err, api.ErrSessionExpired))
}

func TestRefreshRotatesTokens(t *testing.T) {
	h := demotest.Start(t, demo.Options{})
	c := h.Client()
	res, err := c.Login(context.Background(), "john@demo.com", "demo123")
	require.NoError(t, err)

	fresh, err := c.RefreshToken(context.Background(), res.Refresh)
	require.NoError(t, err)
	assert.NotEqual(t, res.Refresh, fresh.Refresh)

	_, err = c.RefreshToken(context.Background(), res.Refresh)
	assert.Error(t, err, "old refresh token is spent")
	assert.EqualValues(t, 2, h.Server.RefreshCalls())
}

func TestChatRoundTrip(t *testing.T) {
	h := demotest.Start(t, demo.Options{})
	john := login(t, h, "john@demo.com")
	admin := login(t, h, "admin@demo.com")
	ctx := context.Background()

	staff, err := john.StaffUsers(ctx)
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.Equal(t, "ADMIN USER", staff[0].DisplayName())

	room, err := john.StartChatWithUser(ctx, staff[0].ID)
	require.NoError(t, err)
	_, err = john.SendMessage(ctx, room.ID, "Hello", nil)
	require.NoError(t, err)
	msg, err := john.SendMessage(ctx, room.ID, "", &api.Photo{Filename: "photo.jpg", ContentType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}})
	require.NoError(t, err)
	assert.Equal(t, "Photo", msg.Content)
	assert.Equal(t, api.MessageImage, msg.MessageType)
	assert.Contains(t, msg.Image, "/media/chat/")

	require.NoError(t, john.SetTyping(ctx, room.ID, true))
	typing, err := admin.Typing(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, typing)
	typing, err = john.Typing(ctx, room.ID)
	require.NoError(t, err)
	assert.False(t, typing, "own typing flag is not echoed")

	msgs, err := admin.Messages(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(1), msgs[0].Sender.ID)

	rooms, err := admin.Conversations(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, api.RoomUserUser, rooms[0].RoomType)
}

func TestNotificationsAndFallbackCount(t *testing.T) {
	h := demotest.Start(t, demo.Options{})
	c := login(t, h, "john@demo.com")
	ctx := context.Background()
	h.Server.Notify(1, "Hi", "there")

	n, err := c.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := c.Notifications(ctx)
	require.NoError(t, err)
	require.NoError(t, c.MarkRead(ctx, list[0].ID))

	h.Server.DisableUnreadCount(true)
	n, err = c.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestParseAccounts(t *testing.T) {
	accts, err := demo.ParseAccounts([]byte(`
accounts:
  - email: a@x.com
    account_number: ACC0000001
    balance: "10.50"
    pin: "4321"
  - email: b@x.com
    account_number: ACC0000002
    is_staff: true
`))
	require.NoError(t, err)
	require.Len(t, accts, 2)
	assert.Equal(t, "10.5", accts[0].Balance.String())
	assert.Equal(t, demo.DemoPassword, accts[1].Password)
	assert.True(t, accts[1].IsStaff)
	assert.Equal(t, int64(2), accts[1].ID)

	_, err = demo.ParseAccounts([]byte("accounts:\n  - email: a@x.com\n"))
	assert.Error(t, err)
}
