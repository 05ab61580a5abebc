package cli_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yeetbank/internal/cli"
	"yeetbank/pkg/demo"
	"yeetbank/pkg/demo/demotest"
)

type env struct {
	t   *testing.T
	h   *demotest.Harness
	dir string
	cfg string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	t.Setenv("YEETBANK_LOG_SINK", "stderr")
	t.Setenv("SHELL", "/bin/bash")
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
api:
  base_url: `+demotest.BaseURL+`
  timeout: 5s
state:
  dir: `+filepath.Join(dir, "state")+`
transfer:
  redirect_delay: 10ms
logging:
  level: error
`), 0o600))
	return &env{t: t, h: demotest.Start(t, demo.Options{}), dir: dir, cfg: cfg}
}

// run executes one command line with stdin and returns stdout.
func (e *env) run(stdin string, args ...string) (string, error) {
	e.t.Helper()
	var out, errOut bytes.Buffer
	err := cli.Execute(context.Background(), cli.Options{
		In:   strings.NewReader(stdin),
		Out:  &out,
		Err:  &errOut,
		Dial: e.h.Dial,
	}, append([]string{"--config", e.cfg}, args...))
	return out.String(), err
}

func (e *env) login(ident string) {
	e.t.Helper()
	out, err := e.run("demo123\n", "login", ident)
	require.NoError(e.t, err)
	require.Contains(e.t, out, "Welcome back")
}

func TestLoginWhoamiLogout(t *testing.T) {
	e := newEnv(t)

	out, err := e.run("demo123\n", "login", "john@demo.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome back, John Doe!")
	assert.Contains(t, out, "$50,000.00")

	out, err = e.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "John Doe <john@demo.com>")
	assert.Contains(t, out, "ACC0001234")

	out, err = e.run("", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out successfully")

	_, err = e.run("", "whoami")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")
}

func TestLoginFailureShowsServerMessage(t *testing.T) {
	e := newEnv(t)
	_, err := e.run("wrong\n", "login", "john@demo.com")
	require.Error(t, err)
	assert.Equal(t, "Invalid email/phone/account number or password", err.Error())
}

func TestInternalTransferFromFlags(t *testing.T) {
	e := newEnv(t)
	e.login("john@demo.com")

	out, err := e.run("", "transfer", "internal", "--to", "ACC0001235", "--amount", "100", "--pin", "1234")
	require.NoError(t, err)
	assert.Contains(t, out, "Recipient: Jane Smith")
	assert.Contains(t, out, "Transfer successful!")
	assert.Contains(t, out, "New balance: $49,900.00")
	assert.Contains(t, out, "Dashboard balance: $49,900.00")

	jane, _ := e.h.Server.Balance("ACC0001235")
	assert.True(t, jane.Equal(decimal.NewFromInt(25100)))
}

func TestTransferPromptsAndRetriesWrongPIN(t *testing.T) {
	e := newEnv(t)
	e.login("john@demo.com")

	out, err := e.run("ACC0001235\n100\nlunch\n0000\n1234\n", "transfer", "internal")
	require.NoError(t, err)
	assert.Contains(t, out, "Invalid transfer PIN")
	assert.Contains(t, out, "Message: lunch")
	assert.Contains(t, out, "Transfer successful!")
	assert.Equal(t, 1, e.h.Server.TransactionCount())
}

func TestTransferValidationThenBackOut(t *testing.T) {
	e := newEnv(t)
	e.login("john@demo.com")

	out, err := e.run("ACC0001235\n999999\nback\nback\n", "transfer", "internal")
	require.NoError(t, err)
	assert.Contains(t, out, "Insufficient balance")
	assert.Contains(t, out, "Transfer cancelled.")
	assert.Equal(t, 0, e.h.Server.TransactionCount())
}

func TestWireTransferChargesFee(t *testing.T) {
	e := newEnv(t)
	e.login("jane@demo.com")

	out, err := e.run("",
		"transfer", "wire", "--name", "Ravi Kumar", "--bank", "State Bank", "--to", "99887766554433",
		"--ifsc", "SBIN0001234", "--amount", "985", "--pin", "5678")
	require.NoError(t, err)
	assert.Contains(t, out, "Fee:     $15.00")
	assert.Contains(t, out, "Total:   $1,000.00")
	assert.Contains(t, out, "New balance: $24,000.00")
}

func TestSettingsPINValidatedLocally(t *testing.T) {
	e := newEnv(t)
	e.login("john@demo.com")

	_, err := e.run("1234\n12\n12\n", "settings", "pin")
	require.Error(t, err)
	assert.Equal(t, "PIN must be 4 digits", err.Error())

	out, err := e.run("1234\n4321\n4321\n", "settings", "pin")
	require.NoError(t, err)
	assert.Contains(t, out, "PIN changed successfully!")

	_, err = e.run("", "transfer", "internal", "--to", "ACC0001235", "--amount", "1", "--pin", "1234")
	require.Error(t, err, "old PIN rejected and no more input")
	assert.Equal(t, 0, e.h.Server.TransactionCount())
}

func TestNotificationsListAndRead(t *testing.T) {
	e := newEnv(t)
	e.login("john@demo.com")

	out, err := e.run("", "notifications", "--unread")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome to Yeet Bank")

	out, err = e.run("", "notifications", "read", "101")
	require.NoError(t, err)
	assert.Contains(t, out, "Marked as read. 0 unread.")

	out, err = e.run("", "notifications", "--unread")
	require.NoError(t, err)
	assert.Contains(t, out, "No notifications.")
}

func TestChatSendsToSupport(t *testing.T) {
	e := newEnv(t)
	e.login("john@demo.com")

	out, err := e.run("", "chat", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "ADMIN USER")
	assert.Contains(t, out, "Start a conversation")

	out, err = e.run("hello there\n/quit\n", "chat", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Chat with ADMIN USER")
	assert.Contains(t, out, "You: Hello there")

	out, err = e.run("", "chat", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "Hello there")
}

func TestHistoryAfterTransfer(t *testing.T) {
	e := newEnv(t)
	e.login("john@demo.com")
	_, err := e.run("", "transfer", "internal", "--to", "ACC0001235", "--amount", "250", "--pin", "1234", "--message", "rent")
	require.NoError(t, err)

	out, err := e.run("", "transactions")
	require.NoError(t, err)
	assert.Contains(t, out, "-$250.00")
	assert.Contains(t, out, "rent")

	out, err = e.run("", "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "Total sent:     $250.00")
}

func TestInstallWritesCompletionAndDismiss(t *testing.T) {
	e := newEnv(t)

	out, err := e.run("", "install")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote bash completion")
	body, err := os.ReadFile(filepath.Join(e.dir, "state", "completion.bash"))
	require.NoError(t, err)
	assert.Contains(t, string(body), "yeetbank")

	out, err = e.run("", "install", "--dismiss")
	require.NoError(t, err)
	assert.Contains(t, out, "Install hint dismissed.")
}

func TestRegisterSignsStraightIn(t *testing.T) {
	e := newEnv(t)

	out, err := e.run("Sam\nLee\nsam@example.com\n+15550001\nUS\n1 Main St\nsecret1\nsecret1\n", "register")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome to Yeet Bank, Sam Lee!")

	out, err = e.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "sam@example.com")
	assert.Contains(t, out, "No transfer PIN set yet")
}

func TestRegisterValidatesBeforeSending(t *testing.T) {
	e := newEnv(t)
	_, err := e.run("Sam\nLee\nnot-an-email\n+15550001\nUS\n1 Main St\nsecret1\nsecret1\n", "register")
	require.Error(t, err)
	assert.Equal(t, "Enter a valid email address", err.Error())
}
