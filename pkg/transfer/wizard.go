// Package transfer implements the multi-step transfer wizard:
// RECIPIENT, AMOUNT, CONFIRM (PIN), SUCCESS.
package transfer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raulk/clock"
	"github.com/shopspring/decimal"

	"yeetbank/pkg/api"
	"yeetbank/pkg/logger"
	"yeetbank/pkg/metrics"
)

const (
	accountNumberLen    = 10
	minExternalAccount  = 8
	pinLen              = 4
	defaultRedirectWait = 2500 * time.Millisecond
)

// ErrInFlight is returned when a step is attempted while a previous request
// of the same wizard is still outstanding.
var ErrInFlight = errors.New("transfer: request already in flight")

// Backend is the part of the API the wizard calls.
type Backend interface {
	ValidateReceiver(ctx context.Context, accountNumber string) (*api.Receiver, error)
	YeetTransfer(ctx context.Context, req api.TransferRequest, idempotencyKey string) (*api.TransferResponse, error)
	WireTransfer(ctx context.Context, req api.WireTransferRequest, idempotencyKey string) (*api.TransferResponse, error)
}

// Account is the signed-in user's side of the transfer.
type Account interface {
	AccountNumber() string
	Balance() decimal.Decimal
	ApplyBalance(decimal.Decimal)
}

type Options struct {
	Clock         clock.Clock
	RedirectDelay time.Duration
	Fees          Fees
}

// Wizard drives one transfer. It is safe for concurrent use; network calls
// are made without holding the lock.
type Wizard struct {
	backend Backend
	account Account
	clock   clock.Clock
	delay   time.Duration
	fees    Fees

	mu       sync.Mutex
	draft    Draft
	key      string
	inFlight bool
	gen      uint64
	timer    *clock.Timer
	done     chan struct{}
	doneOnce sync.Once
}

// New starts a wizard for flow at the RECIPIENT step.
func New(flow Flow, backend Backend, account Account, opts Options) *Wizard {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.RedirectDelay <= 0 {
		opts.RedirectDelay = defaultRedirectWait
	}
	if opts.Fees == (Fees{}) {
		opts.Fees = DefaultFees()
	}
	return &Wizard{
		backend: backend,
		account: account,
		clock:   opts.Clock,
		delay:   opts.RedirectDelay,
		fees:    opts.Fees,
		draft:   Draft{Flow: flow, Step: StepRecipient},
		done:    make(chan struct{}),
	}
}

// Draft returns a copy of the current draft.
func (w *Wizard) Draft() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	d := w.draft
	if d.Recipient != nil {
		r := *d.Recipient
		d.Recipient = &r
	}
	return d
}

func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft.Step
}

// Redirected is closed once the post-success display delay has elapsed.
func (w *Wizard) Redirected() <-chan struct{} { return w.done }

// IdempotencyKey is the key the next submission will carry.
func (w *Wizard) IdempotencyKey() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.key
}

// LookupRecipient resolves an internal account number. Only valid for the
// internal flow at the RECIPIENT step.
func (w *Wizard) LookupRecipient(ctx context.Context, accountNumber string) (*Recipient, error) {
	accountNumber = strings.TrimSpace(accountNumber)
	w.mu.Lock()
	if err := w.expect(StepRecipient); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if w.draft.Flow != Internal {
		w.mu.Unlock()
		return nil, api.Invalid("recipient", "Account lookup is only available for internal transfers")
	}
	switch {
	case accountNumber == "":
		w.mu.Unlock()
		return nil, api.Invalid("account_number", "Please enter account number")
	case len(accountNumber) != accountNumberLen:
		w.mu.Unlock()
		return nil, api.Invalid("account_number", "Account number must be 10 digits")
	case accountNumber == w.account.AccountNumber():
		w.mu.Unlock()
		return nil, api.Invalid("account_number", "Cannot transfer to your own account")
	}
	w.inFlight = true
	gen := w.gen
	w.mu.Unlock()

	rec, err := w.backend.ValidateReceiver(ctx, accountNumber)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.inFlight = false
	if err != nil {
		return nil, err
	}
	if gen != w.gen || w.draft.Step != StepRecipient {
		return nil, context.Canceled
	}
	r := &Recipient{AccountNumber: rec.AccountNumber, Name: rec.Name(), Email: rec.Email}
	if r.AccountNumber == "" {
		r.AccountNumber = accountNumber
	}
	if r.Email == "" {
		r.Email = "N/A"
	}
	w.draft.Recipient = r
	w.draft.Step = StepAmount
	cp := *r
	return &cp, nil
}

// SetRecipient accepts a manually entered payee for the external and wire flows.
func (w *Wizard) SetRecipient(r Recipient) error {
	r.AccountNumber = strings.TrimSpace(r.AccountNumber)
	r.Name = strings.TrimSpace(r.Name)
	r.Bank = strings.TrimSpace(r.Bank)
	r.RoutingNumber = strings.TrimSpace(r.RoutingNumber)
	r.IFSC = strings.TrimSpace(r.IFSC)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.expect(StepRecipient); err != nil {
		return err
	}
	switch w.draft.Flow {
	case External:
		if r.Bank == "" || r.AccountNumber == "" || r.Name == "" {
			return api.Invalid("recipient", "Please fill in all required recipient details")
		}
		if len(r.AccountNumber) < minExternalAccount {
			return api.Invalid("account_number", "Account number too short")
		}
	case Wire:
		if r.Name == "" || r.Bank == "" || r.AccountNumber == "" || r.IFSC == "" {
			return api.Invalid("recipient", "Please fill in all recipient details")
		}
	default:
		return api.Invalid("recipient", "Internal transfers must look the recipient up")
	}
	if r.AccountNumber == w.account.AccountNumber() {
		return api.Invalid("account_number", "Cannot transfer to your own account")
	}
	w.draft.Recipient = &r
	w.draft.Step = StepAmount
	return nil
}

// EnterAmount validates amount plus fee against the known balance and moves
// to CONFIRM.
func (w *Wizard) EnterAmount(raw string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.expect(StepAmount); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !amount.IsPositive() || amount.Exponent() < -2 {
		return api.Invalid("amount", "Enter valid amount")
	}
	fee := w.fees.For(w.draft.Flow)
	total := amount.Add(fee)
	if total.GreaterThan(w.account.Balance()) {
		if fee.IsPositive() {
			return api.Invalid("amount", "Insufficient balance. Required: $"+total.StringFixed(2)+" (including $"+fee.StringFixed(2)+" fee)")
		}
		return api.Invalid("amount", "Insufficient balance")
	}
	w.draft.Amount = amount
	w.draft.Fee = fee
	w.draft.PIN = ""
	w.draft.Step = StepConfirm
	w.key = uuid.NewString()
	return nil
}

// SetMessage sets the transfer note; an empty note gets a flow default.
func (w *Wizard) SetMessage(msg string) {
	w.mu.Lock()
	w.draft.Message = strings.TrimSpace(msg)
	w.mu.Unlock()
}

func validPIN(pin string) bool {
	if len(pin) != pinLen {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Confirm submits the transfer with pin. On success the server's new balance
// is applied to the account and the redirect timer starts. On failure the
// wizard stays in CONFIRM with the PIN cleared.
func (w *Wizard) Confirm(ctx context.Context, pin string) (*Result, error) {
	w.mu.Lock()
	if w.inFlight {
		w.mu.Unlock()
		return nil, ErrInFlight
	}
	if err := w.expect(StepConfirm); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if !validPIN(pin) {
		w.draft.PIN = ""
		w.mu.Unlock()
		return nil, api.Invalid("pin", "Enter 4-digit PIN")
	}
	w.draft.PIN = pin
	w.inFlight = true
	d := w.draft
	rcpt := *d.Recipient
	key := w.key
	gen := w.gen
	w.mu.Unlock()

	msg := d.Message
	if msg == "" {
		msg = defaultMessage(d.Flow, rcpt)
	}
	var (
		res *api.TransferResponse
		err error
	)
	amount := d.Amount.InexactFloat64()
	if d.Flow == Wire {
		res, err = w.backend.WireTransfer(ctx, api.WireTransferRequest{
			RecipientInfo: api.RecipientInfo{Name: rcpt.Name, Bank: rcpt.Bank, Account: rcpt.AccountNumber, IFSC: rcpt.IFSC},
			Amount:        amount,
			TransferPIN:   pin,
			Message:       msg,
		}, key)
	} else {
		res, err = w.backend.YeetTransfer(ctx, api.TransferRequest{
			RecipientAccount: rcpt.AccountNumber,
			Amount:           amount,
			TransferPIN:      pin,
			Message:          msg,
		}, key)
	}

	w.mu.Lock()
	w.inFlight = false
	if err != nil {
		metrics.Transfers.WithLabelValues(d.Flow.String(), "failed").Inc()
		logger.Warn("transfer_failed", "flow", d.Flow.String(), "error", err)
		if gen == w.gen {
			w.draft.PIN = ""
			// a lost reply may hide an applied transfer; the retry must replay
			if serverRejected(err) {
				w.key = uuid.NewString()
			}
		}
		w.mu.Unlock()
		return nil, err
	}
	metrics.Transfers.WithLabelValues(d.Flow.String(), "ok").Inc()
	if gen == w.gen {
		w.draft.PIN = ""
		w.draft.Step = StepSuccess
		w.timer = w.clock.AfterFunc(w.delay, w.redirect)
	}
	w.mu.Unlock()

	if res.NewBalance != nil {
		w.account.ApplyBalance(*res.NewBalance)
	}
	logger.Info("transfer_completed", "flow", d.Flow.String(), "amount", d.Amount.String(), "transaction", res.TransactionID)
	return &Result{
		Flow:          d.Flow,
		Recipient:     rcpt,
		Amount:        d.Amount,
		Fee:           d.Fee,
		Message:       res.Message,
		TransactionID: res.TransactionID,
		NewBalance:    res.NewBalance,
	}, nil
}

// Back returns to the previous step, clearing amount and PIN but keeping the
// recipient. It reports false when there is no previous step, meaning the
// caller should leave the wizard.
func (w *Wizard) Back() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inFlight {
		return true
	}
	switch w.draft.Step {
	case StepAmount:
		w.draft.Step = StepRecipient
	case StepConfirm:
		w.draft.Step = StepAmount
	default:
		return false
	}
	w.draft.Amount = decimal.Zero
	w.draft.Fee = decimal.Zero
	w.draft.PIN = ""
	w.key = ""
	return true
}

// Cancel discards the draft and any pending redirect. A request already in
// flight still completes, but no longer moves the wizard.
func (w *Wizard) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gen++
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.draft = Draft{Flow: w.draft.Flow, Step: StepRecipient}
	w.key = ""
}

func (w *Wizard) redirect() {
	w.doneOnce.Do(func() { close(w.done) })
}

// expect must be called with w.mu held.
func (w *Wizard) expect(step Step) error {
	if w.draft.Step != step {
		return api.Invalid("step", "Transfer is at "+w.draft.Step.String()+", not "+step.String())
	}
	return nil
}

// serverRejected reports whether err is a definite answer from the backend
// rather than a transport or context failure.
func serverRejected(err error) bool {
	var he *api.HTTPError
	if errors.As(err, &he) || errors.Is(err, api.ErrSessionExpired) {
		return true
	}
	var te *api.TransferError
	return errors.As(err, &te) && te.Err == nil
}

func defaultMessage(flow Flow, r Recipient) string {
	switch flow {
	case External:
		return "External transfer to " + r.Name + " at " + r.Bank
	case Wire:
		return "Wire transfer to " + r.Name
	default:
		return "Transfer to " + r.Name
	}
}
