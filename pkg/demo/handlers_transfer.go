package demo

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"

	"yeetbank/pkg/router"
)

func (s *Server) handleValidateReceiver(ctx *fasthttp.RequestCtx, userID int64) {
	var req struct {
		AccountNumber string `json:"account_number"`
	}
	if err := router.ReadJSON(ctx, &req); err != nil || req.AccountNumber == "" {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "error", "account_number is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.byAccountNumber(strings.TrimSpace(req.AccountNumber))
	if a == nil {
		router.WriteJSON(ctx, fasthttp.StatusOK, map[string]any{"valid": false, "error": "Account not found"})
		return
	}
	if a.ID == userID {
		router.WriteJSON(ctx, fasthttp.StatusOK, map[string]any{"valid": false, "error": "Cannot transfer to your own account"})
		return
	}
	router.WriteJSON(ctx, fasthttp.StatusOK, map[string]any{
		"valid": true,
		"receiver": map[string]string{
			"first_name":     a.FirstName,
			"last_name":      a.LastName,
			"email":          a.Email,
			"account_number": a.AccountNumber,
		},
	})
}

type transferInput struct {
	amount    decimal.Decimal
	pin       string
	message   string
	recipient string // account number, may be outside the bank
	payee     string // display name for external and wire transfers
	fee       decimal.Decimal
	kind      string
}

func (s *Server) handleYeetTransfer(ctx *fasthttp.RequestCtx, userID int64) {
	var req struct {
		RecipientAccount string          `json:"recipient_account"`
		Amount           decimal.Decimal `json:"amount"`
		TransferPIN      string          `json:"transfer_pin"`
		Message          string          `json:"message"`
	}
	if err := router.ReadJSON(ctx, &req); err != nil {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "error", "Malformed request body")
		return
	}
	in := transferInput{
		amount:    req.Amount,
		pin:       req.TransferPIN,
		message:   req.Message,
		recipient: strings.TrimSpace(req.RecipientAccount),
		kind:      "TRANSFER",
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byAccountNumber(in.recipient) == nil {
		// not one of ours: an external transfer
		in.kind = "EXTERNAL"
		in.fee = s.externalFee
	}
	s.executeTransfer(ctx, userID, in)
}

func (s *Server) handleWireTransfer(ctx *fasthttp.RequestCtx, userID int64) {
	var req struct {
		RecipientInfo struct {
			Name    string `json:"name"`
			Bank    string `json:"bank"`
			Account string `json:"account"`
			IFSC    string `json:"ifsc"`
		} `json:"recipient_info"`
		Amount      decimal.Decimal `json:"amount"`
		TransferPIN string          `json:"transfer_pin"`
		Message     string          `json:"message"`
	}
	if err := router.ReadJSON(ctx, &req); err != nil {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "error", "Malformed request body")
		return
	}
	ri := req.RecipientInfo
	if ri.Name == "" || ri.Bank == "" || ri.Account == "" || ri.IFSC == "" {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "error", "Recipient name, bank, account and IFSC/SWIFT code are required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executeTransfer(ctx, userID, transferInput{
		amount:    req.Amount,
		pin:       req.TransferPIN,
		message:   req.Message,
		recipient: ri.Account,
		payee:     ri.Name + " (" + ri.Bank + ")",
		fee:       s.wireFee,
		kind:      "WIRE",
	})
}

// executeTransfer debits the sender and, for internal accounts, credits the
// recipient. Called with s.mu held.
func (s *Server) executeTransfer(ctx *fasthttp.RequestCtx, userID int64, in transferInput) {
	sender := s.accounts[userID]
	if !in.amount.IsPositive() {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "error", "Amount must be greater than zero")
		return
	}
	if sender.PIN == "" {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "error", "Set a transfer PIN before sending money")
		return
	}
	if sender.PIN != in.pin {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "error", "Invalid transfer PIN")
		return
	}
	if in.recipient == sender.AccountNumber {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "error", "Cannot transfer to your own account")
		return
	}
	total := in.amount.Add(in.fee)
	if total.GreaterThan(sender.Balance) {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "error", "Insufficient balance")
		return
	}

	now := s.clock.Now()
	ref := fmt.Sprintf("YB%d", now.UnixNano())
	sender.Balance = sender.Balance.Sub(total)
	out := &transaction{
		id: s.id(), reference: ref, kind: in.kind, amount: in.amount, fee: in.fee, status: "COMPLETED",
		description: in.message, sender: sender.AccountNumber, recipient: in.recipient, ownerID: sender.ID, createdAt: now,
	}
	s.transactions = append(s.transactions, out)

	payee := in.payee
	if recv := s.byAccountNumber(in.recipient); recv != nil && in.kind != "WIRE" {
		recv.Balance = recv.Balance.Add(in.amount)
		payee = recv.name()
		s.transactions = append(s.transactions, &transaction{
			id: s.id(), reference: ref, kind: "DEPOSIT", amount: in.amount, status: "COMPLETED",
			description: in.message, sender: sender.AccountNumber, recipient: recv.AccountNumber, ownerID: recv.ID, createdAt: now,
		})
		s.notify(recv.ID, "Money received", fmt.Sprintf("You received $%s from %s", in.amount.StringFixed(2), sender.name()), "transfer")
	}
	if payee == "" {
		payee = in.recipient
	}
	s.notify(sender.ID, "Transfer sent", fmt.Sprintf("You sent $%s to %s", in.amount.StringFixed(2), payee), "transfer")

	router.WriteJSON(ctx, fasthttp.StatusOK, map[string]any{
		"success":        true,
		"message":        "Transfer successful!",
		"new_balance":    sender.Balance,
		"transaction_id": ref,
	})
}

func txJSON(t *transaction) map[string]any {
	return map[string]any{
		"id":                t.id,
		"reference":         t.reference,
		"transaction_type":  t.kind,
		"amount":            t.amount,
		"fee":               t.fee,
		"status":            t.status,
		"description":       t.description,
		"sender_account":    t.sender,
		"recipient_account": t.recipient,
		"created_at":        t.createdAt.UTC().Format(time.RFC3339Nano),
	}
}

// handleTransactions lists the caller's ledger rows, newest first.
func (s *Server) handleTransactions(ctx *fasthttp.RequestCtx, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0)
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if t := s.transactions[i]; t.ownerID == userID {
			out = append(out, txJSON(t))
		}
	}
	router.WriteJSON(ctx, fasthttp.StatusOK, out)
}

func (s *Server) handleAccountSummary(ctx *fasthttp.RequestCtx, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accounts[userID]
	sent, recv := decimal.Zero, decimal.Zero
	n := 0
	for _, t := range s.transactions {
		if t.ownerID != userID {
			continue
		}
		n++
		if t.kind == "DEPOSIT" {
			recv = recv.Add(t.amount)
		} else {
			sent = sent.Add(t.amount)
		}
	}
	router.WriteJSON(ctx, fasthttp.StatusOK, map[string]any{
		"balance":           a.Balance,
		"total_sent":        sent,
		"total_received":    recv,
		"transaction_count": n,
	})
}

func (s *Server) handleCreateReport(ctx *fasthttp.RequestCtx, userID int64) {
	var req struct {
		Transaction int64  `json:"transaction"`
		Reason      string `json:"reason"`
		Description string `json:"description"`
	}
	if err := router.ReadJSON(ctx, &req); err != nil {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "error", "Malformed request body")
		return
	}
	if req.Reason == "" {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "error", "reason is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	owned := false
	for _, t := range s.transactions {
		if t.id == req.Transaction && t.ownerID == userID {
			owned = true
			break
		}
	}
	if !owned {
		router.WriteJSONError(ctx, fasthttp.StatusNotFound, "error", "Transaction not found")
		return
	}
	r := &report{id: s.id(), ownerID: userID, transaction: req.Transaction, reason: req.Reason, description: req.Description, createdAt: s.clock.Now()}
	s.reports = append(s.reports, r)
	router.WriteJSON(ctx, fasthttp.StatusCreated, reportJSON(r))
}

func reportJSON(r *report) map[string]any {
	return map[string]any{
		"id":          r.id,
		"transaction": r.transaction,
		"reason":      r.reason,
		"description": r.description,
		"status":      "PENDING",
		"created_at":  r.createdAt.UTC().Format(time.RFC3339Nano),
	}
}

func (s *Server) handleReports(ctx *fasthttp.RequestCtx, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mine := make([]*report, 0)
	for _, r := range s.reports {
		if r.ownerID == userID {
			mine = append(mine, r)
		}
	}
	sort.Slice(mine, func(i, j int) bool { return mine[i].id > mine[j].id })
	out := make([]map[string]any, 0, len(mine))
	for _, r := range mine {
		out = append(out, reportJSON(r))
	}
	router.WriteJSON(ctx, fasthttp.StatusOK, out)
}
