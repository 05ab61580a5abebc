package api

import (
	"context"
	"errors"
	"net/http"
)

// ValidateReceiver resolves an internal account number to its holder.
func (c *Client) ValidateReceiver(ctx context.Context, accountNumber string) (*Receiver, error) {
	var out ValidateReceiverResponse
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/transfers/validate-receiver/",
		body:   map[string]string{"account_number": accountNumber},
	}, &out)
	if err != nil {
		return nil, transferError(err, "Failed to validate account")
	}
	if !out.Valid || out.Receiver == nil {
		msg := out.Error
		if msg == "" {
			msg = "Account not found"
		}
		return nil, &TransferError{Message: msg}
	}
	return out.Receiver, nil
}

// YeetTransfer moves money to another account. idempotencyKey is sent as
// the Idempotency-Key header when non-empty.
func (c *Client) YeetTransfer(ctx context.Context, req TransferRequest, idempotencyKey string) (*TransferResponse, error) {
	return c.transfer(ctx, "/transactions/api/yeet_transfer/", req, idempotencyKey, "Transfer failed. Please try again.")
}

func (c *Client) WireTransfer(ctx context.Context, req WireTransferRequest, idempotencyKey string) (*TransferResponse, error) {
	return c.transfer(ctx, "/transactions/api/wire_transfer/", req, idempotencyKey, "Wire transfer failed. Please try again.")
}

func (c *Client) transfer(ctx context.Context, path string, body any, key, fallback string) (*TransferResponse, error) {
	var out TransferResponse
	cl := call{method: http.MethodPost, path: path, body: body}
	if key != "" {
		cl.header = map[string]string{"Idempotency-Key": key}
	}
	if err := c.do(ctx, cl, &out); err != nil {
		return nil, transferError(err, fallback)
	}
	if !out.Success {
		msg := out.Error
		if msg == "" {
			msg = "Transfer failed"
		}
		return nil, &TransferError{Message: msg}
	}
	return &out, nil
}

func (c *Client) Transactions(ctx context.Context) ([]Transaction, error) {
	var out []Transaction
	if err := c.do(ctx, call{method: http.MethodGet, path: "/transactions/api/my_transactions/"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AccountSummary(ctx context.Context) (*AccountSummary, error) {
	var out AccountSummary
	if err := c.do(ctx, call{method: http.MethodGet, path: "/transactions/api/account_summary/"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReportTransaction files a dispute against one of the user's transactions.
func (c *Client) ReportTransaction(ctx context.Context, r ReportRequest) (*Report, error) {
	if r.Transaction == 0 {
		return nil, Invalid("transaction", "Select a transaction to report")
	}
	if r.Reason == "" {
		return nil, Invalid("reason", "Select a reason")
	}
	var out Report
	if err := c.do(ctx, call{method: http.MethodPost, path: "/transactions/api/reports/create/", body: r}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Reports(ctx context.Context) ([]Report, error) {
	var out []Report
	if err := c.do(ctx, call{method: http.MethodGet, path: "/transactions/api/reports/"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// transferError keeps session expiry visible and turns server rejections
// into TransferError with the backend text.
func transferError(err error, fallback string) error {
	if errors.Is(err, ErrSessionExpired) {
		return err
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return &TransferError{Message: TransferMessage(he.Payload, fallback), Err: err}
	}
	return &TransferError{Message: fallback, Err: err}
}
