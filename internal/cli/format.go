package cli

import (
	"errors"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"yeetbank/pkg/api"
)

// money renders an amount as $1,234.50.
func money(d decimal.Decimal) string {
	s := humanize.FormatFloat("#,###.##", d.Abs().InexactFloat64())
	if d.IsNegative() {
		return "-$" + s
	}
	return "$" + s
}

// userMessage is the text to show for err: backend or validation text when
// there is one, the error itself otherwise.
func userMessage(err error) string {
	var (
		ve *api.ValidationError
		te *api.TransferError
		ae *api.AuthError
		he *api.HTTPError
	)
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.As(err, &te):
		return te.Message
	case errors.As(err, &ae):
		return ae.Message
	case errors.As(err, &he):
		return he.Message("Request failed")
	case errors.Is(err, api.ErrSessionExpired):
		return "Session expired. Please log in again."
	}
	return err.Error()
}

// isBack reports whether an answer asks to go to the previous step.
func isBack(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "back" || s == "<"
}
