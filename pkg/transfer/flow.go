package transfer

import (
	"github.com/shopspring/decimal"
)

// Flow selects the transfer kind, which decides recipient rules and the fee.
type Flow int

const (
	// Internal moves money between two accounts of this bank.
	Internal Flow = iota
	// External sends to another bank through the same endpoint, for a flat fee.
	External
	// Wire is an international wire transfer.
	Wire
)

func (f Flow) String() string {
	switch f {
	case Internal:
		return "internal"
	case External:
		return "external"
	case Wire:
		return "wire"
	default:
		return "unknown"
	}
}

// Step is the wizard state.
type Step int

const (
	StepRecipient Step = iota
	StepAmount
	StepConfirm
	StepSuccess
)

func (s Step) String() string {
	switch s {
	case StepRecipient:
		return "RECIPIENT"
	case StepAmount:
		return "AMOUNT"
	case StepConfirm:
		return "CONFIRM"
	case StepSuccess:
		return "SUCCESS"
	default:
		return "UNKNOWN"
	}
}

// Fees is the flat fee schedule for the paid flows.
type Fees struct {
	External decimal.Decimal
	Wire     decimal.Decimal
}

// DefaultFees are 1.00 for external and 15.00 for wire transfers.
func DefaultFees() Fees {
	return Fees{External: decimal.RequireFromString("1.00"), Wire: decimal.RequireFromString("15.00")}
}

func (f Fees) For(flow Flow) decimal.Decimal {
	switch flow {
	case External:
		return f.External
	case Wire:
		return f.Wire
	default:
		return decimal.Zero
	}
}

// Recipient is the resolved or entered payee.
type Recipient struct {
	AccountNumber string
	Name          string
	Email         string
	Bank          string
	RoutingNumber string
	IFSC          string
}

// Draft is the in-progress transfer. Amount is zero until AMOUNT is passed.
type Draft struct {
	Flow      Flow
	Step      Step
	Recipient *Recipient
	Amount    decimal.Decimal
	Fee       decimal.Decimal
	PIN       string
	Message   string
}

// Total is amount plus fee.
func (d Draft) Total() decimal.Decimal { return d.Amount.Add(d.Fee) }

// Result describes a completed transfer.
type Result struct {
	Flow          Flow
	Recipient     Recipient
	Amount        decimal.Decimal
	Fee           decimal.Decimal
	Message       string
	TransactionID string
	NewBalance    *decimal.Decimal
}
