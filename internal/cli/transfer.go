package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"yeetbank/internal/cli/prompt"
	"yeetbank/pkg/transfer"
)

// transferFlags pre-answer wizard prompts. Each is used once; a rejected
// value falls back to asking.
type transferFlags struct {
	to       string
	name     string
	bank     string
	routing  string
	ifsc     string
	amount   string
	message  string
	pin      string
	noMsgAsk bool
}

// take returns *v and clears it.
func take(v *string) string {
	s := *v
	*v = ""
	return s
}

func (c *cli) transferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Send money",
		Long:  "Send money to another Yeet Bank account (internal, free), a bank account elsewhere (external) or abroad (wire).",
	}
	cmd.AddCommand(
		c.transferFlowCmd(transfer.Internal, "internal", "Transfer to another Yeet Bank account"),
		c.transferFlowCmd(transfer.External, "external", "Transfer to an account at another bank"),
		c.transferFlowCmd(transfer.Wire, "wire", "International wire transfer"),
	)
	return cmd
}

func (c *cli) transferFlowCmd(flow transfer.Flow, use, short string) *cobra.Command {
	var tf transferFlags
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := c.requireLogin(cmd.Context()); err != nil {
				return err
			}
			tf.noMsgAsk = cmd.Flags().Changed("amount") && cmd.Flags().Changed("pin")
			return c.runTransfer(cmd.Context(), flow, &tf)
		},
	}
	f := cmd.Flags()
	f.StringVar(&tf.to, "to", "", "recipient account number")
	if flow != transfer.Internal {
		f.StringVar(&tf.name, "name", "", "recipient name")
		f.StringVar(&tf.bank, "bank", "", "recipient bank")
	}
	switch flow {
	case transfer.External:
		f.StringVar(&tf.routing, "routing", "", "routing number")
	case transfer.Wire:
		f.StringVar(&tf.ifsc, "ifsc", "", "IFSC / SWIFT code")
	}
	f.StringVar(&tf.amount, "amount", "", "amount to send")
	f.StringVar(&tf.message, "message", "", "message for the recipient")
	f.StringVar(&tf.pin, "pin", "", "4-digit transfer PIN")
	return cmd
}

func (c *cli) runTransfer(ctx context.Context, flow transfer.Flow, tf *transferFlags) error {
	w := transfer.New(flow, c.client, c.session, transfer.Options{
		Clock:         c.opts.Clock,
		RedirectDelay: c.cfg.Transfer.RedirectDelay.Duration(),
		Fees: transfer.Fees{
			External: c.cfg.Transfer.ExternalFee.Decimal,
			Wire:     c.cfg.Transfer.WireFee.Decimal,
		},
	})
	defer w.Cancel()

	c.printf("Available balance: %s (type \"back\" to go to the previous step)\n", money(c.session.Balance()))
	for {
		var err error
		switch w.Step() {
		case transfer.StepRecipient:
			err = c.askRecipient(ctx, w, flow, tf)
		case transfer.StepAmount:
			err = c.askAmount(w, tf)
		case transfer.StepConfirm:
			err = c.askConfirm(ctx, w, tf)
		case transfer.StepSuccess:
			return c.finishTransfer(ctx, w)
		}
		switch {
		case errors.Is(err, errLeave):
			c.printf("Transfer cancelled.\n")
			return nil
		case errors.Is(err, prompt.ErrAborted), errors.Is(err, context.Canceled):
			return err
		case err != nil:
			c.printf("%s\n", userMessage(err))
		}
	}
}

var errLeave = errors.New("leave transfer")

// answer uses the flag value if one is pending, otherwise prompts.
func (c *cli) answer(v *string, label string, secret bool) (string, error) {
	if s := take(v); s != "" {
		return s, nil
	}
	if secret {
		return c.prompt.Secret(label)
	}
	return c.prompt.Line(label)
}

func (c *cli) askRecipient(ctx context.Context, w *transfer.Wizard, flow transfer.Flow, tf *transferFlags) error {
	if flow == transfer.Internal {
		acct, err := c.answer(&tf.to, "Recipient account number", false)
		if err != nil {
			return err
		}
		if isBack(acct) {
			return errLeave
		}
		r, err := w.LookupRecipient(ctx, acct)
		if err != nil {
			return err
		}
		c.printf("Recipient: %s <%s> %s\n", r.Name, r.Email, r.AccountNumber)
		return nil
	}

	var r transfer.Recipient
	type field struct {
		label string
		flag  *string
		dst   *string
	}
	fields := []field{
		{"Recipient name", &tf.name, &r.Name},
		{"Bank name", &tf.bank, &r.Bank},
		{"Account number", &tf.to, &r.AccountNumber},
	}
	if flow == transfer.External {
		fields = append(fields, field{"Routing number", &tf.routing, &r.RoutingNumber})
	} else {
		fields = append(fields, field{"IFSC / SWIFT code", &tf.ifsc, &r.IFSC})
	}
	for _, f := range fields {
		v, err := c.answer(f.flag, f.label, false)
		if err != nil {
			return err
		}
		if isBack(v) {
			return errLeave
		}
		*f.dst = v
	}
	return w.SetRecipient(r)
}

func (c *cli) askAmount(w *transfer.Wizard, tf *transferFlags) error {
	raw, err := c.answer(&tf.amount, "Amount", false)
	if err != nil {
		return err
	}
	if isBack(raw) {
		if !w.Back() {
			return errLeave
		}
		return nil
	}
	if err := w.EnterAmount(raw); err != nil {
		return err
	}
	msg := take(&tf.message)
	if msg == "" && !tf.noMsgAsk {
		if msg, err = c.prompt.Line("Message (optional)"); err != nil {
			return err
		}
	}
	w.SetMessage(msg)
	return nil
}

func (c *cli) askConfirm(ctx context.Context, w *transfer.Wizard, tf *transferFlags) error {
	d := w.Draft()
	c.printf("\nConfirm transfer\n")
	c.printf("  To:      %s", d.Recipient.Name)
	if d.Recipient.Bank != "" {
		c.printf(" (%s)", d.Recipient.Bank)
	}
	c.printf("\n  Account: %s\n", d.Recipient.AccountNumber)
	c.printf("  Amount:  %s\n", money(d.Amount))
	if d.Fee.IsPositive() {
		c.printf("  Fee:     %s\n", money(d.Fee))
	}
	c.printf("  Total:   %s\n", money(d.Total()))
	if d.Message != "" {
		c.printf("  Message: %s\n", d.Message)
	}

	pin, err := c.answer(&tf.pin, "Transfer PIN", true)
	if err != nil {
		return err
	}
	if isBack(pin) {
		w.Back()
		return nil
	}
	_, err = w.Confirm(ctx, strings.TrimSpace(pin))
	return err
}

func (c *cli) finishTransfer(ctx context.Context, w *transfer.Wizard) error {
	d := w.Draft()
	c.printf("\nTransfer successful!\n")
	c.printf("Sent %s to %s.\n", money(d.Amount), d.Recipient.Name)
	c.printf("New balance: %s\n", money(c.session.Balance()))
	select {
	case <-w.Redirected():
	case <-ctx.Done():
		return ctx.Err()
	}
	if u, ok := c.session.CurrentIdentity(ctx); ok {
		c.printf("Dashboard balance: %s\n", money(u.Balance))
	}
	return nil
}
