package cli

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"yeetbank/pkg/api"
)

func (c *cli) transactionsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"history"},
		Short:   "List recent transactions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := c.requireLogin(cmd.Context())
			if err != nil {
				return err
			}
			txs, err := c.client.Transactions(cmd.Context())
			if err != nil {
				return errors.New(userMessage(err))
			}
			if len(txs) == 0 {
				c.printf("No transactions yet.\n")
				return nil
			}
			if limit > 0 && len(txs) > limit {
				txs = txs[:limit]
			}
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tWHEN\tTYPE\tAMOUNT\tSTATUS\tDESCRIPTION")
			for _, tx := range txs {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
					tx.ID, humanize.Time(tx.CreatedAt), tx.TransactionType,
					signedAmount(tx, u.AccountNumber), tx.Status, tx.Description)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "show at most this many transactions (0 for all)")
	return cmd
}

// signedAmount shows money leaving the account as negative.
func signedAmount(tx api.Transaction, self string) string {
	if tx.SenderAccount == self {
		return money(tx.Amount.Add(tx.Fee).Neg())
	}
	return "+" + money(tx.Amount)
}

func (c *cli) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show account totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := c.requireLogin(cmd.Context()); err != nil {
				return err
			}
			s, err := c.client.AccountSummary(cmd.Context())
			if err != nil {
				return errors.New(userMessage(err))
			}
			c.printf("Balance:        %s\n", money(s.Balance))
			c.printf("Total sent:     %s\n", money(s.TotalSent))
			c.printf("Total received: %s\n", money(s.TotalReceived))
			c.printf("Transactions:   %s\n", humanize.Comma(int64(s.TransactionCount)))
			return nil
		},
	}
}

func (c *cli) reportCmd() *cobra.Command {
	var reason, description string
	cmd := &cobra.Command{
		Use:   "report [transaction-id]",
		Short: "Report a problem with a transaction, or list your reports",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.requireLogin(cmd.Context()); err != nil {
				return err
			}
			if len(args) == 0 {
				return c.listReports(cmd)
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid transaction id %q", args[0])
			}
			if reason == "" {
				if reason, err = c.prompt.Required("Reason"); err != nil {
					return err
				}
			}
			if description == "" {
				if description, err = c.prompt.Line("Description"); err != nil {
					return err
				}
			}
			r, err := c.client.ReportTransaction(cmd.Context(), api.ReportRequest{
				Transaction: id,
				Reason:      reason,
				Description: description,
			})
			if err != nil {
				return errors.New(userMessage(err))
			}
			c.printf("Report #%d submitted (status %s).\n", r.ID, r.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "why the transaction is being reported")
	cmd.Flags().StringVar(&description, "description", "", "details for support")
	return cmd
}

func (c *cli) listReports(cmd *cobra.Command) error {
	reports, err := c.client.Reports(cmd.Context())
	if err != nil {
		return errors.New(userMessage(err))
	}
	if len(reports) == 0 {
		c.printf("No reports filed.\n")
		return nil
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTRANSACTION\tREASON\tSTATUS\tFILED")
	for _, r := range reports {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", r.ID, r.Transaction, r.Reason, r.Status, humanize.Time(r.CreatedAt))
	}
	return tw.Flush()
}
