package cli

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"yeetbank/pkg/notify"
)

func (c *cli) counter() *notify.Counter {
	return notify.New(c.client, c.session, notify.Options{
		Clock:    c.opts.Clock,
		Interval: c.cfg.Dashboard.RefreshInterval.Duration(),
	})
}

func (c *cli) notificationsCmd() *cobra.Command {
	var unread bool
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notes"},
		Short:   "List notifications",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := c.requireLogin(cmd.Context()); err != nil {
				return err
			}
			list, err := c.client.Notifications(cmd.Context())
			if err != nil {
				return errors.New(userMessage(err))
			}
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\t \tWHEN\tTITLE\tMESSAGE")
			shown := 0
			for _, n := range list {
				if unread && n.Read {
					continue
				}
				mark := " "
				if !n.Read {
					mark = "*"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", n.ID, mark, humanize.Time(n.CreatedAt), n.Title, n.Message)
				shown++
			}
			if shown == 0 {
				c.printf("No notifications.\n")
				return nil
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVarP(&unread, "unread", "u", false, "only unread notifications")
	cmd.AddCommand(&cobra.Command{
		Use:   "read ID",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.requireLogin(cmd.Context()); err != nil {
				return err
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid notification id %q", args[0])
			}
			counter := c.counter()
			counter.Refresh(cmd.Context())
			if err := counter.MarkRead(cmd.Context(), id); err != nil {
				return errors.New(userMessage(err))
			}
			c.printf("Marked as read. %d unread.\n", counter.State().Unread)
			return nil
		},
	})
	return cmd
}
