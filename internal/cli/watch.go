package cli

import (
	"bufio"
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"yeetbank/pkg/notify"
)

func (c *cli) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "watch",
		Aliases: []string{"dashboard"},
		Short:   "Keep the balance and unread count on screen",
		Long:    "Keep the balance and unread notification count on screen, refreshed on an interval. Press Enter to refresh now; Ctrl-D to quit.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := c.requireLogin(cmd.Context()); err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			c.session.OnExpired(cancel)

			counter := c.counter()
			var last string
			counter.OnChange(func(st notify.State) {
				line := dashboardLine(st)
				if line == last {
					return
				}
				last = line
				c.printf("%s\n", line)
			})
			counter.Start(ctx)
			defer counter.Stop()

			go func() {
				defer cancel()
				sc := bufio.NewScanner(c.opts.In)
				for sc.Scan() {
					counter.Focus()
				}
			}()
			<-ctx.Done()
			if !c.session.HasCredentials() {
				return fmt.Errorf("session expired; run `yeetbank login` again")
			}
			return nil
		},
	}
}

func dashboardLine(st notify.State) string {
	if !st.HasUser {
		return fmt.Sprintf("Unread notifications: %d", st.Unread)
	}
	return fmt.Sprintf("%s  Balance %s  Unread notifications: %d", st.User.FullName(), money(st.User.Balance), st.Unread)
}
