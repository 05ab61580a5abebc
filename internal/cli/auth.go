package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"yeetbank/pkg/api"
	"yeetbank/pkg/session"
)

func (c *cli) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [email|phone|account]",
		Short: "Sign in and remember the session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var identifier string
			if len(args) == 1 {
				identifier = strings.TrimSpace(args[0])
			} else {
				var err error
				if identifier, err = c.prompt.Required("Email, phone or account number"); err != nil {
					return err
				}
			}
			password, err := c.prompt.Secret("Password")
			if err != nil {
				return err
			}
			u, err := c.session.Login(cmd.Context(), identifier, password)
			if err != nil {
				return errors.New(userMessage(err))
			}
			c.printf("Welcome back, %s!\n", u.FullName())
			c.printf("Account %s  Balance %s\n", u.AccountNumber, money(u.Balance))
			c.banner()
			return nil
		},
	}
}

func (c *cli) registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Open a new account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var r api.Registration
			fields := []struct {
				label string
				dst   *string
			}{
				{"First name", &r.FirstName},
				{"Last name", &r.LastName},
				{"Email", &r.Email},
				{"Phone", &r.Phone},
				{"Country", &r.Country},
				{"Residential address", &r.ResidentialAddress},
			}
			for _, f := range fields {
				v, err := c.prompt.Line(f.label)
				if err != nil {
					return err
				}
				*f.dst = v
			}
			var err error
			if r.Password, err = c.prompt.Secret("Password"); err != nil {
				return err
			}
			if r.ConfirmPassword, err = c.prompt.Secret("Confirm password"); err != nil {
				return err
			}
			res, u, err := c.session.Register(cmd.Context(), r)
			if err != nil {
				return errors.New(userMessage(err))
			}
			if u == nil {
				msg := res.Message
				if msg == "" {
					msg = "Account created."
				}
				c.printf("%s Run `yeetbank login %s` to sign in.\n", msg, r.Email)
				return nil
			}
			c.printf("Welcome to Yeet Bank, %s!\n", u.FullName())
			c.printf("Your account number is %s.\n", u.AccountNumber)
			return nil
		},
	}
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.session.Logout(cmd.Context()); err != nil {
				c.printf("Signed out locally (server said: %s)\n", userMessage(err))
				return nil
			}
			c.printf("Logged out successfully\n")
			return nil
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "whoami",
		Aliases: []string{"balance"},
		Short:   "Show the signed-in account and balance",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := c.requireLogin(cmd.Context())
			if err != nil {
				return err
			}
			c.printUser(u)
			c.banner()
			return nil
		},
	}
}

func (c *cli) printUser(u api.User) {
	c.printf("%s <%s>\n", u.FullName(), u.Email)
	c.printf("Account:  %s\n", u.AccountNumber)
	c.printf("Balance:  %s\n", money(u.Balance))
	if u.IsStaff {
		c.printf("Role:     support staff\n")
	}
	if !u.HasTransferPIN {
		c.printf("No transfer PIN set yet; run `yeetbank settings pin`.\n")
	}
}

func (c *cli) profileCmd() *cobra.Command {
	var first, last, phone, country, address string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update profile details",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := c.requireLogin(cmd.Context()); err != nil {
				return err
			}
			var upd api.ProfileUpdate
			changed := false
			set := func(flag string, v *string, dst **string) {
				if cmd.Flags().Changed(flag) {
					*dst = v
					changed = true
				}
			}
			set("first-name", &first, &upd.FirstName)
			set("last-name", &last, &upd.LastName)
			set("phone", &phone, &upd.Phone)
			set("country", &country, &upd.Country)
			set("address", &address, &upd.ResidentialAddress)
			if !changed {
				u, _ := c.session.Identity()
				c.printUser(u)
				c.printf("Phone:    %s\nCountry:  %s\nAddress:  %s\n", u.Phone, u.Country, u.ResidentialAddress)
				return nil
			}
			if _, err := c.client.UpdateProfile(cmd.Context(), upd); err != nil {
				return errors.New(userMessage(err))
			}
			u, err := c.requireLogin(cmd.Context())
			if err != nil {
				return err
			}
			c.printf("Profile updated.\n")
			c.printUser(u)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&first, "first-name", "", "new first name")
	f.StringVar(&last, "last-name", "", "new last name")
	f.StringVar(&phone, "phone", "", "new phone number")
	f.StringVar(&country, "country", "", "new country")
	f.StringVar(&address, "address", "", "new residential address")
	return cmd
}

func (c *cli) settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Change transfer PIN or password",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "pin",
			Short: "Set or change the 4-digit transfer PIN",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				u, err := c.requireLogin(cmd.Context())
				if err != nil {
					return err
				}
				var current string
				if u.HasTransferPIN {
					if current, err = c.prompt.Secret("Current PIN"); err != nil {
						return err
					}
				}
				next, err := c.prompt.Secret("New PIN")
				if err != nil {
					return err
				}
				confirm, err := c.prompt.Secret("Confirm new PIN")
				if err != nil {
					return err
				}
				if err := session.ValidatePINChange(u.HasTransferPIN, current, next, confirm); err != nil {
					return errors.New(userMessage(err))
				}
				if err := c.client.ChangePIN(cmd.Context(), current, next); err != nil {
					return errors.New(userMessage(err))
				}
				c.printf("PIN changed successfully!\n")
				return nil
			},
		},
		&cobra.Command{
			Use:   "password",
			Short: "Change the account password",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if _, err := c.requireLogin(cmd.Context()); err != nil {
					return err
				}
				current, err := c.prompt.Secret("Current password")
				if err != nil {
					return err
				}
				next, err := c.prompt.Secret("New password")
				if err != nil {
					return err
				}
				confirm, err := c.prompt.Secret("Confirm new password")
				if err != nil {
					return err
				}
				if err := session.ValidatePasswordChange(current, next, confirm); err != nil {
					return errors.New(userMessage(err))
				}
				if err := c.client.ChangePassword(cmd.Context(), current, next); err != nil {
					return errors.New(userMessage(err))
				}
				c.printf("Password changed successfully!\n")
				return nil
			},
		},
	)
	return cmd
}
