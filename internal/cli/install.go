package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// completionPath is where install writes the completion script for shell.
func (c *cli) completionPath(shell string) string {
	if shell == "" {
		return ""
	}
	return filepath.Join(c.cfg.State.Dir, "completion."+shell)
}

// banner suggests installing shell completion until it is installed or
// dismissed.
func (c *cli) banner() {
	if c.caps == nil || !c.caps.ShowBanner() {
		return
	}
	c.printf("\nTip: run `yeetbank install` to enable %s completion, or `yeetbank install --dismiss` to hide this.\n", c.caps.Shell())
}

func (c *cli) installCmd(root *cobra.Command) *cobra.Command {
	var dismiss bool
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install shell completion for yeetbank",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dismiss {
				if err := c.caps.Dismiss(); err != nil {
					return err
				}
				c.printf("Install hint dismissed.\n")
				return nil
			}
			shell := c.caps.Shell()
			if shell == "" {
				return fmt.Errorf("unsupported shell %q; bash, zsh, fish and powershell are supported", os.Getenv("SHELL"))
			}
			path := c.completionPath(shell)
			f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
			if err != nil {
				return err
			}
			switch shell {
			case "bash":
				err = root.GenBashCompletionV2(f, true)
			case "zsh":
				err = root.GenZshCompletion(f)
			case "fish":
				err = root.GenFishCompletion(f, true)
			case "powershell":
				err = root.GenPowerShellCompletionWithDesc(f)
			}
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("write completion: %w", err)
			}
			if err := c.caps.MarkInstalled(); err != nil {
				return err
			}
			c.printf("Wrote %s completion to %s\n", shell, path)
			c.printf("Add `source %s` to your shell profile to enable it.\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dismiss, "dismiss", false, "stop suggesting the install")
	return cmd
}
