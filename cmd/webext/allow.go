package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/entrhq/webext/pkg/builtin/contentblocker"
	"github.com/entrhq/webext/pkg/manager"
)

var allowRemove bool

var allowCmd = &cobra.Command{
	Use:   "allow [domain]",
	Short: "Exempt a site from content blocking",
	Long: `Add a domain and its subdomains to the content blocker's allow-list,
or remove it with --remove. Without a domain the allow-list is printed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAllow,
}

func init() {
	allowCmd.Flags().BoolVar(&allowRemove, "remove", false, "Remove the domain from the allow-list")
	rootCmd.AddCommand(allowCmd)
}

func runAllow(cmd *cobra.Command, args []string) error {
	m, err := openManager()
	if err != nil {
		return err
	}
	blocker, err := contentBlocker(m)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		list := blocker.AllowList()
		if len(list) == 0 {
			fmt.Fprintln(out, tipsStyle.Render("No sites are allowed."))
			return nil
		}
		fmt.Fprintln(out, strings.Join(list, "\n"))
		return nil
	}

	if allowRemove {
		blocker.Disallow(args[0])
	} else {
		blocker.Allow(args[0])
	}
	if err := m.SavePreferences(contentblocker.ID); err != nil {
		return err
	}
	m.InvalidateScripts(contentblocker.ID)

	if allowRemove {
		fmt.Fprintf(out, "Blocking content on %s again\n", args[0])
	} else {
		fmt.Fprintln(out, enabledStyle.Render("Allowed "+args[0]))
	}
	return nil
}

func contentBlocker(m *manager.Manager) (*contentblocker.Blocker, error) {
	ext, ok := m.Get(contentblocker.ID)
	if !ok {
		return nil, fmt.Errorf("%s is not installed", contentblocker.ID)
	}
	blocker, ok := ext.(*contentblocker.Blocker)
	if !ok {
		return nil, fmt.Errorf("%s has unexpected type %T", contentblocker.ID, ext)
	}
	return blocker, nil
}
