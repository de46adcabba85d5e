package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/entrhq/webext/pkg/builtin/useragent"
)

var (
	uaSite  string
	uaReset bool
)

var uaCmd = &cobra.Command{
	Use:   "ua [preset|string]",
	Short: "Set the spoofed user agent",
	Long: `Set the user agent sent to every site, or to one site and its subdomains
with --site. The value is a preset name or slug, or a literal user agent.
Without a value the presets and current settings are printed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUA,
}

func init() {
	uaCmd.Flags().StringVar(&uaSite, "site", "", "Only apply to this domain")
	uaCmd.Flags().BoolVar(&uaReset, "reset", false, "Clear the global value, or the --site override")
	rootCmd.AddCommand(uaCmd)
}

func runUA(cmd *cobra.Command, args []string) error {
	m, err := openManager()
	if err != nil {
		return err
	}
	ext, ok := m.Get(useragent.ID)
	if !ok {
		return fmt.Errorf("%s is not installed", useragent.ID)
	}
	spoofer, ok := ext.(*useragent.Spoofer)
	if !ok {
		return fmt.Errorf("%s has unexpected type %T", useragent.ID, ext)
	}

	out := cmd.OutOrStdout()

	switch {
	case uaReset && uaSite != "":
		spoofer.RemoveOverride(uaSite)
	case uaReset:
		spoofer.ClearGlobal()
	case len(args) == 0:
		printUA(cmd, spoofer)
		return nil
	case uaSite != "":
		spoofer.SetOverride(uaSite, args[0])
	default:
		spoofer.SetGlobal(args[0])
	}

	if err := m.SavePreferences(useragent.ID); err != nil {
		return err
	}
	fmt.Fprintln(out, enabledStyle.Render("User agent updated"))
	return nil
}

func printUA(cmd *cobra.Command, spoofer *useragent.Spoofer) {
	out := cmd.OutOrStdout()

	rows := [][]string{{"PRESET", "SLUG", "USER AGENT"}}
	for _, p := range useragent.Presets {
		rows = append(rows, []string{p.Name, p.Slug, tipsStyle.Render(p.UserAgent)})
	}
	fmt.Fprintln(out, renderTable(rows))
	fmt.Fprintln(out)

	global := spoofer.Global()
	if global == "" {
		global = tipsStyle.Render("(browser default)")
	}
	fmt.Fprintln(out, headerStyle.Render("Global:")+" "+global)
	for domain, value := range spoofer.Overrides() {
		fmt.Fprintf(out, "%s %s\n", nameStyle.Render(domain+":"), value)
	}
}
