package main

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/entrhq/webext/pkg/extension"
)

var listInstalledOnly bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available extensions",
	Long:  `List built-in and user extensions with their install and enabled state.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listInstalledOnly, "installed", false, "Only show installed extensions")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	m, err := openManager()
	if err != nil {
		return err
	}

	metas := m.Available()
	if listInstalledOnly {
		metas = m.Installed()
	}
	if len(metas) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), tipsStyle.Render("No extensions."))
		return nil
	}

	rows := [][]string{{"ID", "NAME", "VERSION", "CATEGORY", "STATE", "CAPABILITIES"}}
	for _, meta := range metas {
		rows = append(rows, []string{
			nameStyle.Render(meta.ID),
			meta.Name,
			meta.Version,
			string(meta.Category),
			state(m.Get(meta.ID)),
			strings.Join(lo.Map(meta.Capabilities, func(c extension.Capability, _ int) string { return string(c) }), ", "),
		})
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderTable(rows))
	return nil
}

func state(ext extension.Extension, installed bool) string {
	switch {
	case !installed:
		return tipsStyle.Render("available")
	case ext.Enabled():
		return enabledStyle.Render("enabled")
	default:
		return errorStyle.Render("disabled")
	}
}
