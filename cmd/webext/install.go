package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install <id>",
	Short: "Install an available extension",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := openManager()
		if err != nil {
			return err
		}
		if err := m.InstallByID(args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), enabledStyle.Render("Installed "+args[0]))
		return nil
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <id>",
	Short: "Uninstall an extension",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := openManager()
		if err != nil {
			return err
		}
		if !m.IsInstalled(args[0]) {
			return fmt.Errorf("%s is not installed", args[0])
		}
		if err := m.Uninstall(args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Uninstalled "+args[0])
		return nil
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle <id>",
	Short: "Enable or disable an installed extension",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := openManager()
		if err != nil {
			return err
		}
		ext, ok := m.Get(args[0])
		if !ok {
			return fmt.Errorf("%s is not installed", args[0])
		}
		if err := m.Toggle(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", args[0], state(ext, true))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd, uninstallCmd, toggleCmd)
}
