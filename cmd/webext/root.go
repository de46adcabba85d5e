package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/entrhq/webext/pkg/config"
	"github.com/entrhq/webext/pkg/extension/userscript"
	"github.com/entrhq/webext/pkg/manager"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "webext",
	Short: "Browse with extensions and manage them",
	Long: `webext opens web pages in Chromium with the extension manager deciding
which requests are blocked or rewritten and which scripts run in each page.

Built-in extensions (content-blocker, dark-mode, user-agent) and extensions
installed under ~/.webext/extensions are managed with the subcommands below.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		if err := config.Initialize(configPath); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (default ~/.webext/config.json)")
}

// openManager builds an initialized extension manager over the global
// configuration, including extensions from the user catalog.
func openManager() (*manager.Manager, error) {
	store, err := config.NewExtensionStore(config.Global())
	if err != nil {
		return nil, err
	}

	var opts []manager.Option
	if dir, err := userscript.DefaultDir(); err == nil {
		opts = append(opts, manager.WithUserCatalog(userscript.NewCatalog(dir)))
	}

	m := manager.New(store, opts...)
	if err := m.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize extensions: %w", err)
	}
	return m, nil
}
