package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/entrhq/webext/pkg/config"
	"github.com/entrhq/webext/pkg/manager"
	"github.com/entrhq/webext/pkg/surface"
)

var (
	browsePrivate  bool
	browseHeadless bool
)

var browseCmd = &cobra.Command{
	Use:   "browse [url]",
	Short: "Open a page with extensions active",
	Long: `Open a Chromium tab routed through the extension manager and read
commands from stdin to navigate and drive extension toolbar and menu items.

Private browsing keeps cookies and storage in memory and never writes
configuration changes back to disk.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().BoolVar(&browsePrivate, "private", false, "Use an ephemeral profile and do not persist settings")
	browseCmd.Flags().BoolVar(&browseHeadless, "headless", false, "Run without a browser window")
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	settings := config.BrowserSettings{ViewportWidth: surface.DefaultViewportWidth, ViewportHeight: surface.DefaultViewportHeight}
	if browser := config.GetBrowser(); browser != nil {
		settings = browser.Snapshot()
	}
	private := browsePrivate || settings.Private

	if private {
		if err := config.InitializeEphemeral(configPath); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
	}

	m, err := openManager()
	if err != nil {
		return err
	}

	opts := surface.TabOptions{
		Partition: surface.PartitionPersistent,
		Headless:  browseHeadless || settings.Headless,
		Viewport:  &surface.Viewport{Width: settings.ViewportWidth, Height: settings.ViewportHeight},
		Policy:    m,
		OnNewTab: func(tab *surface.Tab) {
			if _, err := m.NewSession(tab); err != nil {
				fmt.Fprintln(os.Stderr, errorStyle.Render("popup: "+err.Error()))
			}
		},
	}
	if private {
		opts.Partition = surface.PartitionEphemeral
	} else {
		opts.UserDataDir, err = profileDir(settings.UserDataDir)
		if err != nil {
			return err
		}
	}

	browser := surface.NewBrowser()
	if err := browser.Initialize(); err != nil {
		return err
	}
	defer browser.Shutdown()

	tab, err := browser.NewTab(opts)
	if err != nil {
		return err
	}
	session, err := m.NewSession(tab)
	if err != nil {
		return err
	}

	start := settings.StartURL
	if len(args) == 1 {
		start = args[0]
	}
	if start != "" {
		if err := session.Navigate(ctx, start); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render(err.Error()))
		}
	}

	c := &console{
		out:     cmd.OutOrStdout(),
		manager: m,
		session: session,
		tab:     tab,
	}
	return c.run(ctx, cmd.InOrStdin())
}

// profileDir resolves the persistent profile, defaulting to a directory
// beside the configuration file.
func profileDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	path := configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return "", err
		}
	}
	return filepath.Join(filepath.Dir(path), "profile"), nil
}

// console is the line-oriented control loop of a browse session.
type console struct {
	out     io.Writer
	manager *manager.Manager
	session *manager.Session
	tab     *surface.Tab
}

const consoleHelp = `Commands:
  go <url>              navigate
  reload | back | forward
  toolbar               list toolbar items
  tap <extension>       tap an extension's toolbar item
  menu [selection]      list context-menu items
  select <ext> <item>   choose a context-menu item
  stats                 bridge message counters
  help | quit`

func (c *console) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		reader := bufio.NewReader(in)
		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				lines <- strings.TrimSpace(line)
			}
			if err != nil {
				return
			}
		}
	}()

	fmt.Fprintln(c.out, boxStyle.Render(consoleHelp))
	c.prompt()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := c.exec(ctx, strings.Fields(line)); quit {
				return nil
			}
			c.prompt()
		}
	}
}

func (c *console) prompt() {
	fmt.Fprint(c.out, headerStyle.Render(c.session.URL()+" > "))
}

func (c *console) exec(ctx context.Context, fields []string) (quit bool) {
	if len(fields) == 0 {
		return false
	}

	var err error
	switch cmd, rest := fields[0], fields[1:]; cmd {
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprintln(c.out, consoleHelp)
	case "go", "open":
		if len(rest) != 1 {
			err = fmt.Errorf("usage: go <url>")
			break
		}
		err = c.session.Navigate(ctx, rest[0])
	case "reload":
		err = c.session.ReloadContext(ctx)
	case "back":
		err = c.tab.GoBack(ctx)
	case "forward":
		err = c.tab.GoForward(ctx)
	case "toolbar":
		rows := [][]string{{"EXTENSION", "ITEM", "TITLE", "BADGE"}}
		for _, e := range c.session.ToolbarItems() {
			rows = append(rows, []string{e.ExtensionID, e.Item.ID, e.Item.Title, e.Item.Badge})
		}
		fmt.Fprintln(c.out, renderTable(rows))
	case "tap":
		if len(rest) != 1 {
			err = fmt.Errorf("usage: tap <extension>")
			break
		}
		c.session.TapToolbarItem(rest[0])
	case "menu":
		rows := [][]string{{"EXTENSION", "ITEM", "TITLE"}}
		for _, e := range c.session.ContextMenuItems(strings.Join(rest, " ")) {
			rows = append(rows, []string{e.ExtensionID, e.Item.ID, e.Item.Title})
		}
		fmt.Fprintln(c.out, renderTable(rows))
	case "select":
		if len(rest) != 2 {
			err = fmt.Errorf("usage: select <extension> <item>")
			break
		}
		c.session.SelectContextMenuItem(rest[0], rest[1])
	case "stats":
		stats := c.manager.MessageStats()
		fmt.Fprintf(c.out, "delivered %d, dropped %d\n", stats.Delivered, stats.Dropped)
	default:
		err = fmt.Errorf("unknown command %q, try help", cmd)
	}

	if err != nil {
		fmt.Fprintln(c.out, errorStyle.Render(err.Error()))
	}
	return false
}
