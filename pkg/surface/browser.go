package surface

import (
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/webext/pkg/logging"
)

const (
	// DefaultMaxTabs bounds how many tabs a Browser keeps open
	DefaultMaxTabs = 16

	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720

	// DefaultTimeout is the navigation timeout in milliseconds
	DefaultTimeout = 30000.0
)

var debugLog *logging.Logger

func init() {
	debugLog = logging.MustLogger("surface")
}

// Viewport is a page size in CSS pixels.
type Viewport struct {
	Width  int
	Height int
}

// TabOptions configures a new tab.
type TabOptions struct {
	Partition Partition

	// UserDataDir is the profile directory of a persistent partition.
	UserDataDir string

	Headless  bool
	Viewport  *Viewport
	UserAgent string

	// Policy is consulted for every request the tab makes. Nil lets all
	// traffic through untouched.
	Policy RequestPolicy

	// OnNewTab receives tabs the page opens itself, such as popups.
	OnNewTab func(tab *Tab)
}

// Browser launches Playwright-driven Chromium tabs.
type Browser struct {
	mu          sync.Mutex
	playwright  *playwright.Playwright
	tabs        map[string]*Tab
	maxTabs     int
	initialized bool
}

// NewBrowser creates a browser. Call Initialize before opening tabs.
func NewBrowser() *Browser {
	return &Browser{
		tabs:    make(map[string]*Tab),
		maxTabs: DefaultMaxTabs,
	}
}

// Initialize installs and starts Playwright. Calling it again is a no-op.
func (b *Browser) Initialize() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return nil
	}

	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	b.playwright = pw
	b.initialized = true
	debugLog.Infof("Playwright started")
	return nil
}

// NewTab opens a tab in a fresh context of the requested partition.
func (b *Browser) NewTab(opts TabOptions) (*Tab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return nil, fmt.Errorf("browser not initialized")
	}
	if len(b.tabs) >= b.maxTabs {
		return nil, fmt.Errorf("maximum number of tabs (%d) reached", b.maxTabs)
	}

	if opts.Viewport == nil {
		opts.Viewport = &Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}
	if opts.Partition == "" {
		opts.Partition = PartitionPersistent
	}

	var (
		browser playwright.Browser
		ctx     playwright.BrowserContext
		page    playwright.Page
		err     error
	)

	switch opts.Partition {
	case PartitionPersistent:
		if opts.UserDataDir == "" {
			return nil, fmt.Errorf("persistent partition needs a user data directory")
		}
		ctx, err = b.playwright.Chromium.LaunchPersistentContext(opts.UserDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless:  playwright.Bool(opts.Headless),
			Viewport:  &playwright.Size{Width: opts.Viewport.Width, Height: opts.Viewport.Height},
			UserAgent: optionalString(opts.UserAgent),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to launch persistent context: %w", err)
		}
		if pages := ctx.Pages(); len(pages) > 0 {
			page = pages[0]
		}

	case PartitionEphemeral:
		browser, err = b.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(opts.Headless),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		ctx, err = browser.NewContext(playwright.BrowserNewContextOptions{
			Viewport:  &playwright.Size{Width: opts.Viewport.Width, Height: opts.Viewport.Height},
			UserAgent: optionalString(opts.UserAgent),
		})
		if err != nil {
			_ = browser.Close()
			return nil, fmt.Errorf("failed to create context: %w", err)
		}

	default:
		return nil, fmt.Errorf("unknown partition %q", opts.Partition)
	}

	if page == nil {
		page, err = ctx.NewPage()
		if err != nil {
			closeQuietly(ctx, browser)
			return nil, fmt.Errorf("failed to create page: %w", err)
		}
	}
	page.SetDefaultTimeout(DefaultTimeout)

	tab := newTab(uuid.NewString(), page, opts)
	tab.context = ctx
	tab.browser = browser
	tab.owner = b
	if err := tab.attach(); err != nil {
		closeQuietly(ctx, browser)
		return nil, err
	}

	b.tabs[tab.id] = tab
	debugLog.Infof("Opened %s tab %s", opts.Partition, tab.id)
	return tab, nil
}

// adopt tracks a tab the page opened itself.
func (b *Browser) adopt(tab *Tab) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tabs[tab.id] = tab
}

func (b *Browser) forget(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tabs, id)
}

// Tabs returns the open tabs.
func (b *Browser) Tabs() []*Tab {
	b.mu.Lock()
	defer b.mu.Unlock()

	tabs := make([]*Tab, 0, len(b.tabs))
	for _, tab := range b.tabs {
		tabs = append(tabs, tab)
	}
	return tabs
}

// Shutdown closes every tab and stops Playwright.
func (b *Browser) Shutdown() error {
	for _, tab := range b.Tabs() {
		_ = tab.Close() // continue cleanup
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized && b.playwright != nil {
		if err := b.playwright.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
		b.initialized = false
	}
	debugLog.Infof("Playwright stopped")
	return nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return playwright.String(s)
}

func closeQuietly(ctx playwright.BrowserContext, browser playwright.Browser) {
	if ctx != nil {
		_ = ctx.Close()
	}
	if browser != nil {
		_ = browser.Close()
	}
}
