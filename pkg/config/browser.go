package config

import (
	"fmt"
	"sync"
)

const (
	// SectionIDBrowser is the identifier for the browser section
	SectionIDBrowser = "browser"

	defaultViewportWidth  = 1280
	defaultViewportHeight = 720
	defaultStartURL       = "about:blank"
)

// BrowserSection holds rendering-surface settings used when the CLI opens
// a tab.
type BrowserSection struct {
	Headless       bool   `json:"headless"`
	Private        bool   `json:"private"`
	UserDataDir    string `json:"user_data_dir"`
	ViewportWidth  int    `json:"viewport_width"`
	ViewportHeight int    `json:"viewport_height"`
	StartURL       string `json:"start_url"`
	mu             sync.RWMutex
}

// NewBrowserSection creates a browser section with default settings.
func NewBrowserSection() *BrowserSection {
	s := &BrowserSection{}
	s.Reset()
	return s
}

// ID returns the section identifier.
func (s *BrowserSection) ID() string {
	return SectionIDBrowser
}

// Title returns the section title.
func (s *BrowserSection) Title() string {
	return "Browser"
}

// Description returns the section description.
func (s *BrowserSection) Description() string {
	return "Rendering surface defaults: headless mode, private browsing, profile directory and viewport."
}

// Data returns the current configuration data.
func (s *BrowserSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"headless":        s.Headless,
		"private":         s.Private,
		"user_data_dir":   s.UserDataDir,
		"viewport_width":  s.ViewportWidth,
		"viewport_height": s.ViewportHeight,
		"start_url":       s.StartURL,
	}
}

// SetData updates the configuration from the provided data.
func (s *BrowserSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		switch key {
		case "headless", "private":
			b, ok := value.(bool)
			if !ok {
				return fmt.Errorf("invalid value type for %s: expected bool, got %T", key, value)
			}
			if key == "headless" {
				s.Headless = b
			} else {
				s.Private = b
			}
		case "user_data_dir", "start_url":
			str, ok := value.(string)
			if !ok {
				return fmt.Errorf("invalid value type for %s: expected string, got %T", key, value)
			}
			if key == "user_data_dir" {
				s.UserDataDir = str
			} else {
				s.StartURL = str
			}
		case "viewport_width", "viewport_height":
			n, err := Int(value)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			if key == "viewport_width" {
				s.ViewportWidth = n
			} else {
				s.ViewportHeight = n
			}
		}
	}
	return nil
}

// Validate validates the current configuration.
func (s *BrowserSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ViewportWidth <= 0 || s.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", s.ViewportWidth, s.ViewportHeight)
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *BrowserSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Headless = false
	s.Private = false
	s.UserDataDir = ""
	s.ViewportWidth = defaultViewportWidth
	s.ViewportHeight = defaultViewportHeight
	s.StartURL = defaultStartURL
}

// Snapshot returns a copy of the settings without the lock.
func (s *BrowserSection) Snapshot() BrowserSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return BrowserSettings{
		Headless:       s.Headless,
		Private:        s.Private,
		UserDataDir:    s.UserDataDir,
		ViewportWidth:  s.ViewportWidth,
		ViewportHeight: s.ViewportHeight,
		StartURL:       s.StartURL,
	}
}

// BrowserSettings is a lock-free copy of a BrowserSection.
type BrowserSettings struct {
	Headless       bool
	Private        bool
	UserDataDir    string
	ViewportWidth  int
	ViewportHeight int
	StartURL       string
}
