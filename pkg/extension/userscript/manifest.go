package userscript

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/dop251/goja"
	"gopkg.in/yaml.v3"

	"github.com/entrhq/webext/pkg/extension"
)

// ManifestFile is the manifest name expected in every extension directory.
const ManifestFile = "extension.yaml"

// Manifest is the YAML description of a user-installed extension.
type Manifest struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Version     string            `yaml:"version"` // Semantic version (e.g., "1.2.0")
	Author      string            `yaml:"author"`
	Description string            `yaml:"description"`
	Category    string            `yaml:"category"`
	Permissions []string          `yaml:"permissions"`
	Activation  ActivationSpec    `yaml:"activation"`
	Scripts     []ScriptSpec      `yaml:"scripts"`
	BlockHosts  []string          `yaml:"block_hosts"`
	Headers     map[string]string `yaml:"headers"`

	dir     string
	version *semver.Version
	sources []string // script sources, parallel to Scripts
}

// ActivationSpec selects the activation rule. Mode defaults to "always".
type ActivationSpec struct {
	Mode    string   `yaml:"mode"`
	Domains []string `yaml:"domains"`
}

// ScriptSpec points at a JavaScript file relative to the extension directory.
type ScriptSpec struct {
	File          string `yaml:"file"`
	Timing        string `yaml:"timing"`  // defaults to on-dom-ready
	Matches       string `yaml:"matches"` // URL pattern, empty for all
	MainFrameOnly bool   `yaml:"main_frame_only"`
}

var knownCategories = map[string]extension.Category{
	"":             extension.CategoryOther,
	"privacy":      extension.CategoryPrivacy,
	"appearance":   extension.CategoryAppearance,
	"developer":    extension.CategoryDeveloper,
	"productivity": extension.CategoryProductivity,
	"other":        extension.CategoryOther,
}

var knownPermissions = map[string]bool{
	string(extension.PermAllURLs):            true,
	string(extension.PermWebRequest):         true,
	string(extension.PermWebRequestBlocking): true,
	string(extension.PermStorage):            true,
	string(extension.PermTabs):               true,
	string(extension.PermContextMenus):       true,
	string(extension.PermUserAgent):          true,
}

// Validate checks the fields that do not need the filesystem.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("extension id cannot be empty")
	}
	if strings.ContainsAny(m.ID, `/\`) || m.ID == "." || m.ID == ".." {
		return fmt.Errorf("extension id %q is not a valid name", m.ID)
	}
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("extension name cannot be empty")
	}

	v, err := semver.NewVersion(m.Version)
	if err != nil {
		return fmt.Errorf("version %q: %w", m.Version, err)
	}
	m.version = v

	if _, ok := knownCategories[m.Category]; !ok {
		return fmt.Errorf("unknown category %q", m.Category)
	}
	for _, p := range m.Permissions {
		if !knownPermissions[p] {
			return fmt.Errorf("unknown permission %q", p)
		}
	}
	if _, ok := m.activation(); !ok {
		return fmt.Errorf("unknown activation mode %q", m.Activation.Mode)
	}

	for i, s := range m.Scripts {
		if s.File == "" {
			return fmt.Errorf("script %d: file cannot be empty", i)
		}
		if !timingOf(s).Valid() {
			return fmt.Errorf("script %s: unknown timing %q", s.File, s.Timing)
		}
		if s.Matches != "" {
			if err := extension.CompilePattern(s.Matches); err != nil {
				return fmt.Errorf("script %s: invalid matches pattern: %w", s.File, err)
			}
		}
	}
	return nil
}

// SemVer returns the parsed version. Valid only after Validate succeeded.
func (m *Manifest) SemVer() *semver.Version {
	return m.version
}

// Dir is the directory the manifest was loaded from.
func (m *Manifest) Dir() string {
	return m.dir
}

// Metadata converts the manifest into extension identity.
func (m *Manifest) Metadata() extension.Metadata {
	meta := extension.Metadata{
		ID:          m.ID,
		Name:        m.Name,
		Version:     m.Version,
		Author:      m.Author,
		Description: m.Description,
		Category:    knownCategories[m.Category],
	}
	for _, p := range m.Permissions {
		meta.Permissions = append(meta.Permissions, extension.Permission(p))
	}
	if len(m.Scripts) > 0 {
		meta.Capabilities = append(meta.Capabilities, extension.CapInjectScripts)
	}
	if len(m.BlockHosts) > 0 {
		meta.Capabilities = append(meta.Capabilities, extension.CapModifyRequests)
	}
	if len(m.Headers) > 0 {
		meta.Capabilities = append(meta.Capabilities, extension.CapModifyHeaders)
	}
	return meta
}

func (m *Manifest) activation() (extension.ActivationState, bool) {
	mode := m.Activation.Mode
	if mode == "" {
		mode = string(extension.ActivationAlways)
	}
	return extension.ParseActivation(mode, m.Activation.Domains)
}

func timingOf(s ScriptSpec) extension.InjectionTiming {
	if s.Timing == "" {
		return extension.TimingOnDOMReady
	}
	return extension.InjectionTiming(s.Timing)
}

// LoadManifest reads and validates an extension.yaml, then loads every
// script it references. Script files must live inside the manifest's
// directory and compile as JavaScript.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	m.dir = filepath.Dir(path)
	guard, err := newDirGuard(m.dir)
	if err != nil {
		return nil, err
	}

	m.sources = make([]string, 0, len(m.Scripts))
	for _, s := range m.Scripts {
		scriptPath, err := guard.Resolve(s.File)
		if err != nil {
			return nil, fmt.Errorf("script %s: %w", s.File, err)
		}
		src, err := os.ReadFile(scriptPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read script %s: %w", s.File, err)
		}
		if _, err := goja.Compile(s.File, string(src), false); err != nil {
			return nil, fmt.Errorf("script %s does not compile: %w", s.File, err)
		}
		m.sources = append(m.sources, string(src))
	}

	return &m, nil
}
