package userscript

import (
	"maps"
	"slices"

	"github.com/entrhq/webext/pkg/extension"
)

// Extension runs the scripts, host blocks and header rules of a manifest.
type Extension struct {
	*extension.Base

	manifest *Manifest
	scripts  []extension.Script
}

// New builds an extension from a loaded manifest.
func New(m *Manifest) *Extension {
	activation, _ := m.activation()

	scripts := make([]extension.Script, 0, len(m.Scripts))
	for i, entry := range m.Scripts {
		src := ""
		if i < len(m.sources) {
			src = m.sources[i]
		}
		scripts = append(scripts, extension.Script{
			Source:        src,
			Timing:        timingOf(entry),
			URLPattern:    entry.Matches,
			MainFrameOnly: entry.MainFrameOnly,
		})
	}

	return &Extension{
		Base:     extension.NewBase(m.Metadata(), activation),
		manifest: m,
		scripts:  scripts,
	}
}

// Manifest returns the manifest the extension was built from.
func (e *Extension) Manifest() *Manifest {
	return e.manifest
}

func (e *Extension) ScriptsToInject(url string) []extension.Script {
	if len(e.scripts) == 0 {
		return nil
	}
	return slices.Clone(e.scripts)
}

func (e *Extension) ShouldBlockRequest(req *extension.Request) bool {
	return extension.MatchesAny(req.Host(), e.manifest.BlockHosts)
}

func (e *Extension) ModifyRequest(req *extension.Request) *extension.Request {
	if len(e.manifest.Headers) == 0 {
		return req
	}
	out := req.Clone()
	for _, name := range slices.Sorted(maps.Keys(e.manifest.Headers)) {
		out.SetHeader(name, e.manifest.Headers[name])
	}
	return out
}
