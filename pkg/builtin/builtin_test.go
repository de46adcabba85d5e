package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/entrhq/webext/pkg/config"
	"github.com/entrhq/webext/pkg/extension"
)

func TestCatalog(t *testing.T) {
	exts := Catalog()
	ids := make([]string, 0, len(exts))
	for _, ext := range exts {
		meta := ext.Metadata()
		ids = append(ids, meta.ID)

		assert.NotEmpty(t, meta.Name, meta.ID)
		assert.NotEmpty(t, meta.Capabilities, meta.ID)
		assert.NoError(t, ext.Init(), meta.ID)

		section, ok := ext.(config.Section)
		if assert.True(t, ok, "%s keeps its own preferences", meta.ID) {
			assert.Equal(t, "ext."+meta.ID, section.ID())
			assert.NoError(t, section.Validate())
		}
	}
	assert.Equal(t, []string{"content-blocker", "dark-mode", "user-agent"}, ids)

	for _, id := range DefaultInstalled {
		assert.Contains(t, ids, id)
	}
	assert.NotContains(t, DefaultInstalled, "dark-mode")
}

func TestCatalogReturnsFreshInstances(t *testing.T) {
	first := Catalog()
	first[0].SetEnabled(false)
	assert.True(t, Catalog()[0].Enabled())
}

func TestCapabilitiesMatchHooks(t *testing.T) {
	for _, ext := range Catalog() {
		meta := ext.Metadata()
		if !meta.Has(extension.CapInjectScripts) {
			assert.Nil(t, ext.ScriptsToInject("https://example.com/"), meta.ID)
		}
	}
}
