// Package builtin lists the extensions shipped with webext.
package builtin

import (
	"github.com/entrhq/webext/pkg/builtin/contentblocker"
	"github.com/entrhq/webext/pkg/builtin/darkmode"
	"github.com/entrhq/webext/pkg/builtin/useragent"
	"github.com/entrhq/webext/pkg/extension"
)

// DefaultInstalled are the ids installed on first run.
var DefaultInstalled = []string{contentblocker.ID, useragent.ID}

// Catalog returns fresh instances of every built-in in display order.
func Catalog() []extension.Extension {
	return []extension.Extension{
		contentblocker.New(),
		darkmode.New(),
		useragent.New(),
	}
}
