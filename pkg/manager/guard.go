package manager

import (
	"fmt"

	"github.com/entrhq/webext/pkg/extension"
)

// Every extension hook goes through one of these wrappers. A panicking hook
// is logged and treated as having returned its safe default.

func recovered(id, hook string) {
	if r := recover(); r != nil {
		debugLog.Errorf("Extension %s panicked in %s: %v", id, hook, r)
	}
}

func safeInit(ext extension.Extension) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("init panicked: %v", r)
		}
	}()
	return ext.Init()
}

func safeCleanup(ext extension.Extension) {
	defer recovered(ext.Metadata().ID, "Cleanup")
	ext.Cleanup()
}

func safeActive(ext extension.Extension, domain string) (active bool) {
	defer recovered(ext.Metadata().ID, "IsActiveForDomain")
	return extension.IsActive(ext, domain)
}

func safeScripts(ext extension.Extension, url string) (scripts []extension.Script) {
	defer recovered(ext.Metadata().ID, "ScriptsToInject")
	return ext.ScriptsToInject(url)
}

func safeShouldBlock(ext extension.Extension, req *extension.Request) (block bool) {
	defer recovered(ext.Metadata().ID, "ShouldBlockRequest")
	return ext.ShouldBlockRequest(req)
}

func safeModifyRequest(ext extension.Extension, req *extension.Request) (out *extension.Request) {
	out = req
	defer recovered(ext.Metadata().ID, "ModifyRequest")
	if modified := ext.ModifyRequest(req); modified != nil {
		out = modified
	}
	return out
}

func safeModifyResponse(ext extension.Extension, req *extension.Request, resp *extension.Response) (out *extension.Response) {
	out = resp
	defer recovered(ext.Metadata().ID, "ModifyResponse")
	if modified := ext.ModifyResponse(req, resp); modified != nil {
		out = modified
	}
	return out
}

func safeToolbarItems(ext extension.Extension, page extension.Page) (items []extension.ToolbarItem) {
	defer recovered(ext.Metadata().ID, "ToolbarItems")
	return ext.ToolbarItems(page)
}

func safeContextMenuItems(ext extension.Extension, page extension.Page) (items []extension.ContextMenuItem) {
	defer recovered(ext.Metadata().ID, "ContextMenuItems")
	return ext.ContextMenuItems(page)
}
