package jsonapi

import (
	"context"
	"strings"
)

// PortalUID is the fixed uid reported for the portal root.
const PortalUID = "0"

// PortalDataManager makes the portal root look like an ordinary content item.
type PortalDataManager struct {
	portal ItemAssigner
	sec    Security
}

// NewPortalDataManager creates a data manager for the portal root
func NewPortalDataManager(portal ItemAssigner, sec Security) *PortalDataManager {
	return &PortalDataManager{portal: portal, sec: sec}
}

// Get requires View on the portal. "uid" and "path" are synthesized.
func (m *PortalDataManager) Get(ctx context.Context, name string) (any, error) {
	if err := m.sec.Require(ctx, PermissionView, m.portal, "get", "not allowed to view the portal"); err != nil {
		return nil, err
	}

	switch name {
	case "uid":
		return PortalUID, nil
	case "path":
		return "/" + strings.Trim(m.portal.ID(), "/"), nil
	}

	attr, ok := m.portal.Attribute(name)
	if !ok {
		return nil, nil
	}
	return Resolve(attr)
}

// Set requires Manage portal and only overwrites attributes that exist.
func (m *PortalDataManager) Set(ctx context.Context, name string, value any, siblings map[string]any) (bool, error) {
	if err := m.sec.Require(ctx, PermissionManagePortal, m.portal, "set", "not allowed to modify the portal"); err != nil {
		return false, err
	}

	if _, ok := m.portal.Attribute(name); !ok {
		return false, nil
	}
	if err := m.portal.SetItem(name, value); err != nil {
		return false, err
	}
	return true, nil
}

// JSONData returns the value of Get; the portal has no missing-value marker
// so def is unused.
func (m *PortalDataManager) JSONData(ctx context.Context, name string, def any) (any, error) {
	return m.Get(ctx, name)
}
