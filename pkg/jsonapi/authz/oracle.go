// Package authz provides a role based permission oracle.
package authz

import (
	"context"
	"log/slog"

	"github.com/tendant/simple-jsonapi/pkg/jsonapi"
)

// Owned is implemented by objects that record the principal who created them.
// The owner receives the Owner role on the object.
type Owned interface {
	Owner() string
}

// Policy maps each permission to the roles granted it
type Policy map[jsonapi.Permission][]string

// DefaultPolicy returns the built-in role mapping. Manager is granted every
// permission regardless of the policy.
func DefaultPolicy() Policy {
	readers := []string{jsonapi.RoleAuthenticated, jsonapi.RoleMember, jsonapi.RoleOwner, jsonapi.RoleEditor}
	return Policy{
		jsonapi.PermissionView:                      readers,
		jsonapi.PermissionAccessContentsInformation: readers,
		jsonapi.PermissionModifyPortalContent:       {jsonapi.RoleOwner, jsonapi.RoleEditor},
		jsonapi.PermissionManagePortal:              {},
	}
}

// Config contains options for the RoleOracle
type Config struct {
	// Logger for decision logging. If nil, uses slog.Default().
	Logger *slog.Logger

	// Policy to evaluate. If nil, DefaultPolicy is used.
	Policy Policy
}

// RoleOracle grants a permission when one of the caller's effective roles is
// mapped to it. Unknown permissions are denied.
type RoleOracle struct {
	grants map[jsonapi.Permission]map[string]bool
	logger *slog.Logger
}

// NewRoleOracle creates an oracle with the given configuration
func NewRoleOracle(cfg Config) *RoleOracle {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := cfg.Policy
	if policy == nil {
		policy = DefaultPolicy()
	}

	grants := make(map[jsonapi.Permission]map[string]bool, len(policy))
	for perm, roles := range policy {
		set := make(map[string]bool, len(roles))
		for _, role := range roles {
			set[role] = true
		}
		grants[perm] = set
	}

	return &RoleOracle{grants: grants, logger: logger}
}

// CheckPermission implements jsonapi.Oracle
func (o *RoleOracle) CheckPermission(ctx context.Context, principal jsonapi.Principal, permission jsonapi.Permission, obj jsonapi.Object) bool {
	roles := EffectiveRoles(principal, obj)
	allowed := o.decide(permission, roles)

	objectID := ""
	if obj != nil {
		objectID = obj.ID()
	}
	o.logger.DebugContext(ctx, "permission check",
		"principal", principal.ID,
		"permission", string(permission),
		"object_id", objectID,
		"roles", roles,
		"allowed", allowed,
	)
	return allowed
}

func (o *RoleOracle) decide(permission jsonapi.Permission, roles []string) bool {
	granted, known := o.grants[permission]
	for _, role := range roles {
		if role == jsonapi.RoleManager {
			return true
		}
		if known && granted[role] {
			return true
		}
	}
	return false
}

// EffectiveRoles returns the global roles of the principal plus the roles it
// holds on obj.
func EffectiveRoles(principal jsonapi.Principal, obj jsonapi.Object) []string {
	roles := []string{jsonapi.RoleAnonymous}
	if principal.IsAnonymous() {
		return roles
	}

	roles = append(roles, jsonapi.RoleAuthenticated)
	for _, r := range principal.Roles {
		if r != jsonapi.RoleAnonymous && r != jsonapi.RoleAuthenticated {
			roles = append(roles, r)
		}
	}
	if owned, ok := obj.(Owned); ok && owned.Owner() != "" && owned.Owner() == principal.ID {
		roles = append(roles, jsonapi.RoleOwner)
	}
	return roles
}
