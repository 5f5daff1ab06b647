package jsonapi

import "context"

// Permission identifies a named permission checked against an object.
type Permission string

const (
	PermissionView                      Permission = "View"
	PermissionModifyPortalContent       Permission = "Modify portal content"
	PermissionManagePortal              Permission = "Manage portal"
	PermissionAccessContentsInformation Permission = "Access contents information"
)

// Well-known roles
const (
	RoleAnonymous     = "Anonymous"
	RoleAuthenticated = "Authenticated"
	RoleMember        = "Member"
	RoleOwner         = "Owner"
	RoleEditor        = "Editor"
	RoleManager       = "Manager"
)

// Principal is the identity of the caller.
type Principal struct {
	ID    string
	Roles []string
}

// AnonymousPrincipal returns the principal used for unauthenticated callers.
func AnonymousPrincipal() Principal {
	return Principal{Roles: []string{RoleAnonymous}}
}

// IsAnonymous reports whether the principal carries no identity
func (p Principal) IsAnonymous() bool {
	return p.ID == ""
}

// HasRole reports whether the principal holds role globally
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Oracle decides whether a principal holds a permission on an object.
type Oracle interface {
	CheckPermission(ctx context.Context, principal Principal, permission Permission, obj Object) bool
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, principal Principal, permission Permission, obj Object) bool

func (f OracleFunc) CheckPermission(ctx context.Context, principal Principal, permission Permission, obj Object) bool {
	return f(ctx, principal, permission, obj)
}

// Security is the explicit permission context of one request.
type Security struct {
	Principal Principal
	Oracle    Oracle
}

// Check returns the permission verdict for obj. A Security without an oracle
// denies everything.
func (s Security) Check(ctx context.Context, permission Permission, obj Object) bool {
	if s.Oracle == nil {
		return false
	}
	return s.Oracle.CheckPermission(ctx, s.Principal, permission, obj)
}

// Require returns an *AccessError unless the permission is granted.
func (s Security) Require(ctx context.Context, permission Permission, obj Object, op, reason string) error {
	if s.Check(ctx, permission, obj) {
		return nil
	}
	return &AccessError{
		Permission: permission,
		ObjectID:   obj.ID(),
		Op:         op,
		Reason:     reason,
	}
}
