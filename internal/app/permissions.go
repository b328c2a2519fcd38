package app

import "reviewbase/pkg/domain"

// Operation classifies what a request wants to do with a resource.
type Operation int

const (
	OpList Operation = iota
	OpRetrieve
	OpCreate
	OpUpdate
	OpDelete
)

// IsWrite reports whether the operation mutates state.
func (op Operation) IsWrite() bool {
	switch op {
	case OpCreate, OpUpdate, OpDelete:
		return true
	default:
		return false
	}
}

// ResourceKind groups resources that share permission rules.
type ResourceKind int

const (
	// KindCatalog covers categories, genres and titles.
	KindCatalog ResourceKind = iota
	// KindContent covers reviews and comments, where authorship matters.
	KindContent
	// KindUserDirectory covers user management endpoints.
	KindUserDirectory
)

// writeRoles is the enum-keyed permission table: which roles may write to
// each resource kind. Authorship is handled separately in Allowed.
var writeRoles = map[ResourceKind]map[domain.UserRole]bool{
	KindCatalog: {
		domain.RoleAdmin: true,
	},
	KindContent: {
		domain.RoleAdmin:     true,
		domain.RoleModerator: true,
	},
	KindUserDirectory: {
		domain.RoleAdmin: true,
	},
}

// Allowed is the permission evaluator: a pure function of the caller's
// role, resource ownership and the operation. Catalog and content reads are
// open to everyone including anonymous callers; the user directory is
// admin-only in every operation.
func Allowed(kind ResourceKind, op Operation, role domain.UserRole, isOwner bool) bool {
	if kind == KindUserDirectory {
		return writeRoles[kind][role]
	}
	if !op.IsWrite() {
		return true
	}
	if writeRoles[kind][role] {
		return true
	}
	return kind == KindContent && isOwner
}
