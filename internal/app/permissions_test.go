package app

import (
	"testing"

	"reviewbase/pkg/domain"
)

func TestAllowedCatalog(t *testing.T) {
	cases := []struct {
		name    string
		op      Operation
		role    domain.UserRole
		isOwner bool
		want    bool
	}{
		{"anonymous list", OpList, "", false, true},
		{"anonymous retrieve", OpRetrieve, "", false, true},
		{"user list", OpList, domain.RoleUser, false, true},
		{"anonymous create", OpCreate, "", false, false},
		{"user create", OpCreate, domain.RoleUser, false, false},
		{"moderator create", OpCreate, domain.RoleModerator, false, false},
		{"admin create", OpCreate, domain.RoleAdmin, false, true},
		{"admin delete", OpDelete, domain.RoleAdmin, false, true},
		{"user delete", OpDelete, domain.RoleUser, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Allowed(KindCatalog, tc.op, tc.role, tc.isOwner); got != tc.want {
				t.Fatalf("Allowed = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAllowedContent(t *testing.T) {
	cases := []struct {
		name    string
		op      Operation
		role    domain.UserRole
		isOwner bool
		want    bool
	}{
		{"anonymous read", OpList, "", false, true},
		{"author update", OpUpdate, domain.RoleUser, true, true},
		{"author delete", OpDelete, domain.RoleUser, true, true},
		{"stranger update", OpUpdate, domain.RoleUser, false, false},
		{"moderator update foreign", OpUpdate, domain.RoleModerator, false, true},
		{"admin delete foreign", OpDelete, domain.RoleAdmin, false, true},
		{"user create", OpCreate, domain.RoleUser, true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Allowed(KindContent, tc.op, tc.role, tc.isOwner); got != tc.want {
				t.Fatalf("Allowed = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAllowedUserDirectory(t *testing.T) {
	// The directory is closed in every operation, reads included.
	for _, op := range []Operation{OpList, OpRetrieve, OpCreate, OpUpdate, OpDelete} {
		if Allowed(KindUserDirectory, op, domain.RoleUser, false) {
			t.Fatalf("user must not access directory op %d", op)
		}
		if Allowed(KindUserDirectory, op, domain.RoleModerator, false) {
			t.Fatalf("moderator must not access directory op %d", op)
		}
		if !Allowed(KindUserDirectory, op, domain.RoleAdmin, false) {
			t.Fatalf("admin must access directory op %d", op)
		}
	}
}
