package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"admin", RoleAdmin, true},
		{"  Store_Manager ", RoleStoreManager, true},
		{"STAFF", RoleStaff, true},
		{"owner", Role("owner"), false},
		{"", Role(""), false},
	}
	for _, tt := range tests {
		got, ok := ParseRole(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestAuthorize(t *testing.T) {
	admin := &User{Role: RoleAdmin}
	manager := &User{Role: RoleStoreManager}

	assert.True(t, Authorize(admin, RoleAdmin))
	assert.False(t, Authorize(manager, RoleAdmin))
	assert.True(t, Authorize(manager, RoleAdmin, RoleStoreManager))
	assert.False(t, Authorize(manager))
	assert.False(t, Authorize(nil, RoleAdmin))
}

func TestRequiresStore(t *testing.T) {
	assert.False(t, RoleAdmin.RequiresStore())
	assert.True(t, RoleStoreManager.RequiresStore())
	assert.True(t, RoleStaff.RequiresStore())
}

func TestPublicOmitsSecrets(t *testing.T) {
	tok := "refresh"
	store := uint64(3)
	u := &User{ID: 7, Name: "A", Email: "a@x.com", PasswordHash: "hash", Role: RoleStaff, StoreID: &store, RefreshToken: &tok}

	p := u.Public()
	assert.Equal(t, uint64(7), p.ID)
	assert.Equal(t, "a@x.com", p.Email)
	assert.Equal(t, &store, p.StoreID)

	assert.Len(t, PublicUsers([]User{*u, *u}), 2)
}

func TestRoleNames(t *testing.T) {
	assert.Equal(t, "admin, store_manager, staff", RoleNames())
	for _, r := range Roles {
		assert.True(t, r.Valid())
	}
}
