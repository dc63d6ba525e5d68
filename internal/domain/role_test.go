package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	role, err := ParseRole("manager")
	require.NoError(t, err)
	assert.Equal(t, RoleManager, role)

	_, err = ParseRole("superuser")
	assert.Error(t, err)

	_, err = ParseRole("")
	assert.Error(t, err)

	// Role matching is exact; no case folding.
	_, err = ParseRole("Admin")
	assert.Error(t, err)
}

func TestRoleAtLeast_TotalOrder(t *testing.T) {
	assert.True(t, RoleAdmin.AtLeast(RoleCustomer))
	assert.True(t, RoleAdmin.AtLeast(RoleManager))
	assert.True(t, RoleAdmin.AtLeast(RoleAdmin))

	assert.True(t, RoleManager.AtLeast(RoleCustomer))
	assert.True(t, RoleManager.AtLeast(RoleManager))
	assert.False(t, RoleManager.AtLeast(RoleAdmin))

	assert.True(t, RoleCustomer.AtLeast(RoleCustomer))
	assert.False(t, RoleCustomer.AtLeast(RoleManager))
	assert.False(t, RoleCustomer.AtLeast(RoleAdmin))
}

func TestRoleAtLeast_InvalidRoles(t *testing.T) {
	assert.False(t, Role("superuser").AtLeast(RoleCustomer))
	assert.False(t, RoleAdmin.AtLeast(Role("superuser")))
}
