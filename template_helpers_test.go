package garden_test

import (
	"testing"

	"github.com/goliatone/go-garden"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateHelpers(t *testing.T) {
	helpers := garden.TemplateHelpers()

	isAuthenticated, ok := helpers["is_authenticated"].(func(any) bool)
	require.True(t, ok)
	hasRole, ok := helpers["has_role"].(func(any, string) bool)
	require.True(t, ok)
	isAtLeast, ok := helpers["is_at_least"].(func(any, string) bool)
	require.True(t, ok)
	displayName, ok := helpers["display_name"].(func(any) string)
	require.True(t, ok)

	admin := &garden.User{Username: "root", Role: garden.RoleAdmin}
	member := garden.User{Username: "rosa", FirstName: "Rosa", Role: garden.RoleMember}
	var nobody *garden.User

	assert.True(t, isAuthenticated(admin))
	assert.True(t, isAuthenticated(member))
	assert.False(t, isAuthenticated(nobody))
	assert.False(t, isAuthenticated(nil))
	assert.False(t, isAuthenticated("rosa"))

	assert.True(t, hasRole(admin, garden.RoleAdmin))
	assert.False(t, hasRole(member, garden.RoleAdmin))
	assert.False(t, hasRole(nobody, garden.RoleGuest))

	assert.True(t, isAtLeast(admin, garden.RoleMember))
	assert.True(t, isAtLeast(member, garden.RoleMember))
	assert.False(t, isAtLeast(member, garden.RoleAdmin))
	assert.False(t, isAtLeast(nil, garden.RoleGuest))

	assert.Equal(t, "root", displayName(admin))
	assert.Equal(t, "Rosa", displayName(member))
	assert.Equal(t, "", displayName(nobody))

	roles, ok := helpers["roles"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, garden.RoleAdmin, roles["admin"])
}
