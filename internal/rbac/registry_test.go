package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryComposes(t *testing.T) {
	registry, err := NewRegistry()
	require.NoError(t, err)

	t.Run("owner holds every grant", func(t *testing.T) {
		for resource, actions := range actionsByResource {
			for _, action := range actions {
				assert.True(t, registry.Can(RoleOwner, resource, action),
					"owner should be allowed %s:%s", resource, action)
			}
		}
	})

	t.Run("owner covers client_admin", func(t *testing.T) {
		statement, ok := registry.Statement(RoleClientAdmin)
		require.True(t, ok)
		for resource, actions := range statement {
			for _, action := range actions {
				assert.True(t, registry.Can(RoleOwner, resource, action))
			}
		}
	})

	t.Run("client_admin cannot delete the organization", func(t *testing.T) {
		assert.False(t, registry.Can(RoleClientAdmin, ResourceOrganization, ActionDelete))
		assert.True(t, registry.Can(RoleClientAdmin, ResourceOrganization, ActionUpdate))
		assert.True(t, registry.Can(RoleClientAdmin, ResourceInvitation, ActionCreate))
	})

	t.Run("direct_admin manages members but not invitations", func(t *testing.T) {
		assert.True(t, registry.Can(RoleDirectAdmin, ResourceMember, ActionUpdate))
		assert.True(t, registry.Can(RoleDirectAdmin, ResourceMember, ActionDelete))
		assert.False(t, registry.Can(RoleDirectAdmin, ResourceMember, ActionCreate))
		assert.False(t, registry.Can(RoleDirectAdmin, ResourceInvitation, ActionRead))
		assert.False(t, registry.Can(RoleDirectAdmin, ResourceInvitation, ActionCreate))
		assert.True(t, registry.Can(RoleDirectAdmin, ResourceOrganization, ActionRead))
	})

	t.Run("coach and nutritionist lose the member baseline", func(t *testing.T) {
		for _, role := range []Role{RoleCoach, RoleNutritionist} {
			assert.True(t, registry.Can(role, ResourceOrganization, ActionRead))
			assert.False(t, registry.Can(role, ResourceMember, ActionRead))
			assert.False(t, registry.Can(role, ResourceInvitation, ActionRead))
			assert.False(t, registry.Can(role, ResourceInvitation, ActionCreate))
		}
	})

	t.Run("member keeps the read baseline", func(t *testing.T) {
		assert.True(t, registry.Can(RoleMember, ResourceOrganization, ActionRead))
		assert.True(t, registry.Can(RoleMember, ResourceMember, ActionRead))
		assert.True(t, registry.Can(RoleMember, ResourceInvitation, ActionRead))
		assert.False(t, registry.Can(RoleMember, ResourceMember, ActionUpdate))
	})
}

func TestRegistryDeniesByDefault(t *testing.T) {
	registry := MustNewRegistry()

	assert.False(t, registry.Can(Role("ghost"), ResourceMember, ActionRead))
	assert.False(t, registry.Can(RoleOwner, Resource("billing"), ActionRead))
	assert.False(t, registry.Can(RoleOwner, ResourceOrganization, Action("transfer")))

	_, ok := registry.Statement(Role("ghost"))
	assert.False(t, ok)
}

func TestGrantsDeterministic(t *testing.T) {
	registry := MustNewRegistry()

	first := registry.Grants()
	second := registry.Grants()
	require.Equal(t, first, second)

	// Every grant must round-trip through Can.
	for _, grant := range first {
		assert.True(t, registry.Can(Role(grant[0]), Resource(grant[1]), Action(grant[2])))
	}
}

func TestStatementReturnsCopy(t *testing.T) {
	registry := MustNewRegistry()

	statement, ok := registry.Statement(RoleMember)
	require.True(t, ok)
	statement[ResourceMember] = append(statement[ResourceMember], ActionDelete)

	assert.False(t, registry.Can(RoleMember, ResourceMember, ActionDelete))
}
