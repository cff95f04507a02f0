// Package rbac defines the organization role registry: a closed set of
// resources, actions, and per-role permission statements. The registry
// is built and validated once at startup and never mutated afterwards;
// every enforcement surface (HTTP middleware, the casbin enforcer, the
// client capability endpoint) derives from the same tables.
package rbac

import (
	"fmt"
	"sort"

	"go.uber.org/fx"
)

// Module provides the validated role registry.
var Module = fx.Module("rbac",
	fx.Provide(NewRegistry),
)

type Resource string

const (
	ResourceOrganization Resource = "organization"
	ResourceMember       Resource = "member"
	ResourceInvitation   Resource = "invitation"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionCancel Action = "cancel"
)

// Role is an organization-scoped role. App-level roles (user/admin)
// live on the user record and are a separate, coarser axis.
type Role string

const (
	RoleOwner        Role = "owner"
	RoleClientAdmin  Role = "client_admin"
	RoleDirectAdmin  Role = "direct_admin"
	RoleNutritionist Role = "nutritionist"
	RoleCoach        Role = "coach"
	RoleMember       Role = "member"
)

// Roles lists every org role, highest privilege first.
var Roles = []Role{
	RoleOwner,
	RoleClientAdmin,
	RoleDirectAdmin,
	RoleNutritionist,
	RoleCoach,
	RoleMember,
}

// ValidRole reports whether the tag names a known org role.
func ValidRole(role Role) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Statement maps a resource to the actions a role may perform on it.
// A missing resource key means the empty permission set.
type Statement map[Resource][]Action

// actionsByResource is the closed action vocabulary per resource.
// Registry validation rejects any statement outside it, so a typo in a
// role table fails startup instead of silently granting nothing.
var actionsByResource = map[Resource][]Action{
	ResourceOrganization: {ActionRead, ActionUpdate, ActionDelete},
	ResourceMember:       {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
	ResourceInvitation:   {ActionCreate, ActionRead, ActionCancel},
}

// baseStatement is the member baseline. Role tables below are diffs
// against it: overriding a resource replaces its action list entirely,
// so an explicit empty list revokes the baseline grant.
var baseStatement = Statement{
	ResourceOrganization: {ActionRead},
	ResourceMember:       {ActionRead},
	ResourceInvitation:   {ActionRead},
}

var roleOverrides = map[Role]Statement{
	RoleOwner: {
		ResourceOrganization: {ActionRead, ActionUpdate, ActionDelete},
		ResourceMember:       {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
		ResourceInvitation:   {ActionCreate, ActionRead, ActionCancel},
	},
	RoleClientAdmin: {
		ResourceOrganization: {ActionRead, ActionUpdate},
		ResourceMember:       {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
		ResourceInvitation:   {ActionCreate, ActionRead, ActionCancel},
	},
	RoleDirectAdmin: {
		ResourceMember:     {ActionRead, ActionUpdate, ActionDelete},
		ResourceInvitation: {},
	},
	RoleNutritionist: {
		ResourceMember:     {},
		ResourceInvitation: {},
	},
	RoleCoach: {
		ResourceMember:     {},
		ResourceInvitation: {},
	},
	RoleMember: {},
}

// Registry holds the immutable per-role permission statements.
type Registry struct {
	statements map[Role]Statement
}

// NewRegistry composes and validates the role tables.
func NewRegistry() (*Registry, error) {
	statements := make(map[Role]Statement, len(Roles))
	for _, role := range Roles {
		overrides, ok := roleOverrides[role]
		if !ok {
			return nil, fmt.Errorf("rbac: role %q has no statement table", role)
		}
		statements[role] = compose(baseStatement, overrides)
	}

	registry := &Registry{statements: statements}
	if err := registry.validate(); err != nil {
		return nil, err
	}
	return registry, nil
}

// MustNewRegistry is NewRegistry for tests and static contexts.
func MustNewRegistry() *Registry {
	registry, err := NewRegistry()
	if err != nil {
		panic(err)
	}
	return registry
}

// Can reports whether the role may perform action on resource.
// Unknown roles, resources, and actions all deny.
func (r *Registry) Can(role Role, resource Resource, action Action) bool {
	statement, ok := r.statements[role]
	if !ok {
		return false
	}
	for _, allowed := range statement[resource] {
		if allowed == action {
			return true
		}
	}
	return false
}

// Statement returns a copy of the role's permission statement.
func (r *Registry) Statement(role Role) (Statement, bool) {
	statement, ok := r.statements[role]
	if !ok {
		return nil, false
	}
	out := make(Statement, len(statement))
	for resource, actions := range statement {
		out[resource] = append([]Action(nil), actions...)
	}
	return out, true
}

// Grants enumerates every (role, resource, action) triple in the
// registry in deterministic order. Used to seed the casbin policy set.
func (r *Registry) Grants() [][3]string {
	grants := make([][3]string, 0, 64)
	for _, role := range Roles {
		statement := r.statements[role]
		resources := make([]string, 0, len(statement))
		for resource := range statement {
			resources = append(resources, string(resource))
		}
		sort.Strings(resources)
		for _, resource := range resources {
			for _, action := range statement[Resource(resource)] {
				grants = append(grants, [3]string{string(role), resource, string(action)})
			}
		}
	}
	return grants
}

func compose(base Statement, overrides Statement) Statement {
	composed := make(Statement, len(actionsByResource))
	for resource, actions := range base {
		composed[resource] = append([]Action(nil), actions...)
	}
	for resource, actions := range overrides {
		composed[resource] = append([]Action(nil), actions...)
	}
	return composed
}

func (r *Registry) validate() error {
	for role, statement := range r.statements {
		for resource, actions := range statement {
			valid, ok := actionsByResource[resource]
			if !ok {
				return fmt.Errorf("rbac: role %q grants unknown resource %q", role, resource)
			}
			for _, action := range actions {
				if !containsAction(valid, action) {
					return fmt.Errorf("rbac: role %q grants unknown action %q on %q", role, action, resource)
				}
			}
		}
	}

	// Hierarchy invariant: owner's grants cover client_admin's.
	owner := r.statements[RoleOwner]
	admin := r.statements[RoleClientAdmin]
	for resource, actions := range admin {
		for _, action := range actions {
			if !containsAction(owner[resource], action) {
				return fmt.Errorf("rbac: owner is missing client_admin grant %s:%s", resource, action)
			}
		}
	}

	return nil
}

func containsAction(actions []Action, action Action) bool {
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}
