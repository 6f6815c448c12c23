package policy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func grantSet(caps ...Capability) Grants {
	g := make(Grants, len(caps))
	for _, c := range caps {
		g[c] = struct{}{}
	}
	return g
}

func TestAuthorizeSuperAdminBypassesGrants(t *testing.T) {
	sub := Subject{UserID: 1, Role: RoleSuperAdmin, Grants: Grants{}}
	for _, module := range Modules() {
		for _, action := range ActionsFor(module) {
			require.True(t, Authorize(sub, module, action), "super_admin denied %s.%s", module, action)
		}
	}
}

func TestAuthorizeExactCapability(t *testing.T) {
	sub := Subject{
		UserID: 2,
		Role:   RoleSupportStaff,
		Grants: grantSet(
			Capability{Module: ModuleSales, Action: ActionCreate},
			Capability{Module: ModuleInventory, Action: ActionView},
		),
	}

	require.True(t, Authorize(sub, ModuleSales, ActionCreate))
	require.True(t, Authorize(sub, ModuleInventory, ActionView))

	// Held capability does not widen to sibling actions or modules.
	require.False(t, Authorize(sub, ModuleSales, ActionDelete))
	require.False(t, Authorize(sub, ModuleInventory, ActionEdit))
	require.False(t, Authorize(sub, ModulePurchases, ActionView))
}

func TestAuthorizeEmptyGrantsDenyAll(t *testing.T) {
	sub := Subject{UserID: 3, Role: RoleAdmin}
	for _, module := range Modules() {
		for _, action := range ActionsFor(module) {
			require.False(t, Authorize(sub, module, action))
		}
	}
}

func TestAuthorizeUnknownModuleDenies(t *testing.T) {
	sub := Subject{
		UserID: 4,
		Role:   RoleAdmin,
		Grants: grantSet(Capability{Module: "billing", Action: ActionView}),
	}
	require.False(t, Authorize(sub, "billing", ActionView))
}

func TestAuthorizeReportsIsViewOnly(t *testing.T) {
	sub := Subject{
		UserID: 5,
		Role:   RoleAdmin,
		Grants: grantSet(
			Capability{Module: ModuleReports, Action: ActionView},
			Capability{Module: ModuleReports, Action: ActionEdit},
		),
	}
	require.True(t, Authorize(sub, ModuleReports, ActionView))
	// Even a stored grant cannot enable mutations on reports.
	require.False(t, Authorize(sub, ModuleReports, ActionEdit))
	require.False(t, Authorize(sub, ModuleReports, ActionCreate))
	require.False(t, Authorize(sub, ModuleReports, ActionDelete))
}

func TestHasAnyPermission(t *testing.T) {
	sub := Subject{
		UserID: 6,
		Role:   RoleSupportStaff,
		Grants: grantSet(Capability{Module: ModuleGodowns, Action: ActionView}),
	}
	require.True(t, HasAnyPermission(sub, ModuleGodowns))
	require.False(t, HasAnyPermission(sub, ModuleSales))
	require.True(t, HasAnyPermission(Subject{Role: RoleSuperAdmin}, ModuleSales))
}

func TestGrantsRoundTrip(t *testing.T) {
	grants := grantSet(
		Capability{Module: ModuleSales, Action: ActionView},
		Capability{Module: ModuleSales, Action: ActionCreate},
		Capability{Module: ModuleReports, Action: ActionView},
	)
	shaped := grants.ToMap()
	require.Equal(t, []string{"create", "view"}, shaped["sales"])

	parsed, err := GrantsFromMap(shaped)
	require.NoError(t, err)
	require.Equal(t, grants, parsed)
}

func TestGrantsFromMapRejectsUnknown(t *testing.T) {
	_, err := GrantsFromMap(map[string][]string{"billing": {"view"}})
	require.Error(t, err)

	_, err = GrantsFromMap(map[string][]string{"reports": {"edit"}})
	require.Error(t, err)
}
