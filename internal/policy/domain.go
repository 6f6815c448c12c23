package policy

import (
	"fmt"
	"sort"
)

// Role is the coarse account classification.
type Role string

const (
	RoleSupportStaff Role = "support_staff"
	RoleAdmin        Role = "admin"
	RoleSuperAdmin   Role = "super_admin"
)

// Module names a permission-gated area of the system.
type Module string

const (
	ModuleGodowns   Module = "godowns"
	ModuleInventory Module = "inventory"
	ModuleSales     Module = "sales"
	ModulePurchases Module = "purchases"
	ModuleReports   Module = "reports"
	ModuleUsers     Module = "users"
)

// Action names an operation within a module.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Capability is a single (module, action) grant.
type Capability struct {
	Module Module
	Action Action
}

// Grants is a capability set.
type Grants map[Capability]struct{}

// Subject is the acting principal evaluated by the policy. It carries
// everything a decision needs; the policy itself performs no I/O.
type Subject struct {
	UserID int64
	Role   Role
	Grants Grants
}

// ToMap renders the grant set as module -> sorted actions, the shape
// stored in the users table and exchanged over the API.
func (g Grants) ToMap() map[string][]string {
	out := make(map[string][]string, len(g))
	for cap := range g {
		out[string(cap.Module)] = append(out[string(cap.Module)], string(cap.Action))
	}
	for _, actions := range out {
		sort.Strings(actions)
	}
	return out
}

// GrantsFromMap builds a grant set from the stored shape. Unknown
// modules or actions are rejected rather than silently dropped.
func GrantsFromMap(raw map[string][]string) (Grants, error) {
	grants := make(Grants, len(raw))
	for module, actions := range raw {
		m := Module(module)
		if !ValidModule(m) {
			return nil, fmt.Errorf("unknown module %q", module)
		}
		allowed := ActionsFor(m)
		for _, action := range actions {
			a := Action(action)
			found := false
			for _, known := range allowed {
				if a == known {
					found = true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf("module %q does not support action %q", module, action)
			}
			grants[Capability{Module: m, Action: a}] = struct{}{}
		}
	}
	return grants, nil
}

// Modules lists every known module.
func Modules() []Module {
	return []Module{ModuleGodowns, ModuleInventory, ModuleSales, ModulePurchases, ModuleReports, ModuleUsers}
}

// ActionsFor lists the actions a module supports. Reports is read-only.
func ActionsFor(m Module) []Action {
	if m == ModuleReports {
		return []Action{ActionView}
	}
	return []Action{ActionView, ActionCreate, ActionEdit, ActionDelete}
}

// ValidModule reports whether m names a known module.
func ValidModule(m Module) bool {
	for _, known := range Modules() {
		if m == known {
			return true
		}
	}
	return false
}

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	return r == RoleSupportStaff || r == RoleAdmin || r == RoleSuperAdmin
}
