// Package policy implements the pure access policy consulted before
// every gated read and mutation. Decisions depend only on the Subject
// passed in; there is no stored state and no I/O.
package policy

// Authorize reports whether the subject may perform action within
// module. super_admin holds every permission regardless of its grant
// set; otherwise the exact (module, action) capability must be present.
// Unknown modules or actions always deny.
func Authorize(sub Subject, module Module, action Action) bool {
	if sub.Role == RoleSuperAdmin {
		return true
	}
	if !ValidModule(module) {
		return false
	}
	if module == ModuleReports && action != ActionView {
		return false
	}
	_, ok := sub.Grants[Capability{Module: module, Action: action}]
	return ok
}

// HasAnyPermission reports whether the subject holds at least one
// action within the module.
func HasAnyPermission(sub Subject, module Module) bool {
	if sub.Role == RoleSuperAdmin {
		return true
	}
	for _, action := range ActionsFor(module) {
		if _, ok := sub.Grants[Capability{Module: module, Action: action}]; ok {
			return true
		}
	}
	return false
}
