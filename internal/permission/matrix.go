// Package permission defines the module/action permission vocabulary and the
// grant matrix shared across the back office.
package permission

// Module identifies an administrative area of the site.
type Module string

// Administrative modules. Matrix keys outside this set are dropped on
// normalization so a typo can never mint a grant nothing checks.
const (
	ModuleDashboard  Module = "dashboard"
	ModulePages      Module = "pages"
	ModuleSections   Module = "sections"
	ModuleNavigation Module = "navigation"
	ModuleMedia      Module = "media"
	ModuleForms      Module = "forms"
	ModuleUsers      Module = "users"
	ModuleRoles      Module = "roles"
	ModuleSettings   Module = "settings"
)

// Action identifies an operation within a module.
type Action string

// Actions a matrix may grant.
const (
	ActionView          Action = "view"
	ActionCreate        Action = "create"
	ActionUpdate        Action = "update"
	ActionDelete        Action = "delete"
	ActionManage        Action = "manage"
	ActionUpload        Action = "upload"
	ActionRespond       Action = "respond"
	ActionAssign        Action = "assign"
	ActionManageFolders Action = "manage_folders"
	ActionManageRoles   Action = "manage_roles"
)

// Grants maps actions to a granted flag. Absent actions are not granted.
type Grants map[Action]bool

// Matrix maps modules to their action grants. Absent modules grant nothing.
// A Matrix is plain data; no module/action pair implies any other.
type Matrix map[Module]Grants

var allModules = []Module{
	ModuleDashboard,
	ModulePages,
	ModuleSections,
	ModuleNavigation,
	ModuleMedia,
	ModuleForms,
	ModuleUsers,
	ModuleRoles,
	ModuleSettings,
}

var allActions = []Action{
	ActionView,
	ActionCreate,
	ActionUpdate,
	ActionDelete,
	ActionManage,
	ActionUpload,
	ActionRespond,
	ActionAssign,
	ActionManageFolders,
	ActionManageRoles,
}

// Modules returns all modules in canonical order.
func Modules() []Module {
	out := make([]Module, len(allModules))
	copy(out, allModules)
	return out
}

// Actions returns all actions in canonical order.
func Actions() []Action {
	out := make([]Action, len(allActions))
	copy(out, allActions)
	return out
}

// KnownModule reports whether m is part of the closed module set.
func KnownModule(m Module) bool {
	for _, known := range allModules {
		if known == m {
			return true
		}
	}
	return false
}

// KnownAction reports whether a is part of the closed action set.
func KnownAction(a Action) bool {
	for _, known := range allActions {
		if known == a {
			return true
		}
	}
	return false
}

// Allows reports whether the matrix grants action on module. Missing modules,
// missing actions and nil matrices all answer false.
func (m Matrix) Allows(module Module, action Action) bool {
	if m == nil {
		return false
	}
	grants, ok := m[module]
	if !ok {
		return false
	}
	return grants[action]
}

// ViewableModules returns the modules whose view action is granted, in
// canonical order.
func (m Matrix) ViewableModules() []Module {
	viewable := make([]Module, 0, len(m))
	for _, module := range allModules {
		if m.Allows(module, ActionView) {
			viewable = append(viewable, module)
		}
	}
	return viewable
}

// Clone returns an independent deep copy so mutating one matrix never leaks
// into another.
func (m Matrix) Clone() Matrix {
	if m == nil {
		return nil
	}
	out := make(Matrix, len(m))
	for module, grants := range m {
		copied := make(Grants, len(grants))
		for action, allowed := range grants {
			copied[action] = allowed
		}
		out[module] = copied
	}
	return out
}

// Normalize returns a copy restricted to known modules and actions with only
// affirmative grants retained. Unknown keys are dropped, never an error.
func (m Matrix) Normalize() Matrix {
	if m == nil {
		return nil
	}
	out := make(Matrix, len(m))
	for module, grants := range m {
		if !KnownModule(module) {
			continue
		}
		kept := make(Grants, len(grants))
		for action, allowed := range grants {
			if !KnownAction(action) || !allowed {
				continue
			}
			kept[action] = true
		}
		if len(kept) > 0 {
			out[module] = kept
		}
	}
	return out
}

// FullAccess returns a matrix granting every action on every module. Used for
// seeding administrator roles.
func FullAccess() Matrix {
	out := make(Matrix, len(allModules))
	for _, module := range allModules {
		grants := make(Grants, len(allActions))
		for _, action := range allActions {
			grants[action] = true
		}
		out[module] = grants
	}
	return out
}
