package auth

import (
	"strings"

	"github.com/medrex/clinic-portal/pkg/types"
)

// externalRoles maps backend role names to the internal enumeration
var externalRoles = map[string]types.UserRole{
	"ADMIN":          types.RoleAdmin,
	"ADMINISTRATOR":  types.RoleAdmin,
	"SUPER_ADMIN":    types.RoleAdmin,
	"DOCTOR":         types.RoleDoctor,
	"PHYSICIAN":      types.RoleDoctor,
	"NURSE":          types.RoleNurse,
	"PATIENT":        types.RolePatient,
	"FINANCE":        types.RoleFinance,
	"ACCOUNTANT":     types.RoleFinance,
	"BILLING":        types.RoleFinance,
	"RECEPTIONIST":   types.RoleReceptionist,
	"FRONT_DESK":     types.RoleReceptionist,
	"TECHNICIAN":     types.RoleTechnician,
	"LAB_TECHNICIAN": types.RoleTechnician,
}

// MapRole translates a backend role name. Unknown names pass through
// lower-cased with known=false so the caller can report them.
func MapRole(external string) (role types.UserRole, known bool) {
	normalized := strings.ToUpper(strings.TrimSpace(external))
	normalized = strings.TrimPrefix(normalized, "ROLE_")
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)

	if role, ok := externalRoles[normalized]; ok {
		return role, true
	}
	return types.UserRole(strings.ToLower(strings.TrimSpace(external))), false
}
