package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medrex/clinic-portal/pkg/types"
)

func TestMapRole(t *testing.T) {
	testCases := []struct {
		external string
		expected types.UserRole
		known    bool
	}{
		{"ADMIN", types.RoleAdmin, true},
		{"SUPER_ADMIN", types.RoleAdmin, true},
		{"Doctor", types.RoleDoctor, true},
		{"PHYSICIAN", types.RoleDoctor, true},
		{"ROLE_NURSE", types.RoleNurse, true},
		{"patient", types.RolePatient, true},
		{"ACCOUNTANT", types.RoleFinance, true},
		{"front-desk", types.RoleReceptionist, true},
		{"LAB_TECHNICIAN", types.RoleTechnician, true},
		{"PHARMACIST", types.UserRole("pharmacist"), false},
		{"", types.UserRole(""), false},
	}

	for _, tc := range testCases {
		t.Run(tc.external, func(t *testing.T) {
			role, known := MapRole(tc.external)
			assert.Equal(t, tc.expected, role)
			assert.Equal(t, tc.known, known)
		})
	}
}

func TestMapRole_KnownRolesAreInternal(t *testing.T) {
	for _, role := range externalRoles {
		assert.True(t, role.IsKnown(), string(role))
	}
}
