package types

// UserRole represents the internal role enumeration used by the dashboards
type UserRole string

const (
	RoleAdmin        UserRole = "admin"
	RoleDoctor       UserRole = "doctor"
	RoleNurse        UserRole = "nurse"
	RolePatient      UserRole = "patient"
	RoleFinance      UserRole = "finance"
	RoleReceptionist UserRole = "receptionist"
	RoleTechnician   UserRole = "technician"
)

// KnownRoles lists the internal roles in a stable order
var KnownRoles = []UserRole{
	RoleAdmin,
	RoleDoctor,
	RoleNurse,
	RolePatient,
	RoleFinance,
	RoleReceptionist,
	RoleTechnician,
}

// IsKnown reports whether the role is part of the internal enumeration
func (r UserRole) IsKnown() bool {
	for _, known := range KnownRoles {
		if r == known {
			return true
		}
	}
	return false
}

// User represents the authenticated actor as persisted on the workstation
type User struct {
	ID             string   `json:"id"`
	Email          string   `json:"email"`
	DisplayName    string   `json:"display_name,omitempty"`
	Role           UserRole `json:"role"`
	OrganizationID string   `json:"organization_id,omitempty"`
}

// Credentials represents user login credentials
type Credentials struct {
	Email          string `json:"email" binding:"required"`
	Password       string `json:"password" binding:"required"`
	OrganizationID string `json:"organizationId"`
}

// LoginResult is the credential exchange response returned by the auth backend
type LoginResult struct {
	Token       string `json:"token"`
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	Role        string `json:"role"`
}
