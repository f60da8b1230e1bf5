package menu

import "github.com/medrex/clinic-portal/pkg/types"

// Item is a navigation entry. Membership in the rendered menu is computed by
// Build; the catalog itself is static.
type Item struct {
	ID                    string             `json:"id"`
	IconRef               string             `json:"icon"`
	LabelKey              string             `json:"label_key"`
	RoutePath             string             `json:"route"`
	RequiredPermissionAny []types.Permission `json:"required_permission_any,omitempty"`

	// Markers are substrings; the entry is shown when any granted permission
	// contains one of them.
	Markers []string `json:"-"`

	Unconditional bool `json:"-"`
}

// Entry ids in catalog order
const (
	IDDashboard       = "dashboard"
	IDPatients        = "patients"
	IDAppointments    = "appointments"
	IDMedicalRecords  = "medical-records"
	IDPrescriptions   = "prescriptions"
	IDBilling         = "billing"
	IDUserManagement  = "user-management"
	IDLabBeds         = "lab-bed-management"
	IDAnalytics       = "analytics"
	IDSecurityLogs    = "security-logs"
	IDPermissionAdmin = "permissions"
	IDSettings        = "settings"
)

// catalog is the fixed, ordered menu. Order here is the output order.
var catalog = []Item{
	{
		ID:            IDDashboard,
		IconRef:       "layout-dashboard",
		LabelKey:      "menu.dashboard",
		RoutePath:     "/dashboard",
		Unconditional: true,
	},
	{
		ID:                    IDPatients,
		IconRef:               "users",
		LabelKey:              "menu.patients",
		RoutePath:             "/patients",
		RequiredPermissionAny: []types.Permission{"PATIENT_MANAGEMENT", "VIEW_PATIENTS", "MANAGE_PATIENTS"},
		Markers:               []string{"_PATIENT"},
	},
	{
		ID:                    IDAppointments,
		IconRef:               "calendar",
		LabelKey:              "menu.appointments",
		RoutePath:             "/appointments",
		RequiredPermissionAny: []types.Permission{"APPOINTMENT_MANAGEMENT", "VIEW_APPOINTMENTS", "MANAGE_APPOINTMENTS"},
		Markers:               []string{"_APPOINTMENT"},
	},
	{
		ID:                    IDMedicalRecords,
		IconRef:               "file-heart",
		LabelKey:              "menu.medicalRecords",
		RoutePath:             "/medical-records",
		RequiredPermissionAny: []types.Permission{"MEDICAL_RECORDS_MANAGEMENT", "CLINICAL_MANAGEMENT", "VIEW_MEDICAL_RECORDS"},
		Markers:               []string{"_MEDICAL_RECORD", "_CLINICAL", "_VITAL", "_DIAGNOSIS"},
	},
	{
		ID:                    IDPrescriptions,
		IconRef:               "pill",
		LabelKey:              "menu.prescriptions",
		RoutePath:             "/prescriptions",
		RequiredPermissionAny: []types.Permission{"PRESCRIPTION_MANAGEMENT", "VIEW_PRESCRIPTIONS"},
		Markers:               []string{"_PRESCRIPTION"},
	},
	{
		ID:                    IDBilling,
		IconRef:               "receipt",
		LabelKey:              "menu.billing",
		RoutePath:             "/billing",
		RequiredPermissionAny: []types.Permission{"BILLING_MANAGEMENT", "FINANCIAL_MANAGEMENT", "VIEW_BILLING"},
		Markers:               []string{"_BILLING", "_FINANCIAL", "_INVOICE"},
	},
	{
		ID:                    IDUserManagement,
		IconRef:               "user-cog",
		LabelKey:              "menu.userManagement",
		RoutePath:             "/users",
		RequiredPermissionAny: []types.Permission{"USER_MANAGEMENT", "STAFF_MANAGEMENT", "VIEW_USERS"},
		Markers:               []string{"_USER", "_STAFF"},
	},
	{
		ID:                    IDLabBeds,
		IconRef:               "flask-bed",
		LabelKey:              "menu.labBedManagement",
		RoutePath:             "/lab-bed-management",
		RequiredPermissionAny: []types.Permission{"LAB_MANAGEMENT", "BED_MANAGEMENT"},
		Markers:               []string{"_LAB", "_BED"},
	},
	{
		ID:                    IDAnalytics,
		IconRef:               "chart-line",
		LabelKey:              "menu.analytics",
		RoutePath:             "/analytics",
		RequiredPermissionAny: []types.Permission{"VIEW_ANALYTICS", "ANALYTICS_MANAGEMENT", "VIEW_REPORTS"},
		Markers:               []string{"_ANALYTICS", "_REPORT"},
	},
	{
		ID:                    IDSecurityLogs,
		IconRef:               "shield-alert",
		LabelKey:              "menu.securityLogs",
		RoutePath:             "/security-logs",
		RequiredPermissionAny: []types.Permission{"VIEW_SECURITY_LOGS", "SECURITY_MANAGEMENT", "VIEW_AUDIT_LOGS"},
		Markers:               []string{"_SECURITY", "_AUDIT"},
	},
	{
		ID:                    IDPermissionAdmin,
		IconRef:               "key",
		LabelKey:              "menu.permissions",
		RoutePath:             "/permissions",
		RequiredPermissionAny: []types.Permission{"PERMISSION_MANAGEMENT", "ROLE_MANAGEMENT"},
		Markers:               []string{"_PERMISSION", "_ROLE"},
	},
	{
		ID:                    IDSettings,
		IconRef:               "settings",
		LabelKey:              "menu.settings",
		RoutePath:             "/settings",
		RequiredPermissionAny: []types.Permission{"SYSTEM_SETTINGS", "SETTINGS_MANAGEMENT"},
		Markers:               []string{"_SETTINGS"},
	},
}

// Catalog returns a copy of the fixed catalog in display order
func Catalog() []Item {
	out := make([]Item, len(catalog))
	for i, item := range catalog {
		out[i] = item.clone()
	}
	return out
}

func (i Item) clone() Item {
	i.RequiredPermissionAny = append([]types.Permission(nil), i.RequiredPermissionAny...)
	i.Markers = append([]string(nil), i.Markers...)
	return i
}
