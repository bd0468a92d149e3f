package claims

import "identity-service/internal/model"

// Payload is the signed claims set carried by every authenticated session's
// bearer token. It is a cache of Profile fields, never the source of truth;
// the profile store is authoritative. SuperAdmin is the one field the
// synchronizer does not own: it is written only by SetSuperAdmin and must
// survive every profile-driven update, which MergeProfile guarantees by
// construction.
type Payload struct {
	TenantID    string `json:"tenant_id,omitempty"`
	StaffID     string `json:"staff_id,omitempty"`
	Role        string `json:"role,omitempty"`
	AccessLevel string `json:"access_level,omitempty"`
	SuperAdmin  bool   `json:"super_admin,omitempty"`
}

// MergeProfile returns a copy of the payload with the profile-owned fields
// replaced and everything else (SuperAdmin) untouched.
func (p Payload) MergeProfile(profile *model.Profile) Payload {
	merged := p
	merged.TenantID = profile.TenantID
	merged.StaffID = profile.ID
	merged.Role = profile.Role
	merged.AccessLevel = profile.AccessLevel
	return merged
}

// WithSuperAdmin returns a copy of the payload with only the super-admin
// flag changed.
func (p Payload) WithSuperAdmin(enabled bool) Payload {
	p.SuperAdmin = enabled
	return p
}

// HasTenant reports whether the payload carries a tenant assignment.
func (p Payload) HasTenant() bool {
	return p.TenantID != ""
}
