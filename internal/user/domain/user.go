package domain

import (
	"strings"
	"time"

	apperrors "givebridge/backend/internal/platform/errors"
)

// Role is the closed set of account roles. A record's role is fixed at creation.
type Role string

const (
	RoleDonor Role = "donor"
	RoleNGO   Role = "ngo"
)

// DefaultRole is assigned to records created from identity-provider events.
const DefaultRole = RoleDonor

// ParseRole returns the role for s, or false if s is not a known role.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleDonor:
		return RoleDonor, true
	case RoleNGO:
		return RoleNGO, true
	default:
		return "", false
	}
}

// Name is a person's first/last name pair.
type Name struct {
	First string
	Last  string
}

// Full returns "First Last" with surrounding space trimmed.
func (n Name) Full() string {
	return strings.TrimSpace(n.First + " " + n.Last)
}

// Address is a postal address attached to a profile.
type Address struct {
	Street  string
	City    string
	State   string
	Country string
	ZipCode string
}

// Profile holds optional contact details shared by both roles.
type Profile struct {
	Phone   string
	Address Address
	Avatar  string
	Bio     string
}

// IdentityRecord is the directory's unit of storage: one per external identity.
type IdentityRecord struct {
	ID            string
	ExternalID    string
	Email         string
	Name          Name
	Role          Role
	EmailVerified bool
	Active        bool
	Attributes    RoleAttributes
	Profile       Profile
	LastLogin     time.Time
	LastActivity  time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// ProviderUpdatedAt is the identity provider's updated_at of the last lifecycle event applied.
	ProviderUpdatedAt time.Time
	// Version increases by one on every committed write; used for compare-and-set updates.
	Version int64
}

// NormalizeEmail lowercases and trims an email address for storage and comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate normalizes the record and reports the first invariant it violates.
// Missing role attributes are filled with the role's defaults.
func (r *IdentityRecord) Validate() error {
	r.ExternalID = strings.TrimSpace(r.ExternalID)
	if r.ExternalID == "" {
		return apperrors.New(apperrors.CodeInvalidArgument, "external id is required")
	}
	r.Email = NormalizeEmail(r.Email)
	if r.Email == "" {
		return apperrors.New(apperrors.CodeInvalidArgument, "email is required")
	}
	if _, ok := ParseRole(string(r.Role)); !ok {
		return apperrors.New(apperrors.CodeInvalidArgument, "role must be donor or ngo")
	}
	if r.Attributes == nil {
		r.Attributes = DefaultAttributes(r.Role)
	}
	if r.Attributes.Role() != r.Role {
		return apperrors.New(apperrors.CodeInvalidArgument, "role attributes do not match role")
	}
	return nil
}

// NGO returns the NGO attributes if the record has role ngo.
func (r *IdentityRecord) NGO() (NGOAttributes, bool) {
	if r == nil || r.Role != RoleNGO {
		return NGOAttributes{}, false
	}
	a, ok := r.Attributes.(NGOAttributes)
	return a, ok
}

// Donor returns the donor attributes if the record has role donor.
func (r *IdentityRecord) Donor() (DonorAttributes, bool) {
	if r == nil || r.Role != RoleDonor {
		return DonorAttributes{}, false
	}
	a, ok := r.Attributes.(DonorAttributes)
	return a, ok
}

// IsVerifiedNGO reports whether the record is an NGO whose organization has been vetted.
func (r *IdentityRecord) IsVerifiedNGO() bool {
	a, ok := r.NGO()
	return ok && a.Verified
}

// Clone returns a deep copy so callers can mutate without touching stored state.
func (r *IdentityRecord) Clone() *IdentityRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.Attributes != nil {
		c.Attributes = r.Attributes.clone()
	}
	return &c
}

// SetNGOVerified flips the organization vetting flag. Only valid for ngo records.
func (r *IdentityRecord) SetNGOVerified(verified bool, now time.Time) (bool, error) {
	a, ok := r.NGO()
	if !ok {
		return false, apperrors.New(apperrors.CodeInvalidArgument, "record is not an NGO")
	}
	if a.Verified == verified {
		return false, nil
	}
	a.Verified = verified
	r.Attributes = a
	r.UpdatedAt = now
	return true, nil
}

// SetActive sets the active flag and reports whether it changed.
func (r *IdentityRecord) SetActive(active bool, now time.Time) bool {
	if r.Active == active {
		return false
	}
	r.Active = active
	r.UpdatedAt = now
	return true
}
