package domain

import (
	"reflect"
	"strings"
	"time"

	apperrors "givebridge/backend/internal/platform/errors"
)

// Patch is a partial update of the mutable fields of a record. Nil fields are
// left unchanged. A Patch cannot change the external id, role or NGO
// verification.
type Patch struct {
	Email         *string
	FirstName     *string
	LastName      *string
	EmailVerified *bool
	Profile       *ProfilePatch
	Donor         *DonorPatch
	NGO           *NGOPatch

	// ProviderUpdatedAt is recorded on the record together with a change that it caused.
	ProviderUpdatedAt *time.Time
}

// ProfilePatch merges into Profile field by field.
type ProfilePatch struct {
	Phone   *string
	Address *Address
	Avatar  *string
	Bio     *string
}

// DonorPatch carries self-service donor preferences.
type DonorPatch struct {
	PreferredCategories *[]Category
	AnonymousDonations  *bool
}

// NGOPatch carries self-service organization details.
type NGOPatch struct {
	OrganizationName   *string
	RegistrationNumber *string
	Website            *string
	Mission            *string
	FoundedYear        *int
	Category           *Category
	Documents          *[]Document
}

// Apply merges p into r and reports whether anything changed. The payload for
// the role the record does not have is ignored. UpdatedAt is only touched when
// a field actually changes, so re-applying the same patch is a no-op.
func (r *IdentityRecord) Apply(p Patch, now time.Time) (bool, error) {
	before := r.Clone()

	if p.Email != nil {
		email := NormalizeEmail(*p.Email)
		if email == "" {
			return false, apperrors.New(apperrors.CodeInvalidArgument, "email must not be empty")
		}
		r.Email = email
	}
	if p.FirstName != nil {
		r.Name.First = strings.TrimSpace(*p.FirstName)
	}
	if p.LastName != nil {
		r.Name.Last = strings.TrimSpace(*p.LastName)
	}
	if p.EmailVerified != nil {
		r.EmailVerified = *p.EmailVerified
	}
	if p.Profile != nil {
		applyProfile(&r.Profile, *p.Profile)
	}
	if p.Donor != nil {
		if a, ok := r.Donor(); ok {
			if p.Donor.PreferredCategories != nil {
				a.PreferredCategories = append([]Category(nil), (*p.Donor.PreferredCategories)...)
			}
			if p.Donor.AnonymousDonations != nil {
				a.AnonymousDonations = *p.Donor.AnonymousDonations
			}
			r.Attributes = a
		}
	}
	if p.NGO != nil {
		if a, ok := r.NGO(); ok {
			applyNGO(&a, *p.NGO)
			r.Attributes = a
		}
	}

	if reflect.DeepEqual(before, r) {
		return false, nil
	}
	if p.ProviderUpdatedAt != nil && p.ProviderUpdatedAt.After(r.ProviderUpdatedAt) {
		r.ProviderUpdatedAt = p.ProviderUpdatedAt.UTC()
	}
	r.UpdatedAt = now
	return true, nil
}

// StaleFor reports whether a provider change stamped at providerUpdatedAt is not newer
// than the last one applied. Unstamped changes are never stale.
func (r *IdentityRecord) StaleFor(providerUpdatedAt time.Time) bool {
	if providerUpdatedAt.IsZero() || r.ProviderUpdatedAt.IsZero() {
		return false
	}
	return !providerUpdatedAt.After(r.ProviderUpdatedAt)
}

func applyProfile(dst *Profile, p ProfilePatch) {
	if p.Phone != nil {
		dst.Phone = strings.TrimSpace(*p.Phone)
	}
	if p.Address != nil {
		dst.Address = *p.Address
	}
	if p.Avatar != nil {
		dst.Avatar = strings.TrimSpace(*p.Avatar)
	}
	if p.Bio != nil {
		dst.Bio = *p.Bio
	}
}

func applyNGO(dst *NGOAttributes, p NGOPatch) {
	if p.OrganizationName != nil {
		dst.OrganizationName = strings.TrimSpace(*p.OrganizationName)
	}
	if p.RegistrationNumber != nil {
		dst.RegistrationNumber = strings.TrimSpace(*p.RegistrationNumber)
	}
	if p.Website != nil {
		dst.Website = strings.TrimSpace(*p.Website)
	}
	if p.Mission != nil {
		dst.Mission = *p.Mission
	}
	if p.FoundedYear != nil {
		dst.FoundedYear = *p.FoundedYear
	}
	if p.Category != nil {
		dst.Category = *p.Category
	}
	if p.Documents != nil {
		dst.Documents = mergeDocuments(dst.Documents, *p.Documents)
	}
}

// mergeDocuments replaces the document list with next, keeping the upload time of
// documents whose URL was already present.
func mergeDocuments(prev, next []Document) []Document {
	uploaded := make(map[string]time.Time, len(prev))
	for _, d := range prev {
		uploaded[d.URL] = d.UploadedAt
	}
	out := make([]Document, 0, len(next))
	for _, d := range next {
		if at, ok := uploaded[d.URL]; ok {
			d.UploadedAt = at
		}
		out = append(out, d)
	}
	return out
}
