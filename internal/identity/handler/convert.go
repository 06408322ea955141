package handler

import (
	"time"

	apperrors "givebridge/backend/internal/platform/errors"
	"givebridge/backend/internal/user/domain"
)

func parseCategories(in []string) ([]domain.Category, error) {
	out := make([]domain.Category, 0, len(in))
	for _, s := range in {
		c, ok := domain.ParseCategory(s)
		if !ok {
			return nil, apperrors.New(apperrors.CodeInvalidArgument, "unknown category "+s)
		}
		out = append(out, c)
	}
	return out, nil
}

func (in *ngoDetailsInput) patch(now time.Time) (*domain.NGOPatch, error) {
	if in == nil {
		return nil, nil
	}
	p := &domain.NGOPatch{
		OrganizationName:   in.OrganizationName,
		RegistrationNumber: in.RegistrationNumber,
		Website:            in.Website,
		Mission:            in.Mission,
		FoundedYear:        in.FoundedYear,
	}
	if in.FoundedYear != nil && (*in.FoundedYear < 1800 || *in.FoundedYear > now.Year()) {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "foundedYear out of range")
	}
	if in.Category != nil {
		c, ok := domain.ParseCategory(*in.Category)
		if !ok {
			return nil, apperrors.New(apperrors.CodeInvalidArgument, "unknown category "+*in.Category)
		}
		p.Category = &c
	}
	if in.Documents != nil {
		docs := make([]domain.Document, 0, len(*in.Documents))
		for _, d := range *in.Documents {
			docs = append(docs, domain.Document{Name: d.Name, URL: d.URL, UploadedAt: now})
		}
		p.Documents = &docs
	}
	return p, nil
}

func (in *donorDetailsInput) patch() (*domain.DonorPatch, error) {
	if in == nil {
		return nil, nil
	}
	p := &domain.DonorPatch{AnonymousDonations: in.AnonymousDonations}
	if in.PreferredCategories != nil {
		cats, err := parseCategories(*in.PreferredCategories)
		if err != nil {
			return nil, err
		}
		p.PreferredCategories = &cats
	}
	return p, nil
}

func (in *profileInput) patch() *domain.ProfilePatch {
	if in == nil {
		return nil
	}
	p := &domain.ProfilePatch{Phone: in.Phone, Avatar: in.Avatar, Bio: in.Bio}
	if in.Address != nil {
		p.Address = &domain.Address{
			Street: in.Address.Street, City: in.Address.City, State: in.Address.State,
			Country: in.Address.Country, ZipCode: in.Address.ZipCode,
		}
	}
	return p
}

func (r updateProfileRequest) patch(now time.Time) (domain.Patch, error) {
	ngo, err := r.NGODetails.patch(now)
	if err != nil {
		return domain.Patch{}, err
	}
	donor, err := r.DonorDetails.patch()
	if err != nil {
		return domain.Patch{}, err
	}
	return domain.Patch{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Profile:   r.Profile.patch(),
		NGO:       ngo,
		Donor:     donor,
	}, nil
}

// attributes builds the initial role payload for signup. Details for the other role are ignored.
func (r signupRequest) attributes(role domain.Role, now time.Time) (domain.RoleAttributes, error) {
	switch role {
	case domain.RoleNGO:
		a := domain.NGOAttributes{}
		p, err := r.NGODetails.patch(now)
		if err != nil || p == nil {
			return a, err
		}
		rec := &domain.IdentityRecord{Role: role, Attributes: a}
		if _, err := rec.Apply(domain.Patch{NGO: p}, now); err != nil {
			return nil, err
		}
		return rec.Attributes, nil
	default:
		a := domain.DonorAttributes{}
		p, err := r.DonorDetails.patch()
		if err != nil || p == nil {
			return a, err
		}
		rec := &domain.IdentityRecord{Role: role, Attributes: a}
		if _, err := rec.Apply(domain.Patch{Donor: p}, now); err != nil {
			return nil, err
		}
		return rec.Attributes, nil
	}
}
