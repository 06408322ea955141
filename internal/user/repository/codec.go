package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"givebridge/backend/internal/user/domain"
)

// JSONB shapes for the profile and role_attributes columns.

type addressJSON struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
	ZipCode string `json:"zip_code,omitempty"`
}

type profileJSON struct {
	Phone   string      `json:"phone,omitempty"`
	Address addressJSON `json:"address"`
	Avatar  string      `json:"avatar,omitempty"`
	Bio     string      `json:"bio,omitempty"`
}

type documentJSON struct {
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type donorJSON struct {
	PreferredCategories []string `json:"preferred_categories,omitempty"`
	TotalDonations      float64  `json:"total_donations"`
	AnonymousDonations  bool     `json:"anonymous_donations"`
}

type ngoJSON struct {
	OrganizationName   string         `json:"organization_name,omitempty"`
	RegistrationNumber string         `json:"registration_number,omitempty"`
	Website            string         `json:"website,omitempty"`
	Mission            string         `json:"mission,omitempty"`
	FoundedYear        int            `json:"founded_year,omitempty"`
	Category           string         `json:"category,omitempty"`
	Verified           bool           `json:"verified"`
	Documents          []documentJSON `json:"documents,omitempty"`
}

func encodeProfile(p domain.Profile) (string, error) {
	b, err := json.Marshal(profileJSON{
		Phone: p.Phone,
		Address: addressJSON{
			Street: p.Address.Street, City: p.Address.City, State: p.Address.State,
			Country: p.Address.Country, ZipCode: p.Address.ZipCode,
		},
		Avatar: p.Avatar,
		Bio:    p.Bio,
	})
	return string(b), err
}

func decodeProfile(raw []byte) (domain.Profile, error) {
	var p profileJSON
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return domain.Profile{}, fmt.Errorf("decode profile: %w", err)
		}
	}
	return domain.Profile{
		Phone: p.Phone,
		Address: domain.Address{
			Street: p.Address.Street, City: p.Address.City, State: p.Address.State,
			Country: p.Address.Country, ZipCode: p.Address.ZipCode,
		},
		Avatar: p.Avatar,
		Bio:    p.Bio,
	}, nil
}

func encodeAttributes(a domain.RoleAttributes) (string, error) {
	var v any
	switch a := a.(type) {
	case domain.DonorAttributes:
		cats := make([]string, len(a.PreferredCategories))
		for i, c := range a.PreferredCategories {
			cats[i] = string(c)
		}
		v = donorJSON{PreferredCategories: cats, TotalDonations: a.TotalDonations, AnonymousDonations: a.AnonymousDonations}
	case domain.NGOAttributes:
		docs := make([]documentJSON, len(a.Documents))
		for i, d := range a.Documents {
			docs[i] = documentJSON{Name: d.Name, URL: d.URL, UploadedAt: d.UploadedAt.UTC()}
		}
		v = ngoJSON{
			OrganizationName: a.OrganizationName, RegistrationNumber: a.RegistrationNumber,
			Website: a.Website, Mission: a.Mission, FoundedYear: a.FoundedYear,
			Category: string(a.Category), Verified: a.Verified, Documents: docs,
		}
	default:
		return "", fmt.Errorf("encode role attributes: unsupported type %T", a)
	}
	b, err := json.Marshal(v)
	return string(b), err
}

// decodeAttributes reads only the payload shape matching role; anything else in the column is ignored.
func decodeAttributes(role domain.Role, raw []byte) (domain.RoleAttributes, error) {
	if len(raw) == 0 {
		return domain.DefaultAttributes(role), nil
	}
	switch role {
	case domain.RoleNGO:
		var n ngoJSON
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("decode ngo attributes: %w", err)
		}
		var docs []domain.Document
		for _, d := range n.Documents {
			docs = append(docs, domain.Document{Name: d.Name, URL: d.URL, UploadedAt: d.UploadedAt.UTC()})
		}
		return domain.NGOAttributes{
			OrganizationName: n.OrganizationName, RegistrationNumber: n.RegistrationNumber,
			Website: n.Website, Mission: n.Mission, FoundedYear: n.FoundedYear,
			Category: domain.Category(n.Category), Verified: n.Verified, Documents: docs,
		}, nil
	case domain.RoleDonor:
		var d donorJSON
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode donor attributes: %w", err)
		}
		var cats []domain.Category
		for _, c := range d.PreferredCategories {
			cats = append(cats, domain.Category(c))
		}
		return domain.DonorAttributes{
			PreferredCategories: cats, TotalDonations: d.TotalDonations, AnonymousDonations: d.AnonymousDonations,
		}, nil
	default:
		return nil, fmt.Errorf("decode role attributes: unknown role %q", role)
	}
}
