package handler

import (
	"time"

	"givebridge/backend/internal/user/domain"
)

type addressDTO struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
}

type profileDTO struct {
	Phone   string     `json:"phone,omitempty"`
	Address addressDTO `json:"address"`
	Avatar  string     `json:"avatar,omitempty"`
	Bio     string     `json:"bio,omitempty"`
}

type documentDTO struct {
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type ngoDetailsDTO struct {
	OrganizationName   string        `json:"organizationName,omitempty"`
	RegistrationNumber string        `json:"registrationNumber,omitempty"`
	Website            string        `json:"website,omitempty"`
	Mission            string        `json:"mission,omitempty"`
	FoundedYear        int           `json:"foundedYear,omitempty"`
	Category           string        `json:"category,omitempty"`
	Verified           bool          `json:"verified"`
	Documents          []documentDTO `json:"documents"`
}

type donorDetailsDTO struct {
	PreferredCategories []string `json:"preferredCategories"`
	TotalDonations      float64  `json:"totalDonations"`
	AnonymousDonations  bool     `json:"anonymousDonations"`
}

// userDTO is the JSON view of a record. Only the details block matching the
// role is ever set. Private fields are nil in public views.
type userDTO struct {
	ID            string           `json:"id"`
	ExternalID    string           `json:"externalId,omitempty"`
	FirstName     string           `json:"firstName"`
	LastName      string           `json:"lastName"`
	Email         string           `json:"email,omitempty"`
	UserType      string           `json:"userType"`
	EmailVerified *bool            `json:"emailVerified,omitempty"`
	IsActive      *bool            `json:"isActive,omitempty"`
	Profile       profileDTO       `json:"profile"`
	NGODetails    *ngoDetailsDTO   `json:"ngoDetails,omitempty"`
	DonorDetails  *donorDetailsDTO `json:"donorDetails,omitempty"`
	LastLogin     *time.Time       `json:"lastLogin,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// view selects how much of a record a response reveals.
type view int

const (
	viewPublic view = iota // no identifiers, contact details, or activity
	viewOwner              // caller's own record
)

func toUserDTO(r *domain.IdentityRecord, v view) userDTO {
	out := userDTO{
		ID:        r.ID,
		FirstName: r.Name.First,
		LastName:  r.Name.Last,
		UserType:  string(r.Role),
		Profile:   toProfileDTO(r.Profile),
		CreatedAt: r.CreatedAt,
	}
	if ngo, ok := r.NGO(); ok {
		d := toNGODetailsDTO(ngo)
		out.NGODetails = &d
	}
	if donor, ok := r.Donor(); ok {
		cats := make([]string, 0, len(donor.PreferredCategories))
		for _, c := range donor.PreferredCategories {
			cats = append(cats, string(c))
		}
		out.DonorDetails = &donorDetailsDTO{
			PreferredCategories: cats,
			TotalDonations:      donor.TotalDonations,
			AnonymousDonations:  donor.AnonymousDonations,
		}
	}
	if v == viewOwner {
		verified, active := r.EmailVerified, r.Active
		out.ExternalID = r.ExternalID
		out.Email = r.Email
		out.EmailVerified = &verified
		out.IsActive = &active
		if !r.LastLogin.IsZero() {
			last := r.LastLogin
			out.LastLogin = &last
		}
	}
	return out
}

func toProfileDTO(p domain.Profile) profileDTO {
	return profileDTO{
		Phone: p.Phone,
		Address: addressDTO{
			Street: p.Address.Street, City: p.Address.City, State: p.Address.State,
			Country: p.Address.Country, ZipCode: p.Address.ZipCode,
		},
		Avatar: p.Avatar,
		Bio:    p.Bio,
	}
}

func toNGODetailsDTO(a domain.NGOAttributes) ngoDetailsDTO {
	docs := make([]documentDTO, 0, len(a.Documents))
	for _, d := range a.Documents {
		docs = append(docs, documentDTO{Name: d.Name, URL: d.URL, UploadedAt: d.UploadedAt})
	}
	return ngoDetailsDTO{
		OrganizationName:   a.OrganizationName,
		RegistrationNumber: a.RegistrationNumber,
		Website:            a.Website,
		Mission:            a.Mission,
		FoundedYear:        a.FoundedYear,
		Category:           string(a.Category),
		Verified:           a.Verified,
		Documents:          docs,
	}
}

// Request bodies. Pointer fields distinguish "absent" from "zero".

type addressInput struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	ZipCode string `json:"zipCode"`
}

type profileInput struct {
	Phone   *string       `json:"phone"`
	Address *addressInput `json:"address"`
	Avatar  *string       `json:"avatar"`
	Bio     *string       `json:"bio"`
}

type documentInput struct {
	Name string `json:"name" binding:"required"`
	URL  string `json:"url" binding:"required"`
}

type ngoDetailsInput struct {
	OrganizationName   *string          `json:"organizationName"`
	RegistrationNumber *string          `json:"registrationNumber"`
	Website            *string          `json:"website"`
	Mission            *string          `json:"mission"`
	FoundedYear        *int             `json:"foundedYear"`
	Category           *string          `json:"category"`
	Documents          *[]documentInput `json:"documents" binding:"omitempty,dive"`
}

type donorDetailsInput struct {
	PreferredCategories *[]string `json:"preferredCategories"`
	AnonymousDonations  *bool     `json:"anonymousDonations"`
}

type signupRequest struct {
	Email        string             `json:"email" binding:"required"`
	FirstName    string             `json:"firstName"`
	LastName     string             `json:"lastName"`
	UserType     string             `json:"userType" binding:"required"`
	NGODetails   *ngoDetailsInput   `json:"ngoDetails"`
	DonorDetails *donorDetailsInput `json:"donorDetails"`
}

type updateProfileRequest struct {
	FirstName    *string            `json:"firstName"`
	LastName     *string            `json:"lastName"`
	Profile      *profileInput      `json:"profile"`
	NGODetails   *ngoDetailsInput   `json:"ngoDetails"`
	DonorDetails *donorDetailsInput `json:"donorDetails"`
}

type verifyEmailRequest struct {
	EmailVerified *bool `json:"emailVerified" binding:"required"`
}

type verifyNGORequest struct {
	Verified *bool `json:"verified" binding:"required"`
}

type statusRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}
