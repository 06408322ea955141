package domain

import (
	"strings"
	"time"
)

// Category classifies an NGO's cause area and a donor's preferences.
type Category string

const (
	CategoryEducation   Category = "education"
	CategoryHealthcare  Category = "healthcare"
	CategoryEnvironment Category = "environment"
	CategoryPoverty     Category = "poverty"
	CategoryHumanRights Category = "human-rights"
	CategoryAnimals     Category = "animals"
	CategoryOther       Category = "other"
)

// ParseCategory returns the category for s, or false if unknown.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CategoryEducation, CategoryHealthcare, CategoryEnvironment, CategoryPoverty,
		CategoryHumanRights, CategoryAnimals, CategoryOther:
		return c, true
	default:
		return "", false
	}
}

// RoleAttributes is the role-specific payload of a record: exactly one of
// DonorAttributes or NGOAttributes, matching the record's role.
type RoleAttributes interface {
	Role() Role
	clone() RoleAttributes
}

// DonorAttributes is the payload for donor accounts.
type DonorAttributes struct {
	PreferredCategories []Category
	TotalDonations      float64
	AnonymousDonations  bool
}

func (DonorAttributes) Role() Role { return RoleDonor }

func (a DonorAttributes) clone() RoleAttributes {
	a.PreferredCategories = append([]Category(nil), a.PreferredCategories...)
	return a
}

// Document is a supporting file uploaded by an NGO for vetting.
type Document struct {
	Name       string
	URL        string
	UploadedAt time.Time
}

// NGOAttributes is the payload for organization accounts.
// Verified is only changed by an administrator.
type NGOAttributes struct {
	OrganizationName   string
	RegistrationNumber string
	Website            string
	Mission            string
	FoundedYear        int
	Category           Category
	Verified           bool
	Documents          []Document
}

func (NGOAttributes) Role() Role { return RoleNGO }

func (a NGOAttributes) clone() RoleAttributes {
	a.Documents = append([]Document(nil), a.Documents...)
	return a
}

// DefaultAttributes returns the zero payload for role. NGOs start unverified.
func DefaultAttributes(role Role) RoleAttributes {
	if role == RoleNGO {
		return NGOAttributes{}
	}
	return DonorAttributes{}
}
