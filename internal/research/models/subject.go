package models

import (
	"fmt"
	"strings"

	dErrors "zonescout/pkg/domain-errors"
	pstrings "zonescout/pkg/platform/strings"
)

// DefaultCity is appended to every research address.
const DefaultCity = "Los Angeles, CA"

// Subject identifies the property being researched.
type Subject struct {
	StreetName  string
	HouseNumber string
	Address     string
}

// NewSubject normalizes the street and house number and derives the full
// address "<house_number> <street_name>, <city>".
func NewSubject(streetName, houseNumber, city string) (Subject, error) {
	street := pstrings.NormalizeSpace(streetName)
	number := strings.TrimSpace(houseNumber)
	if street == "" {
		return Subject{}, dErrors.New(dErrors.CodeValidation, "street_name is required")
	}
	if number == "" {
		return Subject{}, dErrors.New(dErrors.CodeValidation, "house_number is required")
	}
	city = pstrings.NormalizeSpace(city)
	if city == "" {
		city = DefaultCity
	}
	return Subject{
		StreetName:  street,
		HouseNumber: number,
		Address:     fmt.Sprintf("%s %s, %s", number, street, city),
	}, nil
}

// Key is a case-insensitive identity for the subject, used by caches.
func (s Subject) Key() string {
	return strings.ToLower(s.Address)
}
