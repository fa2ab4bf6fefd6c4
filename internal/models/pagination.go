package models

import (
	"strings"
)

// SortField is a user attribute the user list can be ordered by
type SortField string

const (
	SortByCreatedAt SortField = "createdAt"
	SortByUpdatedAt SortField = "updatedAt"
	SortByFirstName SortField = "firstName"
	SortByLastName  SortField = "lastName"
	SortByEmail     SortField = "email"
	SortByBirthdate SortField = "birthdate"
)

// sortColumns maps every sortable field to its column in the users table
var sortColumns = map[SortField]string{
	SortByCreatedAt: "created_at",
	SortByUpdatedAt: "updated_at",
	SortByFirstName: "first_name",
	SortByLastName:  "last_name",
	SortByEmail:     "email",
	SortByBirthdate: "birthdate",
}

// IsValidSortField checks if a field name is sortable
func IsValidSortField(field string) bool {
	_, ok := sortColumns[SortField(field)]
	return ok
}

// Column returns the users table column backing the field
func (f SortField) Column() string {
	return sortColumns[f]
}

// ValueOf extracts the field's value from a user, as stored in the database
func (f SortField) ValueOf(u *User) any {
	switch f {
	case SortByCreatedAt:
		return u.CreatedAt
	case SortByUpdatedAt:
		return u.UpdatedAt
	case SortByFirstName:
		return u.FirstName
	case SortByLastName:
		return u.LastName
	case SortByEmail:
		return u.Email
	case SortByBirthdate:
		return u.Birthdate
	}
	return nil
}

// SortOrder is the direction of a sorted scan
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// ParseSortOrder accepts asc/desc in any case; anything else falls back to DESC
func ParseSortOrder(s string) SortOrder {
	if strings.EqualFold(s, string(SortAsc)) {
		return SortAsc
	}
	return SortDesc
}

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// UserFilters narrows a user listing. Search, when set, replaces the
// per-field filters entirely.
type UserFilters struct {
	Search    string
	FirstName string
	LastName  string
	Email     string
}

// PageRequest describes one page of the user listing
type PageRequest struct {
	Cursor    string
	Limit     int
	SortBy    SortField
	SortOrder SortOrder
	Filters   UserFilters
}

// Normalize fills defaults and clamps the limit
func (p PageRequest) Normalize() PageRequest {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if !IsValidSortField(string(p.SortBy)) {
		p.SortBy = SortByCreatedAt
	}
	if p.SortOrder != SortAsc && p.SortOrder != SortDesc {
		p.SortOrder = SortDesc
	}
	p.Filters.Search = strings.TrimSpace(p.Filters.Search)
	p.Filters.FirstName = strings.TrimSpace(p.Filters.FirstName)
	p.Filters.LastName = strings.TrimSpace(p.Filters.LastName)
	p.Filters.Email = strings.TrimSpace(p.Filters.Email)
	return p
}

// UserPage is one page of users plus the cursor to resume after it
type UserPage struct {
	Data       []*User
	NextCursor *string
	HasMore    bool
	Count      int
	Limit      int
}
