package domain

import "strings"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageRequest selects a page of a listing. Page is zero based.
type PageRequest struct {
	Page      int
	Size      int
	SortBy    string
	SortOrder string
}

var sortColumns = map[string]string{
	"id":        "id",
	"total":     "total",
	"status":    "status",
	"createdAt": "created_at",
}

// Normalize fills defaults and rejects values that cannot be used in a query.
func (p PageRequest) Normalize() (PageRequest, error) {
	if p.Page < 0 {
		return p, InvalidState("page must not be negative")
	}
	if p.Size == 0 {
		p.Size = DefaultPageSize
	}
	if p.Size < 0 || p.Size > MaxPageSize {
		return p, InvalidState("size must be between 1 and %d", MaxPageSize)
	}
	if p.SortBy == "" {
		p.SortBy = "id"
	}
	if _, ok := sortColumns[p.SortBy]; !ok {
		return p, InvalidState("cannot sort by %q", p.SortBy)
	}
	switch strings.ToLower(p.SortOrder) {
	case "", "asc":
		p.SortOrder = "asc"
	case "desc":
		p.SortOrder = "desc"
	default:
		return p, InvalidState("sort order must be asc or desc")
	}
	return p, nil
}

// SortColumn is the column name for SortBy. Call after Normalize.
func (p PageRequest) SortColumn() string {
	return sortColumns[p.SortBy]
}

func (p PageRequest) Offset() int {
	return p.Page * p.Size
}
