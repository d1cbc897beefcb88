package offices

import (
	"deskhub/internal/domain/geo"
	"deskhub/internal/domain/users"
)

// PageSize is the fixed page length for office collections.
const PageSize = 20

// Query composes the optional retrieval predicates. All filters are
// conjunctive; only the final predicate set matters.
type Query struct {
	// Requester is the authenticated caller, empty for anonymous requests.
	Requester users.UserID
	// OwnerID restricts results to one owner when non-empty.
	OwnerID users.UserID
	// WithinIDs, when non-nil, restricts results to this id set. The query
	// handler resolves the visitor/reservation semi-join into it before the
	// repository runs; a non-nil empty set matches nothing.
	WithinIDs []OfficeID
	// Reference switches ordering from insertion order to ascending distance.
	Reference *geo.Coordinate
	// Page is 1-based.
	Page int
}

// VisibilityWaived reports whether the approved-and-not-hidden base
// predicate is dropped: only when an authenticated requester asks for their
// own listings does the query surface pending, rejected and hidden offices.
func (q Query) VisibilityWaived() bool {
	return q.Requester != "" && q.OwnerID != "" && q.OwnerID == q.Requester
}

// Normalized clamps paging.
func (q Query) Normalized() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	return q
}

// Offset of the first row of the requested page.
func (q Query) Offset() int {
	return (q.Normalized().Page - 1) * PageSize
}

// Result is one page of matches plus the total match count.
type Result struct {
	Items []*Office
	Total int
}
