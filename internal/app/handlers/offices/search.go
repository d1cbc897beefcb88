package offices

import (
	"context"

	"deskhub/internal/app/dto"
	"deskhub/internal/app/queries"
	"deskhub/internal/app/uow"
	"deskhub/internal/domain/geo"
	domainoffices "deskhub/internal/domain/offices"
	domainusers "deskhub/internal/domain/users"
)

const searchOfficesKey = "offices.search"

// SearchOfficesQuery is the criteria-driven collection retrieval. All parts
// are optional; an empty query is the anonymous public listing.
type SearchOfficesQuery struct {
	Requester domainusers.UserID
	OwnerID   domainusers.UserID
	VisitorID domainusers.UserID
	Reference *geo.Coordinate
	Page      int
}

func (q SearchOfficesQuery) Key() string { return searchOfficesKey }

type SearchOfficesHandler struct {
	Factory uow.Factory
}

func (h *SearchOfficesHandler) Handle(ctx context.Context, q SearchOfficesQuery) (dto.OfficeCollection, error) {
	unit, err := h.Factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.OfficeCollection{}, err
	}
	defer unit.Rollback(ctx)

	query := domainoffices.Query{
		Requester: q.Requester,
		OwnerID:   q.OwnerID,
		Reference: q.Reference,
		Page:      q.Page,
	}.Normalized()

	// The visitor filter is an existence semi-join on reservations, resolved
	// up front into an id restriction so the office search stays a single
	// conjunctive predicate set.
	if q.VisitorID != "" {
		ids, err := unit.Reservations().OfficeIDsForVisitor(ctx, q.VisitorID)
		if err != nil {
			return dto.OfficeCollection{}, err
		}
		if ids == nil {
			ids = []domainoffices.OfficeID{}
		}
		query.WithinIDs = ids
	}

	result, err := unit.Offices().Search(ctx, query)
	if err != nil {
		return dto.OfficeCollection{}, err
	}

	resources, err := attachResources(ctx, unit, result.Items)
	if err != nil {
		return dto.OfficeCollection{}, err
	}

	return dto.OfficeCollection{
		Data: resources,
		Meta: dto.PageMeta(result.Total, query.Page, domainoffices.PageSize),
	}, nil
}

var _ queries.Handler[SearchOfficesQuery, dto.OfficeCollection] = (*SearchOfficesHandler)(nil)
