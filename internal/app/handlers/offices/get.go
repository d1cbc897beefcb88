package offices

import (
	"context"

	"deskhub/internal/app/dto"
	"deskhub/internal/app/queries"
	"deskhub/internal/app/uow"
	domainoffices "deskhub/internal/domain/offices"
	domainusers "deskhub/internal/domain/users"
)

const getOfficeKey = "offices.get"

type GetOfficeQuery struct {
	Requester domainusers.UserID
	OfficeID  domainoffices.OfficeID
}

func (q GetOfficeQuery) Key() string { return getOfficeKey }

type GetOfficeHandler struct {
	Factory uow.Factory
}

func (h *GetOfficeHandler) Handle(ctx context.Context, q GetOfficeQuery) (dto.OfficeEnvelope, error) {
	unit, err := h.Factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.OfficeEnvelope{}, err
	}
	defer unit.Rollback(ctx)

	office, err := unit.Offices().ByID(ctx, q.OfficeID)
	if err != nil {
		return dto.OfficeEnvelope{}, err
	}
	// Non-owners only ever observe approved, unhidden offices; everyone else
	// gets a not-found rather than a hint the office exists.
	if !office.Visible() && office.Owner != q.Requester {
		return dto.OfficeEnvelope{}, domainoffices.ErrNotFound
	}

	resource, err := attachOne(ctx, unit, office)
	if err != nil {
		return dto.OfficeEnvelope{}, err
	}
	return dto.OfficeEnvelope{Data: resource}, nil
}

var _ queries.Handler[GetOfficeQuery, dto.OfficeEnvelope] = (*GetOfficeHandler)(nil)
