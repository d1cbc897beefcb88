package tags

import (
	"context"

	"deskhub/internal/app/dto"
	"deskhub/internal/app/queries"
	"deskhub/internal/app/uow"
)

const listTagsKey = "tags.list"

type ListTagsQuery struct{}

func (q ListTagsQuery) Key() string { return listTagsKey }

type ListTagsHandler struct {
	Factory uow.Factory
}

func (h *ListTagsHandler) Handle(ctx context.Context, _ ListTagsQuery) (dto.TagCollection, error) {
	unit, err := h.Factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.TagCollection{}, err
	}
	defer unit.Rollback(ctx)

	all, err := unit.Tags().All(ctx)
	if err != nil {
		return dto.TagCollection{}, err
	}
	data := make([]dto.TagResource, 0, len(all))
	for _, tag := range all {
		data = append(data, dto.TagResource{ID: string(tag.ID), Name: tag.Name})
	}
	return dto.TagCollection{Data: data}, nil
}

var _ queries.Handler[ListTagsQuery, dto.TagCollection] = (*ListTagsHandler)(nil)
