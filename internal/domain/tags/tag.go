package tags

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("tags: tag not found")

type TagID string

type Tag struct {
	ID   TagID
	Name string
}

type Repository interface {
	All(ctx context.Context) ([]*Tag, error)
	ByIDs(ctx context.Context, ids []TagID) ([]*Tag, error)
	Save(ctx context.Context, tag *Tag) error
}
