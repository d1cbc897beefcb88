package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domaintags "deskhub/internal/domain/tags"
)

type TagRepository struct {
	col *mongo.Collection
}

func NewTagRepository(db *mongo.Database) *TagRepository {
	return &TagRepository{col: db.Collection("tags")}
}

func (r *TagRepository) All(ctx context.Context) ([]*domaintags.Tag, error) {
	cursor, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	return decodeTags(ctx, cursor)
}

func (r *TagRepository) ByIDs(ctx context.Context, ids []domaintags.TagID) ([]*domaintags.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, string(id))
	}
	cursor, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": raw}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	return decodeTags(ctx, cursor)
}

func (r *TagRepository) Save(ctx context.Context, tag *domaintags.Tag) error {
	doc := tagDocument{ID: string(tag.ID), Name: tag.Name}
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

func decodeTags(ctx context.Context, cursor *mongo.Cursor) ([]*domaintags.Tag, error) {
	var out []*domaintags.Tag
	for cursor.Next(ctx) {
		var doc tagDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, &domaintags.Tag{ID: domaintags.TagID(doc.ID), Name: doc.Name})
	}
	return out, cursor.Err()
}

type tagDocument struct {
	ID   string `bson:"_id"`
	Name string `bson:"name"`
}

var _ domaintags.Repository = (*TagRepository)(nil)
