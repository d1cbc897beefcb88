package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainusers "deskhub/internal/domain/users"
)

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection("users")}
}

func (r *UserRepository) ByID(ctx context.Context, id domainusers.UserID) (*domainusers.User, error) {
	var doc userDocument
	err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainusers.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *UserRepository) ByIDs(ctx context.Context, ids []domainusers.UserID) (map[domainusers.UserID]*domainusers.User, error) {
	out := make(map[domainusers.UserID]*domainusers.User, len(ids))
	if len(ids) == 0 {
		return out, nil
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
	for cursor.Next(ctx) {
		var doc userDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		user := doc.toAggregate()
		out[user.ID] = user
	}
	return out, cursor.Err()
}

func (r *UserRepository) Admins(ctx context.Context) ([]*domainusers.User, error) {
	cursor, err := r.col.Find(ctx, bson.M{"is_admin": true}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var out []*domainusers.User
	for cursor.Next(ctx) {
		var doc userDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cursor.Err()
}

func (r *UserRepository) Save(ctx context.Context, user *domainusers.User) error {
	doc := userDocument{
		ID:        string(user.ID),
		Name:      user.Name,
		Email:     user.Email,
		IsAdmin:   user.IsAdmin,
		CreatedAt: user.CreatedAt.UnixMilli(),
	}
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

type userDocument struct {
	ID        string `bson:"_id"`
	Name      string `bson:"name"`
	Email     string `bson:"email"`
	IsAdmin   bool   `bson:"is_admin"`
	CreatedAt int64  `bson:"created_at"`
}

func (d userDocument) toAggregate() *domainusers.User {
	return &domainusers.User{
		ID:        domainusers.UserID(d.ID),
		Name:      d.Name,
		Email:     d.Email,
		IsAdmin:   d.IsAdmin,
		CreatedAt: timestampToTime(d.CreatedAt),
	}
}

var _ domainusers.Repository = (*UserRepository)(nil)
