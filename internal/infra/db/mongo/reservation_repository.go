package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainoffices "deskhub/internal/domain/offices"
	domainreservations "deskhub/internal/domain/reservations"
	domainusers "deskhub/internal/domain/users"
)

type ReservationRepository struct {
	col *mongo.Collection
}

func NewReservationRepository(db *mongo.Database) *ReservationRepository {
	return &ReservationRepository{col: db.Collection("reservations")}
}

func (r *ReservationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "office_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "visitor_id", Value: 1}}},
	})
	return err
}

func (r *ReservationRepository) CountActive(ctx context.Context, officeIDs []domainoffices.OfficeID) (map[domainoffices.OfficeID]int, error) {
	counts := make(map[domainoffices.OfficeID]int, len(officeIDs))
	if len(officeIDs) == 0 {
		return counts, nil
	}
	ids := make([]string, 0, len(officeIDs))
	for _, id := range officeIDs {
		ids = append(ids, string(id))
	}
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"office_id": bson.M{"$in": ids},
			"status":    string(domainreservations.StatusActive),
		}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":   "$office_id",
			"count": bson.M{"$sum": 1},
		}}},
	}
	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	for cursor.Next(ctx) {
		var row struct {
			OfficeID string `bson:"_id"`
			Count    int    `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		counts[domainoffices.OfficeID(row.OfficeID)] = row.Count
	}
	return counts, cursor.Err()
}

func (r *ReservationRepository) HasActive(ctx context.Context, officeID domainoffices.OfficeID) (bool, error) {
	err := r.col.FindOne(ctx, bson.M{
		"office_id": string(officeID),
		"status":    string(domainreservations.StatusActive),
	}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *ReservationRepository) OfficeIDsForVisitor(ctx context.Context, visitorID domainusers.UserID) ([]domainoffices.OfficeID, error) {
	raw, err := r.col.Distinct(ctx, "office_id", bson.M{"visitor_id": string(visitorID)})
	if err != nil {
		return nil, err
	}
	ids := make([]domainoffices.OfficeID, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			ids = append(ids, domainoffices.OfficeID(s))
		}
	}
	return ids, nil
}

func (r *ReservationRepository) Save(ctx context.Context, reservation *domainreservations.Reservation) error {
	doc := reservationDocument{
		ID:        string(reservation.ID),
		OfficeID:  string(reservation.OfficeID),
		VisitorID: string(reservation.VisitorID),
		Status:    string(reservation.Status),
		StartDate: reservation.StartDate.UnixMilli(),
		EndDate:   reservation.EndDate.UnixMilli(),
		CreatedAt: reservation.CreatedAt.UnixMilli(),
	}
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

type reservationDocument struct {
	ID        string `bson:"_id"`
	OfficeID  string `bson:"office_id"`
	VisitorID string `bson:"visitor_id"`
	Status    string `bson:"status"`
	StartDate int64  `bson:"start_date"`
	EndDate   int64  `bson:"end_date"`
	CreatedAt int64  `bson:"created_at"`
}

var _ domainreservations.Repository = (*ReservationRepository)(nil)
