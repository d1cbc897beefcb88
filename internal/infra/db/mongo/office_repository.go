package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"deskhub/internal/domain/geo"
	domainoffices "deskhub/internal/domain/offices"
	domaintags "deskhub/internal/domain/tags"
	domainusers "deskhub/internal/domain/users"
)

type OfficeRepository struct {
	col      *mongo.Collection
	counters *mongo.Collection
}

func NewOfficeRepository(db *mongo.Database) *OfficeRepository {
	return &OfficeRepository{
		col:      db.Collection("offices"),
		counters: db.Collection("counters"),
	}
}

// EnsureIndexes creates the 2dsphere index driving distance ordering and the
// lookup index for image ids. Called once at startup.
func (r *OfficeRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "images._id", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		{Keys: bson.D{{Key: "seq", Value: 1}}},
	})
	return err
}

func (r *OfficeRepository) ByID(ctx context.Context, id domainoffices.OfficeID) (*domainoffices.Office, error) {
	var doc officeDocument
	err := r.col.FindOne(ctx, bson.M{"_id": string(id), "deleted_at": nil}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainoffices.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *OfficeRepository) FindImage(ctx context.Context, id domainoffices.ImageID) (domainoffices.Image, error) {
	var doc officeDocument
	err := r.col.FindOne(ctx, bson.M{"images._id": string(id), "deleted_at": nil}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domainoffices.Image{}, domainoffices.ErrImageNotFound
		}
		return domainoffices.Image{}, err
	}
	for _, img := range doc.Images {
		if img.ID == string(id) {
			return domainoffices.Image{
				ID:       domainoffices.ImageID(img.ID),
				OfficeID: domainoffices.OfficeID(doc.ID),
				Path:     img.Path,
			}, nil
		}
	}
	return domainoffices.Image{}, domainoffices.ErrImageNotFound
}

func (r *OfficeRepository) Save(ctx context.Context, office *domainoffices.Office) error {
	if office.Seq == 0 {
		seq, err := r.nextSeq(ctx)
		if err != nil {
			return err
		}
		office.Seq = seq
	}
	doc := newOfficeDocument(office)
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

func (r *OfficeRepository) Search(ctx context.Context, query domainoffices.Query) (domainoffices.Result, error) {
	query = query.Normalized()
	filter := searchFilter(query)

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return domainoffices.Result{}, err
	}

	var cursor *mongo.Cursor
	if query.Reference != nil {
		// $geoNear must open the pipeline; it both filters and emits
		// documents in ascending distance order.
		pipeline := mongo.Pipeline{
			bson.D{{Key: "$geoNear", Value: bson.M{
				"near": bson.M{
					"type":        "Point",
					"coordinates": bson.A{query.Reference.Lng, query.Reference.Lat},
				},
				"distanceField": "distance_m",
				"query":         filter,
				"spherical":     true,
			}}},
			bson.D{{Key: "$sort", Value: bson.D{{Key: "distance_m", Value: 1}, {Key: "seq", Value: 1}}}},
			bson.D{{Key: "$skip", Value: int64(query.Offset())}},
			bson.D{{Key: "$limit", Value: int64(domainoffices.PageSize)}},
		}
		cursor, err = r.col.Aggregate(ctx, pipeline)
	} else {
		opts := options.Find().
			SetSort(bson.D{{Key: "seq", Value: 1}}).
			SetSkip(int64(query.Offset())).
			SetLimit(int64(domainoffices.PageSize))
		cursor, err = r.col.Find(ctx, filter, opts)
	}
	if err != nil {
		return domainoffices.Result{}, err
	}
	defer cursor.Close(ctx)

	items := make([]*domainoffices.Office, 0, domainoffices.PageSize)
	for cursor.Next(ctx) {
		var doc officeDocument
		if err := cursor.Decode(&doc); err != nil {
			return domainoffices.Result{}, err
		}
		items = append(items, doc.toAggregate())
	}
	if err := cursor.Err(); err != nil {
		return domainoffices.Result{}, err
	}
	return domainoffices.Result{Items: items, Total: int(total)}, nil
}

func searchFilter(query domainoffices.Query) bson.M {
	filter := bson.M{"deleted_at": nil}
	if !query.VisibilityWaived() {
		filter["approval_status"] = string(domainoffices.ApprovalApproved)
		filter["hidden"] = false
	}
	if query.OwnerID != "" {
		filter["owner_id"] = string(query.OwnerID)
	}
	if query.WithinIDs != nil {
		ids := make([]string, 0, len(query.WithinIDs))
		for _, id := range query.WithinIDs {
			ids = append(ids, string(id))
		}
		filter["_id"] = bson.M{"$in": ids}
	}
	return filter
}

func (r *OfficeRepository) nextSeq(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc struct {
		Value int64 `bson:"value"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "office_seq"},
		bson.M{"$inc": bson.M{"value": 1}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Value, nil
}

type officeDocument struct {
	ID              string          `bson:"_id"`
	OwnerID         string          `bson:"owner_id"`
	Title           string          `bson:"title"`
	Description     string          `bson:"description"`
	Location        pointDocument   `bson:"location"`
	Address         string          `bson:"address"`
	PricePerDay     int64           `bson:"price_per_day"`
	MonthlyDiscount int             `bson:"monthly_discount"`
	ApprovalStatus  string          `bson:"approval_status"`
	Hidden          bool            `bson:"hidden"`
	FeaturedImageID string          `bson:"featured_image_id,omitempty"`
	Images          []imageDocument `bson:"images"`
	TagIDs          []string        `bson:"tag_ids"`
	Seq             int64           `bson:"seq"`
	CreatedAt       int64           `bson:"created_at"`
	UpdatedAt       int64           `bson:"updated_at"`
	DeletedAt       *int64          `bson:"deleted_at"`
}

// pointDocument is a GeoJSON point, coordinates ordered lng then lat.
type pointDocument struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

type imageDocument struct {
	ID   string `bson:"_id"`
	Path string `bson:"path"`
}

func newOfficeDocument(o *domainoffices.Office) officeDocument {
	images := make([]imageDocument, 0, len(o.Images))
	for _, img := range o.Images {
		images = append(images, imageDocument{ID: string(img.ID), Path: img.Path})
	}
	tagIDs := make([]string, 0, len(o.TagIDs))
	for _, id := range o.TagIDs {
		tagIDs = append(tagIDs, string(id))
	}
	doc := officeDocument{
		ID:              string(o.ID),
		OwnerID:         string(o.Owner),
		Title:           o.Title,
		Description:     o.Description,
		Location:        pointDocument{Type: "Point", Coordinates: []float64{o.Location.Lng, o.Location.Lat}},
		Address:         o.Address,
		PricePerDay:     o.PricePerDay,
		MonthlyDiscount: o.MonthlyDiscount,
		ApprovalStatus:  string(o.ApprovalStatus),
		Hidden:          o.Hidden,
		FeaturedImageID: string(o.FeaturedImageID),
		Images:          images,
		TagIDs:          tagIDs,
		Seq:             o.Seq,
		CreatedAt:       o.CreatedAt.UnixMilli(),
		UpdatedAt:       o.UpdatedAt.UnixMilli(),
	}
	if o.DeletedAt != nil {
		ms := o.DeletedAt.UnixMilli()
		doc.DeletedAt = &ms
	}
	return doc
}

func (d officeDocument) toAggregate() *domainoffices.Office {
	images := make([]domainoffices.Image, 0, len(d.Images))
	for _, img := range d.Images {
		images = append(images, domainoffices.Image{
			ID:       domainoffices.ImageID(img.ID),
			OfficeID: domainoffices.OfficeID(d.ID),
			Path:     img.Path,
		})
	}
	tagIDs := make([]domaintags.TagID, 0, len(d.TagIDs))
	for _, id := range d.TagIDs {
		tagIDs = append(tagIDs, domaintags.TagID(id))
	}
	var location geo.Coordinate
	if len(d.Location.Coordinates) == 2 {
		location = geo.Coordinate{Lat: d.Location.Coordinates[1], Lng: d.Location.Coordinates[0]}
	}
	office := &domainoffices.Office{
		ID:              domainoffices.OfficeID(d.ID),
		Owner:           domainusers.UserID(d.OwnerID),
		Title:           d.Title,
		Description:     d.Description,
		Location:        location,
		Address:         d.Address,
		PricePerDay:     d.PricePerDay,
		MonthlyDiscount: d.MonthlyDiscount,
		ApprovalStatus:  domainoffices.ApprovalStatus(d.ApprovalStatus),
		Hidden:          d.Hidden,
		FeaturedImageID: domainoffices.ImageID(d.FeaturedImageID),
		Images:          images,
		TagIDs:          tagIDs,
		Seq:             d.Seq,
		CreatedAt:       timestampToTime(d.CreatedAt),
		UpdatedAt:       timestampToTime(d.UpdatedAt),
	}
	if d.DeletedAt != nil {
		ts := timestampToTime(*d.DeletedAt)
		office.DeletedAt = &ts
	}
	return office
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

var _ domainoffices.Repository = (*OfficeRepository)(nil)
