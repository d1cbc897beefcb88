package offices

import (
	"context"
	"errors"
	"strings"
	"time"

	"deskhub/internal/domain/geo"
	"deskhub/internal/domain/shared/events"
	"deskhub/internal/domain/tags"
	"deskhub/internal/domain/users"
)

var (
	ErrTitleRequired   = errors.New("offices: title is required")
	ErrAddressRequired = errors.New("offices: address is required")
	ErrInvalidLat      = errors.New("offices: latitude must be between -90 and 90")
	ErrInvalidLng      = errors.New("offices: longitude must be between -180 and 180")
	ErrNegativePrice   = errors.New("offices: price per day must be non-negative")
	ErrDiscountRange   = errors.New("offices: monthly discount must be between 0 and 100")
	ErrNotFound        = errors.New("offices: office not found")
	ErrImageNotFound   = errors.New("offices: image not found")
)

// RuleViolation is a business-rule rejection surfaced to callers as an
// unprocessable-entity error scoped to a single field.
type RuleViolation struct {
	Field   string
	Message string
}

func (e RuleViolation) Error() string { return e.Field + ": " + e.Message }

var (
	ErrActiveReservations = RuleViolation{Field: "office", Message: "cannot delete an office with active reservations"}
	ErrImageNotOwned      = RuleViolation{Field: "image", Message: "cannot delete this image"}
	ErrOnlyImage          = RuleViolation{Field: "image", Message: "cannot delete the only image"}
	ErrFeaturedImage      = RuleViolation{Field: "image", Message: "cannot delete the featured image"}
	ErrFeaturedNotOwned   = RuleViolation{Field: "featured_image_id", Message: "image does not belong to this office"}
)

type OfficeID string
type ImageID string

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Image is a stored file attached to exactly one office. Path is the object
// key inside the blob store, not a browser URL.
type Image struct {
	ID       ImageID
	OfficeID OfficeID
	Path     string
}

// Office is a coworking space offered for reservation. A tombstoned office
// (DeletedAt set) is logically absent from every standard read path.
type Office struct {
	ID              OfficeID
	Owner           users.UserID
	Title           string
	Description     string
	Location        geo.Coordinate
	Address         string
	PricePerDay     int64 // minor currency units
	MonthlyDiscount int   // percentage
	ApprovalStatus  ApprovalStatus
	Hidden          bool
	FeaturedImageID ImageID // empty when unset
	Images          []Image
	TagIDs          []tags.TagID
	Seq             int64 // insertion-order key, assigned by the repository
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
	events.Recorder
}

// Visible reports whether a non-owner requester may observe the office.
func (o *Office) Visible() bool {
	return o.ApprovalStatus == ApprovalApproved && !o.Hidden
}

func (o *Office) Deleted() bool { return o.DeletedAt != nil }

type CreateParams struct {
	ID              OfficeID
	Owner           users.UserID
	Title           string
	Description     string
	Location        geo.Coordinate
	Address         string
	PricePerDay     int64
	MonthlyDiscount int
	TagIDs          []tags.TagID
	Now             time.Time
}

// New creates an office in the pending approval state. Callers cannot
// self-approve: whatever status a request carries is ignored here.
func New(params CreateParams) (*Office, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("offices: id is required")
	}
	if strings.TrimSpace(string(params.Owner)) == "" {
		return nil, errors.New("offices: owner is required")
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if strings.TrimSpace(params.Address) == "" {
		return nil, ErrAddressRequired
	}
	if err := validateCoordinate(params.Location); err != nil {
		return nil, err
	}
	if params.PricePerDay < 0 {
		return nil, ErrNegativePrice
	}
	if params.MonthlyDiscount < 0 || params.MonthlyDiscount > 100 {
		return nil, ErrDiscountRange
	}

	office := &Office{
		ID:              params.ID,
		Owner:           params.Owner,
		Title:           strings.TrimSpace(params.Title),
		Description:     strings.TrimSpace(params.Description),
		Location:        params.Location,
		Address:         strings.TrimSpace(params.Address),
		PricePerDay:     params.PricePerDay,
		MonthlyDiscount: params.MonthlyDiscount,
		ApprovalStatus:  ApprovalPending,
		Hidden:          false,
		TagIDs:          append([]tags.TagID(nil), params.TagIDs...),
		CreatedAt:       params.Now.UTC(),
		UpdatedAt:       params.Now.UTC(),
	}
	office.Record(OfficeCreated{OfficeID: office.ID, Owner: office.Owner, At: office.CreatedAt})
	return office, nil
}

// UpdateParams carries a partial update: nil fields were not submitted and
// leave the persisted value untouched.
type UpdateParams struct {
	Title           *string
	Description     *string
	Lat             *float64
	Lng             *float64
	Address         *string
	PricePerDay     *int64
	MonthlyDiscount *int
	Hidden          *bool
	FeaturedImageID *ImageID
	TagIDs          []tags.TagID // nil = keep, non-nil = replace with exactly this set
	Now             time.Time
	AdminIDs        []users.UserID // recipients if the update forces re-review
}

// ApplyUpdate mutates the office in place and runs the re-review transition:
// when the submitted latitude, longitude or price per day differs by value
// from the persisted one, the approval status is forced back to pending from
// any prior state and an OfficePendingApproval event is recorded. Submitting
// a field with its current value does not trigger re-review.
func (o *Office) ApplyUpdate(params UpdateParams) (requiresReview bool, err error) {
	if params.Title != nil && strings.TrimSpace(*params.Title) == "" {
		return false, ErrTitleRequired
	}
	if params.Address != nil && strings.TrimSpace(*params.Address) == "" {
		return false, ErrAddressRequired
	}
	if params.Lat != nil && (*params.Lat < -90 || *params.Lat > 90) {
		return false, ErrInvalidLat
	}
	if params.Lng != nil && (*params.Lng < -180 || *params.Lng > 180) {
		return false, ErrInvalidLng
	}
	if params.PricePerDay != nil && *params.PricePerDay < 0 {
		return false, ErrNegativePrice
	}
	if params.MonthlyDiscount != nil && (*params.MonthlyDiscount < 0 || *params.MonthlyDiscount > 100) {
		return false, ErrDiscountRange
	}
	if params.FeaturedImageID != nil && *params.FeaturedImageID != "" {
		if _, ok := o.imageByID(*params.FeaturedImageID); !ok {
			return false, ErrFeaturedNotOwned
		}
	}

	if params.Lat != nil && *params.Lat != o.Location.Lat {
		requiresReview = true
	}
	if params.Lng != nil && *params.Lng != o.Location.Lng {
		requiresReview = true
	}
	if params.PricePerDay != nil && *params.PricePerDay != o.PricePerDay {
		requiresReview = true
	}

	if params.Title != nil {
		o.Title = strings.TrimSpace(*params.Title)
	}
	if params.Description != nil {
		o.Description = strings.TrimSpace(*params.Description)
	}
	if params.Lat != nil {
		o.Location.Lat = *params.Lat
	}
	if params.Lng != nil {
		o.Location.Lng = *params.Lng
	}
	if params.Address != nil {
		o.Address = strings.TrimSpace(*params.Address)
	}
	if params.PricePerDay != nil {
		o.PricePerDay = *params.PricePerDay
	}
	if params.MonthlyDiscount != nil {
		o.MonthlyDiscount = *params.MonthlyDiscount
	}
	if params.Hidden != nil {
		o.Hidden = *params.Hidden
	}
	if params.FeaturedImageID != nil {
		o.FeaturedImageID = *params.FeaturedImageID
	}
	if params.TagIDs != nil {
		o.TagIDs = append([]tags.TagID(nil), params.TagIDs...)
	}
	o.UpdatedAt = params.Now.UTC()

	if requiresReview {
		o.ApprovalStatus = ApprovalPending
		o.Record(OfficePendingApproval{
			OfficeID: o.ID,
			Title:    o.Title,
			Owner:    o.Owner,
			AdminIDs: append([]users.UserID(nil), params.AdminIDs...),
			At:       o.UpdatedAt,
		})
	}
	return requiresReview, nil
}

// Approve and Reject are the administrative transitions. They sit outside
// this service's HTTP surface but are needed by the moderation tooling and
// by seeding.
func (o *Office) Approve(now time.Time) {
	o.ApprovalStatus = ApprovalApproved
	o.UpdatedAt = now.UTC()
}

func (o *Office) Reject(now time.Time) {
	o.ApprovalStatus = ApprovalRejected
	o.UpdatedAt = now.UTC()
}

// AddImage attaches an uploaded image record to the office.
func (o *Office) AddImage(id ImageID, path string, now time.Time) Image {
	img := Image{ID: id, OfficeID: o.ID, Path: path}
	o.Images = append(o.Images, img)
	o.UpdatedAt = now.UTC()
	return img
}

// ImageDeleteGuard validates the image removal invariants in priority order:
// ownership mismatch, last remaining image, featured image. The first
// violated check is the one reported. It never mutates state; the stored
// file must not be touched before this passes.
func (o *Office) ImageDeleteGuard(img Image) error {
	if img.OfficeID != o.ID {
		return ErrImageNotOwned
	}
	if len(o.Images) == 1 {
		return ErrOnlyImage
	}
	if o.FeaturedImageID == img.ID {
		return ErrFeaturedImage
	}
	return nil
}

// RemoveImage drops the image record after the guard and storage removal
// have both succeeded.
func (o *Office) RemoveImage(id ImageID, now time.Time) error {
	for i, img := range o.Images {
		if img.ID == id {
			o.Images = append(o.Images[:i], o.Images[i+1:]...)
			o.UpdatedAt = now.UTC()
			return nil
		}
	}
	return ErrImageNotFound
}

// SoftDelete tombstones the office. The active-reservation guard is a
// cross-aggregate check owned by the delete handler.
func (o *Office) SoftDelete(now time.Time) {
	ts := now.UTC()
	o.DeletedAt = &ts
	o.UpdatedAt = ts
	o.Record(OfficeDeleted{OfficeID: o.ID, Owner: o.Owner, At: ts})
}

func (o *Office) imageByID(id ImageID) (Image, bool) {
	for _, img := range o.Images {
		if img.ID == id {
			return img, true
		}
	}
	return Image{}, false
}

// ImageByID exposes the image lookup used by the delete-image path.
func (o *Office) ImageByID(id ImageID) (Image, bool) {
	return o.imageByID(id)
}

func validateCoordinate(c geo.Coordinate) error {
	if c.Lat < -90 || c.Lat > 90 {
		return ErrInvalidLat
	}
	if c.Lng < -180 || c.Lng > 180 {
		return ErrInvalidLng
	}
	return nil
}

// Repository is the persistence contract for offices. Every read excludes
// tombstoned records.
type Repository interface {
	ByID(ctx context.Context, id OfficeID) (*Office, error)
	// FindImage looks an image up across all offices, so the delete guard
	// can tell an ownership mismatch (422) from an unknown id (404).
	FindImage(ctx context.Context, id ImageID) (Image, error)
	Save(ctx context.Context, office *Office) error
	Search(ctx context.Context, query Query) (Result, error)
}
