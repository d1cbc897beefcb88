package memory

import (
	"context"
	"sort"
	"sync"

	"deskhub/internal/domain/geo"
	domainoffices "deskhub/internal/domain/offices"
	domainreservations "deskhub/internal/domain/reservations"
	domaintags "deskhub/internal/domain/tags"
	domainusers "deskhub/internal/domain/users"
)

// OfficeRepository is the map-backed store used by tests and local dev. It
// clones aggregates at the boundary so an aborted handler never leaves a
// half-mutated office behind.
type OfficeRepository struct {
	mu      sync.RWMutex
	items   map[domainoffices.OfficeID]*domainoffices.Office
	nextSeq int64
}

func NewOfficeRepository() *OfficeRepository {
	return &OfficeRepository{items: make(map[domainoffices.OfficeID]*domainoffices.Office)}
}

func (r *OfficeRepository) ByID(ctx context.Context, id domainoffices.OfficeID) (*domainoffices.Office, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	office, ok := r.items[id]
	if !ok || office.Deleted() {
		return nil, domainoffices.ErrNotFound
	}
	return cloneOffice(office), nil
}

func (r *OfficeRepository) FindImage(ctx context.Context, id domainoffices.ImageID) (domainoffices.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, office := range r.items {
		if office.Deleted() {
			continue
		}
		if img, ok := office.ImageByID(id); ok {
			return img, nil
		}
	}
	return domainoffices.Image{}, domainoffices.ErrImageNotFound
}

func (r *OfficeRepository) Save(ctx context.Context, office *domainoffices.Office) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if office.Seq == 0 {
		r.nextSeq++
		office.Seq = r.nextSeq
	}
	r.items[office.ID] = cloneOffice(office)
	return nil
}

// Search evaluates the conjunctive predicate set: tombstone exclusion, the
// visibility base predicate (unless waived), owner restriction, id
// restriction from the reservation semi-join, then distance or insertion
// ordering and fixed-size paging.
func (r *OfficeRepository) Search(ctx context.Context, query domainoffices.Query) (domainoffices.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q := query.Normalized()
	var within map[domainoffices.OfficeID]struct{}
	if q.WithinIDs != nil {
		within = make(map[domainoffices.OfficeID]struct{}, len(q.WithinIDs))
		for _, id := range q.WithinIDs {
			within[id] = struct{}{}
		}
	}

	matches := make([]*domainoffices.Office, 0, len(r.items))
	for _, office := range r.items {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return domainoffices.Result{}, ctx.Err()
			default:
			}
		}
		if office.Deleted() {
			continue
		}
		if !q.VisibilityWaived() && !office.Visible() {
			continue
		}
		if q.OwnerID != "" && office.Owner != q.OwnerID {
			continue
		}
		if within != nil {
			if _, ok := within[office.ID]; !ok {
				continue
			}
		}
		matches = append(matches, office)
	}

	if q.Reference != nil {
		ref := *q.Reference
		sort.Slice(matches, func(i, j int) bool {
			di := geo.DistanceKey(ref, matches[i].Location)
			dj := geo.DistanceKey(ref, matches[j].Location)
			if di == dj {
				return matches[i].Seq < matches[j].Seq
			}
			return di < dj
		})
	} else {
		sort.Slice(matches, func(i, j int) bool {
			return matches[i].Seq < matches[j].Seq
		})
	}

	total := len(matches)
	start := q.Offset()
	if start > total {
		start = total
	}
	end := start + domainoffices.PageSize
	if end > total {
		end = total
	}

	page := make([]*domainoffices.Office, 0, end-start)
	for _, office := range matches[start:end] {
		page = append(page, cloneOffice(office))
	}
	return domainoffices.Result{Items: page, Total: total}, nil
}

func cloneOffice(office *domainoffices.Office) *domainoffices.Office {
	clone := *office
	clone.Images = append([]domainoffices.Image(nil), office.Images...)
	clone.TagIDs = append([]domaintags.TagID(nil), office.TagIDs...)
	if office.DeletedAt != nil {
		ts := *office.DeletedAt
		clone.DeletedAt = &ts
	}
	clone.ClearEvents()
	return &clone
}

// ReservationRepository keeps reservations in memory; the listing core only
// reads them.
type ReservationRepository struct {
	mu    sync.RWMutex
	items map[domainreservations.ReservationID]*domainreservations.Reservation
}

func NewReservationRepository() *ReservationRepository {
	return &ReservationRepository{items: make(map[domainreservations.ReservationID]*domainreservations.Reservation)}
}

func (r *ReservationRepository) CountActive(ctx context.Context, officeIDs []domainoffices.OfficeID) (map[domainoffices.OfficeID]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wanted := make(map[domainoffices.OfficeID]struct{}, len(officeIDs))
	for _, id := range officeIDs {
		wanted[id] = struct{}{}
	}
	counts := make(map[domainoffices.OfficeID]int)
	for _, res := range r.items {
		if res.Status != domainreservations.StatusActive {
			continue
		}
		if _, ok := wanted[res.OfficeID]; !ok {
			continue
		}
		counts[res.OfficeID]++
	}
	return counts, nil
}

func (r *ReservationRepository) HasActive(ctx context.Context, officeID domainoffices.OfficeID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, res := range r.items {
		if res.OfficeID == officeID && res.Status == domainreservations.StatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (r *ReservationRepository) OfficeIDsForVisitor(ctx context.Context, visitorID domainusers.UserID) ([]domainoffices.OfficeID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[domainoffices.OfficeID]struct{})
	ids := make([]domainoffices.OfficeID, 0)
	for _, res := range r.items {
		if res.VisitorID != visitorID {
			continue
		}
		if _, ok := seen[res.OfficeID]; ok {
			continue
		}
		seen[res.OfficeID] = struct{}{}
		ids = append(ids, res.OfficeID)
	}
	return ids, nil
}

func (r *ReservationRepository) Save(ctx context.Context, reservation *domainreservations.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *reservation
	r.items[reservation.ID] = &copied
	return nil
}

// TagRepository holds the tag directory.
type TagRepository struct {
	mu    sync.RWMutex
	items map[domaintags.TagID]*domaintags.Tag
	order []domaintags.TagID
}

func NewTagRepository() *TagRepository {
	return &TagRepository{items: make(map[domaintags.TagID]*domaintags.Tag)}
}

func (r *TagRepository) All(ctx context.Context) ([]*domaintags.Tag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domaintags.Tag, 0, len(r.order))
	for _, id := range r.order {
		tag := *r.items[id]
		out = append(out, &tag)
	}
	return out, nil
}

func (r *TagRepository) ByIDs(ctx context.Context, ids []domaintags.TagID) ([]*domaintags.Tag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domaintags.Tag, 0, len(ids))
	for _, id := range ids {
		if tag, ok := r.items[id]; ok {
			copied := *tag
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *TagRepository) Save(ctx context.Context, tag *domaintags.Tag) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[tag.ID]; !ok {
		r.order = append(r.order, tag.ID)
	}
	copied := *tag
	r.items[tag.ID] = &copied
	return nil
}

// UserRepository holds the user directory.
type UserRepository struct {
	mu    sync.RWMutex
	items map[domainusers.UserID]*domainusers.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{items: make(map[domainusers.UserID]*domainusers.User)}
}

func (r *UserRepository) ByID(ctx context.Context, id domainusers.UserID) (*domainusers.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.items[id]
	if !ok {
		return nil, domainusers.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *UserRepository) ByIDs(ctx context.Context, ids []domainusers.UserID) (map[domainusers.UserID]*domainusers.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[domainusers.UserID]*domainusers.User, len(ids))
	for _, id := range ids {
		if user, ok := r.items[id]; ok {
			copied := *user
			out[id] = &copied
		}
	}
	return out, nil
}

func (r *UserRepository) Admins(ctx context.Context) ([]*domainusers.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainusers.User, 0)
	for _, user := range r.items {
		if user.IsAdmin {
			copied := *user
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *UserRepository) Save(ctx context.Context, user *domainusers.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.items[user.ID] = &copied
	return nil
}

var (
	_ domainoffices.Repository      = (*OfficeRepository)(nil)
	_ domainreservations.Repository = (*ReservationRepository)(nil)
	_ domaintags.Repository         = (*TagRepository)(nil)
	_ domainusers.Repository        = (*UserRepository)(nil)
)
