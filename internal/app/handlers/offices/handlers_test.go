package offices

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"deskhub/internal/app/commands"
	"deskhub/internal/app/dto"
	"deskhub/internal/app/middleware"
	"deskhub/internal/app/outbox"
	"deskhub/internal/app/queries"
	"deskhub/internal/domain/geo"
	domainoffices "deskhub/internal/domain/offices"
	domainreservations "deskhub/internal/domain/reservations"
	domaintags "deskhub/internal/domain/tags"
	domainusers "deskhub/internal/domain/users"
	"deskhub/internal/infra/storage/memory"
)

var (
	lisbon       = geo.Coordinate{Lat: 38.720661, Lng: -9.16044}
	torresVedras = geo.Coordinate{Lat: 39.07752, Lng: -9.281266}
	leiria       = geo.Coordinate{Lat: 39.74055, Lng: -8.770507}
)

type fixture struct {
	offices      *memory.OfficeRepository
	reservations *memory.ReservationRepository
	tags         *memory.TagRepository
	users        *memory.UserRepository
	box          *memory.Outbox
	blobs        *memory.FileStore
	commands     commands.Bus
	queries      queries.Bus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		offices:      memory.NewOfficeRepository(),
		reservations: memory.NewReservationRepository(),
		tags:         memory.NewTagRepository(),
		users:        memory.NewUserRepository(),
		box:          memory.NewOutbox(),
		blobs:        memory.NewFileStore(),
	}
	factory := memory.Factory{
		OfficesRepo:      f.offices,
		ReservationsRepo: f.reservations,
		TagsRepo:         f.tags,
		UsersRepo:        f.users,
	}
	encoder := outbox.JSONEventEncoder{}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, CreateOfficeCommand{}.Key(), &CreateOfficeHandler{Outbox: f.box, Encoder: encoder})
	commands.RegisterHandler(commandBus, UpdateOfficeCommand{}.Key(), &UpdateOfficeHandler{Outbox: f.box, Encoder: encoder})
	commands.RegisterHandler(commandBus, DeleteOfficeCommand{}.Key(), &DeleteOfficeHandler{Outbox: f.box, Encoder: encoder})
	commands.RegisterHandler(commandBus, UploadOfficeImageCommand{}.Key(), &UploadOfficeImageHandler{Blobs: f.blobs})
	commands.RegisterHandler(commandBus, DeleteOfficeImageCommand{}.Key(), &DeleteOfficeImageHandler{Blobs: f.blobs})
	f.commands = middleware.ChainCommands(
		commandBus,
		middleware.Transaction(factory, nil),
		middleware.OutboxFlush(f.box),
	)

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, SearchOfficesQuery{}.Key(), &SearchOfficesHandler{Factory: factory})
	queries.RegisterHandler(queryBus, GetOfficeQuery{}.Key(), &GetOfficeHandler{Factory: factory})
	f.queries = middleware.ChainQueries(queryBus)

	ctx := context.Background()
	for _, tag := range []domaintags.Tag{
		{ID: "tag-quiet", Name: "quiet"},
		{ID: "tag-coffee", Name: "free coffee"},
	} {
		copied := tag
		if err := f.tags.Save(ctx, &copied); err != nil {
			t.Fatalf("seed tag: %v", err)
		}
	}
	for _, user := range []domainusers.User{
		{ID: "user-admin", Name: "Admin", Email: "admin@example.com", IsAdmin: true},
		{ID: "user-host", Name: "Host", Email: "host@example.com"},
		{ID: "user-other", Name: "Other", Email: "other@example.com"},
		{ID: "user-visitor", Name: "Visitor", Email: "visitor@example.com"},
	} {
		copied := user
		if err := f.users.Save(ctx, &copied); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	return f
}

func (f *fixture) create(t *testing.T, owner domainusers.UserID, payload CreateOfficePayload) *dto.OfficeEnvelope {
	t.Helper()
	env, err := commands.Dispatch[CreateOfficeCommand, *dto.OfficeEnvelope](context.Background(), f.commands, CreateOfficeCommand{
		Actor:   owner,
		Payload: payload,
	})
	if err != nil {
		t.Fatalf("create office: %v", err)
	}
	return env
}

func (f *fixture) createDefault(t *testing.T, owner domainusers.UserID, loc geo.Coordinate) domainoffices.OfficeID {
	t.Helper()
	env := f.create(t, owner, CreateOfficePayload{
		Title:       "Workspace",
		Lat:         loc.Lat,
		Lng:         loc.Lng,
		Address:     "Main Street 1",
		PricePerDay: 10_000,
	})
	return domainoffices.OfficeID(env.Data.ID)
}

func (f *fixture) approve(t *testing.T, id domainoffices.OfficeID) {
	t.Helper()
	ctx := context.Background()
	office, err := f.offices.ByID(ctx, id)
	if err != nil {
		t.Fatalf("load office: %v", err)
	}
	office.Approve(time.Now())
	if err := f.offices.Save(ctx, office); err != nil {
		t.Fatalf("save office: %v", err)
	}
}

func (f *fixture) addImage(t *testing.T, actor domainusers.UserID, officeID domainoffices.OfficeID, body string) dto.ImageResource {
	t.Helper()
	env, err := commands.Dispatch[UploadOfficeImageCommand, *dto.ImageEnvelope](context.Background(), f.commands, UploadOfficeImageCommand{
		Actor:       actor,
		OfficeID:    officeID,
		ObjectKey:   "offices/" + string(officeID) + "/" + body + ".jpg",
		ContentType: "image/jpeg",
		Reader:      strings.NewReader(body),
	})
	if err != nil {
		t.Fatalf("upload image: %v", err)
	}
	return env.Data
}

func publishedNames(box *memory.Outbox) []string {
	records := box.Published()
	names := make([]string, 0, len(records))
	for _, rec := range records {
		names = append(names, rec.Name)
	}
	return names
}

func TestCreateOfficeStartsPendingAndAttachesTags(t *testing.T) {
	f := newFixture(t)
	env := f.create(t, "user-host", CreateOfficePayload{
		Title:       "Harbor Loft",
		Description: "Sea view",
		Lat:         lisbon.Lat,
		Lng:         lisbon.Lng,
		Address:     "Docks 12",
		PricePerDay: 25_000,
		TagIDs:      []domaintags.TagID{"tag-quiet", "tag-coffee"},
	})

	if env.Data.ApprovalStatus != string(domainoffices.ApprovalPending) {
		t.Fatalf("status = %q, want pending", env.Data.ApprovalStatus)
	}
	if len(env.Data.Tags) != 2 {
		t.Fatalf("tags = %v", env.Data.Tags)
	}
	if env.Data.User.ID != "user-host" {
		t.Fatalf("user = %+v", env.Data.User)
	}
	names := publishedNames(f.box)
	if len(names) != 1 || names[0] != "office.created" {
		t.Fatalf("published = %v", names)
	}
}

func TestCreateOfficeRejectsUnknownTag(t *testing.T) {
	f := newFixture(t)
	_, err := commands.Dispatch[CreateOfficeCommand, *dto.OfficeEnvelope](context.Background(), f.commands, CreateOfficeCommand{
		Actor: "user-host",
		Payload: CreateOfficePayload{
			Title:       "Loft",
			Lat:         lisbon.Lat,
			Lng:         lisbon.Lng,
			Address:     "Docks 12",
			PricePerDay: 100,
			TagIDs:      []domaintags.TagID{"tag-bogus"},
		},
	})
	if !errors.Is(err, ErrUnknownTag) {
		t.Fatalf("err = %v, want %v", err, ErrUnknownTag)
	}
}

func TestUpdateByNonOwnerIsRejected(t *testing.T) {
	f := newFixture(t)
	id := f.createDefault(t, "user-host", lisbon)

	newTitle := "Taken Over"
	_, err := commands.Dispatch[UpdateOfficeCommand, *dto.OfficeEnvelope](context.Background(), f.commands, UpdateOfficeCommand{
		Actor:    "user-other",
		OfficeID: id,
		Payload:  UpdateOfficePayload{Title: &newTitle},
	})
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("err = %v, want %v", err, ErrNotOwner)
	}

	office, err := f.offices.ByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load office: %v", err)
	}
	if office.Title == newTitle {
		t.Fatal("rejected update must not persist")
	}
}

func TestUpdatePriceTriggersReReviewNotification(t *testing.T) {
	f := newFixture(t)
	id := f.createDefault(t, "user-host", lisbon)
	f.approve(t, id)

	price := int64(99_000)
	env, err := commands.Dispatch[UpdateOfficeCommand, *dto.OfficeEnvelope](context.Background(), f.commands, UpdateOfficeCommand{
		Actor:    "user-host",
		OfficeID: id,
		Payload:  UpdateOfficePayload{PricePerDay: &price},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if env.Data.ApprovalStatus != string(domainoffices.ApprovalPending) {
		t.Fatalf("status = %q, want pending", env.Data.ApprovalStatus)
	}

	names := publishedNames(f.box)
	found := false
	for _, name := range names {
		if name == "office.pending_approval" {
			found = true
		}
	}
	if !found {
		t.Fatalf("published = %v, want office.pending_approval", names)
	}
}

func TestUpdateWithCurrentValuesKeepsApproval(t *testing.T) {
	f := newFixture(t)
	id := f.createDefault(t, "user-host", lisbon)
	f.approve(t, id)

	lat, lng, price := lisbon.Lat, lisbon.Lng, int64(10_000)
	env, err := commands.Dispatch[UpdateOfficeCommand, *dto.OfficeEnvelope](context.Background(), f.commands, UpdateOfficeCommand{
		Actor:    "user-host",
		OfficeID: id,
		Payload:  UpdateOfficePayload{Lat: &lat, Lng: &lng, PricePerDay: &price},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if env.Data.ApprovalStatus != string(domainoffices.ApprovalApproved) {
		t.Fatalf("status = %q, want approved", env.Data.ApprovalStatus)
	}
}

func TestUpdateReplacesTagAssociations(t *testing.T) {
	f := newFixture(t)
	env := f.create(t, "user-host", CreateOfficePayload{
		Title:       "Loft",
		Lat:         lisbon.Lat,
		Lng:         lisbon.Lng,
		Address:     "Docks 12",
		PricePerDay: 100,
		TagIDs:      []domaintags.TagID{"tag-quiet"},
	})
	id := domainoffices.OfficeID(env.Data.ID)

	updated, err := commands.Dispatch[UpdateOfficeCommand, *dto.OfficeEnvelope](context.Background(), f.commands, UpdateOfficeCommand{
		Actor:    "user-host",
		OfficeID: id,
		Payload:  UpdateOfficePayload{TagIDs: []domaintags.TagID{"tag-coffee"}},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.Data.Tags) != 1 || updated.Data.Tags[0].ID != "tag-coffee" {
		t.Fatalf("tags = %v, want only tag-coffee", updated.Data.Tags)
	}
}

func TestDeleteBlockedByActiveReservation(t *testing.T) {
	f := newFixture(t)
	id := f.createDefault(t, "user-host", lisbon)
	err := f.reservations.Save(context.Background(), &domainreservations.Reservation{
		ID:        "res-1",
		OfficeID:  id,
		VisitorID: "user-visitor",
		Status:    domainreservations.StatusActive,
	})
	if err != nil {
		t.Fatalf("seed reservation: %v", err)
	}

	_, err = commands.Dispatch[DeleteOfficeCommand, struct{}](context.Background(), f.commands, DeleteOfficeCommand{
		Actor:    "user-host",
		OfficeID: id,
	})
	if !errors.Is(err, domainoffices.ErrActiveReservations) {
		t.Fatalf("err = %v, want %v", err, domainoffices.ErrActiveReservations)
	}
	if _, err := f.offices.ByID(context.Background(), id); err != nil {
		t.Fatalf("office must survive a blocked delete: %v", err)
	}
}

func TestDeleteAllowedWithInactiveReservations(t *testing.T) {
	f := newFixture(t)
	id := f.createDefault(t, "user-host", lisbon)
	err := f.reservations.Save(context.Background(), &domainreservations.Reservation{
		ID:        "res-1",
		OfficeID:  id,
		VisitorID: "user-visitor",
		Status:    domainreservations.StatusCancelled,
	})
	if err != nil {
		t.Fatalf("seed reservation: %v", err)
	}

	if _, err := commands.Dispatch[DeleteOfficeCommand, struct{}](context.Background(), f.commands, DeleteOfficeCommand{
		Actor:    "user-host",
		OfficeID: id,
	}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.offices.ByID(context.Background(), id); !errors.Is(err, domainoffices.ErrNotFound) {
		t.Fatalf("err = %v, want %v", err, domainoffices.ErrNotFound)
	}
}

func TestSearchAnonymousSeesOnlyVisible(t *testing.T) {
	f := newFixture(t)
	visible := f.createDefault(t, "user-host", lisbon)
	f.approve(t, visible)
	f.createDefault(t, "user-host", lisbon) // stays pending

	result, err := queries.Ask[SearchOfficesQuery, dto.OfficeCollection](context.Background(), f.queries, SearchOfficesQuery{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if result.Meta.Total != 1 || result.Data[0].ID != string(visible) {
		t.Fatalf("result = %+v", result)
	}
	if result.Meta.PerPage != domainoffices.PageSize || result.Meta.Page != 1 {
		t.Fatalf("meta = %+v", result.Meta)
	}
}

func TestSearchOwnerSeesEverythingOfTheirOwn(t *testing.T) {
	f := newFixture(t)
	f.createDefault(t, "user-host", lisbon)
	f.createDefault(t, "user-host", lisbon)

	result, err := queries.Ask[SearchOfficesQuery, dto.OfficeCollection](context.Background(), f.queries, SearchOfficesQuery{
		Requester: "user-host",
		OwnerID:   "user-host",
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if result.Meta.Total != 2 {
		t.Fatalf("total = %d, want both pending offices", result.Meta.Total)
	}
}

func TestSearchVisitorFilterSemiJoin(t *testing.T) {
	f := newFixture(t)
	booked := f.createDefault(t, "user-host", lisbon)
	other := f.createDefault(t, "user-host", lisbon)
	f.approve(t, booked)
	f.approve(t, other)
	err := f.reservations.Save(context.Background(), &domainreservations.Reservation{
		ID:        "res-1",
		OfficeID:  booked,
		VisitorID: "user-visitor",
		Status:    domainreservations.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("seed reservation: %v", err)
	}

	result, err := queries.Ask[SearchOfficesQuery, dto.OfficeCollection](context.Background(), f.queries, SearchOfficesQuery{
		VisitorID: "user-visitor",
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if result.Meta.Total != 1 || result.Data[0].ID != string(booked) {
		t.Fatalf("result = %+v", result)
	}

	// A visitor with no reservation history matches nothing rather than
	// falling back to an unfiltered listing.
	result, err = queries.Ask[SearchOfficesQuery, dto.OfficeCollection](context.Background(), f.queries, SearchOfficesQuery{
		VisitorID: "user-never",
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if result.Meta.Total != 0 {
		t.Fatalf("total = %d, want 0", result.Meta.Total)
	}
}

func TestSearchDistanceOrdering(t *testing.T) {
	f := newFixture(t)
	far := f.createDefault(t, "user-host", leiria)
	near := f.createDefault(t, "user-host", torresVedras)
	f.approve(t, far)
	f.approve(t, near)

	result, err := queries.Ask[SearchOfficesQuery, dto.OfficeCollection](context.Background(), f.queries, SearchOfficesQuery{
		Reference: &lisbon,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(result.Data) != 2 || result.Data[0].ID != string(near) || result.Data[1].ID != string(far) {
		t.Fatalf("order = %v, %v", result.Data[0].ID, result.Data[1].ID)
	}
}

func TestSearchEmbedsAggregates(t *testing.T) {
	f := newFixture(t)
	id := f.createDefault(t, "user-host", lisbon)
	f.approve(t, id)
	for i, status := range []domainreservations.Status{
		domainreservations.StatusActive,
		domainreservations.StatusActive,
		domainreservations.StatusCancelled,
	} {
		err := f.reservations.Save(context.Background(), &domainreservations.Reservation{
			ID:        domainreservations.ReservationID(rune('a' + i)),
			OfficeID:  id,
			VisitorID: "user-visitor",
			Status:    status,
		})
		if err != nil {
			t.Fatalf("seed reservation: %v", err)
		}
	}

	result, err := queries.Ask[SearchOfficesQuery, dto.OfficeCollection](context.Background(), f.queries, SearchOfficesQuery{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	got := result.Data[0]
	if got.ReservationsCount != 2 {
		t.Fatalf("reservations_count = %d, want 2 (active only)", got.ReservationsCount)
	}
	if got.User.ID != "user-host" || got.User.Name == "" {
		t.Fatalf("user = %+v", got.User)
	}
}

func TestGetOfficeHidesInvisibleFromStrangers(t *testing.T) {
	f := newFixture(t)
	id := f.createDefault(t, "user-host", lisbon)

	_, err := queries.Ask[GetOfficeQuery, dto.OfficeEnvelope](context.Background(), f.queries, GetOfficeQuery{
		Requester: "user-other",
		OfficeID:  id,
	})
	if !errors.Is(err, domainoffices.ErrNotFound) {
		t.Fatalf("err = %v, want %v", err, domainoffices.ErrNotFound)
	}

	env, err := queries.Ask[GetOfficeQuery, dto.OfficeEnvelope](context.Background(), f.queries, GetOfficeQuery{
		Requester: "user-host",
		OfficeID:  id,
	})
	if err != nil {
		t.Fatalf("owner must see own pending office: %v", err)
	}
	if env.Data.ID != string(id) {
		t.Fatalf("id = %q", env.Data.ID)
	}
}

func TestImageUploadAndOwnership(t *testing.T) {
	f := newFixture(t)
	id := f.createDefault(t, "user-host", lisbon)

	img := f.addImage(t, "user-host", id, "front")
	if !f.blobs.Has(img.Path) {
		t.Fatalf("blob %q not stored", img.Path)
	}

	_, err := commands.Dispatch[UploadOfficeImageCommand, *dto.ImageEnvelope](context.Background(), f.commands, UploadOfficeImageCommand{
		Actor:       "user-other",
		OfficeID:    id,
		ObjectKey:   "offices/x/y.jpg",
		ContentType: "image/jpeg",
		Reader:      strings.NewReader("x"),
	})
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("err = %v, want %v", err, ErrNotOwner)
	}
}

func TestImageDeleteGuards(t *testing.T) {
	f := newFixture(t)
	id := f.createDefault(t, "user-host", lisbon)
	otherID := f.createDefault(t, "user-other", lisbon)

	only := f.addImage(t, "user-host", id, "front")
	foreign := f.addImage(t, "user-other", otherID, "theirs")

	ctx := context.Background()
	dispatchDelete := func(imageID string) error {
		_, err := commands.Dispatch[DeleteOfficeImageCommand, struct{}](ctx, f.commands, DeleteOfficeImageCommand{
			Actor:    "user-host",
			OfficeID: id,
			ImageID:  domainoffices.ImageID(imageID),
		})
		return err
	}

	if err := dispatchDelete(foreign.ID); !errors.Is(err, domainoffices.ErrImageNotOwned) {
		t.Fatalf("foreign image err = %v, want %v", err, domainoffices.ErrImageNotOwned)
	}
	if err := dispatchDelete(only.ID); !errors.Is(err, domainoffices.ErrOnlyImage) {
		t.Fatalf("only image err = %v, want %v", err, domainoffices.ErrOnlyImage)
	}
	if err := dispatchDelete("img-unknown"); !errors.Is(err, domainoffices.ErrImageNotFound) {
		t.Fatalf("unknown image err = %v, want %v", err, domainoffices.ErrImageNotFound)
	}

	second := f.addImage(t, "user-host", id, "back")
	featured := domainoffices.ImageID(second.ID)
	if _, err := commands.Dispatch[UpdateOfficeCommand, *dto.OfficeEnvelope](ctx, f.commands, UpdateOfficeCommand{
		Actor:    "user-host",
		OfficeID: id,
		Payload:  UpdateOfficePayload{FeaturedImageID: &featured},
	}); err != nil {
		t.Fatalf("set featured: %v", err)
	}
	if err := dispatchDelete(second.ID); !errors.Is(err, domainoffices.ErrFeaturedImage) {
		t.Fatalf("featured image err = %v, want %v", err, domainoffices.ErrFeaturedImage)
	}

	// The eligible one goes, record and blob both.
	if err := dispatchDelete(only.ID); err != nil {
		t.Fatalf("delete image: %v", err)
	}
	if f.blobs.Has(only.Path) {
		t.Fatal("blob must be removed with the record")
	}
	office, err := f.offices.ByID(ctx, id)
	if err != nil {
		t.Fatalf("load office: %v", err)
	}
	if len(office.Images) != 1 || office.Images[0].ID != featured {
		t.Fatalf("images = %+v", office.Images)
	}
}

func TestPageMetaLastPage(t *testing.T) {
	cases := []struct {
		total, want int
	}{
		{0, 1},
		{1, 1},
		{20, 1},
		{21, 2},
		{45, 3},
	}
	for _, tc := range cases {
		meta := dto.PageMeta(tc.total, 1, domainoffices.PageSize)
		if meta.LastPage != tc.want {
			t.Fatalf("PageMeta(%d).LastPage = %d, want %d", tc.total, meta.LastPage, tc.want)
		}
	}
}
