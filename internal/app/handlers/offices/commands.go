package offices

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"deskhub/internal/app/commands"
	"deskhub/internal/app/dto"
	"deskhub/internal/app/outbox"
	"deskhub/internal/app/uow"
	"deskhub/internal/domain/geo"
	domainoffices "deskhub/internal/domain/offices"
	domaintags "deskhub/internal/domain/tags"
	domainusers "deskhub/internal/domain/users"
)

const (
	createOfficeKey = "offices.create"
	updateOfficeKey = "offices.update"
	deleteOfficeKey = "offices.delete"
)

type CreateOfficePayload struct {
	Title           string
	Description     string
	Lat             float64
	Lng             float64
	Address         string
	PricePerDay     int64
	MonthlyDiscount int
	TagIDs          []domaintags.TagID
}

type CreateOfficeCommand struct {
	Actor   domainusers.UserID
	Payload CreateOfficePayload
}

func (c CreateOfficeCommand) Key() string { return createOfficeKey }

type CreateOfficeHandler struct {
	Logger  *slog.Logger
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
}

func (h *CreateOfficeHandler) Handle(ctx context.Context, cmd CreateOfficeCommand) (*dto.OfficeEnvelope, error) {
	if strings.TrimSpace(string(cmd.Actor)) == "" {
		return nil, errors.New("actor is required")
	}
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}

	if err := verifyTagIDs(ctx, unit, cmd.Payload.TagIDs); err != nil {
		return nil, err
	}

	office, err := domainoffices.New(domainoffices.CreateParams{
		ID:              domainoffices.OfficeID(uuid.NewString()),
		Owner:           cmd.Actor,
		Title:           cmd.Payload.Title,
		Description:     cmd.Payload.Description,
		Location:        geo.Coordinate{Lat: cmd.Payload.Lat, Lng: cmd.Payload.Lng},
		Address:         cmd.Payload.Address,
		PricePerDay:     cmd.Payload.PricePerDay,
		MonthlyDiscount: cmd.Payload.MonthlyDiscount,
		TagIDs:          cmd.Payload.TagIDs,
		Now:             time.Now(),
	})
	if err != nil {
		return nil, err
	}

	// The attribute write and the tag attachment persist through the same
	// unit of work; the surrounding transaction middleware commits both or
	// neither.
	if err := unit.Offices().Save(ctx, office); err != nil {
		return nil, err
	}

	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, office.PendingEvents()); err != nil {
		return nil, err
	}
	office.ClearEvents()

	if h.Logger != nil {
		h.Logger.Info("office created", "office_id", office.ID, "owner_id", cmd.Actor)
	}

	resource, err := attachOne(ctx, unit, office)
	if err != nil {
		return nil, err
	}
	return &dto.OfficeEnvelope{Data: resource}, nil
}

type UpdateOfficePayload struct {
	Title           *string
	Description     *string
	Lat             *float64
	Lng             *float64
	Address         *string
	PricePerDay     *int64
	MonthlyDiscount *int
	Hidden          *bool
	FeaturedImageID *domainoffices.ImageID
	TagIDs          []domaintags.TagID // nil = untouched, non-nil = full replacement
}

type UpdateOfficeCommand struct {
	Actor    domainusers.UserID
	OfficeID domainoffices.OfficeID
	Payload  UpdateOfficePayload
}

func (c UpdateOfficeCommand) Key() string { return updateOfficeKey }

type UpdateOfficeHandler struct {
	Logger  *slog.Logger
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
}

func (h *UpdateOfficeHandler) Handle(ctx context.Context, cmd UpdateOfficeCommand) (*dto.OfficeEnvelope, error) {
	if strings.TrimSpace(string(cmd.Actor)) == "" {
		return nil, errors.New("actor is required")
	}
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}

	office, err := unit.Offices().ByID(ctx, cmd.OfficeID)
	if err != nil {
		return nil, err
	}
	if office.Owner != cmd.Actor {
		return nil, ErrNotOwner
	}

	if cmd.Payload.TagIDs != nil {
		if err := verifyTagIDs(ctx, unit, cmd.Payload.TagIDs); err != nil {
			return nil, err
		}
	}

	// Resolve the administrator fan-out set before mutating, so the
	// re-review event carries the recipients decided at mutation time.
	admins, err := unit.Users().Admins(ctx)
	if err != nil {
		return nil, err
	}
	adminIDs := make([]domainusers.UserID, 0, len(admins))
	for _, admin := range admins {
		adminIDs = append(adminIDs, admin.ID)
	}

	requiresReview, err := office.ApplyUpdate(domainoffices.UpdateParams{
		Title:           cmd.Payload.Title,
		Description:     cmd.Payload.Description,
		Lat:             cmd.Payload.Lat,
		Lng:             cmd.Payload.Lng,
		Address:         cmd.Payload.Address,
		PricePerDay:     cmd.Payload.PricePerDay,
		MonthlyDiscount: cmd.Payload.MonthlyDiscount,
		Hidden:          cmd.Payload.Hidden,
		FeaturedImageID: cmd.Payload.FeaturedImageID,
		TagIDs:          cmd.Payload.TagIDs,
		Now:             time.Now(),
		AdminIDs:        adminIDs,
	})
	if err != nil {
		return nil, err
	}

	if err := unit.Offices().Save(ctx, office); err != nil {
		return nil, err
	}

	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, office.PendingEvents()); err != nil {
		return nil, err
	}
	office.ClearEvents()

	if h.Logger != nil {
		h.Logger.Info("office updated", "office_id", office.ID, "owner_id", cmd.Actor, "requires_review", requiresReview)
	}

	resource, err := attachOne(ctx, unit, office)
	if err != nil {
		return nil, err
	}
	return &dto.OfficeEnvelope{Data: resource}, nil
}

type DeleteOfficeCommand struct {
	Actor    domainusers.UserID
	OfficeID domainoffices.OfficeID
}

func (c DeleteOfficeCommand) Key() string { return deleteOfficeKey }

type DeleteOfficeHandler struct {
	Logger  *slog.Logger
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
}

func (h *DeleteOfficeHandler) Handle(ctx context.Context, cmd DeleteOfficeCommand) (struct{}, error) {
	if strings.TrimSpace(string(cmd.Actor)) == "" {
		return struct{}{}, errors.New("actor is required")
	}
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return struct{}{}, uow.ErrUnitOfWorkMissing
	}

	office, err := unit.Offices().ByID(ctx, cmd.OfficeID)
	if err != nil {
		return struct{}{}, err
	}
	if office.Owner != cmd.Actor {
		return struct{}{}, ErrNotOwner
	}

	active, err := unit.Reservations().HasActive(ctx, office.ID)
	if err != nil {
		return struct{}{}, err
	}
	if active {
		return struct{}{}, domainoffices.ErrActiveReservations
	}

	office.SoftDelete(time.Now())
	if err := unit.Offices().Save(ctx, office); err != nil {
		return struct{}{}, err
	}

	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, office.PendingEvents()); err != nil {
		return struct{}{}, err
	}
	office.ClearEvents()

	if h.Logger != nil {
		h.Logger.Info("office deleted", "office_id", office.ID, "owner_id", cmd.Actor)
	}
	return struct{}{}, nil
}

func verifyTagIDs(ctx context.Context, unit uow.UnitOfWork, ids []domaintags.TagID) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := unit.Tags().ByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(found) != len(ids) {
		return ErrUnknownTag
	}
	return nil
}

var (
	_ commands.Handler[CreateOfficeCommand, *dto.OfficeEnvelope] = (*CreateOfficeHandler)(nil)
	_ commands.Handler[UpdateOfficeCommand, *dto.OfficeEnvelope] = (*UpdateOfficeHandler)(nil)
	_ commands.Handler[DeleteOfficeCommand, struct{}]            = (*DeleteOfficeHandler)(nil)
)
