package offices

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"deskhub/internal/app/commands"
	"deskhub/internal/app/dto"
	"deskhub/internal/app/uow"
	domainoffices "deskhub/internal/domain/offices"
	domainusers "deskhub/internal/domain/users"
	"deskhub/internal/infra/storage/s3"
)

const (
	uploadOfficeImageKey = "offices.images.upload"
	deleteOfficeImageKey = "offices.images.delete"
)

type UploadOfficeImageCommand struct {
	Actor       domainusers.UserID
	OfficeID    domainoffices.OfficeID
	ObjectKey   string
	ContentType string
	Reader      io.Reader
}

func (c UploadOfficeImageCommand) Key() string { return uploadOfficeImageKey }

type UploadOfficeImageHandler struct {
	Logger *slog.Logger
	Blobs  s3.Store
}

func (h *UploadOfficeImageHandler) Handle(ctx context.Context, cmd UploadOfficeImageCommand) (*dto.ImageEnvelope, error) {
	if h.Blobs == nil {
		return nil, errors.New("image store unavailable")
	}
	if strings.TrimSpace(string(cmd.Actor)) == "" {
		return nil, errors.New("actor is required")
	}
	if cmd.Reader == nil {
		return nil, errors.New("image reader is required")
	}
	if strings.TrimSpace(cmd.ObjectKey) == "" {
		return nil, errors.New("object key is required")
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

	if err := h.Blobs.Upload(ctx, cmd.ObjectKey, cmd.Reader, cmd.ContentType); err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	img := office.AddImage(domainoffices.ImageID(uuid.NewString()), cmd.ObjectKey, time.Now())
	if err := unit.Offices().Save(ctx, office); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.Info("office image uploaded", "office_id", office.ID, "image_id", img.ID, "key", cmd.ObjectKey)
	}
	return &dto.ImageEnvelope{Data: dto.ImageResource{ID: string(img.ID), Path: img.Path}}, nil
}

type DeleteOfficeImageCommand struct {
	Actor    domainusers.UserID
	OfficeID domainoffices.OfficeID
	ImageID  domainoffices.ImageID
}

func (c DeleteOfficeImageCommand) Key() string { return deleteOfficeImageKey }

type DeleteOfficeImageHandler struct {
	Logger *slog.Logger
	Blobs  s3.Store
}

// Handle runs the fixed deletion sequence: invariant guard against committed
// state, then blob removal, then the record. A failed blob removal aborts
// before the record is touched, so a record never points at a missing file.
func (h *DeleteOfficeImageHandler) Handle(ctx context.Context, cmd DeleteOfficeImageCommand) (struct{}, error) {
	if h.Blobs == nil {
		return struct{}{}, errors.New("image store unavailable")
	}
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

	img, err := unit.Offices().FindImage(ctx, cmd.ImageID)
	if err != nil {
		return struct{}{}, err
	}
	if err := office.ImageDeleteGuard(img); err != nil {
		return struct{}{}, err
	}

	if err := h.Blobs.Remove(ctx, img.Path); err != nil {
		return struct{}{}, fmt.Errorf("remove image blob: %w", err)
	}

	if err := office.RemoveImage(img.ID, time.Now()); err != nil {
		return struct{}{}, err
	}
	if err := unit.Offices().Save(ctx, office); err != nil {
		return struct{}{}, err
	}

	if h.Logger != nil {
		h.Logger.Info("office image deleted", "office_id", office.ID, "image_id", img.ID)
	}
	return struct{}{}, nil
}

var (
	_ commands.Handler[UploadOfficeImageCommand, *dto.ImageEnvelope] = (*UploadOfficeImageHandler)(nil)
	_ commands.Handler[DeleteOfficeImageCommand, struct{}]           = (*DeleteOfficeImageHandler)(nil)
)
