package reservations

import (
	"context"
	"time"

	"deskhub/internal/domain/offices"
	"deskhub/internal/domain/users"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

type ReservationID string

// Reservation is a visitor's booking of an office. The listing core only
// reads reservations, for aggregation and deletion eligibility.
type Reservation struct {
	ID        ReservationID
	OfficeID  offices.OfficeID
	VisitorID users.UserID
	Status    Status
	StartDate time.Time
	EndDate   time.Time
	CreatedAt time.Time
}

type Repository interface {
	// CountActive returns the number of reservations with status active per
	// office; offices with none are absent from the map.
	CountActive(ctx context.Context, officeIDs []offices.OfficeID) (map[offices.OfficeID]int, error)
	// HasActive reports whether at least one active reservation targets the
	// office. Gates office deletion.
	HasActive(ctx context.Context, officeID offices.OfficeID) (bool, error)
	// OfficeIDsForVisitor resolves the reservation semi-join: offices having
	// at least one reservation (any status) by the given visitor.
	OfficeIDsForVisitor(ctx context.Context, visitorID users.UserID) ([]offices.OfficeID, error)
	Save(ctx context.Context, reservation *Reservation) error
}
