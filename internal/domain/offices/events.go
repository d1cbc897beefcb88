package offices

import (
	"time"

	"deskhub/internal/domain/users"
)

type OfficeCreated struct {
	OfficeID OfficeID
	Owner    users.UserID
	At       time.Time
}

func (e OfficeCreated) EventName() string     { return "office.created" }
func (e OfficeCreated) AggregateID() string   { return string(e.OfficeID) }
func (e OfficeCreated) OccurredAt() time.Time { return e.At }

// OfficePendingApproval fires when an update to a sensitive field pushes the
// office back into review. AdminIDs is the full administrator set at the
// time of the mutation; delivery is handed to the outbox after commit.
type OfficePendingApproval struct {
	OfficeID OfficeID
	Title    string
	Owner    users.UserID
	AdminIDs []users.UserID
	At       time.Time
}

func (e OfficePendingApproval) EventName() string     { return "office.pending_approval" }
func (e OfficePendingApproval) AggregateID() string   { return string(e.OfficeID) }
func (e OfficePendingApproval) OccurredAt() time.Time { return e.At }

type OfficeDeleted struct {
	OfficeID OfficeID
	Owner    users.UserID
	At       time.Time
}

func (e OfficeDeleted) EventName() string     { return "office.deleted" }
func (e OfficeDeleted) AggregateID() string   { return string(e.OfficeID) }
func (e OfficeDeleted) OccurredAt() time.Time { return e.At }
