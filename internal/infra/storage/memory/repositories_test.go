package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"deskhub/internal/domain/geo"
	domainoffices "deskhub/internal/domain/offices"
	domainreservations "deskhub/internal/domain/reservations"
	domainusers "deskhub/internal/domain/users"
)

var (
	lisbon       = geo.Coordinate{Lat: 38.720661, Lng: -9.16044}
	torresVedras = geo.Coordinate{Lat: 39.07752, Lng: -9.281266}
	leiria       = geo.Coordinate{Lat: 39.74055, Lng: -8.770507}
)

func seedOffice(t *testing.T, repo *OfficeRepository, id domainoffices.OfficeID, owner domainusers.UserID, loc geo.Coordinate, approve bool) *domainoffices.Office {
	t.Helper()
	office, err := domainoffices.New(domainoffices.CreateParams{
		ID:          id,
		Owner:       owner,
		Title:       string(id),
		Location:    loc,
		Address:     "Address " + string(id),
		PricePerDay: 10_000,
		Now:         time.Now(),
	})
	if err != nil {
		t.Fatalf("New(%s): %v", id, err)
	}
	if approve {
		office.Approve(time.Now())
	}
	if err := repo.Save(context.Background(), office); err != nil {
		t.Fatalf("Save(%s): %v", id, err)
	}
	return office
}

func TestSearchExcludesInvisibleOffices(t *testing.T) {
	repo := NewOfficeRepository()
	seedOffice(t, repo, "approved", "user-a", lisbon, true)
	seedOffice(t, repo, "pending", "user-a", lisbon, false)
	hidden := seedOffice(t, repo, "hidden", "user-a", lisbon, true)
	hidden.Hidden = true
	if err := repo.Save(context.Background(), hidden); err != nil {
		t.Fatalf("Save: %v", err)
	}

	result, err := repo.Search(context.Background(), domainoffices.Query{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Total != 1 || len(result.Items) != 1 || result.Items[0].ID != "approved" {
		t.Fatalf("result = %+v, want only the approved office", result)
	}
}

func TestSearchWaivesVisibilityForOwnListings(t *testing.T) {
	repo := NewOfficeRepository()
	seedOffice(t, repo, "mine-pending", "user-a", lisbon, false)
	seedOffice(t, repo, "mine-approved", "user-a", lisbon, true)
	seedOffice(t, repo, "theirs-pending", "user-b", lisbon, false)

	result, err := repo.Search(context.Background(), domainoffices.Query{
		Requester: "user-a",
		OwnerID:   "user-a",
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Total != 2 {
		t.Fatalf("total = %d, want 2", result.Total)
	}

	// The waiver is personal: filtering by someone else's id keeps the base
	// predicate even when authenticated.
	result, err = repo.Search(context.Background(), domainoffices.Query{
		Requester: "user-a",
		OwnerID:   "user-b",
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Total != 0 {
		t.Fatalf("total = %d, want 0", result.Total)
	}
}

func TestSearchWithinIDs(t *testing.T) {
	repo := NewOfficeRepository()
	seedOffice(t, repo, "a", "user-a", lisbon, true)
	seedOffice(t, repo, "b", "user-a", lisbon, true)

	result, err := repo.Search(context.Background(), domainoffices.Query{
		WithinIDs: []domainoffices.OfficeID{"b"},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Total != 1 || result.Items[0].ID != "b" {
		t.Fatalf("result = %+v", result)
	}

	// A non-nil empty set matches nothing, as opposed to nil which matches
	// everything.
	result, err = repo.Search(context.Background(), domainoffices.Query{
		WithinIDs: []domainoffices.OfficeID{},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Total != 0 {
		t.Fatalf("total = %d, want 0", result.Total)
	}
}

func TestSearchOrdersByDistanceWhenReferenceGiven(t *testing.T) {
	repo := NewOfficeRepository()
	seedOffice(t, repo, "far", "user-a", leiria, true)
	seedOffice(t, repo, "near", "user-a", torresVedras, true)

	result, err := repo.Search(context.Background(), domainoffices.Query{Reference: &lisbon})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Items) != 2 || result.Items[0].ID != "near" || result.Items[1].ID != "far" {
		t.Fatalf("order = %v", officeIDs(result.Items))
	}
}

func TestSearchDefaultsToInsertionOrder(t *testing.T) {
	repo := NewOfficeRepository()
	seedOffice(t, repo, "first", "user-a", leiria, true)
	seedOffice(t, repo, "second", "user-a", torresVedras, true)
	seedOffice(t, repo, "third", "user-a", lisbon, true)

	result, err := repo.Search(context.Background(), domainoffices.Query{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	got := officeIDs(result.Items)
	want := []domainoffices.OfficeID{"first", "second", "third"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestSearchPagination(t *testing.T) {
	repo := NewOfficeRepository()
	for i := 0; i < domainoffices.PageSize+5; i++ {
		seedOffice(t, repo, domainoffices.OfficeID(fmt.Sprintf("office-%02d", i)), "user-a", lisbon, true)
	}

	page1, err := repo.Search(context.Background(), domainoffices.Query{Page: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page1.Items) != domainoffices.PageSize || page1.Total != domainoffices.PageSize+5 {
		t.Fatalf("page1 len = %d total = %d", len(page1.Items), page1.Total)
	}

	page2, err := repo.Search(context.Background(), domainoffices.Query{Page: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page2.Items) != 5 {
		t.Fatalf("page2 len = %d, want 5", len(page2.Items))
	}
	if page2.Items[0].ID == page1.Items[0].ID {
		t.Fatal("pages overlap")
	}
}

func TestTombstonedOfficeIsAbsentEverywhere(t *testing.T) {
	repo := NewOfficeRepository()
	office := seedOffice(t, repo, "gone", "user-a", lisbon, true)
	office.AddImage("img-1", "offices/gone/a.jpg", time.Now())
	office.SoftDelete(time.Now())
	if err := repo.Save(context.Background(), office); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := repo.ByID(context.Background(), "gone"); !errors.Is(err, domainoffices.ErrNotFound) {
		t.Fatalf("ByID err = %v, want %v", err, domainoffices.ErrNotFound)
	}
	if _, err := repo.FindImage(context.Background(), "img-1"); !errors.Is(err, domainoffices.ErrImageNotFound) {
		t.Fatalf("FindImage err = %v, want %v", err, domainoffices.ErrImageNotFound)
	}
	result, err := repo.Search(context.Background(), domainoffices.Query{Requester: "user-a", OwnerID: "user-a"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Total != 0 {
		t.Fatalf("total = %d, want 0 even with waiver", result.Total)
	}
}

func TestFindImageAcrossOffices(t *testing.T) {
	repo := NewOfficeRepository()
	a := seedOffice(t, repo, "a", "user-a", lisbon, true)
	a.AddImage("img-a", "offices/a/1.jpg", time.Now())
	if err := repo.Save(context.Background(), a); err != nil {
		t.Fatalf("Save: %v", err)
	}
	seedOffice(t, repo, "b", "user-b", lisbon, true)

	img, err := repo.FindImage(context.Background(), "img-a")
	if err != nil {
		t.Fatalf("FindImage: %v", err)
	}
	if img.OfficeID != "a" {
		t.Fatalf("owner = %q, want a", img.OfficeID)
	}
}

func TestSaveDoesNotReassignSeq(t *testing.T) {
	repo := NewOfficeRepository()
	office := seedOffice(t, repo, "a", "user-a", lisbon, true)
	first := office.Seq
	if first == 0 {
		t.Fatal("seq not assigned on first save")
	}
	if err := repo.Save(context.Background(), office); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if office.Seq != first {
		t.Fatalf("seq changed from %d to %d", first, office.Seq)
	}
}

func TestReservationQueries(t *testing.T) {
	repo := NewReservationRepository()
	ctx := context.Background()
	save := func(id string, office domainoffices.OfficeID, visitor domainusers.UserID, status domainreservations.Status) {
		t.Helper()
		err := repo.Save(ctx, &domainreservations.Reservation{
			ID:        domainreservations.ReservationID(id),
			OfficeID:  office,
			VisitorID: visitor,
			Status:    status,
		})
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	save("r1", "office-a", "visitor-1", domainreservations.StatusActive)
	save("r2", "office-a", "visitor-2", domainreservations.StatusActive)
	save("r3", "office-a", "visitor-1", domainreservations.StatusCancelled)
	save("r4", "office-b", "visitor-1", domainreservations.StatusCompleted)

	counts, err := repo.CountActive(ctx, []domainoffices.OfficeID{"office-a", "office-b"})
	if err != nil {
		t.Fatalf("CountActive: %v", err)
	}
	if counts["office-a"] != 2 {
		t.Fatalf("office-a count = %d, want 2", counts["office-a"])
	}
	if _, ok := counts["office-b"]; ok {
		t.Fatal("office-b has no active reservations, must be absent")
	}

	active, err := repo.HasActive(ctx, "office-b")
	if err != nil || active {
		t.Fatalf("HasActive(office-b) = %v, %v", active, err)
	}

	// The semi-join spans every status.
	ids, err := repo.OfficeIDsForVisitor(ctx, "visitor-1")
	if err != nil {
		t.Fatalf("OfficeIDsForVisitor: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("ids = %v, want office-a and office-b", ids)
	}
}

func officeIDs(items []*domainoffices.Office) []domainoffices.OfficeID {
	out := make([]domainoffices.OfficeID, 0, len(items))
	for _, o := range items {
		out = append(out, o.ID)
	}
	return out
}
