package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/oms-history/internal/domain"
)

func TestHistoryRepository_InsertAndLatest(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	seedOrderForIntegrationTest(t, store, 1, 1)

	repo := NewHistoryRepository(store)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	comment := "first"
	firstID, err := repo.Insert(ctx, domain.HistoryEntry{
		OrderID:   1,
		StatusID:  2,
		UpdatedBy: "Alice [7]",
		DateAdded: base,
		Notify:    domain.NotifyCustomerNotified,
		Comment:   &comment,
	})
	if err != nil {
		t.Fatalf("insert first: %v", err)
	}

	secondID, err := repo.Insert(ctx, domain.HistoryEntry{
		OrderID:   1,
		StatusID:  2,
		UpdatedBy: domain.UpdatedByCustomer,
		DateAdded: base.Add(time.Minute),
		Notify:    domain.NotifyHidden,
	})
	if err != nil {
		t.Fatalf("insert second: %v", err)
	}
	if secondID <= firstID {
		t.Fatalf("expected increasing ids, got %d then %d", firstID, secondID)
	}

	latest, err := repo.LatestFor(ctx, 1, 2)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != secondID {
		t.Fatalf("expected latest id %d, got %d", secondID, latest.ID)
	}
	if latest.Comment != nil {
		t.Fatalf("expected NULL comment, got %q", *latest.Comment)
	}
	if latest.Notify != domain.NotifyHidden {
		t.Fatalf("expected hidden notify flag, got %d", latest.Notify)
	}

	entries, err := repo.List(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != firstID {
		t.Fatalf("unexpected list order: %+v", entries)
	}
	if entries[0].Comment == nil || *entries[0].Comment != "first" {
		t.Fatalf("comment not persisted: %+v", entries[0])
	}
}

func TestHistoryRepository_LatestForMissing(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewHistoryRepository(store)

	_, err := repo.LatestFor(context.Background(), 404, 1)
	if !errors.Is(err, domain.ErrHistoryNotFound) {
		t.Fatalf("expected ErrHistoryNotFound, got %v", err)
	}
}

func TestHistoryRepository_InsertUnknownOrder(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewHistoryRepository(store)

	_, err := repo.Insert(context.Background(), domain.HistoryEntry{OrderID: 999, StatusID: 1})
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderStatusAdminRepositories(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	seedOrderForIntegrationTest(t, store, 5, 1)
	seedAdminForIntegrationTest(t, store, 7, "Alice")

	ctx := context.Background()
	orders := NewOrderRepository(store)

	modified := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	if err := orders.UpdateStatus(ctx, 5, 3, modified); err != nil {
		t.Fatalf("update status: %v", err)
	}
	order, err := orders.Get(ctx, 5)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.StatusID != 3 || !order.LastModified.Equal(modified) {
		t.Fatalf("unexpected order after update: %+v", order)
	}
	if err := orders.UpdateStatus(ctx, 404, 1, modified); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	statuses := NewStatusRepository(store)
	status, err := statuses.Get(ctx, 1, 3)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if status.Name != "Delivered" {
		t.Fatalf("unexpected status name %q", status.Name)
	}
	if _, err := statuses.Get(ctx, 2, 3); !errors.Is(err, domain.ErrStatusNotFound) {
		t.Fatalf("expected ErrStatusNotFound, got %v", err)
	}
	list, err := statuses.List(ctx, 1)
	if err != nil {
		t.Fatalf("list statuses: %v", err)
	}
	if len(list) < 4 {
		t.Fatalf("expected seeded statuses, got %d", len(list))
	}

	admins := NewAdminRepository(store)
	admin, err := admins.Get(ctx, 7)
	if err != nil {
		t.Fatalf("get admin: %v", err)
	}
	if admin.Name != "Alice" {
		t.Fatalf("unexpected admin %+v", admin)
	}
	if _, err := admins.Get(ctx, 8); !errors.Is(err, domain.ErrAdminNotFound) {
		t.Fatalf("expected ErrAdminNotFound, got %v", err)
	}
}
