package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/oms-history/internal/domain"
	"github.com/vladislavdragonenkov/oms-history/internal/storage/memory"
)

func TestStatusRepository_GetByLanguage(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewStatusRepository(append(memory.DefaultStatuses(),
		domain.Status{ID: 2, LanguageID: 2, Name: "In Bearbeitung"},
	)...)

	status, err := repo.Get(ctx, 1, 2)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if status.Name != "Processing" {
		t.Fatalf("expected Processing, got %s", status.Name)
	}

	localized, err := repo.Get(ctx, 2, 2)
	if err != nil {
		t.Fatalf("get localized failed: %v", err)
	}
	if localized.Name != "In Bearbeitung" {
		t.Fatalf("unexpected localized name %s", localized.Name)
	}

	if _, err := repo.Get(ctx, 2, 1); !errors.Is(err, domain.ErrStatusNotFound) {
		t.Fatalf("expected ErrStatusNotFound, got %v", err)
	}
}

func TestStatusRepository_List(t *testing.T) {
	repo := memory.NewStatusRepository(memory.DefaultStatuses()...)

	statuses, err := repo.List(context.Background(), 1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(statuses) != 4 {
		t.Fatalf("expected 4 statuses, got %d", len(statuses))
	}
	for i := 1; i < len(statuses); i++ {
		if statuses[i-1].ID >= statuses[i].ID {
			t.Fatalf("statuses must be ordered by id: %+v", statuses)
		}
	}
}

func TestAdminRepository_Get(t *testing.T) {
	repo := memory.NewAdminRepository(domain.Admin{ID: 7, Name: "Jane"})

	admin, err := repo.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if admin.Name != "Jane" {
		t.Fatalf("unexpected admin %+v", admin)
	}

	if _, err := repo.Get(context.Background(), 8); !errors.Is(err, domain.ErrAdminNotFound) {
		t.Fatalf("expected ErrAdminNotFound, got %v", err)
	}
}
