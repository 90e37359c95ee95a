package repository

import (
	"context"
	"testing"

	"hospital-appointment-service/internal/domain/entity"
	"hospital-appointment-service/internal/testutil"
)

func TestAuditLogRepository_Pagination(t *testing.T) {
	db := testutil.NewDB(t)
	admin := testutil.SeedUser(t, db, entity.RoleIDAdmin, "Admin", true)
	repo := NewAuditLogRepository()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := repo.Create(ctx, db, &entity.AuditLog{
			UserID:   &admin.ID,
			Action:   entity.AuditActionAppointmentCreate,
			Metadata: entity.JSON{"entity": entity.AuditEntityAppointment, "n": i},
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	page, total, err := repo.FindAll(ctx, db, 2, 0)
	if err != nil {
		t.Fatalf("find all: %v", err)
	}
	if total != 5 || len(page) != 2 {
		t.Fatalf("expected 2 of 5, got %d of %d", len(page), total)
	}
	if page[0].ID < page[1].ID {
		t.Fatalf("expected newest first")
	}
	if page[0].User == nil || page[0].User.Role.RoleName != entity.RoleAdmin {
		t.Fatalf("user and role not preloaded")
	}

	got, err := repo.FindByID(ctx, db, page[0].ID)
	if err != nil || got == nil {
		t.Fatalf("find by id: %v %v", got, err)
	}
	if got.Metadata["entity"] != entity.AuditEntityAppointment {
		t.Fatalf("metadata not round-tripped: %v", got.Metadata)
	}

	missing, err := repo.FindByID(ctx, db, 9999)
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil; got %v, %v", missing, err)
	}
}
