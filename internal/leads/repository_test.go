package leads

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestRepository_Create(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	req := &CreateLeadRequest{
		Name:       "Jane Smith",
		Email:      "jane@example.com",
		WhatsApp:   "+55 11 98888-7777",
		ClinicName: "Clínica Jane",
		Source:     "pricing",
	}

	lead, err := repo.Create(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lead.ID == "" {
		t.Error("expected lead ID to be set")
	}
	if lead.Metadata.ClinicName != "Clínica Jane" {
		t.Errorf("expected clinic name, got %q", lead.Metadata.ClinicName)
	}
	if lead.Source != "pricing" {
		t.Errorf("expected source pricing, got %q", lead.Source)
	}
	if lead.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestRepository_CreateRejectsInvalid(t *testing.T) {
	repo := NewInMemoryRepository()
	if _, err := repo.Create(context.Background(), &CreateLeadRequest{Name: "No Email"}); !errors.Is(err, ErrMissingEmail) {
		t.Fatalf("expected ErrMissingEmail, got %v", err)
	}
}

func TestRepository_GetByID(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, &CreateLeadRequest{Name: "Test User", Email: "test@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("expected ID %s, got %s", created.ID, found.ID)
	}
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	repo := NewInMemoryRepository()
	if _, err := repo.GetByID(context.Background(), "nonexistent"); err != ErrLeadNotFound {
		t.Errorf("expected ErrLeadNotFound, got %v", err)
	}
}

func TestRepository_ListNewestFirst(t *testing.T) {
	repo := NewInMemoryRepository()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	ctx := context.Background()
	for _, email := range []string{"first@x.com", "second@x.com", "third@x.com"} {
		if _, err := repo.Create(ctx, &CreateLeadRequest{Name: "Lead", Email: email}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	all, err := repo.List(ctx, ListLeadsFilter{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].Email != "third@x.com" || all[2].Email != "first@x.com" {
		t.Fatalf("unexpected order: %v, %v, %v", all[0].Email, all[1].Email, all[2].Email)
	}

	page, err := repo.List(ctx, ListLeadsFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if len(page) != 1 || page[0].Email != "second@x.com" {
		t.Fatalf("unexpected page %+v", page)
	}

	empty, err := repo.List(ctx, ListLeadsFilter{Limit: 1, Offset: 5})
	if err != nil {
		t.Fatalf("list past end: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty page, got %d", len(empty))
	}
}

func TestPostgresRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO leads").
		WithArgs(pgxmock.AnyArg(), "Ana", "ana@x.com", "11999998888", pgxmock.AnyArg(), "landing").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(createdAt))

	repo := newPostgresRepositoryWithQuerier(mock)
	lead, err := repo.Create(context.Background(), &CreateLeadRequest{
		Name:     "Ana",
		Email:    "ana@x.com",
		WhatsApp: "11999998888",
		Revenue:  "50k",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if lead.CreatedAt != createdAt {
		t.Fatalf("expected created_at from database, got %s", lead.CreatedAt)
	}
	if lead.Metadata.Revenue != "50k" {
		t.Fatalf("expected revenue metadata, got %q", lead.Metadata.Revenue)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_CreateValidatesBeforeQuery(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)
	if _, err := repo.Create(context.Background(), &CreateLeadRequest{Name: "Ana"}); !errors.Is(err, ErrMissingEmail) {
		t.Fatalf("expected ErrMissingEmail, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected queries: %v", err)
	}
}

func TestPostgresRepository_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	id := uuid.New()
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, name, email, whatsapp, metadata, source, created_at").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "email", "whatsapp", "metadata", "source", "created_at"}).
			AddRow(id.String(), "Ana", "ana@x.com", "11999998888", []byte(`{"clinicName":"Clínica X"}`), "landing", createdAt))

	repo := newPostgresRepositoryWithQuerier(mock)
	lead, err := repo.GetByID(context.Background(), id.String())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if lead.ID != id.String() || lead.Metadata.ClinicName != "Clínica X" {
		t.Fatalf("unexpected lead %+v", lead)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_GetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("SELECT id, name, email").WithArgs(id).WillReturnError(pgx.ErrNoRows)

	repo := newPostgresRepositoryWithQuerier(mock)
	if _, err := repo.GetByID(context.Background(), id.String()); !errors.Is(err, ErrLeadNotFound) {
		t.Fatalf("expected ErrLeadNotFound, got %v", err)
	}

	if _, err := repo.GetByID(context.Background(), "not-a-uuid"); !errors.Is(err, ErrLeadNotFound) {
		t.Fatalf("expected ErrLeadNotFound for malformed id, got %v", err)
	}
}

func TestPostgresRepository_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM leads").
		WithArgs(20, 40).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "email", "whatsapp", "metadata", "source", "created_at"}).
			AddRow(uuid.NewString(), "Ana", "ana@x.com", "", []byte(`{}`), "landing", createdAt).
			AddRow(uuid.NewString(), "Bruno", "bruno@x.com", "", []byte{}, "pricing", createdAt.Add(-time.Hour)))

	repo := newPostgresRepositoryWithQuerier(mock)
	leads, err := repo.List(context.Background(), ListLeadsFilter{Limit: 20, Offset: 40})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(leads) != 2 || leads[1].Source != "pricing" {
		t.Fatalf("unexpected leads %+v", leads)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
