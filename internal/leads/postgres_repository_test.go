package leads

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func strPtr(s string) *string { return &s }

func leadRowColumns() []string {
	return []string{"id", "created_at", "full_name", "email", "phone", "notes",
		"ig_user_id", "ig_username", "ig_comment_id", "ig_media_id", "campaign", "source"}
}

func TestPostgresRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithDB(mock)
	createdAt := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	data := &IntakeData{
		FullName:   "Jane Roe",
		Email:      "jane@example.com",
		IGUsername: strPtr("alice"),
		Source:     SourceInstagramComment,
	}

	mock.ExpectQuery("INSERT INTO leads").
		WithArgs(pgxmock.AnyArg(), "Jane Roe", "jane@example.com",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), SourceInstagramComment).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(createdAt))

	lead, err := repo.Create(context.Background(), data)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if lead.ID == "" || !lead.CreatedAt.Equal(createdAt) {
		t.Fatalf("unexpected lead %+v", lead)
	}
	if Value(lead.IGUsername) != "alice" || lead.Phone != nil {
		t.Fatalf("optional fields not carried: %+v", lead)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_CreateError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithDB(mock)
	mock.ExpectQuery("INSERT INTO leads").WillReturnError(errors.New("connection refused"))

	_, err = repo.Create(context.Background(), &IntakeData{FullName: "Jane", Email: "jane@example.com"})
	if err == nil {
		t.Fatal("expected insert error")
	}

	if _, err := repo.Create(context.Background(), &IntakeData{}); !errors.Is(err, ErrInvalidLead) {
		t.Fatalf("expected ErrInvalidLead, got %v", err)
	}
}

func TestPostgresRepository_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithDB(mock)
	id := "0b6f9d0e-4c8a-4f43-9a51-8d5d3c0c2f11"
	createdAt := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM leads WHERE id = \\$1").WithArgs(id).
		WillReturnRows(pgxmock.NewRows(leadRowColumns()).AddRow(
			id, createdAt, "Jane Roe", "jane@example.com", strPtr("+15550000000"), (*string)(nil),
			strPtr("999"), strPtr("alice"), strPtr("c1"), strPtr("m1"), strPtr("ig_comment_automation"), SourceInstagramComment,
		))

	lead, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if lead.ID != id || Value(lead.Phone) != "+15550000000" || lead.Notes != nil || Value(lead.IGMediaID) != "m1" {
		t.Fatalf("unexpected lead %+v", lead)
	}

	missing := "5d1b3c62-0000-4000-8000-000000000000"
	mock.ExpectQuery("FROM leads WHERE id = \\$1").WithArgs(missing).WillReturnError(pgx.ErrNoRows)
	if _, err := repo.GetByID(context.Background(), missing); !errors.Is(err, ErrLeadNotFound) {
		t.Fatalf("expected ErrLeadNotFound, got %v", err)
	}

	if _, err := repo.GetByID(context.Background(), "not-a-uuid"); !errors.Is(err, ErrLeadNotFound) {
		t.Fatalf("expected ErrLeadNotFound for malformed id, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithDB(mock)
	createdAt := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY full_name ASC, id ASC LIMIT $2 OFFSET $3")).
		WithArgs(`%50\%%`, 10, 20).
		WillReturnRows(pgxmock.NewRows(leadRowColumns()).AddRow(
			"0b6f9d0e-4c8a-4f43-9a51-8d5d3c0c2f11", createdAt, "Jane Roe", "jane@example.com",
			(*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil),
			SourceInstagramComment,
		))

	got, err := repo.List(context.Background(), ListFilter{Search: "50%", SortBy: SortFullName, Limit: 10, Offset: 20})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].FullName != "Jane Roe" {
		t.Fatalf("unexpected result %+v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBuildListQuery(t *testing.T) {
	query, args := buildListQuery(DefaultListFilter())
	if len(args) != 0 {
		t.Fatalf("expected no args, got %v", args)
	}
	if !regexp.MustCompile(`ORDER BY created_at DESC, id DESC$`).MatchString(query) {
		t.Fatalf("unexpected query %q", query)
	}

	query, _ = buildListQuery(ListFilter{SortBy: "email; DROP TABLE leads", Limit: 5})
	if !regexp.MustCompile(`ORDER BY created_at ASC, id ASC LIMIT \$1$`).MatchString(query) {
		t.Fatalf("unexpected query %q", query)
	}

	if got := escapeLike(`a_b%c\d`); got != `a\_b\%c\\d` {
		t.Fatalf("unexpected escape %q", got)
	}
}
