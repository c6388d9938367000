package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/wwicak/kom-sabu-sub000/internal/repository"
)

func TestUserRepositoryGetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgxmock pool: %v", err)
	}
	defer mock.Close()

	registeredAt := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, username, email, role, is_active, registered_at, last_login FROM portal.users").
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "username", "email", "role", "is_active", "registered_at", "last_login",
		}).AddRow("user-1", "editor1", "editor@saburaijua.go.id", "editor", true, registeredAt, nil))

	repo := NewUserRepositoryWithQuerier(mock)

	user, err := repo.GetByID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if user.Username != "editor1" {
		t.Fatalf("username = %q, want editor1", user.Username)
	}
	if user.Role != "editor" {
		t.Fatalf("role = %q, want editor", user.Role)
	}
	if !user.IsActive {
		t.Fatal("expected active user")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepositoryGetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgxmock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("SELECT id, username, email, role, is_active, registered_at, last_login FROM portal.users").
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	repo := NewUserRepositoryWithQuerier(mock)

	_, err = repo.GetByID(context.Background(), "ghost")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
