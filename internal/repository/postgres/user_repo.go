package postgres

import (
	"context"
	"errors"

	"github.com/dafibh/gehalt/gehalt-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = "id, auth0_id, email, name, picture_url, created_at, updated_at"

// UserRepository implements domain.UserRepository using PostgreSQL
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID retrieves a user by their UUID
func (r *UserRepository) GetByID(id uuid.UUID) (*domain.User, error) {
	row := r.pool.QueryRow(context.Background(),
		"SELECT "+userColumns+" FROM users WHERE id = $1", pgUUID(id))
	return scanUserOrNotFound(row)
}

// GetByAuth0ID retrieves a user by their Auth0 ID
func (r *UserRepository) GetByAuth0ID(auth0ID string) (*domain.User, error) {
	row := r.pool.QueryRow(context.Background(),
		"SELECT "+userColumns+" FROM users WHERE auth0_id = $1", auth0ID)
	return scanUserOrNotFound(row)
}

// UpdateName updates only the user's name by Auth0 ID
func (r *UserRepository) UpdateName(auth0ID string, name string) (*domain.User, error) {
	row := r.pool.QueryRow(context.Background(),
		"UPDATE users SET name = $2, updated_at = now() WHERE auth0_id = $1 RETURNING "+userColumns,
		auth0ID, pgtype.Text{String: name, Valid: true})
	return scanUserOrNotFound(row)
}

// CreateOrGetByAuth0ID creates a new user or returns the existing one (upsert on login).
// The boolean reports whether the row was inserted.
func (r *UserRepository) CreateOrGetByAuth0ID(auth0ID, email string, name, pictureURL *string) (*domain.User, bool, error) {
	row := r.pool.QueryRow(context.Background(), `
		INSERT INTO users (auth0_id, email, name, picture_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (auth0_id) DO UPDATE SET
			email = EXCLUDED.email,
			picture_url = COALESCE(EXCLUDED.picture_url, users.picture_url),
			updated_at = now()
		RETURNING `+userColumns+`, (xmax = 0) AS inserted`,
		auth0ID, email, stringPtrToPgText(name), stringPtrToPgText(pictureURL))

	var (
		u        pgUser
		inserted bool
	)
	if err := row.Scan(&u.id, &u.auth0ID, &u.email, &u.name, &u.pictureURL, &u.createdAt, &u.updatedAt, &inserted); err != nil {
		return nil, false, err
	}
	return u.toDomain(), inserted, nil
}

// Helper functions

type pgUser struct {
	id                   pgtype.UUID
	auth0ID              string
	email                string
	name                 pgtype.Text
	pictureURL           pgtype.Text
	createdAt, updatedAt pgtype.Timestamptz
}

func (u pgUser) toDomain() *domain.User {
	return &domain.User{
		ID:         uuid.UUID(u.id.Bytes),
		Auth0ID:    u.auth0ID,
		Email:      u.email,
		Name:       pgTextToStringPtr(u.name),
		PictureURL: pgTextToStringPtr(u.pictureURL),
		CreatedAt:  u.createdAt.Time,
		UpdatedAt:  u.updatedAt.Time,
	}
}

func scanUserOrNotFound(row pgx.Row) (*domain.User, error) {
	var u pgUser
	if err := row.Scan(&u.id, &u.auth0ID, &u.email, &u.name, &u.pictureURL, &u.createdAt, &u.updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return u.toDomain(), nil
}
