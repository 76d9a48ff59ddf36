package auth

import (
	"context"
	"database/sql"
	"errors"

	"events-system/internal/models"

	"github.com/uptrace/bun"
)

// Repository is the user store behind registration and login.
type Repository struct {
	Bun *bun.DB
}

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	_, err := r.Bun.NewInsert().Model(user).Exec(ctx)
	return err
}

// GetUserByEmail returns (nil, nil) when no user has the email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.Bun.NewSelect().
		Model(&user).
		Where("email = ?", email).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.Bun.NewSelect().
		Model(&user).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
