package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"mailtriage/internal/model"
	"mailtriage/internal/repository"
)

type UserRepository struct {
	*Store
}

func NewUserRepository(s *Store) *UserRepository {
	return &UserRepository{Store: s}
}

const userColumns = `id, google_id, email, name, avatar_url, access_token, refresh_token, token_expiry, created_at, updated_at`

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (google_id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			avatar_url = EXCLUDED.avatar_url,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expiry = EXCLUDED.token_expiry,
			updated_at = EXCLUDED.updated_at`
	_, err := r.exec(ctx, query,
		user.ID, user.GoogleID, user.Email, user.Name, user.AvatarURL,
		user.AccessToken, user.RefreshToken, utc(user.TokenExpiry),
		utc(user.CreatedAt), utc(user.UpdatedAt))
	return err
}

func (r *UserRepository) findOne(ctx context.Context, where string, arg any) (*model.User, error) {
	row := r.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+` = ?`, arg)

	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.GoogleID, &user.Email, &user.Name, &user.AvatarURL,
		&user.AccessToken, &user.RefreshToken, &user.TokenExpiry,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, "id", id)
}

func (r *UserRepository) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return r.findOne(ctx, "google_id", googleID)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "email", email)
}

func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users SET google_id = ?, email = ?, name = ?, avatar_url = ?, access_token = ?,
		refresh_token = ?, token_expiry = ?, updated_at = ? WHERE id = ?`
	res, err := r.exec(ctx, query,
		user.GoogleID, user.Email, user.Name, user.AvatarURL,
		user.AccessToken, user.RefreshToken, utc(user.TokenExpiry),
		utc(time.Now()), user.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	_, err := r.exec(ctx, `DELETE FROM users WHERE id = ?`, id)
	return err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
