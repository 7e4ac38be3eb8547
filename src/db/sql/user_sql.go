package db

import (
	"context"
	"spendsage-server/src/models"
	"time"
)

const userColumns = `id, email, username, name, phone_number, currency_preference, password_hash, date_joined, last_login`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.Name,
		&u.PhoneNumber,
		&u.CurrencyPreference,
		&u.PasswordHash,
		&u.DateJoined,
		&u.LastLogin,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r *Repo) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (email, username, name, phone_number, currency_preference, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns
	return scanUser(r.q.QueryRow(ctx, query,
		u.Email,
		u.Username,
		u.Name,
		u.PhoneNumber,
		u.CurrencyPreference,
		u.PasswordHash,
	))
}

func (r *Repo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.q.QueryRow(ctx, query, id))
}

func (r *Repo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return scanUser(r.q.QueryRow(ctx, query, email))
}

func (r *Repo) UpdateUser(ctx context.Context, u *models.User) (*models.User, error) {
	query := `
		UPDATE users
		SET username = $1, name = $2, phone_number = $3, currency_preference = $4
		WHERE id = $5
		RETURNING ` + userColumns
	return scanUser(r.q.QueryRow(ctx, query, u.Username, u.Name, u.PhoneNumber, u.CurrencyPreference, u.ID))
}

func (r *Repo) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	return expectOne(r.q.Exec(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, at, id))
}
