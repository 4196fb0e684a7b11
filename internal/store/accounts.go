package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/pocketbase/dbx"

	"ticket-marketplace/internal/status"
	"ticket-marketplace/models"
)

type accountRow struct {
	ID              string `db:"id"`
	Name            string `db:"name"`
	Email           string `db:"email"`
	PasswordHash    string `db:"password_hash"`
	Role            string `db:"role"`
	ReputationScore int    `db:"reputation_score"`
	IsBlocked       bool   `db:"is_blocked"`
	Created         int64  `db:"created"`
}

func (r *accountRow) model() *models.User {
	return &models.User{
		ID:              r.ID,
		Name:            r.Name,
		Email:           r.Email,
		PasswordHash:    r.PasswordHash,
		Role:            models.Role(r.Role),
		ReputationScore: r.ReputationScore,
		IsBlocked:       r.IsBlocked,
		CreatedAt:       fromMillis(r.Created),
	}
}

func (s *Store) CreateAccount(ctx context.Context, u *models.User) error {
	_, err := s.db.Insert("accounts", dbx.Params{
		"id":               u.ID,
		"name":             u.Name,
		"email":            strings.ToLower(u.Email),
		"password_hash":    u.PasswordHash,
		"role":             string(u.Role),
		"reputation_score": u.ReputationScore,
		"is_blocked":       u.IsBlocked,
		"created":          toMillis(u.CreatedAt),
	}).WithContext(ctx).Execute()
	return err
}

func (s *Store) FindAccount(ctx context.Context, id string) (*models.User, error) {
	return s.findAccount(ctx, dbx.HashExp{"id": id})
}

func (s *Store) FindAccountByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findAccount(ctx, dbx.HashExp{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (s *Store) findAccount(ctx context.Context, where dbx.Expression) (*models.User, error) {
	var row accountRow
	err := s.db.Select("*").From("accounts").Where(where).WithContext(ctx).One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.model(), nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]*models.User, error) {
	var rows []accountRow
	if err := s.db.Select("*").From("accounts").OrderBy("created DESC").WithContext(ctx).All(&rows); err != nil {
		return nil, err
	}
	users := make([]*models.User, 0, len(rows))
	for i := range rows {
		users = append(users, rows[i].model())
	}
	return users, nil
}

func (s *Store) SetBlocked(ctx context.Context, id string, blocked bool) error {
	ok, err := affected(s.db.Update("accounts", dbx.Params{"is_blocked": blocked}, dbx.HashExp{"id": id}).
		WithContext(ctx).Execute())
	if err != nil {
		return err
	}
	if !ok {
		return status.ErrUserNotFound
	}
	return nil
}

// AdjustReputation adds delta to the user's score without bounds.
func (s *Store) AdjustReputation(ctx context.Context, id string, delta int) error {
	ok, err := affected(s.db.NewQuery(
		"UPDATE accounts SET reputation_score = reputation_score + {:delta} WHERE id = {:id}",
	).Bind(dbx.Params{"delta": delta, "id": id}).WithContext(ctx).Execute())
	if err != nil {
		return err
	}
	if !ok {
		return status.ErrUserNotFound
	}
	return nil
}
