package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
)

func (r *Repository) MembershipForUser(ctx context.Context, userID string) (core.Membership, error) {
	var m core.Membership
	err := r.db.QueryRowContext(ctx, r.q("SELECT couple_id, user_id, display_name FROM couple_users WHERE user_id = ?"), userID).
		Scan(&m.CoupleID, &m.UserID, &m.DisplayName)
	if err != nil {
		return core.Membership{}, fmt.Errorf("membership for user %s: %w", userID, mapError(err))
	}
	return m, nil
}

func (r *Repository) CreateUser(ctx context.Context, email, passwordHash string) (core.User, error) {
	u := core.User{ID: uuid.NewString(), Email: normalizeEmail(email), PasswordHash: passwordHash}
	now := r.timestamp()
	_, err := r.db.ExecContext(ctx, r.q("INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)"),
		u.ID, u.Email, u.PasswordHash, now)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", mapError(err))
	}
	return r.GetUserByID(ctx, u.ID)
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return r.getUser(ctx, "email", normalizeEmail(email))
}

func (r *Repository) GetUserByID(ctx context.Context, id string) (core.User, error) {
	return r.getUser(ctx, "id", id)
}

func (r *Repository) getUser(ctx context.Context, column, value string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx, r.q("SELECT id, email, password_hash, created_at FROM users WHERE "+column+" = ?"), value).
		Scan(&u.ID, &u.Email, &u.PasswordHash, timeText{&u.CreatedAt})
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", mapError(err))
	}
	return u, nil
}

func (r *Repository) CreateCouple(ctx context.Context, name string) (core.Couple, error) {
	c := core.Couple{ID: uuid.NewString(), Name: strings.TrimSpace(name)}
	now := r.timestamp()
	if _, err := r.db.ExecContext(ctx, r.q("INSERT INTO couples (id, name, created_at) VALUES (?, ?, ?)"), c.ID, c.Name, now); err != nil {
		return core.Couple{}, fmt.Errorf("create couple: %w", mapError(err))
	}
	c.CreatedAt, _ = time.Parse(timeLayout, now)
	return c, nil
}

func (r *Repository) ListCouples(ctx context.Context) ([]core.Couple, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, created_at FROM couples ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("list couples: %w", err)
	}
	defer rows.Close()

	out := []core.Couple{}
	for rows.Next() {
		var c core.Couple
		if err := rows.Scan(&c.ID, &c.Name, timeText{&c.CreatedAt}); err != nil {
			return nil, fmt.Errorf("scan couple: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) AddMember(ctx context.Context, coupleID, userID, displayName string) (core.Membership, error) {
	m := core.Membership{CoupleID: coupleID, UserID: userID, DisplayName: strings.TrimSpace(displayName)}
	if m.DisplayName == "" {
		return core.Membership{}, fmt.Errorf("add member: empty display name")
	}
	_, err := r.db.ExecContext(ctx, r.q("INSERT INTO couple_users (couple_id, user_id, display_name, created_at) VALUES (?, ?, ?, ?)"),
		m.CoupleID, m.UserID, m.DisplayName, r.timestamp())
	if err != nil {
		return core.Membership{}, fmt.Errorf("add member: %w", mapError(err))
	}
	return m, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
