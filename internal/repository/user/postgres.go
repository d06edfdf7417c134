package user

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/jackc/pgx/v5"
	"storefront/internal/db"
	"storefront/internal/domain"
)

type postgresRepo struct {
	db     db.DBTX
	logger *log.Logger
}

// NewPostgres returns a Repository on a pool or on an open transaction.
func NewPostgres(conn db.DBTX, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{db: conn, logger: logger}
}

func (r *postgresRepo) Create(ctx context.Context, u domain.User) (*domain.User, error) {
	const q = `
INSERT INTO users (email, full_name, password_hash, role, active, order_points, membership_level)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id::text, created_at
`
	out := u
	out.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if out.Role == "" {
		out.Role = domain.RoleCustomer
	}
	out.MembershipLevel = domain.LevelForPoints(u.OrderPoints)

	err := r.db.QueryRow(ctx, q, out.Email, out.FullName, out.PasswordHash, out.Role, out.Active, out.OrderPoints, out.MembershipLevel).
		Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("user email %q: %w", out.Email, domain.ErrAlreadyExists)
		}
		r.logger.Printf("user repo: create email=%s error=%v", out.Email, err)
		return nil, err
	}
	r.logger.Printf("user repo: created email=%s id=%s", out.Email, out.ID)
	return &out, nil
}

const selectUser = `
SELECT id::text, email, full_name, password_hash, role, active, order_points, membership_level, created_at
FROM users
`

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if !db.ValidID(id) {
		return nil, domain.ErrNotFound
	}
	return r.get(ctx, selectUser+`WHERE id = $1`, id)
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.get(ctx, selectUser+`WHERE email = $1`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *postgresRepo) get(ctx context.Context, q, arg string) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx, q, arg).Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.Role, &u.Active,
		&u.OrderPoints, &u.MembershipLevel, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("user repo: get %s not found", arg)
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("user repo: get %s error=%v", arg, err)
		return nil, err
	}
	return &u, nil
}

func (r *postgresRepo) AccruePoints(ctx context.Context, id string, points int64) (*domain.User, error) {
	if !db.ValidID(id) {
		return nil, domain.ErrNotFound
	}
	if points < 0 {
		return nil, fmt.Errorf("user repo: negative points %d", points)
	}
	// The increment locks the row, so the level written below matches the
	// total this statement produced even with concurrent orders for the same user.
	const add = `
UPDATE users
SET order_points = order_points + $2
WHERE id = $1
RETURNING id::text, email, full_name, password_hash, role, active, order_points, membership_level, created_at
`
	var u domain.User
	err := r.db.QueryRow(ctx, add, id, points).Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.Role, &u.Active,
		&u.OrderPoints, &u.MembershipLevel, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("user repo: accrue id=%s points=%d error=%v", id, points, err)
		return nil, err
	}

	level := domain.LevelForPoints(u.OrderPoints)
	if level != u.MembershipLevel {
		if _, err := r.db.Exec(ctx, `UPDATE users SET membership_level = $2 WHERE id = $1`, id, level); err != nil {
			r.logger.Printf("user repo: level id=%s error=%v", id, err)
			return nil, err
		}
		u.MembershipLevel = level
	}
	r.logger.Printf("user repo: accrue id=%s points=%d total=%d level=%s", id, points, u.OrderPoints, u.MembershipLevel)
	return &u, nil
}
