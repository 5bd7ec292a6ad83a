package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-service/internal/domain"
)

// UserRepository defines persistence access for accounts, their role/claim
// grants and the single stored refresh token per user.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUserName(ctx context.Context, userName string) (*domain.User, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, role *string) ([]domain.User, error)
	SaveRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiry time.Time) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insertUser = `
        INSERT INTO users (id, user_name, email, password_hash, is_active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at, updated_at`
	if err := tx.QueryRow(ctx, insertUser,
		user.ID,
		user.UserName,
		user.Email,
		user.PasswordHash,
		user.IsActive,
	).Scan(&user.CreatedAt, &user.UpdatedAt); err != nil {
		return err
	}

	const insertRole = `INSERT INTO user_roles (user_id, role) VALUES ($1,$2)`
	for _, role := range user.Roles {
		if _, err := tx.Exec(ctx, insertRole, user.ID, role); err != nil {
			return err
		}
	}

	const insertClaim = `INSERT INTO user_claims (user_id, claim_type, claim_value) VALUES ($1,$2,$3)`
	for claimType, claimValue := range user.Claims {
		if _, err := tx.Exec(ctx, insertClaim, user.ID, claimType, claimValue); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

const userColumns = `id, user_name, email, password_hash, is_active,
               refresh_token, refresh_token_expiry_date, created_at, updated_at`

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

func (r *userRepository) GetByUserName(ctx context.Context, userName string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE user_name=$1`, userName)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.UserName,
		&user.Email,
		&user.PasswordHash,
		&user.IsActive,
		&user.RefreshToken,
		&user.RefreshTokenExpiryDate,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := r.loadGrants(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) loadGrants(ctx context.Context, user *domain.User) error {
	rows, err := r.pool.Query(ctx, `SELECT role FROM user_roles WHERE user_id=$1 ORDER BY role`, user.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return err
		}
		user.Roles = append(user.Roles, role)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	claimRows, err := r.pool.Query(ctx, `SELECT claim_type, claim_value FROM user_claims WHERE user_id=$1`, user.ID)
	if err != nil {
		return err
	}
	defer claimRows.Close()
	for claimRows.Next() {
		var claimType, claimValue string
		if err := claimRows.Scan(&claimType, &claimValue); err != nil {
			return err
		}
		if user.Claims == nil {
			user.Claims = make(map[string]string)
		}
		user.Claims[claimType] = claimValue
	}
	return claimRows.Err()
}

func (r *userRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE id=$1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *userRepository) List(ctx context.Context, role *string) ([]domain.User, error) {
	query := `SELECT u.id, u.user_name, u.email, u.is_active FROM users u`
	args := []any{}
	if role != nil {
		query += ` JOIN user_roles ur ON ur.user_id = u.id AND ur.role=$1`
		args = append(args, *role)
	}
	query += ` ORDER BY u.user_name ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.UserName, &user.Email, &user.IsActive); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}

// SaveRefreshToken overwrites the stored refresh token, rotating out any
// previous value.
func (r *userRepository) SaveRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiry time.Time) error {
	const query = `
        UPDATE users SET refresh_token=$1, refresh_token_expiry_date=$2, updated_at=NOW()
        WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, token, expiry, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
