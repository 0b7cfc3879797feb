package repository

import (
	"context"
	"database/sql"
	"errors"

	"finance_users/internal/common"
	"finance_users/internal/domain/model"
	"finance_users/internal/platform/database"
)

type UserRepository interface {
	FindAll(ctx context.Context) ([]*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	SetVerificationCode(ctx context.Context, id, code string) error
	SoftDelete(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

const userColumns = `id, username, email, hashed_password, verification_code, active, role, created_at, updated_at`

type pgUserRepository struct {
	db database.DBTX
}

func NewPgUserRepository(db database.DBTX) UserRepository {
	return &pgUserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	var code sql.NullString
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.HashedPassword, &code,
		&user.Active, &user.Role, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if code.Valid {
		user.VerificationCode = &code.String
	}
	return user, nil
}

func (r *pgUserRepository) FindAll(ctx context.Context) ([]*model.User, error) {
	query := `SELECT ` + userColumns + `
	          FROM users WHERE deleted_at IS NULL
	          ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, common.Errorf("pgUserRepository.FindAll: %w", err)
	}
	defer rows.Close()

	users := make([]*model.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, common.Errorf("pgUserRepository.FindAll scan: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Errorf("pgUserRepository.FindAll rows: %w", err)
	}
	return users, nil
}

func (r *pgUserRepository) findOne(ctx context.Context, op, column, value string) (*model.User, error) {
	query := `SELECT ` + userColumns + `
	          FROM users WHERE ` + column + ` = $1 AND deleted_at IS NULL`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.Errorf("pgUserRepository.%s: %w", op, err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, "FindByID", "id", id)
}

func (r *pgUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, "FindByUsername", "username", username)
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "FindByEmail", "email", email)
}

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, username, email, hashed_password, verification_code, active, role)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Username, user.Email, user.HashedPassword, user.VerificationCode, user.Active, user.Role,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return common.Errorf("user with given username or email already exists: %w", common.ErrConflict)
		}
		return common.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

func (r *pgUserRepository) Update(ctx context.Context, user *model.User) error {
	query := `UPDATE users SET username = $2, email = $3, active = $4, updated_at = now()
	          WHERE id = $1 AND deleted_at IS NULL
	          RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, user.ID, user.Username, user.Email, user.Active).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		if common.IsUniqueViolation(err) {
			return common.Errorf("user with given username or email already exists: %w", common.ErrConflict)
		}
		return common.Errorf("pgUserRepository.Update: %w", err)
	}
	return nil
}

func (r *pgUserRepository) SetVerificationCode(ctx context.Context, id, code string) error {
	query := `UPDATE users SET verification_code = $2, updated_at = now()
	          WHERE id = $1 AND deleted_at IS NULL`
	return r.execAffectingOne(ctx, "SetVerificationCode", query, id, code)
}

func (r *pgUserRepository) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE users SET deleted_at = now(), updated_at = now()
	          WHERE id = $1 AND deleted_at IS NULL`
	return r.execAffectingOne(ctx, "SoftDelete", query, id)
}

func (r *pgUserRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`
	return r.execAffectingOne(ctx, "Delete", query, id)
}

func (r *pgUserRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`
	var n int
	if err := r.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, common.Errorf("pgUserRepository.Count: %w", err)
	}
	return n, nil
}

func (r *pgUserRepository) execAffectingOne(ctx context.Context, op, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return common.Errorf("pgUserRepository.%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return common.Errorf("pgUserRepository.%s: %w", op, err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
