package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/akinalp/smartnotify/database"
	"github.com/akinalp/smartnotify/models"
	"github.com/akinalp/smartnotify/pkg"
)

// sqliteUserRepo, UserRepository interface'inin SQLite implementasyonu.
//
// Go'da struct field'ları küçük harfle başlarsa (db) → private.
// Repository'nin DB bağlantısı dışarıya açık olmamalı — bu yüzden küçük harf.
type sqliteUserRepo struct {
	db database.TxQuerier
}

// NewSQLiteUserRepo, constructor fonksiyonu.
// UserRepository interface'i döner (concrete struct değil) — Dependency Inversion.
// TxQuerier aldığı için hem *sql.DB hem transaction içindeki *sql.Tx ile çalışır.
func NewSQLiteUserRepo(db database.TxQuerier) UserRepository {
	return &sqliteUserRepo{db: db}
}

func (r *sqliteUserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, display_name, email, phone_number, password_hash, first_login)
		VALUES (lower(hex(randomblob(8))), ?, ?, ?, ?, ?, 1)
		RETURNING id, first_login, created_at`

	// QueryRowContext: tek bir satır dönen sorgu çalıştırır.
	// Scan: sorgu sonucunu Go değişkenlerine aktarır.
	err := r.db.QueryRowContext(ctx, query,
		user.Username,
		user.DisplayName,
		user.Email,
		user.PhoneNumber,
		user.PasswordHash,
	).Scan(&user.ID, &user.FirstLogin, &user.CreatedAt)

	if err != nil {
		// UNIQUE constraint violation → kullanıcı adı veya email zaten var
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "idx_users_email") {
				return fmt.Errorf("%w: email already in use", pkg.ErrAlreadyExists)
			}
			return fmt.Errorf("%w: username already taken", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *sqliteUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, username, display_name, email, phone_number, password_hash, first_login, created_at
		FROM users WHERE id = ?`

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.DisplayName, &user.Email,
		&user.PhoneNumber, &user.PasswordHash, &user.FirstLogin, &user.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

func (r *sqliteUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT id, username, display_name, email, phone_number, password_hash, first_login, created_at
		FROM users WHERE username = ?`

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID, &user.Username, &user.DisplayName, &user.Email,
		&user.PhoneNumber, &user.PasswordHash, &user.FirstLogin, &user.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return user, nil
}

func (r *sqliteUserRepo) SetFirstLoginDone(ctx context.Context, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET first_login = 0 WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear first_login: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rows == 0 {
		return pkg.ErrNotFound
	}

	return nil
}

func (r *sqliteUserRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func (r *sqliteUserRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rows == 0 {
		return pkg.ErrNotFound
	}

	return nil
}

// isUniqueViolation, SQLite UNIQUE constraint hatasını tespit eder.
// modernc.org/sqlite typed error vermez — mesaj kontrolü gerekir.
func isUniqueViolation(err error) bool {
	return err != nil && !errors.Is(err, sql.ErrNoRows) &&
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}
