package userrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/yanqian/dermaai/internal/domain/auth"
)

// SQLiteRepository persists users in a single-file SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens (creating when needed) the database at path and applies
// the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database failed: %w", err)
	}
	// one writer at a time; also keeps :memory: databases on a single connection
	db.SetMaxOpenConns(1)

	repo := &SQLiteRepository{db: db}
	if err := repo.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			first_name TEXT,
			last_name  TEXT,
			email      TEXT UNIQUE NOT NULL,
			password   TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS user_identities (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id          INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			provider         TEXT NOT NULL,
			provider_subject TEXT NOT NULL,
			provider_email   TEXT NOT NULL DEFAULT '',
			refresh_token    TEXT NOT NULL DEFAULT '',
			created_at       DATETIME NOT NULL,
			updated_at       DATETIME NOT NULL,
			UNIQUE (provider, provider_subject)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate users schema: %w", err)
		}
	}
	return nil
}

// Close releases the database handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Ping checks the database for /readyz.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Create inserts a new user row.
func (r *SQLiteRepository) Create(ctx context.Context, in auth.NewUser) (auth.User, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (first_name, last_name, email, password)
		VALUES (?, ?, ?, ?)
		RETURNING id, first_name, last_name, email, password, created_at
	`, in.FirstName, in.LastName, in.Email, in.PasswordHash)
	user, err := scanSQLiteUser(row)
	if isSQLiteUniqueViolation(err) {
		return auth.User{}, auth.ErrEmailExists
	}
	return user, err
}

// GetByEmail fetches a user by email.
func (r *SQLiteRepository) GetByEmail(ctx context.Context, email string) (auth.User, bool, error) {
	return r.getOne(ctx, `
		SELECT id, first_name, last_name, email, password, created_at
		FROM users WHERE email = ?
	`, email)
}

// GetByID fetches by primary key.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (auth.User, bool, error) {
	return r.getOne(ctx, `
		SELECT id, first_name, last_name, email, password, created_at
		FROM users WHERE id = ?
	`, id)
}

// UpdateProfile rewrites names and email.
func (r *SQLiteRepository) UpdateProfile(ctx context.Context, id int64, firstName, lastName, email string) (auth.User, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE users SET first_name = ?, last_name = ?, email = ?
		WHERE id = ?
		RETURNING id, first_name, last_name, email, password, created_at
	`, firstName, lastName, email, id)
	user, err := scanSQLiteUser(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return auth.User{}, auth.ErrUserNotFound
	case isSQLiteUniqueViolation(err):
		return auth.User{}, auth.ErrEmailExists
	}
	return user, err
}

// GetIdentity returns an identity by provider and subject.
func (r *SQLiteRepository) GetIdentity(ctx context.Context, provider, providerSubject string) (auth.Identity, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, provider, provider_subject, provider_email, refresh_token, created_at, updated_at
		FROM user_identities
		WHERE provider = ? AND provider_subject = ?
	`, provider, providerSubject)
	return scanSQLiteIdentity(row)
}

// GetIdentityByUser returns the user's identity for a provider.
func (r *SQLiteRepository) GetIdentityByUser(ctx context.Context, userID int64, provider string) (auth.Identity, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, provider, provider_subject, provider_email, refresh_token, created_at, updated_at
		FROM user_identities
		WHERE user_id = ? AND provider = ?
		ORDER BY updated_at DESC
		LIMIT 1
	`, userID, provider)
	return scanSQLiteIdentity(row)
}

// UpsertIdentity stores or updates the identity mapping.
func (r *SQLiteRepository) UpsertIdentity(ctx context.Context, identity auth.Identity) (auth.Identity, error) {
	if identity.UserID == 0 {
		return auth.Identity{}, errors.New("userID is required")
	}
	now := time.Now().UTC()
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO user_identities (user_id, provider, provider_subject, provider_email, refresh_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider, provider_subject) DO UPDATE SET
			provider_email = COALESCE(NULLIF(excluded.provider_email, ''), user_identities.provider_email),
			refresh_token  = COALESCE(NULLIF(excluded.refresh_token, ''), user_identities.refresh_token),
			updated_at     = excluded.updated_at
		RETURNING id, user_id, provider, provider_subject, provider_email, refresh_token, created_at, updated_at
	`, identity.UserID, identity.Provider, identity.ProviderSubject, identity.ProviderEmail, identity.RefreshToken, now, now)
	stored, _, err := scanSQLiteIdentity(row)
	return stored, err
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, arg any) (auth.User, bool, error) {
	user, err := scanSQLiteUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, false, nil
	}
	if err != nil {
		return auth.User{}, false, err
	}
	return user, true, nil
}

func scanSQLiteUser(row rowScanner) (auth.User, error) {
	var (
		user      auth.User
		first     sql.NullString
		last      sql.NullString
		createdAt any
	)
	if err := row.Scan(&user.ID, &first, &last, &user.Email, &user.PasswordHash, &createdAt); err != nil {
		return auth.User{}, err
	}
	user.FirstName = first.String
	user.LastName = last.String
	user.CreatedAt = sqliteTime(createdAt)
	return user, nil
}

func scanSQLiteIdentity(row rowScanner) (auth.Identity, bool, error) {
	var (
		identity           auth.Identity
		created, updatedAt any
	)
	err := row.Scan(
		&identity.ID, &identity.UserID, &identity.Provider, &identity.ProviderSubject,
		&identity.ProviderEmail, &identity.RefreshToken, &created, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Identity{}, false, nil
	}
	if err != nil {
		return auth.Identity{}, false, err
	}
	identity.CreatedAt = sqliteTime(created)
	identity.UpdatedAt = sqliteTime(updatedAt)
	return identity, true, nil
}

// sqliteTime accepts both driver-converted times and raw text; the driver
// only converts columns whose declared type it can see.
func sqliteTime(v any) time.Time {
	var raw string
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		raw = t
	case []byte:
		raw = string(t)
	default:
		return time.Time{}
	}
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

var _ auth.Repository = (*SQLiteRepository)(nil)
