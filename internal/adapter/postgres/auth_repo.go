// Package postgres implements the domain repositories using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"storefront/internal/domain"
)

var (
	_ domain.KeyValueStore     = (*DB)(nil)
	_ domain.MemberRepository  = (*DB)(nil)
	_ domain.OTPRepository     = (*DB)(nil)
	_ domain.SessionRepository = (*SessionRepo)(nil)
)

const memberColumns = "id, COALESCE(email, ''), COALESCE(phone, ''), password_hash, created_at"

func scanMember(row *sql.Row) (*domain.Member, error) {
	var m domain.Member
	err := row.Scan(&m.ID, &m.Email, &m.Phone, &m.PasswordHash, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// GetByEmail retrieves a member by email.
func (d *DB) GetByEmail(ctx context.Context, email string) (*domain.Member, error) {
	if email == "" {
		return nil, nil
	}
	return scanMember(d.sql.QueryRowContext(ctx,
		"SELECT "+memberColumns+" FROM members WHERE email = $1", email))
}

// GetByPhone retrieves a member by phone number.
func (d *DB) GetByPhone(ctx context.Context, phone string) (*domain.Member, error) {
	if phone == "" {
		return nil, nil
	}
	return scanMember(d.sql.QueryRowContext(ctx,
		"SELECT "+memberColumns+" FROM members WHERE phone = $1", phone))
}

// Create creates a new member.
func (d *DB) Create(ctx context.Context, email, phone, passwordHash string) (*domain.Member, error) {
	return scanMember(d.sql.QueryRowContext(ctx,
		"INSERT INTO members (email, phone, password_hash, created_at) VALUES ($1, $2, $3, $4) RETURNING "+memberColumns,
		nullable(email), nullable(phone), passwordHash, time.Now(),
	))
}

// PutOTP replaces the pending code for phone.
func (d *DB) PutOTP(ctx context.Context, phone, codeHash string, expiresAt time.Time) error {
	_, err := d.sql.ExecContext(ctx,
		"INSERT INTO otp_codes (phone, code_hash, expires_at) VALUES ($1, $2, $3) ON CONFLICT (phone) DO UPDATE SET code_hash = EXCLUDED.code_hash, expires_at = EXCLUDED.expires_at",
		phone, codeHash, expiresAt,
	)
	return err
}

// TakeOTP deletes and returns the pending code for phone.
func (d *DB) TakeOTP(ctx context.Context, phone string) (string, time.Time, error) {
	var hash string
	var expiresAt time.Time
	err := d.sql.QueryRowContext(ctx,
		"DELETE FROM otp_codes WHERE phone = $1 RETURNING code_hash, expires_at", phone,
	).Scan(&hash, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", time.Time{}, nil
	}
	return hash, expiresAt, err
}

// SessionRepo implements session repository operations on DB.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo wraps a DB as a SessionRepository.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, memberID int64, token string, expiresAt time.Time) error {
	_, err := r.db.sql.ExecContext(ctx,
		"INSERT INTO member_sessions (member_id, token, expires_at, created_at) VALUES ($1, $2, $3, $4)",
		memberID, token, expiresAt, time.Now(),
	)
	return err
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.MemberSession, error) {
	var s domain.MemberSession
	err := r.db.sql.QueryRowContext(ctx,
		`SELECT s.token, s.member_id, COALESCE(m.email, m.phone, ''), s.expires_at
		FROM member_sessions s JOIN members m ON m.id = s.member_id
		WHERE s.token = $1`,
		token,
	).Scan(&s.Token, &s.MemberID, &s.Subject, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Delete deletes a session by token.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM member_sessions WHERE token = $1", token)
	return err
}

// DeleteExpired deletes sessions that expired before now.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.db.sql.QueryContext(ctx, "DELETE FROM member_sessions WHERE expires_at < $1 RETURNING token", now)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}
