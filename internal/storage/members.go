package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"famspese/internal/core"
)

const memberColumns = "id, email, display_name, password_hash, created_at"

func (r *SQLiteRepository) CreateMember(ctx context.Context, m *core.Member) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.Email = strings.ToLower(strings.TrimSpace(m.Email))

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO members (`+memberColumns+`) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.Email, m.DisplayName, m.PasswordHash, m.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("create member: %w", mapError(err))
	}

	slog.InfoContext(ctx, "Member saved to SQLite", "id", m.ID)
	return nil
}

func (r *SQLiteRepository) GetMember(ctx context.Context, id string) (core.Member, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE id = ?`, id)
	m, err := scanMember(row)
	if err != nil {
		return core.Member{}, fmt.Errorf("get member %s: %w", id, mapError(err))
	}
	return m, nil
}

func (r *SQLiteRepository) GetMemberByEmail(ctx context.Context, email string) (core.Member, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
	m, err := scanMember(row)
	if err != nil {
		return core.Member{}, fmt.Errorf("get member by email: %w", mapError(err))
	}
	return m, nil
}

func scanMember(s scanner) (core.Member, error) {
	var (
		m       core.Member
		created sql.NullInt64
	)
	if err := s.Scan(&m.ID, &m.Email, &m.DisplayName, &m.PasswordHash, &created); err != nil {
		return core.Member{}, err
	}
	m.CreatedAt = unixTime(created)
	return m, nil
}
