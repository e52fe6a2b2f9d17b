package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const selectUsers = `
SELECT id FROM users
`

// created_at comes from the database clock so entry ordering is consistent
// with arrival even under concurrent fan-out.
const insertNotification = `
INSERT INTO notifications (
id,
user_id,
title,
body,
image,
read,
created_at
) VALUES ($1, $2, $3, $4, $5, false, now())
`

// PostgresStore is the relational backend: a users table plus a notifications
// table keyed by user_id.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var ErrNoPool = errors.New("postgres store requires a non-nil pool")

func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, ErrNoPool
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]UserRecord, error) {
	rows, err := s.pool.Query(ctx, selectUsers)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []UserRecord
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		users = append(users, UserRecord{ID: id})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *PostgresStore) AppendNotification(ctx context.Context, userID string, entry LogEntry) error {
	_, err := s.pool.Exec(ctx, insertNotification,
		uuid.NewString(),
		userID,
		entry.Title,
		entry.Body,
		entry.Image,
	)
	if err != nil {
		return fmt.Errorf("append notification for %s: %w", userID, err)
	}
	return nil
}
