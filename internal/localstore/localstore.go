// Package localstore is a durable key -> JSON document store backed by SQL.
// It mirrors the localStorage layout the original web frontend relied on:
// one value per key, last write wins, no coordination between writers.
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Well-known keys. Per-student ledger keys are derived with AttemptsKey and
// CompletedIDsKey.
const (
	KeyToken    = "token"
	KeyUserType = "userType"
	KeyUser     = "user"
)

func AttemptsKey(studentID string) string     { return "completedQuizzes_" + studentID }
func CompletedIDsKey(studentID string) string { return "completedQuizIds_" + studentID }

type Store struct{ db *sql.DB }

func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT value FROM local_state WHERE key=$1`, key)
	var v string
	if err := row.Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(v), true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO local_state (key, value, updated_at) VALUES ($1,$2,$3)
		 ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=EXCLUDED.updated_at`,
		key, string(value), time.Now().Unix())
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM local_state WHERE key=$1`, key)
	return err
}
