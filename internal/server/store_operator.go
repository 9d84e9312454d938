package server

import (
	"context"
	"database/sql"
	"errors"
)

func (s *SQLiteStore) OperatorByEmail(ctx context.Context, email string) (string, string, error) {
	var operatorID, passwordHash string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, password_hash FROM operators WHERE email = ?
	`, email).Scan(&operatorID, &passwordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrNotFound
	}
	return operatorID, passwordHash, err
}

func (s *SQLiteStore) CreateOperatorSession(ctx context.Context, operatorID string) (string, error) {
	var sessionID string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO operator_sessions (operator_id)
		VALUES (?)
		RETURNING id
	`, operatorID).Scan(&sessionID)
	return sessionID, err
}

func (s *SQLiteStore) DeleteOperatorSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM operator_sessions WHERE id = ?`, sessionID)
	return err
}

func (s *SQLiteStore) OperatorFromSession(ctx context.Context, sessionID string) (operatorSession, error) {
	var sess operatorSession
	err := s.db.QueryRowContext(ctx, `
		SELECT o.id, o.email
		FROM operator_sessions s
		JOIN operators o ON o.id = s.operator_id
		WHERE s.id = ?
	`, sessionID).Scan(&sess.OperatorID, &sess.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return operatorSession{}, errNoOperatorSession
	}
	return sess, err
}

func (s *SQLiteStore) CountOperators(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM operators`).Scan(&count)
	return count, err
}

func (s *SQLiteStore) CreateOperator(ctx context.Context, email, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO operators (email, password_hash) VALUES (?, ?)
	`, email, passwordHash)
	return err
}
