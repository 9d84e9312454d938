package server

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// SeedOperator creates the configured operator account if no operators
// exist yet. Idempotent: does nothing on an already-seeded database.
func SeedOperator(ctx context.Context, logger *slog.Logger, ops OperatorStore, email, password string) error {
	count, err := ops.CountOperators(ctx)
	if err != nil {
		return fmt.Errorf("counting operators: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing operator password: %w", err)
	}
	if err := ops.CreateOperator(ctx, email, string(hash)); err != nil {
		return fmt.Errorf("creating operator: %w", err)
	}

	logger.Info("seeded operator account", "email", email)
	return nil
}
