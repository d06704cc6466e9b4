package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mamadbah2/bakery/internal/domain/models"
)

// mapError converts pgx/pgconn errors to domain errors. Anything unrecognised,
// context deadlines included, is reported as store unavailability.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: %w", op, models.ErrNotFound)
		case "23514", "23502", "22P02": // check_violation, not_null_violation, invalid_text_representation
			return fmt.Errorf("%s: %w: %s", op, models.ErrValidation, pgErr.Message)
		}
	}

	return models.Unavailable(op, err)
}
