package repository

import (
	"database/sql"
	"errors"
	"fmt"
)

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// requireAffected translates a zero-row write into sql.ErrNoRows so
// services can map it to NOT_FOUND.
func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check affected rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
