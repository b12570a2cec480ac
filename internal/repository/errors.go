package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrStaleVersion is returned when a conditional update finds the row was
// changed since it was read. Nothing was written.
var ErrStaleVersion = errors.New("row version is stale")

// IsUniqueViolation reports whether err came from a unique constraint.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// IsLockTimeout reports whether err is a postgres lock_timeout cancellation.
func IsLockTimeout(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "55P03"
	}
	return false
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// updateVersioned writes values to the row only if its version still matches,
// bumping the version in the same statement.
func updateVersioned(db *gorm.DB, model interface{}, id, version uint, values map[string]interface{}) error {
	values["version"] = version + 1
	res := db.Model(model).
		Where("id = ? AND version = ?", id, version).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleVersion
	}
	return nil
}
