package store

import (
	"database/sql"
	"time"
)

func fromNullInt64(ns sql.NullInt64) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := time.Unix(ns.Int64, 0)
	return &t
}

// flagOn maps a nullable integer preference column to a boolean.
// NULL means the user never touched the setting and counts as enabled.
func flagOn(v sql.NullInt64) bool {
	return !v.Valid || v.Int64 != 0
}

func nzInt(v sql.NullInt64) int {
	if !v.Valid {
		return 0
	}
	return int(v.Int64)
}

func nzFloat(v sql.NullFloat64) float64 {
	if !v.Valid {
		return 0
	}
	return v.Float64
}

func nzString(v sql.NullString) string {
	if !v.Valid {
		return ""
	}
	return v.String
}
