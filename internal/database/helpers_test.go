package database_test

import "database/sql"

// errNoRows mirrors the driver behaviour for an empty result set.
func errNoRows() error { return sql.ErrNoRows }
