// Package postgres stores the label cache in PostgreSQL. It opens connections
// through the pgx database/sql driver, applies the embedded goose migrations
// that create the label_cache table, and maps driver errors onto the store
// package's error values.
package postgres
