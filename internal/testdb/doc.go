// Package testdb provides helpers for tests that need a real PostgreSQL
// database. Tests skip themselves unless DATABASE_URL (or
// MAPMAKER_TEST_DB_URL) names a reachable server.
package testdb
