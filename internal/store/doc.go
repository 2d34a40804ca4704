// Package store defines the persistence boundary of the label cache. The
// LabelStore interface is implemented by a JSON file backend
// (platform/jsonfile) and a PostgreSQL backend (platform/postgres), so the
// labels package never depends on a particular storage technology.
package store
