// Package jsonfile stores the label cache in a single JSON document on the
// local filesystem. Writes go to a temporary file in the same directory that
// is renamed over the target, so readers never see a partial document.
package jsonfile
