// Package properties loads the documents that decorate features after
// parsing: the per-feature properties document and the anatomical map.
//
// Both documents may be written as JSON or YAML; the format is chosen by
// file extension. Merging is shallow: a top-level key replaces any earlier
// value of the same key, with explicit properties taking precedence over
// anatomical ones, and anatomical ones over parser defaults.
package properties
