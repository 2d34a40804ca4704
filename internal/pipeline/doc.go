// Package pipeline runs a conversion end to end: it loads a manifest, parses
// every source on a worker pool, normalizes and composes the layers, exports
// GeoJSON and optionally hands the result to the tiling engine.
//
// A run either produces its output files or fails before writing any of
// them; the label cache is persisted only after a successful export.
package pipeline
