// Package compose merges the normalized layers of every source into one
// flatmap. It places the base layer in the flatmap frame, anchors each
// detail layer inside its boundary feature, merges anatomical and explicit
// properties, and positions labels. Composition is single-threaded and
// produces either a complete Flatmap or an error, never a partial result.
package compose
