// Package normalize turns the curves parsed from sources into flat,
// oriented and deduplicated geometry, and moves layers into the flatmap
// frame.
package normalize
