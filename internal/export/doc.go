// Package export writes a composed flatmap as GeoJSON, one FeatureCollection
// per layer, in WGS84 coordinates with the tippecanoe hints the tiling
// engine reads.
package export
