// Package tiler turns exported GeoJSON layers into a vector tile archive by
// running an external tiling engine, and writes the index and style files a
// viewer needs alongside it. A tile archive only appears under its final
// name once the engine has succeeded.
package tiler
