// Package svg parses SVG diagrams into a single layer: the base layer for a
// "base" source, a detail layer for a "details" source.
//
// Element transforms compose down the tree and the root viewBox is mapped
// into a y-up frame whose origin is the bottom left corner of the drawing.
// Curves are kept as path segments; nothing is flattened here.
package svg
