// Package geometry is the curve and coordinate kernel of the map maker.
//
// Sources describe shapes as paths made of straight, cubic, quadratic and
// elliptical-arc segments. A Path keeps those segments exactly, so that an
// Affine transform can be applied to control points before flattening and
// the flattening tolerance holds in the target coordinate system. Flattening
// produces orb geometries with RFC 7946 ring orientation: exterior rings
// counter-clockwise, holes clockwise.
package geometry
