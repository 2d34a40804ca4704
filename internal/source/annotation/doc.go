// Package annotation parses segmented-image annotations exported in MBF
// XML: named contours traced over a microscope image.
package annotation
