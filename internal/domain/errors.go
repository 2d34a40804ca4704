package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for each failure family. Every typed error below matches
// its sentinel with errors.Is.
var (
	// ErrManifest is returned for malformed or missing manifest fields.
	ErrManifest = errors.New("invalid manifest")

	// ErrSourceParse is returned for malformed source content.
	ErrSourceParse = errors.New("source parse failed")

	// ErrUnresolvedBoundary is returned when a detail layer's boundary does
	// not name a base-layer feature.
	ErrUnresolvedBoundary = errors.New("unresolved boundary")

	// ErrDuplicateFeatureID is returned when a layer holds two features with
	// the same identifier.
	ErrDuplicateFeatureID = errors.New("duplicate feature id")

	// ErrDuplicateLayerID is returned when two layers share an identifier.
	ErrDuplicateLayerID = errors.New("duplicate layer id")

	// ErrAnchor is returned when a boundary anchor cannot be computed, for
	// example for a degenerate extent or a cyclic anchor graph.
	ErrAnchor = errors.New("invalid boundary anchor")

	// ErrNoBaseLayer is returned when composition finds no base layer, or
	// more than one.
	ErrNoBaseLayer = errors.New("exactly one base layer is required")

	// ErrEngine is returned when the external tiling engine fails.
	ErrEngine = errors.New("tiling engine failed")

	// ErrInvalidZoom is returned for a zoom configuration outside
	// 0 <= min <= initial <= max <= MaxZoom.
	ErrInvalidZoom = errors.New("invalid zoom configuration")
)

// ManifestError describes one invalid or missing manifest field.
type ManifestError struct {
	Field  string // JSON path of the offending field, empty for the document
	Reason string
	Err    error // underlying error, if any
}

// Error implements the error interface.
func (e *ManifestError) Error() string {
	msg := "manifest"
	if e.Field != "" {
		msg += " field " + e.Field
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap supports errors.Is/errors.As on the underlying error.
func (e *ManifestError) Unwrap() error { return e.Err }

// Is matches ErrManifest.
func (e *ManifestError) Is(target error) bool { return target == ErrManifest }

// SourceParseError describes a malformed region of one source.
type SourceParseError struct {
	SourceID string
	Region   string // e.g. "slide 2 shape 14" or "path#outline"
	Reason   string
	Err      error
}

// Error implements the error interface.
func (e *SourceParseError) Error() string {
	msg := fmt.Sprintf("source %q", e.SourceID)
	if e.Region != "" {
		msg += " " + e.Region
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap supports errors.Is/errors.As on the underlying error.
func (e *SourceParseError) Unwrap() error { return e.Err }

// Is matches ErrSourceParse.
func (e *SourceParseError) Is(target error) bool { return target == ErrSourceParse }

// UnresolvedBoundaryError reports a detail layer whose boundary reference
// does not resolve to a base-layer feature.
type UnresolvedBoundaryError struct {
	SourceID string
	LayerID  string
	Boundary string
}

// Error implements the error interface.
func (e *UnresolvedBoundaryError) Error() string {
	if e.Boundary == "" {
		return fmt.Sprintf("source %q layer %q: no boundary reference", e.SourceID, e.LayerID)
	}
	return fmt.Sprintf("source %q layer %q: boundary %q is not a base-layer feature",
		e.SourceID, e.LayerID, e.Boundary)
}

// Is matches ErrUnresolvedBoundary.
func (e *UnresolvedBoundaryError) Is(target error) bool { return target == ErrUnresolvedBoundary }

// DuplicateFeatureIDError reports a feature identifier used twice in a layer.
type DuplicateFeatureIDError struct {
	SourceID  string
	LayerID   string
	FeatureID string
}

// Error implements the error interface.
func (e *DuplicateFeatureIDError) Error() string {
	return fmt.Sprintf("source %q layer %q: duplicate feature id %q", e.SourceID, e.LayerID, e.FeatureID)
}

// Is matches ErrDuplicateFeatureID.
func (e *DuplicateFeatureIDError) Is(target error) bool { return target == ErrDuplicateFeatureID }

// DuplicateLayerIDError reports a layer identifier used by two sources or
// slides.
type DuplicateLayerIDError struct {
	LayerID string
	Sources []string
}

// Error implements the error interface.
func (e *DuplicateLayerIDError) Error() string {
	return fmt.Sprintf("duplicate layer id %q in sources %q", e.LayerID, e.Sources)
}

// Is matches ErrDuplicateLayerID.
func (e *DuplicateLayerIDError) Is(target error) bool { return target == ErrDuplicateLayerID }

// AnchorError reports a boundary anchor that cannot be computed.
type AnchorError struct {
	LayerID       string
	BaseFeatureID string
	Reason        string
	Err           error
}

// Error implements the error interface.
func (e *AnchorError) Error() string {
	msg := fmt.Sprintf("layer %q anchored to %q: %s", e.LayerID, e.BaseFeatureID, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap supports errors.Is/errors.As on the underlying error.
func (e *AnchorError) Unwrap() error { return e.Err }

// Is matches ErrAnchor.
func (e *AnchorError) Is(target error) bool { return target == ErrAnchor }

// EngineError reports a non-zero exit of the external tiling engine. The
// diagnostic is the engine's error output, unmodified.
type EngineError struct {
	Command    string
	ExitCode   int
	Diagnostic string
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("%s exited with status %d: %s", e.Command, e.ExitCode, e.Diagnostic)
}

// Is matches ErrEngine.
func (e *EngineError) Is(target error) bool { return target == ErrEngine }
