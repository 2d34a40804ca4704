package domain

// SourceKind selects the parser for a source.
type SourceKind string

// Source kinds.
const (
	SourceKindSlides  SourceKind = "slides"
	SourceKindBase    SourceKind = "base"
	SourceKindDetails SourceKind = "details"
	SourceKindImage   SourceKind = "image"
)

// SourceKinds lists every valid kind.
var SourceKinds = []SourceKind{SourceKindSlides, SourceKindBase, SourceKindDetails, SourceKindImage}

// Valid reports whether k is a known kind.
func (k SourceKind) Valid() bool {
	for _, known := range SourceKinds {
		if k == known {
			return true
		}
	}
	return false
}

// IsFoundation reports whether a source of this kind provides the base layer.
func (k SourceKind) IsFoundation() bool {
	return k == SourceKindSlides || k == SourceKindBase
}

// RequiresBoundary reports whether a source of this kind must declare a
// boundary feature in the manifest.
func (k SourceKind) RequiresBoundary() bool {
	return k == SourceKindImage
}

// Source is one input document of a flatmap.
type Source struct {
	ID       string
	Kind     SourceKind
	Href     string // absolute path
	Boundary string // base feature id, image sources only
}

// Manifest declares a flatmap and its sources. It is immutable once loaded.
type Manifest struct {
	ID            string
	Models        string
	AnatomicalMap string // absolute path, optional
	Properties    string // absolute path, optional
	Sources       []Source
	Location      string // directory the manifest was loaded from
}

// Foundation returns the source that provides the base layer.
func (m *Manifest) Foundation() (Source, bool) {
	for _, s := range m.Sources {
		if s.Kind.IsFoundation() {
			return s, true
		}
	}
	return Source{}, false
}
