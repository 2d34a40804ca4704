// Package source defines the parser capability shared by every source
// format and the registry that dispatches a manifest source to the parser
// for its kind.
//
// Parsers live in subpackages (slides, svg, annotation). They emit features
// whose paths are still curves in a y-up local frame; flattening happens in
// the normalize package.
package source
