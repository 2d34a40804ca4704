// Package markup parses the short annotations that authors attach to shapes
// and layers, for example ".id(heart) class(organ) models(UBERON:0000948)".
//
// Shape markup names a feature and sets its flags; layer directives name a
// layer, its taxonomic model, zoom range and boundary feature.
package markup
