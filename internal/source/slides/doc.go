// Package slides parses PowerPoint decks (.pptx). The first slide is the
// base layer; every later slide is a detail layer anchored to a base
// feature.
//
// Shape coordinates are in EMU. The deck is centred on the origin, scaled
// by MetresPerEMU and flipped so y grows upwards.
package slides
