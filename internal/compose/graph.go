package compose

import (
	"fmt"
	"sort"

	"github.com/phrazzld/flatmap-maker/internal/domain"
)

// anchorGraph records which layer each detail layer is anchored to.
type anchorGraph struct {
	layers map[string]*domain.Layer
	parent map[string]string // detail layer id -> anchor layer id
}

// buildAnchorGraph resolves every detail layer's boundary against the
// features of base. A detail layer without a boundary is matched to the base
// feature whose details property names it.
func buildAnchorGraph(base *domain.Layer, layers []*domain.Layer) (*anchorGraph, []error) {
	g := &anchorGraph{
		layers: make(map[string]*domain.Layer, len(layers)),
		parent: map[string]string{},
	}
	for _, l := range layers {
		g.layers[l.ID] = l
	}

	var errs []error
	for _, l := range layers {
		if l.Kind != domain.LayerKindDetail {
			continue
		}
		if l.Boundary == "" {
			adoptDetailsReference(base, l)
		}
		if l.Boundary == "" {
			errs = append(errs, &domain.UnresolvedBoundaryError{SourceID: l.SourceID, LayerID: l.ID})
			continue
		}
		if _, ok := base.Feature(l.Boundary); !ok {
			errs = append(errs, &domain.UnresolvedBoundaryError{
				SourceID: l.SourceID,
				LayerID:  l.ID,
				Boundary: l.Boundary,
			})
			continue
		}
		g.parent[l.ID] = base.ID
	}
	return g, errs
}

// adoptDetailsReference anchors l to the base feature declaring
// details(l.ID, ZOOM), taking its zoom when l has none.
func adoptDetailsReference(base *domain.Layer, l *domain.Layer) {
	for _, f := range base.Features {
		if f.StringProperty(domain.PropDetails) != l.ID {
			continue
		}
		l.Boundary = f.ID
		if l.MinZoom == 0 {
			if z, ok := f.IntProperty(domain.PropMaxZoom); ok {
				l.MinZoom = z + 1
			}
		}
		return
	}
}

// order returns the anchored layers so that every layer follows the layer
// it is anchored to. Ties are broken by layer id.
func (g *anchorGraph) order() ([]*domain.Layer, error) {
	indegree := make(map[string]int, len(g.parent))
	children := map[string][]string{}
	for child, parent := range g.parent {
		indegree[child]++
		if _, ok := indegree[parent]; !ok {
			indegree[parent] = 0
		}
		children[parent] = append(children[parent], child)
	}

	var ready []string
	for id, d := range indegree {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	out := make([]*domain.Layer, 0, len(indegree))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		out = append(out, g.layers[id])

		next := children[id]
		sort.Strings(next)
		for _, c := range next {
			indegree[c]--
			if indegree[c] == 0 {
				ready = append(ready, c)
			}
		}
		sort.Strings(ready)
	}

	if len(out) != len(indegree) {
		var stuck []string
		for id, d := range indegree {
			if d > 0 {
				stuck = append(stuck, id)
			}
		}
		sort.Strings(stuck)
		return nil, &domain.AnchorError{
			LayerID:       stuck[0],
			BaseFeatureID: g.layers[stuck[0]].Boundary,
			Reason:        fmt.Sprintf("anchor cycle through layers %q", stuck),
		}
	}
	return out, nil
}
