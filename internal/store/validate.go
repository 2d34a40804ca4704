package store

import (
	"fmt"
	"math"
	"sort"

	"github.com/phrazzld/flatmap-maker/internal/domain"
)

// ValidateEntries checks entries before they are saved: layer and feature
// ids must be non-empty, coordinates finite and keys unique.
func ValidateEntries(entries []domain.LabelEntry) error {
	seen := make(map[[3]string]bool, len(entries))
	for _, e := range entries {
		if e.LayerID == "" {
			return fmt.Errorf("%w: feature %q has no layer id", ErrInvalidEntry, e.FeatureID)
		}
		if e.FeatureID == "" {
			return fmt.Errorf("%w: empty feature id in layer %q", ErrInvalidEntry, e.LayerID)
		}
		if !finite(e.X) || !finite(e.Y) {
			return fmt.Errorf("%w: feature %s/%s has coordinates (%g, %g)", ErrInvalidEntry, e.LayerID, e.FeatureID, e.X, e.Y)
		}
		key := [3]string{e.LayerID, e.FeatureID, e.Text}
		if seen[key] {
			return fmt.Errorf("%w: feature %s/%s label %q", ErrDuplicate, e.LayerID, e.FeatureID, e.Text)
		}
		seen[key] = true
	}
	return nil
}

// SortEntries orders entries by layer id, feature id, then label text.
func SortEntries(entries []domain.LabelEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.LayerID != b.LayerID {
			return a.LayerID < b.LayerID
		}
		if a.FeatureID != b.FeatureID {
			return a.FeatureID < b.FeatureID
		}
		return a.Text < b.Text
	})
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
