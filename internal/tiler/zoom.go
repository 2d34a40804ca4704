package tiler

import (
	"fmt"

	"github.com/phrazzld/flatmap-maker/internal/domain"
)

// MaxZoom is the highest zoom level tiles are generated for.
const MaxZoom = 15

// ZoomConfig is the zoom range of a tile set and the zoom a viewer opens at.
type ZoomConfig struct {
	Min     int
	Initial int
	Max     int
}

// Validate checks 0 <= Min <= Initial <= Max <= MaxZoom.
func (z ZoomConfig) Validate() error {
	if z.Min < 0 || z.Min > z.Initial || z.Initial > z.Max || z.Max > MaxZoom {
		return fmt.Errorf("%w: need 0 <= min (%d) <= initial (%d) <= max (%d) <= %d",
			domain.ErrInvalidZoom, z.Min, z.Initial, z.Max, MaxZoom)
	}
	return nil
}
