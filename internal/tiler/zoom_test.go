package tiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phrazzld/flatmap-maker/internal/domain"
)

func TestZoomConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		zoom    ZoomConfig
		wantErr bool
	}{
		{name: "typical", zoom: ZoomConfig{Min: 2, Initial: 4, Max: 10}},
		{name: "single level", zoom: ZoomConfig{Min: 3, Initial: 3, Max: 3}},
		{name: "full range", zoom: ZoomConfig{Min: 0, Initial: 0, Max: MaxZoom}},
		{name: "negative min", zoom: ZoomConfig{Min: -1, Initial: 0, Max: 5}, wantErr: true},
		{name: "initial below min", zoom: ZoomConfig{Min: 4, Initial: 3, Max: 5}, wantErr: true},
		{name: "initial above max", zoom: ZoomConfig{Min: 0, Initial: 6, Max: 5}, wantErr: true},
		{name: "max too high", zoom: ZoomConfig{Min: 0, Initial: 1, Max: MaxZoom + 1}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.zoom.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidZoom)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
