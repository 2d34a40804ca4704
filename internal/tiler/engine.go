package tiler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"

	"github.com/phrazzld/flatmap-maker/internal/domain"
	"github.com/phrazzld/flatmap-maker/internal/platform/logger"
)

// LayerInput is one GeoJSON document handed to the engine.
type LayerInput struct {
	File        string `json:"file"`
	Layer       string `json:"layer"`
	Description string `json:"description,omitempty"`
}

// Request describes one engine invocation.
type Request struct {
	Output string // archive path to create
	Layers []LayerInput
	Zoom   ZoomConfig
}

// Engine generates a tile archive. Generate blocks until the archive is
// written or ctx is done.
type Engine interface {
	Generate(ctx context.Context, req Request) error
}

// DefaultCommand is the tippecanoe executable looked up on PATH.
const DefaultCommand = "tippecanoe"

// TippecanoeEngine runs tippecanoe as a subprocess.
type TippecanoeEngine struct {
	command string
	logger  *slog.Logger
}

var _ Engine = (*TippecanoeEngine)(nil)

// NewTippecanoeEngine returns an engine running command, or DefaultCommand
// when command is empty. If logger is nil, a default logger will be used.
func NewTippecanoeEngine(command string, logger *slog.Logger) *TippecanoeEngine {
	if command == "" {
		command = DefaultCommand
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TippecanoeEngine{
		command: command,
		logger:  logger.With(slog.String("component", "tippecanoe")),
	}
}

// Args returns the command-line arguments for req.
func (e *TippecanoeEngine) Args(req Request) ([]string, error) {
	args := []string{
		"--force",
		"--projection=EPSG:4326",
		"--buffer=100",
		"--minimum-zoom=" + strconv.Itoa(req.Zoom.Min),
		"--maximum-zoom=" + strconv.Itoa(req.Zoom.Max),
		"--no-tile-size-limit",
		"--output=" + req.Output,
	}
	for _, l := range req.Layers {
		spec, err := json.Marshal(l)
		if err != nil {
			return nil, fmt.Errorf("failed to encode layer %s: %w", l.Layer, err)
		}
		args = append(args, "-L"+string(spec))
	}
	return args, nil
}

// Generate implements Engine. A non-zero exit is reported as a
// *domain.EngineError carrying the engine's error output unmodified.
func (e *TippecanoeEngine) Generate(ctx context.Context, req Request) error {
	log := logger.FromContextOrDefault(ctx, e.logger)

	args, err := e.Args(req)
	if err != nil {
		return err
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.command, args...)
	cmd.Stderr = &stderr

	log.InfoContext(ctx, "running tiling engine",
		slog.String("command", e.command),
		slog.Int("layers", len(req.Layers)),
		slog.Int("min_zoom", req.Zoom.Min),
		slog.Int("max_zoom", req.Zoom.Max))

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("tiling engine interrupted: %w", ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &domain.EngineError{
				Command:    e.command,
				ExitCode:   exitErr.ExitCode(),
				Diagnostic: stderr.String(),
			}
		}
		return fmt.Errorf("%w: cannot run %s: %w", domain.ErrEngine, e.command, err)
	}
	return nil
}
