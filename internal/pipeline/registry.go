package pipeline

import (
	"log/slog"

	"github.com/phrazzld/flatmap-maker/internal/domain"
	"github.com/phrazzld/flatmap-maker/internal/source"
	"github.com/phrazzld/flatmap-maker/internal/source/annotation"
	"github.com/phrazzld/flatmap-maker/internal/source/slides"
	"github.com/phrazzld/flatmap-maker/internal/source/svg"
)

// DefaultRegistry returns a registry with a parser for every source kind a
// manifest may declare.
func DefaultRegistry(logger *slog.Logger) *source.Registry {
	r := source.NewRegistry()
	r.Register(slides.NewParser(logger), domain.SourceKindSlides)
	r.Register(svg.NewParser(logger), domain.SourceKindBase, domain.SourceKindDetails)
	r.Register(annotation.NewParser(logger), domain.SourceKindImage)
	return r
}
