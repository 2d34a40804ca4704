package source

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/phrazzld/flatmap-maker/internal/domain"
)

// ErrNoParser is returned when no parser is registered for a source kind.
var ErrNoParser = errors.New("no parser registered for source kind")

// Parser turns one source document into layers.
type Parser interface {
	Parse(ctx context.Context, src domain.Source) ([]*domain.Layer, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(ctx context.Context, src domain.Source) ([]*domain.Layer, error)

// Parse calls f.
func (f ParserFunc) Parse(ctx context.Context, src domain.Source) ([]*domain.Layer, error) {
	return f(ctx, src)
}

// Registry maps each source kind to exactly one parser.
type Registry struct {
	mu      sync.RWMutex
	parsers map[domain.SourceKind]Parser
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[domain.SourceKind]Parser)}
}

// Register binds a parser to one or more kinds, replacing earlier bindings.
func (r *Registry) Register(p Parser, kinds ...domain.SourceKind) {
	if p == nil {
		panic("source: nil parser")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range kinds {
		r.parsers[k] = p
	}
}

// Parser returns the parser for kind.
func (r *Registry) Parser(kind domain.SourceKind) (Parser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoParser, kind)
	}
	return p, nil
}

// Parse dispatches src to the parser for its kind.
func (r *Registry) Parse(ctx context.Context, src domain.Source) ([]*domain.Layer, error) {
	p, err := r.Parser(src.Kind)
	if err != nil {
		return nil, err
	}
	return p.Parse(ctx, src)
}
