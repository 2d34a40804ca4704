package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/flatmap-maker/internal/domain"
)

func TestRegistryDispatch(t *testing.T) {
	t.Parallel()

	var seen []domain.SourceKind
	svg := ParserFunc(func(_ context.Context, src domain.Source) ([]*domain.Layer, error) {
		seen = append(seen, src.Kind)
		return []*domain.Layer{domain.NewLayer(src.ID, src.ID, domain.LayerKindBase)}, nil
	})

	r := NewRegistry()
	r.Register(svg, domain.SourceKindBase, domain.SourceKindDetails)

	layers, err := r.Parse(context.Background(), domain.Source{ID: "body", Kind: domain.SourceKindBase})
	require.NoError(t, err)
	require.Len(t, layers, 1)
	assert.Equal(t, "body", layers[0].ID)

	_, err = r.Parse(context.Background(), domain.Source{ID: "heart", Kind: domain.SourceKindDetails})
	require.NoError(t, err)
	assert.Equal(t, []domain.SourceKind{domain.SourceKindBase, domain.SourceKindDetails}, seen)

	_, err = r.Parse(context.Background(), domain.Source{ID: "deck", Kind: domain.SourceKindSlides})
	assert.ErrorIs(t, err, ErrNoParser)
}

func TestRegistryRejectsNilParser(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { NewRegistry().Register(nil, domain.SourceKindBase) })
}

func TestProblems(t *testing.T) {
	t.Parallel()

	p := &Problems{SourceID: "deck"}
	assert.NoError(t, p.Err())

	cause := errors.New("bad number")
	p.Add("slide 2 shape 4", "invalid markup", cause)
	p.Addf("slide 3", "unsupported preset %q", "star5")
	assert.Equal(t, 2, p.Len())

	err := p.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSourceParse)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "slide 2 shape 4")
	assert.Contains(t, err.Error(), `unsupported preset "star5"`)

	var spe *domain.SourceParseError
	require.ErrorAs(t, err, &spe)
	assert.Equal(t, "deck", spe.SourceID)
}
