package figures

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/quarry/internal/models"
)

type mapSource map[Ref]models.FigurePayload

func (m mapSource) Lookup(passageID, figureID string) (models.FigurePayload, bool) {
	p, ok := m[Ref{PassageID: passageID, FigureID: figureID}]
	return p, ok
}

func newSource(refs ...Ref) mapSource {
	src := mapSource{}
	for _, ref := range refs {
		src[ref] = models.FigurePayload{
			PassageID:   ref.PassageID,
			FigureID:    ref.FigureID,
			MimeType:    "image/png",
			Data:        []byte("img-" + ref.PassageID + "-" + ref.FigureID),
			Description: "figure " + ref.FigureID,
		}
	}
	return src
}

func TestResolve_ExplicitRoundTrip(t *testing.T) {
	refs := []Ref{{"c1", "f1"}, {"c1", "f2"}, {"c7", "f1"}}
	src := newSource(refs...)

	var b strings.Builder
	b.WriteString("Revenue grew strongly.\n")
	for _, ref := range refs {
		b.WriteString(Placeholder(ref.PassageID, ref.FigureID))
		b.WriteString("\n")
	}
	b.WriteString("Margins held.")

	cleaned, figs := Resolve(src, b.String(), "")

	require.Len(t, figs, len(refs))
	for i, ref := range refs {
		assert.Equal(t, ref.PassageID, figs[i].PassageID)
		assert.Equal(t, ref.FigureID, figs[i].FigureID)
	}
	assert.NotContains(t, strings.ToLower(cleaned), "<figure")
	assert.Contains(t, cleaned, "Revenue grew strongly.")
	assert.Contains(t, cleaned, "Margins held.")
}

func TestResolve_CamelCaseAndDoubleQuotes(t *testing.T) {
	src := newSource(Ref{"c1", "f1"}, Ref{"c2", "f3"})
	text := `See <figure ChunkId="c1" FigureId="f1"> and <FIGURE chunk_id='c2' figure_id="f3"></figure> too`

	cleaned, figs := Resolve(src, text, "")

	require.Len(t, figs, 2)
	assert.Equal(t, "f1", figs[0].FigureID)
	assert.Equal(t, "c2", figs[1].PassageID)
	assert.Equal(t, "See  and  too", cleaned)
}

func TestResolve_MissingFiguresAreSkipped(t *testing.T) {
	src := newSource(Ref{"c1", "f1"})
	text := "A " + Placeholder("c9", "f9") + " B " + Placeholder("c1", "f1") + " C"

	cleaned, figs := Resolve(src, text, "")

	require.Len(t, figs, 1)
	assert.Equal(t, "c1", figs[0].PassageID)
	assert.Equal(t, "A  B  C", cleaned)
}

func TestResolve_ExplicitIgnoresTagsWithoutBothIDs(t *testing.T) {
	src := newSource(Ref{"c1", "f1"})
	cleaned, figs := Resolve(src, "x <figure figure_id='f1'> y", "")

	assert.Empty(t, figs)
	assert.Equal(t, "x  y", cleaned)
}

func TestResolve_ImplicitMode(t *testing.T) {
	src := newSource(Ref{"c3", "f1"}, Ref{"c3", "f2"}, Ref{"c3", "f4"})
	text := "Chart follows <figure id='f1'> then <figure FigureId=\"f2\"> and inline FigureId='f4'."

	cleaned, figs := Resolve(src, text, "c3")

	require.Len(t, figs, 3)
	assert.Equal(t, []string{"f1", "f2", "f4"}, []string{figs[0].FigureID, figs[1].FigureID, figs[2].FigureID})
	assert.NotContains(t, cleaned, "FigureId")
	assert.NotContains(t, cleaned, "<figure")
}

func TestResolve_ExplicitKeepsBareAttributes(t *testing.T) {
	cleaned, figs := Resolve(newSource(), "the FigureId='f1' field", "")
	assert.Empty(t, figs)
	assert.Equal(t, "the FigureId='f1' field", cleaned)
}

func TestResolve_DuplicatePlaceholdersResolveOnce(t *testing.T) {
	src := newSource(Ref{"c1", "f1"})
	text := Placeholder("c1", "f1") + " again " + Placeholder("c1", "f1")

	_, figs := Resolve(src, text, "")
	assert.Len(t, figs, 1)
}

func TestResolve_NoPlaceholders(t *testing.T) {
	cleaned, figs := Resolve(nil, "  plain answer  ", "")
	assert.Nil(t, figs)
	assert.Equal(t, "plain answer", cleaned)
}

func TestExtract_Order(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 5; i++ {
		b.WriteString(Placeholder(fmt.Sprintf("c%d", i), "f1"))
	}
	refs := Extract(b.String(), "")
	require.Len(t, refs, 5)
	for i, ref := range refs {
		assert.Equal(t, fmt.Sprintf("c%d", i), ref.PassageID)
	}
}

func TestStrip(t *testing.T) {
	assert.Equal(t, "a  b", Strip("a <figure chunk_id='x' figure_id='y'> b"))
}
