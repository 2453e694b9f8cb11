package pdf

import (
	"bytes"
	"compress/zlib"
	"context"
	"io"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/countersign/internal/adapters/driven/pdf/pdftest"
	"github.com/custodia-labs/countersign/internal/core/domain"
	"github.com/custodia-labs/countersign/internal/core/services"
)

var (
	letter   = pdftest.Letter
	a4       = pdftest.A4
	blankPDF = pdftest.Blank
)

func stamp(id string, page int, x, y float64, text string) domain.TextStamp {
	return domain.TextStamp{
		FieldID:  id,
		Page:     page,
		X:        x,
		Y:        y,
		Text:     text,
		Font:     domain.StampFont,
		FontSize: domain.StampFontSize,
		Color:    domain.StampColor,
	}
}

func TestRenderer_PageSizes(t *testing.T) {
	pages, err := NewRenderer().PageSizes(blankPDF(letter, a4))
	require.NoError(t, err)
	assert.Equal(t, []domain.PageSize{letter, a4}, pages)
}

func TestRenderer_PageSizesInvalid(t *testing.T) {
	_, err := NewRenderer().PageSizes([]byte("not a pdf"))
	assert.Error(t, err)
}

func TestRenderer_Render(t *testing.T) {
	r := NewRenderer()
	base := blankPDF(letter, a4)
	original := append([]byte(nil), base...)

	out, err := r.Render(base, []domain.TextStamp{
		stamp("f1", 1, 100, 700, "Jane Doe"),
		stamp("f2", 1, 300, 700, "ACME Corp"),
		stamp("f3", 2, 72, 72, "X"),
	})
	require.NoError(t, err)

	assert.Equal(t, original, base, "base document must not be modified")
	assert.NotEqual(t, base, out)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	pages, err := r.PageSizes(out)
	require.NoError(t, err)
	assert.Equal(t, []domain.PageSize{letter, a4}, pages)
}

func TestRenderer_RenderNoStamps(t *testing.T) {
	base := blankPDF(letter)

	out, err := NewRenderer().Render(base, nil)
	require.NoError(t, err)
	assert.Equal(t, base, out)

	out[0] = 'x'
	assert.Equal(t, byte('%'), base[0], "result must be a copy")
}

func TestRenderer_RenderPageOutOfRange(t *testing.T) {
	_, err := NewRenderer().Render(blankPDF(letter), []domain.TextStamp{stamp("f1", 2, 10, 10, "late")})
	assert.ErrorIs(t, err, domain.ErrPageOutOfRange)
}

func TestDescribe(t *testing.T) {
	got := describe(domain.TextStamp{X: 100, Y: 92.5})
	assert.Equal(t,
		"fontname:Helvetica, points:12, position:bl, offset:100.00 92.50, scalefactor:1 abs, rotation:0, opacity:1, fillcolor:#000000",
		got)
}

var (
	streamPattern    = regexp.MustCompile(`(?s)>>\s*stream\r?\n(.*?)\r?\n?endstream`)
	placementPattern = regexp.MustCompile(`q (\S+) (\S+) (\S+) (\S+) (\S+) (\S+) cm /\S+ gs /\S+ Do Q`)
)

// decodedStreams returns every stream of doc, inflated where it is
// flate-encoded, joined by newlines.
func decodedStreams(t *testing.T, doc []byte) string {
	t.Helper()
	var out bytes.Buffer
	for _, m := range streamPattern.FindAllSubmatch(doc, -1) {
		raw := m[1]
		if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			if data, err := io.ReadAll(zr); len(data) > 0 || err == nil {
				raw = data
			}
		}
		out.Write(raw)
		out.WriteByte('\n')
	}
	return out.String()
}

type placement struct{ x, y float64 }

// placements returns the translation of every stamp drawn into doc
func placements(t *testing.T, doc []byte) []placement {
	t.Helper()
	var out []placement
	for _, m := range placementPattern.FindAllStringSubmatch(decodedStreams(t, doc), -1) {
		x, err := strconv.ParseFloat(m[5], 64)
		require.NoError(t, err)
		y, err := strconv.ParseFloat(m[6], 64)
		require.NoError(t, err)
		out = append(out, placement{x: x, y: y})
	}
	return out
}

func TestRenderer_RenderDrawsTextAtPosition(t *testing.T) {
	out, err := NewRenderer().Render(blankPDF(letter), []domain.TextStamp{
		stamp("f1", 1, 100, 92, "Jane Doe"),
	})
	require.NoError(t, err)

	content := decodedStreams(t, out)
	assert.Contains(t, content, "(Jane Doe) Tj")

	got := placements(t, out)
	require.Len(t, got, 1)
	assert.InDelta(t, 100, got[0].x, 0.01)
	assert.InDelta(t, 92, got[0].y, 0.01)
}

func TestRenderer_RenderKeepsPercentLiteral(t *testing.T) {
	values := []string{
		"Alice 50%p done",
		"%P of %t by %v",
		"100%",
		"%%p",
	}
	for _, value := range values {
		t.Run(value, func(t *testing.T) {
			out, err := NewRenderer().Render(blankPDF(letter, a4), []domain.TextStamp{stamp("f1", 2, 72, 72, value)})
			require.NoError(t, err)
			assert.Contains(t, decodedStreams(t, out), "("+value+") Tj")
		})
	}
}

func TestRenderer_ComposedFieldFlipsY(t *testing.T) {
	composer := services.NewComposer(nil, NewRenderer())
	fields := []*domain.Field{{
		ID:          "sig",
		RecipientID: "r1",
		Type:        domain.FieldTypeSignature,
		Position:    domain.Position{Page: 1, X: 100, Y: 700},
		Value:       "Alice",
	}}

	out, err := composer.Compose(context.Background(), blankPDF(letter), fields)
	require.NoError(t, err)

	assert.Contains(t, decodedStreams(t, out), "(Alice) Tj")
	got := placements(t, out)
	require.Len(t, got, 1)
	assert.InDelta(t, 100, got[0].x, 0.01)
	assert.InDelta(t, letter.Height-700, got[0].y, 0.01)
}
