// Package pdf draws field values onto PDF documents with pdfcpu.
package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/custodia-labs/countersign/internal/core/domain"
	"github.com/custodia-labs/countersign/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentRenderer = (*Renderer)(nil)

var disableConfigDir sync.Once

// Renderer implements DocumentRenderer. Every stamp becomes an opaque,
// unrotated text stamp anchored at its bottom-left corner.
type Renderer struct{}

// NewRenderer creates a Renderer. pdfcpu never touches the user config
// directory.
func NewRenderer() *Renderer {
	disableConfigDir.Do(api.DisableConfigDir)
	return &Renderer{}
}

// PageSizes returns the media box of every page in page order
func (r *Renderer) PageSizes(doc []byte) ([]domain.PageSize, error) {
	dims, err := api.PageDims(bytes.NewReader(doc), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	pages := make([]domain.PageSize, len(dims))
	for i, d := range dims {
		pages[i] = domain.PageSize{Width: d.Width, Height: d.Height}
	}
	return pages, nil
}

// Render stamps every text onto its page and returns the new document
func (r *Renderer) Render(doc []byte, stamps []domain.TextStamp) ([]byte, error) {
	if len(stamps) == 0 {
		return append([]byte(nil), doc...), nil
	}

	pages, err := r.PageSizes(doc)
	if err != nil {
		return nil, err
	}

	byPage := make(map[int][]*model.Watermark)
	for _, s := range stamps {
		if s.Page < 1 || s.Page > len(pages) {
			return nil, fmt.Errorf("stamp %s on page %d of %d: %w", s.FieldID, s.Page, len(pages), domain.ErrPageOutOfRange)
		}
		wm, err := api.TextWatermark(literal(s.Text), describe(s), true, false, types.POINTS)
		if err != nil {
			return nil, fmt.Errorf("stamp %s: %w", s.FieldID, err)
		}
		byPage[s.Page] = append(byPage[s.Page], wm)
	}

	var out bytes.Buffer
	if err := api.AddWatermarksSliceMap(bytes.NewReader(doc), &out, byPage, stampConfig()); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return out.Bytes(), nil
}

// pdfcpu expands %p, %P, %t and %v in stamp text and drops any other '%'.
// literal turns every '%' into "%t", and stampConfig makes "%t" expand to a
// single '%', so values are drawn exactly as submitted.
func literal(text string) string {
	return strings.ReplaceAll(text, "%", "%t")
}

func stampConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.TimestampFormat = "%"
	return conf
}

// describe builds the pdfcpu stamp description for s
func describe(s domain.TextStamp) string {
	font := s.Font
	if font == "" {
		font = domain.StampFont
	}
	size := s.FontSize
	if size == 0 {
		size = domain.StampFontSize
	}
	color := s.Color
	if color == "" {
		color = domain.StampColor
	}
	return fmt.Sprintf(
		"fontname:%s, points:%d, position:bl, offset:%.2f %.2f, scalefactor:1 abs, rotation:0, opacity:1, fillcolor:%s",
		font, size, s.X, s.Y, color,
	)
}
