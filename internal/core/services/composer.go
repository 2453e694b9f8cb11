package services

import (
	"context"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/custodia-labs/countersign/internal/core/domain"
	"github.com/custodia-labs/countersign/internal/core/ports/driven"
	"github.com/custodia-labs/countersign/internal/core/ports/driving"
)

var _ driving.ComposerService = (*Composer)(nil)

// Composer overlays field values onto the base document. The base bytes are
// never modified; every call produces a new document.
type Composer struct {
	source   driven.DocumentSource
	renderer driven.DocumentRenderer
	resolver FieldResolver
}

// NewComposer creates a Composer. source may be nil when only Compose is used.
func NewComposer(source driven.DocumentSource, renderer driven.DocumentRenderer) *Composer {
	return &Composer{source: source, renderer: renderer}
}

// Plan turns fields into text stamps for a document with the given pages.
//
// Fields without a value are skipped. Page numbers are 1-based and Y is
// flipped from top-left to the document's bottom-left origin. Stamps are
// ordered by page then position, so identical inputs yield identical output.
func Plan(pages []domain.PageSize, fields []*domain.Field) ([]domain.TextStamp, error) {
	sorted := make([]*domain.Field, 0, len(fields))
	for _, f := range fields {
		if f.HasValue() {
			sorted = append(sorted, f)
		}
	}
	sortFields(sorted)

	stamps := make([]domain.TextStamp, 0, len(sorted))
	for _, f := range sorted {
		if f.Position.Page < 1 || f.Position.Page > len(pages) {
			return nil, fmt.Errorf("field %s on page %d of %d: %w",
				f.ID, f.Position.Page, len(pages), domain.ErrPageOutOfRange)
		}
		page := pages[f.Position.Page-1]
		stamps = append(stamps, domain.TextStamp{
			FieldID:  f.ID,
			Page:     f.Position.Page,
			X:        f.Position.X,
			Y:        page.Height - f.Position.Y,
			Text:     stampText(f),
			Font:     domain.StampFont,
			FontSize: domain.StampFontSize,
			Color:    domain.StampColor,
		})
	}
	return stamps, nil
}

// stampText is the literal text drawn for a field. Every type renders its
// value as typed; checkbox values are not mapped to a glyph.
func stampText(f *domain.Field) string {
	switch f.Type {
	case domain.FieldTypeSignature, domain.FieldTypeInitial, domain.FieldTypeName,
		domain.FieldTypeEmail, domain.FieldTypeCompany, domain.FieldTypeTitle,
		domain.FieldTypeText, domain.FieldTypeDateSigned, domain.FieldTypeCheckbox:
		return f.Value
	}
	return ""
}

// CheckPages verifies every field lands on a page the document has
func CheckPages(pages []domain.PageSize, fields []*domain.Field) error {
	for _, f := range fields {
		if f.Position.Page < 1 || f.Position.Page > len(pages) {
			return fmt.Errorf("field %s on page %d of %d: %w",
				f.ID, f.Position.Page, len(pages), domain.ErrPageOutOfRange)
		}
	}
	return nil
}

// Compose draws the values of fields onto base
func (c *Composer) Compose(ctx context.Context, base []byte, fields []*domain.Field) ([]byte, error) {
	pages, err := c.renderer.PageSizes(base)
	if err != nil {
		return nil, fmt.Errorf("read page sizes: %w", err)
	}
	stamps, err := Plan(pages, fields)
	if err != nil {
		return nil, err
	}
	if len(stamps) == 0 {
		return append([]byte(nil), base...), nil
	}
	out, err := c.renderer.Render(base, stamps)
	if err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}
	return out, nil
}

// ComposeInstance renders the values of every recipient whose progress is
// signed. Values typed by recipients who have not signed are left out.
func (c *Composer) ComposeInstance(ctx context.Context, instance *domain.Instance, progress []*domain.SigningProgress) ([]byte, error) {
	signed := mapset.NewThreadUnsafeSet[string]()
	for _, p := range progress {
		if p.IsSigned() {
			signed.Add(p.RecipientID)
		}
	}

	var fields []*domain.Field
	for _, f := range c.resolver.AllFieldsWithValues(instance) {
		if signed.Contains(f.RecipientID) {
			fields = append(fields, f)
		}
	}
	return c.composeFromSource(ctx, instance, fields)
}

// ComposeForRecipient renders only recipientID's own values
func (c *Composer) ComposeForRecipient(ctx context.Context, instance *domain.Instance, recipientID string) ([]byte, error) {
	fields, err := c.resolver.FieldsFor(instance, recipientID)
	if err != nil {
		return nil, err
	}
	return c.composeFromSource(ctx, instance, fields)
}

func (c *Composer) composeFromSource(ctx context.Context, instance *domain.Instance, fields []*domain.Field) ([]byte, error) {
	if c.source == nil {
		return nil, fmt.Errorf("no document source configured")
	}
	base, err := c.source.Fetch(ctx, instance.DocumentURL)
	if err != nil {
		return nil, fmt.Errorf("fetch base document: %w", err)
	}
	return c.Compose(ctx, base, fields)
}

// PageSizes fetches the instance document and returns its page sizes
func (c *Composer) PageSizes(ctx context.Context, instance *domain.Instance) ([]domain.PageSize, error) {
	if c.source == nil {
		return nil, fmt.Errorf("no document source configured")
	}
	base, err := c.source.Fetch(ctx, instance.DocumentURL)
	if err != nil {
		return nil, fmt.Errorf("fetch base document: %w", err)
	}
	return c.renderer.PageSizes(base)
}
