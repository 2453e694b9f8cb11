package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/countersign/internal/core/domain"
	"github.com/custodia-labs/countersign/internal/core/ports/driven/mocks"
)

func filled(id, owner string, page int, x, y float64, value string) *domain.Field {
	f := field(id, owner, domain.FieldTypeText, page, x, y)
	f.Value = value
	return f
}

func TestPlan(t *testing.T) {
	pages := []domain.PageSize{letterPage, {Width: 842, Height: 595}}
	fields := []*domain.Field{
		filled("b", "r1", 2, 40, 95, "landscape"),
		filled("a", "r1", 1, 100, 92, "Alice"),
		field("blank", "r1", domain.FieldTypeText, 1, 0, 0),
	}

	stamps, err := Plan(pages, fields)
	require.NoError(t, err)
	require.Len(t, stamps, 2, "fields without values are skipped")

	assert.Equal(t, domain.TextStamp{
		FieldID: "a", Page: 1, X: 100, Y: 700, Text: "Alice",
		Font: "Helvetica", FontSize: 12, Color: "#000000",
	}, stamps[0])
	assert.Equal(t, 2, stamps[1].Page)
	assert.Equal(t, float64(500), stamps[1].Y)
}

func TestPlan_PageOutOfRange(t *testing.T) {
	for _, page := range []int{0, 2, -1} {
		_, err := Plan([]domain.PageSize{letterPage}, []*domain.Field{filled("f", "r", page, 0, 0, "v")})
		assert.True(t, errors.Is(err, domain.ErrPageOutOfRange), "page %d: got %v", page, err)
	}
}

func TestPlan_CheckboxRendersLiteralValue(t *testing.T) {
	f := field("cb", "r", domain.FieldTypeCheckbox, 1, 0, 0)
	f.Value = "true"

	stamps, err := Plan([]domain.PageSize{letterPage}, []*domain.Field{f})
	require.NoError(t, err)
	require.Len(t, stamps, 1)
	assert.Equal(t, "true", stamps[0].Text)
}

func TestCompose_Deterministic(t *testing.T) {
	renderer := mocks.NewMockRenderer(letterPage)
	composer := NewComposer(nil, renderer)
	base := []byte("%PDF-base")
	fields := []*domain.Field{
		filled("y", "r2", 1, 10, 10, "second"),
		filled("x", "r1", 1, 10, 5, "first"),
	}

	first, err := composer.Compose(context.Background(), base, fields)
	require.NoError(t, err)
	reversed := []*domain.Field{fields[1], fields[0]}
	second, err := composer.Compose(context.Background(), base, reversed)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first, second), "input order must not change output")
	assert.Equal(t, []byte("%PDF-base"), base, "base document must not be modified")
}

func TestCompose_NoValuesReturnsCopy(t *testing.T) {
	composer := NewComposer(nil, mocks.NewMockRenderer(letterPage))
	base := []byte("%PDF-base")

	out, err := composer.Compose(context.Background(), base, nil)
	require.NoError(t, err)
	assert.Equal(t, base, out)

	out[0] = 'X'
	assert.Equal(t, byte('%'), base[0])
}

func TestComposeInstance_ExcludesUnsignedRecipients(t *testing.T) {
	ctx := context.Background()
	source := mocks.NewMockDocumentSource()
	source.Put(testDocument, []byte("%PDF"))
	renderer := mocks.NewMockRenderer(letterPage)
	composer := NewComposer(source, renderer)

	inst := &domain.Instance{
		ID:          "inst",
		DocumentURL: testDocument,
		Recipients:  []*domain.Recipient{recipient("r1", 1), recipient("r2", 2)},
		Fields: []*domain.Field{
			filled("f1", "r1", 1, 10, 10, "Alice"),
			filled("f2", "r2", 1, 10, 40, "draft value"),
		},
	}
	progress := []*domain.SigningProgress{
		{RecipientID: "r1", Status: domain.ProgressStatusSigned},
		{RecipientID: "r2", Status: domain.ProgressStatusPending},
	}

	_, err := composer.ComposeInstance(ctx, inst, progress)
	require.NoError(t, err)

	stamps := renderer.LastStamps()
	require.Len(t, stamps, 1)
	assert.Equal(t, "f1", stamps[0].FieldID)
}

func TestComposeForRecipient(t *testing.T) {
	ctx := context.Background()
	source := mocks.NewMockDocumentSource()
	source.Put(testDocument, []byte("%PDF"))
	renderer := mocks.NewMockRenderer(letterPage)
	composer := NewComposer(source, renderer)

	inst := &domain.Instance{
		DocumentURL: testDocument,
		Recipients:  []*domain.Recipient{recipient("r1", 0), recipient("r2", 0)},
		Fields: []*domain.Field{
			filled("f1", "r1", 1, 10, 10, "Alice"),
			filled("f2", "r2", 1, 10, 40, "Bob"),
		},
	}

	_, err := composer.ComposeForRecipient(ctx, inst, "r2")
	require.NoError(t, err)
	stamps := renderer.LastStamps()
	require.Len(t, stamps, 1)
	assert.Equal(t, "Bob", stamps[0].Text)

	_, err = composer.ComposeForRecipient(ctx, inst, "r9")
	assert.Equal(t, domain.ErrUnauthorizedRecipient, err)
}

func TestComposeInstance_MissingDocument(t *testing.T) {
	composer := NewComposer(mocks.NewMockDocumentSource(), mocks.NewMockRenderer(letterPage))
	inst := &domain.Instance{DocumentURL: "mem://missing.pdf"}

	_, err := composer.ComposeInstance(context.Background(), inst, nil)
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
}
