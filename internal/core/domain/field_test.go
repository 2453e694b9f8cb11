package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldType_IsValid(t *testing.T) {
	for _, ft := range AllFieldTypes() {
		assert.True(t, ft.IsValid(), "type %s should be valid", ft)
	}
	assert.False(t, FieldType("stamp").IsValid())
	assert.False(t, FieldType("").IsValid())
}

func TestFieldType_IsMandatory(t *testing.T) {
	mandatory := map[FieldType]bool{
		FieldTypeSignature: true,
		FieldTypeName:      true,
	}
	for _, ft := range AllFieldTypes() {
		assert.Equal(t, mandatory[ft], ft.IsMandatory(), "type %s", ft)
	}
}

func TestField_Validate(t *testing.T) {
	valid := func() *Field {
		return &Field{
			ID:          "f1",
			Type:        FieldTypeSignature,
			Position:    Position{Page: 1, X: 10, Y: 20},
			Width:       100,
			Height:      20,
			RecipientID: "r1",
		}
	}

	tests := []struct {
		name    string
		mutate  func(f *Field)
		wantErr error
	}{
		{"valid", func(f *Field) {}, nil},
		{"missing id", func(f *Field) { f.ID = "" }, ErrInvalidInput},
		{"unknown type", func(f *Field) { f.Type = "stamp" }, ErrInvalidInput},
		{"page zero", func(f *Field) { f.Position.Page = 0 }, ErrInvalidInput},
		{"negative x", func(f *Field) { f.Position.X = -1 }, ErrInvalidInput},
		{"negative height", func(f *Field) { f.Height = -5 }, ErrInvalidInput},
		{"no owner", func(f *Field) { f.RecipientID = "" }, ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid()
			tt.mutate(f)
			err := f.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestField_Clone(t *testing.T) {
	f := &Field{ID: "f1", Value: "Alice"}
	c := f.Clone()
	c.Value = "Bob"
	assert.Equal(t, "Alice", f.Value)
	assert.True(t, f.HasValue())
	assert.False(t, (&Field{}).HasValue())
}
