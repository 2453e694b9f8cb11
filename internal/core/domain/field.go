package domain

import (
	"fmt"
	"time"
)

// FieldType identifies the kind of placeholder placed on a document page
type FieldType string

const (
	FieldTypeSignature  FieldType = "signature"
	FieldTypeInitial    FieldType = "initial"
	FieldTypeDateSigned FieldType = "date_signed"
	FieldTypeName       FieldType = "name"
	FieldTypeEmail      FieldType = "email"
	FieldTypeCompany    FieldType = "company"
	FieldTypeTitle      FieldType = "title"
	FieldTypeText       FieldType = "text"
	FieldTypeCheckbox   FieldType = "checkbox"
)

// AllFieldTypes returns every supported field type
func AllFieldTypes() []FieldType {
	return []FieldType{
		FieldTypeSignature,
		FieldTypeInitial,
		FieldTypeDateSigned,
		FieldTypeName,
		FieldTypeEmail,
		FieldTypeCompany,
		FieldTypeTitle,
		FieldTypeText,
		FieldTypeCheckbox,
	}
}

// IsValid checks if the field type is one of the supported types
func (t FieldType) IsValid() bool {
	switch t {
	case FieldTypeSignature, FieldTypeInitial, FieldTypeDateSigned,
		FieldTypeName, FieldTypeEmail, FieldTypeCompany,
		FieldTypeTitle, FieldTypeText, FieldTypeCheckbox:
		return true
	}
	return false
}

// IsMandatory reports whether a field of this type must carry a value
// before its owner may submit.
func (t FieldType) IsMandatory() bool {
	switch t {
	case FieldTypeSignature, FieldTypeName:
		return true
	}
	return false
}

// Position locates a field on a document. Page is 1-based; X and Y are
// measured in points from the top-left corner of the page.
type Position struct {
	Page int     `json:"page"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Field is a positioned placeholder assigned to exactly one recipient
type Field struct {
	// ID is the caller-supplied stable identifier, unique within the instance
	ID string `json:"id"`

	InstanceID string    `json:"instance_id"`
	Type       FieldType `json:"type"`
	Position   Position  `json:"position"`
	Width      float64   `json:"width"`
	Height     float64   `json:"height"`

	// Value is empty until the owning recipient submits
	Value string `json:"value"`

	// RecipientID is the owning recipient
	RecipientID string `json:"recipient_id"`

	UpdatedAt time.Time `json:"updated_at"`
}

// HasValue reports whether the field carries a submitted value
func (f *Field) HasValue() bool {
	return f.Value != ""
}

// Validate checks the field's shape. Ownership is checked against the
// instance's recipients separately.
func (f *Field) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("%w: field id is required", ErrInvalidInput)
	}
	if !f.Type.IsValid() {
		return fmt.Errorf("%w: field %s has unknown type %q", ErrInvalidInput, f.ID, f.Type)
	}
	if f.Position.Page < 1 {
		return fmt.Errorf("%w: field %s page must be >= 1", ErrInvalidInput, f.ID)
	}
	if f.Position.X < 0 || f.Position.Y < 0 {
		return fmt.Errorf("%w: field %s has negative coordinates", ErrInvalidInput, f.ID)
	}
	if f.Width < 0 || f.Height < 0 {
		return fmt.Errorf("%w: field %s has negative dimensions", ErrInvalidInput, f.ID)
	}
	if f.RecipientID == "" {
		return fmt.Errorf("%w: field %s has no recipient", ErrConfiguration, f.ID)
	}
	return nil
}

// Clone returns a copy of the field
func (f *Field) Clone() *Field {
	c := *f
	return &c
}
