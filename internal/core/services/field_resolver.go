package services

import (
	"sort"

	"github.com/custodia-labs/countersign/internal/core/domain"
)

// FieldResolver decides which fields a caller may see. It never reads or
// writes storage; everything it needs is on the instance.
type FieldResolver struct{}

// FieldsFor returns copies of the fields owned by recipientID, ordered by
// page then top-to-bottom and left-to-right.
func (FieldResolver) FieldsFor(instance *domain.Instance, recipientID string) ([]*domain.Field, error) {
	if instance.Recipient(recipientID) == nil {
		return nil, domain.ErrUnauthorizedRecipient
	}

	fields := make([]*domain.Field, 0)
	for _, f := range instance.Fields {
		if f.RecipientID == recipientID {
			fields = append(fields, f.Clone())
		}
	}
	sortFields(fields)
	return fields, nil
}

// AllFieldsWithValues returns copies of every field that carries a value.
// Only the composer may use this.
func (FieldResolver) AllFieldsWithValues(instance *domain.Instance) []*domain.Field {
	fields := make([]*domain.Field, 0, len(instance.Fields))
	for _, f := range instance.Fields {
		if f.HasValue() {
			fields = append(fields, f.Clone())
		}
	}
	sortFields(fields)
	return fields
}

func sortFields(fields []*domain.Field) {
	sort.SliceStable(fields, func(i, j int) bool {
		a, b := fields[i], fields[j]
		if a.Position.Page != b.Position.Page {
			return a.Position.Page < b.Position.Page
		}
		if a.Position.Y != b.Position.Y {
			return a.Position.Y < b.Position.Y
		}
		if a.Position.X != b.Position.X {
			return a.Position.X < b.Position.X
		}
		return a.ID < b.ID
	})
}
