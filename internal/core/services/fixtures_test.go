package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/countersign/internal/core/domain"
	"github.com/custodia-labs/countersign/internal/core/ports/driven/mocks"
)

const (
	testOwnerID  = "owner-1"
	testDocument = "mem://lease.pdf"
)

var letterPage = domain.PageSize{Width: 612, Height: 792}

func recipient(id string, rank int) *domain.Recipient {
	r := &domain.Recipient{ID: id, Name: "Recipient " + id, Email: id + "@example.com"}
	if rank > 0 {
		r.Rank = domain.IntPtr(rank)
	}
	return r
}

func field(id, owner string, ft domain.FieldType, page int, x, y float64) *domain.Field {
	return &domain.Field{
		ID:          id,
		Type:        ft,
		Position:    domain.Position{Page: page, X: x, Y: y},
		Width:       120,
		Height:      24,
		RecipientID: owner,
	}
}

// sentInstance stores a draft instance and sends it the way the instance
// service does, returning the stored copy.
func sentInstance(t *testing.T, store *mocks.MockInstanceStore, recipients []*domain.Recipient, fields []*domain.Field) *domain.Instance {
	t.Helper()
	ctx := context.Background()

	inst := &domain.Instance{
		ID:          "inst-1",
		OwnerID:     testOwnerID,
		Name:        "Lease",
		DocumentURL: testDocument,
		Status:      domain.InstanceStatusDraft,
		Recipients:  recipients,
		Fields:      fields,
		CreatedAt:   time.Now(),
	}
	store.Put(inst)

	mode, err := DeriveMode(recipients)
	require.NoError(t, err)
	inst.Mode = mode
	require.NoError(t, store.MarkSent(ctx, inst.ID, mode, InitialProgress(inst, true)))

	got, err := store.Get(ctx, inst.ID)
	require.NoError(t, err)
	return got
}

// twoStepLease is the rank 1 / rank 2 instance: R1 owns signature f1 and
// R2 owns name f2, both on page 1.
func twoStepLease(t *testing.T, store *mocks.MockInstanceStore) *domain.Instance {
	return sentInstance(t, store,
		[]*domain.Recipient{recipient("r1", 1), recipient("r2", 2)},
		[]*domain.Field{
			field("f1", "r1", domain.FieldTypeSignature, 1, 100, 700),
			field("f2", "r2", domain.FieldTypeName, 1, 300, 700),
		},
	)
}

func submission(recipientID string, kv ...string) domain.SubmissionRequest {
	req := domain.SubmissionRequest{RecipientID: recipientID}
	for i := 0; i+1 < len(kv); i += 2 {
		req.Fields = append(req.Fields, domain.FieldValueInput{ID: kv[i], Value: kv[i+1]})
	}
	return req
}

func ids(recipients []*domain.Recipient) []string {
	out := make([]string, 0, len(recipients))
	for _, r := range recipients {
		out = append(out, r.ID)
	}
	return out
}
