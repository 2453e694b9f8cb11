package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/countersign/internal/core/domain"
	"github.com/custodia-labs/countersign/internal/core/ports/driven/mocks"
)

func TestDeriveMode(t *testing.T) {
	tests := []struct {
		name       string
		recipients []*domain.Recipient
		want       domain.SigningMode
		wantErr    bool
	}{
		{"no recipients", nil, "", true},
		{"single unranked", []*domain.Recipient{recipient("a", 0)}, domain.SigningModeUnordered, false},
		{"single ranked", []*domain.Recipient{recipient("a", 3)}, domain.SigningModeUnordered, false},
		{"all unranked", []*domain.Recipient{recipient("a", 0), recipient("b", 0)}, domain.SigningModeUnordered, false},
		{"contiguous ranks", []*domain.Recipient{recipient("a", 2), recipient("b", 1), recipient("c", 3)}, domain.SigningModeSequential, false},
		{"partial ranks", []*domain.Recipient{recipient("a", 1), recipient("b", 0)}, "", true},
		{"one ranked among three", []*domain.Recipient{recipient("a", 0), recipient("b", 1), recipient("c", 0)}, "", true},
		{"duplicate ranks", []*domain.Recipient{recipient("a", 1), recipient("b", 1)}, "", true},
		{"gap in ranks", []*domain.Recipient{recipient("a", 1), recipient("b", 3)}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeriveMode(tt.recipients)
			if tt.wantErr {
				assert.True(t, errors.Is(err, domain.ErrConfiguration), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveState(t *testing.T) {
	pending := func(id string, rank int) *domain.SigningProgress {
		return &domain.SigningProgress{RecipientID: id, Rank: rank, Status: domain.ProgressStatusPending}
	}
	signed := func(id string, rank int) *domain.SigningProgress {
		return &domain.SigningProgress{RecipientID: id, Rank: rank, Status: domain.ProgressStatusSigned}
	}

	tests := []struct {
		name     string
		mode     domain.SigningMode
		progress []*domain.SigningProgress
		want     domain.SigningState
	}{
		{"unordered pending", domain.SigningModeUnordered,
			[]*domain.SigningProgress{pending("a", 0), signed("b", 0)},
			domain.SigningState{Phase: domain.PhaseUnordered}},
		{"unordered all signed", domain.SigningModeUnordered,
			[]*domain.SigningProgress{signed("a", 0), signed("b", 0)},
			domain.SigningState{Phase: domain.PhaseComplete}},
		{"sequential first rank", domain.SigningModeSequential,
			[]*domain.SigningProgress{pending("a", 1), pending("b", 2)},
			domain.SigningState{Phase: domain.PhaseSequentialPending, ActiveRank: 1}},
		{"sequential second rank", domain.SigningModeSequential,
			[]*domain.SigningProgress{signed("a", 1), pending("b", 2), pending("c", 3)},
			domain.SigningState{Phase: domain.PhaseSequentialPending, ActiveRank: 2}},
		{"sequential skips pre-signed observer", domain.SigningModeSequential,
			[]*domain.SigningProgress{signed("a", 1), signed("b", 2), pending("c", 3)},
			domain.SigningState{Phase: domain.PhaseSequentialPending, ActiveRank: 3}},
		{"sequential complete", domain.SigningModeSequential,
			[]*domain.SigningProgress{signed("a", 1), signed("b", 2)},
			domain.SigningState{Phase: domain.PhaseComplete}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveState(tt.mode, tt.progress))
		})
	}
}

func TestSigningOrder_RankOrderProgression(t *testing.T) {
	for _, n := range []int{2, 3, 5} {
		t.Run(fmt.Sprintf("%d recipients", n), func(t *testing.T) {
			ctx := context.Background()
			store := mocks.NewMockInstanceStore()

			// Ranks are assigned in reverse so storage order differs from turn order
			var recipients []*domain.Recipient
			for i := 0; i < n; i++ {
				recipients = append(recipients, recipient(fmt.Sprintf("r%d", i), n-i))
			}
			inst := sentInstance(t, store, recipients, nil)
			order := NewSigningOrder(store)

			for rank := 1; rank <= n; rank++ {
				actors, err := order.CurrentActors(ctx, inst)
				require.NoError(t, err)
				require.Len(t, actors, 1)
				assert.Equal(t, rank, actors[0].RankValue())

				result, err := order.Advance(ctx, inst, actors[0].ID)
				require.NoError(t, err)
				if rank < n {
					assert.Equal(t, domain.SigningState{Phase: domain.PhaseSequentialPending, ActiveRank: rank + 1}, result.State)
					require.Len(t, result.NextActors, 1)
					assert.Equal(t, rank+1, result.NextActors[0].RankValue())
				} else {
					assert.True(t, result.Complete)
					assert.Empty(t, result.NextActors)
				}
			}

			actors, err := order.CurrentActors(ctx, inst)
			require.NoError(t, err)
			assert.Empty(t, actors)
		})
	}
}

func TestSigningOrder_SingleRecipientCompletesImmediately(t *testing.T) {
	for _, rank := range []int{0, 1, 4} {
		t.Run(fmt.Sprintf("rank %d", rank), func(t *testing.T) {
			ctx := context.Background()
			store := mocks.NewMockInstanceStore()
			inst := sentInstance(t, store, []*domain.Recipient{recipient("solo", rank)}, nil)
			order := NewSigningOrder(store)

			assert.Equal(t, domain.SigningModeUnordered, inst.Mode)
			result, err := order.Advance(ctx, inst, "solo")
			require.NoError(t, err)
			assert.True(t, result.Complete)
			assert.Equal(t, domain.PhaseComplete, result.State.Phase)
		})
	}
}

func TestSigningOrder_Advance_AlreadySigned(t *testing.T) {
	ctx := context.Background()
	store := mocks.NewMockInstanceStore()
	inst := twoStepLease(t, store)
	order := NewSigningOrder(store)

	_, err := order.Advance(ctx, inst, "r1")
	require.NoError(t, err)

	result, err := order.Advance(ctx, inst, "r1")
	assert.True(t, errors.Is(err, domain.ErrAlreadySigned))
	require.NotNil(t, result)
	assert.True(t, result.AlreadySigned)
	assert.Equal(t, domain.SigningState{Phase: domain.PhaseSequentialPending, ActiveRank: 2}, result.State)
	assert.Empty(t, result.NextActors, "nobody was newly enabled")
	assert.Equal(t, []string{"r2"}, ids(result.PendingActors))
}

func TestSigningOrder_Advance_NoProgressRecord(t *testing.T) {
	store := mocks.NewMockInstanceStore()
	inst := twoStepLease(t, store)

	_, err := NewSigningOrder(store).Advance(context.Background(), inst, "ghost")
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
}

func TestSigningOrder_CurrentActors_Draft(t *testing.T) {
	store := mocks.NewMockInstanceStore()
	inst := &domain.Instance{ID: "draft", Status: domain.InstanceStatusDraft}

	_, err := NewSigningOrder(store).CurrentActors(context.Background(), inst)
	assert.Equal(t, domain.ErrNotSent, err)
}

func TestInitialProgress_Observers(t *testing.T) {
	inst := &domain.Instance{
		ID:         "inst-1",
		Recipients: []*domain.Recipient{recipient("signer", 1), recipient("cc", 2)},
		Fields:     []*domain.Field{field("f1", "signer", domain.FieldTypeSignature, 1, 0, 0)},
	}

	mustSign := InitialProgress(inst, true)
	require.Len(t, mustSign, 2)
	assert.False(t, mustSign[1].IsSigned())

	optional := InitialProgress(inst, false)
	require.Len(t, optional, 2)
	assert.Equal(t, "cc", optional[1].RecipientID)
	assert.True(t, optional[1].IsSigned(), "observer should start signed")
	assert.False(t, optional[0].IsSigned())
}

func TestPendingActors(t *testing.T) {
	actors := []*domain.Recipient{recipient("a", 0), recipient("b", 0)}
	progress := []*domain.SigningProgress{
		{RecipientID: "a", Status: domain.ProgressStatusSigned},
		{RecipientID: "b", Status: domain.ProgressStatusPending},
	}
	assert.Equal(t, []string{"b"}, ids(PendingActors(actors, progress)))
}
