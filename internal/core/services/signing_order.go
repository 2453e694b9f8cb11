package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/custodia-labs/countersign/internal/core/domain"
	"github.com/custodia-labs/countersign/internal/core/ports/driven"
)

// SigningOrder is the signing state machine. It holds no state of its own:
// every decision is made from the progress records in the store.
type SigningOrder struct {
	store driven.InstanceStore
}

// NewSigningOrder creates a SigningOrder backed by store
func NewSigningOrder(store driven.InstanceStore) *SigningOrder {
	return &SigningOrder{store: store}
}

// AdvanceResult is the state after a recipient was marked signed
type AdvanceResult struct {
	State domain.SigningState

	// Complete is true when this advance finished the workflow
	Complete bool

	// AlreadySigned is true when the recipient had signed before
	AlreadySigned bool

	// NextActors are recipients who may act now and could not before
	NextActors []*domain.Recipient

	// PendingActors are the recipients allowed to act in State who have
	// not signed yet
	PendingActors []*domain.Recipient
}

// DeriveMode decides the signing mode from recipient ranks.
//
// A lone recipient is always unordered. With two or more recipients either
// none carries a rank (unordered) or all do, with ranks forming exactly 1..N
// (sequential). Anything else is a configuration error.
func DeriveMode(recipients []*domain.Recipient) (domain.SigningMode, error) {
	if len(recipients) == 0 {
		return "", fmt.Errorf("%w: instance has no recipients", domain.ErrConfiguration)
	}
	if len(recipients) == 1 {
		return domain.SigningModeUnordered, nil
	}

	ranked := 0
	ranks := mapset.NewThreadUnsafeSet[int]()
	for _, r := range recipients {
		if !r.HasRank() {
			continue
		}
		ranked++
		if !ranks.Add(*r.Rank) {
			return "", fmt.Errorf("%w: rank %d is used more than once", domain.ErrConfiguration, *r.Rank)
		}
	}

	switch ranked {
	case 0:
		return domain.SigningModeUnordered, nil
	case len(recipients):
	default:
		return "", fmt.Errorf("%w: %d of %d recipients have a rank; rank all or none",
			domain.ErrConfiguration, ranked, len(recipients))
	}

	for rank := 1; rank <= len(recipients); rank++ {
		if !ranks.Contains(rank) {
			return "", fmt.Errorf("%w: ranks must be 1..%d without gaps, missing %d",
				domain.ErrConfiguration, len(recipients), rank)
		}
	}
	return domain.SigningModeSequential, nil
}

// ResolveState computes the workflow state from stored progress
func ResolveState(mode domain.SigningMode, progress []*domain.SigningProgress) domain.SigningState {
	pending := make([]*domain.SigningProgress, 0, len(progress))
	for _, p := range progress {
		if !p.IsSigned() {
			pending = append(pending, p)
		}
	}

	if len(progress) > 0 && len(pending) == 0 {
		return domain.SigningState{Phase: domain.PhaseComplete}
	}

	if mode != domain.SigningModeSequential {
		return domain.SigningState{Phase: domain.PhaseUnordered}
	}

	active := 0
	for _, p := range pending {
		if active == 0 || p.Rank < active {
			active = p.Rank
		}
	}
	return domain.SigningState{Phase: domain.PhaseSequentialPending, ActiveRank: active}
}

// ActorsFor returns the recipients allowed to act in state
func ActorsFor(instance *domain.Instance, state domain.SigningState) []*domain.Recipient {
	switch state.Phase {
	case domain.PhaseUnordered:
		return append([]*domain.Recipient(nil), instance.Recipients...)
	case domain.PhaseSequentialPending:
		for _, r := range instance.Recipients {
			if r.RankValue() == state.ActiveRank {
				return []*domain.Recipient{r}
			}
		}
	}
	return nil
}

// State loads progress and resolves the current state of an instance
func (o *SigningOrder) State(ctx context.Context, instance *domain.Instance) (domain.SigningState, []*domain.SigningProgress, error) {
	if !instance.IsSent() {
		return domain.SigningState{}, nil, domain.ErrNotSent
	}
	progress, err := o.store.ListProgress(ctx, instance.ID)
	if err != nil {
		return domain.SigningState{}, nil, fmt.Errorf("list progress: %w", err)
	}
	return ResolveState(instance.Mode, progress), progress, nil
}

// CurrentActors returns the recipients permitted to submit right now
func (o *SigningOrder) CurrentActors(ctx context.Context, instance *domain.Instance) ([]*domain.Recipient, error) {
	state, _, err := o.State(ctx, instance)
	if err != nil {
		return nil, err
	}
	return ActorsFor(instance, state), nil
}

// Advance marks the recipient signed and returns the new state.
//
// If the recipient had already signed the returned error wraps
// ErrAlreadySigned and the result still carries the current state.
func (o *SigningOrder) Advance(ctx context.Context, instance *domain.Instance, recipientID string) (*AdvanceResult, error) {
	markErr := o.store.MarkSigned(ctx, instance.ID, recipientID)
	alreadySigned := errors.Is(markErr, domain.ErrAlreadySigned)
	if markErr != nil && !alreadySigned {
		return nil, fmt.Errorf("mark recipient %s signed: %w", recipientID, markErr)
	}

	progress, err := o.store.ListProgress(ctx, instance.ID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}

	state := ResolveState(instance.Mode, progress)
	result := &AdvanceResult{
		State:         state,
		Complete:      state.IsComplete(),
		AlreadySigned: alreadySigned,
		PendingActors: PendingActors(ActorsFor(instance, state), progress),
	}
	if alreadySigned {
		return result, fmt.Errorf("recipient %s: %w", recipientID, domain.ErrAlreadySigned)
	}

	if state.Phase == domain.PhaseSequentialPending {
		result.NextActors = ActorsFor(instance, state)
	}
	return result, nil
}

// InitialProgress builds the progress records created when an instance is
// sent. With observersMustSign unset, recipients that own no fields start
// out signed.
func InitialProgress(instance *domain.Instance, observersMustSign bool) []*domain.SigningProgress {
	records := make([]*domain.SigningProgress, 0, len(instance.Recipients))
	for _, r := range instance.Recipients {
		p := &domain.SigningProgress{
			InstanceID:  instance.ID,
			RecipientID: r.ID,
			Rank:        r.RankValue(),
			Status:      domain.ProgressStatusPending,
		}
		if !observersMustSign && !instance.OwnsFields(r.ID) {
			p.Status = domain.ProgressStatusSigned
		}
		records = append(records, p)
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Rank < records[j].Rank })
	return records
}

// PendingActors filters actors down to those whose progress is still pending
func PendingActors(actors []*domain.Recipient, progress []*domain.SigningProgress) []*domain.Recipient {
	signed := mapset.NewThreadUnsafeSet[string]()
	for _, p := range progress {
		if p.IsSigned() {
			signed.Add(p.RecipientID)
		}
	}
	result := make([]*domain.Recipient, 0, len(actors))
	for _, r := range actors {
		if !signed.Contains(r.ID) {
			result = append(result, r)
		}
	}
	return result
}
