package domain

import "time"

// ProgressStatus is the signing status of a single recipient
type ProgressStatus string

const (
	ProgressStatusPending ProgressStatus = "pending"
	ProgressStatusSigned  ProgressStatus = "signed"
)

// SigningProgress records whether one recipient has acted on an instance.
// It only ever moves from pending to signed.
type SigningProgress struct {
	InstanceID  string         `json:"instance_id"`
	RecipientID string         `json:"recipient_id"`
	Rank        int            `json:"rank"`
	Status      ProgressStatus `json:"status"`
	SignedAt    *time.Time     `json:"signed_at,omitempty"`
}

// IsSigned reports whether the recipient has submitted
func (p *SigningProgress) IsSigned() bool {
	return p.Status == ProgressStatusSigned
}

// SigningPhase is the coarse state of the signing workflow
type SigningPhase string

const (
	// PhaseUnordered means any pending recipient may act
	PhaseUnordered SigningPhase = "unordered"
	// PhaseSequentialPending means only the recipient at ActiveRank may act
	PhaseSequentialPending SigningPhase = "sequential_pending"
	// PhaseComplete means every recipient has signed
	PhaseComplete SigningPhase = "complete"
)

// SigningState is computed from stored progress, never cached
type SigningState struct {
	Phase SigningPhase `json:"phase"`

	// ActiveRank is set only in PhaseSequentialPending
	ActiveRank int `json:"active_rank,omitempty"`
}

// IsComplete reports whether the workflow has finished
func (s SigningState) IsComplete() bool {
	return s.Phase == PhaseComplete
}

// SubmissionRequest carries a recipient's field values
type SubmissionRequest struct {
	RecipientID string            `json:"recipient_id"`
	Fields      []FieldValueInput `json:"fields"`
}

// FieldValueInput is a single submitted value
type FieldValueInput struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// Values converts the submitted field list to a map keyed by field ID.
// A later entry for the same ID wins.
func (r *SubmissionRequest) Values() map[string]string {
	values := make(map[string]string, len(r.Fields))
	for _, f := range r.Fields {
		values[f.ID] = f.Value
	}
	return values
}

// SubmissionResult describes the outcome of a submission
type SubmissionResult struct {
	InstanceID string       `json:"instance_id"`
	State      SigningState `json:"state"`
	Complete   bool         `json:"complete"`

	// AlreadySigned is true when the recipient resubmitted after signing
	AlreadySigned bool `json:"already_signed"`

	// NextActors are recipients who became able to act because of this submission
	NextActors []*Recipient `json:"next_actors,omitempty"`
}

// RecipientView is what a recipient sees when opening a signing link
type RecipientView struct {
	InstanceID    string         `json:"instance_id"`
	Name          string         `json:"name"`
	DocumentURL   string         `json:"document_url"`
	Status        InstanceStatus `json:"status"`
	Recipient     *Recipient     `json:"recipient"`
	Fields        []*Field       `json:"fields"`
	State         SigningState   `json:"state"`
	CanAct        bool           `json:"can_act"`
	AlreadySigned bool           `json:"already_signed"`
}
