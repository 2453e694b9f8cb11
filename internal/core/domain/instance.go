package domain

import "time"

// SigningMode decides how recipients take turns. It is derived once when the
// instance is sent and never changes afterwards.
type SigningMode string

const (
	// SigningModeUnordered lets every recipient act in any order
	SigningModeUnordered SigningMode = "unordered"
	// SigningModeSequential requires recipients to act in ascending rank
	SigningModeSequential SigningMode = "sequential"
)

// InstanceStatus is the lifecycle status of an instance
type InstanceStatus string

const (
	InstanceStatusDraft     InstanceStatus = "draft"
	InstanceStatusSent      InstanceStatus = "sent"
	InstanceStatusCompleted InstanceStatus = "completed"
)

// Instance is a document template bound to its recipients and fields
type Instance struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`

	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// DocumentURL locates the base PDF. The bytes are never modified.
	DocumentURL string `json:"document_url"`

	EmailSubject string `json:"email_subject,omitempty"`
	EmailMessage string `json:"email_message,omitempty"`

	// Mode is empty until the instance is sent
	Mode   SigningMode    `json:"mode,omitempty"`
	Status InstanceStatus `json:"status"`

	Recipients []*Recipient `json:"recipients"`
	Fields     []*Field     `json:"fields"`

	Favorite bool `json:"favorite"`
	Deleted  bool `json:"deleted"`

	SentAt      *time.Time `json:"sent_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Recipient returns the recipient with the given ID, or nil
func (i *Instance) Recipient(id string) *Recipient {
	for _, r := range i.Recipients {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// Field returns the field with the given ID, or nil
func (i *Instance) Field(id string) *Field {
	for _, f := range i.Fields {
		if f.ID == id {
			return f
		}
	}
	return nil
}

// IsSent reports whether the instance has left the draft state
func (i *Instance) IsSent() bool {
	return i.Status == InstanceStatusSent || i.Status == InstanceStatusCompleted
}

// IsCompleted reports whether every required recipient has signed
func (i *Instance) IsCompleted() bool {
	return i.Status == InstanceStatusCompleted
}

// IsOwnedBy checks whether the user owns the instance
func (i *Instance) IsOwnedBy(userID string) bool {
	return i.OwnerID == userID
}

// OwnsFields reports whether the recipient owns at least one field
func (i *Instance) OwnsFields(recipientID string) bool {
	for _, f := range i.Fields {
		if f.RecipientID == recipientID {
			return true
		}
	}
	return false
}

// CreateInstanceRequest is the input for creating an instance
type CreateInstanceRequest struct {
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	DocumentURL  string       `json:"document_url"`
	EmailSubject string       `json:"email_subject,omitempty"`
	EmailMessage string       `json:"email_message,omitempty"`
	Recipients   []*Recipient `json:"recipients"`
	Fields       []*Field     `json:"fields,omitempty"`
}

// UpdateFieldsRequest replaces the placed fields of a draft instance
type UpdateFieldsRequest struct {
	Fields []*Field `json:"fields"`
}

// InstanceSummary is the list view of an instance, including signing status
type InstanceSummary struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Status      InstanceStatus `json:"status"`
	Mode        SigningMode    `json:"mode,omitempty"`
	Favorite    bool           `json:"favorite"`
	Recipients  int            `json:"recipients"`
	Signed      int            `json:"signed"`
	SentAt      *time.Time     `json:"sent_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ToSummary converts an Instance to its list view
func (i *Instance) ToSummary(progress []*SigningProgress) *InstanceSummary {
	signed := 0
	for _, p := range progress {
		if p.IsSigned() {
			signed++
		}
	}
	return &InstanceSummary{
		ID:          i.ID,
		Name:        i.Name,
		Status:      i.Status,
		Mode:        i.Mode,
		Favorite:    i.Favorite,
		Recipients:  len(i.Recipients),
		Signed:      signed,
		SentAt:      i.SentAt,
		CompletedAt: i.CompletedAt,
		UpdatedAt:   i.UpdatedAt,
	}
}
