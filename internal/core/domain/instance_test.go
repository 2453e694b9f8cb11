package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testInstance() *Instance {
	return &Instance{
		ID:      "inst-1",
		OwnerID: "owner-1",
		Status:  InstanceStatusSent,
		Recipients: []*Recipient{
			{ID: "r1", Name: "Ann", Email: "ann@example.com"},
			{ID: "r2", Name: "Ben", Email: "ben@example.com"},
			{ID: "r3", Name: "Cat", Email: "cat@example.com"},
		},
		Fields: []*Field{
			{ID: "f1", RecipientID: "r1"},
			{ID: "f2", RecipientID: "r2"},
		},
	}
}

func TestInstance_Lookups(t *testing.T) {
	inst := testInstance()

	assert.Equal(t, "Ben", inst.Recipient("r2").Name)
	assert.Nil(t, inst.Recipient("nope"))
	assert.Equal(t, "r1", inst.Field("f1").RecipientID)
	assert.Nil(t, inst.Field("nope"))

	assert.True(t, inst.OwnsFields("r1"))
	assert.False(t, inst.OwnsFields("r3"))

	assert.True(t, inst.IsOwnedBy("owner-1"))
	assert.False(t, inst.IsOwnedBy("someone"))
}

func TestInstance_Status(t *testing.T) {
	tests := []struct {
		status    InstanceStatus
		sent      bool
		completed bool
	}{
		{InstanceStatusDraft, false, false},
		{InstanceStatusSent, true, false},
		{InstanceStatusCompleted, true, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			inst := &Instance{Status: tt.status}
			assert.Equal(t, tt.sent, inst.IsSent())
			assert.Equal(t, tt.completed, inst.IsCompleted())
		})
	}
}

func TestInstance_ToSummary(t *testing.T) {
	inst := testInstance()
	progress := []*SigningProgress{
		{RecipientID: "r1", Status: ProgressStatusSigned},
		{RecipientID: "r2", Status: ProgressStatusPending},
		{RecipientID: "r3", Status: ProgressStatusSigned},
	}

	summary := inst.ToSummary(progress)

	assert.Equal(t, "inst-1", summary.ID)
	assert.Equal(t, 3, summary.Recipients)
	assert.Equal(t, 2, summary.Signed)
}

func TestSubmissionRequest_Values(t *testing.T) {
	req := &SubmissionRequest{
		RecipientID: "r1",
		Fields: []FieldValueInput{
			{ID: "f1", Value: "first"},
			{ID: "f2", Value: "x"},
			{ID: "f1", Value: "second"},
		},
	}

	values := req.Values()

	assert.Len(t, values, 2)
	assert.Equal(t, "second", values["f1"])
}

func TestSigningLink(t *testing.T) {
	got := SigningLink("https://app.example.com", "inst-1", "r2")
	assert.Equal(t, "https://app.example.com/signing/inst-1?recipient=r2", got)
}
