package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecipient_Validate(t *testing.T) {
	tests := []struct {
		name      string
		recipient Recipient
		wantErr   error
	}{
		{"valid unranked", Recipient{ID: "r1", Name: "Ann", Email: "ann@example.com"}, nil},
		{"valid ranked", Recipient{ID: "r1", Name: "Ann", Email: "ann@example.com", Rank: IntPtr(1)}, nil},
		{"missing id", Recipient{Name: "Ann", Email: "ann@example.com"}, ErrInvalidInput},
		{"blank name", Recipient{ID: "r1", Name: "  ", Email: "ann@example.com"}, ErrInvalidInput},
		{"bad email", Recipient{ID: "r1", Name: "Ann", Email: "not-an-email"}, ErrInvalidInput},
		{"zero rank", Recipient{ID: "r1", Name: "Ann", Email: "ann@example.com", Rank: IntPtr(0)}, ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.recipient.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestRecipient_Rank(t *testing.T) {
	unranked := &Recipient{ID: "r1"}
	assert.False(t, unranked.HasRank())
	assert.Equal(t, 0, unranked.RankValue())

	ranked := &Recipient{ID: "r2", Rank: IntPtr(2)}
	assert.True(t, ranked.HasRank())
	assert.Equal(t, 2, ranked.RankValue())

	clone := ranked.Clone()
	*clone.Rank = 7
	assert.Equal(t, 2, ranked.RankValue(), "clone must not share rank pointer")
}
