package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "marketplace/pkg/domain-errors"
)

func TestParseIDInvariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseListingID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseOrderID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		parsed, err := ParseProductID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, ProductID(valid), parsed)
	})
}

func TestIsNil(t *testing.T) {
	assert.True(t, HistoryID(uuid.Nil).IsNil())
	assert.False(t, NewHistoryID().IsNil())
}

// FuzzParseUserID checks that parsing never panics and that every accepted
// value round-trips through String.
func FuzzParseUserID(f *testing.F) {
	f.Add("")
	f.Add(uuid.New().String())
	f.Add(uuid.Nil.String())
	f.Add("not-a-uuid")
	f.Add("'; DROP TABLE users;--")

	f.Fuzz(func(t *testing.T, input string) {
		parsed, err := ParseUserID(input)
		if err != nil {
			return
		}
		roundTrip, err := ParseUserID(parsed.String())
		if err != nil {
			t.Errorf("accepted ID failed round-trip: %v", err)
		}
		if roundTrip != parsed {
			t.Error("round-trip changed ID value")
		}
	})
}
