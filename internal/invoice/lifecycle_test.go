package invoice

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	all := []Status{StatusPending, StatusApproved, StatusRejected, StatusPaid, StatusUnpaid}

	legal := map[[2]Status]bool{
		{StatusPending, StatusApproved}: true,
		{StatusPending, StatusRejected}: true,
		{StatusApproved, StatusPaid}:    true,
	}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, legal[[2]Status{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestRejection_TrimsReason(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	change, err := rejection(uuid.New(), at, "\tduplicate submission  ")
	require.NoError(t, err)
	assert.Equal(t, "duplicate submission", change.RejectionReason)
	assert.Equal(t, at, *change.ReviewedAt)
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, StatusUnpaid.Valid())
	assert.False(t, Status("archived").Valid())
	assert.False(t, Status("").Valid())
}
