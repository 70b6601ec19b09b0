package supplier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSandboxGateway(t *testing.T) {
	ctx := context.Background()

	t.Run("Confirms After Configured Checks", func(t *testing.T) {
		gw := NewSandboxGateway(2)
		result, err := gw.FinishBooking(ctx, FinishBookingRequest{PartnerOrderID: "PO-1001"})
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, int64(0), result.OrderID)

		var statuses []Status
		for i := 0; i < 3; i++ {
			st, err := gw.CheckStatus(ctx, "PO-1001")
			require.NoError(t, err)
			statuses = append(statuses, st.Status)
		}
		assert.Equal(t, []Status{StatusProcessing, StatusProcessing, StatusConfirmed}, statuses)
	})

	t.Run("Confirmed Bookings Are Forgotten", func(t *testing.T) {
		gw := NewSandboxGateway(1)
		for _, id := range []string{"PO-1", "PO-2", "PO-3"} {
			_, err := gw.FinishBooking(ctx, FinishBookingRequest{PartnerOrderID: id})
			require.NoError(t, err)
		}

		for _, id := range []string{"PO-1", "PO-2"} {
			st, err := gw.CheckStatus(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, StatusProcessing, st.Status)
			st, err = gw.CheckStatus(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, StatusConfirmed, st.Status)
		}

		gw.mu.Lock()
		assert.Len(t, gw.checks, 1)
		assert.Contains(t, gw.checks, "PO-3")
		gw.mu.Unlock()

		// a re-check after confirmation stays confirmed
		st, err := gw.CheckStatus(ctx, "PO-1")
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, st.Status)
		gw.mu.Lock()
		assert.NotContains(t, gw.checks, "PO-1")
		gw.mu.Unlock()
	})

	t.Run("Reject Marker", func(t *testing.T) {
		result, err := NewSandboxGateway(0).FinishBooking(ctx, FinishBookingRequest{PartnerOrderID: "PO-reject-1"})
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "insufficient_funds", result.Error)
	})

	t.Run("3DS Marker", func(t *testing.T) {
		st, err := NewSandboxGateway(0).CheckStatus(ctx, "PO-3ds-1")
		require.NoError(t, err)
		assert.Equal(t, StatusRequires3DS, st.Status)
		assert.NotEmpty(t, st.Payload["challengeUrl"])
	})

	t.Run("Order Info Only For Real Ids", func(t *testing.T) {
		gw := NewSandboxGateway(0)
		info, err := gw.GetOrderInfo(ctx, 0)
		require.NoError(t, err)
		assert.False(t, info.Success)

		info, err = gw.GetOrderInfo(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "SBX-CONF-7", info.ConfirmationNumber)
	})
}
