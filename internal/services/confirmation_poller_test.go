package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/staybridge/booking-confirmation/internal/models"
	"github.com/staybridge/booking-confirmation/pkg/supplier"
)

func newTestPoller(gw supplier.Gateway, clock Clock, audits *memoryAuditStore) *ConfirmationPoller {
	logger := quietLogger()
	return NewConfirmationPoller(gw, clock, DefaultPollPolicy(), NewAuditService(audits, true, logger), logger)
}

func TestDefaultPollPolicy(t *testing.T) {
	policy := DefaultPollPolicy()

	assert.Equal(t, time.Second, policy.InitialDelay)
	assert.Equal(t, 5*time.Second, policy.Interval)
	assert.Equal(t, 12, policy.MaxIterations)
}

func TestPoll_TerminalStates(t *testing.T) {
	tests := []struct {
		name  string
		step  statusStep
		state PollState
	}{
		{"confirmed", statusOf(supplier.StatusConfirmed), PollStateConfirmed},
		{"requires 3ds", statusOf(supplier.StatusRequires3DS), PollStateRequires3DS},
		{"error", statusOf(supplier.StatusError), PollStateErrored},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newFakeGateway(0, processing(), tt.step)
			clock := newFakeClock()

			outcome := newTestPoller(gw, clock, &memoryAuditStore{}).Poll(context.Background(), "PO-1")

			assert.Equal(t, tt.state, outcome.State)
			require.Len(t, outcome.Attempts, 2)
			assert.Equal(t, "PROCESSING", outcome.Attempts[0].RawStatus)
			assert.Equal(t, 2, outcome.Attempts[1].Attempt)
			assert.Equal(t, []time.Duration{time.Second, 5 * time.Second}, clock.recorded())
		})
	}
}

func TestPoll_ErrorDetailsCarried(t *testing.T) {
	gw := newFakeGateway(0, statusStep{result: &supplier.StatusResult{
		Status: supplier.StatusError,
		Error:  "payment_capture_failed",
	}})

	outcome := newTestPoller(gw, newFakeClock(), &memoryAuditStore{}).Poll(context.Background(), "PO-1")

	assert.Equal(t, PollStateErrored, outcome.State)
	assert.Equal(t, "payment_capture_failed", outcome.Error)
}

func TestPoll_FailedChecksAreAudited(t *testing.T) {
	gw := newFakeGateway(0, statusStep{err: supplier.ErrSupplierUnavailable}, statusOf(supplier.StatusConfirmed))
	audits := &memoryAuditStore{}

	outcome := newTestPoller(gw, newFakeClock(), audits).Poll(context.Background(), "PO-1")

	assert.Equal(t, PollStateConfirmed, outcome.State)
	require.Len(t, outcome.Attempts, 2)
	assert.NotEmpty(t, outcome.Attempts[0].Err)
	assert.Equal(t, []models.BookingEventType{models.BookingEventStatusChecked}, audits.events())
}

func TestPoll_NeverExceedsMaxIterations(t *testing.T) {
	gw := newFakeGateway(0, processing())
	clock := newFakeClock()
	logger := quietLogger()
	policy := PollPolicy{InitialDelay: time.Millisecond, Interval: 2 * time.Millisecond, MaxIterations: 3}

	outcome := NewConfirmationPoller(gw, clock, policy, nil, logger).Poll(context.Background(), "PO-1")

	assert.Equal(t, PollStateTimedOut, outcome.State)
	_, checks, _ := gw.calls()
	assert.Equal(t, 3, checks)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 2 * time.Millisecond}, clock.recorded())
}

func TestPoll_CancelledContextTimesOut(t *testing.T) {
	gw := newFakeGateway(0, statusOf(supplier.StatusConfirmed))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := newTestPoller(gw, newFakeClock(), &memoryAuditStore{}).Poll(ctx, "PO-1")

	assert.Equal(t, PollStateTimedOut, outcome.State)
	_, checks, _ := gw.calls()
	assert.Zero(t, checks)
}

func TestSystemClock_SleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := SystemClock{}.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, SystemClock{}.Sleep(context.Background(), time.Millisecond))
}
