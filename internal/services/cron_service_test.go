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

func TestRunOnce_ResolvesPendingBookings(t *testing.T) {
	gw := newFakeGateway(0, statusOf(supplier.StatusConfirmed), statusOf(supplier.StatusError), processing())
	h := newOrchestratorHarness(gw)

	h.store.put(pendingRecord("PO-A", 0))
	h.store.put(pendingRecord("PO-B", 0))
	h.store.put(pendingRecord("PO-C", 0))

	fresh := pendingRecord("PO-FRESH", 0)
	fresh.UpdatedAt = time.Now()
	h.store.put(fresh)

	done := pendingRecord("PO-DONE", 0)
	done.Status = models.ReservationStatusConfirmed
	h.store.put(done)

	cron := NewCronService(h.store, h.service, ReconciliationConfig{
		Schedule:    "0 */2 * * * *",
		GracePeriod: 2 * time.Minute,
		BatchSize:   10,
	}, quietLogger())

	summary, err := cron.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Checked)
	assert.Equal(t, 1, summary.Confirmed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Pending)
	assert.Zero(t, summary.Errors)

	a, _ := h.store.get("PO-A")
	assert.Equal(t, models.ReservationStatusConfirmed, a.Status)
	b, _ := h.store.get("PO-B")
	assert.Equal(t, models.ReservationStatusFailed, b.Status)
	c, _ := h.store.get("PO-C")
	assert.Equal(t, models.ReservationStatusPendingConfirmation, c.Status)
	f, _ := h.store.get("PO-FRESH")
	assert.Equal(t, models.ReservationStatusPendingConfirmation, f.Status)
}

func TestRunOnce_RespectsBatchSize(t *testing.T) {
	gw := newFakeGateway(0, processing())
	h := newOrchestratorHarness(gw)
	for _, id := range []string{"PO-1", "PO-2", "PO-3"} {
		h.store.put(pendingRecord(id, 0))
	}

	cron := NewCronService(h.store, h.service, ReconciliationConfig{GracePeriod: time.Minute, BatchSize: 2}, quietLogger())

	summary, err := cron.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Checked)
}

func TestCronService_StartRejectsBadSchedule(t *testing.T) {
	h := newOrchestratorHarness(newFakeGateway(0))
	cron := NewCronService(h.store, h.service, ReconciliationConfig{Schedule: "every now and then"}, quietLogger())

	assert.Error(t, cron.Start())
}

func TestCronService_StartStop(t *testing.T) {
	h := newOrchestratorHarness(newFakeGateway(0))
	cron := NewCronService(h.store, h.service, ReconciliationConfig{Schedule: "0 0 3 * * *"}, quietLogger())

	require.NoError(t, cron.Start())
	status := cron.GetJobStatus()
	assert.Equal(t, 1, status["job_count"])
	cron.Stop()
}
