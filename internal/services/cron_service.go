package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/staybridge/booking-confirmation/internal/models"
)

// PendingLister lists reservations still waiting on the supplier
type PendingLister interface {
	ListPendingConfirmation(ctx context.Context, olderThan time.Time, limit int) ([]models.ReservationRecord, error)
}

// Rechecker re-checks a single pending booking
type Rechecker interface {
	RecheckBooking(ctx context.Context, partnerOrderID string) (*models.BookingResult, error)
}

// ReconciliationConfig controls the pending booking sweep
type ReconciliationConfig struct {
	Schedule    string        // cron format with seconds: second minute hour day month weekday
	GracePeriod time.Duration // skip rows updated more recently than this
	BatchSize   int
}

// ReconciliationSummary describes one sweep
type ReconciliationSummary struct {
	Checked   int           `json:"checked"`
	Confirmed int           `json:"confirmed"`
	Failed    int           `json:"failed"`
	Pending   int           `json:"pending"`
	Errors    int           `json:"errors"`
	Duration  time.Duration `json:"duration"`
}

// CronService re-checks bookings that timed out during confirmation polling
type CronService struct {
	cron      *cron.Cron
	pending   PendingLister
	rechecker Rechecker
	config    ReconciliationConfig
	now       func() time.Time
	logger    *logrus.Logger

	// one sweep at a time
	mu sync.Mutex
}

// NewCronService creates a new CronService
func NewCronService(pending PendingLister, rechecker Rechecker, config ReconciliationConfig, logger *logrus.Logger) *CronService {
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}
	return &CronService{
		cron:      cron.New(cron.WithSeconds()),
		pending:   pending,
		rechecker: rechecker,
		config:    config,
		now:       time.Now,
		logger:    logger,
	}
}

// Start schedules the sweep and starts the scheduler
func (s *CronService) Start() error {
	_, err := s.cron.AddFunc(s.config.Schedule, s.reconcileJob)
	if err != nil {
		return fmt.Errorf("failed to schedule reconciliation job: %w", err)
	}

	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"schedule":     s.config.Schedule,
		"grace_period": s.config.GracePeriod.String(),
	}).Info("Reconciliation cron started")

	return nil
}

// Stop stops the scheduler and waits for a running sweep
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Reconciliation cron stopped")
}

func (s *CronService) reconcileJob() {
	summary, err := s.RunOnce(context.Background())
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Reconciliation sweep failed")
		return
	}
	if summary.Checked > 0 {
		s.logger.WithFields(logrus.Fields{
			"checked":   summary.Checked,
			"confirmed": summary.Confirmed,
			"failed":    summary.Failed,
			"pending":   summary.Pending,
			"errors":    summary.Errors,
			"duration":  summary.Duration.String(),
		}).Info("[CRON] Reconciliation sweep finished")
	}
}

// RunOnce re-checks one batch of pending bookings now
func (s *CronService) RunOnce(ctx context.Context) (*ReconciliationSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := time.Now()
	cutoff := s.now().Add(-s.config.GracePeriod)

	records, err := s.pending.ListPendingConfirmation(ctx, cutoff, s.config.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending reservations: %w", err)
	}

	summary := &ReconciliationSummary{}
	for _, record := range records {
		summary.Checked++

		result, err := s.rechecker.RecheckBooking(ctx, record.PartnerOrderID)
		if err != nil {
			summary.Errors++
			s.logger.WithError(err).WithField("partner_order_id", record.PartnerOrderID).Warn("Re-check failed")
			continue
		}

		switch result.Outcome {
		case models.OutcomeConfirmed:
			summary.Confirmed++
		case models.OutcomeFailed:
			summary.Failed++
		default:
			summary.Pending++
		}
	}

	summary.Duration = time.Since(started)
	return summary, nil
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
