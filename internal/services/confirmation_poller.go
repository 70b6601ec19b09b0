package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/staybridge/booking-confirmation/internal/models"
	"github.com/staybridge/booking-confirmation/pkg/supplier"
)

// PollState is the confirmation state machine's state
type PollState string

const (
	PollStatePending     PollState = "PENDING"
	PollStateConfirmed   PollState = "CONFIRMED"
	PollStateRequires3DS PollState = "REQUIRES_3DS"
	PollStateErrored     PollState = "ERRORED"
	PollStateTimedOut    PollState = "TIMED_OUT"
)

// PollPolicy controls the wait schedule. Waits are fixed, not exponential:
// supplier settlement latency is roughly constant.
type PollPolicy struct {
	InitialDelay  time.Duration // wait before the first check
	Interval      time.Duration // wait before every later check
	MaxIterations int           // status checks before giving up
}

// DefaultPollPolicy returns 1s, then 5s steps, 12 checks (about a minute)
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		InitialDelay:  time.Second,
		Interval:      5 * time.Second,
		MaxIterations: 12,
	}
}

// PollOutcome is the terminal result of one poll run
type PollOutcome struct {
	State    PollState
	Attempts []models.ConfirmationAttempt
	Payload  map[string]interface{} // secondary auth challenge when State is REQUIRES_3DS
	Error    string                 // supplier error when State is ERRORED
}

// ConfirmationPoller drives PENDING to a terminal state by polling CheckStatus
type ConfirmationPoller struct {
	gateway supplier.Gateway
	clock   Clock
	policy  PollPolicy
	audit   *AuditService
	logger  *logrus.Logger
}

// NewConfirmationPoller creates a poller
func NewConfirmationPoller(gateway supplier.Gateway, clock Clock, policy PollPolicy, audit *AuditService, logger *logrus.Logger) *ConfirmationPoller {
	if clock == nil {
		clock = SystemClock{}
	}
	if policy.MaxIterations < 1 {
		policy.MaxIterations = DefaultPollPolicy().MaxIterations
	}
	return &ConfirmationPoller{
		gateway: gateway,
		clock:   clock,
		policy:  policy,
		audit:   audit,
		logger:  logger,
	}
}

// Poll checks the supplier until it reports CONFIRMED, REQUIRES_3DS or ERROR,
// or until MaxIterations checks were made.
//
// A failed or unreadable status check counts as PROCESSING: the iteration is
// spent and polling goes on.
func (p *ConfirmationPoller) Poll(ctx context.Context, partnerOrderID string) *PollOutcome {
	outcome := &PollOutcome{State: PollStatePending}
	log := p.logger.WithField("partner_order_id", partnerOrderID)

	for attempt := 1; attempt <= p.policy.MaxIterations; attempt++ {
		wait := p.policy.Interval
		if attempt == 1 {
			wait = p.policy.InitialDelay
		}
		if err := p.clock.Sleep(ctx, wait); err != nil {
			log.WithError(err).Warn("Confirmation polling interrupted")
			break
		}

		result, err := p.gateway.CheckStatus(ctx, partnerOrderID)
		record := models.ConfirmationAttempt{Attempt: attempt, CheckedAt: p.clock.Now()}

		if err != nil {
			record.Err = err.Error()
			outcome.Attempts = append(outcome.Attempts, record)
			log.WithError(err).WithField("attempt", attempt).Warn("Status check failed, continuing to poll")
			p.audit.Record(ctx, AuditEntry{
				PartnerOrderID: partnerOrderID,
				EventType:      models.BookingEventStatusChecked,
				Source:         models.BookingSourceSupplier,
				Attempt:        attempt,
				Err:            err,
			})
			continue
		}

		record.RawStatus = string(result.Status)
		outcome.Attempts = append(outcome.Attempts, record)

		log.WithFields(logrus.Fields{
			"attempt": attempt,
			"status":  result.Status,
		}).Debug("Status check")

		switch result.Status {
		case supplier.StatusConfirmed:
			outcome.State = PollStateConfirmed
		case supplier.StatusRequires3DS:
			outcome.State = PollStateRequires3DS
			outcome.Payload = result.Payload
		case supplier.StatusError:
			outcome.State = PollStateErrored
			outcome.Error = result.Error
		default:
			continue
		}

		log.WithFields(logrus.Fields{
			"attempts": attempt,
			"state":    outcome.State,
		}).Info("Confirmation polling finished")
		return outcome
	}

	outcome.State = PollStateTimedOut
	log.WithField("attempts", len(outcome.Attempts)).Warn("Confirmation polling timed out")
	return outcome
}
