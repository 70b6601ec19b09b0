package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/staybridge/booking-confirmation/internal/models"
	"github.com/staybridge/booking-confirmation/pkg/supplier"
)

// CustomerResolver finds or creates the customer behind a booking
type CustomerResolver interface {
	ResolveCustomer(ctx context.Context, guest *models.GuestInfo) (*models.Customer, error)
}

// ReservationStore persists reservations keyed by partner order id
type ReservationStore interface {
	Upsert(ctx context.Context, record *models.ReservationRecord) (*models.ReservationRecord, bool, error)
	GetByPartnerOrderID(ctx context.Context, partnerOrderID string) (*models.ReservationRecord, error)
	ResolvePending(ctx context.Context, partnerOrderID string, status models.ReservationStatus, confirmationNumber, failureReason string) (bool, error)
}

// Notifier sends the booking confirmation to the guest
type Notifier interface {
	Dispatch(ctx context.Context, record *models.ReservationRecord)
}

// BookingOrchestratorConfig holds configuration for the orchestrator
type BookingOrchestratorConfig struct {
	Poll PollPolicy
}

// DefaultOrchestratorConfig returns default configuration
func DefaultOrchestratorConfig() BookingOrchestratorConfig {
	return BookingOrchestratorConfig{
		Poll: DefaultPollPolicy(),
	}
}

// BookingOrchestratorService handles the finalize -> poll -> persist -> notify flow
type BookingOrchestratorService struct {
	accounts     CustomerResolver
	gateway      supplier.Gateway
	reservations ReservationStore
	notifier     Notifier
	poller       *ConfirmationPoller
	enrichment   *EnrichmentFetcher
	audit        *AuditService
	config       BookingOrchestratorConfig
	logger       *logrus.Logger
}

// NewBookingOrchestratorService creates a new orchestrator service
func NewBookingOrchestratorService(
	accounts CustomerResolver,
	gateway supplier.Gateway,
	reservations ReservationStore,
	notifier Notifier,
	audit *AuditService,
	clock Clock,
	config BookingOrchestratorConfig,
	logger *logrus.Logger,
) *BookingOrchestratorService {
	return &BookingOrchestratorService{
		accounts:     accounts,
		gateway:      gateway,
		reservations: reservations,
		notifier:     notifier,
		poller:       NewConfirmationPoller(gateway, clock, config.Poll, audit, logger),
		enrichment:   NewEnrichmentFetcher(gateway, audit, logger),
		audit:        audit,
		config:       config,
		logger:       logger,
	}
}

// ============================================================================
// FINALIZE BOOKING
// ============================================================================

// FinalizeBooking runs one booking to a terminal outcome.
//
// The only error returns are *ValidationError (nothing was called) and
// identity store failures before the supplier was contacted. Everything that
// happens after finish booking is reported through the result.
func (s *BookingOrchestratorService) FinalizeBooking(ctx context.Context, req *models.BookingRequest) (*models.BookingResult, error) {
	// 1. Validate before touching anything external
	if req != nil {
		req.Normalize()
	}
	if fields := req.Validate(); len(fields) > 0 {
		verr := &ValidationError{Fields: fields}
		s.logger.WithField("fields", fields).Info("Booking request rejected")
		return nil, verr
	}

	// Callers may hang up; the flow still has to reach a terminal state.
	ctx = context.WithoutCancel(ctx)

	log := s.logger.WithField("partner_order_id", req.PartnerOrderID)
	log.Info("Finalizing booking")
	s.audit.Record(ctx, AuditEntry{
		PartnerOrderID: req.PartnerOrderID,
		EventType:      models.BookingEventFinalizeRequested,
		Source:         models.BookingSourcePartnerAPI,
		Details: map[string]interface{}{
			"payment_kind":      req.PaymentType.Kind,
			"payment_intent_id": req.PaymentIntentID,
		},
	})

	// 2. Resolve the customer
	customer, err := s.accounts.ResolveCustomer(ctx, req.GuestInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve customer: %w", err)
	}

	// 3. Finish booking with the supplier (never retried)
	finish, err := s.finishBooking(ctx, req)
	if err != nil {
		var rejected *SupplierRejectedError
		if errors.As(err, &rejected) {
			return models.NewFailedResult(req.PartnerOrderID, 0, "", rejected.Reason), nil
		}
		return models.NewFailedResult(req.PartnerOrderID, 0, "", ReasonSupplierUnavailable), nil
	}

	// 4. Poll for confirmation
	outcome := s.poller.Poll(ctx, req.PartnerOrderID)
	record := s.buildRecord(ctx, req, customer, finish)

	switch outcome.State {
	case PollStateConfirmed:
		// 5. Enrich (best effort, real orders only)
		confirmationNumber := s.enrichment.Fetch(ctx, req.PartnerOrderID, finish.OrderID)
		record.ConfirmationNumber = models.NewNullString(confirmationNumber)
		record.Status = models.ReservationStatusConfirmed

		result := models.NewConfirmedResult(req.PartnerOrderID, finish.OrderID, finish.ItemID, confirmationNumber)
		s.audit.Record(ctx, AuditEntry{
			PartnerOrderID: req.PartnerOrderID,
			EventType:      models.BookingEventConfirmed,
			Source:         models.BookingSourceSupplier,
			SupplierStatus: string(supplier.StatusConfirmed),
			Attempt:        len(outcome.Attempts),
			Details:        map[string]interface{}{"order_id": finish.OrderID, "item_id": finish.ItemID},
		})

		// 6. Persist, then 7. notify. A duplicate that lost to an already
		// final row leaves notification to the call that stored it.
		if stored, written := s.persist(ctx, record, result); stored == nil || written {
			if stored != nil {
				record = stored
			}
			s.notifier.Dispatch(ctx, record)
		} else {
			log.WithField("stored_status", stored.Status).Info("Reservation already final, skipping notification")
		}

		log.WithFields(logrus.Fields{
			"order_id":  finish.OrderID,
			"persisted": result.Booking.Persisted,
		}).Info("Booking confirmed")
		return result, nil

	case PollStateRequires3DS:
		s.audit.Record(ctx, AuditEntry{
			PartnerOrderID: req.PartnerOrderID,
			EventType:      models.BookingEvent3DSRequired,
			Source:         models.BookingSourceSupplier,
			SupplierStatus: string(supplier.StatusRequires3DS),
			Attempt:        len(outcome.Attempts),
		})
		log.Info("Booking requires secondary authentication")
		return models.NewSecondaryAuthResult(req.PartnerOrderID, finish.OrderID, finish.ItemID, outcome.Payload), nil

	case PollStateErrored:
		reason := outcome.Error
		if reason == "" {
			reason = ReasonSupplierError
		}
		record.Status = models.ReservationStatusFailed
		record.FailureReason = models.NewNullString(reason)

		result := models.NewFailedResult(req.PartnerOrderID, finish.OrderID, finish.ItemID, reason)
		s.audit.Record(ctx, AuditEntry{
			PartnerOrderID: req.PartnerOrderID,
			EventType:      models.BookingEventErrored,
			Source:         models.BookingSourceSupplier,
			SupplierStatus: string(supplier.StatusError),
			Attempt:        len(outcome.Attempts),
			Details:        map[string]interface{}{"reason": reason},
		})
		s.persist(ctx, record, result)
		log.WithField("reason", reason).Warn("Supplier reported booking error")
		return result, nil

	default:
		record.Status = models.ReservationStatusPendingConfirmation

		result := models.NewTimedOutResult(req.PartnerOrderID, finish.OrderID, finish.ItemID)
		s.audit.Record(ctx, AuditEntry{
			PartnerOrderID: req.PartnerOrderID,
			EventType:      models.BookingEventTimedOut,
			Source:         models.BookingSourceSystem,
			Attempt:        len(outcome.Attempts),
			Err:            ErrConfirmationTimeout,
		})
		s.persist(ctx, record, result)
		log.WithField("attempts", len(outcome.Attempts)).Warn("Booking confirmation timed out, re-check later")
		return result, nil
	}
}

// ============================================================================
// RE-CHECK
// ============================================================================

// GetReservation returns the stored reservation for a partner order id.
// Partner callers only see their own reservations; anything else is
// reported as not found.
func (s *BookingOrchestratorService) GetReservation(ctx context.Context, partnerOrderID string) (*models.ReservationRecord, error) {
	record, err := s.reservations.GetByPartnerOrderID(ctx, partnerOrderID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrBookingNotFound
	}
	if partnerID := CallerPartnerID(ctx); partnerID != "" && !record.BelongsTo(partnerID) {
		s.logger.WithFields(logrus.Fields{
			"partner_order_id": partnerOrderID,
			"partner_id":       partnerID,
		}).Warn("Reservation requested by a partner that does not own it")
		return nil, ErrBookingNotFound
	}
	return record, nil
}

// RecheckBooking asks the supplier once more about a booking that timed out.
// Bookings that already reached confirmed or failed are answered from storage.
func (s *BookingOrchestratorService) RecheckBooking(ctx context.Context, partnerOrderID string) (*models.BookingResult, error) {
	record, err := s.GetReservation(ctx, partnerOrderID)
	if err != nil {
		return nil, err
	}
	if record.Status.IsFinal() {
		return ResultFromRecord(record), nil
	}

	ctx = context.WithoutCancel(ctx)
	log := s.logger.WithField("partner_order_id", partnerOrderID)

	status, err := s.gateway.CheckStatus(ctx, partnerOrderID)
	if err != nil {
		log.WithError(err).Warn("Re-check status call failed")
		s.audit.Record(ctx, AuditEntry{
			PartnerOrderID: partnerOrderID,
			EventType:      models.BookingEventRechecked,
			Source:         models.BookingSourceSupplier,
			Err:            err,
		})
		return ResultFromRecord(record), nil
	}

	s.audit.Record(ctx, AuditEntry{
		PartnerOrderID: partnerOrderID,
		EventType:      models.BookingEventRechecked,
		Source:         models.BookingSourceSupplier,
		SupplierStatus: string(status.Status),
	})

	switch status.Status {
	case supplier.StatusConfirmed:
		confirmationNumber := s.enrichment.Fetch(ctx, partnerOrderID, record.SupplierOrderID)
		resolved, err := s.reservations.ResolvePending(ctx, partnerOrderID, models.ReservationStatusConfirmed, confirmationNumber, "")
		if err != nil {
			return nil, fmt.Errorf("failed to resolve pending booking: %w", err)
		}
		if !resolved {
			// Another re-check got there first.
			return s.currentResult(ctx, partnerOrderID)
		}
		record.Status = models.ReservationStatusConfirmed
		if confirmationNumber != "" {
			record.ConfirmationNumber = models.NewNullString(confirmationNumber)
		}
		s.notifier.Dispatch(ctx, record)
		log.Info("Pending booking confirmed on re-check")
		return ResultFromRecord(record), nil

	case supplier.StatusError:
		reason := status.Error
		if reason == "" {
			reason = ReasonSupplierError
		}
		resolved, err := s.reservations.ResolvePending(ctx, partnerOrderID, models.ReservationStatusFailed, "", reason)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve pending booking: %w", err)
		}
		if !resolved {
			return s.currentResult(ctx, partnerOrderID)
		}
		record.Status = models.ReservationStatusFailed
		record.FailureReason = models.NewNullString(reason)
		log.WithField("reason", reason).Warn("Pending booking failed on re-check")
		return ResultFromRecord(record), nil

	case supplier.StatusRequires3DS:
		return models.NewSecondaryAuthResult(partnerOrderID, record.SupplierOrderID, record.ItemID, status.Payload), nil

	default:
		return ResultFromRecord(record), nil
	}
}

// ResultFromRecord maps a stored reservation onto the partner-facing result
func ResultFromRecord(record *models.ReservationRecord) *models.BookingResult {
	var result *models.BookingResult
	switch record.Status {
	case models.ReservationStatusConfirmed:
		result = models.NewConfirmedResult(record.PartnerOrderID, record.SupplierOrderID, record.ItemID, record.ConfirmationNumber.String)
	case models.ReservationStatusFailed:
		result = models.NewFailedResult(record.PartnerOrderID, record.SupplierOrderID, record.ItemID, record.FailureReason.String)
	default:
		result = models.NewTimedOutResult(record.PartnerOrderID, record.SupplierOrderID, record.ItemID)
	}
	result.Booking.Persisted = true
	return result
}

// ============================================================================
// HELPER METHODS
// ============================================================================

// finishBooking calls the supplier and classifies the answer.
// Returns *SupplierRejectedError or an error wrapping ErrSupplierUnavailable.
func (s *BookingOrchestratorService) finishBooking(ctx context.Context, req *models.BookingRequest) (*supplier.FinishBookingResult, error) {
	started := time.Now()
	result, err := s.gateway.FinishBooking(ctx, supplier.FinishBookingRequest{
		PartnerOrderID: req.PartnerOrderID,
		Guest: supplier.Guest{
			FirstName: req.GuestInfo.FirstName,
			LastName:  req.GuestInfo.LastName,
			Email:     req.GuestInfo.Email,
			Phone:     req.GuestInfo.Phone,
		},
		Payment: supplier.Payment{
			Kind:         req.PaymentType.Kind,
			Amount:       req.PaymentType.Amount,
			CurrencyCode: req.PaymentType.CurrencyCode,
		},
		PaymentIntentID: req.PaymentIntentID,
		Remarks:         req.Remarks,
	})

	if err != nil || result == nil {
		if err == nil {
			err = errors.New("empty finish booking response")
		}
		if !errors.Is(err, ErrSupplierUnavailable) {
			err = fmt.Errorf("%w: %v", ErrSupplierUnavailable, err)
		}
		s.logger.WithError(err).WithField("partner_order_id", req.PartnerOrderID).Error("Finish booking failed")
		s.audit.Record(ctx, AuditEntry{
			PartnerOrderID: req.PartnerOrderID,
			EventType:      models.BookingEventSupplierUnavailable,
			Source:         models.BookingSourceSupplier,
			Details:        map[string]interface{}{"duration_ms": time.Since(started).Milliseconds()},
			Err:            err,
		})
		return nil, err
	}

	if !result.Success {
		reason := result.Error
		if reason == "" {
			reason = "rejected"
		}
		s.logger.WithFields(logrus.Fields{
			"partner_order_id": req.PartnerOrderID,
			"reason":           reason,
		}).Warn("Supplier rejected booking")
		s.audit.Record(ctx, AuditEntry{
			PartnerOrderID: req.PartnerOrderID,
			EventType:      models.BookingEventSupplierRejected,
			Source:         models.BookingSourceSupplier,
			Details:        map[string]interface{}{"reason": reason},
		})
		return nil, &SupplierRejectedError{Reason: reason}
	}

	s.audit.Record(ctx, AuditEntry{
		PartnerOrderID: req.PartnerOrderID,
		EventType:      models.BookingEventFinishBooking,
		Source:         models.BookingSourceSupplier,
		Details: map[string]interface{}{
			"order_id":    result.OrderID,
			"item_id":     result.ItemID,
			"duration_ms": time.Since(started).Milliseconds(),
		},
	})
	return result, nil
}

// persist upserts the record and marks the result. A failed write is
// reported on the result and never changes the supplier outcome. written is
// false when an existing final row was kept instead.
func (s *BookingOrchestratorService) persist(ctx context.Context, record *models.ReservationRecord, result *models.BookingResult) (*models.ReservationRecord, bool) {
	stored, written, err := s.reservations.Upsert(ctx, record)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"partner_order_id": record.PartnerOrderID,
			"status":           record.Status,
		}).Error("Failed to persist reservation")
		s.audit.Record(ctx, AuditEntry{
			PartnerOrderID: record.PartnerOrderID,
			EventType:      models.BookingEventPersistFailed,
			Source:         models.BookingSourceSystem,
			Details:        map[string]interface{}{"status": string(record.Status)},
			Err:            err,
		})
		result.Booking.Persisted = false
		// a failed booking keeps the supplier's reason
		if result.Booking.Error == "" {
			result.Booking.Error = ReasonRecordNotSaved
		}
		return nil, false
	}

	result.Booking.Persisted = true
	if result.Booking.ConfirmationNumber == "" && stored.ConfirmationNumber.Valid {
		result.Booking.ConfirmationNumber = stored.ConfirmationNumber.String
	}
	return stored, written
}

func (s *BookingOrchestratorService) buildRecord(ctx context.Context, req *models.BookingRequest, customer *models.Customer, finish *supplier.FinishBookingResult) *models.ReservationRecord {
	return &models.ReservationRecord{
		UserID:           customer.ID,
		PartnerOrderID:   req.PartnerOrderID,
		PartnerID:        models.NewNullString(CallerPartnerID(ctx)),
		SupplierOrderID:  finish.OrderID,
		ItemID:           finish.ItemID,
		PaymentReference: models.NewNullString(req.PaymentIntentID),
		PaymentKind:      req.PaymentType.Kind,
		PaymentAmount:    models.NewNullString(req.PaymentType.Amount),
		PaymentCurrency:  models.NewNullString(req.PaymentType.CurrencyCode),
		GuestFirstName:   req.GuestInfo.FirstName,
		GuestLastName:    req.GuestInfo.LastName,
		GuestEmail:       req.GuestInfo.Email,
		GuestPhone:       req.GuestInfo.Phone,
		Remarks:          models.NewNullString(req.Remarks),
	}
}

func (s *BookingOrchestratorService) currentResult(ctx context.Context, partnerOrderID string) (*models.BookingResult, error) {
	record, err := s.GetReservation(ctx, partnerOrderID)
	if err != nil {
		return nil, err
	}
	return ResultFromRecord(record), nil
}
