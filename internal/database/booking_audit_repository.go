package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staybridge/booking-confirmation/internal/models"
)

const auditColumns = `id, partner_order_id, event_type, event_source,
	supplier_status, attempt, details, error_message,
	partner_id, ip_address, user_agent, device_info, created_at`

// BookingAuditRepository writes the append-only booking audit trail
type BookingAuditRepository struct {
	db     DB
	logger *logrus.Logger
}

// NewBookingAuditRepository creates a new booking audit repository
func NewBookingAuditRepository(db DB, logger *logrus.Logger) *BookingAuditRepository {
	return &BookingAuditRepository{
		db:     db,
		logger: logger,
	}
}

// Log creates a new audit entry
func (r *BookingAuditRepository) Log(ctx context.Context, audit *models.BookingAudit) error {
	if audit == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}

	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO booking_audit_logs (
			id, partner_order_id, event_type, event_source,
			supplier_status, attempt, details, error_message,
			partner_id, ip_address, user_agent, device_info, created_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11, $12, $13
		)`

	_, err := r.db.ExecContext(ctx, query,
		audit.ID, audit.PartnerOrderID, audit.EventType, audit.EventSource,
		audit.SupplierStatus, audit.Attempt, audit.Details, audit.ErrorMessage,
		audit.PartnerID, audit.IPAddress, audit.UserAgent, audit.DeviceInfo, audit.CreatedAt,
	)
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"partner_order_id": audit.PartnerOrderID,
			"event_type":       audit.EventType,
		}).Error("Failed to write booking audit entry")
		return fmt.Errorf("failed to create booking audit: %w", err)
	}

	return nil
}

// ListByPartnerOrderID returns the audit trail of one booking, oldest first.
//
// A non-empty partnerID limits the trail to that partner: its own entries,
// plus system entries when it owns the stored reservation. An empty
// partnerID returns everything.
func (r *BookingAuditRepository) ListByPartnerOrderID(ctx context.Context, partnerOrderID, partnerID string, limit int) ([]models.BookingAudit, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var audits []models.BookingAudit
	var err error
	if partnerID == "" {
		query := `
			SELECT ` + auditColumns + `
			FROM booking_audit_logs
			WHERE partner_order_id = $1
			ORDER BY created_at ASC
			LIMIT $2`
		err = r.db.SelectContext(ctx, &audits, query, partnerOrderID, limit)
	} else {
		query := `
			SELECT ` + auditColumns + `
			FROM booking_audit_logs
			WHERE partner_order_id = $1
			  AND (partner_id = $2
			       OR (partner_id IS NULL AND EXISTS (
			           SELECT 1 FROM reservations
			           WHERE reservations.partner_order_id = $1
			             AND reservations.partner_id = $2)))
			ORDER BY created_at ASC
			LIMIT $3`
		err = r.db.SelectContext(ctx, &audits, query, partnerOrderID, partnerID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list booking audits: %w", err)
	}

	return audits, nil
}
