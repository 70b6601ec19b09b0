package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/staybridge/booking-confirmation/internal/models"
)

// ErrPartnerOrderIDTaken is returned when another partner already stored a
// reservation under the same partner order id
var ErrPartnerOrderIDTaken = errors.New("partner order id belongs to another partner")

const reservationColumns = `
	id, user_id, supplier_identifier, partner_order_id, partner_id, supplier_order_id, item_id,
	confirmation_number, payment_reference, payment_kind, payment_amount, payment_currency,
	guest_first_name, guest_last_name, guest_email, guest_phone,
	remarks, status, failure_reason, created_at, updated_at`

// ReservationRepository persists finalized bookings. Uniqueness per partner
// order id is enforced by the reservations_partner_order_id_key constraint;
// callers never lock.
type ReservationRepository struct {
	db DB
}

// NewReservationRepository creates a new reservation repository
func NewReservationRepository(db DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// Upsert stores the record keyed by partner order id and returns the stored
// row. written is true when this call inserted or updated the row.
//
// A row still in pending_confirmation is overwritten with the new outcome.
// A row that already reached confirmed or failed is left untouched and
// returned as is with written false, so duplicate or late submissions
// converge on the first final outcome. A row owned by another partner is
// never touched and yields ErrPartnerOrderIDTaken.
func (r *ReservationRepository) Upsert(ctx context.Context, record *models.ReservationRecord) (*models.ReservationRecord, bool, error) {
	if record == nil {
		return nil, false, fmt.Errorf("reservation record cannot be nil")
	}
	if record.PartnerOrderID == "" {
		return nil, false, fmt.Errorf("partner order id is required")
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	record.SupplierIdentifier = models.SupplierIdentifierFor(record.PartnerOrderID, record.SupplierOrderID)

	query := `
		INSERT INTO reservations (` + reservationColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15, $16,
			$17, $18, $19, $20, $21
		)
		ON CONFLICT (partner_order_id) DO UPDATE SET
			supplier_identifier = EXCLUDED.supplier_identifier,
			supplier_order_id   = EXCLUDED.supplier_order_id,
			item_id             = EXCLUDED.item_id,
			confirmation_number = COALESCE(EXCLUDED.confirmation_number, reservations.confirmation_number),
			payment_reference   = COALESCE(EXCLUDED.payment_reference, reservations.payment_reference),
			status              = EXCLUDED.status,
			failure_reason      = EXCLUDED.failure_reason,
			updated_at          = EXCLUDED.updated_at
		WHERE reservations.status = 'pending_confirmation'
		  AND reservations.partner_id IS NOT DISTINCT FROM EXCLUDED.partner_id
		RETURNING` + reservationColumns

	var stored models.ReservationRecord
	err := r.db.GetContext(ctx, &stored, query,
		record.ID, record.UserID, record.SupplierIdentifier, record.PartnerOrderID, record.PartnerID, record.SupplierOrderID, record.ItemID,
		record.ConfirmationNumber, record.PaymentReference, record.PaymentKind, record.PaymentAmount, record.PaymentCurrency,
		record.GuestFirstName, record.GuestLastName, record.GuestEmail, record.GuestPhone,
		record.Remarks, record.Status, record.FailureReason, record.CreatedAt, record.UpdatedAt,
	)
	if err == nil {
		return &stored, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to upsert reservation: %w", err)
	}

	// The WHERE clause skipped the update: the row is final or foreign.
	existing, err := r.GetByPartnerOrderID(ctx, record.PartnerOrderID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("reservation %s vanished during upsert", record.PartnerOrderID)
	}
	if existing.PartnerID != record.PartnerID {
		return nil, false, ErrPartnerOrderIDTaken
	}
	return existing, false, nil
}

// GetByPartnerOrderID retrieves a reservation by partner order id.
// Returns nil, nil when not found.
func (r *ReservationRepository) GetByPartnerOrderID(ctx context.Context, partnerOrderID string) (*models.ReservationRecord, error) {
	var record models.ReservationRecord

	query := `SELECT` + reservationColumns + `
		FROM reservations
		WHERE partner_order_id = $1`

	err := r.db.GetContext(ctx, &record, query, partnerOrderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	return &record, nil
}

// ListPendingConfirmation returns pending reservations last touched before
// olderThan, oldest first
func (r *ReservationRepository) ListPendingConfirmation(ctx context.Context, olderThan time.Time, limit int) ([]models.ReservationRecord, error) {
	var records []models.ReservationRecord

	query := `SELECT` + reservationColumns + `
		FROM reservations
		WHERE status = 'pending_confirmation' AND updated_at < $1
		ORDER BY updated_at ASC
		LIMIT $2`

	if err := r.db.SelectContext(ctx, &records, query, olderThan, limit); err != nil {
		return nil, fmt.Errorf("failed to list pending reservations: %w", err)
	}

	return records, nil
}

// ResolvePending moves a pending_confirmation reservation to a final status.
// Returns false when the row was not pending (already resolved or missing).
func (r *ReservationRepository) ResolvePending(
	ctx context.Context,
	partnerOrderID string,
	status models.ReservationStatus,
	confirmationNumber string,
	failureReason string,
) (bool, error) {
	if !status.IsFinal() {
		return false, fmt.Errorf("cannot resolve reservation to non-final status %q", status)
	}

	query := `
		UPDATE reservations
		SET status = $2,
		    confirmation_number = COALESCE($3, confirmation_number),
		    failure_reason = $4,
		    updated_at = $5
		WHERE partner_order_id = $1 AND status = 'pending_confirmation'
	`

	result, err := r.db.ExecContext(ctx, query,
		partnerOrderID,
		status,
		models.NewNullString(confirmationNumber),
		models.NewNullString(failureReason),
		time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to resolve reservation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rows == 1, nil
}
