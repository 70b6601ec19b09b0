package models

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ReservationStatus is the stored state of a finalized booking
type ReservationStatus string

const (
	ReservationStatusConfirmed           ReservationStatus = "confirmed"
	ReservationStatusFailed              ReservationStatus = "failed"
	ReservationStatusPendingConfirmation ReservationStatus = "pending_confirmation"
)

// IsFinal reports whether the stored status may no longer change
func (s ReservationStatus) IsFinal() bool {
	return s == ReservationStatusConfirmed || s == ReservationStatusFailed
}

// ReservationRecord is the durable record of one finalized booking attempt,
// unique per partner order id
type ReservationRecord struct {
	ID                 uuid.UUID         `json:"id" db:"id"`
	UserID             uuid.UUID         `json:"user_id" db:"user_id"`
	SupplierIdentifier string            `json:"supplier_identifier" db:"supplier_identifier"`
	PartnerOrderID     string            `json:"partner_order_id" db:"partner_order_id"`
	PartnerID          NullString        `json:"partner_id,omitempty" db:"partner_id"`
	SupplierOrderID    int64             `json:"supplier_order_id" db:"supplier_order_id"`
	ItemID             string            `json:"item_id" db:"item_id"`
	ConfirmationNumber NullString        `json:"confirmation_number,omitempty" db:"confirmation_number"`
	PaymentReference   NullString        `json:"payment_reference,omitempty" db:"payment_reference"`
	PaymentKind        string            `json:"payment_kind" db:"payment_kind"`
	PaymentAmount      NullString        `json:"payment_amount,omitempty" db:"payment_amount"`
	PaymentCurrency    NullString        `json:"payment_currency,omitempty" db:"payment_currency"`
	GuestFirstName     string            `json:"guest_first_name" db:"guest_first_name"`
	GuestLastName      string            `json:"guest_last_name" db:"guest_last_name"`
	GuestEmail         string            `json:"guest_email" db:"guest_email"`
	GuestPhone         string            `json:"guest_phone" db:"guest_phone"`
	Remarks            NullString        `json:"remarks,omitempty" db:"remarks"`
	Status             ReservationStatus `json:"status" db:"status"`
	FailureReason      NullString        `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedAt          time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at" db:"updated_at"`
}

// BelongsTo reports whether the reservation was created by partnerID
func (r *ReservationRecord) BelongsTo(partnerID string) bool {
	return r.PartnerID.Valid && r.PartnerID.String == partnerID
}

// SupplierIdentifierFor returns the storage key for a supplier order.
// The supplier hands out order id 0 in its sandbox, so non-positive ids are
// replaced by a key derived from the partner order id.
func SupplierIdentifierFor(partnerOrderID string, orderID int64) string {
	if orderID <= 0 {
		return fmt.Sprintf("sandbox_%s", partnerOrderID)
	}
	return strconv.FormatInt(orderID, 10)
}
