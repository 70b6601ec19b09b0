package models

import (
	"time"

	"github.com/google/uuid"
)

// BookingEventType represents the type of booking audit event
type BookingEventType string

const (
	BookingEventFinalizeRequested   BookingEventType = "finalize_requested"
	BookingEventFinishBooking       BookingEventType = "finish_booking"
	BookingEventSupplierUnavailable BookingEventType = "supplier_unavailable"
	BookingEventSupplierRejected    BookingEventType = "supplier_rejected"
	BookingEventStatusChecked       BookingEventType = "status_checked"
	BookingEventConfirmed           BookingEventType = "booking_confirmed"
	BookingEvent3DSRequired         BookingEventType = "secondary_auth_required"
	BookingEventErrored             BookingEventType = "booking_errored"
	BookingEventTimedOut            BookingEventType = "confirmation_timed_out"
	BookingEventPersistFailed       BookingEventType = "persist_failed"
	BookingEventEnrichmentFailed    BookingEventType = "enrichment_failed"
	BookingEventNotificationFailed  BookingEventType = "notification_failed"
	BookingEventRechecked           BookingEventType = "rechecked"
)

// BookingEventSource identifies where the event originated
type BookingEventSource string

const (
	BookingSourcePartnerAPI     BookingEventSource = "partner_api"
	BookingSourceSupplier       BookingEventSource = "supplier"
	BookingSourceReconciliation BookingEventSource = "reconciliation"
	BookingSourceSystem         BookingEventSource = "system"
)

// BookingAudit is an append-only log entry describing one step of a booking
type BookingAudit struct {
	ID             uuid.UUID          `json:"id" db:"id"`
	PartnerOrderID string             `json:"partner_order_id" db:"partner_order_id"`
	EventType      BookingEventType   `json:"event_type" db:"event_type"`
	EventSource    BookingEventSource `json:"event_source" db:"event_source"`
	SupplierStatus *string            `json:"supplier_status,omitempty" db:"supplier_status"`
	Attempt        *int               `json:"attempt,omitempty" db:"attempt"`
	Details        JSONB              `json:"details,omitempty" db:"details"`
	ErrorMessage   *string            `json:"error_message,omitempty" db:"error_message"`
	PartnerID      *string            `json:"partner_id,omitempty" db:"partner_id"`
	IPAddress      *string            `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent      *string            `json:"user_agent,omitempty" db:"user_agent"`
	DeviceInfo     JSONB              `json:"device_info,omitempty" db:"device_info"`
	CreatedAt      time.Time          `json:"created_at" db:"created_at"`
}
