package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/staybridge/booking-confirmation/internal/models"
	"github.com/staybridge/booking-confirmation/pkg/supplier"
)

var (
	// ErrSupplierUnavailable means finish booking failed outright
	ErrSupplierUnavailable = supplier.ErrSupplierUnavailable

	// ErrConfirmationTimeout means polling ran out before a terminal status
	ErrConfirmationTimeout = errors.New("booking confirmation timed out")

	// ErrBookingNotFound is returned when no reservation exists for a partner order id
	ErrBookingNotFound = errors.New("booking not found")
)

// ValidationError is returned for malformed requests. No external call has
// been made when it is returned.
type ValidationError struct {
	Fields []models.FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s (%s)", f.Field, f.Rule))
	}
	return "invalid booking request: " + strings.Join(parts, ", ")
}

// SupplierRejectedError carries the supplier's business reason for declining a booking
type SupplierRejectedError struct {
	Reason string
}

func (e *SupplierRejectedError) Error() string {
	return "supplier rejected booking: " + e.Reason
}

// Reasons reported in BookingResult.Booking.Error
const (
	ReasonSupplierUnavailable = "supplier_unavailable"
	ReasonSupplierError       = "supplier_error"
	// ReasonRecordNotSaved marks a supplier outcome that could not be stored
	ReasonRecordNotSaved = "record_not_saved"
)
