package models

// BookingOutcome tags which terminal variant a BookingResult holds
type BookingOutcome string

const (
	OutcomeConfirmed             BookingOutcome = "confirmed"
	OutcomeSecondaryAuthRequired BookingOutcome = "secondary_auth_required"
	OutcomeFailed                BookingOutcome = "failed"
	OutcomeTimedOut              BookingOutcome = "timed_out"
)

// Booking status strings returned to partners
const (
	BookingStatusConfirmed   = "confirmed"
	BookingStatus3DSRequired = "3ds_required"
	BookingStatusFailed      = "failed"
	BookingStatusTimedOut    = "timed_out"
)

// BookingResult is returned from a finalize or re-check call. It is never stored.
type BookingResult struct {
	Success bool           `json:"success"`
	Outcome BookingOutcome `json:"-"`
	Booking BookingSummary `json:"booking"`
}

// BookingSummary is the partner-facing view of the booking outcome
type BookingSummary struct {
	OrderID              int64                  `json:"orderId"`
	PartnerOrderID       string                 `json:"partnerOrderId"`
	Status               string                 `json:"status"`
	ItemID               string                 `json:"itemId"`
	Requires3DS          bool                   `json:"requires3DS"`
	SecondaryAuthPayload map[string]interface{} `json:"secondaryAuthPayload,omitempty"`
	ConfirmationNumber   string                 `json:"confirmationNumber,omitempty"`
	Error                string                 `json:"error,omitempty"`
	// Persisted is false when the outcome should have been recorded but the write failed
	Persisted bool `json:"persisted"`
}

// NewConfirmedResult builds the Confirmed variant
func NewConfirmedResult(partnerOrderID string, orderID int64, itemID, confirmationNumber string) *BookingResult {
	return &BookingResult{
		Success: true,
		Outcome: OutcomeConfirmed,
		Booking: BookingSummary{
			OrderID:            orderID,
			PartnerOrderID:     partnerOrderID,
			Status:             BookingStatusConfirmed,
			ItemID:             itemID,
			ConfirmationNumber: confirmationNumber,
		},
	}
}

// NewSecondaryAuthResult builds the SecondaryAuthRequired variant
func NewSecondaryAuthResult(partnerOrderID string, orderID int64, itemID string, payload map[string]interface{}) *BookingResult {
	return &BookingResult{
		Outcome: OutcomeSecondaryAuthRequired,
		Booking: BookingSummary{
			OrderID:              orderID,
			PartnerOrderID:       partnerOrderID,
			Status:               BookingStatus3DSRequired,
			ItemID:               itemID,
			Requires3DS:          true,
			SecondaryAuthPayload: payload,
		},
	}
}

// NewFailedResult builds the Failed variant
func NewFailedResult(partnerOrderID string, orderID int64, itemID, reason string) *BookingResult {
	return &BookingResult{
		Outcome: OutcomeFailed,
		Booking: BookingSummary{
			OrderID:        orderID,
			PartnerOrderID: partnerOrderID,
			Status:         BookingStatusFailed,
			ItemID:         itemID,
			Error:          reason,
		},
	}
}

// NewTimedOutResult builds the TimedOut variant
func NewTimedOutResult(partnerOrderID string, orderID int64, itemID string) *BookingResult {
	return &BookingResult{
		Outcome: OutcomeTimedOut,
		Booking: BookingSummary{
			OrderID:        orderID,
			PartnerOrderID: partnerOrderID,
			Status:         BookingStatusTimedOut,
			ItemID:         itemID,
		},
	}
}
