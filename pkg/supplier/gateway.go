// Package supplier is the client side of the hotel reservation supplier API:
// finish a booking, check its status, and look up order details.
package supplier

import (
	"context"
	"errors"
)

var (
	// ErrSupplierUnavailable means the supplier could not be reached or
	// answered with a server error. The caller must not assume anything
	// about the booking state.
	ErrSupplierUnavailable = errors.New("supplier unavailable")

	// ErrUnknownStatus is returned for a status value outside the documented set
	ErrUnknownStatus = errors.New("unknown supplier status")
)

// Status is the supplier-reported state of a booking
type Status string

const (
	StatusProcessing  Status = "PROCESSING"
	StatusConfirmed   Status = "CONFIRMED"
	StatusRequires3DS Status = "REQUIRES_3DS"
	StatusError       Status = "ERROR"
)

// Valid reports whether s is one of the documented statuses
func (s Status) Valid() bool {
	switch s {
	case StatusProcessing, StatusConfirmed, StatusRequires3DS, StatusError:
		return true
	}
	return false
}

// Guest is the lead guest sent to the supplier
type Guest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// Payment describes how the stay was paid
type Payment struct {
	Kind         string `json:"kind"`
	Amount       string `json:"amount,omitempty"`
	CurrencyCode string `json:"currencyCode,omitempty"`
}

// FinishBookingRequest finalizes a prebooked stay
type FinishBookingRequest struct {
	PartnerOrderID  string  `json:"partnerOrderId"`
	Guest           Guest   `json:"guest"`
	Payment         Payment `json:"payment"`
	PaymentIntentID string  `json:"paymentIntentId,omitempty"`
	Remarks         string  `json:"remarks,omitempty"`
}

// FinishBookingResult is either an accepted booking (Success, OrderID, ItemID)
// or a business rejection (Success false, Error).
type FinishBookingResult struct {
	Success bool   `json:"success"`
	OrderID int64  `json:"orderId"`
	ItemID  string `json:"itemId"`
	Error   string `json:"error,omitempty"`
}

// StatusResult is one status check
type StatusResult struct {
	Status  Status                 `json:"status"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// OrderInfo holds supplementary order details
type OrderInfo struct {
	Success            bool   `json:"success"`
	ConfirmationNumber string `json:"confirmationNumber,omitempty"`
}

// Gateway is the reservation supplier as seen by the booking flow.
// Implementations bound every call with their own timeout.
type Gateway interface {
	// FinishBooking submits guest and payment details. It is not safe to
	// retry blindly: the supplier may already have accepted the attempt.
	FinishBooking(ctx context.Context, req FinishBookingRequest) (*FinishBookingResult, error)

	// CheckStatus returns the current state for a partner order id
	CheckStatus(ctx context.Context, partnerOrderID string) (*StatusResult, error)

	// GetOrderInfo looks up order details. Only meaningful for orderID > 0.
	GetOrderInfo(ctx context.Context, orderID int64) (*OrderInfo, error)

	// GetName returns the name of the gateway implementation
	GetName() string
}
