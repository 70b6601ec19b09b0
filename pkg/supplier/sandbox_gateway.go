package supplier

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// SandboxGateway mimics the supplier's test environment: every accepted
// booking gets order id 0 and confirms after a fixed number of checks.
// A booking stops being tracked once it confirms.
//
// Partner order ids containing "3ds" ask for secondary authentication,
// ids containing "reject" are declined at finish time and ids containing
// "error" fail on the first status check.
type SandboxGateway struct {
	confirmAfter int

	mu     sync.Mutex
	checks map[string]int
}

// NewSandboxGateway creates a sandbox gateway that reports PROCESSING
// confirmAfter times before confirming
func NewSandboxGateway(confirmAfter int) *SandboxGateway {
	if confirmAfter < 0 {
		confirmAfter = 0
	}
	return &SandboxGateway{
		confirmAfter: confirmAfter,
		checks:       make(map[string]int),
	}
}

// GetName returns the name of this gateway
func (g *SandboxGateway) GetName() string {
	return "supplier_sandbox"
}

// FinishBooking accepts everything except ids marked "reject"
func (g *SandboxGateway) FinishBooking(ctx context.Context, req FinishBookingRequest) (*FinishBookingResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSupplierUnavailable, err)
	}
	if strings.Contains(strings.ToLower(req.PartnerOrderID), "reject") {
		return &FinishBookingResult{Success: false, Error: "insufficient_funds"}, nil
	}

	g.mu.Lock()
	g.checks[req.PartnerOrderID] = 0
	g.mu.Unlock()

	return &FinishBookingResult{
		Success: true,
		OrderID: 0,
		ItemID:  "SBX-" + req.PartnerOrderID,
	}, nil
}

// CheckStatus walks PROCESSING -> CONFIRMED per partner order id. Ids that
// are not tracked report CONFIRMED.
func (g *SandboxGateway) CheckStatus(ctx context.Context, partnerOrderID string) (*StatusResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSupplierUnavailable, err)
	}

	lower := strings.ToLower(partnerOrderID)
	switch {
	case strings.Contains(lower, "3ds"):
		return &StatusResult{
			Status: StatusRequires3DS,
			Payload: map[string]interface{}{
				"challengeUrl": "https://sandbox.supplier.invalid/3ds/" + partnerOrderID,
			},
		}, nil
	case strings.Contains(lower, "error"):
		return &StatusResult{Status: StatusError, Error: "sandbox_booking_error"}, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// Only bookings still walking towards confirmation are tracked. Ids not
	// in the map were confirmed already or finished before a restart.
	n, tracked := g.checks[partnerOrderID]
	if tracked && n < g.confirmAfter {
		g.checks[partnerOrderID] = n + 1
		return &StatusResult{Status: StatusProcessing}, nil
	}
	delete(g.checks, partnerOrderID)
	return &StatusResult{Status: StatusConfirmed}, nil
}

// GetOrderInfo returns a deterministic confirmation number for real order ids
func (g *SandboxGateway) GetOrderInfo(ctx context.Context, orderID int64) (*OrderInfo, error) {
	if orderID <= 0 {
		return &OrderInfo{Success: false}, nil
	}
	return &OrderInfo{Success: true, ConfirmationNumber: fmt.Sprintf("SBX-CONF-%d", orderID)}, nil
}
