package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/staybridge/booking-confirmation/internal/models"
	"github.com/staybridge/booking-confirmation/pkg/supplier"
)

// EnrichmentFetcher looks up the supplier confirmation number for a
// confirmed booking. It is best effort: any failure yields "".
type EnrichmentFetcher struct {
	gateway supplier.Gateway
	audit   *AuditService
	logger  *logrus.Logger
}

// NewEnrichmentFetcher creates an enrichment fetcher
func NewEnrichmentFetcher(gateway supplier.Gateway, audit *AuditService, logger *logrus.Logger) *EnrichmentFetcher {
	return &EnrichmentFetcher{
		gateway: gateway,
		audit:   audit,
		logger:  logger,
	}
}

// Fetch returns the confirmation number for orderID, or "" when it cannot be
// retrieved. Sandbox order ids (<= 0) are skipped without calling the supplier.
func (f *EnrichmentFetcher) Fetch(ctx context.Context, partnerOrderID string, orderID int64) string {
	if orderID <= 0 {
		return ""
	}

	var confirmationNumber string
	step := nonCriticalStep{
		name:           "enrichment",
		partnerOrderID: partnerOrderID,
		event:          models.BookingEventEnrichmentFailed,
		logger:         f.logger,
		audit:          f.audit,
	}
	_ = step.run(ctx, func() error {
		info, err := f.gateway.GetOrderInfo(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to get order info: %w", err)
		}
		if info == nil || !info.Success || info.ConfirmationNumber == "" {
			return fmt.Errorf("order %d has no confirmation number", orderID)
		}
		confirmationNumber = info.ConfirmationNumber
		return nil
	})

	return confirmationNumber
}
