package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/staybridge/booking-confirmation/internal/models"
)

// nonCriticalStep runs fn so that neither its error nor a panic escapes.
// Failures are logged and recorded to the audit trail, then returned for
// the caller's information only.
type nonCriticalStep struct {
	name           string
	partnerOrderID string
	event          models.BookingEventType
	logger         *logrus.Logger
	audit          *AuditService
}

func (s nonCriticalStep) run(ctx context.Context, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", s.name, r)
		}
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"partner_order_id": s.partnerOrderID,
				"step":             s.name,
			}).Warn("Non-critical step failed, continuing")
			s.audit.Record(ctx, AuditEntry{
				PartnerOrderID: s.partnerOrderID,
				EventType:      s.event,
				Source:         models.BookingSourceSystem,
				Details:        map[string]interface{}{"step": s.name},
				Err:            err,
			})
		}
	}()
	return fn()
}
