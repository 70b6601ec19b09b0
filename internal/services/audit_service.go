package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/staybridge/booking-confirmation/internal/models"
	"github.com/staybridge/booking-confirmation/internal/utils"
)

// AuditStore persists audit entries
type AuditStore interface {
	Log(ctx context.Context, audit *models.BookingAudit) error
}

// RequestMeta describes the partner call that started a booking step
type RequestMeta struct {
	PartnerID string
	IPAddress string
	UserAgent string
}

type requestMetaKey struct{}

// WithRequestMeta attaches caller metadata for audit entries
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

func requestMetaFrom(ctx context.Context) (RequestMeta, bool) {
	meta, ok := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta, ok
}

// CallerPartnerID returns the partner behind the request, or "" for
// operator and scheduled calls
func CallerPartnerID(ctx context.Context) string {
	meta, _ := requestMetaFrom(ctx)
	return meta.PartnerID
}

// AuditService records booking steps. Recording never fails the caller:
// write errors are logged and dropped.
type AuditService struct {
	store   AuditStore
	enabled bool
	logger  *logrus.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(store AuditStore, enabled bool, logger *logrus.Logger) *AuditService {
	return &AuditService{
		store:   store,
		enabled: enabled,
		logger:  logger,
	}
}

// AuditEntry is one event to record
type AuditEntry struct {
	PartnerOrderID string
	EventType      models.BookingEventType
	Source         models.BookingEventSource
	SupplierStatus string
	Attempt        int
	Details        map[string]interface{}
	Err            error
}

// Record writes an entry, enriching it with request metadata from ctx
func (s *AuditService) Record(ctx context.Context, entry AuditEntry) {
	if s == nil || !s.enabled || s.store == nil {
		return
	}

	audit := &models.BookingAudit{
		PartnerOrderID: entry.PartnerOrderID,
		EventType:      entry.EventType,
		EventSource:    entry.Source,
		Details:        entry.Details,
	}
	if audit.EventSource == "" {
		audit.EventSource = models.BookingSourceSystem
	}
	if entry.SupplierStatus != "" {
		status := entry.SupplierStatus
		audit.SupplierStatus = &status
	}
	if entry.Attempt > 0 {
		attempt := entry.Attempt
		audit.Attempt = &attempt
	}
	if entry.Err != nil {
		msg := entry.Err.Error()
		audit.ErrorMessage = &msg
	}

	if meta, ok := requestMetaFrom(ctx); ok {
		if meta.PartnerID != "" {
			audit.PartnerID = &meta.PartnerID
		}
		if meta.IPAddress != "" {
			audit.IPAddress = &meta.IPAddress
		}
		if meta.UserAgent != "" {
			audit.UserAgent = &meta.UserAgent
			audit.DeviceInfo = utils.ParseUserAgent(meta.UserAgent).ToMap()
		}
	}

	if err := s.store.Log(ctx, audit); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"partner_order_id": entry.PartnerOrderID,
			"event_type":       entry.EventType,
		}).Warn("Audit entry dropped")
	}
}
