// Package app builds the booking confirmation object graph from configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/staybridge/booking-confirmation/internal/config"
	"github.com/staybridge/booking-confirmation/internal/database"
	"github.com/staybridge/booking-confirmation/internal/events"
	"github.com/staybridge/booking-confirmation/internal/services"
	"github.com/staybridge/booking-confirmation/pkg/email"
	"github.com/staybridge/booking-confirmation/pkg/sms"
	"github.com/staybridge/booking-confirmation/pkg/supplier"
)

// App holds the wired components shared by the server and bookingctl
type App struct {
	DB           *database.PostgresDB
	Reservations *database.ReservationRepository
	Audits       *database.BookingAuditRepository
	Gateway      supplier.Gateway
	Mailer       email.Sender
	SMS          sms.SMSGateway
	Publisher    *events.Publisher
	Orchestrator *services.BookingOrchestratorService
	Cron         *services.CronService
	RateLimiter  *services.RateLimitService // nil when finalize throttling is off
}

// New connects to the database and wires every service
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	db, err := database.NewConnection(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	publisher, err := newEventPublisher(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	a := &App{
		DB:           db,
		Reservations: database.NewReservationRepository(db),
		Audits:       database.NewBookingAuditRepository(db, logger),
		Gateway:      newSupplierGateway(cfg, logger),
		Mailer:       newEmailSender(cfg, logger),
		SMS:          newSMSGateway(cfg, logger),
		Publisher:    publisher,
	}

	auditService := services.NewAuditService(a.Audits, cfg.Security.EnableAuditLog, logger)
	accounts := services.NewAccountResolver(database.NewCustomerRepository(db), cfg.Security.BcryptCost, logger)

	// keep a nil *Publisher from becoming a non-nil interface
	var eventPublisher services.EventPublisher
	if publisher != nil {
		eventPublisher = publisher
	}
	notifier := services.NewNotificationDispatcher(a.Mailer, a.SMS, eventPublisher, auditService, logger)

	a.Orchestrator = services.NewBookingOrchestratorService(
		accounts,
		a.Gateway,
		a.Reservations,
		notifier,
		auditService,
		services.SystemClock{},
		services.BookingOrchestratorConfig{
			Poll: services.PollPolicy{
				InitialDelay:  cfg.Polling.InitialDelay,
				Interval:      cfg.Polling.Interval,
				MaxIterations: cfg.Polling.MaxIterations,
			},
		},
		logger,
	)

	a.Cron = services.NewCronService(a.Reservations, a.Orchestrator, services.ReconciliationConfig{
		Schedule:    cfg.Reconciliation.Schedule,
		GracePeriod: cfg.Reconciliation.GracePeriod,
		BatchSize:   cfg.Reconciliation.BatchSize,
	}, logger)

	if cfg.RateLimit.Enabled {
		a.RateLimiter = services.NewRateLimitService(db, services.RateLimitConfig{
			MaxPartnerRequests: cfg.RateLimit.MaxPartnerRequests,
			PartnerWindow:      cfg.RateLimit.PartnerWindow,
			MaxIPRequests:      cfg.RateLimit.MaxIPRequests,
			IPWindow:           cfg.RateLimit.IPWindow,
		})
	}

	return a, nil
}

// Close releases the database pool
func (a *App) Close() error {
	return a.DB.Close()
}

func newSupplierGateway(cfg *config.Config, logger *logrus.Logger) supplier.Gateway {
	if cfg.Supplier.Mode == "live" {
		return supplier.NewHTTPGateway(supplier.HTTPConfig{
			BaseURL:        cfg.Supplier.BaseURL,
			APIKey:         cfg.Supplier.APIKey,
			RequestTimeout: cfg.Supplier.RequestTimeout,
		}, logger)
	}
	logger.Warn("Supplier running in SANDBOX mode - bookings are simulated")
	return supplier.NewSandboxGateway(cfg.Supplier.SandboxConfirmAfter)
}

func newEmailSender(cfg *config.Config, logger *logrus.Logger) email.Sender {
	if cfg.Email.Mode == "production" {
		return email.NewSendGridSender(email.SendGridConfig{
			APIKey:    cfg.Email.APIKey,
			FromEmail: cfg.Email.FromEmail,
			FromName:  cfg.Email.FromName,
		}, logger)
	}
	return email.NewLogSender(logger)
}

func newSMSGateway(cfg *config.Config, logger *logrus.Logger) sms.SMSGateway {
	if !cfg.SMS.Enabled {
		return nil
	}
	if cfg.SMS.Mode == "production" {
		return sms.NewRESTGateway(sms.RESTConfig{
			APIURL:   cfg.SMS.APIURL,
			Username: cfg.SMS.Username,
			Password: cfg.SMS.Password,
			Mask:     cfg.SMS.Mask,
		}, logger)
	}
	return sms.NewDevGateway(logger)
}

func newEventPublisher(ctx context.Context, cfg *config.Config) (*events.Publisher, error) {
	if !cfg.Events.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	publisher, err := events.NewSQSPublisher(ctx, cfg.Events.AWSRegion, cfg.Events.QueueURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize booking event publisher: %w", err)
	}
	return publisher, nil
}
