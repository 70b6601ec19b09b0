package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/sirupsen/logrus"
	"github.com/staybridge/booking-confirmation/internal/events"
	"github.com/staybridge/booking-confirmation/internal/models"
	"github.com/staybridge/booking-confirmation/pkg/email"
	"github.com/staybridge/booking-confirmation/pkg/sms"
	"github.com/staybridge/booking-confirmation/pkg/validator"
)

// EventPublisher publishes booking lifecycle events
type EventPublisher interface {
	Publish(ctx context.Context, event events.BookingEvent) error
}

var confirmationEmail = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
<h2>Your stay is confirmed</h2>
<p>Hi {{.GuestFirstName}},</p>
<p>Your hotel booking has been confirmed by our partner. Keep this email for your records.</p>
<table cellpadding="4">
<tr><td><b>Booking reference</b></td><td>{{.PartnerOrderID}}</td></tr>
<tr><td><b>Supplier reference</b></td><td>{{.SupplierIdentifier}}</td></tr>
{{- if .ConfirmationNumber.Valid}}
<tr><td><b>Hotel confirmation number</b></td><td>{{.ConfirmationNumber.String}}</td></tr>
{{- end}}
<tr><td><b>Guest</b></td><td>{{.GuestFirstName}} {{.GuestLastName}}</td></tr>
{{- if .PaymentAmount.Valid}}
<tr><td><b>Amount</b></td><td>{{.PaymentAmount.String}} {{.PaymentCurrency.String}}</td></tr>
{{- end}}
</table>
<p>Questions about your stay? Reply to this email and quote your booking reference.</p>
</body>
</html>`))

// NotificationDispatcher tells the guest about a confirmed booking.
// Every channel is best effort and tried exactly once.
type NotificationDispatcher struct {
	mailer    email.Sender
	sms       sms.SMSGateway // optional
	publisher EventPublisher // optional
	phones    *validator.PhoneValidator
	audit     *AuditService
	logger    *logrus.Logger
}

// NewNotificationDispatcher creates a dispatcher. smsGateway and publisher may be nil.
func NewNotificationDispatcher(
	mailer email.Sender,
	smsGateway sms.SMSGateway,
	publisher EventPublisher,
	audit *AuditService,
	logger *logrus.Logger,
) *NotificationDispatcher {
	return &NotificationDispatcher{
		mailer:    mailer,
		sms:       smsGateway,
		publisher: publisher,
		phones:    validator.NewPhoneValidator(),
		audit:     audit,
		logger:    logger,
	}
}

// Dispatch sends the confirmation for a confirmed reservation. It never
// returns an error: channel failures are logged and audited.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, record *models.ReservationRecord) {
	step := func(name string) nonCriticalStep {
		return nonCriticalStep{
			name:           name,
			partnerOrderID: record.PartnerOrderID,
			event:          models.BookingEventNotificationFailed,
			logger:         d.logger,
			audit:          d.audit,
		}
	}

	// 1. Email
	_ = step("email").run(ctx, func() error {
		if d.mailer == nil {
			return fmt.Errorf("no email sender configured")
		}
		body, err := RenderConfirmationEmail(record)
		if err != nil {
			return err
		}
		subject := fmt.Sprintf("Booking confirmed: %s", record.PartnerOrderID)
		return d.mailer.Send(ctx, record.GuestEmail, subject, body)
	})

	// 2. SMS
	if d.sms != nil {
		_ = step("sms").run(ctx, func() error {
			phone, err := d.phones.Validate(record.GuestPhone)
			if err != nil {
				return fmt.Errorf("guest phone not usable for SMS: %w", err)
			}
			message := fmt.Sprintf("Your stay is confirmed. Booking ref %s.", record.PartnerOrderID)
			if record.ConfirmationNumber.Valid {
				message += " Hotel conf: " + record.ConfirmationNumber.String + "."
			}
			_, err = d.sms.SendMessage(ctx, phone, message)
			return err
		})
	}

	// 3. Booking event
	if d.publisher != nil {
		_ = step("event").run(ctx, func() error {
			return d.publisher.Publish(ctx, events.BookingEvent{
				EventType:          events.EventBookingConfirmed,
				PartnerOrderID:     record.PartnerOrderID,
				SupplierIdentifier: record.SupplierIdentifier,
				CustomerID:         record.UserID.String(),
				Status:             string(record.Status),
				ConfirmationNumber: record.ConfirmationNumber.String,
			})
		})
	}

	d.logger.WithField("partner_order_id", record.PartnerOrderID).Info("Confirmation notifications dispatched")
}

// RenderConfirmationEmail renders the HTML confirmation body
func RenderConfirmationEmail(record *models.ReservationRecord) (string, error) {
	var buf bytes.Buffer
	if err := confirmationEmail.Execute(&buf, record); err != nil {
		return "", fmt.Errorf("failed to render confirmation email: %w", err)
	}
	return buf.String(), nil
}
