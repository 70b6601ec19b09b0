package sms

import "context"

// SMSGateway defines the interface for sending SMS messages
type SMSGateway interface {
	// SendMessage sends a text to one E.164 phone number.
	// Returns the gateway transaction ID.
	SendMessage(ctx context.Context, phone, message string) (int64, error)

	// GetName returns the name of the SMS gateway implementation
	GetName() string
}
