// Package events publishes booking lifecycle events to SQS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"
)

// EventBookingConfirmed is published once a booking is confirmed
const EventBookingConfirmed = "booking.confirmed"

// SQSAPI is the subset of the SQS client used by the publisher
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// BookingEvent is the message body
type BookingEvent struct {
	EventID            string    `json:"eventId"`
	EventType          string    `json:"eventType"`
	PartnerOrderID     string    `json:"partnerOrderId"`
	SupplierIdentifier string    `json:"supplierIdentifier"`
	CustomerID         string    `json:"customerId"`
	Status             string    `json:"status"`
	ConfirmationNumber string    `json:"confirmationNumber,omitempty"`
	OccurredAt         time.Time `json:"occurredAt"`
}

// Publisher wraps an SQS client and a queue URL
type Publisher struct {
	sqs      SQSAPI
	queueURL string
	now      func() time.Time
}

// NewPublisher returns a Publisher bound to a queue URL
func NewPublisher(client SQSAPI, queueURL string) *Publisher {
	return &Publisher{
		sqs:      client,
		queueURL: queueURL,
		now:      time.Now,
	}
}

// NewSQSPublisher loads the default AWS config for region and builds a Publisher
func NewSQSPublisher(ctx context.Context, region, queueURL string) (*Publisher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewPublisher(sqs.NewFromConfig(cfg), queueURL), nil
}

// Publish sends one event. EventID and OccurredAt are filled in when empty.
// The partner order id doubles as the FIFO deduplication key.
func (p *Publisher) Publish(ctx context.Context, event BookingEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal booking event: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    sdkaws.String(p.queueURL),
		MessageBody: sdkaws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"eventType": {
				DataType:    sdkaws.String("String"),
				StringValue: sdkaws.String(event.EventType),
			},
			"partnerOrderId": {
				DataType:    sdkaws.String("String"),
				StringValue: sdkaws.String(event.PartnerOrderID),
			},
		},
	}
	if isFIFO(p.queueURL) {
		input.MessageGroupId = sdkaws.String(event.PartnerOrderID)
		input.MessageDeduplicationId = sdkaws.String(event.EventType + ":" + event.PartnerOrderID)
	}

	if _, err := p.sqs.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func isFIFO(queueURL string) bool {
	return strings.HasSuffix(queueURL, ".fifo")
}
