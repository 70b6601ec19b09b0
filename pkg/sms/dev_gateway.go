package sms

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// DevGateway logs messages instead of sending them
type DevGateway struct {
	logger *logrus.Logger
}

// NewDevGateway creates a logging-only SMS gateway
func NewDevGateway(logger *logrus.Logger) *DevGateway {
	return &DevGateway{logger: logger}
}

// GetName returns the name of this gateway
func (g *DevGateway) GetName() string {
	return "dev_sms"
}

// SendMessage logs the message
func (g *DevGateway) SendMessage(ctx context.Context, phone, message string) (int64, error) {
	id := time.Now().UnixMicro()
	g.logger.WithFields(logrus.Fields{
		"phone":          phone,
		"transaction_id": id,
		"message":        message,
	}).Info("DEV MODE: SMS not sent")
	return id, nil
}
