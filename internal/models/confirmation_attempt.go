package models

import "time"

// ConfirmationAttempt records one status check of the confirmation poll
type ConfirmationAttempt struct {
	Attempt   int       `json:"attempt"`
	RawStatus string    `json:"raw_status"`
	CheckedAt time.Time `json:"checked_at"`
	Err       string    `json:"error,omitempty"`
}
