// Package push delivers reminder notifications to user devices.
//
// A Sender hands one Message to a delivery backend. Errors wrapping
// ErrPermanent will never succeed on retry (unregistered or malformed
// token, rejected credentials); every other error is transient.
package push

import (
	"context"
	"errors"
)

// ErrPermanent marks delivery errors that must not be retried.
var ErrPermanent = errors.New("permanent delivery failure")

// Message is one notification addressed to one device.
type Message struct {
	ID       string            `json:"id"`
	Token    string            `json:"token"`
	Platform string            `json:"platform"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// IsPermanent reports whether err should not be retried.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}
