// Package notify delivers notification outbox rows written by the API.
//
// The API (and in particular the winner-claim transaction) only inserts
// pending rows; the Worker polls them, attempts delivery through a
// Sender, retries with exponential backoff, and downgrades rows to
// plain in-app records once the bounded attempt budget is spent. A
// delivery failure can therefore never roll back or duplicate the state
// change that caused the notification.
package notify

import "context"

// Notification is one pending outbox row.
type Notification struct {
	ID       string
	TeamID   string
	Title    string
	Body     string
	Metadata string
	Attempts int
}

// Sender pushes a notification over some delivery channel (SSE broker,
// push gateway). Transient failures are retried by the Worker.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, n Notification) error

func (f SenderFunc) Send(ctx context.Context, n Notification) error { return f(ctx, n) }
