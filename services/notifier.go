package services

import (
	"context"
	"errors"
	"time"
)

// NotificationEventScored is the type carried by scoring notifications
const NotificationEventScored = "event.scored"

// Notification is a message pushed to subscribers after a state change
type Notification struct {
	Type               string    `json:"type"`
	EventID            string    `json:"eventId"`
	UsersScored        int       `json:"usersScored"`
	MembershipsUpdated int       `json:"membershipsUpdated"`
	Timestamp          time.Time `json:"timestamp"`
}

// Notifier delivers notifications. Callers treat delivery as best effort.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NoopNotifier drops every notification
type NoopNotifier struct{}

// Notify does nothing
func (NoopNotifier) Notify(context.Context, Notification) error { return nil }

// MultiNotifier fans a notification out to several notifiers
type MultiNotifier []Notifier

// Notify delivers to every notifier and joins their errors
func (m MultiNotifier) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
