package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vantazh/vantazh-go/internal/datastore"
	"github.com/vantazh/vantazh-go/internal/errors"
	"github.com/vantazh/vantazh-go/internal/observability"
)

const defaultChannelTimeout = 15 * time.Second

// Dispatcher owns the three delivery channels. Each method performs one
// attempt for one recipient, reports its own outcome, and never panics or
// retries; callers decide what a failure means. A failure in one channel
// must not prevent the other channels from being attempted, so the methods
// share no state beyond the injected collaborators.
type Dispatcher struct {
	store          Store
	push           PushSender
	email          EmailSender
	metrics        *observability.DispatchMetrics
	logger         *slog.Logger
	channelTimeout time.Duration
}

// NewDispatcher wires the channel dispatcher. Push and email senders may
// be nil when the corresponding channel is disabled in configuration.
func NewDispatcher(store Store, push PushSender, email EmailSender, metrics *observability.DispatchMetrics, channelTimeout time.Duration, debug bool) *Dispatcher {
	if channelTimeout <= 0 {
		channelTimeout = defaultChannelTimeout
	}
	return &Dispatcher{
		store:          store,
		push:           push,
		email:          email,
		metrics:        metrics,
		logger:         getFileLogger(debug),
		channelTimeout: channelTimeout,
	}
}

// PushEnabled reports whether a push sender is configured.
func (d *Dispatcher) PushEnabled() bool { return d.push != nil }

// EmailEnabled reports whether an email sender is configured.
func (d *Dispatcher) EmailEnabled() bool { return d.email != nil }

// RecordInApp persists one in-app notification record.
func (d *Dispatcher) RecordInApp(ctx context.Context, recipientID, title, body, targetURL, kind string) error {
	ctx, cancel := context.WithTimeout(ctx, d.channelTimeout)
	defer cancel()

	rec := &datastore.NotificationRecord{
		ID:          uuid.New().String(),
		RecipientID: recipientID,
		Title:       title,
		Body:        body,
		TargetURL:   targetURL,
		Kind:        kind,
	}
	if err := d.store.SaveNotification(ctx, rec); err != nil {
		d.logger.Error("in-app record failed",
			"recipient_id", recipientID,
			"kind", kind,
			"error", err)
		d.metrics.RecordDelivery("in_app", false)
		return err
	}
	d.metrics.RecordDelivery("in_app", true)
	return nil
}

// DeliverPush performs a single delivery attempt to one push subscription.
// The subscription is never revoked here regardless of the response.
func (d *Dispatcher) DeliverPush(ctx context.Context, sub *datastore.PushSubscription, payload PushPayload) error {
	if d.push == nil {
		return errors.Newf("push channel is disabled").
			Component("notify").
			Category(errors.CategoryPushDelivery).
			Build()
	}

	ctx, cancel := context.WithTimeout(ctx, d.channelTimeout)
	defer cancel()

	data, err := json.Marshal(payload)
	if err != nil {
		d.metrics.RecordDelivery("push", false)
		return errors.New(err).
			Component("notify").
			Category(errors.CategoryPushDelivery).
			Context("stage", "marshal").
			Build()
	}

	if err := d.push.Send(ctx, sub.Endpoint, sub.P256dh, sub.Auth, data); err != nil {
		d.logger.Warn("push delivery failed",
			"recipient_id", sub.RecipientID,
			"subscription_id", sub.ID,
			"error", err)
		d.metrics.RecordDelivery("push", false)
		return err
	}
	d.metrics.RecordDelivery("push", true)
	return nil
}

// DeliverEmail invokes the email collaborator once for one recipient.
func (d *Dispatcher) DeliverEmail(ctx context.Context, to, kind, title, body, targetURL string) error {
	if d.email == nil {
		return errors.Newf("email channel is disabled").
			Component("notify").
			Category(errors.CategoryEmailDelivery).
			Build()
	}

	ctx, cancel := context.WithTimeout(ctx, d.channelTimeout)
	defer cancel()

	if err := d.email.Send(ctx, to, kind, title, body, targetURL); err != nil {
		d.logger.Warn("email delivery failed",
			"recipient", to,
			"kind", kind,
			"error", err)
		d.metrics.RecordDelivery("email", false)
		return err
	}
	d.metrics.RecordDelivery("email", true)
	return nil
}
