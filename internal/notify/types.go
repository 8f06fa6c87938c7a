// Package notify implements the order broadcast and delivery-proximity
// notification engine: it decides which carriers hear about a new order,
// fans the notification out across the in-app, push, and email channels
// with per-recipient isolation, and raises tiered alerts as a carrier
// approaches a delivery point.
package notify

import (
	"context"
	"sync/atomic"

	"github.com/vantazh/vantazh-go/internal/datastore"
)

// Store is the data collaborator consumed by the engine. The production
// implementation is the GORM datastore; tests substitute fakes.
type Store interface {
	GetOrder(ctx context.Context, id uint) (*datastore.Order, error)
	ListCarrierIDs(ctx context.Context) ([]string, error)
	GetCarrier(ctx context.Context, carrierID string) (*datastore.Carrier, error)
	GetPreferenceProfiles(ctx context.Context, carrierIDs []string) (map[string]*datastore.CarrierProfile, error)
	GetPushSubscriptions(ctx context.Context, recipientID string) ([]datastore.PushSubscription, error)
	SaveNotification(ctx context.Context, rec *datastore.NotificationRecord) error
}

// PushSender performs a single delivery attempt to a push endpoint.
type PushSender interface {
	Send(ctx context.Context, endpoint, p256dh, auth string, payload []byte) error
}

// EmailSender is the opaque email collaborator.
type EmailSender interface {
	Send(ctx context.Context, to, kind, title, body, targetURL string) error
}

// OutcomePublisher receives the aggregate of a finished broadcast. Used by
// the optional MQTT ops announcer; failures never affect the outcome.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, orderID uint, outcome DispatchOutcome) error
}

// PushPayload is the JSON document delivered to push endpoints.
type PushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
	Kind  string `json:"kind"`
}

// DispatchOutcome aggregates one broadcast. ConsideredCarriers excludes the
// order's author; MatchedCarriers + SkippedCarriers always equals
// ConsideredCarriers.
type DispatchOutcome struct {
	ConsideredCarriers int `json:"considered"`
	MatchedCarriers    int `json:"notified"`
	SkippedCarriers    int `json:"skipped"`
	PushAttempts       int `json:"pushAttempts"`
	PushSuccesses      int `json:"pushSuccesses"`
	EmailSuccesses     int `json:"emailSuccesses"`
}

// outcomeAggregator collects counters from concurrently dispatched
// recipients. Atomic increments are the only shared mutable state in a
// broadcast.
type outcomeAggregator struct {
	considered     atomic.Int64
	matched        atomic.Int64
	skipped        atomic.Int64
	pushAttempts   atomic.Int64
	pushSuccesses  atomic.Int64
	emailSuccesses atomic.Int64
}

func (a *outcomeAggregator) snapshot() DispatchOutcome {
	return DispatchOutcome{
		ConsideredCarriers: int(a.considered.Load()),
		MatchedCarriers:    int(a.matched.Load()),
		SkippedCarriers:    int(a.skipped.Load()),
		PushAttempts:       int(a.pushAttempts.Load()),
		PushSuccesses:      int(a.pushSuccesses.Load()),
		EmailSuccesses:     int(a.emailSuccesses.Load()),
	}
}
