package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vantazh/vantazh-go/internal/datastore"
	"github.com/vantazh/vantazh-go/internal/errors"
	"github.com/vantazh/vantazh-go/internal/observability"
)

// Broadcaster fans a newly created order out to every eligible carrier.
// One call per order creation event; the broadcaster owns the full
// fan-out and returns the aggregate outcome.
type Broadcaster struct {
	store     Store
	dispatch  *Dispatcher
	announcer OutcomePublisher // optional ops announcer
	workers   int
	logger    *slog.Logger
	metrics   *observability.DispatchMetrics
}

// BroadcasterConfig holds fan-out tuning.
type BroadcasterConfig struct {
	// Workers bounds concurrent recipient dispatch; 1 means sequential.
	Workers int
	Debug   bool
}

// NewBroadcaster wires the orchestrator with its collaborators. The
// announcer may be nil.
func NewBroadcaster(store Store, dispatch *Dispatcher, metrics *observability.DispatchMetrics, announcer OutcomePublisher, cfg *BroadcasterConfig) *Broadcaster {
	workers := 1
	debug := false
	if cfg != nil {
		if cfg.Workers > 0 {
			workers = cfg.Workers
		}
		debug = cfg.Debug
	}
	return &Broadcaster{
		store:     store,
		dispatch:  dispatch,
		announcer: announcer,
		workers:   workers,
		logger:    getFileLogger(debug),
		metrics:   metrics,
	}
}

// BroadcastNewOrder loads the order, filters the carrier roster through
// each carrier's preference profile, and dispatches all three channels to
// every match. Only a missing order (or a failed roster/profile lookup) is
// fatal; every per-recipient failure is absorbed into the outcome
// counters. Every carrier is processed even if earlier carriers' channel
// calls failed.
func (b *Broadcaster) BroadcastNewOrder(ctx context.Context, orderID uint) (DispatchOutcome, error) {
	started := time.Now()

	order, err := b.store.GetOrder(ctx, orderID)
	if err != nil {
		return DispatchOutcome{}, err
	}

	carrierIDs, err := b.store.ListCarrierIDs(ctx)
	if err != nil {
		return DispatchOutcome{}, errors.New(err).
			Component("notify").
			Category(errors.CategoryBroadcast).
			Context("stage", "roster").
			Build()
	}

	profiles, err := b.store.GetPreferenceProfiles(ctx, carrierIDs)
	if err != nil {
		return DispatchOutcome{}, errors.New(err).
			Component("notify").
			Category(errors.CategoryBroadcast).
			Context("stage", "profiles").
			Build()
	}

	title, body := orderMessage(order)
	targetURL := fmt.Sprintf("/orders/%d", order.ID)

	agg := &outcomeAggregator{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for _, carrierID := range carrierIDs {
		// a carrier must never be notified about their own posting;
		// self is excluded before any counter changes
		if carrierID == order.ClientID {
			continue
		}
		agg.considered.Add(1)

		g.Go(func() error {
			if !Matches(order, profiles[carrierID]) {
				agg.skipped.Add(1)
				return nil
			}
			agg.matched.Add(1)
			b.notifyCarrier(gctx, carrierID, title, body, targetURL, agg)
			// recipient failures are absorbed, never propagated
			return nil
		})
	}
	_ = g.Wait()

	outcome := agg.snapshot()

	if b.metrics != nil {
		b.metrics.BroadcastsTotal.Inc()
		b.metrics.BroadcastDuration.Observe(time.Since(started).Seconds())
		b.metrics.CarriersMatched.Add(float64(outcome.MatchedCarriers))
		b.metrics.CarriersSkipped.Add(float64(outcome.SkippedCarriers))
	}

	b.logger.Info("order broadcast completed",
		"order_id", orderID,
		"considered", outcome.ConsideredCarriers,
		"notified", outcome.MatchedCarriers,
		"skipped", outcome.SkippedCarriers,
		"push_attempts", outcome.PushAttempts,
		"push_successes", outcome.PushSuccesses,
		"email_successes", outcome.EmailSuccesses,
		"duration_ms", time.Since(started).Milliseconds())

	if b.announcer != nil {
		if err := b.announcer.PublishOutcome(ctx, orderID, outcome); err != nil {
			b.logger.Warn("outcome announce failed", "order_id", orderID, "error", err)
		}
	}

	return outcome, nil
}

// notifyCarrier runs all three channels for one matched carrier. The
// channels have no ordering dependency on one another; each reports its
// own outcome and a failure in one never blocks the next.
func (b *Broadcaster) notifyCarrier(ctx context.Context, carrierID, title, body, targetURL string, agg *outcomeAggregator) {
	// in-app record; failure is logged inside the dispatcher
	_ = b.dispatch.RecordInApp(ctx, carrierID, title, body, targetURL, datastore.KindNewOrder)

	if b.dispatch.PushEnabled() {
		subs, err := b.store.GetPushSubscriptions(ctx, carrierID)
		if err != nil {
			b.logger.Warn("subscription lookup failed",
				"carrier_id", carrierID,
				"error", err)
		} else {
			payload := PushPayload{Title: title, Body: body, URL: targetURL, Kind: datastore.KindNewOrder}
			for i := range subs {
				agg.pushAttempts.Add(1)
				if err := b.dispatch.DeliverPush(ctx, &subs[i], payload); err == nil {
					agg.pushSuccesses.Add(1)
				}
			}
		}
	}

	if b.dispatch.EmailEnabled() {
		carrier, err := b.store.GetCarrier(ctx, carrierID)
		switch {
		case err != nil:
			b.logger.Warn("carrier lookup for email failed",
				"carrier_id", carrierID,
				"error", err)
		case carrier.Email == "":
			b.logger.Debug("carrier has no email address", "carrier_id", carrierID)
		default:
			if err := b.dispatch.DeliverEmail(ctx, carrier.Email, datastore.KindNewOrder, title, body, targetURL); err == nil {
				agg.emailSuccesses.Add(1)
			}
		}
	}
}

// orderMessage builds the broadcast title and body from the order fields.
// Missing optional fields are simply left out.
func orderMessage(order *datastore.Order) (title, body string) {
	title = "Нове замовлення"
	if cargo := strings.TrimSpace(order.CargoType); cargo != "" {
		title = "Нове замовлення: " + cargo
	}

	parts := []string{fmt.Sprintf("%s → %s", order.PickupAddress, order.DeliveryAddress)}
	if order.Weight != nil && *order.Weight > 0 {
		parts = append(parts, fmt.Sprintf("%.1f т", *order.Weight/1000))
	}
	if order.DeclaredPrice != nil && *order.DeclaredPrice > 0 {
		parts = append(parts, fmt.Sprintf("%.0f грн", *order.DeclaredPrice))
	}
	return title, strings.Join(parts, ", ")
}
