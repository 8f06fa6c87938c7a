package notify

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/vantazh/vantazh-go/internal/datastore"
	"github.com/vantazh/vantazh-go/internal/observability"
)

// Tier is a proximity-alert urgency level derived from the distance
// between a carrier's live position and the delivery point.
type Tier string

const (
	// TierNone means the carrier is too far away for an alert.
	TierNone Tier = ""
	// TierArrival: arrival imminent, at most 0.5 km away.
	TierArrival Tier = "arrival"
	// TierNear: within 1 km.
	TierNear Tier = "near"
	// TierApproaching: within 5 km.
	TierApproaching Tier = "approaching"
)

// ClassifyDistance maps a distance sample to an alert tier. Boundaries are
// inclusive on the lower tier: exactly 0.5 km is arrival, not near.
// Anything beyond 5 km is intentionally silent.
func ClassifyDistance(distanceKm float64) Tier {
	switch {
	case distanceKm <= 0.5:
		return TierArrival
	case distanceKm <= 1:
		return TierNear
	case distanceKm <= 5:
		return TierApproaching
	default:
		return TierNone
	}
}

// Message renders the alert title and body for a tier. The approaching
// tier includes the distance rounded to whole kilometers.
func (t Tier) Message(carrierName string, distanceKm float64) (title, body string) {
	switch t {
	case TierArrival:
		return "Водій прибуває", fmt.Sprintf("%s майже на місці доставки", carrierName)
	case TierNear:
		return "Водій поруч", fmt.Sprintf("%s менш ніж за кілометр від точки доставки", carrierName)
	case TierApproaching:
		return "Водій наближається", fmt.Sprintf("%s за %d км від точки доставки", carrierName, int(math.Round(distanceKm)))
	default:
		return "", ""
	}
}

// ProximityNotifier raises tiered alerts for the client of a deal as the
// carrier's position stream updates. It is independent of the broadcast
// orchestrator and shares only the channel dispatcher. The notifier keeps
// no memory of prior alerts: a carrier hovering inside a tier re-triggers
// it on every sample, and the live-tracking caller controls the cadence.
type ProximityNotifier struct {
	store    Store
	dispatch *Dispatcher
	logger   *slog.Logger
	metrics  *observability.DispatchMetrics
}

// NewProximityNotifier wires the notifier with its collaborators.
func NewProximityNotifier(store Store, dispatch *Dispatcher, metrics *observability.DispatchMetrics, debug bool) *ProximityNotifier {
	return &ProximityNotifier{
		store:    store,
		dispatch: dispatch,
		logger:   getFileLogger(debug),
		metrics:  metrics,
	}
}

// OnDistanceSample classifies one distance sample and, when a tier
// resolves, notifies the deal's client in-app and on every push
// subscription. Channel failures are logged and absorbed; the resolved
// tier is returned so the caller can adjust its sampling cadence.
func (p *ProximityNotifier) OnDistanceSample(ctx context.Context, dealID uint, clientID, carrierName string, distanceKm float64) Tier {
	tier := ClassifyDistance(distanceKm)
	if tier == TierNone {
		return TierNone
	}

	title, body := tier.Message(carrierName, distanceKm)
	targetURL := fmt.Sprintf("/deals/%d/track", dealID)

	if p.metrics != nil {
		p.metrics.ProximityAlertTotal.WithLabelValues(string(tier)).Inc()
	}
	p.logger.Info("proximity alert triggered",
		"deal_id", dealID,
		"client_id", clientID,
		"tier", tier,
		"distance_km", distanceKm)

	if err := p.dispatch.RecordInApp(ctx, clientID, title, body, targetURL, datastore.KindProximity); err != nil {
		p.logger.Error("proximity in-app record failed",
			"deal_id", dealID,
			"client_id", clientID,
			"error", err)
	}

	payload := PushPayload{Title: title, Body: body, URL: targetURL, Kind: datastore.KindProximity}
	subs, err := p.store.GetPushSubscriptions(ctx, clientID)
	if err != nil {
		p.logger.Error("proximity subscription lookup failed",
			"deal_id", dealID,
			"client_id", clientID,
			"error", err)
		return tier
	}
	for i := range subs {
		if err := p.dispatch.DeliverPush(ctx, &subs[i], payload); err != nil {
			p.logger.Warn("proximity push delivery failed",
				"deal_id", dealID,
				"client_id", clientID,
				"endpoint_index", i,
				"error", err)
		}
	}

	return tier
}
