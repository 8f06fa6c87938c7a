package notify

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/vantazh/vantazh-go/internal/datastore"
)

// Matches reports whether an order satisfies a carrier's preference
// profile. A nil profile, or one with NotifyAll set, accepts every order
// unconditionally. Otherwise the cargo-type, route, and weight gates are
// ANDed: any failing gate rejects the order.
//
// The function is total: malformed or missing fields always degrade to the
// most permissive interpretation, never to an error.
func Matches(order *datastore.Order, profile *datastore.CarrierProfile) bool {
	if profile == nil || profile.NotifyAll {
		return true
	}

	fold := cases.Fold()

	if !cargoGate(fold, order.CargoType, profile.PreferredCargoTypes) {
		return false
	}
	if !routeGate(fold, order.PickupAddress, order.DeliveryAddress, profile.PreferredRoutes) {
		return false
	}
	return weightGate(order.Weight, profile.MinWeight, profile.MaxWeight)
}

// cargoGate passes when the folded cargo type contains any folded preferred
// entry as a substring. Entries that fold to the empty string are ignored;
// a list with no usable entries leaves the gate inactive.
func cargoGate(fold cases.Caser, cargoType string, preferred datastore.StringList) bool {
	if len(preferred) == 0 {
		return true
	}
	cargo := fold.String(cargoType)
	active := false
	for _, entry := range preferred {
		want := strings.TrimSpace(fold.String(entry))
		if want == "" {
			continue
		}
		active = true
		if strings.Contains(cargo, want) {
			return true
		}
	}
	return !active
}

// routeGate passes when any folded route string appears in the folded
// pickup or delivery address.
func routeGate(fold cases.Caser, pickup, delivery string, routes datastore.StringList) bool {
	if len(routes) == 0 {
		return true
	}
	pickupFolded := fold.String(pickup)
	deliveryFolded := fold.String(delivery)
	active := false
	for _, route := range routes {
		want := strings.TrimSpace(fold.String(route))
		if want == "" {
			continue
		}
		active = true
		if strings.Contains(pickupFolded, want) || strings.Contains(deliveryFolded, want) {
			return true
		}
	}
	return !active
}

// weightGate checks inclusive weight bounds. A missing order weight counts
// as zero.
func weightGate(weight, minWeight, maxWeight *float64) bool {
	w := 0.0
	if weight != nil {
		w = *weight
	}
	if minWeight != nil && w < *minWeight {
		return false
	}
	if maxWeight != nil && w > *maxWeight {
		return false
	}
	return true
}
