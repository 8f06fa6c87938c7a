package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/vantazh/vantazh-go/internal/datastore"
	"github.com/vantazh/vantazh-go/internal/errors"
)

// fakeStore is an in-memory Store implementation. All methods are safe for
// concurrent use because the broadcaster may dispatch recipients in
// parallel.
type fakeStore struct {
	mu            sync.Mutex
	orders        map[uint]*datastore.Order
	carriers      []datastore.Carrier
	profiles      map[string]*datastore.CarrierProfile
	subscriptions map[string][]datastore.PushSubscription
	notifications []datastore.NotificationRecord

	failSaveFor     map[string]bool // recipient IDs whose in-app save fails
	rosterErr       error
	profilesErr     error
	subscriptionErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:        make(map[uint]*datastore.Order),
		profiles:      make(map[string]*datastore.CarrierProfile),
		subscriptions: make(map[string][]datastore.PushSubscription),
		failSaveFor:   make(map[string]bool),
	}
}

func (f *fakeStore) addOrder(order *datastore.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[order.ID] = order
}

func (f *fakeStore) addCarrier(carrierID, name, email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.carriers = append(f.carriers, datastore.Carrier{CarrierID: carrierID, Name: name, Email: email})
}

func (f *fakeStore) addProfile(carrierID string, profile *datastore.CarrierProfile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile.CarrierID = carrierID
	f.profiles[carrierID] = profile
}

func (f *fakeStore) addSubscription(recipientID, endpoint string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscriptions[recipientID] = append(f.subscriptions[recipientID], datastore.PushSubscription{
		ID:          uint(len(f.subscriptions[recipientID]) + 1),
		RecipientID: recipientID,
		Endpoint:    endpoint,
		P256dh:      "key",
		Auth:        "auth",
	})
}

func (f *fakeStore) savedNotifications() []datastore.NotificationRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]datastore.NotificationRecord, len(f.notifications))
	copy(out, f.notifications)
	return out
}

func (f *fakeStore) GetOrder(_ context.Context, id uint) (*datastore.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, errors.Newf("order %d not found", id).
			Component("fake-store").
			Category(errors.CategoryNotFound).
			Build()
	}
	return order, nil
}

func (f *fakeStore) ListCarrierIDs(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rosterErr != nil {
		return nil, f.rosterErr
	}
	ids := make([]string, 0, len(f.carriers))
	for _, c := range f.carriers {
		ids = append(ids, c.CarrierID)
	}
	return ids, nil
}

func (f *fakeStore) GetCarrier(_ context.Context, carrierID string) (*datastore.Carrier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.carriers {
		if f.carriers[i].CarrierID == carrierID {
			return &f.carriers[i], nil
		}
	}
	return nil, errors.Newf("carrier %s not found", carrierID).
		Component("fake-store").
		Category(errors.CategoryNotFound).
		Build()
}

func (f *fakeStore) GetPreferenceProfiles(_ context.Context, carrierIDs []string) (map[string]*datastore.CarrierProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.profilesErr != nil {
		return nil, f.profilesErr
	}
	out := make(map[string]*datastore.CarrierProfile)
	for _, id := range carrierIDs {
		if p, ok := f.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeStore) GetPushSubscriptions(_ context.Context, recipientID string) ([]datastore.PushSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscriptionErr != nil {
		return nil, f.subscriptionErr
	}
	return f.subscriptions[recipientID], nil
}

func (f *fakeStore) SaveNotification(_ context.Context, rec *datastore.NotificationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSaveFor[rec.RecipientID] {
		return errors.Newf("store unavailable").
			Component("fake-store").
			Category(errors.CategoryDatabase).
			Build()
	}
	f.notifications = append(f.notifications, *rec)
	return nil
}

// fakePushSender records deliveries and can fail for selected endpoints.
type fakePushSender struct {
	mu      sync.Mutex
	sent    []string // endpoints in delivery order
	failFor map[string]bool
}

func (f *fakePushSender) Send(_ context.Context, endpoint, _, _ string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, endpoint)
	if f.failFor[endpoint] {
		return fmt.Errorf("endpoint rejected delivery")
	}
	return nil
}

func (f *fakePushSender) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// fakeEmailSender records sends and can fail for selected addresses.
type fakeEmailSender struct {
	mu      sync.Mutex
	sent    []string // recipient addresses
	failFor map[string]bool
}

func (f *fakeEmailSender) Send(_ context.Context, to, _, _, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to)
	if f.failFor[to] {
		return fmt.Errorf("smtp rejected message")
	}
	return nil
}

func (f *fakeEmailSender) sentTo() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	copy(out, f.sent)
	return out
}

// fakeAnnouncer records published outcomes.
type fakeAnnouncer struct {
	mu       sync.Mutex
	outcomes []DispatchOutcome
}

func (f *fakeAnnouncer) PublishOutcome(_ context.Context, _ uint, outcome DispatchOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcome)
	return nil
}
