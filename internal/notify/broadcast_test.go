package notify

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"github.com/vantazh/vantazh-go/internal/datastore"
	"github.com/vantazh/vantazh-go/internal/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("gopkg.in/natefinch/lumberjack%2ev2.(*Logger).millRun"),
	)
}

func newTestBroadcaster(store *fakeStore, push PushSender, email EmailSender, announcer OutcomePublisher, workers int) *Broadcaster {
	dispatch := NewDispatcher(store, push, email, nil, 0, false)
	return NewBroadcaster(store, dispatch, nil, announcer, &BroadcasterConfig{Workers: workers})
}

func TestBroadcastExcludesOrderAuthor(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addOrder(testOrder(func(o *datastore.Order) { o.ClientID = "carrier-author" }))
	store.addCarrier("carrier-author", "Автор", "")
	store.addCarrier("carrier-other", "Інший", "")

	b := newTestBroadcaster(store, nil, nil, nil, 1)
	outcome, err := b.BroadcastNewOrder(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outcome.ConsideredCarriers != 1 {
		t.Errorf("author must not be considered, got %d considered", outcome.ConsideredCarriers)
	}
	for _, rec := range store.savedNotifications() {
		if rec.RecipientID == "carrier-author" {
			t.Error("author received their own broadcast")
		}
	}
}

func TestBroadcastCounterInvariant(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addOrder(testOrder(nil))
	// one permissive, one filtered out, one with no profile
	store.addCarrier("carrier-1", "Перший", "")
	store.addProfile("carrier-1", &datastore.CarrierProfile{NotifyAll: true})
	store.addCarrier("carrier-2", "Другий", "")
	store.addProfile("carrier-2", &datastore.CarrierProfile{
		PreferredCargoTypes: datastore.StringList{"зерно"},
	})
	store.addCarrier("carrier-3", "Третій", "")

	b := newTestBroadcaster(store, nil, nil, nil, 1)
	outcome, err := b.BroadcastNewOrder(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outcome.ConsideredCarriers != 3 {
		t.Errorf("considered = %d, want 3", outcome.ConsideredCarriers)
	}
	if outcome.MatchedCarriers != 2 || outcome.SkippedCarriers != 1 {
		t.Errorf("matched/skipped = %d/%d, want 2/1", outcome.MatchedCarriers, outcome.SkippedCarriers)
	}
	if outcome.MatchedCarriers+outcome.SkippedCarriers != outcome.ConsideredCarriers {
		t.Errorf("matched+skipped must equal considered, got %+v", outcome)
	}
}

func TestBroadcastChannelIsolation(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addOrder(testOrder(nil))
	store.addCarrier("carrier-1", "Перший", "one@example.com")
	store.addCarrier("carrier-2", "Другий", "two@example.com")
	store.addSubscription("carrier-1", "https://push.example/broken")
	store.addSubscription("carrier-1", "https://push.example/ok")
	store.addSubscription("carrier-2", "https://push.example/other")
	// carrier-1: in-app save and first push endpoint both fail
	store.failSaveFor["carrier-1"] = true

	push := &fakePushSender{failFor: map[string]bool{"https://push.example/broken": true}}
	email := &fakeEmailSender{}

	b := newTestBroadcaster(store, push, email, nil, 1)
	outcome, err := b.BroadcastNewOrder(context.Background(), 1)
	if err != nil {
		t.Fatalf("per-recipient failures must not fail the broadcast: %v", err)
	}

	if outcome.MatchedCarriers != 2 {
		t.Fatalf("matched = %d, want 2", outcome.MatchedCarriers)
	}
	// every subscription is still attempted despite the failures around it
	if outcome.PushAttempts != 3 || outcome.PushSuccesses != 2 {
		t.Errorf("push attempts/successes = %d/%d, want 3/2", outcome.PushAttempts, outcome.PushSuccesses)
	}
	// email proceeds for both carriers even though carrier-1's other
	// channels failed
	if outcome.EmailSuccesses != 2 {
		t.Errorf("email successes = %d, want 2", outcome.EmailSuccesses)
	}
	if got := len(email.sentTo()); got != 2 {
		t.Errorf("email sends = %d, want 2", got)
	}
	// only carrier-2's in-app record survived
	records := store.savedNotifications()
	if len(records) != 1 || records[0].RecipientID != "carrier-2" {
		t.Errorf("unexpected in-app records: %+v", records)
	}
}

func TestBroadcastMissingOrderIsFatal(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addCarrier("carrier-1", "Перший", "")
	push := &fakePushSender{}

	b := newTestBroadcaster(store, push, nil, nil, 1)
	_, err := b.BroadcastNewOrder(context.Background(), 404)
	if err == nil {
		t.Fatal("expected an error for a missing order")
	}
	if !errors.IsNotFound(err) {
		t.Errorf("expected a not-found error, got %v", err)
	}
	if len(store.savedNotifications()) != 0 || push.sendCount() != 0 {
		t.Error("a fatal lookup must have no delivery side effects")
	}
}

func TestBroadcastRosterLookupFailureIsFatal(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addOrder(testOrder(nil))
	store.rosterErr = fmt.Errorf("connection refused")

	b := newTestBroadcaster(store, nil, nil, nil, 1)
	_, err := b.BroadcastNewOrder(context.Background(), 1)
	if err == nil {
		t.Fatal("expected an error when the roster cannot be loaded")
	}
	if !errors.HasCategory(err, errors.CategoryBroadcast) {
		t.Errorf("expected a broadcast-category error, got %v", err)
	}
}

func TestBroadcastProfileLookupFailureIsFatal(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addOrder(testOrder(nil))
	store.addCarrier("carrier-1", "Перший", "")
	store.profilesErr = fmt.Errorf("connection refused")

	b := newTestBroadcaster(store, nil, nil, nil, 1)
	if _, err := b.BroadcastNewOrder(context.Background(), 1); err == nil {
		t.Fatal("expected an error when profiles cannot be loaded")
	}
	if len(store.savedNotifications()) != 0 {
		t.Error("a fatal lookup must have no delivery side effects")
	}
}

func TestBroadcastSubscriptionLookupFailureIsAbsorbed(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addOrder(testOrder(nil))
	store.addCarrier("carrier-1", "Перший", "one@example.com")
	store.subscriptionErr = fmt.Errorf("connection refused")

	push := &fakePushSender{}
	email := &fakeEmailSender{}
	b := newTestBroadcaster(store, push, email, nil, 1)

	outcome, err := b.BroadcastNewOrder(context.Background(), 1)
	if err != nil {
		t.Fatalf("subscription lookup failure must not fail the broadcast: %v", err)
	}
	if outcome.PushAttempts != 0 {
		t.Errorf("no push attempts expected, got %d", outcome.PushAttempts)
	}
	if outcome.EmailSuccesses != 1 {
		t.Errorf("email must still be delivered, got %d successes", outcome.EmailSuccesses)
	}
}

func TestBroadcastConcurrentFanOut(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addOrder(testOrder(func(o *datastore.Order) { o.ClientID = "carrier-000" }))
	const carriers = 60
	for i := range carriers {
		id := fmt.Sprintf("carrier-%03d", i)
		store.addCarrier(id, "Перевізник", "")
		store.addSubscription(id, "https://push.example/"+id)
		if i%3 == 0 {
			store.addProfile(id, &datastore.CarrierProfile{
				PreferredCargoTypes: datastore.StringList{"зерно"},
			})
		}
	}

	push := &fakePushSender{}
	b := newTestBroadcaster(store, push, nil, nil, 8)
	outcome, err := b.BroadcastNewOrder(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// carrier-000 is the author; of the remaining 59, every third carrier
	// (19 of them) carries a grain-only profile and is skipped
	if outcome.ConsideredCarriers != carriers-1 {
		t.Errorf("considered = %d, want %d", outcome.ConsideredCarriers, carriers-1)
	}
	if outcome.SkippedCarriers != 19 {
		t.Errorf("skipped = %d, want 19", outcome.SkippedCarriers)
	}
	if outcome.MatchedCarriers+outcome.SkippedCarriers != outcome.ConsideredCarriers {
		t.Errorf("matched+skipped must equal considered, got %+v", outcome)
	}
	if outcome.PushAttempts != outcome.MatchedCarriers || push.sendCount() != outcome.MatchedCarriers {
		t.Errorf("one push per matched carrier expected, got %+v (sent %d)", outcome, push.sendCount())
	}
	if len(store.savedNotifications()) != outcome.MatchedCarriers {
		t.Errorf("one in-app record per matched carrier expected, got %d", len(store.savedNotifications()))
	}
}

func TestBroadcastPublishesOutcome(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addOrder(testOrder(nil))
	store.addCarrier("carrier-1", "Перший", "")

	announcer := &fakeAnnouncer{}
	b := newTestBroadcaster(store, nil, nil, announcer, 1)
	outcome, err := b.BroadcastNewOrder(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(announcer.outcomes) != 1 {
		t.Fatalf("expected one published outcome, got %d", len(announcer.outcomes))
	}
	if announcer.outcomes[0] != outcome {
		t.Errorf("published %+v, returned %+v", announcer.outcomes[0], outcome)
	}
}

func TestOrderMessageContent(t *testing.T) {
	t.Parallel()

	price := 18000.0
	order := testOrder(func(o *datastore.Order) { o.DeclaredPrice = &price })
	title, body := orderMessage(order)

	if !strings.Contains(title, "Цемент навалом") {
		t.Errorf("title must carry the cargo type, got %q", title)
	}
	if !strings.Contains(body, "Київ") || !strings.Contains(body, "Львів") {
		t.Errorf("body must carry the route, got %q", body)
	}
	if !strings.Contains(body, "2.5 т") {
		t.Errorf("body must carry the weight in tonnes, got %q", body)
	}
	if !strings.Contains(body, "18000 грн") {
		t.Errorf("body must carry the declared price, got %q", body)
	}

	// optional fields left out without placeholders
	bare := testOrder(func(o *datastore.Order) {
		o.CargoType = ""
		o.Weight = nil
	})
	title, body = orderMessage(bare)
	if title != "Нове замовлення" {
		t.Errorf("bare title = %q", title)
	}
	if strings.Contains(body, "т,") || strings.Contains(body, "грн") {
		t.Errorf("bare body must omit missing fields, got %q", body)
	}
}
