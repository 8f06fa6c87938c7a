package runtime

import (
	"context"

	"github.com/vantazh/vantazh-go/internal/conf"
	"github.com/vantazh/vantazh-go/internal/datastore"
	"github.com/vantazh/vantazh-go/internal/errors"
	"github.com/vantazh/vantazh-go/internal/logging"
	"github.com/vantazh/vantazh-go/internal/mailer"
	"github.com/vantazh/vantazh-go/internal/mqtt"
	"github.com/vantazh/vantazh-go/internal/notify"
	"github.com/vantazh/vantazh-go/internal/observability"
	"github.com/vantazh/vantazh-go/internal/webpush"
)

// Engine is the fully wired dispatch stack. Commands build one Engine and
// hand its parts to whatever surface they expose.
type Engine struct {
	Store       datastore.Interface
	Dispatcher  *notify.Dispatcher
	Broadcaster *notify.Broadcaster
	Proximity   *notify.ProximityNotifier
	Metrics     *observability.Metrics

	mqttClient mqtt.Client
}

// Build wires the engine from settings. Disabled channels are left nil on
// the dispatcher; the MQTT announcer is optional and a failed broker
// connection only disables it.
func Build(ctx context.Context, settings *conf.Settings) (*Engine, error) {
	metrics, err := observability.NewMetrics()
	if err != nil {
		return nil, err
	}

	store := datastore.New(settings)
	if store == nil {
		return nil, errors.Newf("no database backend enabled in configuration").
			Component("runtime").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := store.Open(); err != nil {
		return nil, err
	}

	var push notify.PushSender
	if settings.Notify.Push.Enabled {
		client, err := webpush.NewClient(&settings.Notify.Push)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		push = client
	}

	var email notify.EmailSender
	if settings.Notify.Email.Enabled {
		m, err := mailer.New(&settings.Notify.Email)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		email = m
	}

	engine := &Engine{
		Store:   store,
		Metrics: metrics,
	}

	var announcer notify.OutcomePublisher
	if settings.MQTT.Enabled {
		client, err := mqtt.NewClient(settings)
		if err != nil {
			logging.Warn("MQTT announcer disabled", "error", err)
		} else if err := client.Connect(ctx); err != nil {
			logging.Warn("MQTT broker unreachable, announcer disabled", "error", err)
		} else {
			engine.mqttClient = client
			announcer = mqtt.NewAnnouncer(client, settings.MQTT.Topic)
		}
	}

	engine.Dispatcher = notify.NewDispatcher(
		store, push, email, metrics.Dispatch,
		settings.Notify.Broadcast.PerRecipientTimeout, settings.Debug)
	engine.Broadcaster = notify.NewBroadcaster(
		store, engine.Dispatcher, metrics.Dispatch, announcer,
		&notify.BroadcasterConfig{
			Workers: settings.Notify.Broadcast.Workers,
			Debug:   settings.Debug,
		})
	engine.Proximity = notify.NewProximityNotifier(
		store, engine.Dispatcher, metrics.Dispatch, settings.Debug)

	return engine, nil
}

// Close releases the engine's external connections.
func (e *Engine) Close() error {
	if e.mqttClient != nil {
		e.mqttClient.Disconnect()
	}
	return e.Store.Close()
}
