// interfaces.go: database interface and the GORM-backed implementation.
package datastore

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vantazh/vantazh-go/internal/conf"
	"github.com/vantazh/vantazh-go/internal/errors"
)

// profile cache settings; the roster is scanned on every broadcast so
// profile reads are the hottest query in the store
const (
	profileCacheTTL     = time.Minute
	profileCacheCleanup = 5 * time.Minute
)

// Interface abstracts the underlying database implementation.
type Interface interface {
	Open() error
	Close() error

	// read side consumed by the dispatch engine
	GetOrder(ctx context.Context, id uint) (*Order, error)
	ListCarrierIDs(ctx context.Context) ([]string, error)
	GetCarrier(ctx context.Context, carrierID string) (*Carrier, error)
	GetPreferenceProfiles(ctx context.Context, carrierIDs []string) (map[string]*CarrierProfile, error)
	GetPushSubscriptions(ctx context.Context, recipientID string) ([]PushSubscription, error)

	// write side owned by the dispatch engine
	SaveNotification(ctx context.Context, rec *NotificationRecord) error

	// read-side helpers for the API surface
	GetNotifications(ctx context.Context, recipientID string, limit int) ([]NotificationRecord, error)
	UnreadNotificationCount(ctx context.Context, recipientID string) (int64, error)
	MarkNotificationRead(ctx context.Context, id string) error
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB           *gorm.DB
	profileCache *cache.Cache
}

// New creates a store instance based on the configured backend.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			DataStore: DataStore{profileCache: cache.New(profileCacheTTL, profileCacheCleanup)},
			Settings:  settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			DataStore: DataStore{profileCache: cache.New(profileCacheTTL, profileCacheCleanup)},
			Settings:  settings,
		}
	default:
		return nil
	}
}

// createGormLogger returns a gorm logger that only reports slow queries and
// errors, keeping routine dispatch traffic out of the logs.
func createGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// performAutoMigration migrates all dispatch entities.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(
		&Order{},
		&Carrier{},
		&CarrierProfile{},
		&PushSubscription{},
		&NotificationRecord{},
	); err != nil {
		return errors.New(fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	if debug {
		log.Printf("%s database connection initialized: %s", dbType, connectionInfo)
	}
	return nil
}

// GetOrder loads a single order. A missing order is reported as a not-found
// error, which is the only fatal condition in a broadcast.
func (ds *DataStore) GetOrder(ctx context.Context, id uint) (*Order, error) {
	var order Order
	if err := ds.DB.WithContext(ctx).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf("order %d not found", id).
				Component("datastore").
				Category(errors.CategoryNotFound).
				Context("order_id", id).
				Build()
		}
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "get_order").
			Build()
	}
	return &order, nil
}

// ListCarrierIDs returns the identifiers of every registered carrier.
func (ds *DataStore) ListCarrierIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := ds.DB.WithContext(ctx).Model(&Carrier{}).Pluck("carrier_id", &ids).Error; err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "list_carrier_ids").
			Build()
	}
	return ids, nil
}

// GetCarrier loads a carrier account by its external identifier.
func (ds *DataStore) GetCarrier(ctx context.Context, carrierID string) (*Carrier, error) {
	var carrier Carrier
	err := ds.DB.WithContext(ctx).Where("carrier_id = ?", carrierID).First(&carrier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf("carrier %s not found", carrierID).
				Component("datastore").
				Category(errors.CategoryNotFound).
				Build()
		}
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "get_carrier").
			Build()
	}
	return &carrier, nil
}

// GetPreferenceProfiles returns profiles keyed by carrier ID. Carriers
// without a profile are simply absent from the map; the matcher treats
// absence as notify-all.
func (ds *DataStore) GetPreferenceProfiles(ctx context.Context, carrierIDs []string) (map[string]*CarrierProfile, error) {
	result := make(map[string]*CarrierProfile, len(carrierIDs))

	var misses []string
	for _, id := range carrierIDs {
		if cached, found := ds.profileCache.Get(id); found {
			if profile, ok := cached.(*CarrierProfile); ok && profile != nil {
				result[id] = profile
			}
			// a cached nil means "known to have no profile"
			continue
		}
		misses = append(misses, id)
	}

	if len(misses) == 0 {
		return result, nil
	}

	var profiles []CarrierProfile
	if err := ds.DB.WithContext(ctx).Where("carrier_id IN ?", misses).Find(&profiles).Error; err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "get_preference_profiles").
			Build()
	}

	loaded := make(map[string]bool, len(profiles))
	for i := range profiles {
		p := profiles[i]
		result[p.CarrierID] = &p
		ds.profileCache.Set(p.CarrierID, &p, cache.DefaultExpiration)
		loaded[p.CarrierID] = true
	}
	// negative-cache carriers that have no profile row
	for _, id := range misses {
		if !loaded[id] {
			ds.profileCache.Set(id, (*CarrierProfile)(nil), cache.DefaultExpiration)
		}
	}

	return result, nil
}

// InvalidateProfileCache drops a carrier's cached profile. Called by the
// preference CRUD path after an update.
func (ds *DataStore) InvalidateProfileCache(carrierID string) {
	ds.profileCache.Delete(carrierID)
}

// GetPushSubscriptions returns a recipient's push subscriptions in
// registration order.
func (ds *DataStore) GetPushSubscriptions(ctx context.Context, recipientID string) ([]PushSubscription, error) {
	var subs []PushSubscription
	err := ds.DB.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("id asc").
		Find(&subs).Error
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "get_push_subscriptions").
			Build()
	}
	return subs, nil
}

// SaveNotification persists one notification record.
func (ds *DataStore) SaveNotification(ctx context.Context, rec *NotificationRecord) error {
	if err := ds.DB.WithContext(ctx).Create(rec).Error; err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "save_notification").
			Context("recipient_id", rec.RecipientID).
			Build()
	}
	return nil
}

// GetNotifications returns a recipient's notifications, newest first.
func (ds *DataStore) GetNotifications(ctx context.Context, recipientID string, limit int) ([]NotificationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []NotificationRecord
	err := ds.DB.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at desc").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "get_notifications").
			Build()
	}
	return records, nil
}

// UnreadNotificationCount returns the number of unread notifications for a
// recipient.
func (ds *DataStore) UnreadNotificationCount(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := ds.DB.WithContext(ctx).
		Model(&NotificationRecord{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	if err != nil {
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "unread_count").
			Build()
	}
	return count, nil
}

// MarkNotificationRead flips a notification's read flag.
func (ds *DataStore) MarkNotificationRead(ctx context.Context, id string) error {
	res := ds.DB.WithContext(ctx).
		Model(&NotificationRecord{}).
		Where("id = ?", id).
		Update("is_read", true)
	if res.Error != nil {
		return errors.New(res.Error).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "mark_read").
			Build()
	}
	if res.RowsAffected == 0 {
		return errors.Newf("notification %s not found", id).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Build()
	}
	return nil
}
