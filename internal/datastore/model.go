// model.go: GORM entities for the dispatch engine.
package datastore

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringList stores a list of strings as a JSON-encoded TEXT column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshaling string list: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for string list", value)
	}
	if len(data) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(data, l)
}

// Order is a shipment order posted by a client. Orders are created by the
// order CRUD collaborator; the dispatch engine only reads them.
type Order struct {
	ID              uint   `gorm:"primaryKey"`
	ClientID        string `gorm:"index;size:64"`
	CargoType       string `gorm:"size:255"`
	PickupAddress   string `gorm:"size:512"`
	DeliveryAddress string `gorm:"size:512"`
	Weight          *float64
	DeclaredPrice   *float64
	CreatedAt       time.Time
}

// Carrier is a registered carrier account. The dispatch engine reads the
// roster and contact details; account management lives elsewhere.
type Carrier struct {
	ID        uint   `gorm:"primaryKey"`
	CarrierID string `gorm:"uniqueIndex;size:64"`
	Name      string `gorm:"size:255"`
	Email     string `gorm:"size:255"`
	CreatedAt time.Time
}

// CarrierProfile is a carrier's notification preference profile. Zero or one
// per carrier; a missing profile means the carrier wants everything.
type CarrierProfile struct {
	ID                  uint       `gorm:"primaryKey"`
	CarrierID           string     `gorm:"uniqueIndex;size:64"`
	PreferredRoutes     StringList `gorm:"type:text"`
	PreferredCargoTypes StringList `gorm:"type:text"`
	MinWeight           *float64
	MaxWeight           *float64
	NotifyAll           bool
	UpdatedAt           time.Time
}

// PushSubscription is a Web Push subscription registered by a recipient's
// browser. Zero or many per recipient. Registration and revocation are the
// subscription collaborator's responsibility.
type PushSubscription struct {
	ID          uint   `gorm:"primaryKey"`
	RecipientID string `gorm:"index;size:64"`
	Endpoint    string `gorm:"size:1024"`
	P256dh      string `gorm:"size:255"` // base64url client public key
	Auth        string `gorm:"size:255"` // base64url auth secret
	CreatedAt   time.Time
}

// Notification kinds persisted in NotificationRecord.Kind.
const (
	KindNewOrder  = "new_order"
	KindProximity = "proximity"
)

// NotificationRecord is an in-app notification owned by the dispatch engine.
// Written once per successful match or proximity trigger, never mutated by
// the engine afterwards.
type NotificationRecord struct {
	ID          string `gorm:"primaryKey;size:36"` // uuid
	RecipientID string `gorm:"index;size:64"`
	Title       string `gorm:"size:255"`
	Body        string `gorm:"size:1024"`
	TargetURL   string `gorm:"size:512"`
	Kind        string `gorm:"size:32;index"`
	// READ is a reserved word in MySQL, so the column is named explicitly
	Read      bool `gorm:"column:is_read;default:false"`
	CreatedAt time.Time
}
