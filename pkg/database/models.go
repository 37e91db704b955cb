package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model for all entities
type BaseModel struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns the primary key in Go so models behave the same on
// the postgres and sqlite drivers.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// User represents an account holder; all ledger data is scoped to a user
type User struct {
	BaseModel
	Username     string `gorm:"uniqueIndex;not null" json:"username"`
	Email        string `gorm:"index" json:"email"`
	GoogleID     string `gorm:"index" json:"-"` // For Google OAuth (empty for password accounts)
	PasswordHash string `json:"-"`
}

// Event represents a sales occasion, e.g. a convention weekend
type Event struct {
	BaseModel
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	Name      string    `gorm:"not null" json:"name"`
	StartDate *string   `json:"start_date"` // YYYY-MM-DD, optional
	EndDate   *string   `json:"end_date"`
}

// SKU represents a sellable item type with default pricing
type SKU struct {
	BaseModel
	UserID       uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	Name         string    `gorm:"not null" json:"name"`
	ItemType     string    `gorm:"not null;index" json:"item_type"`
	DefaultPrice string    `gorm:"default:'0.00'" json:"default_price"` // 2-decimal money string
	DefaultCost  string    `gorm:"default:'0.00'" json:"default_cost"`
}

// SaleLine is one row of a transaction. Bundles are recorded as several
// lines sharing a BundleID; price_unit holds each line's distributed share.
// Revenue, COGS and gross profit are derived on read, never stored.
type SaleLine struct {
	BaseModel
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	EventID     uuid.UUID `gorm:"type:uuid;not null;index" json:"event_id"`
	Event       Event     `gorm:"foreignKey:EventID" json:"-"`
	SKUID       uuid.UUID `gorm:"column:sku_id;type:uuid;not null;index" json:"sku_id"`
	SKU         SKU       `gorm:"foreignKey:SKUID" json:"-"`
	SaleDate    string    `gorm:"not null;index" json:"sale_date"` // YYYY-MM-DD
	Units       int       `gorm:"not null" json:"units"`
	PriceUnit   string    `gorm:"not null" json:"price_unit"`
	CostUnit    string    `gorm:"not null" json:"cost_unit"`
	IsBundle    bool      `gorm:"default:false" json:"is_bundle"`
	BundleID    string    `gorm:"index" json:"bundle_id,omitempty"`
	BundleSize  int       `json:"bundle_size,omitempty"`  // total units at bundle creation
	BundlePrice string    `json:"bundle_price,omitempty"` // entered bundle total, provenance only
	IsGift      bool      `gorm:"default:false" json:"is_gift"`
	Notes       string    `json:"notes"`
}

// UserSettings holds per-user UI colors, persisted server-side so the theme
// follows the account across browsers
type UserSettings struct {
	BaseModel
	UserID           uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"-"`
	TextColor        string    `gorm:"default:'#222222'" json:"text_color"`
	InputBorderColor string    `gorm:"default:'#cccccc'" json:"input_border_color"`
	ButtonColor      string    `gorm:"default:'#007bff'" json:"button_color"`
	ButtonTextColor  string    `gorm:"default:'#fff'" json:"button_text_color"`
}

// ActivityLog tracks mutations for an audit trail
type ActivityLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Action     string     `gorm:"not null" json:"action"` // create, update, delete
	EntityType string     `json:"entity_type"`            // event, sku, sale
	EntityID   *uuid.UUID `gorm:"type:uuid" json:"entity_id"`
	Details    string     `gorm:"type:text" json:"details"` // JSON details
	IPAddress  string     `json:"ip_address"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (l *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Migrate runs database migrations
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Event{},
		&SKU{},
		&SaleLine{},
		&UserSettings{},
		&ActivityLog{},
	)
}
