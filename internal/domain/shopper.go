package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartLine is one user's chosen quantity of one product. Uniqueness of
// (user_id, product_id) is maintained by the cart reconciler.
type CartLine struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"index;size:36;not null" json:"user_id"`
	ProductID string    `gorm:"index;size:36;not null" json:"product_id"`
	Quantity  int       `gorm:"not null;default:1" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// TableName Specify table name
func (CartLine) TableName() string {
	return "cart_items"
}

func (l *CartLine) BeforeCreate(*gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// WishlistEntry marks a product as saved by a user
type WishlistEntry struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:wishlists_user_product_key" json:"user_id"`
	ProductID string    `gorm:"size:36;not null;index;uniqueIndex:wishlists_user_product_key" json:"product_id"`
	CreatedAt time.Time `json:"created_at"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// TableName Specify table name
func (WishlistEntry) TableName() string {
	return "wishlists"
}

func (w *WishlistEntry) BeforeCreate(*gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}

// Banner is a promotional slide on the home page. Lower priority shows first.
type Banner struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	Subtitle   *string   `gorm:"size:512" json:"subtitle"`
	ButtonText string    `gorm:"size:64;not null;default:'Shop Now'" json:"button_text"`
	Link       string    `gorm:"size:1024;not null" json:"link"`
	Active     bool      `gorm:"index;not null" json:"active"`
	Priority   int       `gorm:"index;not null;default:0" json:"priority"`
	ImageURL   string    `gorm:"size:1024" json:"image_url"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Banner) TableName() string {
	return "banners"
}

func (b *Banner) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// Order is a placed order. Orders are written by the checkout system and are
// read-only here.
type Order struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	UserID          string    `gorm:"index;size:36;not null" json:"user_id"`
	ShippingAddress string    `gorm:"type:text;not null" json:"shipping_address"`
	Status          string    `gorm:"size:32;not null;default:'pending'" json:"status"`
	Total           float64   `gorm:"type:decimal(12,2);not null" json:"total"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

// TableName Specify table name
func (Order) TableName() string {
	return "orders"
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// OrderItem records the unit price at the time of purchase
type OrderItem struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	OrderID   string    `gorm:"index;size:36;not null" json:"order_id"`
	ProductID string    `gorm:"index;size:36;not null" json:"product_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	Price     float64   `gorm:"type:decimal(12,2);not null" json:"price"`
	CreatedAt time.Time `json:"created_at"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// TableName Specify table name
func (OrderItem) TableName() string {
	return "order_items"
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// Profile holds user details. ID is the identity provider's user id.
type Profile struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	Username  *string    `gorm:"size:64" json:"username"`
	FullName  *string    `gorm:"size:255" json:"full_name"`
	Phone     *string    `gorm:"size:32" json:"phone"`
	Address   *string    `gorm:"type:text" json:"address"`
	AvatarURL *string    `gorm:"size:1024" json:"avatar_url"`
	Birthday  *time.Time `gorm:"type:date" json:"birthday"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName Specify table name
func (Profile) TableName() string {
	return "profiles"
}

// SavedAddress is a shipping address kept on the user's account
type SavedAddress struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"index;size:36;not null" json:"user_id"`
	AddressLine string    `gorm:"type:text;not null" json:"address_line"`
	City        string    `gorm:"size:128;not null" json:"city"`
	State       string    `gorm:"size:128;not null" json:"state"`
	PostalCode  string    `gorm:"size:32;not null" json:"postal_code"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName Specify table name
func (SavedAddress) TableName() string {
	return "saved_addresses"
}

func (a *SavedAddress) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
