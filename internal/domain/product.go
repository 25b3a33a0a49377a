package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is a catalog item. CategoryID is the primary category; additional
// categories are linked through ProductCategory rows.
type Product struct {
	ID               string            `gorm:"primaryKey;size:36" json:"id"`
	Name             string            `gorm:"index;size:255;not null" json:"name"`
	Description      string            `gorm:"type:text" json:"description"`
	Price            float64           `gorm:"type:decimal(12,2);not null" json:"price"`
	OriginalPrice    *float64          `gorm:"type:decimal(12,2)" json:"original_price"`
	Stock            int               `gorm:"not null;default:0" json:"stock"`
	CategoryID       *string           `gorm:"index;size:36" json:"category_id"`
	ImageURL         string            `gorm:"size:1024" json:"image_url"`
	AdditionalImages []string          `gorm:"type:text;serializer:json" json:"additional_images"`
	Specifications   map[string]string `gorm:"type:text;serializer:json" json:"specifications"`
	PackageIncludes  []string          `gorm:"type:text;serializer:json" json:"package_includes"`
	Featured         bool              `gorm:"index" json:"featured"`
	IsNew            bool              `json:"is_new"`
	OnSale           bool              `gorm:"index" json:"on_sale"`
	CreatedAt        time.Time         `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`

	Category            *Category  `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	SecondaryCategories []Category `gorm:"-" json:"secondary_categories,omitempty"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "products"
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Category groups products
type Category struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"index;size:255;not null" json:"name"`
	Description *string   `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Category) TableName() string {
	return "categories"
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// ProductCategory links a product to a secondary category
type ProductCategory struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	ProductID  string    `gorm:"index;size:36;not null" json:"product_id"`
	CategoryID string    `gorm:"index;size:36;not null" json:"category_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName Specify table name
func (ProductCategory) TableName() string {
	return "product_categories"
}

func (pc *ProductCategory) BeforeCreate(*gorm.DB) error {
	if pc.ID == "" {
		pc.ID = uuid.NewString()
	}
	return nil
}
