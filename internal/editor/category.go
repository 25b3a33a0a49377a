package editor

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/bjo163/storefront/internal/domain"
	"github.com/bjo163/storefront/internal/events"
)

var CategorySchema = Schema{
	Entity: "category",
	Fields: []Field{
		{Name: "name", Kind: KindString, Required: true},
		{Name: "description", Kind: KindString, Nullable: true},
	},
}

type CategoryEditor = Editor[domain.Category]

func NewCategoryEditor(db *gorm.DB, bus *events.Bus) *CategoryEditor {
	return New(db, nil, bus, CategorySchema, Hooks[domain.Category]{
		ID:           func(c *domain.Category) string { return c.ID },
		BeforeDelete: detachCategory,
	})
}

// detachCategory leaves products uncategorised rather than deleting them
func detachCategory(ctx context.Context, tx *gorm.DB, id string) error {
	err := tx.Model(&domain.Product{}).Where("category_id = ?", id).Update("category_id", nil).Error
	if err != nil {
		return errors.Wrap(err, "clear primary category")
	}
	return errors.Wrap(tx.Where("category_id = ?", id).Delete(&domain.ProductCategory{}).Error, "delete product categories")
}
