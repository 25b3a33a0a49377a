package editor

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gorm.io/gorm"

	"github.com/bjo163/storefront/internal/domain"
	"github.com/bjo163/storefront/internal/events"
	"github.com/bjo163/storefront/internal/storage"
)

// CategoriesField carries every category selected for a product. The
// primary category is category_id when given, else the first selection.
const CategoriesField = "category_ids"

var ProductSchema = Schema{
	Entity: "product",
	Fields: []Field{
		{Name: "name", Kind: KindString, Required: true},
		{Name: "description", Kind: KindString},
		{Name: "price", Kind: KindNumber, Required: true, NonNegative: true},
		{Name: "original_price", Kind: KindNumber, NonNegative: true, Nullable: true},
		{Name: "stock", Kind: KindInt, NonNegative: true},
		{Name: "category_id", Kind: KindString, Nullable: true},
		{Name: "image_url", Kind: KindString},
		{Name: "additional_images", Kind: KindStringList},
		{Name: "specifications", Kind: KindStringMap},
		{Name: "package_includes", Kind: KindStringList},
		{Name: "featured", Kind: KindBool},
		{Name: "is_new", Kind: KindBool},
		{Name: "on_sale", Kind: KindBool},
	},
	ImageField:   "image_url",
	GalleryField: "additional_images",
	Bucket:       storage.BucketProductImages,
}

type ProductEditor = Editor[domain.Product]

func NewProductEditor(db *gorm.DB, store storage.Store, bus *events.Bus) *ProductEditor {
	return New(db, store, bus, ProductSchema, Hooks[domain.Product]{
		ID:           func(p *domain.Product) string { return p.ID },
		Prepare:      prepareProduct,
		AfterSave:    replaceSecondaryCategories,
		BeforeDelete: detachProduct,
		Gallery:      func(p *domain.Product) []string { return p.AdditionalImages },
		Images:       productImages,
	})
}

func productImages(p *domain.Product) []string {
	return append([]string{p.ImageURL}, p.AdditionalImages...)
}

// selectedCategories returns the distinct category ids of the form in
// submission order. present is false when the form does not carry the field
// at all; an empty or null value is present and selects nothing.
func selectedCategories(form Form) (ids []string, present bool, err error) {
	raw, ok := form.Values[CategoriesField]
	if !ok {
		return nil, false, nil
	}
	if isBlank(raw) {
		return nil, true, nil
	}
	v, err := coerceValue(Field{Name: CategoriesField, Kind: KindStringList}, raw)
	if err != nil {
		return nil, true, err
	}
	var out []string
	seen := map[string]bool{}
	for _, id := range v.([]string) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, true, nil
}

func prepareProduct(ctx context.Context, db *gorm.DB, values Values, form Form, created bool) error {
	selected, _, err := selectedCategories(form)
	if err != nil {
		return err
	}
	primary := cast.ToString(values["category_id"])
	if primary == "" && len(selected) > 0 {
		primary = selected[0]
		values["category_id"] = primary
	}

	check := selected
	if primary != "" {
		check = append([]string{primary}, selected...)
	}
	if len(check) == 0 {
		return nil
	}
	var found []string
	if err := db.Model(&domain.Category{}).Where("id IN ?", check).Pluck("id", &found).Error; err != nil {
		return errors.Wrap(err, "query categories")
	}
	known := map[string]bool{}
	for _, id := range found {
		known[id] = true
	}
	for _, id := range check {
		if !known[id] {
			return &ValidationError{Field: CategoriesField, Message: "unknown category " + id}
		}
	}
	return nil
}

// replaceSecondaryCategories makes the product's secondary links exactly the
// selected categories minus the primary one. A form without the field keeps
// the stored links, only dropping one that became the primary.
func replaceSecondaryCategories(ctx context.Context, tx *gorm.DB, p *domain.Product, form Form) error {
	selected, present, err := selectedCategories(form)
	if err != nil {
		return err
	}
	if !present {
		if p.CategoryID == nil {
			return nil
		}
		err := tx.Where("product_id = ? AND category_id = ?", p.ID, *p.CategoryID).Delete(&domain.ProductCategory{}).Error
		return errors.Wrap(err, "delete primary category link")
	}
	if err := tx.Where("product_id = ?", p.ID).Delete(&domain.ProductCategory{}).Error; err != nil {
		return errors.Wrap(err, "delete product categories")
	}

	var links []domain.ProductCategory
	for _, id := range selected {
		if p.CategoryID != nil && strings.EqualFold(*p.CategoryID, id) {
			continue
		}
		links = append(links, domain.ProductCategory{ProductID: p.ID, CategoryID: id})
	}
	if len(links) == 0 {
		return nil
	}
	return errors.Wrap(tx.Create(&links).Error, "insert product categories")
}

func detachProduct(ctx context.Context, tx *gorm.DB, id string) error {
	if err := tx.Where("product_id = ?", id).Delete(&domain.ProductCategory{}).Error; err != nil {
		return errors.Wrap(err, "delete product categories")
	}
	if err := tx.Where("product_id = ?", id).Delete(&domain.CartLine{}).Error; err != nil {
		return errors.Wrap(err, "delete cart lines")
	}
	return errors.Wrap(tx.Where("product_id = ?", id).Delete(&domain.WishlistEntry{}).Error, "delete wishlist entries")
}
