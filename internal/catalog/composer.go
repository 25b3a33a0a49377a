package catalog

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/bjo163/storefront/internal/domain"
)

var ErrProductNotFound = errors.New("product not found")

// Composer turns listing filters into product queries
type Composer struct {
	db       *gorm.DB
	maxLimit int
}

// NewComposer caps explicit page sizes at maxLimit. A filter without a limit
// is never truncated.
func NewComposer(db *gorm.DB, maxLimit int) *Composer {
	if maxLimit <= 0 {
		maxLimit = 1000
	}
	return &Composer{db: db, maxLimit: maxLimit}
}

// PageSize returns the number of rows one page of f holds, 0 when f asks for
// every match.
func (c *Composer) PageSize(f Filter) int {
	if f.Limit <= 0 {
		return 0
	}
	if f.Limit > c.maxLimit {
		return c.maxLimit
	}
	return f.Limit
}

// ListProducts returns the products matching f with their primary and
// secondary categories attached. Without a limit every match is returned.
// No match yields an empty slice.
func (c *Composer) ListProducts(ctx context.Context, f Filter) ([]domain.Product, error) {
	db, err := c.matching(ctx, f)
	if err != nil {
		return nil, err
	}
	if limit := c.PageSize(f); limit > 0 {
		db = db.Limit(limit).Offset(f.Offset)
	}

	rows := make([]domain.Product, 0)
	if err := db.Preload("Category").Order(f.orderClause()).Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "query products")
	}
	if err := c.attachSecondary(ctx, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// CountProducts returns how many products match f, ignoring limit and offset
func (c *Composer) CountProducts(ctx context.Context, f Filter) (int64, error) {
	db, err := c.matching(ctx, f)
	if err != nil {
		return 0, err
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return 0, errors.Wrap(err, "count products")
	}
	return total, nil
}

func (c *Composer) matching(ctx context.Context, f Filter) (*gorm.DB, error) {
	db := c.db.WithContext(ctx).Model(&domain.Product{})

	if f.CategoryID != "" {
		var linked []string
		if err := c.db.WithContext(ctx).Model(&domain.ProductCategory{}).
			Where("category_id = ?", f.CategoryID).
			Pluck("product_id", &linked).Error; err != nil {
			return nil, errors.Wrap(err, "query category links")
		}
		if len(linked) > 0 {
			db = db.Where("category_id = ? OR id IN ?", f.CategoryID, linked)
		} else {
			db = db.Where("category_id = ?", f.CategoryID)
		}
	}
	if f.MinPrice != nil {
		db = db.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		db = db.Where("price <= ?", *f.MaxPrice)
	}
	if f.InStock != nil {
		if *f.InStock {
			db = db.Where("stock > 0")
		} else {
			db = db.Where("stock = 0")
		}
	}
	if f.OnSale != nil {
		db = db.Where("on_sale = ?", *f.OnSale)
	}
	if f.Featured != nil {
		db = db.Where("featured = ?", *f.Featured)
	}
	if f.Search != "" {
		if strings.EqualFold(c.db.Dialector.Name(), "postgres") {
			db = db.Where("name ILIKE ?", "%"+escapeLike(f.Search)+"%")
		} else {
			db = db.Where("LOWER(name) LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(f.Search))+"%")
		}
	}

	return db, nil
}

// GetProduct loads one product with its categories
func (c *Composer) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := c.db.WithContext(ctx).Preload("Category").Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "query product")
	}
	one := []domain.Product{p}
	if err := c.attachSecondary(ctx, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

// ListCategories returns all categories by name
func (c *Composer) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows := make([]domain.Category, 0)
	if err := c.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "query categories")
	}
	return rows, nil
}

// ListActiveBanners returns active banners in display order
func (c *Composer) ListActiveBanners(ctx context.Context) ([]domain.Banner, error) {
	rows := make([]domain.Banner, 0)
	if err := c.db.WithContext(ctx).
		Where("active = ?", true).
		Order("priority ASC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "query banners")
	}
	return rows, nil
}

func (c *Composer) attachSecondary(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]string, len(products))
	for i := range products {
		ids[i] = products[i].ID
	}

	var links []domain.ProductCategory
	if err := c.db.WithContext(ctx).Where("product_id IN ?", ids).Order("created_at ASC").Find(&links).Error; err != nil {
		return errors.Wrap(err, "query product links")
	}
	if len(links) == 0 {
		return nil
	}

	catIDs := make([]string, 0, len(links))
	for _, l := range links {
		catIDs = append(catIDs, l.CategoryID)
	}
	var cats []domain.Category
	if err := c.db.WithContext(ctx).Where("id IN ?", catIDs).Find(&cats).Error; err != nil {
		return errors.Wrap(err, "query linked categories")
	}
	byID := make(map[string]domain.Category, len(cats))
	for _, cat := range cats {
		byID[cat.ID] = cat
	}

	byProduct := make(map[string][]domain.Category)
	for _, l := range links {
		if cat, ok := byID[l.CategoryID]; ok {
			byProduct[l.ProductID] = append(byProduct[l.ProductID], cat)
		}
	}
	for i := range products {
		products[i].SecondaryCategories = byProduct[products[i].ID]
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
