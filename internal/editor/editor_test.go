package editor

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bjo163/storefront/internal/dbtest"
	"github.com/bjo163/storefront/internal/domain"
	"github.com/bjo163/storefront/internal/events"
	"github.com/bjo163/storefront/internal/storage"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string]string
}

func (s *memStore) Put(_ context.Context, bucket, key string, body io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects == nil {
		s.objects = map[string]string{}
	}
	s.objects[bucket+"/"+key] = string(data)
	return storage.PublicURL("https://cdn.example", bucket, key), nil
}

func (s *memStore) Delete(_ context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, bucket+"/"+key)
	return nil
}

func (s *memStore) has(url string) bool {
	bucket, key, ok := storage.ObjectFromURL(url)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, found := s.objects[bucket+"/"+key]
	return found
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

func seedCategories(t *testing.T, db *gorm.DB) {
	require.NoError(t, db.Create(&[]domain.Category{
		{ID: "A", Name: "Microcontrollers"},
		{ID: "B", Name: "Sensors"},
		{ID: "C", Name: "Modules"},
	}).Error)
}

func secondaryLinks(t *testing.T, db *gorm.DB, productID string) []string {
	var ids []string
	require.NoError(t, db.Model(&domain.ProductCategory{}).Where("product_id = ?", productID).
		Order("category_id").Pluck("category_id", &ids).Error)
	return ids
}

func upload(name, body string) *Upload {
	return &Upload{Filename: name, ContentType: "image/png", Body: strings.NewReader(body)}
}

func TestProductSecondaryCategoriesReplaced(t *testing.T) {
	db := dbtest.Open(t)
	seedCategories(t, db)
	ed := NewProductEditor(db, &memStore{}, nil)
	ctx := context.Background()

	p, created, err := ed.Save(ctx, "admin", "", Form{Values: map[string]interface{}{
		"name":         "ESP32 DevKit",
		"price":        "349.50",
		"stock":        "12",
		"category_ids": []string{"A", "B", "C"},
	}})
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, p.CategoryID)
	assert.Equal(t, "A", *p.CategoryID)
	assert.Equal(t, 349.5, p.Price)
	assert.Equal(t, 12, p.Stock)
	assert.Equal(t, []string{"B", "C"}, secondaryLinks(t, db, p.ID))

	p, created, err = ed.Save(ctx, "admin", p.ID, Form{Values: map[string]interface{}{
		"name":         "ESP32 DevKit",
		"price":        349.5,
		"category_ids": []string{"B"},
	}})
	require.NoError(t, err)
	assert.False(t, created)
	require.NotNil(t, p.CategoryID)
	assert.Equal(t, "B", *p.CategoryID)
	assert.Empty(t, secondaryLinks(t, db, p.ID))

	var count int64
	require.NoError(t, db.Model(&domain.Product{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestProductExplicitPrimaryCategory(t *testing.T) {
	db := dbtest.Open(t)
	seedCategories(t, db)
	ed := NewProductEditor(db, &memStore{}, nil)

	p, _, err := ed.Save(context.Background(), "admin", "", Form{Values: map[string]interface{}{
		"name":         "DHT22",
		"price":        120,
		"category_id":  "B",
		"category_ids": `["A","B"]`,
	}})
	require.NoError(t, err)
	assert.Equal(t, "B", *p.CategoryID)
	assert.Equal(t, []string{"A"}, secondaryLinks(t, db, p.ID))
}

func TestProductUpdateWithoutCategoryIDsKeepsLinks(t *testing.T) {
	db := dbtest.Open(t)
	seedCategories(t, db)
	ed := NewProductEditor(db, &memStore{}, nil)
	ctx := context.Background()

	p, _, err := ed.Save(ctx, "admin", "", Form{Values: map[string]interface{}{
		"name":         "ESP32 DevKit",
		"price":        349.5,
		"category_ids": []string{"A", "B", "C"},
	}})
	require.NoError(t, err)
	require.Equal(t, []string{"B", "C"}, secondaryLinks(t, db, p.ID))

	p, _, err = ed.Save(ctx, "admin", p.ID, Form{Values: map[string]interface{}{
		"name":        "ESP32 DevKit V2",
		"price":       359.0,
		"stock":       4.0,
		"category_id": "A",
	}})
	require.NoError(t, err)
	assert.Equal(t, "ESP32 DevKit V2", p.Name)
	assert.Equal(t, 4, p.Stock)
	assert.Equal(t, []string{"B", "C"}, secondaryLinks(t, db, p.ID))

	// promoting a secondary category drops its link
	p, _, err = ed.Save(ctx, "admin", p.ID, Form{Values: map[string]interface{}{
		"name":        "ESP32 DevKit V2",
		"price":       359.0,
		"category_id": "C",
	}})
	require.NoError(t, err)
	assert.Equal(t, "C", *p.CategoryID)
	assert.Equal(t, []string{"B"}, secondaryLinks(t, db, p.ID))

	p, _, err = ed.Save(ctx, "admin", p.ID, Form{Values: map[string]interface{}{
		"name":         "ESP32 DevKit V2",
		"price":        359.0,
		"category_id":  "C",
		"category_ids": []string{},
	}})
	require.NoError(t, err)
	assert.Empty(t, secondaryLinks(t, db, p.ID))
}

func TestValidationFailsBeforeUpload(t *testing.T) {
	db := dbtest.Open(t)
	seedCategories(t, db)
	store := &memStore{}
	ed := NewProductEditor(db, store, nil)
	ctx := context.Background()

	cases := []struct {
		field  string
		values map[string]interface{}
	}{
		{"name", map[string]interface{}{"name": "  ", "price": 10}},
		{"price", map[string]interface{}{"name": "Relay"}},
		{"price", map[string]interface{}{"name": "Relay", "price": -1}},
		{"price", map[string]interface{}{"name": "Relay", "price": "ten"}},
		{"stock", map[string]interface{}{"name": "Relay", "price": 10, "stock": "2.5"}},
		{"stock", map[string]interface{}{"name": "Relay", "price": 10, "stock": 3.7}},
		{"stock", map[string]interface{}{"name": "Relay", "price": 10, "stock": "-1"}},
		{"specifications", map[string]interface{}{"name": "Relay", "price": 10, "specifications": map[string]interface{}{"": "5V"}}},
		{CategoriesField, map[string]interface{}{"name": "Relay", "price": 10, "category_ids": []string{"missing"}}},
	}
	for _, tc := range cases {
		_, _, err := ed.Save(ctx, "admin", "", Form{Values: tc.values, Image: upload("relay.png", "img")})
		var verr *ValidationError
		require.True(t, errors.As(err, &verr), "values %v", tc.values)
		assert.Equal(t, tc.field, verr.Field)
	}

	assert.Zero(t, store.count())
	var count int64
	require.NoError(t, db.Model(&domain.Product{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestImageAndGalleryUpload(t *testing.T) {
	db := dbtest.Open(t)
	store := &memStore{}
	ed := NewProductEditor(db, store, nil)
	ctx := context.Background()

	p, _, err := ed.Save(ctx, "admin", "", Form{
		Values: map[string]interface{}{
			"name":           "OLED 0.96\"",
			"price":          "199",
			"specifications": map[string]interface{}{"Interface": "I2C", "Voltage": "3.3V"},
		},
		Image:   upload("Front.PNG", "front"),
		Gallery: []*Upload{upload("a.jpg", "a"), upload("b.jpg", "b")},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p.ImageURL, "https://cdn.example/product-images/"))
	assert.True(t, strings.HasSuffix(p.ImageURL, ".png"))
	require.Len(t, p.AdditionalImages, 2)
	assert.True(t, strings.HasSuffix(p.AdditionalImages[0], ".jpg"))
	assert.Equal(t, "I2C", p.Specifications["Interface"])
	assert.Equal(t, 3, store.count())

	// further gallery uploads are appended to the stored gallery
	p, _, err = ed.Save(ctx, "admin", p.ID, Form{
		Values:  map[string]interface{}{"name": p.Name, "price": p.Price},
		Gallery: []*Upload{upload("c.jpg", "c")},
	})
	require.NoError(t, err)
	assert.Len(t, p.AdditionalImages, 3)

	var stored domain.Product
	require.NoError(t, db.First(&stored, "id = ?", p.ID).Error)
	assert.Len(t, stored.AdditionalImages, 3)
	assert.Equal(t, "I2C", stored.Specifications["Interface"])
}

func TestReplacedAndDeletedImagesAreRemoved(t *testing.T) {
	db := dbtest.Open(t)
	store := &memStore{}
	ed := NewProductEditor(db, store, nil)
	ctx := context.Background()

	p, _, err := ed.Save(ctx, "admin", "", Form{
		Values:  map[string]interface{}{"name": "Servo SG90", "price": 45},
		Image:   upload("front.png", "front"),
		Gallery: []*Upload{upload("side.jpg", "side"), upload("back.jpg", "back")},
	})
	require.NoError(t, err)
	require.Equal(t, 3, store.count())
	oldImage, side, back := p.ImageURL, p.AdditionalImages[0], p.AdditionalImages[1]

	// new cover image, gallery trimmed to one entry
	p, _, err = ed.Save(ctx, "admin", p.ID, Form{
		Values: map[string]interface{}{"name": p.Name, "price": p.Price, "additional_images": []string{side}},
		Image:  upload("front-v2.png", "front2"),
	})
	require.NoError(t, err)
	assert.NotEqual(t, oldImage, p.ImageURL)
	assert.False(t, store.has(oldImage))
	assert.False(t, store.has(back))
	assert.True(t, store.has(side))
	assert.True(t, store.has(p.ImageURL))
	assert.Equal(t, 2, store.count())

	// URLs outside the product bucket are never deleted
	_, err = store.Put(ctx, storage.BucketBannerImages, "keep.png", strings.NewReader("x"), "image/png")
	require.NoError(t, err)
	p, _, err = ed.Save(ctx, "admin", p.ID, Form{Values: map[string]interface{}{
		"name": p.Name, "price": p.Price,
		"image_url":         "https://cdn.example/banner-images/keep.png",
		"additional_images": []string{side},
	}})
	require.NoError(t, err)
	assert.True(t, store.has("https://cdn.example/banner-images/keep.png"))
	assert.Equal(t, 2, store.count())

	require.NoError(t, ed.Delete(ctx, "admin", p.ID))
	assert.False(t, store.has(side))
	assert.Equal(t, 1, store.count())
}

func TestUpdateMissingRecord(t *testing.T) {
	db := dbtest.Open(t)
	ed := NewProductEditor(db, &memStore{}, nil)
	_, _, err := ed.Save(context.Background(), "admin", "nope", Form{Values: map[string]interface{}{"name": "x", "price": 1}})
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestNullableFieldCleared(t *testing.T) {
	db := dbtest.Open(t)
	ed := NewProductEditor(db, &memStore{}, nil)
	ctx := context.Background()

	p, _, err := ed.Save(ctx, "admin", "", Form{Values: map[string]interface{}{"name": "Servo", "price": 90, "original_price": 120}})
	require.NoError(t, err)
	require.NotNil(t, p.OriginalPrice)

	p, _, err = ed.Save(ctx, "admin", p.ID, Form{Values: map[string]interface{}{"name": "Servo", "price": 90, "original_price": ""}})
	require.NoError(t, err)
	assert.Nil(t, p.OriginalPrice)
}

func TestDeleteProductDetachesEverything(t *testing.T) {
	db := dbtest.Open(t)
	seedCategories(t, db)
	bus := events.NewBus()
	var got []events.RecordEvent
	bus.OnRecord(events.TopicRecordSaved, func(ev events.RecordEvent) { got = append(got, ev) })
	bus.OnRecord(events.TopicRecordDeleted, func(ev events.RecordEvent) { got = append(got, ev) })

	ed := NewProductEditor(db, &memStore{}, bus)
	ctx := context.Background()
	p, _, err := ed.Save(ctx, "admin-1", "", Form{Values: map[string]interface{}{
		"name": "Jumper wires", "price": 49, "category_ids": []string{"A", "B"},
	}})
	require.NoError(t, err)
	require.NoError(t, db.Create(&domain.CartLine{UserID: "u", ProductID: p.ID, Quantity: 1}).Error)
	require.NoError(t, db.Create(&domain.WishlistEntry{UserID: "u", ProductID: p.ID}).Error)

	require.NoError(t, ed.Delete(ctx, "admin-1", p.ID))
	assert.ErrorIs(t, ed.Delete(ctx, "admin-1", p.ID), ErrRecordNotFound)

	for _, model := range []interface{}{&domain.Product{}, &domain.ProductCategory{}, &domain.CartLine{}, &domain.WishlistEntry{}} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		assert.Zero(t, count, "%T", model)
	}

	require.Len(t, got, 2)
	assert.Equal(t, "create", got[0].Action)
	assert.Equal(t, "product", got[0].Entity)
	assert.Equal(t, "admin-1", got[0].Actor)
	assert.Equal(t, "delete", got[1].Action)
	assert.Equal(t, p.ID, got[1].RecordID)
}

func TestDeleteCategoryKeepsProducts(t *testing.T) {
	db := dbtest.Open(t)
	seedCategories(t, db)
	products := NewProductEditor(db, &memStore{}, nil)
	ctx := context.Background()
	p, _, err := products.Save(ctx, "admin", "", Form{Values: map[string]interface{}{
		"name": "HC-SR04", "price": 60, "category_ids": []string{"B", "C"},
	}})
	require.NoError(t, err)

	categories := NewCategoryEditor(db, nil)
	require.NoError(t, categories.Delete(ctx, "admin", "B"))

	var stored domain.Product
	require.NoError(t, db.First(&stored, "id = ?", p.ID).Error)
	assert.Nil(t, stored.CategoryID)
	assert.Equal(t, []string{"C"}, secondaryLinks(t, db, p.ID))

	c, _, err := categories.Save(ctx, "admin", "", Form{Values: map[string]interface{}{"name": "Tools", "description": ""}})
	require.NoError(t, err)
	assert.Nil(t, c.Description)
}

func TestBannerDefaultsAndOrdering(t *testing.T) {
	db := dbtest.Open(t)
	store := &memStore{}
	ed := NewBannerEditor(db, store, nil)
	ctx := context.Background()

	first, _, err := ed.Save(ctx, "admin", "", Form{
		Values: map[string]interface{}{"title": "New Arrivals", "link": "/products"},
		Image:  upload("hero.webp", "hero"),
	})
	require.NoError(t, err)
	assert.True(t, first.Active)
	assert.Equal(t, "Shop Now", first.ButtonText)
	assert.Equal(t, 0, first.Priority)
	assert.True(t, strings.HasPrefix(first.ImageURL, "https://cdn.example/banner-images/"))

	second, _, err := ed.Save(ctx, "admin", "", Form{Values: map[string]interface{}{
		"title": "Summer Sale", "link": "/sale", "active": "false", "button_text": "Browse",
	}})
	require.NoError(t, err)
	assert.False(t, second.Active)
	assert.Equal(t, "Browse", second.ButtonText)
	assert.Equal(t, 1, second.Priority)

	require.NoError(t, ed.SwapPriority(ctx, "admin", first.ID, second.ID))
	a, err := ed.Get(ctx, first.ID)
	require.NoError(t, err)
	b, err := ed.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Priority)
	assert.Equal(t, 0, b.Priority)

	require.NoError(t, ed.SetActive(ctx, "admin", first.ID, false))
	a, err = ed.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, a.Active)

	assert.ErrorIs(t, ed.SetActive(ctx, "admin", "missing", true), ErrRecordNotFound)
	assert.ErrorIs(t, ed.SwapPriority(ctx, "admin", first.ID, "missing"), ErrRecordNotFound)

	_, _, err = ed.Save(ctx, "admin", "", Form{Values: map[string]interface{}{"title": "No link"}})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "link", verr.Field)
}
