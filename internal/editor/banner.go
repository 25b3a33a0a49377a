package editor

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/bjo163/storefront/internal/domain"
	"github.com/bjo163/storefront/internal/events"
	"github.com/bjo163/storefront/internal/storage"
)

const defaultButtonText = "Shop Now"

var BannerSchema = Schema{
	Entity: "banner",
	Fields: []Field{
		{Name: "title", Kind: KindString, Required: true},
		{Name: "subtitle", Kind: KindString, Nullable: true},
		{Name: "button_text", Kind: KindString},
		{Name: "link", Kind: KindString, Required: true},
		{Name: "active", Kind: KindBool},
		{Name: "priority", Kind: KindInt, NonNegative: true},
		{Name: "image_url", Kind: KindString},
	},
	ImageField: "image_url",
	Bucket:     storage.BucketBannerImages,
}

// BannerEditor adds ordering and visibility toggles to the banner editor
type BannerEditor struct {
	*Editor[domain.Banner]
}

func NewBannerEditor(db *gorm.DB, store storage.Store, bus *events.Bus) *BannerEditor {
	return &BannerEditor{New(db, store, bus, BannerSchema, Hooks[domain.Banner]{
		ID:      func(b *domain.Banner) string { return b.ID },
		Prepare: prepareBanner,
		Images:  func(b *domain.Banner) []string { return []string{b.ImageURL} },
	})}
}

// prepareBanner fills creation defaults: visible, "Shop Now", last in order
func prepareBanner(ctx context.Context, db *gorm.DB, values Values, form Form, created bool) error {
	if v, ok := values["button_text"]; !ok || v == "" {
		if created || ok {
			values["button_text"] = defaultButtonText
		}
	}
	if !created {
		return nil
	}
	if _, ok := values["active"]; !ok {
		values["active"] = true
	}
	if _, ok := values["priority"]; !ok {
		var last int
		if err := db.Model(&domain.Banner{}).Select("COALESCE(MAX(priority), -1)").Row().Scan(&last); err != nil {
			return errors.Wrap(err, "query banner priority")
		}
		values["priority"] = last + 1
	}
	return nil
}

// SetActive shows or hides a banner
func (e *BannerEditor) SetActive(ctx context.Context, actor, id string, active bool) error {
	res := e.db.WithContext(ctx).Model(&domain.Banner{}).Where("id = ?", id).
		Updates(map[string]interface{}{"active": active, "updated_at": e.now()})
	if res.Error != nil {
		return errors.Wrap(res.Error, "update banner")
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	e.publish(actor, id, fmt.Sprintf("active=%t", active))
	return nil
}

// SwapPriority exchanges the display positions of banners a and b
func (e *BannerEditor) SwapPriority(ctx context.Context, actor, a, b string) error {
	if a == b {
		return nil
	}
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pair []domain.Banner
		if err := tx.Where("id IN ?", []string{a, b}).Find(&pair).Error; err != nil {
			return errors.Wrap(err, "query banners")
		}
		if len(pair) != 2 {
			return ErrRecordNotFound
		}
		now := e.now()
		for i, other := range []int{1, 0} {
			err := tx.Model(&domain.Banner{}).Where("id = ?", pair[i].ID).
				Updates(map[string]interface{}{"priority": pair[other].Priority, "updated_at": now}).Error
			if err != nil {
				return errors.Wrap(err, "update banner priority")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.publish(actor, a, "swapped priority with "+b)
	return nil
}

func (e *BannerEditor) publish(actor, id, detail string) {
	e.bus.PublishRecord(events.TopicRecordSaved, events.RecordEvent{
		Actor:    actor,
		Action:   "update",
		Entity:   e.schema.Entity,
		RecordID: id,
		Detail:   detail,
		At:       e.now(),
	})
}
