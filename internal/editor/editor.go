package editor

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/bjo163/storefront/internal/events"
	"github.com/bjo163/storefront/internal/storage"
)

var ErrRecordNotFound = errors.New("record not found")

var validate = validator.New()

// Kind is the value type of a form field
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindInt
	KindBool
	KindStringList
	KindStringMap
)

// Field describes one editable column. Name is the record's json name.
type Field struct {
	Name        string
	Kind        Kind
	Required    bool
	NonNegative bool
	// Nullable fields store nil instead of an empty string
	Nullable bool
}

// Schema describes an editable entity
type Schema struct {
	Entity string
	Fields []Field
	// ImageField receives the public URL of Form.Image
	ImageField string
	// GalleryField receives the public URLs of Form.Gallery, appended
	GalleryField string
	Bucket       string
}

// Values are the coerced field values of a submission
type Values map[string]interface{}

// Upload is a file attached to a submission
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Form is one editor submission
type Form struct {
	Values  map[string]interface{}
	Image   *Upload
	Gallery []*Upload
}

// ValidationError blocks a submission before any I/O
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Hooks carry the per-entity behaviour of an Editor
type Hooks[T any] struct {
	// ID returns the record's identity
	ID func(rec *T) string
	// Prepare derives or defaults values after field coercion
	Prepare func(ctx context.Context, db *gorm.DB, values Values, form Form, created bool) error
	// AfterSave runs in the save transaction
	AfterSave func(ctx context.Context, tx *gorm.DB, rec *T, form Form) error
	// BeforeDelete runs in the delete transaction
	BeforeDelete func(ctx context.Context, tx *gorm.DB, id string) error
	// Gallery returns the stored gallery so uploads can be appended
	Gallery func(rec *T) []string
	// Images returns every stored image URL of the record. Objects no longer
	// referenced after an update or delete are removed from the store.
	Images func(rec *T) []string
}

// Editor maps form submissions onto records of type T: validate, upload the
// attached image, then insert or update.
type Editor[T any] struct {
	db     *gorm.DB
	store  storage.Store
	bus    *events.Bus
	schema Schema
	hooks  Hooks[T]
	now    func() time.Time
}

func New[T any](db *gorm.DB, store storage.Store, bus *events.Bus, schema Schema, hooks Hooks[T]) *Editor[T] {
	return &Editor[T]{db: db, store: store, bus: bus, schema: schema, hooks: hooks, now: time.Now}
}

// Schema returns the editor's field schema
func (e *Editor[T]) Schema() Schema {
	return e.schema
}

// Get loads one record
func (e *Editor[T]) Get(ctx context.Context, id string) (*T, error) {
	rec := new(T)
	err := e.db.WithContext(ctx).Where("id = ?", id).First(rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	} else if err != nil {
		return nil, errors.Wrapf(err, "query %s", e.schema.Entity)
	}
	return rec, nil
}

// Save validates form and inserts a new record (id == "") or updates the
// record id. An uploaded image is not removed if persisting fails.
func (e *Editor[T]) Save(ctx context.Context, actor, id string, form Form) (*T, bool, error) {
	created := id == ""

	values, err := e.coerce(form.Values)
	if err != nil {
		return nil, created, err
	}
	if e.hooks.Prepare != nil {
		if err := e.hooks.Prepare(ctx, e.db.WithContext(ctx), values, form, created); err != nil {
			return nil, created, err
		}
	}

	rec := new(T)
	var before []string
	if !created {
		if rec, err = e.Get(ctx, id); err != nil {
			return nil, created, err
		}
		before = e.images(rec)
	}

	if err := e.uploadAll(ctx, rec, values, form); err != nil {
		return nil, created, err
	}

	if err := decode(values, rec); err != nil {
		return nil, created, errors.Wrapf(err, "map %s fields", e.schema.Entity)
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if created {
			if err := tx.Create(rec).Error; err != nil {
				return errors.Wrapf(err, "insert %s", e.schema.Entity)
			}
		} else if err := tx.Save(rec).Error; err != nil {
			return errors.Wrapf(err, "update %s", e.schema.Entity)
		}
		if e.hooks.AfterSave != nil {
			return e.hooks.AfterSave(ctx, tx, rec, form)
		}
		return nil
	})
	if err != nil {
		zap.L().Error("editor save failed", zap.String("entity", e.schema.Entity), zap.String("id", id), zap.Error(err))
		return nil, created, err
	}

	if len(before) > 0 {
		e.discard(ctx, unreferenced(before, e.images(rec)))
	}

	action := "update"
	if created {
		action = "create"
	}
	e.bus.PublishRecord(events.TopicRecordSaved, events.RecordEvent{
		Actor:    actor,
		Action:   action,
		Entity:   e.schema.Entity,
		RecordID: e.hooks.ID(rec),
		At:       e.now(),
	})
	return rec, created, nil
}

// Delete removes the record id and then its stored images
func (e *Editor[T]) Delete(ctx context.Context, actor, id string) error {
	var images []string
	if e.hooks.Images != nil {
		rec, err := e.Get(ctx, id)
		if err != nil {
			return err
		}
		images = e.images(rec)
	}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if e.hooks.BeforeDelete != nil {
			if err := e.hooks.BeforeDelete(ctx, tx, id); err != nil {
				return err
			}
		}
		res := tx.Where("id = ?", id).Delete(new(T))
		if res.Error != nil {
			return errors.Wrapf(res.Error, "delete %s", e.schema.Entity)
		}
		if res.RowsAffected == 0 {
			return ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.discard(ctx, images)
	e.bus.PublishRecord(events.TopicRecordDeleted, events.RecordEvent{
		Actor:    actor,
		Action:   "delete",
		Entity:   e.schema.Entity,
		RecordID: id,
		At:       e.now(),
	})
	return nil
}

// coerce validates raw against the schema and converts each present value to
// its field kind. Keys outside the schema are dropped.
func (e *Editor[T]) coerce(raw map[string]interface{}) (Values, error) {
	out := Values{}
	for _, f := range e.schema.Fields {
		v, present := raw[f.Name]
		if present && isBlank(v) {
			present = false
			v = nil
		}
		if !present {
			if f.Required {
				return nil, &ValidationError{Field: f.Name, Message: "is required"}
			}
			if _, sent := raw[f.Name]; sent && f.Nullable {
				out[f.Name] = nil
			} else if sent && f.Kind == KindString {
				out[f.Name] = ""
			}
			continue
		}
		cv, err := coerceValue(f, v)
		if err != nil {
			return nil, err
		}
		out[f.Name] = cv
	}
	return out, nil
}

func coerceValue(f Field, v interface{}) (interface{}, error) {
	invalid := func(msg string) error { return &ValidationError{Field: f.Name, Message: msg} }
	switch f.Kind {
	case KindString:
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, invalid("must be text")
		}
		return strings.TrimSpace(s), nil
	case KindNumber:
		n, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, invalid("must be a number")
		}
		if f.NonNegative && n < 0 {
			return nil, invalid("must not be negative")
		}
		return n, nil
	case KindInt:
		n, err := cast.ToFloat64E(v)
		if err != nil || n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
			return nil, invalid("must be a whole number")
		}
		if f.NonNegative && n < 0 {
			return nil, invalid("must not be negative")
		}
		return int(n), nil
	case KindBool:
		b, err := cast.ToBoolE(v)
		if err != nil {
			return nil, invalid("must be true or false")
		}
		return b, nil
	case KindStringList:
		if s, ok := v.(string); ok && strings.HasPrefix(strings.TrimSpace(s), "[") {
			var list []string
			if err := jsoniter.UnmarshalFromString(s, &list); err != nil {
				return nil, invalid("must be a list of text")
			}
			v = list
		}
		list, err := cast.ToStringSliceE(v)
		if err != nil {
			return nil, invalid("must be a list of text")
		}
		out := make([]string, 0, len(list))
		for _, item := range list {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out, nil
	case KindStringMap:
		m, err := cast.ToStringMapStringE(v)
		if err != nil {
			return nil, invalid("must be an object of text values")
		}
		out := make(map[string]string, len(m))
		for k, val := range m {
			out[strings.TrimSpace(k)] = strings.TrimSpace(val)
		}
		if err := validate.Var(out, "dive,keys,required,max=64,endkeys,max=1024"); err != nil {
			return nil, invalid("keys must be 1-64 characters, values at most 1024")
		}
		return out, nil
	}
	return nil, invalid("unsupported field")
}

func isBlank(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// uploadAll stores the form's image and gallery files and substitutes their
// URLs into values.
func (e *Editor[T]) uploadAll(ctx context.Context, rec *T, values Values, form Form) error {
	if form.Image != nil && e.schema.ImageField != "" {
		url, err := e.upload(ctx, form.Image)
		if err != nil {
			return err
		}
		values[e.schema.ImageField] = url
	}

	if len(form.Gallery) == 0 || e.schema.GalleryField == "" {
		return nil
	}
	urls := make([]string, len(form.Gallery))
	g, gctx := errgroup.WithContext(ctx)
	for i, up := range form.Gallery {
		i, up := i, up
		g.Go(func() error {
			url, err := e.upload(gctx, up)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var gallery []string
	if cur, ok := values[e.schema.GalleryField].([]string); ok {
		gallery = cur
	} else if e.hooks.Gallery != nil {
		gallery = append(gallery, e.hooks.Gallery(rec)...)
	}
	values[e.schema.GalleryField] = append(gallery, urls...)
	return nil
}

func (e *Editor[T]) upload(ctx context.Context, up *Upload) (string, error) {
	if e.store == nil {
		return "", errors.New("object storage is not configured")
	}
	key := storage.ObjectKey(up.Filename, e.now())
	url, err := e.store.Put(ctx, e.schema.Bucket, key, up.Body, up.ContentType)
	if err != nil {
		return "", errors.Wrapf(err, "upload %s image", e.schema.Entity)
	}
	zap.L().Info("image uploaded", zap.String("entity", e.schema.Entity), zap.String("url", url))
	return url, nil
}

// images copies the record's image URLs, skipping blanks
func (e *Editor[T]) images(rec *T) []string {
	if e.hooks.Images == nil {
		return nil
	}
	var out []string
	for _, u := range e.hooks.Images(rec) {
		if strings.TrimSpace(u) != "" {
			out = append(out, u)
		}
	}
	return out
}

// discard removes stored objects of the editor's bucket. URLs pointing
// elsewhere are left alone; failures are logged and do not fail the request.
func (e *Editor[T]) discard(ctx context.Context, urls []string) {
	if e.store == nil {
		return
	}
	for _, u := range urls {
		bucket, key, ok := storage.ObjectFromURL(u)
		if !ok || bucket != e.schema.Bucket {
			continue
		}
		if err := e.store.Delete(ctx, bucket, key); err != nil {
			zap.L().Warn("image cleanup failed", zap.String("entity", e.schema.Entity), zap.String("url", u), zap.Error(err))
			continue
		}
		zap.L().Info("image removed", zap.String("entity", e.schema.Entity), zap.String("url", u))
	}
}

func unreferenced(before, after []string) []string {
	kept := make(map[string]bool, len(after))
	for _, u := range after {
		kept[u] = true
	}
	var out []string
	for _, u := range before {
		if !kept[u] {
			out = append(out, u)
		}
	}
	return out
}

func decode(values Values, rec interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		ZeroFields: true,
		Result:     rec,
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]interface{}(values))
}
