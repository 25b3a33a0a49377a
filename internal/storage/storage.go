package storage

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/bjo163/storefront/config"
)

// Buckets used by the admin editors
const (
	BucketProductImages = "product-images"
	BucketBannerImages  = "banner-images"
)

const suffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Store persists uploaded objects and returns a publicly resolvable URL.
type Store interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, bucket, key string) error
}

// ObjectKey builds a collision-resistant object name from the upload time, a
// random base36 suffix and the original file extension.
func ObjectKey(filename string, now time.Time) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	key := fmt.Sprintf("%d-%s", now.UnixMilli(), randomSuffix(13))
	if ext != "" {
		key += "." + ext
	}
	return key
}

func randomSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	for i, b := range buf {
		buf[i] = suffixAlphabet[int(b)%len(suffixAlphabet)]
	}
	return string(buf)
}

// PublicURL joins base, bucket and key
func PublicURL(base, bucket, key string) string {
	return strings.TrimRight(base, "/") + "/" + path.Join(bucket, key)
}

// ObjectFromURL recovers the bucket and key of a URL built by PublicURL.
// ok is false when the URL does not end in a valid bucket/key pair.
func ObjectFromURL(raw string) (bucket, key string, ok bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", false
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) < 2 {
		return "", "", false
	}
	bucket, key = segs[len(segs)-2], segs[len(segs)-1]
	if checkName(bucket, key) != nil {
		return "", "", false
	}
	return bucket, key, true
}

func checkName(bucket, key string) error {
	for _, s := range []string{bucket, key} {
		if s == "" || strings.Contains(s, "..") || strings.ContainsAny(s, `/\`) {
			return errors.Errorf("invalid object name %q", s)
		}
	}
	return nil
}

// New returns the store selected by cfg.Storage.Type.
func New(cfg *config.AppConfig) (Store, error) {
	switch cfg.Storage.Type {
	case "", "local":
		return NewLocalStore(cfg.GetStorageDir(), cfg.Storage.PublicURL)
	case "sftp":
		return NewSFTPStore(cfg.Storage.SFTP, cfg.Storage.PublicURL)
	default:
		return nil, errors.Errorf("unsupported storage type %q", cfg.Storage.Type)
	}
}
