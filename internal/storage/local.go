package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// LocalStore writes objects below a root directory, which the web server
// exposes under /storage.
type LocalStore struct {
	root      string
	publicURL string
}

func NewLocalStore(root, publicURL string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "create storage root")
	}
	return &LocalStore{root: root, publicURL: publicURL}, nil
}

// Root is the directory served as static content
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) Put(ctx context.Context, bucket, key string, body io.Reader, _ string) (string, error) {
	if err := checkName(bucket, key); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := filepath.Join(s.root, bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create bucket dir")
	}
	f, err := os.OpenFile(filepath.Join(dir, key), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", errors.Wrapf(err, "create object %s/%s", bucket, key)
	}
	defer f.Close()
	if _, err := io.Copy(f, body); err != nil {
		return "", errors.Wrapf(err, "write object %s/%s", bucket, key)
	}
	return PublicURL(s.publicURL, bucket, key), nil
}

func (s *LocalStore) Delete(_ context.Context, bucket, key string) error {
	if err := checkName(bucket, key); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.root, bucket, key))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "delete object %s/%s", bucket, key)
	}
	return nil
}
