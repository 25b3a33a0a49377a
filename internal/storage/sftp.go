package storage

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/bjo163/storefront/config"
)

// SFTPStore uploads objects to a remote host that serves Dir over HTTP at the
// configured public URL.
type SFTPStore struct {
	cfg       config.SFTPConfig
	publicURL string
	hostKey   ssh.HostKeyCallback

	mu     sync.Mutex
	conn   *ssh.Client
	client *sftp.Client
}

func NewSFTPStore(cfg config.SFTPConfig, publicURL string) (*SFTPStore, error) {
	if cfg.Host == "" {
		return nil, errors.New("sftp host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	hostKey, err := hostKeyCallback(cfg)
	if err != nil {
		return nil, err
	}
	return &SFTPStore{cfg: cfg, publicURL: publicURL, hostKey: hostKey}, nil
}

// hostKeyCallback verifies the server against known_hosts, or against the
// single pinned host key.
func hostKeyCallback(cfg config.SFTPConfig) (ssh.HostKeyCallback, error) {
	switch {
	case cfg.KnownHosts != "":
		cb, err := knownhosts.New(cfg.KnownHosts)
		if err != nil {
			return nil, errors.Wrapf(err, "load known_hosts %s", cfg.KnownHosts)
		}
		return cb, nil
	case cfg.HostKey != "":
		key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(cfg.HostKey))
		if err != nil {
			return nil, errors.Wrap(err, "parse sftp host_key")
		}
		return ssh.FixedHostKey(key), nil
	}
	return nil, errors.New("sftp storage needs known_hosts or host_key")
}

// session returns a live client, dialing on first use or after a failure.
func (s *SFTPStore) session() (*sftp.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		if _, err := s.client.Getwd(); err == nil {
			return s.client, nil
		}
		s.closeLocked()
	}

	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	conn, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User:            s.cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(s.cfg.Passwd)},
		HostKeyCallback: s.hostKey,
		Timeout:         10 * time.Second,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "ssh dial %s", addr)
	}
	client, err := sftp.NewClient(conn)
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open sftp session")
	}
	s.conn, s.client = conn, client
	zap.L().Info("sftp storage connected", zap.String("addr", addr))
	return client, nil
}

func (s *SFTPStore) Put(ctx context.Context, bucket, key string, body io.Reader, _ string) (string, error) {
	if err := checkName(bucket, key); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	client, err := s.session()
	if err != nil {
		return "", err
	}
	dir := path.Join(s.cfg.Dir, bucket)
	if err := client.MkdirAll(dir); err != nil {
		return "", errors.Wrapf(err, "mkdir %s", dir)
	}
	f, err := client.OpenFile(path.Join(dir, key), os.O_CREATE|os.O_EXCL|os.O_WRONLY)
	if err != nil {
		return "", errors.Wrapf(err, "create remote object %s/%s", bucket, key)
	}
	defer f.Close()
	if _, err := f.ReadFrom(body); err != nil {
		return "", errors.Wrapf(err, "upload %s/%s", bucket, key)
	}
	return PublicURL(s.publicURL, bucket, key), nil
}

func (s *SFTPStore) Delete(_ context.Context, bucket, key string) error {
	if err := checkName(bucket, key); err != nil {
		return err
	}
	client, err := s.session()
	if err != nil {
		return err
	}
	err = client.Remove(path.Join(s.cfg.Dir, bucket, key))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "delete remote object %s/%s", bucket, key)
	}
	return nil
}

// Close releases the ssh connection
func (s *SFTPStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	return nil
}

func (s *SFTPStore) closeLocked() {
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.client, s.conn = nil, nil
}
