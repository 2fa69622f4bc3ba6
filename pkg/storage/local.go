package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"verdict/pkg/lifecycle"
)

// local stores blobs as plain files under a root directory. It backs
// development and test deployments where no Azure account is available.
type local struct {
	root     string
	endpoint *url.URL
	logger   *slog.Logger
}

func newLocal(cfg *Config, logger *slog.Logger) (System, error) {
	endpoint, err := parseEndpoint(cfg.PublicEndpoint)
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}

	return &local{
		root:     root,
		endpoint: endpoint,
		logger:   logger.With("system", "storage"),
	}, nil
}

func (l *local) Start(lc *lifecycle.Coordinator) error {
	l.logger.Info("starting storage system")

	lc.OnStartup(func() {
		if err := os.MkdirAll(l.root, 0o755); err != nil {
			l.logger.Error("storage root initialization failed", "error", err)
			return
		}
		l.logger.Info("storage root ready", "root", l.root)
	})

	return nil
}

// Upload writes through a temp file in the target directory and renames it
// into place, so readers never observe a partially written blob.
func (l *local) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	target := l.path(key)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp blob: %w", err)
	}

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write blob %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close blob %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("finalize blob %s: %w", key, err)
	}

	return nil
}

func (l *local) Download(ctx context.Context, key string) (*DownloadResult, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	f, err := os.Open(l.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("download blob %s: %w", key, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat blob %s: %w", key, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, ErrNotFound
	}

	return &DownloadResult{
		Body:          f,
		ContentType:   contentTypeOf(key),
		ContentLength: info.Size(),
	}, nil
}

func (l *local) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if err := os.Remove(l.path(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete blob %s: %w", key, err)
	}

	return nil
}

func (l *local) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	info, err := os.Stat(l.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("check blob existence %s: %w", key, err)
	}

	return !info.IsDir(), nil
}

func (l *local) Find(ctx context.Context, key string) (*Object, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	info, err := os.Stat(l.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find blob %s: %w", key, err)
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}

	return &Object{
		Key:          key,
		Size:         info.Size(),
		ContentType:  contentTypeOf(key),
		LastModified: info.ModTime().UTC(),
	}, nil
}

// List walks the root and pages lexicographically; the marker is the last key
// of the previous page.
func (l *local) List(ctx context.Context, prefix, marker string, maxResults int32) (*ListResult, error) {
	if maxResults < 1 {
		maxResults = 1
	}
	maxResults = min(maxResults, MaxListCap)

	var keys []string
	err := filepath.WalkDir(l.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}

		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) && key > marker {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list blobs under %q: %w", prefix, err)
	}

	sort.Strings(keys)

	result := &ListResult{Objects: []Object{}}
	for i, key := range keys {
		if int32(len(result.Objects)) == maxResults {
			result.NextMarker = keys[i-1]
			break
		}

		info, err := os.Stat(l.path(key))
		if err != nil {
			continue
		}
		result.Objects = append(result.Objects, Object{
			Key:          key,
			Size:         info.Size(),
			ContentType:  contentTypeOf(key),
			LastModified: info.ModTime().UTC(),
		})
	}
	return result, nil
}

// SignedURL joins the public endpoint with the key. Local blobs carry no
// signature and the ttl is ignored.
func (l *local) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	if l.endpoint == nil {
		return "", ErrSigningUnavailable
	}

	u := *l.endpoint
	u.Path = path.Join(u.Path, key)
	return u.String(), nil
}

func (l *local) path(key string) string {
	return filepath.Join(l.root, filepath.FromSlash(key))
}

func contentTypeOf(key string) string {
	return mime.TypeByExtension(path.Ext(key))
}
