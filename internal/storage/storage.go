package storage

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by Head when the object does not exist.
var ErrNotFound = errors.New("object not found")

type ObjectInfo struct {
	Size        int64
	ContentType string
}

// ObjectStore 附件文件所在的对象存储
type ObjectStore interface {
	// PresignPut returns a URL the client can PUT the file body to.
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	Head(ctx context.Context, key string) (ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// PublicURL joins a public base URL and an object key.
func PublicURL(base, key string) string {
	if base == "" {
		return "/" + strings.TrimLeft(key, "/")
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
