// Package blob is the durable object storage used for uploaded CSV files.
// Keys are slash separated, e.g. uploads/10/branch_10_03022026/branch_10_01_03022026.csv.
package blob

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

const UploadsPrefix = "uploads"

type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]Object, error)
	Delete(ctx context.Context, keys ...string) error
}

// FolderPrefix is uploads/{partnerID}/{folder}.
func FolderPrefix(partnerID, folder string) string {
	return strings.Join([]string{UploadsPrefix, partnerID, folder}, "/")
}

// PartnerPrefix is uploads/{partnerID}/.
func PartnerPrefix(partnerID string) string {
	return UploadsPrefix + "/" + partnerID + "/"
}

// ValidateKey rejects keys that could escape a local root.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return fmt.Errorf("invalid object key %q", key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." || seg == "." {
			return fmt.Errorf("invalid object key %q", key)
		}
	}
	return nil
}
