// Package contentstore wraps the durable object store. Content is written
// before any metadata row references it, so a stored key always resolves.
package contentstore

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
)

// Store persists raw content under a generated key and retrieves it by key.
type Store interface {
	// Put writes content under key. size may be -1 when unknown.
	Put(ctx context.Context, key string, content io.Reader, size int64, contentType string) error
	// Get retrieves content by key. The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// EvidenceKey builds a collision-resistant storage key for an evidence file,
// scoped by its batch correlation id. The original file name contributes only
// its extension; everything else is generated.
func EvidenceKey(batchID uuid.UUID, originalFileName string) string {
	return fmt.Sprintf("evidence/%s/%s%s", batchID, uuid.NewString(), filepath.Ext(originalFileName))
}

// ImportKey builds the storage key for a bulk-import payload.
func ImportKey(jobID uuid.UUID) string {
	return fmt.Sprintf("imports/%s.csv", jobID)
}
