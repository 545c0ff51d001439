package blob

import (
	"context"
	"errors"
	"fmt"
)

// Bucket names the two logical attachment buckets.
type Bucket string

const (
	// BucketReceipts holds payment receipts for dues.
	BucketReceipts Bucket = "recus-cotisations"
	// BucketJustifications holds justification documents for charges.
	BucketJustifications Bucket = "justificatifs-charges"
)

// Ref is a durable, retrievable reference to a stored object. It is opaque to
// callers; only the issuing store can derive a public URL from it.
type Ref string

var (
	// ErrPathExists signals a name collision on upload. Paths carry a
	// monotonic disambiguator, so hitting this means the caller reused a
	// path verbatim.
	ErrPathExists = errors.New("object already exists at path")

	// ErrObjectMissing signals a remove of a reference that resolves to
	// nothing, typically an orphan already swept.
	ErrObjectMissing = errors.New("object not found")
)

// StorageError wraps a failed attachment store operation. Uploads are atomic:
// either the object exists at the path afterwards or it does not; no partial
// object is ever observable.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("blob %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("blob %s %q: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err carries a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// Store uploads binary attachments to content-addressed storage.
type Store interface {
	// Upload writes data under path in the bucket and returns the durable
	// reference. Fails with a StorageError on network, quota, or collision;
	// never partially applies.
	Upload(ctx context.Context, bucket Bucket, path string, data []byte, contentType string) (Ref, error)

	// PublicURL derives the retrievable URL for a reference returned by a
	// confirmed Upload. Pure derivation, no network call.
	PublicURL(ref Ref) string

	// Remove deletes the object behind a reference. Only the out-of-core
	// orphan sweeper calls this; the engine itself never garbage-collects.
	Remove(ctx context.Context, ref Ref) error
}
