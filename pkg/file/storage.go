package file

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// DefaultRoot is the logical root every local reference starts with.
const DefaultRoot = "uploads"

// Object describes a stored blob.
type Object struct {
	Reference        string // "/<root>/<subfolder>/<name>", stored on the owning record
	Name             string // Generated unique name, original extension preserved
	OriginalFilename string
	ContentType      string // Declared content type, recorded as-is
	Extension        string
	Size             int64 // Bytes actually written
	AbsolutePath     string
}

// DeleteStatus is the outcome of a best-effort delete.
type DeleteStatus int

const (
	DeleteRemoved DeleteStatus = iota
	DeleteMissing              // Nothing was stored under the reference
	DeleteSkipped              // Reference is not owned by this storage
	DeleteFailed               // Removal failed; the blob may be orphaned
)

func (s DeleteStatus) String() string {
	switch s {
	case DeleteRemoved:
		return "removed"
	case DeleteMissing:
		return "missing"
	case DeleteSkipped:
		return "skipped"
	case DeleteFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DeleteResult reports what Delete did. Delete never returns an error: a
// failure is carried in Err with Status set to DeleteFailed, leaving the
// caller to decide whether it matters.
type DeleteResult struct {
	Reference string
	Status    DeleteStatus
	Err       error
}

// Failed reports whether the blob may still exist after the delete attempt.
func (r DeleteResult) Failed() bool { return r.Status == DeleteFailed }

// Storage persists validated uploads and removes them again.
type Storage interface {
	// Save writes the upload under a freshly generated name inside subfolder
	// and returns the stored object. Partial writes are removed before an
	// error is returned.
	Save(ctx context.Context, u Upload, subfolder string) (*Object, error)
	// Delete removes the blob behind reference. Missing blobs are not an error.
	Delete(ctx context.Context, reference string) DeleteResult
	// URL resolves a reference to a public URL. No I/O.
	URL(reference string) string
	// IsLocal reports whether reference points at a blob this storage owns.
	IsLocal(reference string) bool
}

var (
	_ Storage = (*LocalStorage)(nil)
	_ Storage = (*S3Storage)(nil)
)

// UniqueName returns a random UUID-based name keeping the lowercase extension of filename.
func UniqueName(filename string) string {
	return uuid.NewString() + strings.ToLower(path.Ext(strings.ReplaceAll(filename, "\\", "/")))
}

// cleanSubfolder validates a logical subfolder such as "posts" or "posts/covers".
func cleanSubfolder(subfolder string) (string, error) {
	sub := strings.Trim(strings.ReplaceAll(subfolder, "\\", "/"), "/")
	if sub == "" || strings.Contains(sub, "\x00") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, subfolder)
	}
	for _, seg := range strings.Split(sub, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, subfolder)
		}
	}
	return sub, nil
}

// referencePrefix returns "/<root>/".
func referencePrefix(root string) string {
	return "/" + strings.Trim(root, "/") + "/"
}

// hasReferencePrefix reports whether reference lives under "/<root>/".
func hasReferencePrefix(reference, root string) bool {
	return strings.HasPrefix(reference, referencePrefix(root))
}

// joinURL concatenates a base URL and a reference with exactly one slash between them.
func joinURL(baseURL, reference string) string {
	return strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(reference, "/")
}

// isAbsoluteURL reports whether reference is already a full URL, e.g. an externally supplied image link.
func isAbsoluteURL(reference string) bool {
	lower := strings.ToLower(reference)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "//")
}
