package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrymomot/blogapi/pkg/logger"
)

// LocalConfig configures LocalStorage.
type LocalConfig struct {
	BaseDir string `env:"STORAGE_ROOT_PATH" envDefault:"wwwroot"`       // Directory served as the web root
	Root    string `env:"STORAGE_URL_ROOT" envDefault:"uploads"`        // First segment of every reference
	BaseURL string `env:"BASE_URL" envDefault:"https://localhost:5001"` // Prefix for resolved public URLs
}

// LocalStorage implements Storage on the local filesystem.
// Blobs live at <baseDir>/<root>/<subfolder>/<uuid><ext> and are referenced
// as "/<root>/<subfolder>/<uuid><ext>", which is also their public path.
// All operations are confined to <baseDir>/<root> to prevent path traversal.
// Safe for concurrent use: every Save writes a new, randomly named file.
type LocalStorage struct {
	baseDir  string // Absolute path
	root     string
	baseURL  string
	dirPerm  os.FileMode
	filePerm os.FileMode
	log      *slog.Logger
}

// LocalOption defines a function that configures LocalStorage.
type LocalOption func(*LocalStorage)

// WithLocalLogger sets the logger used for storage events.
func WithLocalLogger(l *slog.Logger) LocalOption {
	return func(s *LocalStorage) {
		if l != nil {
			s.log = l
		}
	}
}

// WithLocalPermissions overrides the default 0755/0644 directory and file permissions.
func WithLocalPermissions(dirPerm, filePerm os.FileMode) LocalOption {
	return func(s *LocalStorage) {
		s.dirPerm = dirPerm
		s.filePerm = filePerm
	}
}

// NewLocalStorage creates a filesystem storage.
// BaseDir is resolved to an absolute path; <BaseDir>/<Root> is created if it doesn't exist.
func NewLocalStorage(cfg LocalConfig, opts ...LocalOption) (*LocalStorage, error) {
	if cfg.BaseDir == "" {
		return nil, ErrInvalidConfig
	}

	root := strings.Trim(cfg.Root, "/")
	if root == "" {
		root = DefaultRoot
	}
	if _, err := cleanSubfolder(root); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	absBaseDir, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve base directory: %v", ErrFailedToGetAbsolutePath, err)
	}

	s := &LocalStorage{
		baseDir:  absBaseDir,
		root:     root,
		baseURL:  cfg.BaseURL,
		dirPerm:  0o755,
		filePerm: 0o644,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(s.rootDir(), s.dirPerm); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToCreateDirectory, err)
	}

	return s, nil
}

// Save stores the upload under a new unique name inside subfolder.
// The context is only checked before any I/O starts; once the write begins it
// runs to completion or failure. Partial files are removed on errors.
func (s *LocalStorage) Save(ctx context.Context, u Upload, subfolder string) (*Object, error) {
	select {
	case <-ctx.Done():
		return nil, errors.Join(ErrStorageWrite, ctx.Err())
	default:
	}

	if u == nil {
		return nil, errors.Join(ErrStorageWrite, ErrFailedToOpenFile)
	}

	sub, err := cleanSubfolder(subfolder)
	if err != nil {
		return nil, errors.Join(ErrStorageWrite, err)
	}

	name := UniqueName(u.Filename())
	reference := referencePrefix(s.root) + sub + "/" + name

	absPath, err := s.resolvePath(reference)
	if err != nil {
		return nil, errors.Join(ErrStorageWrite, err)
	}

	if err := s.ensureDir(ctx, filepath.Dir(absPath)); err != nil {
		return nil, errors.Join(ErrStorageWrite, err)
	}

	src, err := u.Open()
	if err != nil {
		return nil, errors.Join(ErrStorageWrite, fmt.Errorf("%w: %v", ErrFailedToOpenFile, err))
	}
	defer func() { _ = src.Close() }()

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Join(ErrStorageWrite, fmt.Errorf("%w: %v", ErrFailedToReadFile, err))
	}

	// O_EXCL: a stored blob is never overwritten or truncated in place.
	dst, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, s.filePerm)
	if err != nil {
		return nil, errors.Join(ErrStorageWrite, fmt.Errorf("%w: %v", ErrFailedToCreateFile, err))
	}

	written, err := writeAll(dst, src)
	if err != nil {
		_ = dst.Close()
		s.removePartial(ctx, absPath, err)
		return nil, errors.Join(ErrStorageWrite, err)
	}
	if err := dst.Close(); err != nil {
		s.removePartial(ctx, absPath, err)
		return nil, errors.Join(ErrStorageWrite, fmt.Errorf("%w: %v", ErrFailedToWriteFile, err))
	}

	s.log.InfoContext(ctx, "file saved",
		logger.Filename(u.Filename()),
		logger.Reference(reference),
		logger.Size(written),
	)

	return &Object{
		Reference:        reference,
		Name:             name,
		OriginalFilename: u.Filename(),
		ContentType:      u.ContentType(),
		Extension:        GetExtension(u),
		Size:             written, // Actual bytes written, not the declared size
		AbsolutePath:     absPath,
	}, nil
}

// writeAll copies src into dst with a 32KB buffer and flushes it to disk.
func writeAll(dst *os.File, src io.Reader) (int64, error) {
	buf := make([]byte, 32*1024) // 32KB balances memory usage and syscall overhead
	written, err := io.CopyBuffer(onlyWriter{dst}, src, buf)
	if err != nil {
		return written, fmt.Errorf("%w: %v", ErrFailedToWriteFile, err)
	}
	if err := dst.Sync(); err != nil {
		return written, fmt.Errorf("%w: %v", ErrFailedToWriteFile, err)
	}
	return written, nil
}

// onlyWriter hides *os.File's ReadFrom so the explicit buffer is used for every source.
type onlyWriter struct {
	io.Writer
}

func (s *LocalStorage) ensureDir(ctx context.Context, dir string) error {
	if _, err := os.Stat(dir); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrFailedToStatPath, err)
	}

	if err := os.MkdirAll(dir, s.dirPerm); err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToCreateDirectory, err)
	}
	s.log.InfoContext(ctx, "created directory", slog.String("directory", dir))
	return nil
}

func (s *LocalStorage) removePartial(ctx context.Context, absPath string, cause error) {
	s.log.ErrorContext(ctx, "failed to save file", slog.String("path", absPath), logger.Error(cause))
	if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
		s.log.ErrorContext(ctx, "failed to remove partial file", slog.String("path", absPath), logger.Error(err))
	}
}

// Delete removes the file behind reference. It never returns an error:
// missing files report DeleteMissing, foreign references DeleteSkipped and
// I/O failures DeleteFailed (logged).
func (s *LocalStorage) Delete(ctx context.Context, reference string) DeleteResult {
	res := DeleteResult{Reference: reference}

	if !s.IsLocal(reference) {
		res.Status = DeleteSkipped
		return res
	}

	select {
	case <-ctx.Done():
		return s.deleteFailed(ctx, res, ctx.Err())
	default:
	}

	absPath, err := s.resolvePath(reference)
	if err != nil {
		return s.deleteFailed(ctx, res, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			res.Status = DeleteMissing
			return res
		}
		return s.deleteFailed(ctx, res, fmt.Errorf("%w: %v", ErrFailedToStatPath, err))
	}

	// Safety check - prevent accidental directory deletion
	if info.IsDir() {
		return s.deleteFailed(ctx, res, fmt.Errorf("%w: %s", ErrIsDirectory, reference))
	}

	if err := os.Remove(absPath); err != nil {
		if os.IsNotExist(err) {
			res.Status = DeleteMissing
			return res
		}
		return s.deleteFailed(ctx, res, fmt.Errorf("%w: %v", ErrFailedToDeleteFile, err))
	}

	s.log.InfoContext(ctx, "file deleted", logger.Reference(reference))
	res.Status = DeleteRemoved
	return res
}

func (s *LocalStorage) deleteFailed(ctx context.Context, res DeleteResult, err error) DeleteResult {
	s.log.ErrorContext(ctx, "failed to delete file",
		logger.Reference(res.Reference),
		logger.Error(err),
	)
	res.Status = DeleteFailed
	res.Err = err
	return res
}

// Exists reports whether a blob is stored under reference.
func (s *LocalStorage) Exists(ctx context.Context, reference string) bool {
	select {
	case <-ctx.Done():
		return false
	default:
	}

	if !s.IsLocal(reference) {
		return false
	}
	absPath, err := s.resolvePath(reference)
	if err != nil {
		return false
	}
	info, err := os.Stat(absPath)
	return err == nil && !info.IsDir()
}

// URL returns the public URL for a reference.
// Foreign absolute URLs are returned unchanged.
func (s *LocalStorage) URL(reference string) string {
	if reference == "" || isAbsoluteURL(reference) || s.baseURL == "" {
		return reference
	}
	return joinURL(s.baseURL, reference)
}

// IsLocal reports whether reference starts with "/<root>/".
func (s *LocalStorage) IsLocal(reference string) bool {
	return hasReferencePrefix(reference, s.root)
}

// Root returns the logical root segment of references.
func (s *LocalStorage) Root() string {
	return s.root
}

func (s *LocalStorage) rootDir() string {
	return filepath.Join(s.baseDir, filepath.FromSlash(s.root))
}

// resolvePath maps a reference to an absolute path inside <baseDir>/<root>.
// Critical security function: rejects anything that escapes the root after cleaning.
func (s *LocalStorage) resolvePath(reference string) (string, error) {
	if strings.Contains(reference, "\x00") {
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, reference)
	}

	rel := filepath.FromSlash(strings.TrimPrefix(reference, "/"))
	absPath, err := filepath.Abs(filepath.Join(s.baseDir, rel))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFailedToGetAbsolutePath, err)
	}

	rootDir := s.rootDir()
	if !strings.HasPrefix(absPath, rootDir+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, reference)
	}

	return absPath, nil
}
