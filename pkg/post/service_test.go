package post_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/blogapi/pkg/file"
	"github.com/dmitrymomot/blogapi/pkg/post"
)

const owner = "user-1"

var (
	pngBytes  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00}
	jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46}

	postReferencePattern = regexp.MustCompile(`^/uploads/posts/[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.png$`)
)

// recordingStorage wraps a real LocalStorage, counting calls and optionally failing them.
type recordingStorage struct {
	*file.LocalStorage

	mu         sync.Mutex
	saves      int
	deletes    []string
	failSave   bool
	failDelete bool
}

func (s *recordingStorage) Save(ctx context.Context, u file.Upload, subfolder string) (*file.Object, error) {
	s.mu.Lock()
	s.saves++
	fail := s.failSave
	s.mu.Unlock()

	if fail {
		return nil, errors.Join(file.ErrStorageWrite, errors.New("disk full"))
	}
	return s.LocalStorage.Save(ctx, u, subfolder)
}

func (s *recordingStorage) Delete(ctx context.Context, reference string) file.DeleteResult {
	s.mu.Lock()
	s.deletes = append(s.deletes, reference)
	fail := s.failDelete
	s.mu.Unlock()

	if fail {
		return file.DeleteResult{Reference: reference, Status: file.DeleteFailed, Err: file.ErrFailedToDeleteFile}
	}
	return s.LocalStorage.Delete(ctx, reference)
}

func (s *recordingStorage) deleteCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deletes...)
}

func (s *recordingStorage) saveCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// flakyRepository fails selected writes of an otherwise working repository.
type flakyRepository struct {
	post.Repository
	failCreate error
	failUpdate error
}

func (r *flakyRepository) Create(ctx context.Context, p *post.Post) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	return r.Repository.Create(ctx, p)
}

func (r *flakyRepository) Update(ctx context.Context, p *post.Post) error {
	if r.failUpdate != nil {
		return r.failUpdate
	}
	return r.Repository.Update(ctx, p)
}

// MockOrphanRecorder is a mock implementation of post.OrphanRecorder
type MockOrphanRecorder struct {
	mock.Mock
}

func (m *MockOrphanRecorder) RecordOrphan(ctx context.Context, reference string, cause error) error {
	args := m.Called(ctx, reference, cause)
	return args.Error(0)
}

type fixture struct {
	svc     *post.Service
	repo    *flakyRepository
	storage *recordingStorage
	baseDir string
}

func newFixture(t *testing.T, opts ...post.ServiceOption) *fixture {
	t.Helper()

	baseDir := t.TempDir()
	local, err := file.NewLocalStorage(file.LocalConfig{
		BaseDir: baseDir,
		Root:    "uploads",
		BaseURL: "https://blog.example.com",
	})
	require.NoError(t, err)

	storage := &recordingStorage{LocalStorage: local}
	repo := &flakyRepository{Repository: post.NewMemoryRepository()}

	return &fixture{
		svc:     post.NewService(repo, storage, opts...),
		repo:    repo,
		storage: storage,
		baseDir: baseDir,
	}
}

func (f *fixture) path(reference string) string {
	return filepath.Join(f.baseDir, filepath.FromSlash(reference))
}

func (f *fixture) storedFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(f.baseDir, "uploads", "posts"))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func (f *fixture) createWithImage(t *testing.T, filename string, content []byte) *post.Post {
	t.Helper()
	p, err := f.svc.Create(context.Background(), owner, post.CreateInput{Title: "Hello"},
		file.NewBytesUpload(filename, "image/png", content))
	require.NoError(t, err)
	return p
}

func strPtr(s string) *string { return &s }

func TestService_Create(t *testing.T) {
	t.Parallel()

	t.Run("stores a png and records all attachment fields", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		p, err := f.svc.Create(context.Background(), owner,
			post.CreateInput{Title: "Trip", Content: "Photos", ImageAltText: strPtr("beach")},
			file.NewBytesUpload("beach.png", "image/png", pngBytes))
		require.NoError(t, err)

		require.NotNil(t, p.Image.Reference)
		assert.Regexp(t, postReferencePattern, *p.Image.Reference)
		assert.Equal(t, "beach.png", *p.Image.OriginalFilename)
		assert.Equal(t, "image/png", *p.Image.ContentType)
		assert.Equal(t, int64(10), *p.Image.SizeBytes)
		assert.Equal(t, "beach", *p.ImageAltText)
		assert.NotZero(t, p.ID)

		data, err := os.ReadFile(f.path(*p.Image.Reference))
		require.NoError(t, err)
		assert.Equal(t, pngBytes, data)

		stored, err := f.svc.Get(context.Background(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, *p.Image.Reference, *stored.Image.Reference)
	})

	t.Run("executable extension is rejected before any write", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		p, err := f.svc.Create(context.Background(), owner, post.CreateInput{Title: "x"},
			file.NewBytesUpload("payload.exe", "image/png", pngBytes))
		assert.Nil(t, p)
		assert.ErrorIs(t, err, post.ErrValidationRejected)
		assert.ErrorIs(t, err, file.ErrExtensionNotAllowed)

		assert.Zero(t, f.storage.saveCalls())
		assert.Empty(t, f.storedFiles(t))
		posts, err := f.svc.ListByOwner(context.Background(), owner)
		require.NoError(t, err)
		assert.Empty(t, posts)
	})

	t.Run("oversized png is rejected for size", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		big := make([]byte, 5<<20+1)
		copy(big, pngBytes)
		_, err := f.svc.Create(context.Background(), owner, post.CreateInput{Title: "x"},
			file.NewBytesUpload("big.png", "image/png", big))
		assert.ErrorIs(t, err, post.ErrValidationRejected)
		assert.ErrorIs(t, err, file.ErrFileTooLarge)
		assert.Empty(t, f.storedFiles(t))
	})

	t.Run("without an image", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		p, err := f.svc.Create(context.Background(), owner, post.CreateInput{Title: "Plain"}, nil)
		require.NoError(t, err)
		assert.True(t, p.Image.Empty())
		assert.Nil(t, p.Image.OriginalFilename)
	})

	t.Run("with an external image url", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		p, err := f.svc.Create(context.Background(), owner,
			post.CreateInput{Title: "Linked", ImageURL: strPtr("https://cdn.example.com/a.png")}, nil)
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/a.png", *p.Image.Reference)
		assert.Nil(t, p.Image.SizeBytes)
		assert.Zero(t, f.storage.saveCalls())
	})

	t.Run("image url pointing into storage is refused", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.svc.Create(context.Background(), owner,
			post.CreateInput{Title: "Sneaky", ImageURL: strPtr("/uploads/posts/someone-else.png")}, nil)
		assert.ErrorIs(t, err, post.ErrInvalidImageURL)
	})

	t.Run("storage failure creates nothing", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.storage.failSave = true

		_, err := f.svc.Create(context.Background(), owner, post.CreateInput{Title: "x"},
			file.NewBytesUpload("a.png", "image/png", pngBytes))
		assert.ErrorIs(t, err, post.ErrStorageWrite)
		assert.ErrorIs(t, err, file.ErrStorageWrite)

		posts, err := f.svc.ListByOwner(context.Background(), owner)
		require.NoError(t, err)
		assert.Empty(t, posts)
	})

	t.Run("record failure removes the saved blob", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.repo.failCreate = errors.New("connection reset")

		_, err := f.svc.Create(context.Background(), owner, post.CreateInput{Title: "x"},
			file.NewBytesUpload("a.png", "image/png", pngBytes))
		assert.EqualError(t, err, "connection reset")
		assert.Len(t, f.storage.deleteCalls(), 1)
		assert.Empty(t, f.storedFiles(t))
	})

	t.Run("owner is required", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.svc.Create(context.Background(), "", post.CreateInput{Title: "x"}, nil)
		assert.ErrorIs(t, err, post.ErrMissingOwner)
	})
}

func TestService_ReplaceImage(t *testing.T) {
	t.Parallel()

	t.Run("invalid upload leaves the attachment untouched", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		original := f.createWithImage(t, "first.png", pngBytes)

		_, err := f.svc.ReplaceImage(context.Background(), owner, original.ID,
			file.NewBytesUpload("second.png", "image/png", jpegBytes))
		assert.ErrorIs(t, err, post.ErrValidationRejected)

		current, err := f.svc.Get(context.Background(), original.ID)
		require.NoError(t, err)
		assert.Equal(t, *original.Image.Reference, *current.Image.Reference)
		assert.Equal(t, *original.Image.OriginalFilename, *current.Image.OriginalFilename)
		assert.Equal(t, *original.Image.ContentType, *current.Image.ContentType)
		assert.Equal(t, *original.Image.SizeBytes, *current.Image.SizeBytes)
		assert.FileExists(t, f.path(*original.Image.Reference))
		assert.Empty(t, f.storage.deleteCalls())
	})

	t.Run("storage failure keeps the previous image", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		original := f.createWithImage(t, "first.png", pngBytes)
		f.storage.failSave = true

		updated, err := f.svc.ReplaceImage(context.Background(), owner, original.ID,
			file.NewBytesUpload("second.jpg", "image/jpeg", jpegBytes))
		assert.Nil(t, updated)
		assert.ErrorIs(t, err, post.ErrStorageWrite)
		assert.ErrorIs(t, err, file.ErrStorageWrite)

		current, err := f.svc.Get(context.Background(), original.ID)
		require.NoError(t, err)
		assert.Equal(t, *original.Image.Reference, *current.Image.Reference)
		assert.Equal(t, *original.Image.OriginalFilename, *current.Image.OriginalFilename)
		assert.Equal(t, *original.Image.ContentType, *current.Image.ContentType)
		assert.Equal(t, *original.Image.SizeBytes, *current.Image.SizeBytes)
		assert.FileExists(t, f.path(*original.Image.Reference))
		assert.Empty(t, f.storage.deleteCalls())
		assert.Equal(t, 2, f.storage.saveCalls())
	})

	t.Run("valid upload replaces the blob", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		original := f.createWithImage(t, "first.png", pngBytes)
		oldRef := *original.Image.Reference

		updated, err := f.svc.ReplaceImage(context.Background(), owner, original.ID,
			file.NewBytesUpload("second.jpg", "image/jpeg", jpegBytes))
		require.NoError(t, err)

		newRef := *updated.Image.Reference
		assert.NotEqual(t, oldRef, newRef)
		assert.Equal(t, "second.jpg", *updated.Image.OriginalFilename)
		assert.Equal(t, "image/jpeg", *updated.Image.ContentType)
		assert.Equal(t, int64(len(jpegBytes)), *updated.Image.SizeBytes)
		assert.NoFileExists(t, f.path(oldRef))
		assert.FileExists(t, f.path(newRef))
		assert.Equal(t, []string{oldRef}, f.storage.deleteCalls())
	})

	t.Run("attaches to a post without an image", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		p, err := f.svc.Create(context.Background(), owner, post.CreateInput{Title: "Plain"}, nil)
		require.NoError(t, err)

		updated, err := f.svc.ReplaceImage(context.Background(), owner, p.ID,
			file.NewBytesUpload("a.png", "image/png", pngBytes))
		require.NoError(t, err)
		assert.Regexp(t, postReferencePattern, *updated.Image.Reference)
		assert.Empty(t, f.storage.deleteCalls())
	})

	t.Run("foreign image is not deleted", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		p, err := f.svc.Create(context.Background(), owner,
			post.CreateInput{Title: "Linked", ImageURL: strPtr("https://cdn.example.com/a.png")}, nil)
		require.NoError(t, err)

		_, err = f.svc.ReplaceImage(context.Background(), owner, p.ID,
			file.NewBytesUpload("a.png", "image/png", pngBytes))
		require.NoError(t, err)
		assert.Empty(t, f.storage.deleteCalls())
	})

	t.Run("another owner cannot replace", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		original := f.createWithImage(t, "first.png", pngBytes)

		_, err := f.svc.ReplaceImage(context.Background(), "intruder", original.ID,
			file.NewBytesUpload("a.png", "image/png", pngBytes))
		assert.ErrorIs(t, err, post.ErrNotFoundOrForbidden)
		assert.Equal(t, 1, f.storage.saveCalls())
		assert.Empty(t, f.storage.deleteCalls())
	})

	t.Run("missing post", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.svc.ReplaceImage(context.Background(), owner, 404,
			file.NewBytesUpload("a.png", "image/png", pngBytes))
		assert.ErrorIs(t, err, post.ErrNotFoundOrForbidden)
	})

	t.Run("record failure removes the new blob", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		original := f.createWithImage(t, "first.png", pngBytes)
		f.repo.failUpdate = errors.New("deadlock detected")

		_, err := f.svc.ReplaceImage(context.Background(), owner, original.ID,
			file.NewBytesUpload("second.png", "image/png", pngBytes))
		assert.EqualError(t, err, "deadlock detected")

		// Old blob was removed before the write, new blob after it failed
		assert.Len(t, f.storage.deleteCalls(), 2)
		assert.Empty(t, f.storedFiles(t))
	})
}

func TestService_DetachImage(t *testing.T) {
	t.Parallel()

	t.Run("deletes the local blob and clears all fields", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		original := f.createWithImage(t, "a.png", pngBytes)

		p, err := f.svc.DetachImage(context.Background(), owner, original.ID)
		require.NoError(t, err)

		assert.Nil(t, p.Image.Reference)
		assert.Nil(t, p.Image.OriginalFilename)
		assert.Nil(t, p.Image.ContentType)
		assert.Nil(t, p.Image.SizeBytes)
		assert.NoFileExists(t, f.path(*original.Image.Reference))

		stored, err := f.svc.Get(context.Background(), original.ID)
		require.NoError(t, err)
		assert.True(t, stored.Image.Empty())
	})

	t.Run("foreign reference clears fields without a delete call", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		original, err := f.svc.Create(context.Background(), owner,
			post.CreateInput{Title: "Linked", ImageURL: strPtr("https://cdn.example.com/a.png")}, nil)
		require.NoError(t, err)

		p, err := f.svc.DetachImage(context.Background(), owner, original.ID)
		require.NoError(t, err)
		assert.True(t, p.Image.Empty())
		assert.Empty(t, f.storage.deleteCalls())
	})

	t.Run("delete failure does not fail the detach", func(t *testing.T) {
		t.Parallel()
		orphans := new(MockOrphanRecorder)
		f := newFixture(t, post.WithOrphanRecorder(orphans))
		original := f.createWithImage(t, "a.png", pngBytes)
		f.storage.failDelete = true

		orphans.On("RecordOrphan", mock.Anything, *original.Image.Reference, file.ErrFailedToDeleteFile).
			Return(nil).Once()

		p, err := f.svc.DetachImage(context.Background(), owner, original.ID)
		require.NoError(t, err)
		assert.True(t, p.Image.Empty())
		orphans.AssertExpectations(t)
	})

	t.Run("another owner cannot detach", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		original := f.createWithImage(t, "a.png", pngBytes)

		_, err := f.svc.DetachImage(context.Background(), "intruder", original.ID)
		assert.ErrorIs(t, err, post.ErrNotFoundOrForbidden)
		assert.FileExists(t, f.path(*original.Image.Reference))
	})
}

func TestService_Delete(t *testing.T) {
	t.Parallel()

	t.Run("removes the blob and the record", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		original := f.createWithImage(t, "a.png", pngBytes)

		require.NoError(t, f.svc.Delete(context.Background(), owner, original.ID))

		assert.NoFileExists(t, f.path(*original.Image.Reference))
		_, err := f.svc.Get(context.Background(), original.ID)
		assert.ErrorIs(t, err, post.ErrNotFoundOrForbidden)
	})

	t.Run("record is deleted even when the blob is not", func(t *testing.T) {
		t.Parallel()
		orphans := new(MockOrphanRecorder)
		f := newFixture(t, post.WithOrphanRecorder(orphans))
		original := f.createWithImage(t, "a.png", pngBytes)
		f.storage.failDelete = true

		orphans.On("RecordOrphan", mock.Anything, *original.Image.Reference, mock.Anything).
			Return(errors.New("redis down")).Once()

		require.NoError(t, f.svc.Delete(context.Background(), owner, original.ID))

		_, err := f.svc.Get(context.Background(), original.ID)
		assert.ErrorIs(t, err, post.ErrNotFoundOrForbidden)
		assert.FileExists(t, f.path(*original.Image.Reference))
		orphans.AssertExpectations(t)
	})

	t.Run("blob already gone", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		original := f.createWithImage(t, "a.png", pngBytes)
		require.NoError(t, os.Remove(f.path(*original.Image.Reference)))

		assert.NoError(t, f.svc.Delete(context.Background(), owner, original.ID))
	})

	t.Run("another owner cannot delete", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		original := f.createWithImage(t, "a.png", pngBytes)

		err := f.svc.Delete(context.Background(), "intruder", original.ID)
		assert.ErrorIs(t, err, post.ErrNotFoundOrForbidden)
		assert.Empty(t, f.storage.deleteCalls())

		_, err = f.svc.Get(context.Background(), original.ID)
		assert.NoError(t, err)
	})
}

func TestService_Update(t *testing.T) {
	t.Parallel()

	t.Run("text fields keep the image", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		original := f.createWithImage(t, "a.png", pngBytes)

		p, err := f.svc.Update(context.Background(), owner, original.ID, post.UpdateInput{
			Title:        strPtr("New title"),
			ImageAltText: strPtr("a sunset"),
		})
		require.NoError(t, err)
		assert.Equal(t, "New title", p.Title)
		assert.Equal(t, "a sunset", *p.ImageAltText)
		assert.Equal(t, *original.Image.Reference, *p.Image.Reference)
		assert.Empty(t, f.storage.deleteCalls())
	})

	t.Run("external url replaces a local image", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		original := f.createWithImage(t, "a.png", pngBytes)

		p, err := f.svc.Update(context.Background(), owner, original.ID, post.UpdateInput{
			ImageURL: strPtr("https://cdn.example.com/b.png"),
		})
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/b.png", *p.Image.Reference)
		assert.Nil(t, p.Image.OriginalFilename)
		assert.Nil(t, p.Image.SizeBytes)
		assert.NoFileExists(t, f.path(*original.Image.Reference))
	})

	t.Run("empty url detaches", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		original := f.createWithImage(t, "a.png", pngBytes)

		p, err := f.svc.Update(context.Background(), owner, original.ID, post.UpdateInput{ImageURL: strPtr("")})
		require.NoError(t, err)
		assert.True(t, p.Image.Empty())
		assert.NoFileExists(t, f.path(*original.Image.Reference))
	})

	t.Run("local url is refused", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		original := f.createWithImage(t, "a.png", pngBytes)

		_, err := f.svc.Update(context.Background(), owner, original.ID, post.UpdateInput{
			ImageURL: strPtr("/uploads/posts/other.png"),
		})
		assert.ErrorIs(t, err, post.ErrInvalidImageURL)
		assert.FileExists(t, f.path(*original.Image.Reference))
	})
}

func TestService_Response(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	local := f.createWithImage(t, "a.png", pngBytes)
	r := f.svc.Response(local)
	require.NotNil(t, r.ImageURL)
	assert.Equal(t, "https://blog.example.com"+*local.Image.Reference, *r.ImageURL)
	assert.Equal(t, "a.png", *r.ImageFileName)
	assert.Equal(t, int64(10), *r.ImageFileSize)
	assert.Equal(t, owner, r.AuthorID)

	foreign, err := f.svc.Create(context.Background(), owner,
		post.CreateInput{Title: "Linked", ImageURL: strPtr("https://cdn.example.com/a.png")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.png", *f.svc.Response(foreign).ImageURL)

	plain, err := f.svc.Create(context.Background(), owner, post.CreateInput{Title: "Plain"}, nil)
	require.NoError(t, err)
	assert.Nil(t, f.svc.Response(plain).ImageURL)
}

func TestService_CustomSubfolder(t *testing.T) {
	t.Parallel()
	f := newFixture(t, post.WithSubfolder("/articles/"))

	p, err := f.svc.Create(context.Background(), owner, post.CreateInput{Title: "x"},
		file.NewBytesUpload("a.png", "image/png", pngBytes))
	require.NoError(t, err)
	assert.Regexp(t, `^/uploads/articles/[0-9a-f-]{36}\.png$`, *p.Image.Reference)
}
