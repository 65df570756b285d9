package file_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/blogapi/pkg/file"
)

// pngOfSize returns a buffer with a valid PNG signature padded to n bytes.
func pngOfSize(n int) []byte {
	data := make([]byte, n)
	copy(data, pngBytes)
	return data
}

func TestValidator_Validate(t *testing.T) {
	t.Parallel()

	v := file.NewValidator(file.DefaultImagePolicy())

	tests := []struct {
		name    string
		upload  file.Upload
		wantErr error
	}{
		{
			name:   "png accepted",
			upload: file.NewBytesUpload("photo.png", "image/png", pngBytes),
		},
		{
			name:   "uppercase extension and mime type",
			upload: file.NewBytesUpload("PHOTO.JPG", "IMAGE/JPEG", jpegBytes),
		},
		{
			name:   "jpeg extension",
			upload: file.NewBytesUpload("photo.jpeg", "image/jpeg", jpegBytes),
		},
		{
			name:   "gif",
			upload: file.NewBytesUpload("anim.gif", "image/gif", gif87a),
		},
		{
			name:   "webp",
			upload: file.NewBytesUpload("photo.webp", "image/webp", webpBytes),
		},
		{
			name:    "nil upload",
			upload:  nil,
			wantErr: file.ErrEmptyFile,
		},
		{
			name:    "empty upload",
			upload:  file.NewBytesUpload("photo.png", "image/png", nil),
			wantErr: file.ErrEmptyFile,
		},
		{
			name:    "too large with valid signature",
			upload:  file.NewBytesUpload("big.png", "image/png", pngOfSize(int(file.DefaultMaxSize)+1)),
			wantErr: file.ErrFileTooLarge,
		},
		{
			name:    "executable extension",
			upload:  file.NewBytesUpload("photo.exe", "image/png", pngBytes),
			wantErr: file.ErrExtensionNotAllowed,
		},
		{
			name:    "no extension",
			upload:  file.NewBytesUpload("photo", "image/png", pngBytes),
			wantErr: file.ErrExtensionNotAllowed,
		},
		{
			name:    "declared type not allowed",
			upload:  file.NewBytesUpload("photo.png", "application/octet-stream", pngBytes),
			wantErr: file.ErrMIMETypeNotAllowed,
		},
		{
			name:    "renamed executable",
			upload:  file.NewBytesUpload("photo.jpg", "image/jpeg", []byte("MZ\x90\x00\x03\x00\x00\x00")),
			wantErr: file.ErrUnrecognizedContent,
		},
		{
			name:    "jpeg bytes with png extension",
			upload:  file.NewBytesUpload("photo.png", "image/png", jpegBytes),
			wantErr: file.ErrContentMismatch,
		},
		{
			name:    "size checked before extension",
			upload:  file.NewBytesUpload("big.exe", "text/plain", pngOfSize(int(file.DefaultMaxSize)+1)),
			wantErr: file.ErrFileTooLarge,
		},
		{
			name:    "extension checked before mime type",
			upload:  file.NewBytesUpload("photo.txt", "text/plain", []byte("hello")),
			wantErr: file.ErrExtensionNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := v.Validate(context.Background(), tt.upload)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, file.ErrValidationRejected)

			var verr *file.ValidationError
			require.True(t, errors.As(err, &verr))
			if tt.upload != nil {
				assert.Equal(t, tt.upload.Filename(), verr.Filename)
				assert.Equal(t, tt.upload.Size(), verr.Size)
			}
		})
	}
}

func TestValidator_CustomPolicy(t *testing.T) {
	t.Parallel()

	v := file.NewValidator(file.Policy{
		MaxSize:           16,
		AllowedExtensions: []string{".PNG"},
	})

	policy := v.Policy()
	assert.Equal(t, int64(16), policy.MaxSize)
	assert.Equal(t, []string{".png"}, policy.AllowedExtensions)
	assert.Len(t, policy.AllowedMIMETypes, 4)

	ctx := context.Background()
	assert.NoError(t, v.Validate(ctx, file.NewBytesUpload("a.png", "image/png", pngBytes)))
	assert.ErrorIs(t, v.Validate(ctx, file.NewBytesUpload("a.png", "image/png", pngOfSize(17))), file.ErrFileTooLarge)
	assert.ErrorIs(t, v.Validate(ctx, file.NewBytesUpload("a.jpg", "image/jpeg", jpegBytes)), file.ErrExtensionNotAllowed)
}

func TestValidator_PreservesReadPosition(t *testing.T) {
	t.Parallel()

	u := &sharedReaderUpload{name: "photo.png", contentType: "image/png", r: bytes.NewReader(pngBytes)}
	v := file.NewValidator(file.DefaultImagePolicy())

	require.NoError(t, v.Validate(context.Background(), u))

	rest, err := io.ReadAll(u.r)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, rest)
}

func TestValidator_UnreadableContent(t *testing.T) {
	t.Parallel()

	u := &brokenUpload{name: "photo.png", contentType: "image/png", size: 10}
	err := file.NewValidator(file.DefaultImagePolicy()).Validate(context.Background(), u)

	assert.ErrorIs(t, err, file.ErrUnrecognizedContent)
	assert.ErrorIs(t, err, file.ErrValidationRejected)
}

func TestValidator_LogsRejection(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	v := file.NewValidator(file.DefaultImagePolicy(), file.WithValidatorLogger(logger))

	err := v.Validate(context.Background(), file.NewBytesUpload("virus.exe", "application/x-msdownload", pngBytes))
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, `"msg":"upload rejected"`)
	assert.Contains(t, out, `"filename":"virus.exe"`)
	assert.Contains(t, out, `"size":10`)
	assert.Contains(t, out, `"content_type":"application/x-msdownload"`)
}

// sharedReaderUpload hands out the same reader on every Open, so any
// position change made by the validator would be visible afterwards.
type sharedReaderUpload struct {
	name        string
	contentType string
	r           *bytes.Reader
}

func (u *sharedReaderUpload) Filename() string    { return u.name }
func (u *sharedReaderUpload) ContentType() string { return u.contentType }
func (u *sharedReaderUpload) Size() int64         { return u.r.Size() }

func (u *sharedReaderUpload) Open() (io.ReadSeekCloser, error) {
	return readSeekNopCloser{u.r}, nil
}

type readSeekNopCloser struct {
	io.ReadSeeker
}

func (readSeekNopCloser) Close() error { return nil }

type brokenUpload struct {
	name        string
	contentType string
	size        int64
}

func (u *brokenUpload) Filename() string    { return u.name }
func (u *brokenUpload) ContentType() string { return u.contentType }
func (u *brokenUpload) Size() int64         { return u.size }

func (u *brokenUpload) Open() (io.ReadSeekCloser, error) {
	return nil, errors.New("storage backend unavailable")
}
