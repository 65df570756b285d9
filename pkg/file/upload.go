package file

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

// Upload is an untrusted file supplied by a caller.
// Filename and ContentType are declared by the client and must not be trusted.
// Open returns a fresh reader positioned at the start of the content; the
// reader supports seeking back to the start so the content can be inspected
// before it is consumed.
type Upload interface {
	Filename() string
	ContentType() string
	Size() int64
	Open() (io.ReadSeekCloser, error)
}

// GetExtension returns the lowercase file extension including the dot.
//
// Example:
//
//	ext := file.GetExtension(u) // ".jpg"
func GetExtension(u Upload) string {
	if u == nil {
		return ""
	}
	return strings.ToLower(filepath.Ext(u.Filename()))
}

type nopSeekCloser struct {
	io.ReadSeeker
}

func (nopSeekCloser) Close() error { return nil }

// bytesUpload serves content from an in-memory buffer.
type bytesUpload struct {
	filename    string
	contentType string
	data        []byte
}

// NewBytesUpload wraps an in-memory buffer. The buffer must not be modified afterwards.
func NewBytesUpload(filename, contentType string, data []byte) Upload {
	return &bytesUpload{filename: filename, contentType: contentType, data: data}
}

func (u *bytesUpload) Filename() string    { return u.filename }
func (u *bytesUpload) ContentType() string { return u.contentType }
func (u *bytesUpload) Size() int64         { return int64(len(u.data)) }

func (u *bytesUpload) Open() (io.ReadSeekCloser, error) {
	return nopSeekCloser{bytes.NewReader(u.data)}, nil
}

// fileHeaderUpload adapts a parsed multipart form file.
type fileHeaderUpload struct {
	fh *multipart.FileHeader
}

// NewFileHeaderUpload adapts a *multipart.FileHeader from a parsed multipart form.
// Returns nil for a nil header so callers can pass optional form files straight through.
func NewFileHeaderUpload(fh *multipart.FileHeader) Upload {
	if fh == nil {
		return nil
	}
	return &fileHeaderUpload{fh: fh}
}

func (u *fileHeaderUpload) Filename() string    { return u.fh.Filename }
func (u *fileHeaderUpload) ContentType() string { return u.fh.Header.Get("Content-Type") }
func (u *fileHeaderUpload) Size() int64         { return u.fh.Size }

func (u *fileHeaderUpload) Open() (io.ReadSeekCloser, error) {
	f, err := u.fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToOpenFile, err)
	}
	return f, nil
}

// TempFileUpload serves content from an open file handle.
// Every Open returns an independent reader, so the handle's own offset is never moved.
type TempFileUpload struct {
	filename    string
	contentType string
	size        int64
	f           *os.File
	removeOnEnd bool
}

// NewTempFileUpload wraps an open file. The caller keeps ownership of f.
func NewTempFileUpload(filename, contentType string, f *os.File) (*TempFileUpload, error) {
	if f == nil {
		return nil, ErrFailedToOpenFile
	}
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToStatPath, err)
	}
	if info.IsDir() {
		return nil, ErrIsDirectory
	}
	return &TempFileUpload{
		filename:    filename,
		contentType: contentType,
		size:        info.Size(),
		f:           f,
	}, nil
}

func (u *TempFileUpload) Filename() string    { return u.filename }
func (u *TempFileUpload) ContentType() string { return u.contentType }
func (u *TempFileUpload) Size() int64         { return u.size }

func (u *TempFileUpload) Open() (io.ReadSeekCloser, error) {
	return nopSeekCloser{io.NewSectionReader(u.f, 0, u.size)}, nil
}

// Cleanup closes the file handle and, for spooled parts, removes the temp file.
func (u *TempFileUpload) Cleanup() error {
	err := u.f.Close()
	if u.removeOnEnd {
		if rmErr := os.Remove(u.f.Name()); rmErr != nil && !os.IsNotExist(rmErr) {
			err = errors.Join(err, rmErr)
		}
	}
	return err
}

// SpoolPart copies a streamed multipart part into a temp file so it can be
// validated and stored like any other upload. At most limit+1 bytes are
// read: an oversized part is kept truncated but its Size still exceeds limit,
// which lets the validator reject it without buffering the whole stream.
// The caller must call Cleanup on the returned upload.
func SpoolPart(part *multipart.Part, limit int64) (*TempFileUpload, error) {
	if part == nil {
		return nil, ErrFailedToOpenFile
	}

	f, err := os.CreateTemp("", "upload-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToCreateFile, err)
	}

	src := io.Reader(part)
	if limit > 0 {
		src = io.LimitReader(part, limit+1)
	}

	written, err := io.Copy(f, src)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("%w: %v", ErrFailedToReadFile, err)
	}

	return &TempFileUpload{
		filename:    part.FileName(),
		contentType: part.Header.Get("Content-Type"),
		size:        written,
		f:           f,
		removeOnEnd: true,
	}, nil
}
