package file

import (
	"bytes"
	"fmt"
	"io"
)

// SniffLen is the number of leading bytes Sniff needs to classify every supported format.
const SniffLen = 8

// Format is an image format recognized by its leading bytes.
type Format int

const (
	FormatUnknown Format = iota
	FormatJPEG
	FormatPNG
	FormatGIF
	FormatWEBP
)

var (
	jpegSignature = []byte{0xFF, 0xD8, 0xFF}
	pngSignature  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	gifSignature  = []byte{0x47, 0x49, 0x46, 0x38} // "GIF8", followed by '7' or '9' and 'a'
	riffSignature = []byte{0x52, 0x49, 0x46, 0x46} // "RIFF"
)

// String returns a short lowercase name of the format.
func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	case FormatGIF:
		return "gif"
	case FormatWEBP:
		return "webp"
	default:
		return "unknown"
	}
}

// MIMEType returns the canonical MIME type for the format, or an empty string for FormatUnknown.
func (f Format) MIMEType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatGIF:
		return "image/gif"
	case FormatWEBP:
		return "image/webp"
	default:
		return ""
	}
}

// Sniff classifies content by its leading bytes only, ignoring any claimed
// extension or content type. Buffers shorter than a signature never match it.
//
// WEBP detection only checks the RIFF container header; the "WEBP" FourCC at
// offset 8 is not verified, so any RIFF file (WAV, AVI) is reported as WEBP.
func Sniff(prefix []byte) Format {
	switch {
	case bytes.HasPrefix(prefix, jpegSignature):
		return FormatJPEG
	case bytes.HasPrefix(prefix, pngSignature):
		return FormatPNG
	case isGIF(prefix):
		return FormatGIF
	case bytes.HasPrefix(prefix, riffSignature):
		return FormatWEBP
	default:
		return FormatUnknown
	}
}

func isGIF(b []byte) bool {
	return len(b) >= 6 &&
		bytes.HasPrefix(b, gifSignature) &&
		(b[4] == '7' || b[4] == '9') &&
		b[5] == 'a'
}

// SniffReader reads up to SniffLen bytes from r and classifies them.
// The read position is always reset to the start before returning,
// so the same reader can be consumed in full afterwards.
func SniffReader(r io.ReadSeeker) (f Format, err error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return FormatUnknown, fmt.Errorf("%w: %v", ErrFailedToReadFile, err)
	}
	defer func() {
		if _, seekErr := r.Seek(0, io.SeekStart); seekErr != nil && err == nil {
			f, err = FormatUnknown, fmt.Errorf("%w: %v", ErrFailedToReadFile, seekErr)
		}
	}()

	buf := make([]byte, SniffLen)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return FormatUnknown, fmt.Errorf("%w: %v", ErrFailedToReadFile, err)
	}

	return Sniff(buf[:n]), nil
}
