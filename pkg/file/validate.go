package file

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dmitrymomot/blogapi/pkg/logger"
)

// DefaultMaxSize is the upload size limit used when a Policy does not set one (5 MiB).
const DefaultMaxSize int64 = 5 << 20

var (
	defaultImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
	defaultImageMIMETypes  = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

	// Extensions outside this map accept any recognized format.
	extensionFormats = map[string]Format{
		".jpg":  FormatJPEG,
		".jpeg": FormatJPEG,
		".png":  FormatPNG,
		".gif":  FormatGIF,
		".webp": FormatWEBP,
	}
)

// Policy describes what an acceptable upload looks like.
// Extensions and MIME types are compared in lowercase.
type Policy struct {
	MaxSize           int64    `env:"MAX_UPLOAD_SIZE" envDefault:"5242880"`
	AllowedExtensions []string `env:"UPLOAD_ALLOWED_EXTENSIONS" envDefault:".jpg,.jpeg,.png,.gif,.webp"`
	AllowedMIMETypes  []string `env:"UPLOAD_ALLOWED_MIME_TYPES" envDefault:"image/jpeg,image/png,image/gif,image/webp"`
}

// DefaultImagePolicy accepts JPEG, PNG, GIF and WEBP images up to 5 MiB.
func DefaultImagePolicy() Policy {
	return Policy{
		MaxSize:           DefaultMaxSize,
		AllowedExtensions: slices.Clone(defaultImageExtensions),
		AllowedMIMETypes:  slices.Clone(defaultImageMIMETypes),
	}
}

// ValidationError describes why an upload was rejected.
// It matches both its Reason and ErrValidationRejected with errors.Is.
type ValidationError struct {
	Reason      error
	Filename    string
	Size        int64
	ContentType string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %v (filename=%q size=%d content_type=%q)",
		ErrValidationRejected, e.Reason, e.Filename, e.Size, e.ContentType)
}

func (e *ValidationError) Unwrap() error { return e.Reason }

func (e *ValidationError) Is(target error) bool { return target == ErrValidationRejected }

// Validator decides whether an upload may be stored.
// It is stateless and safe for concurrent use.
type Validator struct {
	policy Policy
	log    *slog.Logger
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithValidatorLogger sets the logger used to report rejections.
func WithValidatorLogger(l *slog.Logger) ValidatorOption {
	return func(v *Validator) {
		if l != nil {
			v.log = l
		}
	}
}

// NewValidator creates a validator for the given policy.
// Zero-valued policy fields fall back to DefaultImagePolicy.
func NewValidator(policy Policy, opts ...ValidatorOption) *Validator {
	def := DefaultImagePolicy()
	if policy.MaxSize <= 0 {
		policy.MaxSize = def.MaxSize
	}
	if len(policy.AllowedExtensions) == 0 {
		policy.AllowedExtensions = def.AllowedExtensions
	}
	if len(policy.AllowedMIMETypes) == 0 {
		policy.AllowedMIMETypes = def.AllowedMIMETypes
	}

	v := &Validator{
		policy: Policy{
			MaxSize:           policy.MaxSize,
			AllowedExtensions: lowerAll(policy.AllowedExtensions),
			AllowedMIMETypes:  lowerAll(policy.AllowedMIMETypes),
		},
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Policy returns a copy of the effective policy.
func (v *Validator) Policy() Policy {
	return Policy{
		MaxSize:           v.policy.MaxSize,
		AllowedExtensions: slices.Clone(v.policy.AllowedExtensions),
		AllowedMIMETypes:  slices.Clone(v.policy.AllowedMIMETypes),
	}
}

// Validate runs the checks in a fixed order and reports the first failure:
// presence, size, extension, declared MIME type, then content signature.
// A recognized signature must also agree with the extension: JPEG bytes
// named ".png" are rejected.
// The content check reads a short prefix and seeks back, so the upload stays
// fully readable for storage afterwards.
func (v *Validator) Validate(ctx context.Context, u Upload) error {
	if u == nil || u.Size() <= 0 {
		return v.reject(ctx, u, ErrEmptyFile)
	}

	if u.Size() > v.policy.MaxSize {
		return v.reject(ctx, u, fmt.Errorf("%w: %d bytes exceeds %d bytes limit", ErrFileTooLarge, u.Size(), v.policy.MaxSize))
	}

	ext := GetExtension(u)
	if !slices.Contains(v.policy.AllowedExtensions, ext) {
		return v.reject(ctx, u, fmt.Errorf("%w: %q", ErrExtensionNotAllowed, ext))
	}

	mimeType := strings.ToLower(u.ContentType())
	if !slices.Contains(v.policy.AllowedMIMETypes, mimeType) {
		return v.reject(ctx, u, fmt.Errorf("%w: %q", ErrMIMETypeNotAllowed, mimeType))
	}

	format, err := sniffUpload(u)
	if err != nil {
		v.log.ErrorContext(ctx, "failed to inspect upload content",
			logger.Filename(u.Filename()),
			logger.Error(err),
		)
		return v.reject(ctx, u, fmt.Errorf("%w: %v", ErrUnrecognizedContent, err))
	}
	if format == FormatUnknown {
		return v.reject(ctx, u, ErrUnrecognizedContent)
	}
	if want, ok := extensionFormats[ext]; ok && want != format {
		return v.reject(ctx, u, fmt.Errorf("%w: %s content with %q extension", ErrContentMismatch, format, ext))
	}

	return nil
}

func sniffUpload(u Upload) (Format, error) {
	r, err := u.Open()
	if err != nil {
		return FormatUnknown, err
	}
	defer func() { _ = r.Close() }()

	return SniffReader(r)
}

func (v *Validator) reject(ctx context.Context, u Upload, reason error) error {
	verr := &ValidationError{Reason: reason}
	if u != nil {
		verr.Filename = u.Filename()
		verr.Size = u.Size()
		verr.ContentType = u.ContentType()
	}

	v.log.WarnContext(ctx, "upload rejected",
		logger.Filename(verr.Filename),
		logger.Size(verr.Size),
		logger.ContentType(verr.ContentType),
		slog.String("reason", reason.Error()),
	)

	return verr
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, s := range values {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}
