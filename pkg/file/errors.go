package file

import "errors"

var (
	// Validation errors. Every rejection also matches ErrValidationRejected.
	ErrValidationRejected  = errors.New("upload rejected")
	ErrEmptyFile           = errors.New("file is empty")
	ErrFileTooLarge        = errors.New("file size exceeds maximum allowed size")
	ErrExtensionNotAllowed = errors.New("file extension is not allowed")
	ErrMIMETypeNotAllowed  = errors.New("MIME type is not allowed")
	ErrUnrecognizedContent = errors.New("file content does not match a supported image format")
	ErrContentMismatch     = errors.New("file content does not match its extension")

	// Security errors
	ErrInvalidPath      = errors.New("invalid path") // Prevents path traversal attacks
	ErrInvalidReference = errors.New("invalid reference")

	// Storage errors. ErrStorageWrite is the umbrella for everything that can fail in Save.
	ErrStorageWrite            = errors.New("failed to store file")
	ErrFailedToOpenFile        = errors.New("failed to open file")
	ErrFailedToReadFile        = errors.New("failed to read file")
	ErrFailedToWriteFile       = errors.New("failed to write file")
	ErrFailedToCreateFile      = errors.New("failed to create file")
	ErrFailedToDeleteFile      = errors.New("failed to delete file")
	ErrFailedToCreateDirectory = errors.New("failed to create directory")
	ErrFailedToStatPath        = errors.New("failed to stat path")
	ErrFailedToGetAbsolutePath = errors.New("failed to get absolute path")
	ErrFileNotFound            = errors.New("file not found")
	ErrIsDirectory             = errors.New("path is a directory")

	// S3-specific errors for proper error classification
	ErrBucketNotFound     = errors.New("bucket not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrRequestTimeout     = errors.New("request timed out")
	ErrServiceUnavailable = errors.New("service temporarily unavailable")

	// Context and cancellation errors
	ErrOperationTimeout  = errors.New("operation timed out")
	ErrOperationCanceled = errors.New("operation canceled")

	// Configuration errors
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrFailedToLoadConfig = errors.New("failed to load AWS config")
)
