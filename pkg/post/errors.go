package post

import "errors"

var (
	// ErrValidationRejected is returned when an uploaded image fails validation.
	// Nothing is written in that case.
	ErrValidationRejected = errors.New("image rejected")
	// ErrNotFoundOrForbidden covers both a missing post and a post owned by
	// someone else, so callers cannot probe for existence.
	ErrNotFoundOrForbidden = errors.New("post not found")
	// ErrStorageWrite means the image could not be stored. Retryable.
	ErrStorageWrite = errors.New("failed to store image")

	ErrInvalidImageURL = errors.New("image url must not point into upload storage")
	ErrMissingOwner    = errors.New("owner id is required")

	// Repository errors
	ErrNotFound           = errors.New("post record not found")
	ErrFailedToCreatePost = errors.New("failed to create post")
	ErrFailedToUpdatePost = errors.New("failed to update post")
	ErrFailedToDeletePost = errors.New("failed to delete post")
	ErrFailedToLoadPost   = errors.New("failed to load post")
)
