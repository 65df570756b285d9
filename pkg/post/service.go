package post

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/blogapi/pkg/file"
	"github.com/dmitrymomot/blogapi/pkg/logger"
)

// DefaultSubfolder is where post images are stored inside the storage root.
const DefaultSubfolder = "posts"

// UploadValidator approves or rejects an upload. *file.Validator implements it.
type UploadValidator interface {
	Validate(ctx context.Context, u file.Upload) error
}

// Service coordinates a post record with its stored image.
// It holds no mutable state: the record lives in the Repository, the blob in
// the Storage. Two concurrent mutations of the same post are not serialized;
// the last record write wins.
type Service struct {
	repo      Repository
	storage   file.Storage
	validator UploadValidator
	orphans   OrphanRecorder
	observer  Observer
	subfolder string
	log       *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithValidator replaces the default image validator.
func WithValidator(v UploadValidator) ServiceOption {
	return func(s *Service) {
		if v != nil {
			s.validator = v
		}
	}
}

// WithOrphanRecorder sets where blobs that could not be deleted are reported.
func WithOrphanRecorder(r OrphanRecorder) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.orphans = r
		}
	}
}

// WithObserver reports attachment telemetry, e.g. to a PrometheusObserver.
func WithObserver(o Observer) ServiceOption {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithSubfolder overrides DefaultSubfolder.
func WithSubfolder(subfolder string) ServiceOption {
	return func(s *Service) {
		if sub := strings.Trim(subfolder, "/"); sub != "" {
			s.subfolder = sub
		}
	}
}

// NewService creates a post service. Without options it validates uploads
// with file.DefaultImagePolicy and only logs orphaned blobs.
func NewService(repo Repository, storage file.Storage, opts ...ServiceOption) *Service {
	s := &Service{
		repo:      repo,
		storage:   storage,
		observer:  nopObserver{},
		subfolder: DefaultSubfolder,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.validator == nil {
		s.validator = file.NewValidator(file.DefaultImagePolicy(), file.WithValidatorLogger(s.log))
	}
	if s.orphans == nil {
		s.orphans = NewLogOrphanRecorder(s.log)
	}
	s.log = s.log.With(logger.Component("post"))
	return s
}

// Create stores a new post. With an upload, the image is validated and saved
// before the record is written, and the record carries all attachment fields.
// A rejected or unsaved image aborts creation. If the record write fails the
// freshly saved blob is deleted again.
func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput, upload file.Upload) (*Post, error) {
	if ownerID == "" {
		return nil, ErrMissingOwner
	}

	p := &Post{
		Title:        in.Title,
		Content:      in.Content,
		ImageAltText: in.ImageAltText,
		OwnerID:      ownerID,
	}

	var saved *file.Object
	if upload != nil {
		obj, err := s.store(ctx, upload)
		if err != nil {
			return nil, err
		}
		saved = obj
		p.Image = attachmentOf(obj)
	} else if in.ImageURL != nil && *in.ImageURL != "" {
		if s.storage.IsLocal(*in.ImageURL) {
			return nil, ErrInvalidImageURL
		}
		p.Image = Attachment{Reference: in.ImageURL}
	}

	if err := s.repo.Create(ctx, p); err != nil {
		if saved != nil {
			s.deleteBlob(ctx, saved.Reference)
		}
		return nil, err
	}

	s.log.InfoContext(ctx, "post created",
		logger.PostID(p.ID),
		logger.UserID(ownerID),
		logger.Reference(deref(p.Image.Reference)),
	)
	return p, nil
}

// ReplaceImage attaches a new uploaded image, replacing the current one.
// A rejected upload leaves the post untouched. The previous local blob is
// deleted after the new one is saved and before the record is written; if
// that write fails the new blob is removed and the error returned.
func (s *Service) ReplaceImage(ctx context.Context, ownerID string, postID int64, upload file.Upload) (*Post, error) {
	p, err := s.owned(ctx, ownerID, postID)
	if err != nil {
		return nil, err
	}

	obj, err := s.store(ctx, upload)
	if err != nil {
		return nil, err
	}

	previous := p.Image
	if !previous.Empty() {
		s.deleteBlob(ctx, *previous.Reference)
	}

	p.Image = attachmentOf(obj)
	if err := s.repo.Update(ctx, p); err != nil {
		s.deleteBlob(ctx, obj.Reference)
		return nil, s.mapMissing(err)
	}

	s.log.InfoContext(ctx, "post image replaced",
		logger.PostID(p.ID),
		logger.UserID(ownerID),
		logger.Reference(obj.Reference),
		slog.String("previous_reference", deref(previous.Reference)),
	)
	return p, nil
}

// DetachImage removes the image from a post. A locally stored blob is
// deleted best-effort; a foreign image URL is just forgotten.
func (s *Service) DetachImage(ctx context.Context, ownerID string, postID int64) (*Post, error) {
	p, err := s.owned(ctx, ownerID, postID)
	if err != nil {
		return nil, err
	}
	if p.Image.Empty() {
		return p, nil
	}

	ref := *p.Image.Reference
	s.deleteBlob(ctx, ref)

	p.Image = Attachment{}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, s.mapMissing(err)
	}

	s.log.InfoContext(ctx, "post image detached",
		logger.PostID(p.ID),
		logger.UserID(ownerID),
		logger.Reference(ref),
	)
	return p, nil
}

// Delete removes a post and, first, its locally stored image.
// The record is deleted even when the blob could not be.
func (s *Service) Delete(ctx context.Context, ownerID string, postID int64) error {
	p, err := s.owned(ctx, ownerID, postID)
	if err != nil {
		return err
	}

	if !p.Image.Empty() {
		s.deleteBlob(ctx, *p.Image.Reference)
	}

	if err := s.repo.Delete(ctx, p.ID, ownerID); err != nil {
		return s.mapMissing(err)
	}

	s.log.InfoContext(ctx, "post deleted", logger.PostID(p.ID), logger.UserID(ownerID))
	return nil
}

// Update applies a partial update. A non-nil ImageURL swaps the image for an
// external URL (or detaches it when empty), deleting the previous local blob
// before the record is written.
func (s *Service) Update(ctx context.Context, ownerID string, postID int64, in UpdateInput) (*Post, error) {
	p, err := s.owned(ctx, ownerID, postID)
	if err != nil {
		return nil, err
	}

	if in.ImageURL != nil && *in.ImageURL != "" && s.storage.IsLocal(*in.ImageURL) {
		return nil, ErrInvalidImageURL
	}

	if in.Title != nil {
		p.Title = *in.Title
	}
	if in.Content != nil {
		p.Content = *in.Content
	}
	if in.ImageAltText != nil {
		p.ImageAltText = in.ImageAltText
	}

	if in.ImageURL != nil && *in.ImageURL != deref(p.Image.Reference) {
		if !p.Image.Empty() {
			s.deleteBlob(ctx, *p.Image.Reference)
		}
		p.Image = Attachment{}
		if *in.ImageURL != "" {
			p.Image.Reference = clonePtr(in.ImageURL)
		}
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, s.mapMissing(err)
	}

	s.log.InfoContext(ctx, "post updated", logger.PostID(p.ID), logger.UserID(ownerID))
	return p, nil
}

// Get returns a post by ID regardless of owner.
func (s *Service) Get(ctx context.Context, postID int64) (*Post, error) {
	p, err := s.repo.GetByID(ctx, postID)
	if err != nil {
		return nil, s.mapMissing(err)
	}
	return p, nil
}

// ListByOwner returns the owner's posts, newest first.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]*Post, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// Response converts a post to its public form with the image URL resolved.
func (s *Service) Response(p *Post) Response {
	r := Response{
		ID:           p.ID,
		Title:        p.Title,
		Content:      p.Content,
		ImageAltText: p.ImageAltText,
		AuthorID:     p.OwnerID,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if !p.Image.Empty() {
		url := s.storage.URL(*p.Image.Reference)
		r.ImageURL = &url
		r.ImageFileName = p.Image.OriginalFilename
		r.ImageFileSize = p.Image.SizeBytes
	}
	return r
}

// owned loads a post for a mutation by ownerID. Missing and foreign posts
// are indistinguishable to the caller.
func (s *Service) owned(ctx context.Context, ownerID string, postID int64) (*Post, error) {
	if ownerID == "" {
		return nil, ErrNotFoundOrForbidden
	}
	p, err := s.repo.GetByIDAndOwner(ctx, postID, ownerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.log.WarnContext(ctx, "post not found or not owned", logger.PostID(postID), logger.UserID(ownerID))
		}
		return nil, s.mapMissing(err)
	}
	return p, nil
}

// store validates and saves an upload. Nothing is written for a rejected upload.
func (s *Service) store(ctx context.Context, upload file.Upload) (*file.Object, error) {
	err := s.validator.Validate(ctx, upload)
	s.observer.ObserveValidation(err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationRejected, err)
	}

	start := time.Now()
	obj, err := s.storage.Save(ctx, upload, s.subfolder)
	if err != nil {
		s.observer.ObserveSave(time.Since(start), 0, err)
		s.log.ErrorContext(ctx, "failed to store post image",
			logger.Filename(upload.Filename()),
			logger.Size(upload.Size()),
			logger.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	s.observer.ObserveSave(time.Since(start), obj.Size, nil)
	return obj, nil
}

// deleteBlob removes a locally owned blob. Failures are logged and handed to
// the orphan recorder; they never reach the caller.
func (s *Service) deleteBlob(ctx context.Context, reference string) {
	if !s.storage.IsLocal(reference) {
		return
	}

	start := time.Now()
	res := s.storage.Delete(ctx, reference)
	s.observer.ObserveDelete(time.Since(start), res.Status)
	if !res.Failed() {
		return
	}

	s.log.WarnContext(ctx, "stale post image left in storage",
		logger.Reference(reference),
		logger.Error(res.Err),
	)
	err := s.orphans.RecordOrphan(ctx, reference, res.Err)
	s.observer.ObserveOrphan(err)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to record orphaned image",
			logger.Reference(reference),
			logger.Error(err),
		)
	}
}

func (s *Service) mapMissing(err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrNotFoundOrForbidden
	}
	return err
}

func attachmentOf(obj *file.Object) Attachment {
	return Attachment{
		Reference:        &obj.Reference,
		OriginalFilename: &obj.OriginalFilename,
		ContentType:      &obj.ContentType,
		SizeBytes:        &obj.Size,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
