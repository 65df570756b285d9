// Package post manages blog posts and keeps each post consistent with the
// image it references in file storage.
//
// Service is the entry point. Its mutating operations take the caller's user
// id and first load the post by (id, owner); a missing post and a post owned
// by someone else both yield ErrNotFoundOrForbidden before any storage I/O.
//
//	svc := post.NewService(post.NewPGRepository(pool), storage,
//		post.WithLogger(log),
//		post.WithOrphanRecorder(orphans),
//	)
//	p, err := svc.Create(ctx, userID, post.CreateInput{Title: "Hello"}, file.NewFileHeaderUpload(fh))
//
// Image lifecycle:
//   - Create validates and saves the upload, then writes the record with the
//     reference, original file name, content type and size.
//   - ReplaceImage validates and saves the new upload, deletes the previous
//     local blob, then writes the record. A rejected upload changes nothing.
//   - DetachImage deletes the local blob and clears the attachment.
//   - Delete deletes the local blob, then the record.
//
// Blob deletion is best effort. Failures are logged and passed to the
// OrphanRecorder but never fail the operation; the record is authoritative.
// Externally supplied image URLs are never deleted.
//
// Errors callers should expect: ErrValidationRejected (wraps the
// file.ValidationError), ErrNotFoundOrForbidden, ErrStorageWrite and
// ErrInvalidImageURL.
//
// An Observer set with WithObserver sees every validation, save, delete and
// orphan record; NewPrometheusObserver exports them as Prometheus metrics.
//
// Repository has a PostgreSQL implementation (NewPGRepository, schema in
// Migrations) and an in-memory one (NewMemoryRepository).
package post
