// Package file validates untrusted image uploads and stores them on the local
// filesystem or in S3.
//
// # Architecture
//
// The package is built from four pieces:
//   - Sniff / SniffReader classify content by its leading bytes (JPEG, PNG, GIF, WEBP)
//   - Upload abstracts an uploaded file: in-memory buffer, multipart form file,
//     temp file handle or a spooled multipart part
//   - Validator accepts or rejects an Upload against a Policy
//   - Storage persists accepted uploads under generated names and removes them again
//
// Two Storage implementations are provided:
//   - LocalStorage: files under <BaseDir>/<Root>, served as static files
//   - S3Storage: objects in an S3 or S3-compatible bucket
//
// Both return references of the form "/uploads/<subfolder>/<uuid><ext>".
// A reference is stored on the owning record and resolved to a public URL
// with Storage.URL. References that do not start with the storage root
// (for example externally supplied image URLs) are foreign: IsLocal reports
// false for them and Delete skips them.
//
// # Usage
//
//	storage, err := file.NewLocalStorage(file.LocalConfig{
//		BaseDir: "wwwroot",
//		Root:    "uploads",
//		BaseURL: "https://example.com",
//	})
//	if err != nil {
//		return err
//	}
//	validator := file.NewValidator(file.DefaultImagePolicy())
//
//	upload := file.NewFileHeaderUpload(fh)
//	if err := validator.Validate(ctx, upload); err != nil {
//		return err // errors.Is(err, file.ErrValidationRejected)
//	}
//
//	obj, err := storage.Save(ctx, upload, "posts")
//	if err != nil {
//		return err // errors.Is(err, file.ErrStorageWrite)
//	}
//	url := storage.URL(obj.Reference)
//
// # Validation
//
// Validate runs its checks in a fixed order and reports the first failure:
//
//  1. missing or empty upload (ErrEmptyFile)
//  2. size above Policy.MaxSize (ErrFileTooLarge)
//  3. extension not allowed (ErrExtensionNotAllowed)
//  4. declared MIME type not allowed (ErrMIMETypeNotAllowed)
//  5. content signature not recognized (ErrUnrecognizedContent) or not the
//     format its extension claims (ErrContentMismatch)
//
// The signature check defeats renamed executables: a ".png" upload whose bytes
// are not a PNG image is rejected even when its declared type is image/png.
// WEBP detection only checks the RIFF container header.
//
// # Deleting
//
// Delete never fails the caller. It returns a DeleteResult whose Status is one
// of DeleteRemoved, DeleteMissing, DeleteSkipped or DeleteFailed; failures are
// logged and carried in DeleteResult.Err so the caller can record the orphan.
package file
