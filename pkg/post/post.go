package post

import "time"

// Attachment is the image metadata stored on a post.
// A nil Reference means the post has no image. Uploaded images set all four
// fields together; an externally supplied image URL sets only Reference.
type Attachment struct {
	Reference        *string
	OriginalFilename *string
	ContentType      *string
	SizeBytes        *int64
}

// Empty reports whether no image is attached.
func (a Attachment) Empty() bool {
	return a.Reference == nil || *a.Reference == ""
}

// Post is a blog post owned by a single user.
type Post struct {
	ID           int64
	Title        string
	Content      string
	Image        Attachment
	ImageAltText *string
	OwnerID      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (p *Post) clone() *Post {
	if p == nil {
		return nil
	}
	c := *p
	c.Image = Attachment{
		Reference:        clonePtr(p.Image.Reference),
		OriginalFilename: clonePtr(p.Image.OriginalFilename),
		ContentType:      clonePtr(p.Image.ContentType),
		SizeBytes:        clonePtr(p.Image.SizeBytes),
	}
	c.ImageAltText = clonePtr(p.ImageAltText)
	return &c
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// CreateInput holds the fields of a new post.
// ImageURL attaches an external image and is ignored when an upload is supplied.
type CreateInput struct {
	Title        string
	Content      string
	ImageURL     *string
	ImageAltText *string
}

// UpdateInput is a partial update: nil fields are left unchanged.
// A non-nil ImageURL replaces the current image with an external one;
// an empty string detaches the image.
type UpdateInput struct {
	Title        *string
	Content      *string
	ImageURL     *string
	ImageAltText *string
}

// Response is the public representation of a post with the image reference
// resolved to an absolute URL.
type Response struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	ImageURL      *string   `json:"image_url,omitempty"`
	ImageFileName *string   `json:"image_file_name,omitempty"`
	ImageFileSize *int64    `json:"image_file_size,omitempty"`
	ImageAltText  *string   `json:"image_alt_text,omitempty"`
	AuthorID      string    `json:"author_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
