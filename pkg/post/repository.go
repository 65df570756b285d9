package post

import "context"

// Repository persists post records. Implementations return ErrNotFound for
// missing rows and must be safe for concurrent use. Concurrent writes to the
// same record are last-write-wins.
type Repository interface {
	// Create inserts the post and sets its ID and timestamps.
	Create(ctx context.Context, p *Post) error
	GetByID(ctx context.Context, id int64) (*Post, error)
	// GetByIDAndOwner returns ErrNotFound when the post exists but belongs to another owner.
	GetByIDAndOwner(ctx context.Context, id int64, ownerID string) (*Post, error)
	// ListByOwner returns the owner's posts, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]*Post, error)
	// Update writes the whole row, filtered by ID and OwnerID, and refreshes UpdatedAt.
	Update(ctx context.Context, p *Post) error
	Delete(ctx context.Context, id int64, ownerID string) error
}
