package post

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"
)

type memoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	posts  map[int64]*Post
	now    func() time.Time
}

// NewMemoryRepository returns an in-memory Repository.
// Posts are deep-copied on the way in and out, so callers never share state with the store.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		posts: make(map[int64]*Post),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *memoryRepository) Create(ctx context.Context, p *Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := r.now()
	p.ID = r.nextID
	p.CreatedAt = now
	p.UpdatedAt = now
	r.posts[p.ID] = p.clone()
	return nil
}

func (r *memoryRepository) GetByID(ctx context.Context, id int64) (*Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.clone(), nil
}

func (r *memoryRepository) GetByIDAndOwner(ctx context.Context, id int64, ownerID string) (*Post, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return p, nil
}

func (r *memoryRepository) ListByOwner(ctx context.Context, ownerID string) ([]*Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Post, 0)
	for _, p := range r.posts {
		if p.OwnerID == ownerID {
			out = append(out, p.clone())
		}
	}
	slices.SortFunc(out, func(a, b *Post) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (r *memoryRepository) Update(ctx context.Context, p *Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.posts[p.ID]
	if !ok || existing.OwnerID != p.OwnerID {
		return ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = r.now()
	r.posts[p.ID] = p.clone()
	return nil
}

func (r *memoryRepository) Delete(ctx context.Context, id int64, ownerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.posts[id]
	if !ok || existing.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(r.posts, id)
	return nil
}
