package domain

import "context"

// ListingRepository is the system-of-record store for listings.
type ListingRepository interface {
	FindByID(ctx context.Context, id string) (*Listing, error)
	FindAll(ctx context.Context) ([]*Listing, error)
	FindAllPaged(ctx context.Context, page, size int) ([]*Listing, int64, error)
	FindByOwner(ctx context.Context, ownerID string) ([]*Listing, error)
	FindAllByIDs(ctx context.Context, ids []string) ([]*Listing, error)
	Save(ctx context.Context, listing *Listing) error
	DeleteByID(ctx context.Context, id string) error
}

// SearchIndexRepository is the secondary full-text index. Implementations own
// the matching semantics (case folding, ordering); callers treat results as
// eventually consistent.
type SearchIndexRepository interface {
	Save(ctx context.Context, doc *SearchDocument) error
	SaveAll(ctx context.Context, docs []*SearchDocument) error
	DeleteByID(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
	// Search returns matching listing ids for a substring query over title and
	// description, newest first, plus the total match count for pagination.
	Search(ctx context.Context, query string, page, size int) ([]string, int64, error)
}

// MediaStorage is durable byte storage for listing images.
type MediaStorage interface {
	// Store writes the upload under directory with a collision-resistant
	// unique name and returns the created asset. Failures are returned to the
	// caller, which owns compensating cleanup of siblings written in the same
	// operation.
	Store(ctx context.Context, directory string, upload *Upload) (*MediaAsset, error)
	// Delete is best-effort: a missing file and any IO error are logged and
	// swallowed, never surfaced.
	Delete(ctx context.Context, asset MediaAsset)
}
