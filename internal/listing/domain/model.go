package domain

import (
	"strings"
	"time"
)

// Listing is the system-of-record entity. It exclusively owns its MediaAssets;
// the search projection derived from it is never authoritative.
type Listing struct {
	ID          string       `bson:"_id,omitempty" json:"id"`
	Title       string       `bson:"title" json:"title"`
	Description string       `bson:"description" json:"description"`
	Price       float64      `bson:"price" json:"price"`
	OwnerID     string       `bson:"owner_id" json:"owner_id"`
	OwnerName   string       `bson:"owner_name" json:"owner_name"`
	Images      []MediaAsset `bson:"images" json:"images"`
	CreatedAt   time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `bson:"updated_at" json:"updated_at"`
}

// MediaAsset is one stored image belonging to exactly one Listing. ListingID
// is a plain id back-reference for lookup only; the Listing owns the asset.
type MediaAsset struct {
	ID        string `bson:"id" json:"id"`
	Path      string `bson:"path" json:"path"`
	IsPreview bool   `bson:"is_preview" json:"is_preview"`
	ListingID string `bson:"listing_id" json:"listing_id"`
}

// URL returns the path as served to clients: absolute URLs pass through
// unchanged, stored paths are exposed under "/".
func (a MediaAsset) URL() string {
	if strings.HasPrefix(a.Path, "http://") || strings.HasPrefix(a.Path, "https://") {
		return a.Path
	}
	return "/" + a.Path
}

// PreviewImage returns the asset flagged as preview, or nil if the listing
// has none.
func (l *Listing) PreviewImage() *MediaAsset {
	for i := range l.Images {
		if l.Images[i].IsPreview {
			return &l.Images[i]
		}
	}
	return nil
}

// PreviewURL returns the preview asset's URL, or "" for an imageless listing.
func (l *Listing) PreviewURL() string {
	if p := l.PreviewImage(); p != nil {
		return p.URL()
	}
	return ""
}

// RemoveImage detaches the asset with the given id and reports whether it was
// present.
func (l *Listing) RemoveImage(assetID string) (MediaAsset, bool) {
	for i := range l.Images {
		if l.Images[i].ID == assetID {
			removed := l.Images[i]
			l.Images = append(l.Images[:i], l.Images[i+1:]...)
			return removed, true
		}
	}
	return MediaAsset{}, false
}

// Upload carries the raw bytes and declared metadata of a client upload, as
// handed in by the request layer.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// IsEmpty reports whether the upload is absent or carries no bytes.
func (u *Upload) IsEmpty() bool {
	return u == nil || len(u.Data) == 0
}

// SearchDocument is the denormalized projection of a Listing held in the
// secondary search index. It may be stale or missing; readers must treat the
// Listing as the source of truth.
type SearchDocument struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
	PreviewURL  string    `json:"preview_url"`
	OwnerID     string    `json:"owner_id"`
	OwnerName   string    `json:"owner_name"`
}

// NewSearchDocument projects a listing into its index document.
func NewSearchDocument(l *Listing) *SearchDocument {
	return &SearchDocument{
		ID:          l.ID,
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price,
		CreatedAt:   l.CreatedAt,
		PreviewURL:  l.PreviewURL(),
		OwnerID:     l.OwnerID,
		OwnerName:   l.OwnerName,
	}
}

// Page is one page of listings together with pagination metadata. TotalCount
// reflects whatever backend produced the page (index or system of record).
type Page struct {
	Listings   []*Listing
	TotalCount int64
	Page       int
	Size       int
}
