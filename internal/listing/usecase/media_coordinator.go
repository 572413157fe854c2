package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/marketworks/listing-service/internal/listing/domain"
	"github.com/marketworks/listing-service/internal/platform/logger"
	"github.com/marketworks/listing-service/internal/platform/metrics"
)

// NATS subjects published after each committed listing operation.
const (
	SubjectListingCreated = "listing.created"
	SubjectListingUpdated = "listing.updated"
	SubjectListingDeleted = "listing.deleted"
)

// ListingEvent is the fire-and-forget payload published after a commit.
type ListingEvent struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Title   string `json:"title"`
}

// ListingFields are the mutable scalar fields of a listing.
type ListingFields struct {
	Title       string
	Description string
	Price       float64
}

// SearchIndexer receives best-effort projection updates after each commit.
// Implementations must never propagate index failures.
type SearchIndexer interface {
	IndexListing(ctx context.Context, listing *domain.Listing)
	DeleteFromIndex(ctx context.Context, id string)
}

// EventPublisher publishes listing lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, message interface{}) error
}

// MediaCoordinator orchestrates create/update/delete of a listing together
// with its image set. Each operation validates up front, writes media, commits
// the listing record and only then notifies the search index; on a partial
// storage failure every file written within the operation is compensated so
// no listing is ever persisted with a partial image set. Operations on the
// same listing id are serialized.
type MediaCoordinator struct {
	repo      domain.ListingRepository
	storage   domain.MediaStorage
	validator *ImageValidator
	search    SearchIndexer
	events    EventPublisher
	log       logger.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	locks     *keyedMutex
	uploadDir string
}

func NewMediaCoordinator(
	repo domain.ListingRepository,
	storage domain.MediaStorage,
	validator *ImageValidator,
	search SearchIndexer,
	events EventPublisher,
	log logger.Logger,
	m *metrics.Metrics,
	uploadDir string,
) *MediaCoordinator {
	return &MediaCoordinator{
		repo:      repo,
		storage:   storage,
		validator: validator,
		search:    search,
		events:    events,
		log:       log,
		metrics:   m,
		tracer:    otel.Tracer("listing-service/usecase"),
		locks:     newKeyedMutex(),
		uploadDir: uploadDir,
	}
}

// CreateListing validates the preview (required) and additional images
// (optional, capped), stores them, persists the listing and syncs the search
// projection. The first storage failure aborts the operation and deletes
// every file written by it.
func (c *MediaCoordinator) CreateListing(
	ctx context.Context,
	fields ListingFields,
	ownerID, ownerName string,
	preview *domain.Upload,
	additional []*domain.Upload,
) (*domain.Listing, domain.SaveResult) {
	ctx, span := c.tracer.Start(ctx, "MediaCoordinator.CreateListing")
	defer span.End()
	defer c.observe("create", time.Now())

	if result := c.validator.ValidatePreview(preview); !result.Valid {
		return nil, domain.SaveValidationFailed(result.Reason)
	}
	if result := c.validator.ValidateBatch(additional, MaxAdditionalImages); !result.Valid {
		return nil, domain.SaveValidationFailed(result.Reason)
	}

	previewAsset, err := c.storage.Store(ctx, c.uploadDir, preview)
	if err != nil {
		c.log.Errorf("MediaCoordinator.CreateListing: failed to store preview image: %v", err)
		return nil, domain.SaveStorageFailed("Failed to save preview image")
	}
	previewAsset.IsPreview = true
	c.metrics.MediaStoredTotal.Inc()

	stored := []domain.MediaAsset{*previewAsset}
	for _, upload := range additional {
		if upload.IsEmpty() {
			continue
		}
		asset, err := c.storage.Store(ctx, c.uploadDir, upload)
		if err != nil {
			c.log.Errorf("MediaCoordinator.CreateListing: failed to store additional image %q: %v", upload.Filename, err)
			c.compensate(ctx, stored)
			return nil, domain.SaveStorageFailed("Failed to save additional image")
		}
		c.metrics.MediaStoredTotal.Inc()
		stored = append(stored, *asset)
	}

	now := time.Now().UTC()
	listing := &domain.Listing{
		ID:          uuid.NewString(),
		Title:       fields.Title,
		Description: fields.Description,
		Price:       fields.Price,
		OwnerID:     ownerID,
		OwnerName:   ownerName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i := range stored {
		stored[i].ListingID = listing.ID
	}
	listing.Images = stored
	c.ensureSinglePreview(listing)

	if err := c.repo.Save(ctx, listing); err != nil {
		c.log.Errorf("MediaCoordinator.CreateListing: failed to persist listing: %v", err)
		c.compensate(ctx, stored)
		return nil, domain.SaveStorageFailed("Failed to save listing")
	}

	c.search.IndexListing(ctx, listing)
	c.publish(ctx, SubjectListingCreated, listing)
	c.metrics.ListingsCreatedTotal.Inc()

	c.log.Infof("MediaCoordinator.CreateListing: listing %s created with %d images", listing.ID, len(listing.Images))
	return listing, domain.SaveOK()
}

// UpdateListing applies removals, an optional preview replacement and new
// additional images to an existing listing, then persists the updated fields
// together with the new image set. Newly written files of this update are
// compensated if a later write fails. Note that a replaced preview is removed
// before the new one is stored, so a preview-write failure leaves the listing
// without its old preview file.
func (c *MediaCoordinator) UpdateListing(
	ctx context.Context,
	id string,
	fields ListingFields,
	preview *domain.Upload,
	additional []*domain.Upload,
	removeImageIDs []string,
) (*domain.Listing, domain.SaveResult) {
	ctx, span := c.tracer.Start(ctx, "MediaCoordinator.UpdateListing")
	defer span.End()
	defer c.observe("update", time.Now())

	c.locks.Lock(id)
	defer c.locks.Unlock(id)

	listing, err := c.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrListingNotFound) {
			return nil, domain.SaveNotFound("Listing not found")
		}
		c.log.Errorf("MediaCoordinator.UpdateListing: failed to load listing %s: %v", id, err)
		return nil, domain.SaveStorageFailed("Failed to load listing")
	}

	if !preview.IsEmpty() {
		if result := c.validator.Validate(preview); !result.Valid {
			return nil, domain.SaveValidationFailed(result.Reason)
		}
	}
	if result := c.validator.ValidateBatch(additional, MaxAdditionalImages); !result.Valid {
		return nil, domain.SaveValidationFailed(result.Reason)
	}

	// Removals first; ids not attached to this listing are ignored.
	for _, assetID := range removeImageIDs {
		if removed, ok := listing.RemoveImage(assetID); ok {
			c.storage.Delete(ctx, removed)
			c.metrics.MediaDeletedTotal.Inc()
		}
	}

	var newAssets []domain.MediaAsset
	if !preview.IsEmpty() {
		if current := listing.PreviewImage(); current != nil {
			removed, _ := listing.RemoveImage(current.ID)
			c.storage.Delete(ctx, removed)
			c.metrics.MediaDeletedTotal.Inc()
		}
		asset, err := c.storage.Store(ctx, c.uploadDir, preview)
		if err != nil {
			c.log.Errorf("MediaCoordinator.UpdateListing: failed to store new preview for %s: %v", id, err)
			return nil, domain.SaveStorageFailed("Failed to update preview image")
		}
		asset.IsPreview = true
		asset.ListingID = id
		c.metrics.MediaStoredTotal.Inc()
		newAssets = append(newAssets, *asset)
	}

	for _, upload := range additional {
		if upload.IsEmpty() {
			continue
		}
		asset, err := c.storage.Store(ctx, c.uploadDir, upload)
		if err != nil {
			c.log.Errorf("MediaCoordinator.UpdateListing: failed to store additional image %q for %s: %v", upload.Filename, id, err)
			c.compensate(ctx, newAssets)
			return nil, domain.SaveStorageFailed("Failed to update additional images")
		}
		asset.ListingID = id
		c.metrics.MediaStoredTotal.Inc()
		newAssets = append(newAssets, *asset)
	}

	listing.Title = fields.Title
	listing.Description = fields.Description
	listing.Price = fields.Price
	listing.Images = append(listing.Images, newAssets...)
	listing.UpdatedAt = time.Now().UTC()
	c.ensureSinglePreview(listing)

	if err := c.repo.Save(ctx, listing); err != nil {
		c.log.Errorf("MediaCoordinator.UpdateListing: failed to persist listing %s: %v", id, err)
		c.compensate(ctx, newAssets)
		return nil, domain.SaveStorageFailed("Failed to save listing")
	}

	c.search.IndexListing(ctx, listing)
	c.publish(ctx, SubjectListingUpdated, listing)
	c.metrics.ListingUpdatesTotal.Inc()

	return listing, domain.SaveOK()
}

// DeleteListing removes every associated media file (best-effort), deletes
// the record and then the search projection. Only a missing listing or a
// record-delete failure aborts; file and index cleanup never do.
func (c *MediaCoordinator) DeleteListing(ctx context.Context, id string) domain.SaveResult {
	ctx, span := c.tracer.Start(ctx, "MediaCoordinator.DeleteListing")
	defer span.End()
	defer c.observe("delete", time.Now())

	c.locks.Lock(id)
	defer c.locks.Unlock(id)

	listing, err := c.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrListingNotFound) {
			return domain.SaveNotFound("Listing not found")
		}
		c.log.Errorf("MediaCoordinator.DeleteListing: failed to load listing %s: %v", id, err)
		return domain.SaveStorageFailed("Failed to load listing")
	}

	for _, asset := range listing.Images {
		c.storage.Delete(ctx, asset)
		c.metrics.MediaDeletedTotal.Inc()
	}

	if err := c.repo.DeleteByID(ctx, id); err != nil {
		c.log.Errorf("MediaCoordinator.DeleteListing: failed to delete listing %s: %v", id, err)
		return domain.SaveStorageFailed("Failed to delete listing")
	}

	c.search.DeleteFromIndex(ctx, id)
	c.publish(ctx, SubjectListingDeleted, listing)
	c.metrics.ListingDeletesTotal.Inc()

	c.log.Infof("MediaCoordinator.DeleteListing: listing %s deleted", id)
	return domain.SaveOK()
}

// compensate deletes, in reverse order, files written within the failed
// operation. Deletion is best-effort so cleanup never masks the original
// failure.
func (c *MediaCoordinator) compensate(ctx context.Context, assets []domain.MediaAsset) {
	if len(assets) == 0 {
		return
	}
	c.log.Warnf("MediaCoordinator: compensating cleanup of %d stored files", len(assets))
	for i := len(assets) - 1; i >= 0; i-- {
		c.storage.Delete(ctx, assets[i])
	}
	c.metrics.CompensationsTotal.Inc()
}

// ensureSinglePreview repairs the single-preview invariant before persisting:
// a non-empty image set ends up with exactly one preview flag.
func (c *MediaCoordinator) ensureSinglePreview(listing *domain.Listing) {
	if len(listing.Images) == 0 {
		return
	}
	seen := false
	for i := range listing.Images {
		if !listing.Images[i].IsPreview {
			continue
		}
		if seen {
			listing.Images[i].IsPreview = false
			c.log.Warnf("MediaCoordinator: listing %s had multiple preview images, keeping the first", listing.ID)
			continue
		}
		seen = true
	}
	if !seen {
		listing.Images[0].IsPreview = true
		c.log.Warnf("MediaCoordinator: listing %s had no preview image, promoting %s", listing.ID, listing.Images[0].ID)
	}
}

func (c *MediaCoordinator) publish(ctx context.Context, subject string, listing *domain.Listing) {
	if c.events == nil {
		return
	}
	event := ListingEvent{ID: listing.ID, OwnerID: listing.OwnerID, Title: listing.Title}
	if err := c.events.Publish(ctx, subject, event); err != nil {
		c.log.Warnf("MediaCoordinator: failed to publish %s for listing %s: %v", subject, listing.ID, err)
	}
}

func (c *MediaCoordinator) observe(method string, start time.Time) {
	c.metrics.OperationLatencySeconds.WithLabelValues(method).Observe(time.Since(start).Seconds())
}
