package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/marketworks/listing-service/internal/listing/domain"
)

const listingCollectionName = "listings"

// ListingRepository is the mongo-backed system of record for listings.
// MediaAssets are embedded by value in the listing document, so the ownership
// tree is persisted as a single row.
type ListingRepository struct {
	collection *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{collection: db.Collection(listingCollectionName)}
}

func (r *ListingRepository) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	var listing domain.Listing
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to find listing %s: %w", id, err)
	}
	return &listing, nil
}

func (r *ListingRepository) FindAll(ctx context.Context) ([]*domain.Listing, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list all listings: %w", err)
	}
	defer cursor.Close(ctx)

	var listings []*domain.Listing
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode listings: %w", err)
	}
	return listings, nil
}

// FindAllPaged returns one page ordered by creation time descending together
// with the total listing count.
func (r *ListingRepository) FindAllPaged(ctx context.Context, page, size int) ([]*domain.Listing, int64, error) {
	if page < 0 {
		page = 0
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}})
	if size > 0 {
		findOptions.SetSkip(int64(page * size)).SetLimit(int64(size))
	}

	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list listings: %w", err)
	}
	defer cursor.Close(ctx)

	var listings []*domain.Listing
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, 0, fmt.Errorf("failed to decode listings: %w", err)
	}

	total, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count listings: %w", err)
	}

	return listings, total, nil
}

func (r *ListingRepository) FindByOwner(ctx context.Context, ownerID string) ([]*domain.Listing, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return nil, fmt.Errorf("failed to list listings for owner %s: %w", ownerID, err)
	}
	defer cursor.Close(ctx)

	var listings []*domain.Listing
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode listings: %w", err)
	}
	return listings, nil
}

// FindAllByIDs loads the listings that still exist for the given ids; ids
// without a backing row are silently absent from the result.
func (r *ListingRepository) FindAllByIDs(ctx context.Context, ids []string) ([]*domain.Listing, error) {
	if len(ids) == 0 {
		return []*domain.Listing{}, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to list listings by ids: %w", err)
	}
	defer cursor.Close(ctx)

	var listings []*domain.Listing
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode listings: %w", err)
	}
	return listings, nil
}

// Save inserts or fully replaces the listing row, image set included.
func (r *ListingRepository) Save(ctx context.Context, listing *domain.Listing) error {
	if listing.ID == "" {
		listing.ID = primitive.NewObjectID().Hex()
	}

	_, err := r.collection.ReplaceOne(ctx,
		bson.M{"_id": listing.ID},
		listing,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save listing %s: %w", listing.ID, err)
	}
	return nil
}

func (r *ListingRepository) DeleteByID(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete listing %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}
