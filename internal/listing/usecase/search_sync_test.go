package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/marketworks/listing-service/internal/listing/domain"
	"github.com/marketworks/listing-service/internal/platform/logger"
	"github.com/marketworks/listing-service/internal/platform/metrics"
)

type MockSearchIndexRepository struct{ mock.Mock }

func (m *MockSearchIndexRepository) Save(ctx context.Context, doc *domain.SearchDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockSearchIndexRepository) SaveAll(ctx context.Context, docs []*domain.SearchDocument) error {
	args := m.Called(ctx, docs)
	return args.Error(0)
}

func (m *MockSearchIndexRepository) DeleteByID(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSearchIndexRepository) DeleteAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSearchIndexRepository) Search(ctx context.Context, query string, page, size int) ([]string, int64, error) {
	args := m.Called(ctx, query, page, size)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]string), args.Get(1).(int64), args.Error(2)
}

type MockReindexReporter struct{ mock.Mock }

func (m *MockReindexReporter) SendReindexReport(toEmail string, indexed int, took time.Duration, reindexErr error) error {
	args := m.Called(toEmail, indexed, took, reindexErr)
	return args.Error(0)
}

// memoryIndex is a map-backed SearchIndexRepository for reindex tests.
type memoryIndex struct {
	docs map[string]*domain.SearchDocument
}

func newMemoryIndex() *memoryIndex {
	return &memoryIndex{docs: map[string]*domain.SearchDocument{}}
}

func (m *memoryIndex) Save(ctx context.Context, doc *domain.SearchDocument) error {
	m.docs[doc.ID] = doc
	return nil
}

func (m *memoryIndex) SaveAll(ctx context.Context, docs []*domain.SearchDocument) error {
	for _, doc := range docs {
		m.docs[doc.ID] = doc
	}
	return nil
}

func (m *memoryIndex) DeleteByID(ctx context.Context, id string) error {
	delete(m.docs, id)
	return nil
}

func (m *memoryIndex) DeleteAll(ctx context.Context) error {
	m.docs = map[string]*domain.SearchDocument{}
	return nil
}

func (m *memoryIndex) Search(ctx context.Context, query string, page, size int) ([]string, int64, error) {
	ids := make([]string, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	return ids, int64(len(ids)), nil
}

func newTestSearchSync(index domain.SearchIndexRepository, repo *MockListingRepository) *SearchSync {
	return NewSearchSync(index, repo, logger.NewNop(), metrics.New("listing_service_test"))
}

func sampleListings() []*domain.Listing {
	return []*domain.Listing{
		{ID: "l1", Title: "Road bike", OwnerID: "o1"},
		{ID: "l2", Title: "City bike", OwnerID: "o2"},
	}
}

func TestSearch_BlankQueryReturnsCanonicalPage(t *testing.T) {
	listings := sampleListings()

	for _, query := range []string{"", "   ", "\t\n"} {
		index := &MockSearchIndexRepository{}
		repo := &MockListingRepository{}
		repo.On("FindAllPaged", mock.Anything, 0, 20).Return(listings, int64(2), nil)
		s := newTestSearchSync(index, repo)

		page, err := s.Search(context.Background(), query, 0, 20)

		assert.NoError(t, err)
		assert.Equal(t, listings, page.Listings)
		assert.Equal(t, int64(2), page.TotalCount)
		index.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		repo.AssertExpectations(t)
	}
}

func TestSearch_IndexHit(t *testing.T) {
	index := &MockSearchIndexRepository{}
	repo := &MockListingRepository{}
	s := newTestSearchSync(index, repo)

	listings := sampleListings()
	// The index owns the total: 7 matches overall, this page holds two.
	index.On("Search", mock.Anything, "bike", 1, 2).Return([]string{"l1", "l2"}, int64(7), nil)
	repo.On("FindAllByIDs", mock.Anything, []string{"l1", "l2"}).Return(listings, nil)

	page, err := s.Search(context.Background(), "bike", 1, 2)

	assert.NoError(t, err)
	assert.Equal(t, listings, page.Listings)
	assert.Equal(t, int64(7), page.TotalCount)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.Size)
	repo.AssertNotCalled(t, "FindAllPaged", mock.Anything, mock.Anything, mock.Anything)
}

func TestSearch_IndexFailureFallsBack(t *testing.T) {
	index := &MockSearchIndexRepository{}
	repo := &MockListingRepository{}
	s := newTestSearchSync(index, repo)

	listings := sampleListings()
	index.On("Search", mock.Anything, "bike", 0, 20).Return(nil, int64(0), errors.New("redis down"))
	repo.On("FindAllPaged", mock.Anything, 0, 20).Return(listings, int64(2), nil)

	page, err := s.Search(context.Background(), "bike", 0, 20)

	assert.NoError(t, err)
	assert.Equal(t, listings, page.Listings)
	assert.Equal(t, int64(2), page.TotalCount)
	repo.AssertNotCalled(t, "FindAllByIDs", mock.Anything, mock.Anything)
}

func TestSearch_HydrationFailureFallsBack(t *testing.T) {
	index := &MockSearchIndexRepository{}
	repo := &MockListingRepository{}
	s := newTestSearchSync(index, repo)

	listings := sampleListings()
	index.On("Search", mock.Anything, "bike", 0, 20).Return([]string{"l1"}, int64(1), nil)
	repo.On("FindAllByIDs", mock.Anything, []string{"l1"}).Return(nil, errors.New("mongo down"))
	repo.On("FindAllPaged", mock.Anything, 0, 20).Return(listings, int64(2), nil)

	page, err := s.Search(context.Background(), "bike", 0, 20)

	assert.NoError(t, err)
	assert.Equal(t, listings, page.Listings)
}

func TestSearch_SystemOfRecordFailurePropagates(t *testing.T) {
	index := &MockSearchIndexRepository{}
	repo := &MockListingRepository{}
	s := newTestSearchSync(index, repo)

	repo.On("FindAllPaged", mock.Anything, 0, 20).Return(nil, int64(0), errors.New("mongo down"))

	page, err := s.Search(context.Background(), "", 0, 20)

	assert.Nil(t, page)
	assert.Error(t, err)
}

func TestIndexListing_SwallowsIndexError(t *testing.T) {
	index := &MockSearchIndexRepository{}
	repo := &MockListingRepository{}
	s := newTestSearchSync(index, repo)

	index.On("Save", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	assert.NotPanics(t, func() {
		s.IndexListing(context.Background(), &domain.Listing{ID: "l1", Title: "Road bike"})
	})
	index.AssertExpectations(t)
}

func TestDeleteFromIndex_SwallowsIndexError(t *testing.T) {
	index := &MockSearchIndexRepository{}
	repo := &MockListingRepository{}
	s := newTestSearchSync(index, repo)

	index.On("DeleteByID", mock.Anything, "l1").Return(errors.New("redis down"))

	assert.NotPanics(t, func() {
		s.DeleteFromIndex(context.Background(), "l1")
	})
}

func TestReindexAll_RebuildsIndex(t *testing.T) {
	index := newMemoryIndex()
	repo := &MockListingRepository{}
	s := newTestSearchSync(index, repo)

	repo.On("FindAll", mock.Anything).Return(sampleListings(), nil)

	// Stale entry that no longer exists in the system of record.
	_ = index.Save(context.Background(), &domain.SearchDocument{ID: "stale"})

	s.ReindexAll(context.Background())

	assert.Len(t, index.docs, 2)
	assert.Contains(t, index.docs, "l1")
	assert.Contains(t, index.docs, "l2")
	assert.NotContains(t, index.docs, "stale")
}

func TestReindexAll_RunTwiceYieldsSameIndex(t *testing.T) {
	index := newMemoryIndex()
	repo := &MockListingRepository{}
	s := newTestSearchSync(index, repo)

	repo.On("FindAll", mock.Anything).Return(sampleListings(), nil)

	s.ReindexAll(context.Background())
	first := make(map[string]*domain.SearchDocument, len(index.docs))
	for id, doc := range index.docs {
		first[id] = doc
	}

	s.ReindexAll(context.Background())

	assert.Equal(t, len(first), len(index.docs))
	for id := range first {
		assert.Contains(t, index.docs, id)
	}
}

func TestReindexAll_LoadFailureReported(t *testing.T) {
	index := &MockSearchIndexRepository{}
	repo := &MockListingRepository{}
	reporter := &MockReindexReporter{}
	s := newTestSearchSync(index, repo).WithReindexReporting(reporter, "ops@example.com")

	index.On("DeleteAll", mock.Anything).Return(nil)
	repo.On("FindAll", mock.Anything).Return(nil, errors.New("mongo down"))
	reporter.On("SendReindexReport", "ops@example.com", 0, mock.Anything, mock.Anything).Return(nil)

	assert.NotPanics(t, func() {
		s.ReindexAll(context.Background())
	})
	reporter.AssertExpectations(t)
}

func TestReindexAll_SuccessReported(t *testing.T) {
	index := newMemoryIndex()
	repo := &MockListingRepository{}
	reporter := &MockReindexReporter{}
	s := newTestSearchSync(index, repo).WithReindexReporting(reporter, "ops@example.com")

	repo.On("FindAll", mock.Anything).Return(sampleListings(), nil)
	reporter.On("SendReindexReport", "ops@example.com", 2, mock.Anything, nil).Return(nil)

	s.ReindexAll(context.Background())

	reporter.AssertExpectations(t)
}
