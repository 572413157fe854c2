package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/marketworks/listing-service/internal/listing/domain"
	"github.com/marketworks/listing-service/internal/platform/logger"
	"github.com/marketworks/listing-service/internal/platform/metrics"
)

// ReindexReporter delivers the outcome of a full reindex run to an operator.
type ReindexReporter interface {
	SendReindexReport(toEmail string, indexed int, took time.Duration, reindexErr error) error
}

// SearchSync keeps the secondary search index loosely synchronized with the
// system of record and answers search queries with a transparent fallback.
// Every index failure is captured here; callers never observe one.
type SearchSync struct {
	index      domain.SearchIndexRepository
	repo       domain.ListingRepository
	log        logger.Logger
	metrics    *metrics.Metrics
	reporter   ReindexReporter
	adminEmail string
}

func NewSearchSync(
	index domain.SearchIndexRepository,
	repo domain.ListingRepository,
	log logger.Logger,
	m *metrics.Metrics,
) *SearchSync {
	return &SearchSync{
		index:   index,
		repo:    repo,
		log:     log,
		metrics: m,
	}
}

// WithReindexReporting mails a report to adminEmail after each ReindexAll run.
func (s *SearchSync) WithReindexReporting(reporter ReindexReporter, adminEmail string) *SearchSync {
	s.reporter = reporter
	s.adminEmail = adminEmail
	return s
}

// IndexListing upserts the listing's projection. Best-effort: failures are
// logged and never surfaced to the write path.
func (s *SearchSync) IndexListing(ctx context.Context, listing *domain.Listing) {
	if err := s.index.Save(ctx, domain.NewSearchDocument(listing)); err != nil {
		s.metrics.IndexErrorsTotal.WithLabelValues("index").Inc()
		s.log.Errorf("SearchSync.IndexListing: failed to index listing %s: %v", listing.ID, err)
		return
	}
	s.log.Debugf("SearchSync.IndexListing: listing %s indexed", listing.ID)
}

// DeleteFromIndex removes the projection. Same best-effort contract.
func (s *SearchSync) DeleteFromIndex(ctx context.Context, id string) {
	if err := s.index.DeleteByID(ctx, id); err != nil {
		s.metrics.IndexErrorsTotal.WithLabelValues("delete").Inc()
		s.log.Errorf("SearchSync.DeleteFromIndex: failed to delete listing %s from index: %v", id, err)
		return
	}
	s.log.Debugf("SearchSync.DeleteFromIndex: listing %s removed from index", id)
}

// ReindexAll clears the index and re-projects every listing currently in the
// system of record. Not atomic with respect to concurrent writes; listings
// touched mid-run may be transiently missing or duplicated. Errors are logged
// and reported, never returned.
func (s *SearchSync) ReindexAll(ctx context.Context) {
	start := time.Now()
	s.metrics.ReindexRunsTotal.Inc()
	s.log.Info("SearchSync.ReindexAll: starting full reindex")

	indexed, err := s.reindex(ctx)
	if err != nil {
		s.metrics.IndexErrorsTotal.WithLabelValues("reindex").Inc()
		s.log.Errorf("SearchSync.ReindexAll: reindex failed: %v", err)
	} else {
		s.log.Infof("SearchSync.ReindexAll: reindex completed, %d listings in %s", indexed, time.Since(start))
	}

	s.report(indexed, time.Since(start), err)
}

func (s *SearchSync) reindex(ctx context.Context) (int, error) {
	if err := s.index.DeleteAll(ctx); err != nil {
		return 0, fmt.Errorf("failed to clear index: %w", err)
	}

	listings, err := s.repo.FindAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load listings: %w", err)
	}

	docs := make([]*domain.SearchDocument, 0, len(listings))
	for _, l := range listings {
		docs = append(docs, domain.NewSearchDocument(l))
	}

	if err := s.index.SaveAll(ctx, docs); err != nil {
		return 0, fmt.Errorf("failed to bulk upsert documents: %w", err)
	}
	return len(docs), nil
}

func (s *SearchSync) report(indexed int, took time.Duration, reindexErr error) {
	if s.reporter == nil || s.adminEmail == "" {
		return
	}
	if err := s.reporter.SendReindexReport(s.adminEmail, indexed, took, reindexErr); err != nil {
		s.log.Warnf("SearchSync: failed to send reindex report: %v", err)
	}
}

// Search answers a paged query. A blank query returns the canonical page from
// the system of record, newest first. Otherwise the index supplies matching
// ids and the total count while the entities themselves are loaded from the
// system of record; any failure along the index path falls back transparently
// to the canonical page. The returned error can only originate from the
// system of record itself.
func (s *SearchSync) Search(ctx context.Context, query string, page, size int) (*domain.Page, error) {
	s.metrics.SearchQueriesTotal.Inc()

	if strings.TrimSpace(query) == "" {
		return s.canonicalPage(ctx, page, size)
	}

	ids, total, err := s.index.Search(ctx, query, page, size)
	if err != nil {
		s.metrics.IndexErrorsTotal.WithLabelValues("search").Inc()
		s.metrics.SearchFallbacksTotal.Inc()
		s.log.Errorf("SearchSync.Search: index query %q failed, falling back to system of record: %v", query, err)
		return s.canonicalPage(ctx, page, size)
	}

	listings, err := s.repo.FindAllByIDs(ctx, ids)
	if err != nil {
		s.metrics.SearchFallbacksTotal.Inc()
		s.log.Errorf("SearchSync.Search: failed to load %d listings by id, falling back: %v", len(ids), err)
		return s.canonicalPage(ctx, page, size)
	}

	return &domain.Page{
		Listings:   listings,
		TotalCount: total,
		Page:       page,
		Size:       size,
	}, nil
}

func (s *SearchSync) canonicalPage(ctx context.Context, page, size int) (*domain.Page, error) {
	listings, total, err := s.repo.FindAllPaged(ctx, page, size)
	if err != nil {
		return nil, fmt.Errorf("failed to load canonical listing page: %w", err)
	}
	return &domain.Page{
		Listings:   listings,
		TotalCount: total,
		Page:       page,
		Size:       size,
	}, nil
}
