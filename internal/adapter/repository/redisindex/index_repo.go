package redisindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/marketworks/listing-service/internal/listing/domain"
)

const (
	docKeyPrefix = "search:doc:"
	docSetKey    = "search:docs"
)

// IndexRepository is the Redis-backed secondary search index. Documents live
// as JSON values keyed by listing id with a membership set for enumeration.
// Substring matching and case folding happen here, inside the engine boundary.
type IndexRepository struct {
	client *redis.Client
}

func NewIndexRepository(client *redis.Client) *IndexRepository {
	return &IndexRepository{client: client}
}

func docKey(id string) string {
	return docKeyPrefix + id
}

func (r *IndexRepository) Save(ctx context.Context, doc *domain.SearchDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal search document %s: %w", doc.ID, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, docKey(doc.ID), data, 0)
	pipe.SAdd(ctx, docSetKey, doc.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save search document %s: %w", doc.ID, err)
	}
	return nil
}

func (r *IndexRepository) SaveAll(ctx context.Context, docs []*domain.SearchDocument) error {
	if len(docs) == 0 {
		return nil
	}

	pipe := r.client.TxPipeline()
	for _, doc := range docs {
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal search document %s: %w", doc.ID, err)
		}
		pipe.Set(ctx, docKey(doc.ID), data, 0)
		pipe.SAdd(ctx, docSetKey, doc.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to bulk save %d search documents: %w", len(docs), err)
	}
	return nil
}

func (r *IndexRepository) DeleteByID(ctx context.Context, id string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, docKey(id))
	pipe.SRem(ctx, docSetKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete search document %s: %w", id, err)
	}
	return nil
}

func (r *IndexRepository) DeleteAll(ctx context.Context) error {
	ids, err := r.client.SMembers(ctx, docSetKey).Result()
	if err != nil {
		return fmt.Errorf("failed to enumerate search documents: %w", err)
	}

	pipe := r.client.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, docKey(id))
	}
	pipe.Del(ctx, docSetKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear search index: %w", err)
	}
	return nil
}

// Search returns ids of documents whose title or description contains the
// query (case-insensitive), newest first, plus the total match count.
func (r *IndexRepository) Search(ctx context.Context, query string, page, size int) ([]string, int64, error) {
	ids, err := r.client.SMembers(ctx, docSetKey).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to enumerate search documents: %w", err)
	}
	if len(ids) == 0 {
		return []string{}, 0, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = docKey(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, fmt.Errorf("failed to load search documents: %w", err)
	}

	var matched []*domain.SearchDocument
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Document expired between SMembers and MGet; skip.
			continue
		}
		var doc domain.SearchDocument
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			continue
		}
		if matches(&doc, query) {
			matched = append(matched, &doc)
		}
	}

	sortNewestFirst(matched)
	return paginate(matched, page, size), int64(len(matched)), nil
}

// matches reports whether the document's title or description contains the
// query, case-folded.
func matches(doc *domain.SearchDocument, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(doc.Title), q) ||
		strings.Contains(strings.ToLower(doc.Description), q)
}

func sortNewestFirst(docs []*domain.SearchDocument) {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
}

// paginate slices the zero-based page of the given size out of docs.
func paginate(docs []*domain.SearchDocument, page, size int) []string {
	if page < 0 {
		page = 0
	}
	start := page * size
	if size <= 0 || start >= len(docs) {
		return []string{}
	}
	end := start + size
	if end > len(docs) {
		end = len(docs)
	}

	ids := make([]string, 0, end-start)
	for _, doc := range docs[start:end] {
		ids = append(ids, doc.ID)
	}
	return ids
}
