package redisindex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/marketworks/listing-service/internal/listing/domain"
)

func doc(id, title, description string, age time.Duration) *domain.SearchDocument {
	return &domain.SearchDocument{
		ID:          id,
		Title:       title,
		Description: description,
		CreatedAt:   time.Now().Add(-age),
	}
}

func TestMatches(t *testing.T) {
	d := doc("l1", "Road Bike", "Carbon frame, barely used", 0)

	assert.True(t, matches(d, "bike"))
	assert.True(t, matches(d, "BIKE"))
	assert.True(t, matches(d, "carbon FRAME"))
	assert.True(t, matches(d, "road b"))
	assert.False(t, matches(d, "mountain"))

	// Empty query matches everything; callers filter blank queries upstream.
	assert.True(t, matches(d, ""))
}

func TestSortNewestFirst(t *testing.T) {
	docs := []*domain.SearchDocument{
		doc("old", "a", "", 3*time.Hour),
		doc("new", "b", "", time.Minute),
		doc("mid", "c", "", time.Hour),
	}

	sortNewestFirst(docs)

	assert.Equal(t, "new", docs[0].ID)
	assert.Equal(t, "mid", docs[1].ID)
	assert.Equal(t, "old", docs[2].ID)
}

func TestPaginate(t *testing.T) {
	docs := []*domain.SearchDocument{
		doc("a", "", "", 0),
		doc("b", "", "", 0),
		doc("c", "", "", 0),
		doc("d", "", "", 0),
		doc("e", "", "", 0),
	}

	assert.Equal(t, []string{"a", "b"}, paginate(docs, 0, 2))
	assert.Equal(t, []string{"c", "d"}, paginate(docs, 1, 2))
	assert.Equal(t, []string{"e"}, paginate(docs, 2, 2))
	assert.Empty(t, paginate(docs, 3, 2))
	assert.Empty(t, paginate(docs, 0, 0))
	assert.Equal(t, []string{"a", "b"}, paginate(docs, -1, 2))
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, paginate(docs, 0, 10))
	assert.Empty(t, paginate(nil, 0, 2))
}
