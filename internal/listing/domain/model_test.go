package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMediaAssetURL(t *testing.T) {
	assert.Equal(t, "/uploads/a.jpg", MediaAsset{Path: "uploads/a.jpg"}.URL())
	assert.Equal(t, "http://cdn.example.com/a.jpg", MediaAsset{Path: "http://cdn.example.com/a.jpg"}.URL())
	assert.Equal(t, "https://cdn.example.com/a.jpg", MediaAsset{Path: "https://cdn.example.com/a.jpg"}.URL())
}

func TestPreviewImage(t *testing.T) {
	l := &Listing{Images: []MediaAsset{
		{ID: "a", Path: "uploads/a.jpg"},
		{ID: "b", Path: "uploads/b.jpg", IsPreview: true},
	}}

	p := l.PreviewImage()
	assert.NotNil(t, p)
	assert.Equal(t, "b", p.ID)
	assert.Equal(t, "/uploads/b.jpg", l.PreviewURL())

	empty := &Listing{}
	assert.Nil(t, empty.PreviewImage())
	assert.Equal(t, "", empty.PreviewURL())
}

func TestRemoveImage(t *testing.T) {
	l := &Listing{Images: []MediaAsset{{ID: "a"}, {ID: "b"}, {ID: "c"}}}

	removed, ok := l.RemoveImage("b")
	assert.True(t, ok)
	assert.Equal(t, "b", removed.ID)
	assert.Len(t, l.Images, 2)

	_, ok = l.RemoveImage("missing")
	assert.False(t, ok)
	assert.Len(t, l.Images, 2)
}

func TestUploadIsEmpty(t *testing.T) {
	var nilUpload *Upload
	assert.True(t, nilUpload.IsEmpty())
	assert.True(t, (&Upload{Filename: "a.jpg"}).IsEmpty())
	assert.False(t, (&Upload{Filename: "a.jpg", Data: []byte{1}}).IsEmpty())
}

func TestNewSearchDocument(t *testing.T) {
	l := &Listing{
		ID:          "l1",
		Title:       "Road bike",
		Description: "Carbon frame",
		Price:       900,
		OwnerID:     "o1",
		OwnerName:   "alice",
		Images: []MediaAsset{
			{ID: "img", Path: "uploads/a.jpg", IsPreview: true},
		},
	}

	doc := NewSearchDocument(l)

	assert.Equal(t, "l1", doc.ID)
	assert.Equal(t, "Road bike", doc.Title)
	assert.Equal(t, "/uploads/a.jpg", doc.PreviewURL)
	assert.Equal(t, "alice", doc.OwnerName)
}
