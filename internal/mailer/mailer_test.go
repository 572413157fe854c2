package mailer

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReportMessage_Success(t *testing.T) {
	subject, body := reportMessage(42, 1500*time.Millisecond, nil)

	assert.Equal(t, "Search reindex completed", subject)
	assert.Equal(t, "Search reindex finished in 1.5s. Listings indexed: 42.", body)
}

func TestReportMessage_Failure(t *testing.T) {
	subject, body := reportMessage(0, 200*time.Millisecond, errors.New("mongo down"))

	assert.Equal(t, "Search reindex failed", subject)
	assert.Equal(t, "Search reindex failed after 200ms: mongo down", body)
}
