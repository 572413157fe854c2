package nats

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/marketworks/listing-service/internal/listing/usecase"
	"github.com/marketworks/listing-service/internal/platform/logger"
)

// SubscribeReindex triggers a full search reindex whenever a message arrives
// on the given subject. The run itself is best-effort, so the handler only
// has to kick it off.
func SubscribeReindex(conn *nats.Conn, subject string, sync *usecase.SearchSync, log logger.Logger) (*nats.Subscription, error) {
	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		log.Infof("nats: reindex requested via subject %s", msg.Subject)
		go sync.ReindexAll(context.Background())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to reindex subject %s: %w", subject, err)
	}
	return sub, nil
}
