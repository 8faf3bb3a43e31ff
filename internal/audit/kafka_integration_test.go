//go:build integration

package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"vouch/pkg/testutil/containers"
)

func TestKafkaPublisher(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	rp := containers.NewRedpandaContainer(t)
	const topic = "vouch.audit.test"

	publisher, err := NewKafka(ctx, []string{rp.Broker}, topic, slog.Default())
	require.NoError(t, err)

	// Topic creation is idempotent across restarts.
	second, err := NewKafka(ctx, []string{rp.Broker}, topic, slog.Default())
	require.NoError(t, err)
	require.NoError(t, second.Close(ctx))

	event := NewEvent(KindVerified)
	event.UserID = "u1"
	event.CommunityID = "c1"
	event.Email = "a@x.com"
	publisher.Emit(ctx, event)

	// Close flushes the async produce.
	require.NoError(t, publisher.Close(ctx))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(fetchCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "u1", string(records[0].Key))

	var decoded Event
	require.NoError(t, json.Unmarshal(records[0].Value, &decoded))
	assert.Equal(t, KindVerified, decoded.Kind)
	assert.Equal(t, "c1", decoded.CommunityID)
	assert.Equal(t, "a@x.com", decoded.Email)
	assert.Equal(t, event.ID, decoded.ID)
}
