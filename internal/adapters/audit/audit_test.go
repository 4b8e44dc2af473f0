package audit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-revisions/internal/domain"
)

type fakeDynamo struct {
	mu     sync.Mutex
	inputs []*dynamodb.PutItemInput
	err    error
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inputs = append(f.inputs, in)

	if f.err != nil {
		return nil, f.err
	}

	return &dynamodb.PutItemOutput{}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

var occurred = time.Date(2025, 4, 2, 8, 30, 0, 0, time.UTC)

func activatedEvent() *domain.RevisionEvent {
	rev := &domain.QuoteRevision{
		ID:            "rev-2",
		TenantID:      "tenant-a",
		RootID:        "rev-1",
		VersionNumber: 2,
		UpdatedAt:     occurred,
	}

	e := domain.NewVersionActivatedEvent(rev, []string{"rev-1"}, "user-1")
	e.CorrelationID = "corr-1"

	return e
}

func newTestPublisher(client *fakeDynamo, breaker *Breaker) *DynamoPublisher {
	return NewDynamoPublisher(DynamoConfig{
		Client:      client,
		Table:       "audit-test",
		Breaker:     breaker,
		IDGenerator: func() string { return "evt-1" },
		Clock:       func() time.Time { return occurred.Add(time.Hour) },
		Logger:      discardLogger(),
	})
}

func TestDynamoPublisher_Publish(t *testing.T) {
	client := &fakeDynamo{}
	p := newTestPublisher(client, nil)

	require.NoError(t, p.Publish(context.Background(), activatedEvent()))
	require.Len(t, client.inputs, 1)

	in := client.inputs[0]
	assert.Equal(t, "audit-test", *in.TableName)
	assert.Equal(t, "attribute_not_exists(#sk)", *in.ConditionExpression)
	assert.Equal(t, "sk", in.ExpressionAttributeNames["#sk"])

	var item auditItem
	require.NoError(t, attributevalue.UnmarshalMap(in.Item, &item))

	assert.Equal(t, "tenant-a", item.PK)
	assert.Equal(t, "2025-04-02T08:30:00Z#evt-1", item.SK, "events sort by the revision's time, not the clock")
	assert.Equal(t, domain.EventVersionActivated, item.EventType)
	assert.Equal(t, "rev-2", item.Subject)
	assert.Equal(t, "corr-1", item.CorrelationID)

	var payload map[string]any
	require.NoError(t, attributevalue.Unmarshal(in.Item[payloadAttribute], &payload))
	assert.Equal(t, "rev-1", payload["rootId"])
	assert.Equal(t, "user-1", payload["actor"])
}

func TestDynamoPublisher_DuplicateIsNotAnError(t *testing.T) {
	client := &fakeDynamo{err: &types.ConditionalCheckFailedException{Message: new(string)}}
	p := newTestPublisher(client, nil)

	assert.NoError(t, p.Publish(context.Background(), activatedEvent()))
	assert.Equal(t, StateClosed, p.breaker.State())
}

func TestDynamoPublisher_FailuresOpenTheCircuit(t *testing.T) {
	client := &fakeDynamo{err: errors.New("connection refused")}
	breaker := NewBreaker(BreakerConfig{MaxFailures: 2, Timeout: time.Minute, HalfOpenLimit: 1})
	p := newTestPublisher(client, breaker)

	for range 2 {
		err := p.Publish(context.Background(), activatedEvent())
		require.Error(t, err)
		assert.True(t, domain.IsUnavailable(err))
	}

	require.Error(t, p.Check(context.Background()))

	err := p.Publish(context.Background(), activatedEvent())
	assert.True(t, domain.IsUnavailable(err))
	assert.Contains(t, err.Error(), "circuit breaker open")
	assert.Len(t, client.inputs, 2, "open circuit must not reach the table")
}

func TestDynamoPublisher_HealthyWhenClosed(t *testing.T) {
	p := newTestPublisher(&fakeDynamo{}, nil)

	assert.Equal(t, "audit:dynamodb", p.Name())
	assert.NoError(t, p.Check(context.Background()))
}

func TestNewDynamoPublisher_RequiresClient(t *testing.T) {
	assert.Panics(t, func() { NewDynamoPublisher(DynamoConfig{}) })
}

func TestLogPublisher_Publish(t *testing.T) {
	var buf bytes.Buffer

	p := NewLogPublisher(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, p.Publish(context.Background(), activatedEvent()))

	out := buf.String()
	assert.Contains(t, out, `"event_type":"quote.version.activated"`)
	assert.Contains(t, out, `"tenant_id":"tenant-a"`)
	assert.Contains(t, out, `"subject":"rev-2"`)
}
