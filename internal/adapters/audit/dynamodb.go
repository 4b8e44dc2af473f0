// Package audit provides the sinks that receive revision events after commit.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/jsamuelsen/quote-revisions/internal/domain"
	"github.com/jsamuelsen/quote-revisions/internal/platform/logging"
	"github.com/jsamuelsen/quote-revisions/internal/ports"
)

const (
	// DefaultTable is the audit table name used when none is configured.
	DefaultTable = "quote-audit-events"

	// DefaultTimeout bounds a single PutItem call.
	DefaultTimeout = 2 * time.Second

	// unscopedTenant partitions events that carry no tenant.
	unscopedTenant = "_"
)

var (
	_ ports.EventPublisher = (*DynamoPublisher)(nil)
	_ ports.HealthChecker  = (*DynamoPublisher)(nil)
)

// putItemAPI is the slice of the DynamoDB client the publisher needs.
type putItemAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// auditItem is one row of the audit table.
//
// Table requirements:
//   - PK: pk (string), the tenant
//   - SK: sk (string), occurred-at then event id, so a tenant's events sort by time
type auditItem struct {
	PK         string `dynamodbav:"pk"`
	SK         string `dynamodbav:"sk"`
	EventID    string `dynamodbav:"event_id"`
	EventType  string `dynamodbav:"event_type"`
	Subject    string `dynamodbav:"subject,omitempty"`
	OccurredAt string `dynamodbav:"occurred_at"`

	// CorrelationID joins the events caused by one inbound request.
	CorrelationID string `dynamodbav:"correlation_id,omitempty"`
}

// payloadAttribute holds the event payload, encoded with its json tags.
const payloadAttribute = "payload"

// DynamoConfig configures the DynamoDB publisher.
type DynamoConfig struct {
	Client  putItemAPI
	Table   string
	Timeout time.Duration
	Breaker *Breaker

	// IDGenerator returns event ids. Defaults to uuid.NewString.
	IDGenerator func() string
	Clock       func() time.Time
	Logger      *slog.Logger
}

// DynamoPublisher writes each event as a new item in a DynamoDB table.
// Writes are create-only; a retried publish of the same item is a no-op.
type DynamoPublisher struct {
	client  putItemAPI
	table   string
	timeout time.Duration
	breaker *Breaker
	newID   func() string
	now     func() time.Time
	logger  *slog.Logger
}

// NewDynamoPublisher creates a DynamoDB publisher. It panics if Client is nil.
func NewDynamoPublisher(cfg DynamoConfig) *DynamoPublisher {
	if cfg.Client == nil {
		panic("audit: dynamodb client is required")
	}

	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.Breaker == nil {
		cfg.Breaker = NewBreaker(BreakerConfig{})
	}

	if cfg.IDGenerator == nil {
		cfg.IDGenerator = uuid.NewString
	}

	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	p := &DynamoPublisher{
		client:  cfg.Client,
		table:   cfg.Table,
		timeout: cfg.Timeout,
		breaker: cfg.Breaker,
		newID:   cfg.IDGenerator,
		now:     cfg.Clock,
		logger:  cfg.Logger.With(slog.String("component", "audit"), slog.String("sink", "dynamodb")),
	}

	p.breaker.OnStateChange(func(from, to State) {
		p.logger.Warn("audit circuit state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})

	return p
}

// NewDynamoClient creates a DynamoDB client from an AWS config, honoring an endpoint override.
func NewDynamoClient(cfg aws.Config, endpoint *string) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != nil {
			o.BaseEndpoint = endpoint
		}
	})
}

// Publish implements ports.EventPublisher.
func (p *DynamoPublisher) Publish(ctx context.Context, event ports.Event) error {
	item := p.toItem(event)

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshalling audit item: %w", err)
	}

	payload, err := attributevalue.MarshalWithOptions(event.Payload(), func(o *attributevalue.EncoderOptions) {
		o.TagKey = "json"
	})
	if err != nil {
		return fmt.Errorf("encoding audit event %s: %w", item.EventType, err)
	}

	av[payloadAttribute] = payload

	err = p.breaker.Do(func() error {
		putCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		_, err := p.client.PutItem(putCtx, &dynamodb.PutItemInput{
			TableName:           aws.String(p.table),
			Item:                av,
			ConditionExpression: aws.String("attribute_not_exists(#sk)"),
			ExpressionAttributeNames: map[string]string{
				"#sk": "sk",
			},
		})

		var conditional *types.ConditionalCheckFailedException
		if errors.As(err, &conditional) {
			return nil
		}

		return err
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return domain.NewUnavailableError("audit", "circuit breaker open")
		}

		return domain.NewUnavailableError("audit", err.Error())
	}

	logging.FromContextOr(ctx, p.logger).Debug("audit event stored",
		slog.String("event_type", item.EventType),
		slog.String("event_id", item.EventID),
	)

	return nil
}

// Name implements ports.HealthChecker.
func (p *DynamoPublisher) Name() string { return "audit:dynamodb" }

// Check implements ports.HealthChecker. The sink is unhealthy while its circuit is open.
func (p *DynamoPublisher) Check(context.Context) error {
	if state := p.breaker.State(); state == StateOpen {
		return domain.NewUnavailableError("audit", "circuit breaker "+state.String())
	}

	return nil
}

func (p *DynamoPublisher) toItem(event ports.Event) auditItem {
	occurredAt := p.now().UTC()
	tenant := unscopedTenant
	subject := ""
	correlationID := ""

	if scoped, ok := event.(ports.ScopedEvent); ok {
		if scoped.Tenant() != "" {
			tenant = scoped.Tenant()
		}

		subject = scoped.Subject()
	}

	if rev, ok := event.(*domain.RevisionEvent); ok {
		if !rev.OccurredAt.IsZero() {
			occurredAt = rev.OccurredAt.UTC()
		}

		correlationID = rev.CorrelationID
	}

	id := p.newID()
	stamp := occurredAt.Format(time.RFC3339Nano)

	return auditItem{
		PK:         tenant,
		SK:         stamp + "#" + id,
		EventID:    id,
		EventType:  event.EventType(),
		Subject:    subject,
		OccurredAt: stamp,

		CorrelationID: correlationID,
	}
}
