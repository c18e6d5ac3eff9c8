package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoEventStore persists events in DynamoDB. The table uses
// aggregate_id as partition key and version as sort key; a conditional put
// on that composite key is the optimistic-concurrency gate. gsi1pk holds
// the aggregate type for full-rebuild scans.
type DynamoEventStore struct {
	client            *dynamodb.Client
	tableName         string
	snapshotTableName string
}

type dynamoEvent struct {
	AggregateID   string `dynamodbav:"aggregate_id"`
	Version       int64  `dynamodbav:"version"`
	ID            string `dynamodbav:"id"`
	AggregateType string `dynamodbav:"aggregate_type"`
	EventType     string `dynamodbav:"event_type"`
	Data          string `dynamodbav:"data"`
	OccurredAt    string `dynamodbav:"occurred_at"`
	GSI1PK        string `dynamodbav:"gsi1pk"`
}

type dynamoSnapshot struct {
	AggregateID   string `dynamodbav:"aggregate_id"`
	Version       int64  `dynamodbav:"version"`
	AggregateType string `dynamodbav:"aggregate_type"`
	State         string `dynamodbav:"state"`
	CreatedAt     string `dynamodbav:"created_at"`
}

func NewDynamoEventStore(client *dynamodb.Client, tableName, snapshotTableName string) *DynamoEventStore {
	return &DynamoEventStore{
		client:            client,
		tableName:         tableName,
		snapshotTableName: snapshotTableName,
	}
}

func (es *DynamoEventStore) Append(ctx context.Context, event Event) error {
	item, err := attributevalue.MarshalMap(dynamoEvent{
		AggregateID:   event.AggregateID,
		Version:       event.Version,
		ID:            event.ID,
		AggregateType: event.AggregateType,
		EventType:     event.EventType,
		Data:          string(event.Data),
		OccurredAt:    event.OccurredAt.Format(time.RFC3339Nano),
		GSI1PK:        event.AggregateType,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = es.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(es.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(aggregate_id) AND attribute_not_exists(version)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return &ConflictError{AggregateID: event.AggregateID, Version: event.Version}
		}
		return fmt.Errorf("put event: %w", err)
	}
	return nil
}

func (es *DynamoEventStore) AppendAll(ctx context.Context, events []Event) error {
	for _, event := range events {
		if err := es.Append(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (es *DynamoEventStore) LoadEvents(ctx context.Context, aggregateID string) ([]Event, error) {
	return es.queryByAggregate(ctx, aggregateID, 0)
}

func (es *DynamoEventStore) LoadEventsAfterVersion(ctx context.Context, aggregateID string, version int64) ([]Event, error) {
	return es.queryByAggregate(ctx, aggregateID, version)
}

func (es *DynamoEventStore) queryByAggregate(ctx context.Context, aggregateID string, afterVersion int64) ([]Event, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		KeyConditionExpression: aws.String("aggregate_id = :id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: aggregateID},
		},
		ScanIndexForward: aws.Bool(true),
	}
	if afterVersion > 0 {
		input.KeyConditionExpression = aws.String("aggregate_id = :id AND version > :v")
		input.ExpressionAttributeValues[":v"] = &types.AttributeValueMemberN{
			Value: strconv.FormatInt(afterVersion, 10),
		}
	}

	var events []Event
	paginator := dynamodb.NewQueryPaginator(es.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query events: %w", err)
		}
		for _, item := range page.Items {
			event, err := unmarshalDynamoEvent(item)
			if err != nil {
				return nil, err
			}
			events = append(events, event)
		}
	}
	return events, nil
}

func (es *DynamoEventStore) LoadAllEvents(ctx context.Context, aggregateType string) ([]Event, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		IndexName:              aws.String("gsi1"),
		KeyConditionExpression: aws.String("gsi1pk = :t"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberS{Value: aggregateType},
		},
	}

	var events []Event
	paginator := dynamodb.NewQueryPaginator(es.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query events by type: %w", err)
		}
		for _, item := range page.Items {
			event, err := unmarshalDynamoEvent(item)
			if err != nil {
				return nil, err
			}
			events = append(events, event)
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].OccurredAt.Equal(events[j].OccurredAt) {
			return events[i].Version < events[j].Version
		}
		return events[i].OccurredAt.Before(events[j].OccurredAt)
	})
	return events, nil
}

// EnsureIndexes verifies both tables exist. Table creation is owned by
// infrastructure tooling; the key schema itself enforces uniqueness.
func (es *DynamoEventStore) EnsureIndexes(ctx context.Context) error {
	for _, table := range []string{es.tableName, es.snapshotTableName} {
		_, err := es.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(table),
		})
		if err != nil {
			return fmt.Errorf("describe table %s: %w", table, err)
		}
	}
	return nil
}

func (es *DynamoEventStore) SaveSnapshot(ctx context.Context, snapshot *Snapshot) error {
	item, err := attributevalue.MarshalMap(dynamoSnapshot{
		AggregateID:   snapshot.AggregateID,
		Version:       snapshot.Version,
		AggregateType: snapshot.AggregateType,
		State:         string(snapshot.State),
		CreatedAt:     snapshot.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = es.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(es.snapshotTableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	return nil
}

func (es *DynamoEventStore) LatestSnapshot(ctx context.Context, aggregateID string) (*Snapshot, error) {
	out, err := es.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(es.snapshotTableName),
		KeyConditionExpression: aws.String("aggregate_id = :id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: aggregateID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}

	var ds dynamoSnapshot
	if err := attributevalue.UnmarshalMap(out.Items[0], &ds); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, ds.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot timestamp: %w", err)
	}
	return &Snapshot{
		AggregateID:   ds.AggregateID,
		AggregateType: ds.AggregateType,
		Version:       ds.Version,
		State:         json.RawMessage(ds.State),
		CreatedAt:     createdAt,
	}, nil
}

func unmarshalDynamoEvent(item map[string]types.AttributeValue) (Event, error) {
	var de dynamoEvent
	if err := attributevalue.UnmarshalMap(item, &de); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	occurredAt, err := time.Parse(time.RFC3339Nano, de.OccurredAt)
	if err != nil {
		return Event{}, fmt.Errorf("parse event timestamp: %w", err)
	}
	return Event{
		ID:            de.ID,
		AggregateID:   de.AggregateID,
		AggregateType: de.AggregateType,
		EventType:     de.EventType,
		Data:          json.RawMessage(de.Data),
		Version:       de.Version,
		OccurredAt:    occurredAt,
	}, nil
}
