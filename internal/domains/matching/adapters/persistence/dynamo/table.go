package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
	"github.com/Apurer/go-gin-donation-matcher/internal/shared/projection"
)

// Client is the subset of the DynamoDB API the store uses.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// itemCodec converts between one entity type and its DynamoDB item.
type itemCodec[T any, Q any, R any] struct {
	id       func(T) string
	assignID func(T, string)
	toItem   func(T, projection.Metadata) *R
	toDomain func(*R) *projection.Projection[T]
	accepts  func(Q, *projection.Projection[T]) bool
	limit    func(Q) int
	// lock names the donation a record reserves while live, or "" when it reserves none.
	lock func(T) string
}

type table[T any, Q any, R any] struct {
	client    Client
	name      string
	lockTable string
	codec     itemCodec[T, Q, R]
	now       func() time.Time
	newID     func() string
}

var versionNames = map[string]string{"#id": "id", "#v": "version"}

func (t *table[T, Q, R]) Get(ctx context.Context, id string) (*projection.Projection[T], error) {
	if err := t.ensureClient(); err != nil {
		return nil, err
	}
	out, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(t.name),
		Key:            keyOf(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, translate(err)
	}
	if len(out.Item) == 0 {
		return nil, ports.ErrNotFound
	}
	var item R
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("%w: decoding %s item %s: %v", ports.ErrStoreUnavailable, t.name, id, err)
	}
	return t.codec.toDomain(&item), nil
}

func (t *table[T, Q, R]) Create(ctx context.Context, record T) (*projection.Projection[T], error) {
	if err := t.ensureClient(); err != nil {
		return nil, err
	}
	if t.codec.id(record) == "" {
		t.codec.assignID(record, t.newID())
	}
	id := t.codec.id(record)
	now := t.now()
	item := t.codec.toItem(record, projection.Metadata{CreatedAt: now, UpdatedAt: now, Version: 1})
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding %s item: %v", ports.ErrStoreUnavailable, t.name, err)
	}
	put := &types.Put{
		TableName:                aws.String(t.name),
		Item:                     av,
		ConditionExpression:      aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": "id"},
	}

	var lockKey string
	if t.codec.lock != nil {
		lockKey = t.codec.lock(record)
	}
	if lockKey == "" {
		_, err = t.client.PutItem(ctx, putItemInput(put))
	} else {
		_, err = t.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: []types.TransactWriteItem{{Put: put}, {Put: t.acquireLock(lockKey, id)}},
		})
	}
	if err != nil {
		return nil, translate(err)
	}
	return t.codec.toDomain(item), nil
}

func (t *table[T, Q, R]) CompareAndUpdate(ctx context.Context, id string, expectedVersion int64, mutate ports.Mutator[T]) (*projection.Projection[T], error) {
	stored, err := t.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if stored.Metadata.Version != expectedVersion {
		return nil, fmt.Errorf("%w: %s at version %d, expected %d", ports.ErrConflict, id, stored.Metadata.Version, expectedVersion)
	}
	working := stored.Entity
	var lockBefore string
	if t.codec.lock != nil {
		lockBefore = t.codec.lock(working)
	}
	if mutate != nil {
		if err := mutate(working); err != nil {
			return nil, err
		}
	}
	t.codec.assignID(working, id)
	var lockAfter string
	if t.codec.lock != nil {
		lockAfter = t.codec.lock(working)
	}

	item := t.codec.toItem(working, projection.Metadata{
		CreatedAt: stored.Metadata.CreatedAt,
		UpdatedAt: t.now(),
		Version:   expectedVersion + 1,
	})
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding %s item: %v", ports.ErrStoreUnavailable, t.name, err)
	}
	put := &types.Put{
		TableName:                 aws.String(t.name),
		Item:                      av,
		ConditionExpression:       aws.String("attribute_exists(#id) AND #v = :expected"),
		ExpressionAttributeNames:  versionNames,
		ExpressionAttributeValues: map[string]types.AttributeValue{":expected": &types.AttributeValueMemberN{Value: fmt.Sprint(expectedVersion)}},
	}

	if lockBefore == lockAfter {
		_, err = t.client.PutItem(ctx, putItemInput(put))
	} else {
		writes := []types.TransactWriteItem{{Put: put}}
		if lockBefore != "" {
			writes = append(writes, types.TransactWriteItem{Delete: t.releaseLock(lockBefore, id)})
		}
		if lockAfter != "" {
			writes = append(writes, types.TransactWriteItem{Put: t.acquireLock(lockAfter, id)})
		}
		_, err = t.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: writes})
	}
	if err != nil {
		return nil, translate(err)
	}
	return t.codec.toDomain(item), nil
}

func (t *table[T, Q, R]) Query(ctx context.Context, q Q) ([]*projection.Projection[T], error) {
	if err := t.ensureClient(); err != nil {
		return nil, err
	}
	var matched []*projection.Projection[T]
	paginator := dynamodb.NewScanPaginator(t.client, &dynamodb.ScanInput{
		TableName:      aws.String(t.name),
		ConsistentRead: aws.Bool(true),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, translate(err)
		}
		var items []R
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("%w: decoding %s page: %v", ports.ErrStoreUnavailable, t.name, err)
		}
		for i := range items {
			p := t.codec.toDomain(&items[i])
			if t.codec.accepts(q, p) {
				matched = append(matched, p)
			}
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i].Metadata.CreatedAt, matched[j].Metadata.CreatedAt
		if !a.Equal(b) {
			return a.Before(b)
		}
		return t.codec.id(matched[i].Entity) < t.codec.id(matched[j].Entity)
	})
	if limit := t.codec.limit(q); limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	if matched == nil {
		matched = []*projection.Projection[T]{}
	}
	return matched, nil
}

func (t *table[T, Q, R]) acquireLock(donationID, ownerID string) *types.Put {
	return &types.Put{
		TableName: aws.String(t.lockTable),
		Item: map[string]types.AttributeValue{
			"id":       &types.AttributeValueMemberS{Value: donationID},
			"match_id": &types.AttributeValueMemberS{Value: ownerID},
		},
		ConditionExpression:      aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": "id"},
	}
}

func (t *table[T, Q, R]) releaseLock(donationID, ownerID string) *types.Delete {
	return &types.Delete{
		TableName:                 aws.String(t.lockTable),
		Key:                       keyOf(donationID),
		ConditionExpression:       aws.String("match_id = :owner"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":owner": &types.AttributeValueMemberS{Value: ownerID}},
	}
}

func (t *table[T, Q, R]) ensureClient() error {
	if t == nil || t.client == nil {
		return fmt.Errorf("%w: dynamodb client not configured", ports.ErrStoreUnavailable)
	}
	return nil
}

func putItemInput(p *types.Put) *dynamodb.PutItemInput {
	return &dynamodb.PutItemInput{
		TableName:                 p.TableName,
		Item:                      p.Item,
		ConditionExpression:       p.ConditionExpression,
		ExpressionAttributeNames:  p.ExpressionAttributeNames,
		ExpressionAttributeValues: p.ExpressionAttributeValues,
	}
}

func keyOf(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}}
}

func translate(err error) error {
	var conditional *types.ConditionalCheckFailedException
	if errors.As(err, &conditional) {
		return fmt.Errorf("%w: %v", ports.ErrConflict, err)
	}
	var cancelled *types.TransactionCanceledException
	if errors.As(err, &cancelled) {
		for _, reason := range cancelled.CancellationReasons {
			switch aws.ToString(reason.Code) {
			case "ConditionalCheckFailed", "TransactionConflict":
				return fmt.Errorf("%w: %v", ports.ErrConflict, err)
			}
		}
	}
	return fmt.Errorf("%w: %v", ports.ErrStoreUnavailable, err)
}
