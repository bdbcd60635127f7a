package dynamo

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/adapters/storetest"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
)

// recordingClient captures writes and fails them with a fixed error.
type recordingClient struct {
	Client
	failWith     error
	puts         []*dynamodb.PutItemInput
	transactions []*dynamodb.TransactWriteItemsInput
}

func (c *recordingClient) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	c.puts = append(c.puts, in)
	if c.failWith != nil {
		return nil, c.failWith
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (c *recordingClient) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	c.transactions = append(c.transactions, in)
	if c.failWith != nil {
		return nil, c.failWith
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func TestCreate_ConditionalFailureIsConflict(t *testing.T) {
	client := &recordingClient{failWith: &types.ConditionalCheckFailedException{Message: aws.String("exists")}}
	store := NewStore(client, "test-")

	_, err := store.Donations().Create(context.Background(), storetest.NewDonation(t, "donor-1", "rice"))
	require.ErrorIs(t, err, ports.ErrConflict)
	require.Len(t, client.puts, 1)
	assert.Equal(t, "test-donations", aws.ToString(client.puts[0].TableName))
	assert.Equal(t, "attribute_not_exists(#id)", aws.ToString(client.puts[0].ConditionExpression))
}

func TestCreate_LiveMatchTakesDonationLock(t *testing.T) {
	client := &recordingClient{}
	store := NewStore(client, "test-")

	created, err := store.Matches().Create(context.Background(), domain.NewMatch("", "donation-1", "", "ngo-1", 12, nil))
	require.NoError(t, err)
	require.Len(t, client.transactions, 1)
	writes := client.transactions[0].TransactItems
	require.Len(t, writes, 2)
	assert.Equal(t, "test-matches", aws.ToString(writes[0].Put.TableName))
	assert.Equal(t, "test-match_locks", aws.ToString(writes[1].Put.TableName))
	lock := writes[1].Put.Item
	assert.Equal(t, &types.AttributeValueMemberS{Value: "donation-1"}, lock["id"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: created.Entity.ID}, lock["match_id"])
}

func TestCreate_CancelledTransactionIsConflict(t *testing.T) {
	client := &recordingClient{failWith: &types.TransactionCanceledException{
		Message:             aws.String("cancelled"),
		CancellationReasons: []types.CancellationReason{{Code: aws.String("None")}, {Code: aws.String("ConditionalCheckFailed")}},
	}}
	store := NewStore(client, "")

	_, err := store.Matches().Create(context.Background(), domain.NewMatch("", "donation-1", "", "ngo-2", 12, nil))
	require.ErrorIs(t, err, ports.ErrConflict)
}

func TestCreate_TransportFailureIsUnavailable(t *testing.T) {
	client := &recordingClient{failWith: errors.New("connection reset")}
	store := NewStore(client, "")

	_, err := store.Requests().Create(context.Background(), storetest.NewRequest(t, "ngo-1", "blankets"))
	require.ErrorIs(t, err, ports.ErrStoreUnavailable)
}

func TestStore_NilClientIsUnavailable(t *testing.T) {
	store := NewStore(nil, "")
	_, err := store.Matches().Get(context.Background(), "m-1")
	require.ErrorIs(t, err, ports.ErrStoreUnavailable)
	_, err = store.Donations().Query(context.Background(), ports.DonationQuery{})
	require.ErrorIs(t, err, ports.ErrStoreUnavailable)
}
