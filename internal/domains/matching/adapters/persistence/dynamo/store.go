package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/domain"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
	"github.com/Apurer/go-gin-donation-matcher/internal/shared/projection"
)

var _ ports.Store = (*Store)(nil)

// Store persists the matching tables in DynamoDB. Queries scan and filter client-side;
// it suits small deployments and local development against DynamoDB Local.
type Store struct {
	donations *table[*domain.Donation, ports.DonationQuery, donationItem]
	requests  *table[*domain.Request, ports.RequestQuery, requestItem]
	matches   *table[*domain.Match, ports.MatchQuery, matchItem]
}

// TableNames lists the physical tables for a prefix.
type TableNames struct {
	Donations  string
	Requests   string
	Matches    string
	MatchLocks string
}

// NamesFor derives table names from a prefix such as "dev-".
func NamesFor(prefix string) TableNames {
	return TableNames{
		Donations:  prefix + "donations",
		Requests:   prefix + "requests",
		Matches:    prefix + "matches",
		MatchLocks: prefix + "match_locks",
	}
}

// NewStore builds a DynamoDB-backed store over the tables named by prefix.
func NewStore(client Client, prefix string) *Store {
	names := NamesFor(prefix)
	now := func() time.Time { return time.Now().UTC() }
	newID := func() string { return uuid.Must(uuid.NewV7()).String() }
	return &Store{
		donations: &table[*domain.Donation, ports.DonationQuery, donationItem]{
			client: client, name: names.Donations, codec: donationCodec(), now: now, newID: newID,
		},
		requests: &table[*domain.Request, ports.RequestQuery, requestItem]{
			client: client, name: names.Requests, codec: requestCodec(), now: now, newID: newID,
		},
		matches: &table[*domain.Match, ports.MatchQuery, matchItem]{
			client: client, name: names.Matches, lockTable: names.MatchLocks, codec: matchCodec(), now: now, newID: newID,
		},
	}
}

func (s *Store) Donations() ports.Table[*domain.Donation, ports.DonationQuery] { return s.donations }
func (s *Store) Requests() ports.Table[*domain.Request, ports.RequestQuery]    { return s.requests }
func (s *Store) Matches() ports.Table[*domain.Match, ports.MatchQuery]         { return s.matches }

// TableAdmin is the subset of the DynamoDB API needed to provision tables.
type TableAdmin interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// EnsureTables creates any missing table for prefix and waits until all are active.
func EnsureTables(ctx context.Context, admin TableAdmin, prefix string) error {
	names := NamesFor(prefix)
	waiter := dynamodb.NewTableExistsWaiter(admin)
	for _, name := range []string{names.Donations, names.Requests, names.Matches, names.MatchLocks} {
		_, err := admin.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName:            aws.String(name),
			BillingMode:          types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS}},
			KeySchema:            []types.KeySchemaElement{{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash}},
		})
		var inUse *types.ResourceInUseException
		if err != nil && !errors.As(err, &inUse) {
			return fmt.Errorf("creating table %s: %w", name, err)
		}
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)}, 30*time.Second); err != nil {
			return fmt.Errorf("waiting for table %s: %w", name, err)
		}
	}
	return nil
}

func donationCodec() itemCodec[*domain.Donation, ports.DonationQuery, donationItem] {
	return itemCodec[*domain.Donation, ports.DonationQuery, donationItem]{
		id:       func(d *domain.Donation) string { return d.ID },
		assignID: func(d *domain.Donation, id string) { d.ID = id },
		toItem:   toDonationItem,
		toDomain: (*donationItem).toProjection,
		accepts: func(q ports.DonationQuery, p *projection.Projection[*domain.Donation]) bool {
			return q.Accepts(p.Entity)
		},
		limit: func(q ports.DonationQuery) int { return q.Limit },
	}
}

func requestCodec() itemCodec[*domain.Request, ports.RequestQuery, requestItem] {
	return itemCodec[*domain.Request, ports.RequestQuery, requestItem]{
		id:       func(r *domain.Request) string { return r.ID },
		assignID: func(r *domain.Request, id string) { r.ID = id },
		toItem:   toRequestItem,
		toDomain: (*requestItem).toProjection,
		accepts: func(q ports.RequestQuery, p *projection.Projection[*domain.Request]) bool {
			return q.Accepts(p.Entity)
		},
		limit: func(q ports.RequestQuery) int { return q.Limit },
	}
}

func matchCodec() itemCodec[*domain.Match, ports.MatchQuery, matchItem] {
	return itemCodec[*domain.Match, ports.MatchQuery, matchItem]{
		id:       func(m *domain.Match) string { return m.ID },
		assignID: func(m *domain.Match, id string) { m.ID = id },
		toItem:   toMatchItem,
		toDomain: (*matchItem).toProjection,
		accepts: func(q ports.MatchQuery, p *projection.Projection[*domain.Match]) bool {
			return q.Accepts(p.Entity) && q.AcceptsCreatedAt(p.Metadata.CreatedAt)
		},
		limit: func(q ports.MatchQuery) int { return q.Limit },
		lock: func(m *domain.Match) string {
			if m.Status.Live() {
				return m.DonationID
			}
			return ""
		},
	}
}
