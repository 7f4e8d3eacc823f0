package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/smallbiznis/eventledger/internal/config"
	"github.com/smallbiznis/eventledger/internal/feerate/domain"
)

// Table requirements: PK "version" (number). Rate tables are small and
// versions few, so listing scans the table.
type versionItem struct {
	Version   int64  `dynamodbav:"version"`
	Rates     string `dynamodbav:"rates"`
	Checksum  string `dynamodbav:"checksum"`
	Source    string `dynamodbav:"source"`
	Note      string `dynamodbav:"note,omitempty"`
	CreatedBy string `dynamodbav:"created_by,omitempty"`
	CreatedAt string `dynamodbav:"created_at"`
}

// API is the subset of the DynamoDB client the repository needs.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

type Repository struct {
	ddb       API
	tableName string
}

var _ domain.Repository = (*Repository)(nil)

func NewRepository(ddb API, tableName string) *Repository {
	return &Repository{ddb: ddb, tableName: tableName}
}

// NewClient builds a DynamoDB client from config. Local endpoints get
// static credentials since DynamoDB Local does not validate them.
func NewClient(ctx context.Context, cfg config.RatesConfig) (*dynamodb.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.DynamoRegion),
	}
	if cfg.DynamoEndpoint != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DynamoEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoEndpoint)
		}
	}), nil
}

func (r *Repository) Latest(ctx context.Context) (*domain.Snapshot, error) {
	items, err := r.scanAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return fromItem(items[0])
}

func (r *Repository) Get(ctx context.Context, version int64) (*domain.Snapshot, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"version": &types.AttributeValueMemberN{Value: strconv.FormatInt(version, 10)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var it versionItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, err
	}
	return fromItem(it)
}

func (r *Repository) List(ctx context.Context, limit int) ([]domain.Snapshot, error) {
	items, err := r.scanAll(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]domain.Snapshot, 0, len(items))
	for _, it := range items {
		snap, err := fromItem(it)
		if err != nil {
			return nil, err
		}
		out = append(out, *snap)
	}
	return out, nil
}

func (r *Repository) Insert(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return nil
	}
	raw, err := domain.EncodeJSON(snap.Table)
	if err != nil {
		return err
	}
	av, err := attributevalue.MarshalMap(versionItem{
		Version:   snap.Version,
		Rates:     string(raw),
		Checksum:  snap.Checksum,
		Source:    snap.Source,
		Note:      snap.Note,
		CreatedBy: snap.CreatedBy,
		CreatedAt: snap.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}

	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(#v)"),
		ExpressionAttributeNames: map[string]string{
			"#v": "version",
		},
	})
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return domain.ErrVersionConflict
	}
	return err
}

// scanAll returns every version, newest first.
func (r *Repository) scanAll(ctx context.Context) ([]versionItem, error) {
	var (
		items []versionItem
		start map[string]types.AttributeValue
	)
	for {
		out, err := r.ddb.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: start,
			ConsistentRead:    aws.Bool(true),
		})
		if err != nil {
			return nil, err
		}
		for _, raw := range out.Items {
			var it versionItem
			if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
				return nil, err
			}
			items = append(items, it)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		start = out.LastEvaluatedKey
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Version > items[j].Version })
	return items, nil
}

func fromItem(it versionItem) (*domain.Snapshot, error) {
	table, err := domain.DecodeJSON([]byte(it.Rates))
	if err != nil {
		return nil, fmt.Errorf("decode rate version %d: %w", it.Version, err)
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, it.CreatedAt)
	return &domain.Snapshot{
		Version:   it.Version,
		Table:     table,
		Checksum:  it.Checksum,
		Source:    it.Source,
		Note:      it.Note,
		CreatedBy: it.CreatedBy,
		CreatedAt: createdAt,
	}, nil
}
