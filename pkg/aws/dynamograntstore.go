package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/storacha/grantlink/pkg/grant"
	"github.com/storacha/grantlink/pkg/store/grantstore"
)

// Attribute names of the grant table.
const (
	hashAttr    = "Hash"
	s3KeyAttr   = "S3Key"
	expiresAttr = "Expires"
	oneTimeAttr = "OneTime"
)

// DynamoGrantStore implements the GrantStore interface on dynamodb
type DynamoGrantStore struct {
	tableName      string
	dynamoDbClient *dynamodb.Client
}

var _ grantstore.GrantStore = (*DynamoGrantStore)(nil)

// NewDynamoGrantStore returns a GrantStore connected to a AWS DynamoDB table
// keyed by Hash (partition) and S3Key (sort).
func NewDynamoGrantStore(cfg aws.Config, tableName string, opts ...func(*dynamodb.Options)) *DynamoGrantStore {
	return &DynamoGrantStore{
		tableName:      tableName,
		dynamoDbClient: dynamodb.NewFromConfig(cfg, opts...),
	}
}

// Lookup implements grantstore.GrantStore.
func (d *DynamoGrantStore) Lookup(ctx context.Context, hash string, key string, now int64) (grant.Decision, error) {
	keyEx := expression.Key(hashAttr).Equal(expression.Value(hash)).
		And(expression.Key(s3KeyAttr).Equal(expression.Value(key)))
	filterEx := expression.Name(expiresAttr).GreaterThan(expression.Value(now))
	projEx := expression.NamesList(expression.Name(oneTimeAttr))
	expr, err := expression.NewBuilder().
		WithKeyCondition(keyEx).
		WithFilter(filterEx).
		WithProjection(projEx).
		Build()
	if err != nil {
		return grant.Decision{}, fmt.Errorf("building query: %w", err)
	}

	var records []grant.Record
	queryPaginator := dynamodb.NewQueryPaginator(d.dynamoDbClient, &dynamodb.QueryInput{
		TableName:                 aws.String(d.tableName),
		ConsistentRead:            aws.Bool(true),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ProjectionExpression:      expr.Projection(),
	})
	// a filtered page may be empty while later pages still match
	for queryPaginator.HasMorePages() && len(records) == 0 {
		response, err := queryPaginator.NextPage(ctx)
		if err != nil {
			return grant.Decision{}, grantstore.NewUnavailableError("querying grants", err)
		}
		var page []grantItem
		err = attributevalue.UnmarshalListOfMaps(response.Items, &page)
		if err != nil {
			return grant.Decision{}, grantstore.NewUnavailableError("parsing query responses", err)
		}
		for _, item := range page {
			records = append(records, grant.Record{Hash: hash, S3Key: key, OneTime: item.OneTime.value})
		}
	}
	return grant.Decide(records, now), nil
}

// Consume implements grantstore.GrantStore. It sets Expires to now on the
// condition that the grant is still valid and is, or may be, one-time.
func (d *DynamoGrantStore) Consume(ctx context.Context, hash string, key string, now int64) error {
	oneTime := expression.Name(oneTimeAttr)
	condEx := expression.Name(expiresAttr).GreaterThan(expression.Value(now)).And(
		expression.Or(
			expression.AttributeNotExists(oneTime),
			oneTime.Equal(expression.Value(true)),
			expression.Not(expression.AttributeType(oneTime, expression.Boolean)),
		),
	)
	updateEx := expression.Set(expression.Name(expiresAttr), expression.Value(now))
	expr, err := expression.NewBuilder().WithCondition(condEx).WithUpdate(updateEx).Build()
	if err != nil {
		return fmt.Errorf("building update: %w", err)
	}

	_, err = d.dynamoDbClient.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(d.tableName),
		Key:                       grantKey{Hash: hash, S3Key: key}.GetKey(),
		ConditionExpression:       expr.Condition(),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return grantstore.ErrConsumed
		}
		return grantstore.NewUnavailableError("consuming grant", err)
	}
	return nil
}

type grantKey struct {
	Hash  string `dynamodbav:"Hash"`
	S3Key string `dynamodbav:"S3Key"`
}

// GetKey returns the composite primary key of the hash & object key in a
// format that can be sent to DynamoDB.
func (k grantKey) GetKey() map[string]types.AttributeValue {
	key, err := attributevalue.MarshalMap(k)
	if err != nil {
		panic(err)
	}
	return key
}

type grantItem struct {
	OneTime oneTimeFlag `dynamodbav:"OneTime"`
}

// oneTimeFlag decodes the OneTime attribute. Anything other than a boolean
// leaves the value unset, which grant.Record treats as one-time.
type oneTimeFlag struct {
	value *bool
}

func (f *oneTimeFlag) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	if b, ok := av.(*types.AttributeValueMemberBOOL); ok {
		v := b.Value
		f.value = &v
	}
	return nil
}
