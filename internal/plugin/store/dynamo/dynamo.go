// Package dynamo implements the media and user stores on DynamoDB. Media
// records live in one table keyed by uniqueId, user subscriptions in another
// keyed by email. Tag updates are field-scoped UpdateItem calls so concurrent
// writers to other attributes are not clobbered.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/dynamodbstreams"

	"github.com/wildtrack/mediatag-service/internal/config"
	"github.com/wildtrack/mediatag-service/internal/model"
	registrystore "github.com/wildtrack/mediatag-service/internal/registry/store"
)

func init() {
	registrystore.Register(registrystore.Plugin{
		Name:   "dynamo",
		Loader: load,
	})
}

func load(ctx context.Context) (registrystore.Store, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil || cfg.MediaTableName == "" || cfg.UserTableName == "" {
		return nil, fmt.Errorf("dynamo: media and user table names are required")
	}
	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("dynamo: load AWS config: %w", err)
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.AWSEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpoint)
		}
	})
	streams := dynamodbstreams.NewFromConfig(awsCfg, func(o *dynamodbstreams.Options) {
		if cfg.AWSEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpoint)
		}
	})
	return &Store{
		client:       client,
		streams:      streams,
		mediaTable:   cfg.MediaTableName,
		userTable:    cfg.UserTableName,
		pollInterval: cfg.StreamPollInterval,
	}, nil
}

func loadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

type Store struct {
	client       *dynamodb.Client
	streams      *dynamodbstreams.Client
	mediaTable   string
	userTable    string
	pollInterval time.Duration
}

var _ registrystore.Store = (*Store)(nil)
var _ registrystore.ChangeFeed = (*Store)(nil)

func (s *Store) GetMedia(ctx context.Context, id string) (*model.MediaRecord, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.mediaTable),
		Key: map[string]types.AttributeValue{
			"uniqueId": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, &registrystore.BackendError{Op: "get media", Err: err}
	}
	if len(out.Item) == 0 {
		return nil, &registrystore.NotFoundError{Resource: "media", ID: id}
	}
	var rec model.MediaRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, &registrystore.BackendError{Op: "decode media", Err: err}
	}
	return &rec, nil
}

// ScanMedia walks the whole media table, following pagination keys until the
// table is exhausted. Callers filter in memory; the tag-matching rules are not
// expressible as a DynamoDB filter expression.
func (s *Store) ScanMedia(ctx context.Context) ([]model.MediaRecord, error) {
	var records []model.MediaRecord
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.mediaTable),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, &registrystore.BackendError{Op: "scan media", Err: err}
		}
		page := make([]model.MediaRecord, 0, len(out.Items))
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, &registrystore.BackendError{Op: "decode media page", Err: err}
		}
		records = append(records, page...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return records, nil
}

func (s *Store) PutMedia(ctx context.Context, rec *model.MediaRecord) error {
	if rec == nil || rec.ID == "" {
		return &registrystore.ValidationError{Field: "uniqueId", Message: "must not be empty"}
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return &registrystore.BackendError{Op: "encode media", Err: err}
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.mediaTable),
		Item:      item,
	})
	if err != nil {
		return &registrystore.BackendError{Op: "put media", Err: err}
	}
	return nil
}

// UpdateMediaTags replaces the tags attribute of a single record. Last write
// wins; there is no conditional check on the previous tag set.
func (s *Store) UpdateMediaTags(ctx context.Context, id string, tags model.TagCounts) error {
	av, err := attributevalue.Marshal(tags)
	if err != nil {
		return &registrystore.BackendError{Op: "encode tags", Err: err}
	}
	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.mediaTable),
		Key: map[string]types.AttributeValue{
			"uniqueId": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:          aws.String("SET tags = :tags"),
		ConditionExpression:       aws.String("attribute_exists(uniqueId)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":tags": av},
	})
	if err != nil {
		var cond *types.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return &registrystore.NotFoundError{Resource: "media", ID: id}
		}
		return &registrystore.BackendError{Op: "update media tags", Err: err}
	}
	return nil
}

func (s *Store) DeleteMedia(ctx context.Context, id string) error {
	out, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.mediaTable),
		Key: map[string]types.AttributeValue{
			"uniqueId": &types.AttributeValueMemberS{Value: id},
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return &registrystore.BackendError{Op: "delete media", Err: err}
	}
	if len(out.Attributes) == 0 {
		return &registrystore.NotFoundError{Resource: "media", ID: id}
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, email string) (*model.UserSubscription, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.userTable),
		Key: map[string]types.AttributeValue{
			"email": &types.AttributeValueMemberS{Value: email},
		},
	})
	if err != nil {
		return nil, &registrystore.BackendError{Op: "get user", Err: err}
	}
	if len(out.Item) == 0 {
		return nil, &registrystore.NotFoundError{Resource: "user", ID: email}
	}
	var sub model.UserSubscription
	if err := attributevalue.UnmarshalMap(out.Item, &sub); err != nil {
		return nil, &registrystore.BackendError{Op: "decode user", Err: err}
	}
	return &sub, nil
}

func (s *Store) PutUser(ctx context.Context, sub *model.UserSubscription) error {
	if sub == nil || sub.Email == "" {
		return &registrystore.ValidationError{Field: "email", Message: "must not be empty"}
	}
	item, err := attributevalue.MarshalMap(sub)
	if err != nil {
		return &registrystore.BackendError{Op: "encode user", Err: err}
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.userTable),
		Item:      item,
	})
	if err != nil {
		return &registrystore.BackendError{Op: "put user", Err: err}
	}
	return nil
}

func (s *Store) UpdateInterestTags(ctx context.Context, email string, tags []string) error {
	av, err := attributevalue.Marshal(tags)
	if err != nil {
		return &registrystore.BackendError{Op: "encode interest tags", Err: err}
	}
	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.userTable),
		Key: map[string]types.AttributeValue{
			"email": &types.AttributeValueMemberS{Value: email},
		},
		UpdateExpression:          aws.String("SET tags = :tags"),
		ConditionExpression:       aws.String("attribute_exists(email)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":tags": av},
	})
	if err != nil {
		var cond *types.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return &registrystore.NotFoundError{Resource: "user", ID: email}
		}
		return &registrystore.BackendError{Op: "update interest tags", Err: err}
	}
	return nil
}

func (s *Store) SetSubscriptionHandle(ctx context.Context, email, handle string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.userTable),
		Key: map[string]types.AttributeValue{
			"email": &types.AttributeValueMemberS{Value: email},
		},
		UpdateExpression:    aws.String("SET subscriptionArn = :arn"),
		ConditionExpression: aws.String("attribute_exists(email)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":arn": &types.AttributeValueMemberS{Value: handle},
		},
	})
	if err != nil {
		var cond *types.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return &registrystore.NotFoundError{Resource: "user", ID: email}
		}
		return &registrystore.BackendError{Op: "set subscription handle", Err: err}
	}
	return nil
}

func (s *Store) ClearSubscriptionHandle(ctx context.Context, email string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.userTable),
		Key: map[string]types.AttributeValue{
			"email": &types.AttributeValueMemberS{Value: email},
		},
		UpdateExpression:    aws.String("REMOVE subscriptionArn"),
		ConditionExpression: aws.String("attribute_exists(email)"),
	})
	if err != nil {
		var cond *types.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return &registrystore.NotFoundError{Resource: "user", ID: email}
		}
		return &registrystore.BackendError{Op: "clear subscription handle", Err: err}
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, email string) error {
	out, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.userTable),
		Key: map[string]types.AttributeValue{
			"email": &types.AttributeValueMemberS{Value: email},
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return &registrystore.BackendError{Op: "delete user", Err: err}
	}
	if len(out.Attributes) == 0 {
		return &registrystore.NotFoundError{Resource: "user", ID: email}
	}
	return nil
}
