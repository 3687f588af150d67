package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"toolcart/internal/data/entity"
	"toolcart/internal/data/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// API is the subset of *dynamodb.Client used by the secret store.
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// secretItem is the table layout. PK: subject_id, SK: purpose.
// ttl lets DynamoDB sweep expired records on its own schedule.
type secretItem struct {
	SubjectID   string    `dynamodbav:"subject_id"`
	Purpose     string    `dynamodbav:"purpose"`
	HashedValue string    `dynamodbav:"hashed_value"`
	CreatedAt   time.Time `dynamodbav:"created_at"`
	ExpiresAt   time.Time `dynamodbav:"expires_at"`
	TTL         int64     `dynamodbav:"ttl"`
}

type secretStore struct {
	client    API
	tableName string
	log       *zap.Logger
}

func NewSecretStore(client API, tableName string, log *zap.Logger) repository.SecretRepository {
	return &secretStore{
		client:    client,
		tableName: tableName,
		log:       log.With(zap.String("repository", "secret_dynamo")),
	}
}

func (s *secretStore) Put(ctx context.Context, secret *entity.Secret) error {
	item, err := attributevalue.MarshalMap(secretItem{
		SubjectID:   secret.SubjectID,
		Purpose:     string(secret.Purpose),
		HashedValue: secret.HashedValue,
		CreatedAt:   secret.CreatedAt,
		ExpiresAt:   secret.ExpiresAt,
		TTL:         secret.ExpiresAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal secret: %w", err)
	}

	// PutItem replaces the whole item, so a re-issue overwrites the old hash.
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		s.log.Error("Failed to store secret",
			zap.Error(err),
			zap.String("subject_id", secret.SubjectID),
			zap.String("purpose", string(secret.Purpose)),
		)
		return fmt.Errorf("store %s secret for %s: %w", secret.Purpose, secret.SubjectID, err)
	}

	return nil
}

func (s *secretStore) Get(ctx context.Context, subjectID string, purpose entity.SecretPurpose) (*entity.Secret, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            compositeKey("subject_id", subjectID, "purpose", string(purpose)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		s.log.Error("Failed to find secret",
			zap.Error(err),
			zap.String("subject_id", subjectID),
			zap.String("purpose", string(purpose)),
		)
		return nil, fmt.Errorf("find %s secret for %s: %w", purpose, subjectID, err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var item secretItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal secret: %w", err)
	}

	return &entity.Secret{
		SubjectID:   item.SubjectID,
		Purpose:     entity.SecretPurpose(item.Purpose),
		HashedValue: item.HashedValue,
		CreatedAt:   item.CreatedAt,
		ExpiresAt:   item.ExpiresAt,
	}, nil
}

func (s *secretStore) DeleteIfPresent(ctx context.Context, subjectID string, purpose entity.SecretPurpose) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       compositeKey("subject_id", subjectID, "purpose", string(purpose)),
	})
	if err != nil {
		s.log.Error("Failed to delete secret",
			zap.Error(err),
			zap.String("subject_id", subjectID),
			zap.String("purpose", string(purpose)),
		)
		return fmt.Errorf("delete %s secret for %s: %w", purpose, subjectID, err)
	}

	return nil
}

func (s *secretStore) DeleteIfMatch(ctx context.Context, subjectID string, purpose entity.SecretPurpose, hashedValue string) (bool, error) {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 compositeKey("subject_id", subjectID, "purpose", string(purpose)),
		ConditionExpression: aws.String("hashed_value = :hash"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":hash": &types.AttributeValueMemberS{Value: hashedValue},
		},
	})

	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return false, nil
	}
	if err != nil {
		s.log.Error("Failed to consume secret",
			zap.Error(err),
			zap.String("subject_id", subjectID),
			zap.String("purpose", string(purpose)),
		)
		return false, fmt.Errorf("consume %s secret for %s: %w", purpose, subjectID, err)
	}

	return true, nil
}
