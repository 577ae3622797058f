package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"
	"github.com/tokengate/tokengate/internal/models"
)

// DynamoRefreshTokenRepository is the DynamoDB-backed refresh token store,
// selected with STORE_BACKEND=dynamodb. Same contract as the Redis store:
// one entry per user id, PutItem overwrites unconditionally.
type DynamoRefreshTokenRepository struct {
	client    *dynamodb.Client
	tableName string
	ttl       time.Duration
	logger    *logrus.Logger
}

func NewDynamoRefreshTokenRepository(
	client *dynamodb.Client,
	tableName string,
	ttl time.Duration,
	logger *logrus.Logger,
) *DynamoRefreshTokenRepository {
	return &DynamoRefreshTokenRepository{
		client:    client,
		tableName: tableName,
		ttl:       ttl,
		logger:    logger,
	}
}

func (r *DynamoRefreshTokenRepository) Put(ctx context.Context, userID, token string) error {
	now := time.Now()
	expiresAt := now.Add(r.ttl)

	item := map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: fmt.Sprintf("REFRESH_TOKEN#%s", userID)},
		"SK":        &types.AttributeValueMemberS{Value: "METADATA"},
		"UserID":    &types.AttributeValueMemberS{Value: userID},
		"Token":     &types.AttributeValueMemberS{Value: token},
		"CreatedAt": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		"ExpiresAt": &types.AttributeValueMemberS{Value: expiresAt.Format(time.RFC3339)},
		"TTL":       &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expiresAt.Unix())},
	}

	_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})

	if err != nil {
		r.logger.WithError(err).Error("Failed to store refresh token in DynamoDB")
		return fmt.Errorf("failed to store refresh token: %w", err)
	}

	return nil
}

func (r *DynamoRefreshTokenRepository) Get(ctx context.Context, userID string) (string, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("REFRESH_TOKEN#%s", userID)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
	})

	if err != nil {
		return "", fmt.Errorf("failed to get refresh token: %w", err)
	}

	if result.Item == nil {
		return "", ErrRefreshTokenNotFound
	}

	var record models.RefreshTokenRecord
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return "", fmt.Errorf("failed to unmarshal refresh token record: %w", err)
	}

	// DynamoDB TTL sweeps lazily; an entry past its window counts as absent.
	if time.Now().After(record.ExpiresAt) {
		return "", ErrRefreshTokenNotFound
	}

	return record.Token, nil
}
