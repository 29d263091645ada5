package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"

	"github.com/trendingnow/trends-ingestion-service/internal/config"
	"github.com/trendingnow/trends-ingestion-service/internal/models"
)

// statusKey is the fixed id of the single status item
const statusKey = "ingestion_status"

// DynamoDBStatusStore implements StatusStore using AWS DynamoDB
type DynamoDBStatusStore struct {
	client    dynamodbiface.DynamoDBAPI
	tableName string
}

// NewDynamoDBStatusStore creates a new DynamoDB status store instance
func NewDynamoDBStatusStore(ctx context.Context, cfg config.StatusConfig) (*DynamoDBStatusStore, error) {
	awsConfig := &aws.Config{
		Region: aws.String(cfg.Region),
	}

	// For local testing with DynamoDB Local
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	store := &DynamoDBStatusStore{
		client:    dynamodb.New(sess),
		tableName: cfg.TableName,
	}

	if err := store.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure table exists: %w", err)
	}

	return store, nil
}

// ensureTable creates the DynamoDB table if it doesn't exist
func (d *DynamoDBStatusStore) ensureTable(ctx context.Context) error {
	describe := &dynamodb.DescribeTableInput{
		TableName: aws.String(d.tableName),
	}

	if _, err := d.client.DescribeTableWithContext(ctx, describe); err == nil {
		return nil // Table already exists
	}

	input := &dynamodb.CreateTableInput{
		TableName: aws.String(d.tableName),
		KeySchema: []*dynamodb.KeySchemaElement{
			{
				AttributeName: aws.String("id"),
				KeyType:       aws.String(dynamodb.KeyTypeHash),
			},
		},
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{
				AttributeName: aws.String("id"),
				AttributeType: aws.String(dynamodb.ScalarAttributeTypeS),
			},
		},
		BillingMode: aws.String(dynamodb.BillingModePayPerRequest),
	}

	if _, err := d.client.CreateTableWithContext(ctx, input); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	return d.client.WaitUntilTableExistsWithContext(ctx, describe)
}

// UpdateIngestionStatus overwrites the status item
func (d *DynamoDBStatusStore) UpdateIngestionStatus(ctx context.Context, status models.IngestionStatus) error {
	item, err := dynamodbattribute.MarshalMap(status)
	if err != nil {
		return fmt.Errorf("failed to marshal ingestion status: %w", err)
	}

	item["id"] = &dynamodb.AttributeValue{S: aws.String(statusKey)}

	_, err = d.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to store ingestion status: %w", err)
	}

	return nil
}

// GetIngestionStatus retrieves the current ingestion status
func (d *DynamoDBStatusStore) GetIngestionStatus(ctx context.Context) (*models.IngestionStatus, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]*dynamodb.AttributeValue{
			"id": {
				S: aws.String(statusKey),
			},
		},
	}

	result, err := d.client.GetItemWithContext(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get ingestion status: %w", err)
	}

	if result.Item == nil {
		return &models.IngestionStatus{Status: models.StatusNeverRun}, nil
	}

	var status models.IngestionStatus
	if err := dynamodbattribute.UnmarshalMap(result.Item, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ingestion status: %w", err)
	}

	return &status, nil
}

// Close closes the DynamoDB connection
func (d *DynamoDBStatusStore) Close() error {
	// DynamoDB client doesn't need explicit closing
	return nil
}
