package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/egovauthenticator/api/internal/domain"
)

// APIKeyRepo holds outbound provider credentials. PK: provider.
type APIKeyRepo struct {
	client    API
	tableName string
}

func NewAPIKeyRepo(client API, tableName string) *APIKeyRepo {
	return &APIKeyRepo{client: client, tableName: tableName}
}

// GetAPIKey returns the stored key for provider, or "" when none is stored.
func (r *APIKeyRepo) GetAPIKey(ctx context.Context, provider string) (string, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(attrProvider, provider),
	})
	if err != nil {
		return "", fmt.Errorf("get api key: %w", err)
	}
	if out.Item == nil {
		return "", nil
	}
	var k domain.APIKey
	if err := attributevalue.UnmarshalMap(out.Item, &k); err != nil {
		return "", err
	}
	return k.APIKey, nil
}
