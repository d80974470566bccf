package domain

import "time"

// APIKey is a stored credential for an outbound provider.
type APIKey struct {
	Provider  string    `dynamodbav:"provider"`
	APIKey    string    `dynamodbav:"api_key"`
	UpdatedAt time.Time `dynamodbav:"updated_at"`
}
