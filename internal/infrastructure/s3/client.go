package s3infra

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/egovauthenticator/api/internal/pkg/id"
	"github.com/gabriel-vasile/mimetype"
)

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store archives uploaded documents.
type Store struct {
	client objectPutter
	bucket string
}

// NewClient creates an S3 client. When endpointURL is set (LocalStack),
// it overrides the endpoint and enables path-style addressing.
func NewClient(awsCfg aws.Config, endpointURL string) *s3.Client {
	var clientOpts []func(*s3.Options)
	if endpointURL != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpointURL)
			o.UsePathStyle = true
		})
	}
	return s3.NewFromConfig(awsCfg, clientOpts...)
}

func NewStore(client objectPutter, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// DocumentKey is the object key for a user's upload. Identical content maps to the
// same key, so re-uploads overwrite instead of piling up.
func DocumentKey(userID string, data []byte) string {
	return fmt.Sprintf("documents/%s/%s", userID, id.Content(data))
}

// Archive stores data under DocumentKey and returns its s3:// URL.
func (s *Store) Archive(ctx context.Context, userID string, data []byte) (string, error) {
	key := DocumentKey(userID, data)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimetype.Detect(data).String()),
		Metadata:    map[string]string{"user-id": userID},
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
