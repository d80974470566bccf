package sns

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/egovauthenticator/api/internal/domain"
)

type publishAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Publisher sends verification events to an SNS topic.
type Publisher struct {
	client   publishAPI
	topicARN string
}

func NewClient(awsCfg aws.Config, endpointURL string) *sns.Client {
	var clientOpts []func(*sns.Options)
	if endpointURL != "" {
		clientOpts = append(clientOpts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(endpointURL)
		})
	}
	return sns.NewFromConfig(awsCfg, clientOpts...)
}

func NewPublisher(client publishAPI, topicARN string) *Publisher {
	return &Publisher{client: client, topicARN: topicARN}
}

// Publish sends ev as the message body. Type and status are duplicated as message
// attributes so subscriptions can filter on them.
func (p *Publisher) Publish(ctx context.Context, ev domain.VerificationEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"type":   {DataType: aws.String("String"), StringValue: aws.String(string(ev.Type))},
			"status": {DataType: aws.String("String"), StringValue: aws.String(string(ev.Status))},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
