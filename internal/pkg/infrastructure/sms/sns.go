package sms

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

const smsTypeAttribute string = "AWS.SNS.SMS.SMSType"

//go:generate moq -rm -out snspublisher_mock.go . SNSPublisher

// SNSPublisher is the part of the SNS client used to deliver text messages.
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSProvider struct {
	client SNSPublisher
}

// NewSNSProvider loads the default AWS credential chain for the given region.
func NewSNSProvider(ctx context.Context, region string) (*SNSProvider, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return NewSNSProviderWithClient(sns.NewFromConfig(cfg)), nil
}

func NewSNSProviderWithClient(client SNSPublisher) *SNSProvider {
	return &SNSProvider{client: client}
}

// Send publishes a transactional text message and returns the SNS message id.
func (p *SNSProvider) Send(ctx context.Context, phoneNumber, message string) (string, error) {
	out, err := p.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(phoneNumber),
		Message:     aws.String(message),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			smsTypeAttribute: {
				DataType:    aws.String("String"),
				StringValue: aws.String("Transactional"),
			},
		},
	})
	if err != nil {
		return "", err
	}

	return aws.ToString(out.MessageId), nil
}
