// Package sns publishes tag notifications to an SNS topic and manages email
// subscriptions with per-tag filter policies. Every published message carries
// a lowercase "tag" message attribute; subscription filter policies match on
// the same attribute, so subscribers only receive sightings of the tags they
// asked for.
package sns

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/wildtrack/mediatag-service/internal/config"
	registrynotify "github.com/wildtrack/mediatag-service/internal/registry/notify"
)

func init() {
	registrynotify.Register(registrynotify.Plugin{
		Name:   "sns",
		Loader: load,
	})
}

func load(ctx context.Context) (registrynotify.Notifier, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil || cfg.TopicARN == "" {
		return nil, fmt.Errorf("sns: topic ARN is required")
	}
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sns: load AWS config: %w", err)
	}
	client := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if cfg.AWSEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpoint)
		}
	})
	return &Notifier{client: client, topicARN: cfg.TopicARN}, nil
}

type Notifier struct {
	client   *sns.Client
	topicARN string
}

func (n *Notifier) Publish(ctx context.Context, msg registrynotify.Message) error {
	_, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(msg.Subject),
		Message:  aws.String(msg.Body),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"tag": {
				DataType:    aws.String("String"),
				StringValue: aws.String(strings.ToLower(msg.Tag)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("sns: publish tag %q: %w", msg.Tag, err)
	}
	return nil
}

// Subscribe creates an email subscription filtered to the given tags and
// returns the subscription ARN. With ReturnSubscriptionArn the ARN comes back
// even while the email confirmation is still pending.
func (n *Notifier) Subscribe(ctx context.Context, endpoint string, tags []string) (string, error) {
	lowered := make([]string, 0, len(tags))
	for _, tag := range tags {
		lowered = append(lowered, strings.ToLower(tag))
	}
	policy, err := json.Marshal(map[string][]string{"tag": lowered})
	if err != nil {
		return "", fmt.Errorf("sns: encode filter policy: %w", err)
	}
	out, err := n.client.Subscribe(ctx, &sns.SubscribeInput{
		TopicArn: aws.String(n.topicARN),
		Protocol: aws.String("email"),
		Endpoint: aws.String(endpoint),
		Attributes: map[string]string{
			"FilterPolicy": string(policy),
		},
		ReturnSubscriptionArn: true,
	})
	if err != nil {
		return "", fmt.Errorf("sns: subscribe %s: %w", endpoint, err)
	}
	return aws.ToString(out.SubscriptionArn), nil
}

func (n *Notifier) Unsubscribe(ctx context.Context, handle string) error {
	_, err := n.client.Unsubscribe(ctx, &sns.UnsubscribeInput{
		SubscriptionArn: aws.String(handle),
	})
	if err != nil {
		return fmt.Errorf("sns: unsubscribe %s: %w", handle, err)
	}
	return nil
}
