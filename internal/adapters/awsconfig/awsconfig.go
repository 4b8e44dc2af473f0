// Package awsconfig builds the AWS SDK configuration shared by the audit and archive adapters.
package awsconfig

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "us-east-1"

// Settings contains the AWS client settings.
type Settings struct {
	Region string

	// Endpoint overrides the service endpoint, e.g. LocalStack or MinIO.
	// Clients apply it through their BaseEndpoint option.
	Endpoint string

	// Static credentials are used only when both keys are set.
	AccessKeyID     string
	SecretAccessKey string
}

// Load resolves an aws.Config from settings, falling back to the default credential chain.
func Load(ctx context.Context, s Settings) (aws.Config, error) {
	region := s.Region
	if region == "" {
		region = DefaultRegion
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	if s.AccessKeyID != "" && s.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AccessKeyID, s.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading aws config: %w", err)
	}

	return cfg, nil
}

// BaseEndpoint returns the endpoint override, or nil to use the SDK resolver.
func (s Settings) BaseEndpoint() *string {
	if s.Endpoint == "" {
		return nil
	}

	return aws.String(s.Endpoint)
}
