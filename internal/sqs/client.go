package sqs

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/iyhunko/storefront-admin/internal/config"
)

const defaultRegion = "us-east-1"

// NewClient creates an SQS client from the AWS settings. Credentials come
// from the default AWS chain; a non-empty endpoint overrides the service URL
// (LocalStack in development).
func NewClient(ctx context.Context, conf config.AWSConfig) (*sqs.Client, error) {
	region := conf.Region
	if region == "" {
		region = defaultRegion
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if conf.Endpoint != "" {
			o.BaseEndpoint = aws.String(conf.Endpoint)
		}
	}), nil
}
