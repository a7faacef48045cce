// File: internal/awsenv/awsenv.go
// Brief: Shared AWS SDK configuration loading.

package awsenv

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

// Options select the region and shared-config profile. Empty values defer to
// the SDK's default chain.
type Options struct {
	Region  string
	Profile string
}

// ResolvedRegion returns the explicit region or the AWS_REGION / AWS_DEFAULT_REGION
// environment fallback.
func (o Options) ResolvedRegion() string {
	if region := strings.TrimSpace(o.Region); region != "" {
		return region
	}
	if region := strings.TrimSpace(os.Getenv("AWS_REGION")); region != "" {
		return region
	}
	return strings.TrimSpace(os.Getenv("AWS_DEFAULT_REGION"))
}

// Load builds an aws.Config from the default credential chain.
func Load(ctx context.Context, opts Options) (aws.Config, error) {
	var loaders []func(*awsconfig.LoadOptions) error
	if region := opts.ResolvedRegion(); region != "" {
		loaders = append(loaders, awsconfig.WithRegion(region))
	}
	if profile := strings.TrimSpace(opts.Profile); profile != "" {
		loaders = append(loaders, awsconfig.WithSharedConfigProfile(profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}
