// File: internal/inventory/cloudformation.go
// Brief: Live stack inventory from the CloudFormation control plane.

// Package inventory lists the stack names that already exist in the cloud
// account, so new declarations can be checked for collisions.
package inventory

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/example/stackguard/internal/awsenv"
	"github.com/example/stackguard/internal/check"
	"github.com/pkg/errors"
)

// Lister returns the names of existing stacks.
type Lister interface {
	StackNames(ctx context.Context) (check.NameSet, error)
}

// CloudFormation lists stacks through the CloudFormation ListStacks API.
type CloudFormation struct {
	client cloudformation.ListStacksAPIClient
}

// NewCloudFormation wraps an existing ListStacks client.
func NewCloudFormation(client cloudformation.ListStacksAPIClient) *CloudFormation {
	return &CloudFormation{client: client}
}

// NewCloudFormationFromEnv builds a client from the default AWS credential chain.
func NewCloudFormationFromEnv(ctx context.Context, opts awsenv.Options) (*CloudFormation, error) {
	cfg, err := awsenv.Load(ctx, opts)
	if err != nil {
		return nil, err
	}
	return NewCloudFormation(cloudformation.NewFromConfig(cfg)), nil
}

// LiveStatuses is every stack status except DELETE_COMPLETE.
func LiveStatuses() []cftypes.StackStatus {
	all := cftypes.StackStatus("").Values()
	out := make([]cftypes.StackStatus, 0, len(all))
	for _, status := range all {
		if status == cftypes.StackStatusDeleteComplete {
			continue
		}
		out = append(out, status)
	}
	return out
}

// StackNames returns the names of all stacks that are not fully deleted.
func (c *CloudFormation) StackNames(ctx context.Context) (check.NameSet, error) {
	names := check.NewNameSet()
	if c == nil || c.client == nil {
		return names, errors.New("cloudformation client is not configured")
	}
	paginator := cloudformation.NewListStacksPaginator(c.client, &cloudformation.ListStacksInput{
		StackStatusFilter: LiveStatuses(),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return names, errors.Wrap(err, "list cloudformation stacks")
		}
		for _, summary := range page.StackSummaries {
			names.Add(aws.ToString(summary.StackName))
		}
	}
	return names, nil
}
