package secretstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/example/stackguard/internal/awsenv"
)

type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// ssmProvider reads SecureString (or plain) parameters from SSM Parameter Store.
type ssmProvider struct {
	client ssmAPI
	prefix string
}

func newSSMProvider(ctx context.Context, cfg ProviderConfig) (*ssmProvider, error) {
	awsCfg, err := awsenv.Load(ctx, awsenv.Options{Region: cfg.Region, Profile: cfg.Profile})
	if err != nil {
		return nil, err
	}
	return &ssmProvider{client: ssm.NewFromConfig(awsCfg), prefix: cfg.Path}, nil
}

func (p *ssmProvider) Resolve(ctx context.Context, secretPath string) (string, error) {
	if p == nil || p.client == nil {
		return "", fmt.Errorf("ssm provider is not initialized")
	}
	name := parameterName(p.prefix, secretPath)
	if name == "" {
		return "", fmt.Errorf("ssm parameter name is required")
	}
	out, err := p.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("get ssm parameter %s: %w", name, err)
	}
	if out == nil || out.Parameter == nil {
		return "", fmt.Errorf("ssm parameter %s not found", name)
	}
	value := aws.ToString(out.Parameter.Value)
	if value == "" {
		return "", fmt.Errorf("ssm parameter %s is empty", name)
	}
	return value, nil
}

// parameterName joins prefix and path. Hierarchical names get a leading slash
// because SSM rejects "a/b" but accepts "/a/b" and "a".
func parameterName(prefix, secretPath string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	secretPath = strings.Trim(strings.TrimSpace(secretPath), "/")
	if secretPath == "" {
		return ""
	}
	name := secretPath
	if prefix != "" {
		name = prefix + "/" + secretPath
	}
	if strings.Contains(name, "/") {
		name = "/" + name
	}
	return name
}
