package secretstore

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/example/stackguard/internal/awsenv"
)

const (
	vaultAuthToken   = "token"
	vaultAuthAppRole = "approle"
	vaultAuthAWS     = "aws"

	stsBody = "Action=GetCallerIdentity&Version=2011-06-15"
)

type vaultAuthConfig struct {
	method         string
	mount          string
	token          string
	roleID         string
	secretID       string
	awsRole        string
	awsRegion      string
	awsProfile     string
	awsHeaderValue string
}

func buildVaultAuthConfig(cfg ProviderConfig) (vaultAuthConfig, error) {
	out := vaultAuthConfig{
		token:          strings.TrimSpace(cfg.Token),
		roleID:         strings.TrimSpace(cfg.RoleID),
		secretID:       strings.TrimSpace(cfg.SecretID),
		awsRole:        strings.TrimSpace(cfg.AWSRole),
		awsRegion:      strings.TrimSpace(cfg.Region),
		awsProfile:     strings.TrimSpace(cfg.Profile),
		awsHeaderValue: strings.TrimSpace(cfg.AWSHeaderValue),
	}
	switch strings.ToLower(strings.TrimSpace(cfg.AuthMethod)) {
	case "":
		switch {
		case out.roleID != "" || out.secretID != "":
			out.method = vaultAuthAppRole
		case out.awsRole != "":
			out.method = vaultAuthAWS
		default:
			out.method = vaultAuthToken
		}
	case "token":
		out.method = vaultAuthToken
	case "approle", "app-role", "app_role":
		out.method = vaultAuthAppRole
	case "aws", "aws-iam", "iam":
		out.method = vaultAuthAWS
	default:
		return vaultAuthConfig{}, fmt.Errorf("vault auth method %q is not supported", cfg.AuthMethod)
	}
	out.mount = strings.Trim(strings.TrimSpace(cfg.AuthMount), "/")
	if out.mount == "" && out.method != vaultAuthToken {
		out.mount = out.method
	}
	switch out.method {
	case vaultAuthToken:
		if out.token == "" {
			return vaultAuthConfig{}, fmt.Errorf("vault token is required")
		}
	case vaultAuthAppRole:
		if out.roleID == "" || out.secretID == "" {
			return vaultAuthConfig{}, fmt.Errorf("vault approle auth requires roleId and secretId")
		}
	case vaultAuthAWS:
		if out.awsRole == "" {
			return vaultAuthConfig{}, fmt.Errorf("vault aws auth requires awsRole")
		}
	}
	return out, nil
}

func (p *vaultProvider) ensureAuth(ctx context.Context) error {
	if p.auth.method == vaultAuthToken {
		return nil
	}
	p.authOnce.Do(func() {
		p.authErr = p.login(ctx)
	})
	return p.authErr
}

func (p *vaultProvider) login(ctx context.Context) error {
	var data map[string]interface{}
	switch p.auth.method {
	case vaultAuthAppRole:
		data = map[string]interface{}{
			"role_id":   p.auth.roleID,
			"secret_id": p.auth.secretID,
		}
	case vaultAuthAWS:
		payload, err := buildAWSLoginPayload(ctx, p.auth)
		if err != nil {
			return err
		}
		data = payload
	default:
		return nil
	}
	secret, err := p.client.Logical().WriteWithContext(ctx, "auth/"+p.auth.mount+"/login", data)
	if err != nil {
		return fmt.Errorf("vault %s login: %w", p.auth.method, err)
	}
	if secret == nil || secret.Auth == nil || strings.TrimSpace(secret.Auth.ClientToken) == "" {
		return fmt.Errorf("vault auth %s did not return a client token", p.auth.method)
	}
	p.client.SetToken(secret.Auth.ClientToken)
	return nil
}

// buildAWSLoginPayload signs an sts:GetCallerIdentity request with the runner's
// AWS credentials, which Vault's aws auth method replays to verify identity.
func buildAWSLoginPayload(ctx context.Context, cfg vaultAuthConfig) (map[string]interface{}, error) {
	opts := awsenv.Options{Region: cfg.awsRegion, Profile: cfg.awsProfile}
	region := opts.ResolvedRegion()
	if region == "" {
		return nil, fmt.Errorf("aws region is required for vault auth (set region or AWS_REGION)")
	}
	awsCfg, err := awsenv.Load(ctx, opts)
	if err != nil {
		return nil, err
	}
	creds, err := awsCfg.Credentials.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrieve aws credentials: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://sts.amazonaws.com/", strings.NewReader(stsBody))
	if err != nil {
		return nil, fmt.Errorf("build sts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
	if cfg.awsHeaderValue != "" {
		req.Header.Set("X-Vault-AWS-IAM-Server-ID", cfg.awsHeaderValue)
	}
	payloadHash := sha256.Sum256([]byte(stsBody))
	if err := v4.NewSigner().SignHTTP(ctx, creds, req, hex.EncodeToString(payloadHash[:]), "sts", region, time.Now()); err != nil {
		return nil, fmt.Errorf("sign sts request: %w", err)
	}
	headers := map[string][]string{"Host": {req.URL.Host}}
	for key, values := range req.Header {
		headers[key] = values
	}
	headerJSON, err := json.Marshal(headers)
	if err != nil {
		return nil, fmt.Errorf("encode aws headers: %w", err)
	}
	return map[string]interface{}{
		"role":                    cfg.awsRole,
		"iam_http_request_method": req.Method,
		"iam_request_url":         base64.StdEncoding.EncodeToString([]byte(req.URL.String())),
		"iam_request_body":        base64.StdEncoding.EncodeToString([]byte(stsBody)),
		"iam_request_headers":     base64.StdEncoding.EncodeToString(headerJSON),
	}, nil
}
